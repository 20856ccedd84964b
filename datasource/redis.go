package datasource

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/sample"
)

// Redis is a concrete DataSource backed by Redis sorted sets: one set per
// path, member score is the sample's Unix timestamp, member value is its
// JSON encoding. Reads use ZREVRANGEBYSCORE for newest-first order.
type Redis struct {
	name string
	pool *redis.Pool
	log  *logrus.Entry
}

// NewRedis builds a Redis datasource against addr ("host:port"). The
// connection is opened lazily by the pool on first use.
func NewRedis(name, addr string, log *logrus.Entry) *Redis {
	return &Redis{
		name: name,
		log:  log.WithFields(logrus.Fields{"component": "datasource", "name": name}),
		pool: &redis.Pool{
			MaxIdle:     4,
			IdleTimeout: 5 * time.Minute,
			Dial: func() (redis.Conn, error) {
				return redis.DialTimeout("tcp", addr, 5*time.Second, 5*time.Second, 5*time.Second)
			},
		},
	}
}

func (r *Redis) Name() string { return r.name }

type wireSample struct {
	Value float64 `json:"value"`
	Kind  int     `json:"kind"`
	Unit  int     `json:"unit"`
}

func (r *Redis) Get(ctx context.Context, path Path, limit int) ([]sample.Sample, error) {
	conn := r.pool.Get()
	defer conn.Close()

	count := limit
	if count <= 0 {
		count = 100
	}
	raw, err := redis.Strings(conn.Do(
		"ZREVRANGEBYSCORE", key(path), "+inf", "-inf", "WITHSCORES", "LIMIT", 0, count))
	if err != nil {
		return nil, ferr.Wrap(ferr.DataSourceRead, r.name, err, "zrevrangebyscore failed")
	}

	out := make([]sample.Sample, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		var ws wireSample
		if err := json.Unmarshal([]byte(raw[i]), &ws); err != nil {
			r.log.WithFields(logrus.Fields{"event": ferr.EventDataSourceFault}).
				Warnf("malformed member at %s, skipping: %s", key(path), err)
			continue
		}
		ts, err := parseScore(raw[i+1])
		if err != nil {
			continue
		}
		out = append(out, sample.Sample{Timestamp: ts, Value: ws.Value, Kind: sample.Kind(ws.Kind), Unit: ws.Unit})
	}
	return out, nil
}

func (r *Redis) GetGravity(ctx context.Context, identifier string) (sample.Sample, error) {
	return r.latest(ctx, Path{"gravity", identifier})
}

func (r *Redis) GetTemperature(ctx context.Context, identifier string) (sample.Sample, error) {
	return r.latest(ctx, Path{"temperature", identifier})
}

func (r *Redis) latest(ctx context.Context, path Path) (sample.Sample, error) {
	samples, err := r.Get(ctx, path, 1)
	if err != nil {
		return sample.Sample{}, err
	}
	if len(samples) == 0 {
		return sample.Sample{}, ferr.New(ferr.DataSourceRead, r.name, "no samples at "+key(path))
	}
	return samples[0], nil
}

func (r *Redis) Set(context.Context, Path, sample.Sample) error {
	return ferr.New(ferr.NotImplemented, r.name, "Redis datasource is read-only")
}

func (r *Redis) Close() error {
	return r.pool.Close()
}

func parseScore(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(f), 0), nil
}
