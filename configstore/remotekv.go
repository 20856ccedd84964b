package configstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	consul "github.com/hashicorp/consul/api"
)

// RemoteKV is a Store backed by a hierarchical key-value tree under a
// fixed root path, e.g.:
//
//	<root>/relays/<name>/type
//	<root>/relays/<name>/config/<key>
//	<root>/datasources/<name>/type
//	...
//
// Any ModifyIndex change anywhere in the tree bumps the version token
// HasChanged compares against.
type RemoteKV struct {
	name            string
	rootPath        string
	refreshInterval time.Duration
	bootstrapConfig map[string]interface{}
	kv              *consul.KV

	lastIndex uint64
}

// NewRemoteKV builds a RemoteKV store talking to the local consul agent
// (or whatever address is configured via the standard CONSUL_HTTP_ADDR
// environment variable).
func NewRemoteKV(name, rootPath string, refreshInterval time.Duration,
	bootstrapConfig map[string]interface{}) (*RemoteKV, error) {
	if rootPath == "" {
		return nil, fmt.Errorf("root_path must be provided")
	}
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	client, err := consul.NewClient(consul.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("remotekv: %w", err)
	}
	return &RemoteKV{
		name:            name,
		rootPath:        strings.TrimSuffix(rootPath, "/"),
		refreshInterval: refreshInterval,
		bootstrapConfig: bootstrapConfig,
		kv:              client.KV(),
	}, nil
}

func (r *RemoteKV) Name() string                  { return r.name }
func (r *RemoteKV) RefreshInterval() time.Duration { return r.refreshInterval }

func (r *RemoteKV) fetchTree(ctx context.Context) (consul.KVPairs, uint64, error) {
	pairs, _, err := r.kv.List(r.rootPath+"/", (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, 0, fmt.Errorf("remotekv: listing %s: %w", r.rootPath, err)
	}
	var maxIndex uint64
	for _, p := range pairs {
		if p.ModifyIndex > maxIndex {
			maxIndex = p.ModifyIndex
		}
	}
	return pairs, maxIndex, nil
}

// buildSpec decodes a flat KV tree into a ConfigSpec. Each pair's key,
// relative to the root, is expected to look like
// "<section>/<name>/type" or "<section>/<name>/config/<key>".
func buildSpec(pairs consul.KVPairs, rootPath string) (*ConfigSpec, error) {
	sections := map[string]*map[string]ObjectConfig{
		"relays":      {},
		"datasources": {},
		"beers":       {},
		"managers":    {},
	}
	for k := range sections {
		m := make(map[string]ObjectConfig)
		sections[k] = &m
	}

	for _, p := range pairs {
		rel := strings.TrimPrefix(strings.TrimPrefix(p.Key, rootPath), "/")
		parts := strings.Split(rel, "/")
		if len(parts) < 3 {
			continue
		}
		section, name := parts[0], parts[1]
		dest, ok := sections[section]
		if !ok {
			continue
		}
		oc, ok := (*dest)[name]
		if !ok {
			oc = ObjectConfig{Config: make(map[string]interface{})}
		}
		value := string(p.Value)
		if value == "" {
			continue
		}
		switch {
		case len(parts) == 3 && parts[2] == "type":
			oc.Type = value
		case len(parts) == 3 && parts[2] == "config" && value == "inherit":
			oc.Config["inherit"] = "inherit"
		case len(parts) == 4 && parts[2] == "config":
			decodedKey, decodedValue := decodeScalar(parts[3], value)
			oc.Config[decodedKey] = decodedValue
		}
		(*dest)[name] = oc
	}

	return &ConfigSpec{
		Relays:      *sections["relays"],
		DataSources: *sections["datasources"],
		Beers:       *sections["beers"],
		Managers:    *sections["managers"],
	}, nil
}

func (r *RemoteKV) stageSpec(ctx context.Context) (*ConfigSpec, uint64, error) {
	pairs, index, err := r.fetchTree(ctx)
	if err != nil {
		return nil, 0, err
	}
	spec, err := buildSpec(pairs, r.rootPath)
	if err != nil {
		return nil, 0, err
	}
	resolveInherit(spec.DataSources, r.bootstrapConfig)
	resolveInherit(spec.Relays, r.bootstrapConfig)
	spec.Version = strconv.FormatUint(index, 10)
	return spec, index, nil
}

// Load stages the whole tree into a fresh ConfigSpec and validates it
// wholly before swapping in the new lastIndex, so a partially-written
// key tree is never observed as a valid config.
func (r *RemoteKV) Load(ctx context.Context) (*ConfigSpec, error) {
	spec, index, err := r.stageSpec(ctx)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	r.lastIndex = index
	return spec, nil
}

func (r *RemoteKV) HasChanged(ctx context.Context) (bool, error) {
	_, index, err := r.stageSpec(ctx)
	if err != nil {
		return false, err
	}
	return index != r.lastIndex, nil
}
