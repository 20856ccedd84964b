package supervisor

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/beer"
	"github.com/prairiedogbeer/fermenator/configstore"
	"github.com/prairiedogbeer/fermenator/datasource"
	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/flightrecorder"
	"github.com/prairiedogbeer/fermenator/manager"
	"github.com/prairiedogbeer/fermenator/relay"
	"github.com/prairiedogbeer/fermenator/sample"
)

func configString(cfg map[string]interface{}, key, def string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func configFloat(cfg map[string]interface{}, key string, def float64) float64 {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func configSeconds(cfg map[string]interface{}, key string, def time.Duration) time.Duration {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case float64:
			return time.Duration(n * float64(time.Second))
		case int:
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func configBool(cfg map[string]interface{}, key string, def bool) bool {
	if v, ok := cfg[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func configInt(cfg map[string]interface{}, key string, def int) int {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

// buildRelays constructs every entry in spec.Relays. Supported types:
// "Software" (test double / logical-only) and "GPIO" (hardware pin,
// possibly soft-PWM duty-cycled).
func buildRelays(spec *configstore.ConfigSpec, log *logrus.Entry) (map[string]relay.Relay, error) {
	out := make(map[string]relay.Relay, len(spec.Relays))
	for name, oc := range spec.Relays {
		cfg := relay.Config{
			DutyCycle:  configFloat(oc.Config, "duty_cycle", 0),
			CycleTime:  configSeconds(oc.Config, "cycle_time", 0),
			ActiveHigh: configBool(oc.Config, "active_high", true),
			Pin:        configInt(oc.Config, "pin", 0),
		}
		switch oc.Type {
		case "", "Software":
			out[name] = relay.NewSoftware(name, cfg)
		case "GPIO":
			r, err := relay.NewGPIO(name, cfg, log)
			if err != nil {
				return nil, ferr.Wrap(ferr.ConfigInvalid, name, err, "building GPIO relay")
			}
			out[name] = r
		default:
			return nil, ferr.New(ferr.ConfigInvalid, name, "unknown relay type "+oc.Type)
		}
	}
	return out, nil
}

// buildDataSources constructs every entry in spec.DataSources. Base types
// ("Software", "Redis") are built first; decorator types ("Cached",
// "Smoothed") are built in subsequent passes once their named upstream is
// available, since a decorator may itself wrap another decorator.
func buildDataSources(spec *configstore.ConfigSpec, log *logrus.Entry) (map[string]datasource.GravityTemperatureSource, error) {
	out := make(map[string]datasource.GravityTemperatureSource, len(spec.DataSources))
	remaining := make(map[string]configstore.ObjectConfig, len(spec.DataSources))
	for name, oc := range spec.DataSources {
		remaining[name] = oc
	}

	for pass := 0; len(remaining) > 0; pass++ {
		if pass > len(spec.DataSources) {
			names := make([]string, 0, len(remaining))
			for n := range remaining {
				names = append(names, n)
			}
			return nil, ferr.New(ferr.ConfigInvalid, "configstore", fmt.Sprintf("datasource dependency cycle or missing upstream among %v", names))
		}
		progressed := false
		for name, oc := range remaining {
			ds, ok, err := buildOneDataSource(name, oc, out, log)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue // upstream not yet built; retry next pass
			}
			out[name] = ds
			delete(remaining, name)
			progressed = true
		}
		if !progressed && len(remaining) > 0 {
			continue // let the pass-count guard above catch true cycles
		}
	}
	return out, nil
}

func buildOneDataSource(name string, oc configstore.ObjectConfig,
	built map[string]datasource.GravityTemperatureSource, log *logrus.Entry) (datasource.GravityTemperatureSource, bool, error) {
	switch oc.Type {
	case "", "Software":
		return datasource.NewSoftware(name), true, nil
	case "Redis":
		addr := configString(oc.Config, "address", "")
		if addr == "" {
			return nil, false, ferr.New(ferr.ConfigInvalid, name, "Redis datasource requires address")
		}
		return datasource.NewRedis(name, addr, log), true, nil
	case "Cached":
		upstreamName := configString(oc.Config, "upstream", "")
		upstream, ok := built[upstreamName]
		if !ok {
			return nil, false, nil
		}
		window := configSeconds(oc.Config, "window", 30*time.Second)
		return datasource.WrapGravityTemperature(upstream, window), true, nil
	case "Smoothed":
		upstreamName := configString(oc.Config, "upstream", "")
		upstream, ok := built[upstreamName]
		if !ok {
			return nil, false, nil
		}
		size := configInt(oc.Config, "window", 5)
		return datasource.NewSmoothed(upstream, size), true, nil
	default:
		return nil, false, ferr.New(ferr.ConfigInvalid, name, "unknown datasource type "+oc.Type)
	}
}

func parseTempUnit(s string) sample.TempUnit {
	if s == "F" || s == "f" {
		return sample.Fahrenheit
	}
	return sample.Celsius
}

func parseGravityUnit(s string) sample.GravityUnit {
	if s == "SG" || s == "sg" {
		return sample.SG
	}
	return sample.Plato
}

// buildBeers constructs every entry in spec.Beers. A beer's bound
// datasource must implement GravityTemperatureSource or assemble rejects
// the binding.
func buildBeers(spec *configstore.ConfigSpec, dataSources map[string]datasource.GravityTemperatureSource,
	log *logrus.Entry) (map[string]beer.Beer, error) {
	out := make(map[string]beer.Beer, len(spec.Beers))
	for name, oc := range spec.Beers {
		dsName := configString(oc.Config, "datasource", "")
		ds, ok := dataSources[dsName]
		if !ok {
			return nil, ferr.New(ferr.ConfigInvalid, name, "beer references unbound/incomplete datasource "+dsName)
		}
		identifier := configString(oc.Config, "identifier", "")
		tempUnit := parseTempUnit(configString(oc.Config, "temperature_unit", "C"))
		tolerance := configFloat(oc.Config, "tolerance", 0)
		warn := configSeconds(oc.Config, "data_age_warning_time", 0)

		switch oc.Type {
		case "SetPoint":
			setPoint := configFloat(oc.Config, "set_point", 0)
			out[name] = beer.NewSetPoint(name, identifier, ds, tempUnit, setPoint, tolerance, warn, log)
		case "LinearRamp":
			gravityUnit := parseGravityUnit(configString(oc.Config, "gravity_unit", "P"))
			og := configFloat(oc.Config, "original_gravity", 0)
			fg := configFloat(oc.Config, "final_gravity", 0)
			if og == fg {
				return nil, ferr.New(ferr.ConfigInvalid, name, "original_gravity must differ from final_gravity")
			}
			t0 := configFloat(oc.Config, "start_set_point", 0)
			t1 := configFloat(oc.Config, "end_set_point", 0)
			out[name] = beer.NewLinearRamp(name, identifier, ds, tempUnit, gravityUnit, og, fg, t0, t1, tolerance, warn, log)
		default:
			return nil, ferr.New(ferr.ConfigInvalid, name, "unknown beer type "+oc.Type)
		}
	}
	return out, nil
}

// buildManagers constructs every entry in spec.Managers, binding each to
// its named Beer and 0-2 named Relays. rec may be nil, in which case ticks
// are not audited.
func buildManagers(spec *configstore.ConfigSpec, beers map[string]beer.Beer, relays map[string]relay.Relay,
	rec *flightrecorder.Recorder, log *logrus.Entry) (map[string]*manager.Manager, error) {
	out := make(map[string]*manager.Manager, len(spec.Managers))
	for name, oc := range spec.Managers {
		beerName := configString(oc.Config, "beer", "")
		b, ok := beers[beerName]
		if !ok {
			return nil, ferr.New(ferr.ConfigInvalid, name, "manager references unknown beer "+beerName)
		}

		var heatRelay, coolRelay relay.Relay
		if n := configString(oc.Config, "active_heating_relay", ""); n != "" {
			heatRelay, ok = relays[n]
			if !ok {
				return nil, ferr.New(ferr.ConfigInvalid, name, "manager references unknown heating relay "+n)
			}
		}
		if n := configString(oc.Config, "active_cooling_relay", ""); n != "" {
			coolRelay, ok = relays[n]
			if !ok {
				return nil, ferr.New(ferr.ConfigInvalid, name, "manager references unknown cooling relay "+n)
			}
		}

		freq := configSeconds(oc.Config, "polling_frequency", 0)
		if freq <= 0 {
			return nil, ferr.New(ferr.ConfigInvalid, name, "manager requires a positive polling_frequency")
		}

		out[name] = manager.New(manager.Config{
			Name:             name,
			Beer:             b,
			HeatingRelay:     heatRelay,
			CoolingRelay:     coolRelay,
			ActiveHeating:    configBool(oc.Config, "active_heating", heatRelay != nil),
			ActiveCooling:    configBool(oc.Config, "active_cooling", coolRelay != nil),
			PollingFrequency: freq,
			Recorder:         rec,
		}, log)
	}
	return out, nil
}
