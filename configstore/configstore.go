// Package configstore produces and validates ConfigSpec graphs describing
// the Relays, DataSources, Beers and Managers a Supervisor should assemble,
// from one of several interchangeable backing stores.
package configstore

import (
	"context"
	"time"

	"github.com/prairiedogbeer/fermenator/ferr"
)

// ObjectConfig names a concrete implementation type plus its config block,
// e.g. {Type: "SetPoint", Config: {"set_point": 18.0, ...}}.
type ObjectConfig struct {
	Type   string
	Config map[string]interface{}
}

// ConfigSpec is the pure description produced by a Store's Load: four
// name->ObjectConfig maps plus a monotone version token. It carries no
// live object references, only names, so it can be constructed, compared
// and discarded freely.
type ConfigSpec struct {
	Version     string
	Relays      map[string]ObjectConfig
	DataSources map[string]ObjectConfig
	Beers       map[string]ObjectConfig
	Managers    map[string]ObjectConfig
}

// Store is the contract every ConfigStore variant satisfies identically;
// the Supervisor never branches on which variant it holds.
type Store interface {
	Name() string
	Load(ctx context.Context) (*ConfigSpec, error)
	HasChanged(ctx context.Context) (bool, error)
	RefreshInterval() time.Duration
}

func stringConfig(cfg map[string]interface{}, key string) (string, bool) {
	v, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Validate checks referential integrity across the four maps: every
// beers[b].datasource, managers[m].beer, and managers[m].active_*_relay
// name must resolve within the same spec. It also rejects a relay
// assigned as the active relay of more than one manager, per the
// no-shared-relays-across-managers concurrency invariant.
func (c *ConfigSpec) Validate() error {
	for name, beer := range c.Beers {
		ds, ok := stringConfig(beer.Config, "datasource")
		if !ok || ds == "" {
			return ferr.New(ferr.ConfigReferentialIntegrity, "configstore",
				"beer "+name+" does not reference a datasource")
		}
		if _, ok := c.DataSources[ds]; !ok {
			return ferr.New(ferr.ConfigReferentialIntegrity, "configstore",
				"beer "+name+" references unknown datasource "+ds)
		}
		if id, ok := stringConfig(beer.Config, "identifier"); !ok || id == "" {
			return ferr.New(ferr.ConfigInvalid, "configstore",
				"beer "+name+" is missing a required identifier")
		}
	}

	claimed := make(map[string]string)
	for name, mgr := range c.Managers {
		beerName, ok := stringConfig(mgr.Config, "beer")
		if !ok || beerName == "" {
			return ferr.New(ferr.ConfigReferentialIntegrity, "configstore",
				"manager "+name+" does not reference a beer")
		}
		if _, ok := c.Beers[beerName]; !ok {
			return ferr.New(ferr.ConfigReferentialIntegrity, "configstore",
				"manager "+name+" references unknown beer "+beerName)
		}
		for _, key := range []string{"active_heating_relay", "active_cooling_relay"} {
			relayName, ok := stringConfig(mgr.Config, key)
			if !ok || relayName == "" {
				continue
			}
			if _, ok := c.Relays[relayName]; !ok {
				return ferr.New(ferr.ConfigReferentialIntegrity, "configstore",
					"manager "+name+" references unknown relay "+relayName+" via "+key)
			}
			if owner, taken := claimed[relayName]; taken && owner != name {
				return ferr.New(ferr.ConfigReferentialIntegrity, "configstore",
					"relay "+relayName+" is claimed by both "+owner+" and "+name)
			}
			claimed[relayName] = name
		}
	}
	return nil
}

// resolveInherit replaces any datasource/relay config block whose literal
// value is the string "inherit" with the bootstrap-level block of the
// same kind, enabling shared credentials across many object configs. By
// convention, a tabular/KV row of the form "<name>, config, inherit"
// decodes to Config{"inherit": "inherit"} rather than a real key/value
// pair; this is the marker resolveInherit looks for.
func resolveInherit(configs map[string]ObjectConfig, bootstrap map[string]interface{}) {
	for name, oc := range configs {
		if lit, ok := oc.Config["inherit"]; ok {
			if s, isStr := lit.(string); isStr && s == "inherit" {
				merged := make(map[string]interface{}, len(bootstrap))
				for k, v := range bootstrap {
					merged[k] = v
				}
				oc.Config = merged
				configs[name] = oc
			}
		}
	}
}
