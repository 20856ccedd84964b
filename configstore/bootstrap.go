package configstore

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/prairiedogbeer/fermenator/ferr"
)

// BootstrapLocations is searched in order, first hit wins.
var BootstrapLocations = []string{
	".fermenator",
	"~/.fermenator/config",
	"/etc/fermenator/config",
}

// BootstrapDescriptor is the top-level document naming which Store
// implementation to build and how.
type BootstrapDescriptor struct {
	Bootstrap struct {
		Name   string                 `yaml:"name"`
		Type   string                 `yaml:"type"`
		Config map[string]interface{} `yaml:"config"`
	} `yaml:"bootstrap"`
}

func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// LoadBootstrapDescriptor searches BootstrapLocations in order and parses
// the first file found. Returns a ferr.ConfigInvalid error if nothing is
// found.
func LoadBootstrapDescriptor() (*BootstrapDescriptor, error) {
	for _, loc := range BootstrapLocations {
		path := expandPath(loc)
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, ferr.Wrap(ferr.ConfigInvalid, "configstore", err, "reading bootstrap descriptor "+path)
		}
		var desc BootstrapDescriptor
		if err := yaml.Unmarshal(raw, &desc); err != nil {
			return nil, ferr.Wrap(ferr.ConfigInvalid, "configstore", err, "parsing bootstrap descriptor "+path)
		}
		if desc.Bootstrap.Type == "" {
			return nil, ferr.New(ferr.ConfigInvalid, "configstore", "bootstrap descriptor "+path+" is missing bootstrap.type")
		}
		return &desc, nil
	}
	return nil, ferr.New(ferr.ConfigInvalid, "configstore",
		fmt.Sprintf("no bootstrap descriptor found in any of %v", BootstrapLocations))
}
