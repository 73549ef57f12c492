package vehicle

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownVehicle is returned when an identifier is not in the catalog.
var ErrUnknownVehicle = errors.New("unknown vehicle")

//go:embed vehicles.yaml
var defaultCatalog []byte

type catalogEntry struct {
	Name             string `yaml:"name"`
	Family           string `yaml:"family"`
	Radarless        bool   `yaml:"radarless"`
	ExtendedHUD      bool   `yaml:"extended_hud"`
	LegacyBrakeAlert bool   `yaml:"legacy_brake_alert"`
}

type catalogFile struct {
	Vehicles []catalogEntry `yaml:"vehicles"`
}

// Catalog maps vehicle identifiers to their profiles.
type Catalog struct {
	profiles map[string]Profile
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse vehicle catalog: %w", err)
	}

	c := &Catalog{profiles: make(map[string]Profile, len(f.Vehicles))}
	for _, e := range f.Vehicles {
		if e.Name == "" {
			return nil, errors.New("vehicle catalog entry without a name")
		}
		if _, dup := c.profiles[e.Name]; dup {
			return nil, fmt.Errorf("duplicate vehicle %q in catalog", e.Name)
		}
		family, err := ParseFamily(e.Family)
		if err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", e.Name, err)
		}
		if e.Radarless && family != FamilyBosch {
			return nil, fmt.Errorf("vehicle %q: only bosch cars can be radarless", e.Name)
		}
		c.profiles[e.Name] = Profile{
			Name:             e.Name,
			Family:           family,
			Radarless:        e.Radarless,
			ExtendedHUD:      e.ExtendedHUD,
			LegacyBrakeAlert: e.LegacyBrakeAlert,
		}
	}
	return c, nil
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("embedded vehicle catalog is invalid: " + err.Error())
	}
	return c
}

// Lookup returns the profile for a vehicle identifier.
func (c *Catalog) Lookup(name string) (Profile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownVehicle, name)
	}
	return p, nil
}

// Names returns the sorted vehicle identifiers.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for n := range c.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
