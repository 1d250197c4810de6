// Package config persists the tool's configuration: the API token and the
// defined groups, kept as one YAML document in the user's home directory.
// Access is whole-document read-modify-write, last writer wins.
package config

import (
	"fmt"

	"github.com/gistwatch/gistwatch/internal/domain"
)

// Config is the complete persisted configuration
type Config struct {
	// Token authenticates against the gist API.
	// The GISTWATCH_TOKEN environment variable overrides it.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// Groups are the defined synchronization units
	Groups []domain.FileGroup `mapstructure:"groups" yaml:"groups,omitempty"`
}

// APIToken returns the configured token, or domain.ErrNoToken when none is
// set
func (c *Config) APIToken() (string, error) {
	if c.Token == "" {
		return "", domain.ErrNoToken
	}
	return c.Token, nil
}

// Validate checks group name uniqueness and each group's own invariants
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if err := g.Validate(); err != nil {
			return err
		}
		if names[g.Name] {
			return fmt.Errorf("%w: duplicate group name: %s", domain.ErrInvalidGroup, g.Name)
		}
		names[g.Name] = true
	}
	return nil
}

// GetGroup returns a group by name
func (c *Config) GetGroup(name string) (domain.FileGroup, error) {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return c.Groups[i], nil
		}
	}
	return domain.FileGroup{}, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, name)
}
