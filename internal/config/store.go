package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gistwatch/gistwatch/internal/domain"
)

// DefaultPath returns the default config file location,
// ~/.gistwatch/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gistwatch", "config.yaml"), nil
}

// Store reads and writes the configuration file. Mutating helpers are
// whole-document read-modify-write under a process-local lock.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store over the given file; empty means DefaultPath
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// Path returns the backing file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the configuration. A missing file is an ordinary first run and
// yields an empty config. GISTWATCH_TOKEN overrides the stored token.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", s.path, err)
		}
	} else {
		err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)))
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", s.path, err)
		}
	}

	if env := os.Getenv("GISTWATCH_TOKEN"); env != "" {
		cfg.Token = env
	}

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename). The file
// is user-only since it carries the token.
func (s *Store) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(cfg)
}

func (s *Store) save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}

	return nil
}

// SetToken stores the API token
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	cfg.Token = token
	return s.save(cfg)
}

// AddGroup appends a validated group; the name must be unused
func (s *Store) AddGroup(group domain.FileGroup) error {
	if err := group.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	for _, g := range cfg.Groups {
		if g.Name == group.Name {
			return fmt.Errorf("%w: %s", domain.ErrGroupExists, group.Name)
		}
	}
	cfg.Groups = append(cfg.Groups, group)
	return s.save(cfg)
}

// RemoveGroup deletes the named group
func (s *Store) RemoveGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	for i, g := range cfg.Groups {
		if g.Name == name {
			cfg.Groups = append(cfg.Groups[:i], cfg.Groups[i+1:]...)
			return s.save(cfg)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrGroupNotFound, name)
}

// UpdateGroup replaces the named group. The gist id is write-once: once a
// group carries one, an update may repeat it or omit it, never change it.
func (s *Store) UpdateGroup(name string, group domain.FileGroup) error {
	if err := group.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	for i, g := range cfg.Groups {
		if g.Name != name {
			continue
		}
		if g.GistID != "" {
			if group.GistID != "" && group.GistID != g.GistID {
				return fmt.Errorf("%w: gist id of group %s cannot change", domain.ErrInvalidGroup, name)
			}
			group.GistID = g.GistID
		}
		cfg.Groups[i] = group
		return s.save(cfg)
	}
	return fmt.Errorf("%w: %s", domain.ErrGroupNotFound, name)
}

// GetGroup returns the named group
func (s *Store) GetGroup(name string) (domain.FileGroup, error) {
	cfg, err := s.Load()
	if err != nil {
		return domain.FileGroup{}, err
	}
	return cfg.GetGroup(name)
}
