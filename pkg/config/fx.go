package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"go.uber.org/fx"
)

type (
	// Path is the configuration file a Source starts from.
	Path string

	// Source loads the configuration on first use, so the CLI can apply its
	// --dir and --config flags before anything is read.
	Source struct {
		mu     sync.Mutex
		path   string
		cfg    *Config
		loaded bool
	}
)

var Module = fx.Module("config", fx.Provide(NewSource))

// NewSource creates a Source for path, defaulting to automigrate.yaml.
func NewSource(path Path) *Source {
	if path == "" {
		path = consts.DefaultConfigFile
	}
	return &Source{path: string(path)}
}

// SetPath changes the file to load. It has no effect once loaded.
func (s *Source) SetPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path != "" && !s.loaded {
		s.path = path
	}
}

// Load reads .env from the working directory, then the configuration file.
// A missing configuration file yields a nil config, so commands like help
// and rehash work outside a project.
func (s *Source) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.cfg, nil
	}

	if err := LoadEnv(".env"); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		cfg, err := LoadConfigFile(s.path)
		if err != nil {
			return nil, err
		}
		s.cfg = cfg
	}

	s.loaded = true
	return s.cfg, nil
}

// Require is Load failing when there is no configuration file.
func (s *Source) Require() (*Config, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.Errorf("%s not found", s.path)
	}
	return cfg, nil
}

// LoadEnv loads variables from a dotenv file without overriding ones already
// set. A missing file is not an error.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return errors.Wrapf(godotenv.Load(path), "failed to load %s", path)
}
