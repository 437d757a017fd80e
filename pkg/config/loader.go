package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default locations
const (
	SystemConfigPath = "/etc/toolz/toolz.toml"
	EnvPrefix        = "TOOLZ_"
)

// Loader assembles the configuration layers
type Loader struct {
	// SystemFile is loaded when present
	SystemFile string
	// UserDir holds config.toml or config.yaml
	UserDir string
	// File is an explicit configuration file that must exist when set
	File string
	// Overrides are applied last
	Overrides map[string]interface{}
}

// NewLoader creates a loader with the standard locations
func NewLoader(file string) *Loader {
	xdg.Reload()
	return &Loader{
		SystemFile: SystemConfigPath,
		UserDir:    filepath.Join(xdg.ConfigHome, "toolz"),
		File:       file,
	}
}

// Load reads and unmarshals the configuration from the standard locations
func Load(file string) (*Config, error) {
	return NewLoader(file).Load()
}

// Koanf builds the merged key space
func (l *Loader) Koanf() (*koanf.Koanf, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. System and user files, when present
	candidates := []string{l.SystemFile}
	if l.UserDir != "" {
		candidates = append(candidates,
			filepath.Join(l.UserDir, "config.toml"),
			filepath.Join(l.UserDir, "config.yaml"),
			filepath.Join(l.UserDir, "config.yml"),
		)
	}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
		logger.Debug().Str("path", path).Msg("Loaded config file")
	}

	// 3. Explicit file
	if l.File != "" {
		if _, err := os.Stat(l.File); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not found", l.File)
		}
		if err := loadFile(k, l.File); err != nil {
			return nil, err
		}
		logger.Debug().Str("path", l.File).Msg("Loaded explicit config file")
	}

	// 4. Environment, TOOLZ_TSM_PEER_PORT -> tsm.peer_port
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 5. Overrides
	if len(l.Overrides) > 0 {
		if err := k.Load(confmap.Provider(l.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load overrides")
		}
	}

	return k, nil
}

// Load merges every layer and unmarshals the result
func (l *Loader) Load() (*Config, error) {
	k, err := l.Koanf()
	if err != nil {
		return nil, err
	}
	return Unmarshal(k)
}

// Unmarshal decodes a koanf key space into a Config
func Unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if cfg.Prompt.MaxRetries <= 0 {
		cfg.Prompt.MaxRetries = 3
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser = toml.Parser()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path)
	}
	return nil
}

// HomePath resolves a path relative to home unless it is absolute
func HomePath(home, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(home, p)
}
