package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g. KEGS_FETCH_MAX_STREAMS
const EnvPrefix = "KEGS_"

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFile overrides the user config location. Empty means
	// $XDG_CONFIG_HOME/kegs/config.toml, which may be absent.
	ConfigFile string

	// Overrides are applied last, keyed by dotted path ("fetch.max_streams").
	// The CLI passes flag values here.
	Overrides map[string]interface{}

	// SkipUserFile ignores the default user config location
	SkipUserFile bool

	// SkipEnv ignores KEGS_* environment variables
	SkipEnv bool
}

// Load merges embedded defaults, the user config file, environment
// variables and explicit overrides, in that order.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Load system defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. Load user config if it exists
	configFile := opts.ConfigFile
	explicit := configFile != ""
	if !explicit {
		configFile = UserConfigPath()
	}
	if _, err := os.Stat(configFile); err == nil && (explicit || !opts.SkipUserFile) {
		if err := k.Load(file.Provider(configFile), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", configFile).
				WithDetail("path", configFile)
		}
		logger.Debug().Str("path", configFile).Msg("Loaded user config")
	} else if explicit && err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s is not readable", configFile).
			WithDetail("path", configFile)
	}

	// 3. Load env vars
	if !opts.SkipEnv {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
		}
	}

	// 4. Explicit overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	// 5. Unmarshal
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

	// 6. Post-process
	postProcessConfig(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the embedded defaults without reading files or env
func Default() *Config {
	cfg, err := Load(LoadOptions{SkipUserFile: true, SkipEnv: true})
	if err != nil {
		// The embedded defaults are part of the binary; failing here is a
		// build defect.
		panic("config: embedded defaults are invalid: " + err.Error())
	}
	return cfg
}

// UserConfigPath is the default user config file location
func UserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "kegs", "config.toml")
}

// DefaultRoot is the global root used when none is configured
func DefaultRoot() string {
	return filepath.Join(xdg.DataHome, "kegs")
}

// envKey maps KEGS_FETCH_MAX_STREAMS to fetch.max_streams. Only the first
// underscore separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return s
	}
	switch section {
	case "platform", "fetch", "project", "repair", "cache":
		return section + "." + key
	default:
		return s
	}
}

func postProcessConfig(cfg *Config) {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot()
	} else {
		cfg.Root = expandHome(cfg.Root)
	}
	var tags []string
	for _, tag := range cfg.Platform.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = DefaultPlatformTags()
	}
	cfg.Platform.Tags = tags
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
