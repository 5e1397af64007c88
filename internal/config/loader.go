package config

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/pkg/errors"
)

// envPrefix is the environment variable prefix used by every setting.
const envPrefix = "ACTIVETEXT"

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithConfigPath reads the YAML file at path before applying env overrides.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// newViper builds a Viper instance with YAML file type, the ACTIVETEXT_ env
// prefix and a key replacer mapping "." to "_", so that "extractor.url_max_length"
// resolves to ACTIVETEXT_EXTRACTOR_URL_MAX_LENGTH.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// Load builds a Config from the optional YAML file, ACTIVETEXT_* environment
// overrides and defaults, then validates it.  Without WithConfigPath the
// config comes from the environment alone.
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := newViper()
	if o.path != "" {
		if _, err := os.Stat(o.path); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigNotFound, "config: file not found").WithDetail(o.path)
		}
		v.SetConfigFile(o.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "config: failed to parse config file").WithDetail(o.path)
		}
	}
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config, applies
// defaults and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "config: failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and passes each valid
// result to onChange.  Invalid revisions are logged and skipped so that the
// caller keeps its last good Config.  Watch does not block.
func Watch(configPath string, logger logging.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		code := errors.ErrCodeConfigInvalid
		if stderrors.As(err, &notFound) || os.IsNotExist(err) {
			code = errors.ErrCodeConfigNotFound
		}
		return errors.Wrap(err, code, "config: cannot watch file").WithDetail(configPath)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			logger.Warn("config reload rejected", logging.String("file", e.Name), logging.Err(err))
			return
		}
		logger.Info("config reloaded", logging.String("file", e.Name), logging.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
