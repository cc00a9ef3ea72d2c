package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/hashdrop/database"
	hashdrophttp "github.com/sagarc03/hashdrop/http"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for hashdrop.
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Auth     AuthConfig              `mapstructure:"auth"`
	TTL      TTLConfig               `mapstructure:"ttl"`
	Database database.Config         `mapstructure:"database"`
	Storage  StorageConfig           `mapstructure:"storage"`
	CORS     hashdrophttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig               `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"min=0"`
}

// AuthConfig holds token verification configuration. Issuer is the base URL
// of the identity provider; the key set is fetched from its
// /.well-known/jwks.json endpoint.
type AuthConfig struct {
	Issuer       string        `mapstructure:"issuer" validate:"omitempty,url"`
	KeySetTTL    time.Duration `mapstructure:"key_set_ttl" validate:"min=0"`
	Leeway       time.Duration `mapstructure:"leeway" validate:"min=0"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"min=0"`
}

// TTLConfig holds the expiration windows applied at creation time.
type TTLConfig struct {
	AnonFile time.Duration `mapstructure:"anon_file" validate:"required,min=1m"`
	AnonURL  time.Duration `mapstructure:"anon_url" validate:"required,min=1m"`
	AuthFile time.Duration `mapstructure:"auth_file" validate:"required,min=1m"`
	AuthURL  time.Duration `mapstructure:"auth_url" validate:"required,min=1m"`
}

// StorageConfig holds file payload storage configuration.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-path": "storage.path",
	"port":         "server.port",
	"issuer":       "auth.issuer",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5709)
	v.SetDefault("server.max_upload_bytes", 0) // 0 means the built-in limit

	v.SetDefault("auth.key_set_ttl", "1h")
	v.SetDefault("auth.leeway", "30s")
	v.SetDefault("auth.fetch_timeout", "10s")

	v.SetDefault("ttl.anon_file", "24h")
	v.SetDefault("ttl.anon_url", "168h")
	v.SetDefault("ttl.auth_file", "168h")
	v.SetDefault("ttl.auth_url", "720h")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "hashdrop.db")
	v.SetDefault("database.table", "hashdrop_mappings")

	v.SetDefault("storage.path", "./data")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("HASHDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
