package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional YAML file and AUTH_-prefixed
// environment variables, then validates it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/auth-service")
	}

	v.SetEnvPrefix("AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Environment-only deployments are fine; any other read error is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.security_topic", "auth.security-events")

	// Secrets have empty defaults so viper resolves them from the
	// environment during Unmarshal.
	v.SetDefault("jwt.secret", "")
	v.SetDefault("mfa.totp_encryption_key", "")

	v.SetDefault("jwt.issuer", "daon-auth")
	v.SetDefault("jwt.audience", "daon-platform")
	v.SetDefault("jwt.access_token_ttl", "15m")

	v.SetDefault("magic_link.ttl", "30m")
	v.SetDefault("magic_link.rate_window", "1m")
	v.SetDefault("magic_link.rate_limit", 1)

	v.SetDefault("mfa.issuer_name", "Daon")
	v.SetDefault("mfa.backup_code_count", 10)
	v.SetDefault("mfa.backup_code_low_water", 3)
	v.SetDefault("mfa.temp_session_ttl", "5m")
	v.SetDefault("mfa.temp_session_attempts", 5)

	v.SetDefault("device_trust.window", "720h") // 30 days
	v.SetDefault("device_trust.max_devices", 10)

	v.SetDefault("refresh_token.ttl", "720h")
	v.SetDefault("refresh_token.rotation_enabled", true)
	v.SetDefault("refresh_token.rotation_wait", "2s")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.from", "no-reply@daon.network")

	v.SetDefault("cleanup.interval", "10m")
	v.SetDefault("cleanup.revoked_retention", "168h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
