package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Config is the explicit configuration passed into each component at
// construction. Components never read process environment directly.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	MagicLink    MagicLinkConfig    `mapstructure:"magic_link"`
	MFA          MFAConfig          `mapstructure:"mfa"`
	DeviceTrust  DeviceTrustConfig  `mapstructure:"device_trust"`
	RefreshToken RefreshTokenConfig `mapstructure:"refresh_token"`
	Email        EmailConfig        `mapstructure:"email"`
	Cleanup      CleanupConfig      `mapstructure:"cleanup"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	SecurityTopic    string   `mapstructure:"security_topic"`
}

type JWTConfig struct {
	// Secret is the HS256 signing key for access tokens; required.
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type MagicLinkConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	BaseURL    string        `mapstructure:"base_url"`
	RateWindow time.Duration `mapstructure:"rate_window"`
	RateLimit  int           `mapstructure:"rate_limit"`
}

type MFAConfig struct {
	IssuerName string `mapstructure:"issuer_name"`
	// TOTPEncryptionKey is the hex-encoded 256-bit key for the TOTP secret
	// envelope. Supplied via the deployment environment; startup fails
	// without it.
	TOTPEncryptionKey   string        `mapstructure:"totp_encryption_key"`
	BackupCodeCount     int           `mapstructure:"backup_code_count"`
	BackupCodeLowWater  int           `mapstructure:"backup_code_low_water"`
	TempSessionTTL      time.Duration `mapstructure:"temp_session_ttl"`
	TempSessionAttempts int           `mapstructure:"temp_session_attempts"`
}

type DeviceTrustConfig struct {
	Window     time.Duration `mapstructure:"window"`
	MaxDevices int           `mapstructure:"max_devices"`
}

type RefreshTokenConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	RotationEnabled bool          `mapstructure:"rotation_enabled"`
	// RotationWait bounds how long a loser of a concurrent rotation waits
	// for the winner's replacement pair on the broadcast channel. Zero
	// disables the wait.
	RotationWait time.Duration `mapstructure:"rotation_wait"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type CleanupConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// RevokedRetention keeps revoked refresh tokens around for abuse
	// detection before the sweep deletes them.
	RevokedRetention time.Duration `mapstructure:"revoked_retention"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate fails fast on configuration the service cannot safely run
// without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.MFA.TOTPEncryptionKey == "" {
		return errors.New("mfa.totp_encryption_key is required")
	}
	key, err := hex.DecodeString(c.MFA.TOTPEncryptionKey)
	if err != nil {
		return fmt.Errorf("mfa.totp_encryption_key must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("mfa.totp_encryption_key must be 32 bytes, got %d", len(key))
	}
	if c.MFA.TempSessionAttempts <= 0 {
		return errors.New("mfa.temp_session_attempts must be positive")
	}
	if c.MFA.BackupCodeCount <= 0 {
		return errors.New("mfa.backup_code_count must be positive")
	}
	if c.DeviceTrust.MaxDevices <= 0 {
		return errors.New("device_trust.max_devices must be positive")
	}
	return nil
}
