package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Liveness LivenessConfig `mapstructure:"liveness"`
	Devices  DevicesConfig  `mapstructure:"devices"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// Auth Configuration
type AuthConfig struct {
	JWTSecretEnv    string        `mapstructure:"jwt_secret_env"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type LivenessConfig struct {
	// OfflineTimeout is the liveness window: silence longer than this marks
	// the device OFFLINE. Shared by both timestamp-format branches.
	OfflineTimeout time.Duration `mapstructure:"offline_timeout"`
	// WatchdogInterval drives re-evaluation in the absence of meta pushes.
	WatchdogInterval time.Duration `mapstructure:"watchdog_interval"`
}

type DevicesConfig struct {
	// AliasTablePath optionally overrides the compiled-in telemetry alias table.
	AliasTablePath  string        `mapstructure:"alias_table_path"`
	MaxAssigned     int           `mapstructure:"max_assigned"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.shutdown_timeout", "30s")

	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.client_id", "farmcore")
	viper.SetDefault("mqtt.topic_prefix", "farm")

	viper.SetDefault("liveness.offline_timeout", "35s")
	viper.SetDefault("liveness.watchdog_interval", "5s")

	viper.SetDefault("devices.max_assigned", 3)
	viper.SetDefault("devices.refresh_interval", "30s")

	// Auth Defaults
	viper.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	viper.SetDefault("auth.access_token_ttl", "60m")
	viper.SetDefault("auth.refresh_token_ttl", "168h")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FARMCORE")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// JWT Secret aus Environment Variable laden
func (a *AuthConfig) GetJWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "JWT_SECRET" // Fallback
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		// Development Fallback (MIT WARNING!)
		return "dev-secret-change-in-production-min-32-chars"
	}
	return secret
}
