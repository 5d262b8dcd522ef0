package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

const EnvDevelopment = "development"

type Config struct {
	ServerPort           int           `mapstructure:"SERVER_PORT"`
	PortAttempts         int           `mapstructure:"PORT_ATTEMPTS"`
	AppEnv               string        `mapstructure:"APP_ENV"`
	MongoUri             string        `mapstructure:"MONGO_URI"`
	MongoDatabase        string        `mapstructure:"MONGO_DATABASE"`
	MongoRetryDelay      time.Duration `mapstructure:"MONGO_RETRY_DELAY"`
	MongoConnectAttempts int           `mapstructure:"MONGO_CONNECT_ATTEMPTS"`
	RedisUrl             string        `mapstructure:"REDIS_URL"`
	JwtSecret            string        `mapstructure:"JWT_SECRET"`
	TokenTTL             time.Duration `mapstructure:"TOKEN_TTL"`
	BcryptCost           int           `mapstructure:"BCRYPT_COST"`
	IsLocalCors          bool          `mapstructure:"LOCAL_CORS"`
	CorsOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	MetricsEnabled       bool          `mapstructure:"METRICS_ENABLED"`
}

// UseMemoryStore reports whether accounts should live in process memory
// instead of MongoDB. Only development without an explicit URI does that.
func (c Config) UseMemoryStore() bool {
	return c.AppEnv == EnvDevelopment && c.MongoUri == ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 5001)
	v.SetDefault("PORT_ATTEMPTS", 10)
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "developertok")
	v.SetDefault("MONGO_RETRY_DELAY", 5*time.Second)
	v.SetDefault("MONGO_CONNECT_ATTEMPTS", 0)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "developertok-secret-key")
	v.SetDefault("TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOCAL_CORS", true)
	v.SetDefault("CORS_ORIGINS", []string{"*"})
	v.SetDefault("METRICS_ENABLED", true)
}

// Setup loads configuration from the optional env file at cfgPath and from
// the process environment, the latter taking precedence.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if cfgPath != "" {
		if _, err := os.Stat(cfgPath); err == nil {
			v.SetConfigFile(cfgPath)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.JwtSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.PortAttempts < 1 {
		cfg.PortAttempts = 1
	}

	return &cfg, nil
}
