package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Params   string `mapstructure:"params"`
}

type ConsulConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type Config struct {
	HTTPPort    int    `mapstructure:"http_port"`
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"` // "development" includes internal error detail in responses
	ServiceName string `mapstructure:"service_name"`
	JwtSecret   string `mapstructure:"jwt_secret"`
	// DefaultTenant is the tenant database used when a request carries no
	// tenant claim (login, global admin endpoints).
	DefaultTenant string         `mapstructure:"default_tenant"`
	Database      DatabaseConfig `mapstructure:"database"`
	Consul        ConsulConfig   `mapstructure:"consul"`
}

var AppConfig Config

func InitConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable overrides
	viper.SetEnvPrefix("FIRMDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("http_port", 8080)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("environment", "production")
	viper.SetDefault("service_name", "firmdesk")
	viper.SetDefault("jwt_secret", "default-very-insecure-secret-key") // CHANGE THIS IN PRODUCTION
	viper.SetDefault("default_tenant", "firmdesk")
	viper.SetDefault("database.host", "127.0.0.1")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.user", "root")
	viper.SetDefault("database.params", "charset=utf8mb4&parseTime=True&loc=Local")
	viper.SetDefault("consul.enabled", false)
	viper.SetDefault("consul.address", "127.0.0.1:8500")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables.")
		} else {
			panic(fmt.Errorf("fatal error reading config file: %w", err))
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		panic(fmt.Errorf("unable to decode config into struct: %w", err))
	}
}

// IsDevelopment reports whether the deployment is explicitly flagged as a
// development environment.
func IsDevelopment() bool {
	return AppConfig.Environment == "development"
}
