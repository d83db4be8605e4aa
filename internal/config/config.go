/**
 * @description
 * This package handles the configuration management for the wallet-service. It
 * uses the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the wallet-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	TransactionEventExchange string `mapstructure:"TRANSACTION_EVENT_EXCHANGE"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	JWTTTLHours              int    `mapstructure:"JWT_TTL_HOURS"`
	MutationRateLimitPerMin  int    `mapstructure:"MUTATION_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "7000")
	viper.SetDefault("TRANSACTION_EVENT_EXCHANGE", "wallet.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "wallet:rate_limit")
	viper.SetDefault("JWT_TTL_HOURS", 24)
	viper.SetDefault("MUTATION_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TRANSACTION_EVENT_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "WALLET_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "WALLET_JWT_SECRET")
	_ = viper.BindEnv("JWT_TTL_HOURS")
	_ = viper.BindEnv("MUTATION_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform runtimes commonly inject PORT; let it win over SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "wallet:rate_limit"
	}
	if config.JWTTTLHours <= 0 {
		config.JWTTTLHours = 24
	}
	if config.MutationRateLimitPerMin < 0 {
		log.Printf("level=warn component=config msg=\"negative mutation rate limit configured; disabling\" limit=%d", config.MutationRateLimitPerMin)
		config.MutationRateLimitPerMin = 0
	}

	return
}
