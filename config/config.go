package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	JWT struct {
		SecretKey             string `mapstructure:"secret_key"`
		AccessTokenTTLMinutes int    `mapstructure:"access_token_ttl_minutes"`
		RefreshTokenTTLHours  int    `mapstructure:"refresh_token_ttl_hours"`
	} `mapstructure:"jwt"`
	Session struct {
		PurgeAfterDays int `mapstructure:"purge_after_days"`
	} `mapstructure:"session"`
}

var AppConfig Config

// IsProduction reports whether the app runs with production hardening
// (Secure cookies, no internal error details in responses).
func IsProduction() bool {
	return AppConfig.App.Env == "production"
}

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()

	viper.SetDefault("app.env", "development")
	viper.SetDefault("jwt.access_token_ttl_minutes", 15)
	viper.SetDefault("jwt.refresh_token_ttl_hours", 168) // 7 days
	viper.SetDefault("session.purge_after_days", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}
