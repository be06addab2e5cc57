package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/rpattn/verledger/internal/db"
	"github.com/rpattn/verledger/internal/versioning"
)

// ServerConfig is everything the history-viewer service needs at startup.
type ServerConfig struct {
	Addr       string
	DB         db.Config
	Versioning versioning.Config
}

// Load reads config.yaml from the given path, with environment overrides.
func Load(configPath string) (ServerConfig, error) {
	cfg := ServerConfig{
		Addr: ":8080",
		DB:   db.DefaultConfig(),
		Versioning: versioning.Config{
			ModelKey:   versioning.DefaultModelKey,
			VersionKey: versioning.DefaultVersionKey,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv() // allow environment overrides
	v.SetEnvPrefix("VERLEDGER")

	v.BindEnv("server.addr")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("versioning.strict")
	v.BindEnv("versioning.origin")
	v.BindEnv("versioning.model_key")
	v.BindEnv("versioning.version_key")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.addr") {
		cfg.Addr = v.GetString("server.addr")
	}
	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("versioning.strict") {
		cfg.Versioning.Strict = v.GetBool("versioning.strict")
	}
	if v.IsSet("versioning.origin") {
		origin := v.GetString("versioning.origin")
		cfg.Versioning.Origin = &origin
	}
	if v.IsSet("versioning.model_key") {
		cfg.Versioning.ModelKey = v.GetString("versioning.model_key")
	}
	if v.IsSet("versioning.version_key") {
		cfg.Versioning.VersionKey = v.GetString("versioning.version_key")
	}

	return cfg, nil
}
