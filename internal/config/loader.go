package config

import (
	"fmt"

	"github.com/rpattn/talentcrm/internal/db"
	"github.com/spf13/viper"
)

// ServerConfig collects everything the server binary needs beyond the
// database connection.
type ServerConfig struct {
	Addr            string
	ExportDirectory string
	ExportPageSize  int
	MigrationsPath  string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		ExportPageSize: 1000,
		MigrationsPath: "./migrations",
	}
}

func LoadDBConfig(configPath string) (db.Config, error) {
	// Start with default
	cfg := db.DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()     // allow environment overrides
	v.SetEnvPrefix("DB") // map env vars like DB_HOST, DB_PORT

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.SSLMode = v.GetString("database.sslmode")
	}

	return cfg, nil
}

// LoadServerConfig reads server settings from config.yaml with SERVER_
// environment overrides.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	cfg := defaultServerConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("SERVER")

	v.BindEnv("server.addr")
	v.BindEnv("server.export_directory")
	v.BindEnv("server.export_page_size")
	v.BindEnv("server.migrations_path")

	if err := v.ReadInConfig(); err == nil {
		fmt.Println("Loaded config.yaml for server settings")
	}

	if v.IsSet("server.addr") {
		cfg.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.export_directory") {
		cfg.ExportDirectory = v.GetString("server.export_directory")
	}
	if v.IsSet("server.export_page_size") {
		cfg.ExportPageSize = v.GetInt("server.export_page_size")
	}
	if v.IsSet("server.migrations_path") {
		cfg.MigrationsPath = v.GetString("server.migrations_path")
	}

	return cfg, nil
}
