package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Logger logger
	Sync   syncLimits
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type syncLimits struct {
	BatchSize      int `env:"SYNC_BATCH_SIZE"`
	MaxSyncRecords int `env:"SYNC_MAX_RECORDS"`
}

func MustLoad() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("RUN_ADDRESS", "localhost:8080")
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("SYNC_BATCH_SIZE", 500)
	viper.SetDefault("SYNC_MAX_RECORDS", 1000)

	config := Config{
		Env: viper.GetString("app_env"),
		DB: db{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: server{RunAddress: viper.GetString("run_address")},
		Logger: logger{LogLevel: viper.GetString("log_level")},
		Sync: syncLimits{
			BatchSize:      viper.GetInt("sync_batch_size"),
			MaxSyncRecords: viper.GetInt("sync_max_records"),
		},
	}

	return &config
}
