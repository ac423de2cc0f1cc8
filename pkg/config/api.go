package config

import (
	"time"

	"github.com/joho/godotenv"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment     string
	Addr            string
	DatabaseURL     string
	MigrationsDir   string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RegistryBaseURL string
	RegistryTimeout time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
// A .env file in the working directory is merged in first when present.
func LoadAPIConfig() APIConfig {
	_ = godotenv.Load()

	return APIConfig{
		Environment:     GetString("APP_ENV", "development"),
		Addr:            GetString("API_ADDR", ":4000"),
		DatabaseURL:     GetString("DATABASE_URL", "postgres://datascout:datascout@db:5432/datascout?sslmode=disable"),
		MigrationsDir:   GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:       GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:  time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
		RegistryBaseURL: GetString("REGISTRY_BASE_URL", "https://huggingface.co"),
		RegistryTimeout: time.Duration(GetInt("REGISTRY_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}
