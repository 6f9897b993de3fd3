package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The access and refresh secrets are
// deliberately separate: compromising the access-token secret must not
// allow forging refresh tokens.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret   string // secret signing access tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshSecret  string // secret signing refresh tokens (distinct from AccessSecret)
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	AMQPURL string // RabbitMQ connection URL for the auth event stream (optional)
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
// Token TTLs default to 30 minutes / 7 days when unset.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		AccessSecret:   must("JWT_SECRET"),
		AccessTTLMin:   intDefault("JWT_EXPIRES_MIN", 30),
		RefreshSecret:  must("JWT_REFRESH_SECRET"),
		RefreshTTLDays: intDefault("JWT_REFRESH_EXPIRES_DAYS", 7),
		BcryptCost:     mustInt("BCRYPT_COST"),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intDefault reads an optional integer variable, falling back to def
// when unset or malformed.
func intDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("config: invalid int for %s: %q, using default %d", key, s, def)
		return def
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
