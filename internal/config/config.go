package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-only-secret-change-me"

type Config struct {
	Env  string
	Port int

	// Store selects the account backend: "postgres" or "memory".
	Store      string
	DBURL      string
	DBMaxConns int32

	JWTSecret string

	AdminEmail    string
	AdminPassword string
	AdminName     string

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	cfg := Config{
		Env:  env,
		Port: getEnvInt("PORT", 8080),

		Store:      getEnv("STORE", "postgres"),
		DBURL:      buildDBURL(),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.Store != "postgres" && c.Store != "memory" {
		errs = append(errs, fmt.Errorf("STORE must be postgres or memory: %q", c.Store))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be positive: %d", c.DBMaxConns))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside dev"))
	}
	if !c.IsDev() && c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must not use the dev default"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1]: %v", c.OTelSampleRatio))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive: %d", c.MaxBodyBytes))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "adminpanel")
	pass := getEnv("DB_PASSWORD", "adminpanel")
	name := getEnv("DB_NAME", "adminpanel")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// malformed numbers fall back rather than zeroing the setting
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
