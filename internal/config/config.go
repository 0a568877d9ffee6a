package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultModels is the ordered fallback chain used for card generation.
var DefaultModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"deepseek/deepseek-r1-distill-llama-70b:free",
	"nousresearch/hermes-3-llama-3.1-405b:free",
}

var defaultFrontendURLs = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://10.0.2.2:5173",
	"http://10.0.2.2:3000",
	"https://revi-app.onrender.com",
}

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL   string
	DBRLS         bool
	DBMaxConns    int
	RunMigrations bool

	// Redis (optional, rate limit store)
	RedisURL string

	// Requests per minute per client
	AuthRateLimit     int
	GenerateRateLimit int

	// Supabase
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string

	// LLM
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	LLMModels         []string
	LLMTimeout        time.Duration
	GeminiAPIKey      string

	// Frontend
	FrontendURLs []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                   getEnvOrDefault("PORT", "3001"),
		Env:                    getEnvOrDefault("ENV", "development"),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		DBRLS:                  getEnvAsBoolOrDefault("DB_RLS", true),
		DBMaxConns:             getEnvAsIntOrDefault("DB_MAX_CONNS", 25),
		RunMigrations:          getEnvAsBoolOrDefault("RUN_MIGRATIONS", false),
		RedisURL:               getEnvOrDefault("REDIS_URL", ""),
		AuthRateLimit:          getEnvAsIntOrDefault("RATE_LIMIT_AUTH", 20),
		GenerateRateLimit:      getEnvAsIntOrDefault("RATE_LIMIT_GENERATE", 10),
		SupabaseURL:            strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:        getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRoleKey: getEnvOrDefault("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:      getEnvOrDefault("SUPABASE_JWT_SECRET", ""),
		OpenRouterAPIKey:       getEnvOrDefault("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:      getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModels:              getEnvAsListOrDefault("LLM_MODELS", DefaultModels),
		LLMTimeout:             getEnvAsDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
		GeminiAPIKey:           getEnvOrDefault("GEMINI_API_KEY", ""),
		FrontendURLs:           getEnvAsListOrDefault("FRONTEND_URLS", defaultFrontendURLs),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("required environment variable DATABASE_URL is not set"))
	}
	if c.SupabaseURL == "" {
		errs = append(errs, errors.New("required environment variable SUPABASE_URL is not set"))
	}
	if c.SupabaseJWTSecret == "" && c.SupabaseAnonKey == "" {
		errs = append(errs, errors.New("one of SUPABASE_JWT_SECRET or SUPABASE_ANON_KEY must be set"))
	}
	if c.DBMaxConns < 1 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be at least 1"))
	}
	if c.AuthRateLimit < 1 || c.GenerateRateLimit < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_AUTH and RATE_LIMIT_GENERATE must be at least 1"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvAsListOrDefault splits a comma-separated value, dropping blanks.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return out
}
