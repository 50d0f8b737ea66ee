package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL      string   `mapstructure:"REDIS_URL"`
	JWTSecret     string   `mapstructure:"JWT_SECRET"`
	DefaultTenant string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`

	// Cache tuning for the navigation menu and the specialized-record
	// resolver. Both default to one hour.
	MenuCacheTTLSeconds     int `mapstructure:"MENU_CACHE_TTL_SECONDS"`
	ResolverCacheTTLSeconds int `mapstructure:"RESOLVER_CACHE_TTL_SECONDS"`

	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MENU_CACHE_TTL_SECONDS", 3600)
	v.SetDefault("RESOLVER_CACHE_TTL_SECONDS", 3600)
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("DEFAULT_TENANT")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MENU_CACHE_TTL_SECONDS")
	v.BindEnv("RESOLVER_CACHE_TTL_SECONDS")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ==========================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ==========================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MenuCacheTTL returns the menu tree cache TTL as a duration.
func (c *Config) MenuCacheTTL() time.Duration {
	return time.Duration(c.MenuCacheTTLSeconds) * time.Second
}

// ResolverCacheTTL returns the specialized-record resolver cache TTL.
func (c *Config) ResolverCacheTTL() time.Duration {
	return time.Duration(c.ResolverCacheTTLSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// mode a JWT secret must be configured so that real authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV is %q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.MenuCacheTTLSeconds <= 0 {
		return fmt.Errorf("MENU_CACHE_TTL_SECONDS must be positive, got %d", c.MenuCacheTTLSeconds)
	}
	if c.ResolverCacheTTLSeconds <= 0 {
		return fmt.Errorf("RESOLVER_CACHE_TTL_SECONDS must be positive, got %d", c.ResolverCacheTTLSeconds)
	}
	return nil
}
