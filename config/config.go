/*
Package config loads server settings.

PRECEDENCE (highest first):
  1. Command-line flags
  2. Environment variables
  3. .env file in the working directory (never overrides the real environment)
  4. Defaults

SETTINGS:
  -port          PORT                 HTTP port (8080)
  -db            DATABASE_PATH        SQLite file, or :memory: (ledger.db)
  -env           APP_ENV              production | development (production)
  -cors-origins  CORS_ORIGINS         comma separated allowed origins
  -low-stock     LOW_STOCK_THRESHOLD  stock audit LOW threshold (50)
  -seed          SEED_DEMO            seed demo data at startup (false)
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Port              int
	DatabasePath      string
	Env               string
	CORSOrigins       []string
	LowStockThreshold int64
	SeedDemo          bool
}

// IsDevelopment reports whether dev-only features (demo seed route,
// development logger) are enabled.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Load reads .env, the environment, then args (without the program name).
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	port, err := strconv.Atoi(env("PORT", "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PORT: %w", err)
	}
	lowStock, err := strconv.ParseInt(env("LOW_STOCK_THRESHOLD", "50"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOW_STOCK_THRESHOLD: %w", err)
	}
	seed, err := strconv.ParseBool(env("SEED_DEMO", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SEED_DEMO: %w", err)
	}

	var (
		cfg     Config
		origins string
	)
	fset := flag.NewFlagSet("partner-ledger", flag.ContinueOnError)
	fset.IntVar(&cfg.Port, "port", port, "HTTP port")
	fset.StringVar(&cfg.DatabasePath, "db", env("DATABASE_PATH", "ledger.db"), "SQLite database path (:memory: for a throwaway ledger)")
	fset.StringVar(&cfg.Env, "env", env("APP_ENV", EnvProduction), "environment: production or development")
	fset.StringVar(&origins, "cors-origins", env("CORS_ORIGINS", ""), "comma separated CORS origins")
	fset.Int64Var(&cfg.LowStockThreshold, "low-stock", lowStock, "stock audit LOW threshold")
	fset.BoolVar(&cfg.SeedDemo, "seed", seed, "seed demo data into an empty ledger at startup")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	switch {
	case cfg.Port < 1 || cfg.Port > 65535:
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	case cfg.Env != EnvProduction && cfg.Env != EnvDevelopment:
		return Config{}, fmt.Errorf("unknown environment %q", cfg.Env)
	case cfg.LowStockThreshold < 0:
		return Config{}, fmt.Errorf("low stock threshold must not be negative")
	case cfg.DatabasePath == "":
		return Config{}, fmt.Errorf("database path is required")
	}
	return cfg, nil
}
