package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Get returns the value of an environment variable, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config holds every run setting of the pipeline. It is built once in
// main and passed by reference to the components that need it.
type Config struct {
	DataDir     string `yaml:"data_dir"`
	OutDir      string `yaml:"out_dir"`
	CachePath   string `yaml:"cache_path"`   // sqlite arc-cost cache file
	DatabaseURL string `yaml:"database_url"` // when set, postgres replaces sqlite

	Solvers          []string `yaml:"solvers"` // backend priority order
	TimeLimitSeconds int      `yaml:"time_limit_seconds"`
	MIPGap           float64  `yaml:"mip_gap"`
	FlowEpsilon      float64  `yaml:"flow_epsilon"`

	ExhaustiveFallback   bool `yaml:"exhaustive_fallback"`
	ExhaustiveMaxClients int  `yaml:"exhaustive_max_clients"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		DataDir:              "data",
		OutDir:               filepath.Join("data", "outputs"),
		CachePath:            filepath.Join("data", "arc_cache.db"),
		Solvers:              []string{"highs", "cbc", "glpk"},
		TimeLimitSeconds:     600,
		MIPGap:               0,
		FlowEpsilon:          1e-6,
		ExhaustiveFallback:   true,
		ExhaustiveMaxClients: 8,
	}
}

// Load builds the effective configuration: defaults, then the optional
// YAML file, then environment variables, each layer overriding the last.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// optional file
		case err != nil:
			return Config{}, fmt.Errorf("load config: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("load config: parse %q: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DataDir = Get("DATA_DIR", cfg.DataDir)
	cfg.OutDir = Get("OUT_DIR", cfg.OutDir)
	cfg.CachePath = Get("CACHE_PATH", cfg.CachePath)
	cfg.DatabaseURL = Get("DATABASE_URL", cfg.DatabaseURL)

	if v := os.Getenv("SOLVERS"); v != "" {
		parts := strings.Split(v, ",")
		solvers := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				solvers = append(solvers, p)
			}
		}
		cfg.Solvers = solvers
	}

	if v := os.Getenv("TIME_LIMIT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("load config: parse TIME_LIMIT_SECONDS=%q: %w", v, err)
		}
		cfg.TimeLimitSeconds = n
	}

	if v := os.Getenv("MIP_GAP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("load config: parse MIP_GAP=%q: %w", v, err)
		}
		cfg.MIPGap = f
	}

	if v := os.Getenv("FLOW_EPSILON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("load config: parse FLOW_EPSILON=%q: %w", v, err)
		}
		cfg.FlowEpsilon = f
	}

	if v := os.Getenv("EXHAUSTIVE_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("load config: parse EXHAUSTIVE_FALLBACK=%q: %w", v, err)
		}
		cfg.ExhaustiveFallback = b
	}

	return nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("load config: data_dir must not be empty")
	}
	if strings.TrimSpace(c.OutDir) == "" {
		return errors.New("load config: out_dir must not be empty")
	}
	if len(c.Solvers) == 0 {
		return errors.New("load config: solver list must not be empty")
	}
	if c.TimeLimitSeconds <= 0 {
		return fmt.Errorf("load config: time_limit_seconds must be positive, got %d", c.TimeLimitSeconds)
	}
	if c.FlowEpsilon < 0 {
		return fmt.Errorf("load config: flow_epsilon must not be negative, got %g", c.FlowEpsilon)
	}
	return nil
}

// InputsDir is where the run reads its CSV/JSON inputs.
func (c Config) InputsDir() string { return filepath.Join(c.DataDir, "inputs") }

// TablesDir is where exported solution tables are written.
func (c Config) TablesDir() string { return filepath.Join(c.OutDir, "tables") }

// VerificationDir is where verification CSVs are written.
func (c Config) VerificationDir() string { return filepath.Join(c.OutDir, "verification") }

// TimeLimit converts the configured solve limit to a duration.
func (c Config) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds) * time.Second
}
