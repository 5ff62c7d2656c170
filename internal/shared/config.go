package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default) | "postgres"
		DSN    string `yaml:"dsn"`    // "./drulift.db"
	} `yaml:"database"`

	Analysis struct {
		Sources        []string `yaml:"sources"` // ["./web/modules/custom"]
		Include        []string `yaml:"include"`
		Exclude        []string `yaml:"exclude"`
		Workers        int      `yaml:"workers"`          // 0 = GOMAXPROCS
		ParseCacheSize int      `yaml:"parse_cache_size"` // lowered files kept between runs
	} `yaml:"analysis"`

	Rules struct {
		Disabled           []string `yaml:"disabled"`
		PluginManagerBases []string `yaml:"plugin_manager_bases"`
	} `yaml:"rules"`

	Baseline struct {
		Path string `yaml:"path"` // "" = no baseline
	} `yaml:"baseline"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`

	Server struct {
		Addr           string        `yaml:"addr"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		SessionTTL     time.Duration `yaml:"session_ttl"`
	} `yaml:"server"`

	Watch struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"watch"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./drulift.db"
	c.Analysis.ParseCacheSize = 2048
	c.Reporting.OutDir = "./reports"
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	c.Server.Addr = ":8080"
	c.Server.SessionTTL = 12 * time.Hour
	c.Watch.Debounce = 500 * time.Millisecond
	return c
}

// LoadConfig reads defaults, then the YAML file at path (if any), then a
// .env file in the working directory, then DRULIFT_* environment variables.
// A missing config file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	if err := applyEnv(&c); err != nil {
		return c, err
	}
	return c, nil
}

func applyEnv(c *Config) error {
	if v := os.Getenv("DRULIFT_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DRULIFT_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("DRULIFT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("DRULIFT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DRULIFT_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("DRULIFT_BASELINE"); v != "" {
		c.Baseline.Path = v
	}
	if v := os.Getenv("DRULIFT_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DRULIFT_DISABLED_RULES"); v != "" {
		c.Rules.Disabled = splitList(v)
	}
	if v := os.Getenv("DRULIFT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("DRULIFT_WORKERS: invalid value %q", v)
		}
		c.Analysis.Workers = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
