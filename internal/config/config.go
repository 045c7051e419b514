package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the two sampling paths: a short pass inside the full report
// and the detailed one-hour run.
const (
	DefaultReportRounds   = 3
	DefaultDetailedRounds = 180
	DefaultTopN           = 10
)

type Config struct {
	Host     string
	User     string
	Password string
	Insecure bool

	OutputPath string
	RowLogPath string

	Rounds int
	TopN   int

	ConnectTimeout time.Duration
	LogLevel       string
	LogJSON        bool
}

// Load reads configuration from the environment, after merging an optional
// .env file. Flags layered on top by the CLI win over everything here.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Host:           env("VHEALTH_HOST", ""),
		User:           env("VHEALTH_USER", ""),
		Password:       os.Getenv("VHEALTH_PASSWORD"),
		Insecure:       envBool("VHEALTH_INSECURE", true),
		OutputPath:     env("VHEALTH_OUTPUT", "vm_health_report.html"),
		RowLogPath:     env("VHEALTH_ROW_LOG", "iops_samples.csv"),
		Rounds:         envInt("VHEALTH_ROUNDS", 0),
		TopN:           envInt("VHEALTH_TOP_N", DefaultTopN),
		ConnectTimeout: envDuration("VHEALTH_CONNECT_TIMEOUT", 30*time.Second),
		LogLevel:       strings.ToLower(env("VHEALTH_LOG_LEVEL", "info")),
		LogJSON:        envBool("VHEALTH_LOG_JSON", false),
	}
}

// Validate checks the fields a run cannot start without. Called after the
// CLI has merged flags and interactive prompts.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("management server address is required")
	}
	if strings.TrimSpace(c.User) == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.New("output path is required")
	}
	if strings.TrimSpace(c.RowLogPath) == "" {
		return errors.New("row log path is required")
	}
	if c.Rounds < 0 {
		return errors.New("rounds must be >= 0")
	}
	if c.TopN <= 0 {
		return errors.New("top-n must be > 0")
	}
	return nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
