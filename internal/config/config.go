package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the AM:PM portal client.
type Config struct {
	API       APIConfig
	Session   SessionConfig
	GitHub    GitHubConfig
	DevServer DevServerConfig
	Metrics   MetricsConfig
}

// APIConfig parameterizes the portal REST backend connection.
type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RefreshTimeout time.Duration
}

// SessionConfig controls where the persisted session state lives.
type SessionConfig struct {
	StateDir string
}

// ProfilePath returns the location of the persisted user profile.
func (s SessionConfig) ProfilePath() string {
	return filepath.Join(s.StateDir, "profile.json")
}

// GitHubConfig carries credentials for showcase README lookups.
type GitHubConfig struct {
	Token string
}

// DevServerConfig parameterizes the local development portal server.
type DevServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	AccessSecret    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// Address returns the listen address in host:port form.
func (d DevServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying
// defaults. A .env file in the working directory is merged in first.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		API: APIConfig{
			BaseURL:        strings.TrimRight(getString("AMPM_API_BASE", "https://ampm-test.duckdns.org"), "/"),
			Timeout:        getDuration("AMPM_API_TIMEOUT", 15*time.Second),
			RefreshTimeout: getDuration("AMPM_API_REFRESH_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			StateDir: getString("AMPM_STATE_DIR", defaultStateDir()),
		},
		GitHub: GitHubConfig{
			Token: getString("AMPM_GITHUB_TOKEN", ""),
		},
		DevServer: loadDevServerConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("AMPM_METRICS_PATH", "/metrics"),
		},
	}

	if cfg.API.BaseURL == "" {
		return Config{}, fmt.Errorf("AMPM_API_BASE must not be empty")
	}

	return cfg, nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ampm")
	}
	return ".ampm"
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadDevServerConfig() DevServerConfig {
	cost := getInt("AMPM_DEV_BCRYPT_COST", 10)
	if cost < 4 || cost > 31 {
		cost = 10
	}

	return DevServerConfig{
		Host:            getString("AMPM_DEV_HOST", "127.0.0.1"),
		Port:            getInt("AMPM_DEV_PORT", 8080),
		ReadTimeout:     getDuration("AMPM_DEV_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDuration("AMPM_DEV_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDuration("AMPM_DEV_IDLE_TIMEOUT", 60*time.Second),
		AccessSecret:    getString("AMPM_DEV_JWT_SECRET", "dev-only-not-a-real-secret"),
		AccessTokenTTL:  getDuration("AMPM_DEV_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("AMPM_DEV_REFRESH_TOKEN_TTL", 720*time.Hour),
		BcryptCost:      cost,
	}
}
