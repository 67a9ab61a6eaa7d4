package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".leadscout"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("LEADSCOUT_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("LEADSCOUT_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

// Load reads the config file (if present), then overlays environment
// variables per group. Missing file means defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Override with environment variables for each group
	envconfig.Process("LEADSCOUT_PATHS", &cfg.Paths)
	envconfig.Process("LEADSCOUT_MODEL", &cfg.Model)
	envconfig.Process("LEADSCOUT_OPENAI", &cfg.Providers.OpenAI)
	envconfig.Process("LEADSCOUT_SOURCE", &cfg.Source)
	envconfig.Process("LEADSCOUT_ENRICHMENT", &cfg.Enrichment)
	envconfig.Process("LEADSCOUT_PIPELINE", &cfg.Pipeline)
	envconfig.Process("LEADSCOUT_CLUSTER", &cfg.Cluster)
	envconfig.Process("LEADSCOUT_SAFETY", &cfg.Safety)
	envconfig.Process("LEADSCOUT_SCHEDULER", &cfg.Scheduler)

	// Fallbacks for API keys
	if cfg.Providers.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Providers.OpenAI.APIKey = key
		}
	}
	if cfg.Enrichment.APIKey == "" {
		if key := os.Getenv("BRAVE_API_KEY"); key != "" {
			cfg.Enrichment.APIKey = key
		}
	}

	expandHome(&cfg.Paths.DataDir)
	expandHome(&cfg.Scheduler.LockPath)

	if cfg.Scheduler.LockPath == "" {
		cfg.Scheduler.LockPath = filepath.Join(cfg.Paths.DataDir, "scheduler.lock")
	}

	return cfg, nil
}

// Save writes the config to the default path, creating the directory if
// needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DatabasePath returns the SQLite database location under the data dir.
func DatabasePath(cfg *Config) string {
	return filepath.Join(cfg.Paths.DataDir, "leadscout.db")
}

func expandHome(p *string) {
	if strings.HasPrefix(*p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			*p = filepath.Join(home, (*p)[1:])
		}
	}
}
