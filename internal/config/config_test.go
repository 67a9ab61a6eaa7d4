package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Name == "" {
		t.Error("default model name should not be empty")
	}
	if cfg.Cluster.SimilarityThreshold <= 0 || cfg.Cluster.SimilarityThreshold >= 1 {
		t.Errorf("similarity threshold %v out of (0,1)", cfg.Cluster.SimilarityThreshold)
	}
	if cfg.Cluster.TrendMinSamples < 1 {
		t.Error("trend min samples must be at least 1")
	}
	if cfg.Safety.NormalDelay >= cfg.Safety.CarefulDelay {
		t.Error("careful delay should exceed normal delay")
	}
	if cfg.Pipeline.CallTimeout <= 0 {
		t.Error("call timeout must be positive")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	fileCfg := DefaultConfig()
	fileCfg.Model.Name = "test-model"
	fileCfg.Cluster.SimilarityThreshold = 0.7
	data, err := json.Marshal(fileCfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LEADSCOUT_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Name != "test-model" {
		t.Errorf("Model.Name = %q, want test-model", cfg.Model.Name)
	}
	if cfg.Cluster.SimilarityThreshold != 0.7 {
		t.Errorf("SimilarityThreshold = %v, want 0.7", cfg.Cluster.SimilarityThreshold)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LEADSCOUT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("LEADSCOUT_MODEL_MODEL", "env-model")
	t.Setenv("LEADSCOUT_OPENAI_API_KEY", "sk-env")
	t.Setenv("LEADSCOUT_SCHEDULER_TICK_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Name != "env-model" {
		t.Errorf("Model.Name = %q, want env-model", cfg.Model.Name)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Scheduler.TickInterval != 30*time.Second {
		t.Errorf("TickInterval = %v, want 30s", cfg.Scheduler.TickInterval)
	}
}

func TestLoadOpenAIKeyFallback(t *testing.T) {
	t.Setenv("LEADSCOUT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("LEADSCOUT_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-fallback" {
		t.Errorf("APIKey = %q, want sk-fallback", cfg.Providers.OpenAI.APIKey)
	}
}

func TestSchedulerLockPathDefault(t *testing.T) {
	t.Setenv("LEADSCOUT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(cfg.Paths.DataDir, "scheduler.lock")
	if cfg.Scheduler.LockPath != want {
		t.Errorf("LockPath = %q, want %q", cfg.Scheduler.LockPath, want)
	}
}
