package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cell size", func(c *Config) { c.CellSize = 0 }},
		{"negative view distance", func(c *Config) { c.ViewDistance = -1 }},
		{"zero load budget", func(c *Config) { c.LoadBudgetMs = 0 }},
		{"zero lod interval", func(c *Config) { c.UpdateIntervalS = 0 }},
		{"zero neighborhood ticks", func(c *Config) { c.NeighborhoodTicks = 0 }},
		{"zero pool cap", func(c *Config) { c.PoolMaxGlobal = 0 }},
		{"global cap below per-asset", func(c *Config) { c.PoolMaxGlobal = 8; c.PoolMaxPerAsset = 16 }},
		{"zero cache cap", func(c *Config) { c.TextureCacheEntries = 0 }},
		{"unknown encoding", func(c *Config) { c.Encoding = "klingon" }},
	}
	for _, c := range cases {
		cfg := Default()
		c.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: validation passed", c.name)
		}
	}
}

func TestZeroViewDistanceAllowed(t *testing.T) {
	cfg := Default()
	cfg.ViewDistance = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("view distance 0 (single cell) should validate: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamer.yaml")
	body := "cell_size: 128\nview_distance: 3\nload_budget_ms: 2.5\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CellSize != 128 || cfg.ViewDistance != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.LoadBudget() != 2500*time.Microsecond {
		t.Errorf("load budget %v, want 2.5ms", cfg.LoadBudget())
	}
	// untouched fields keep their defaults
	if cfg.PoolMaxGlobal != Default().PoolMaxGlobal {
		t.Errorf("default lost: pool cap %v", cfg.PoolMaxGlobal)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
