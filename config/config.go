package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the streaming engine. All durations that
// bound per-frame work are wall-clock; validation rejects values that would
// make the scheduler spin or never load anything.
type Config struct {
	// CellSize is the edge length of one exterior cell in world units.
	CellSize float32 `yaml:"cell_size"`

	// ViewDistance is the cell radius of the streamed neighborhood:
	// a value of 2 keeps a 5x5 square of cells resident.
	ViewDistance int `yaml:"view_distance"`

	// LoadBudgetMs bounds the wall time one tick may spend draining the
	// load/unload queues. A cell whose load started in budget finishes.
	LoadBudgetMs float64 `yaml:"load_budget_ms"`

	// UpdateIntervalS is the interval between LOD recomputations.
	UpdateIntervalS float64 `yaml:"update_interval_s"`

	// NeighborhoodTicks forces a full neighborhood recomputation every N
	// ticks even when the viewpoint stays inside one cell.
	NeighborhoodTicks int `yaml:"neighborhood_ticks"`

	PoolMaxPerAsset int `yaml:"pool_max_per_asset"`
	PoolMaxGlobal   int `yaml:"pool_max_global"`

	TextureCacheEntries  int `yaml:"texture_cache_entries"`
	MaterialCacheEntries int `yaml:"material_cache_entries"`

	// DiskCacheDir persists decoded textures between runs. Empty disables
	// the disk tier.
	DiskCacheDir string `yaml:"disk_cache_dir"`

	// Encoding names the code page of fixed-width text fields in legacy
	// cell records, see SetEncoding.
	Encoding string `yaml:"encoding"`
}

func Default() *Config {
	return &Config{
		CellSize:             64.0,
		ViewDistance:         2,
		LoadBudgetMs:         4.0,
		UpdateIntervalS:      0.1,
		NeighborhoodTicks:    30,
		PoolMaxPerAsset:      64,
		PoolMaxGlobal:        2048,
		TextureCacheEntries:  256,
		MaterialCacheEntries: 512,
	}
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read config %q", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse config %q", path)
	}
	return cfg, nil
}

// Validate is the only place configuration errors are fatal; everything past
// this point treats the config as trusted.
func (c *Config) Validate() error {
	if c.CellSize <= 0 {
		return errors.Errorf("Non-positive cell size %v", c.CellSize)
	}
	if c.ViewDistance < 0 {
		return errors.Errorf("Negative view distance %v", c.ViewDistance)
	}
	if c.LoadBudgetMs <= 0 {
		return errors.Errorf("Non-positive load budget %vms", c.LoadBudgetMs)
	}
	if c.UpdateIntervalS <= 0 {
		return errors.Errorf("Non-positive lod update interval %vs", c.UpdateIntervalS)
	}
	if c.NeighborhoodTicks <= 0 {
		return errors.Errorf("Non-positive neighborhood refresh interval %v", c.NeighborhoodTicks)
	}
	if c.PoolMaxPerAsset <= 0 || c.PoolMaxGlobal <= 0 {
		return errors.Errorf("Non-positive pool caps %v/%v", c.PoolMaxPerAsset, c.PoolMaxGlobal)
	}
	if c.PoolMaxGlobal < c.PoolMaxPerAsset {
		return errors.Errorf("Global pool cap %v below per-asset cap %v", c.PoolMaxGlobal, c.PoolMaxPerAsset)
	}
	if c.TextureCacheEntries <= 0 || c.MaterialCacheEntries <= 0 {
		return errors.Errorf("Non-positive cache caps %v/%v", c.TextureCacheEntries, c.MaterialCacheEntries)
	}
	if c.Encoding != "" {
		if err := SetEncoding(c.Encoding); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) LoadBudget() time.Duration {
	return time.Duration(c.LoadBudgetMs * float64(time.Millisecond))
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalS * float64(time.Second))
}
