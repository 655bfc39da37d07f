package stream

import (
	"github.com/mogaika/world_streamer/cache"
	"github.com/mogaika/world_streamer/lod"
	"github.com/mogaika/world_streamer/pool"
)

// Stats is the read-only snapshot polled by the diagnostics UI and tests.
type Stats struct {
	Ticks          uint64 `json:"ticks"`
	LoadedCells    int    `json:"loaded_cells"`
	PartialCells   int    `json:"partial_cells"`
	PendingLoads   int    `json:"pending_loads"`
	PendingUnloads int    `json:"pending_unloads"`
	StaleDropped   uint64 `json:"stale_dropped"`

	LastLoadMs float64 `json:"last_load_ms"`
	AvgLoadMs  float64 `json:"avg_load_ms"`

	Tiers         map[string]int `json:"lod_tiers"`
	TrackedLOD    int            `json:"lod_tracked"`
	DrawInstances int            `json:"draw_instances"`
	SceneNodes    int            `json:"scene_nodes"`

	Pool      pool.Stats          `json:"pool"`
	Textures  cache.TextureStats  `json:"textures"`
	Materials cache.MaterialStats `json:"materials"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	partial := 0
	for _, st := range e.cells {
		if st.partial {
			partial++
		}
	}

	tiers := make(map[string]int, lod.TierCount)
	for tier, count := range e.lod.TierCounts() {
		tiers[lod.Tier(tier).String()] = count
	}

	s := Stats{
		Ticks:          e.tickCount,
		LoadedCells:    len(e.cells),
		PartialCells:   partial,
		PendingLoads:   e.queue.Len(),
		PendingUnloads: len(e.unloads),
		StaleDropped:   e.staleDropped,
		LastLoadMs:     float64(e.lastLoadDur.Microseconds()) / 1000.0,
		Tiers:          tiers,
		TrackedLOD:     e.lod.Tracked(),
		DrawInstances:  e.draws.Len(),
		SceneNodes:     e.graph.NodeCount(),
		Pool:           e.pool.Stats(),
		Textures:       e.textures.Stats(),
		Materials:      e.materials.Stats(),
	}
	if e.loadsDone != 0 {
		s.AvgLoadMs = float64(e.totalLoadDur.Microseconds()) / 1000.0 / float64(e.loadsDone)
	}
	return s
}
