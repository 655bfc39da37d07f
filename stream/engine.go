// Package stream is the cell streaming scheduler: it keeps the neighborhood
// of cells around the viewpoint resident, draining load and unload work
// under a per-tick wall-clock budget.
//
// Everything here runs on the host's frame goroutine. The engine mutex only
// serializes that loop against the diagnostics HTTP handlers; no engine
// operation blocks mid-cell-load.
package stream

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/cache"
	"github.com/mogaika/world_streamer/config"
	"github.com/mogaika/world_streamer/lod"
	"github.com/mogaika/world_streamer/pool"
	"github.com/mogaika/world_streamer/scene"
	"github.com/mogaika/world_streamer/world"
)

type Engine struct {
	mu sync.Mutex

	cfg *config.Config
	src world.Source

	graph     *scene.Graph
	draws     *scene.DrawList
	pool      *pool.Pool
	textures  *cache.TextureCache
	materials *cache.MaterialCache
	lod       *lod.Manager

	worldRoot scene.Handle

	cells        map[world.CellKey]*cellState
	queue        loadQueue
	queued       map[world.CellKey]bool
	unloads      []world.CellKey
	unloadQueued map[world.CellKey]bool
	seq          uint64

	viewPos  mgl32.Vec3
	viewCell world.CellKey
	hasView  bool

	tickCount    uint64
	lodAccum     time.Duration
	staleDropped uint64

	lastLoadDur  time.Duration
	totalLoadDur time.Duration
	loadsDone    uint64

	// now is swappable so budget behavior is testable with a fake clock.
	now func() time.Time
}

func NewEngine(cfg *config.Config, src world.Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Bad engine config")
	}

	graph := scene.NewGraph()
	draws := scene.NewDrawList()

	e := &Engine{
		cfg:          cfg,
		src:          src,
		graph:        graph,
		draws:        draws,
		textures:     cache.NewTextureCache(src.OpenTexture, cfg.TextureCacheEntries, cfg.DiskCacheDir),
		cells:        make(map[world.CellKey]*cellState),
		queued:       make(map[world.CellKey]bool),
		unloadQueued: make(map[world.CellKey]bool),
		now:          time.Now,
	}
	e.materials = cache.NewMaterialCache(e.textures, cfg.MaterialCacheEntries)
	e.pool = pool.New(graph, e.buildPrototype, pool.Options{
		MaxPerAsset: cfg.PoolMaxPerAsset,
		MaxGlobal:   cfg.PoolMaxGlobal,
	})
	e.lod = lod.NewManager(graph, draws, lod.DefaultConfig())
	e.worldRoot = graph.Insert(graph.Root(), "world")
	return e, nil
}

// SetViewpoint feeds the camera position; crossing a cell boundary triggers
// a neighborhood recomputation on the spot.
func (e *Engine) SetViewpoint(pos mgl32.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.viewPos = pos
	cell := e.cellOf(pos)
	if !e.hasView || cell != e.viewCell {
		e.viewCell = cell
		e.hasView = true
		e.recomputeNeighborhood()
	}
}

// Tick does one frame's worth of streaming work. Loads drain strictly in
// ascending distance order; unloads only run once the load queue is empty.
// The budget is advisory at cell granularity: a load that starts in budget
// runs to completion.
func (e *Engine) Tick(dt time.Duration, budget time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickCount++

	// The full neighborhood walk is costlier than the drain, so between
	// boundary crossings it reruns only on a coarse interval.
	if e.hasView && e.tickCount%uint64(e.cfg.NeighborhoodTicks) == 0 {
		e.recomputeNeighborhood()
	}

	deadline := e.now().Add(budget)

	for e.queue.Len() != 0 && e.now().Before(deadline) {
		req := e.queue.Pop()
		delete(e.queued, req.key)

		// The viewpoint may have moved on while the request waited;
		// loading a cell just to unload it would waste the budget.
		if !e.inNeighborhood(req.key) {
			e.staleDropped++
			continue
		}
		if _, loaded := e.cells[req.key]; loaded {
			continue
		}
		e.loadCellLocked(req.key)
	}

	if e.queue.Len() == 0 {
		for len(e.unloads) != 0 && e.now().Before(deadline) {
			key := e.unloads[0]
			e.unloads = e.unloads[1:]
			delete(e.unloadQueued, key)
			if e.inNeighborhood(key) {
				continue // came back into range while queued
			}
			e.unloadCellLocked(key)
		}
	}

	e.lodAccum += dt
	if e.hasView && e.lodAccum >= e.cfg.UpdateInterval() {
		e.lodAccum = 0
		e.lod.Update(e.viewPos)
	}
}

// Close unloads every resident cell and drops all queued work. Used when
// the viewpoint is unregistered.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key := range e.cells {
		e.unloadCellLocked(key)
	}
	e.queue.Clear()
	e.queued = make(map[world.CellKey]bool)
	e.unloads = nil
	e.unloadQueued = make(map[world.CellKey]bool)
	e.hasView = false
}

func (e *Engine) cellOf(pos mgl32.Vec3) world.CellKey {
	size := float64(e.cfg.CellSize)
	return world.ExteriorKey(
		int(math.Floor(float64(pos.X())/size)),
		int(math.Floor(float64(pos.Z())/size)))
}

func (e *Engine) inNeighborhood(key world.CellKey) bool {
	if key.IsInterior() {
		// interiors load explicitly, the neighborhood never owns them
		return true
	}
	if !e.hasView {
		return false
	}
	dx := key.X - e.viewCell.X
	dz := key.Z - e.viewCell.Z
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	r := e.cfg.ViewDistance
	return dx <= r && dz <= r
}

// recomputeNeighborhood rebuilds the wanted cell set around the viewpoint
// cell, enqueueing loads ordered by squared grid distance and queueing
// drop-outs for unload.
func (e *Engine) recomputeNeighborhood() {
	r := e.cfg.ViewDistance

	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			key := world.ExteriorKey(e.viewCell.X+dx, e.viewCell.Z+dz)
			if _, loaded := e.cells[key]; loaded {
				continue
			}
			if e.queued[key] {
				continue
			}
			e.seq++
			e.queue.Push(loadRequest{
				key:      key,
				priority: int64(dx*dx + dz*dz),
				seq:      e.seq,
			})
			e.queued[key] = true
		}
	}

	for key := range e.cells {
		if key.IsInterior() || e.inNeighborhood(key) || e.unloadQueued[key] {
			continue
		}
		e.unloads = append(e.unloads, key)
		e.unloadQueued[key] = true
	}
}

// PendingLoads returns queued cell keys in pop order.
func (e *Engine) PendingLoads() []world.CellKey {
	e.mu.Lock()
	defer e.mu.Unlock()

	reqs := e.queue.snapshot()
	keys := make([]world.CellKey, len(reqs))
	for i, req := range reqs {
		keys[i] = req.key
	}
	return keys
}

func (e *Engine) PendingUnloads() []world.CellKey {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]world.CellKey, len(e.unloads))
	copy(out, e.unloads)
	return out
}

// View runs fn with the engine lock held; diagnostics handlers use it to
// walk live state without racing the frame loop.
func (e *Engine) View(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

func (e *Engine) Graph() *scene.Graph           { return e.graph }
func (e *Engine) Draws() *scene.DrawList        { return e.draws }
func (e *Engine) Pool() *pool.Pool              { return e.pool }
func (e *Engine) LOD() *lod.Manager             { return e.lod }
func (e *Engine) Textures() *cache.TextureCache { return e.textures }
func (e *Engine) Materials() *cache.MaterialCache {
	return e.materials
}
