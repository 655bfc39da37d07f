package stream

import (
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/cache"
	"github.com/mogaika/world_streamer/pool"
	"github.com/mogaika/world_streamer/scene"
	"github.com/mogaika/world_streamer/world"
)

// cellState tracks one resident cell. A cell whose parse failed is still
// recorded here with Partial set, so it is never re-enqueued.
type cellState struct {
	key      world.CellKey
	root     scene.Handle
	objects  []*pool.Instance
	partial  bool
	duration time.Duration
	result   LoadResult
}

// LoadResult summarizes one cell load for statistics and tests.
type LoadResult struct {
	Loaded      int `json:"loaded"`
	Failed      int `json:"failed"`
	FromPool    int `json:"from_pool"`
	FromScratch int `json:"from_scratch"`
}

// buildPrototype is the pool's construction path: parse the asset through
// the external converter and resolve its materials through the content
// caches. Runs once per asset id; every later acquire reuses the result.
func (e *Engine) buildPrototype(assetID string) (*pool.Prototype, error) {
	spec, err := e.src.ParseAsset(assetID)
	if err != nil {
		return nil, errors.Wrapf(err, "Asset %q", assetID)
	}

	materials := make([]*cache.Material, 0, len(spec.Materials))
	for i := range spec.Materials {
		mat, err := e.materials.GetOrCreate(spec.Materials[i])
		if err != nil {
			if world.IsNotFound(err) {
				// a missing texture degrades the material, not the asset
				log.Printf("[stream] asset %q: skipping material %d: %v", assetID, i, err)
				continue
			}
			return nil, err
		}
		materials = append(materials, mat)
	}

	return &pool.Prototype{
		AssetID:   assetID,
		Radius:    spec.Radius,
		Albedo:    spec.Albedo(),
		Geometry:  spec.Geometry,
		Materials: materials,
	}, nil
}

// LoadCell loads the cell synchronously, outside the budgeted queue. Used
// for interiors and by tooling; loading an already-loaded cell is a no-op.
func (e *Engine) LoadCell(key world.CellKey) LoadResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadCellLocked(key)
}

// UnloadCell is the reverse path, idempotent the same way.
func (e *Engine) UnloadCell(key world.CellKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloadCellLocked(key)
}

// LoadedCells returns resident cell keys, partial ones included.
func (e *Engine) LoadedCells() []world.CellKey {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]world.CellKey, 0, len(e.cells))
	for key := range e.cells {
		keys = append(keys, key)
	}
	return keys
}

// CellInstances returns the live pooled instances of a loaded cell. Callers
// off the frame goroutine must wrap it in View.
func (e *Engine) CellInstances(key world.CellKey) []*pool.Instance {
	st := e.cells[key]
	if st == nil {
		return nil
	}
	out := make([]*pool.Instance, len(st.objects))
	copy(out, st.objects)
	return out
}

func (e *Engine) loadCellLocked(key world.CellKey) LoadResult {
	if _, ok := e.cells[key]; ok {
		return LoadResult{}
	}

	start := e.now()
	st := &cellState{key: key}
	e.cells[key] = st

	cell, err := e.src.ParseCell(key)
	if err != nil {
		// Marked loaded anyway: re-enqueueing a broken cell every
		// neighborhood pass would loop forever.
		st.partial = true
		log.Printf("[stream] cell %v failed to parse: %v", key, err)
		e.finishLoad(st, start)
		return st.result
	}

	st.root = e.graph.Insert(e.worldRoot, "cell:"+key.String())

	for i := range cell.Objects {
		ref := &cell.Objects[i]

		inst, hit, err := e.pool.Acquire(ref.Asset)
		if err != nil {
			log.Printf("[stream] cell %v: skipping object %q: %v", key, ref.Asset, err)
			st.partial = true
			st.result.Failed++
			continue
		}

		e.graph.Reparent(inst.Node, st.root)
		e.graph.SetTransform(inst.Node, ref.Transform())
		e.graph.SetVisible(inst.Node, true)

		size := inst.Radius()
		if ref.Scale > 0 {
			size *= ref.Scale
		}
		e.lod.Register(inst.Node, size, inst.Albedo())

		st.objects = append(st.objects, inst)
		st.result.Loaded++
		if hit {
			st.result.FromPool++
		} else {
			st.result.FromScratch++
		}
	}

	if cell.Terrain != nil {
		terrain := e.graph.Insert(st.root, "terrain:"+key.String())
		e.graph.SetPayload(terrain, cell.Terrain)
	}

	e.finishLoad(st, start)
	return st.result
}

func (e *Engine) finishLoad(st *cellState, start time.Time) {
	st.duration = e.now().Sub(start)
	e.lastLoadDur = st.duration
	e.totalLoadDur += st.duration
	e.loadsDone++
}

func (e *Engine) unloadCellLocked(key world.CellKey) {
	st := e.cells[key]
	if st == nil {
		return
	}

	// Instances park under the pool store before the cell root goes away;
	// the other order would destroy them with the subtree.
	e.pool.ReleaseMany(st.objects)
	for _, inst := range st.objects {
		e.lod.Unregister(inst.Node)
	}
	e.graph.Remove(st.root)
	delete(e.cells, key)
}
