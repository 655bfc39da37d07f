// Package pool reuses constructed scene objects between cell loads.
// Construction of content-rich objects is the dominant frame cost when a
// cell brings in hundreds of near-identical instances; after warm-up an
// acquire is a free-list pop.
package pool

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/world_streamer/cache"
	"github.com/mogaika/world_streamer/scene"
	"github.com/mogaika/world_streamer/world"
)

// Prototype is the immutable per-asset construction recipe: parsed geometry
// plus resolved cache handles. Built once per asset id, instances are cheap
// copies of it.
type Prototype struct {
	AssetID   string
	Radius    float32
	Albedo    string
	Geometry  *world.Geometry
	Materials []*cache.Material
}

// PrototypeFunc builds the prototype for an asset never seen before. The
// cell loader wires it to the external parser and the content caches.
type PrototypeFunc func(assetID string) (*Prototype, error)

// Instance is one live pooled object.
type Instance struct {
	AssetID string
	Node    scene.Handle

	proto     *Prototype
	inUse     bool
	idle      bool
	destroyed bool
}

func (i *Instance) Radius() float32 {
	return i.proto.Radius
}

func (i *Instance) Albedo() string {
	return i.proto.Albedo
}

func (i *Instance) Prototype() *Prototype {
	return i.proto
}

type entry struct {
	proto   *Prototype
	free    []*Instance
	inUse   int
	created int
	hits    uint64
	misses  uint64
	max     int
}

type Options struct {
	MaxPerAsset int
	MaxGlobal   int
}

type Pool struct {
	graph *scene.Graph
	store scene.Handle // hidden parent of every idle instance
	build PrototypeFunc
	opts  Options

	entries  map[string]*entry
	resident int
	evicted  uint64

	// idleQueue orders idle instances FIFO-since-release for global cap
	// eviction. Stale records are skipped lazily.
	idleQueue []*Instance
}

func New(graph *scene.Graph, build PrototypeFunc, opts Options) *Pool {
	store := graph.Insert(graph.Root(), "pool-store")
	graph.SetVisible(store, false)
	return &Pool{
		graph:   graph,
		store:   store,
		build:   build,
		opts:    opts,
		entries: make(map[string]*entry),
	}
}

// PreWarm constructs up to count idle instances ahead of first use so the
// first cell referencing the asset pays no instantiation cost. The warm
// count is clamped to the per-asset cap and to the remaining global
// headroom; warming past the cap just to evict the freshest instances
// again would be churn.
func (p *Pool) PreWarm(assetID string, count int) error {
	e, err := p.entry(assetID)
	if err != nil {
		return err
	}
	if count > e.max {
		count = e.max
	}
	if headroom := p.opts.MaxGlobal - p.resident; count-len(e.free) > headroom {
		clamped := len(e.free) + headroom
		log.Printf("[pool] pre-warm %q clamped %d -> %d by global cap %d",
			assetID, count, clamped, p.opts.MaxGlobal)
		count = clamped
	}
	for len(e.free) < count {
		inst := p.instantiate(e)
		p.park(e, inst)
	}
	return nil
}

// Acquire returns a ready instance for the asset, popping the free list on
// a hit and instantiating from the prototype on a miss. It only fails when
// the prototype itself cannot be built (missing asset).
func (p *Pool) Acquire(assetID string) (*Instance, bool, error) {
	e, err := p.entry(assetID)
	if err != nil {
		return nil, false, err
	}

	if n := len(e.free); n != 0 {
		inst := e.free[n-1]
		e.free = e.free[:n-1]
		inst.idle = false
		inst.inUse = true
		e.inUse++
		e.hits++
		return inst, true, nil
	}

	inst := p.instantiate(e)
	inst.inUse = true
	e.inUse++
	e.misses++
	p.enforceGlobalCap()
	return inst, false, nil
}

// Release detaches the instance from wherever the loader parented it,
// resets it to the canonical hidden state and parks it for reuse. Beyond
// the per-asset cap the instance is destroyed instead. Releasing an
// already-released instance is a no-op.
func (p *Pool) Release(inst *Instance) {
	if inst == nil || !inst.inUse || inst.destroyed {
		return
	}
	e := p.entries[inst.AssetID]
	inst.inUse = false
	e.inUse--

	if len(e.free) >= e.max {
		p.destroy(e, inst)
		return
	}
	p.park(e, inst)
}

// ReleaseMany releases a whole batch, equivalent to releasing each member.
// Used on cell unload.
func (p *Pool) ReleaseMany(insts []*Instance) {
	for _, inst := range insts {
		p.Release(inst)
	}
}

func (p *Pool) HitRate(assetID string) float64 {
	e := p.entries[assetID]
	if e == nil {
		return 0
	}
	total := e.hits + e.misses
	if total == 0 {
		return 0
	}
	return float64(e.hits) / float64(total)
}

func (p *Pool) Prototype(assetID string) *Prototype {
	if e := p.entries[assetID]; e != nil {
		return e.proto
	}
	return nil
}

func (p *Pool) Resident() int {
	return p.resident
}

func (p *Pool) entry(assetID string) (*entry, error) {
	if e, ok := p.entries[assetID]; ok {
		return e, nil
	}
	proto, err := p.build(assetID)
	if err != nil {
		return nil, err
	}
	e := &entry{proto: proto, max: p.opts.MaxPerAsset}
	p.entries[assetID] = e
	return e, nil
}

func (p *Pool) instantiate(e *entry) *Instance {
	node := p.graph.Insert(p.store, e.proto.AssetID)
	p.graph.SetVisible(node, false)
	inst := &Instance{
		AssetID: e.proto.AssetID,
		Node:    node,
		proto:   e.proto,
	}
	e.created++
	p.resident++
	return inst
}

func (p *Pool) park(e *entry, inst *Instance) {
	p.graph.Reparent(inst.Node, p.store)
	p.graph.SetTransform(inst.Node, mgl32.Ident4())
	p.graph.SetVisible(inst.Node, false)
	p.graph.SetShadows(inst.Node, true)
	p.graph.SetCollision(inst.Node, true)
	inst.idle = true
	e.free = append(e.free, inst)
	p.idleQueue = append(p.idleQueue, inst)
}

func (p *Pool) destroy(e *entry, inst *Instance) {
	p.graph.Remove(inst.Node)
	inst.destroyed = true
	inst.idle = false
	e.created--
	p.resident--
}

// enforceGlobalCap evicts least-recently-released idle instances until the
// resident count fits the global cap. With every instance in use nothing
// can be evicted and the cap is allowed to overshoot: acquire must succeed.
func (p *Pool) enforceGlobalCap() {
	for p.resident > p.opts.MaxGlobal {
		inst := p.popOldestIdle()
		if inst == nil {
			log.Printf("[pool] global cap %d exceeded with no idle instances (%d resident)",
				p.opts.MaxGlobal, p.resident)
			return
		}
		e := p.entries[inst.AssetID]
		e.free = removeInstance(e.free, inst)
		p.destroy(e, inst)
		p.evicted++
	}
}

func (p *Pool) popOldestIdle() *Instance {
	for len(p.idleQueue) != 0 {
		inst := p.idleQueue[0]
		p.idleQueue = p.idleQueue[1:]
		if inst.idle && !inst.destroyed {
			return inst
		}
	}
	return nil
}

func removeInstance(list []*Instance, inst *Instance) []*Instance {
	for i, v := range list {
		if v == inst {
			last := len(list) - 1
			list[i] = list[last]
			return list[:last]
		}
	}
	return list
}
