// Package lod keeps every live object in one of four detail tiers driven by
// viewer distance. Updates run on a coarse interval, not per frame.
package lod

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/world_streamer/scene"
	"github.com/mogaika/world_streamer/utils"
)

type Config struct {
	// Tier boundaries in world units, before per-object size scaling.
	FullDistance      float32
	LowDistance       float32
	BillboardDistance float32

	// ReferenceSize normalizes object size hints: thresholds are scaled
	// by clamp(size/ReferenceSize, MinScale, MaxScale) so a crate culls
	// at tens of meters while a building persists for hundreds.
	ReferenceSize float32
	MinScale      float32
	MaxScale      float32
}

func DefaultConfig() Config {
	return Config{
		FullDistance:      60,
		LowDistance:       140,
		BillboardDistance: 320,
		ReferenceSize:     2,
		MinScale:          0.25,
		MaxScale:          8,
	}
}

type entry struct {
	handle    scene.Handle
	size      float32
	scale     float32
	albedo    string
	tier      Tier
	billboard *billboard
}

type Manager struct {
	graph   *scene.Graph
	draws   *scene.DrawList
	cfg     Config
	entries map[scene.Handle]*entry
	counts  [TierCount]int
	dropped uint64 // stale handles discarded during update
}

func NewManager(graph *scene.Graph, draws *scene.DrawList, cfg Config) *Manager {
	return &Manager{
		graph:   graph,
		draws:   draws,
		cfg:     cfg,
		entries: make(map[scene.Handle]*entry),
	}
}

// Register starts tracking an object that just entered a loaded cell. The
// object is assumed to be in its scene-graph default full-detail state.
func (m *Manager) Register(h scene.Handle, size float32, albedo string) {
	if _, ok := m.entries[h]; ok {
		return
	}
	if size <= 0 {
		size = m.cfg.ReferenceSize
	}
	m.entries[h] = &entry{
		handle: h,
		size:   size,
		scale:  utils.Clamp32(size/m.cfg.ReferenceSize, m.cfg.MinScale, m.cfg.MaxScale),
		albedo: albedo,
		tier:   TierFull,
	}
	m.counts[TierFull]++
}

// Unregister releases tracking (and any billboard handle) when the object
// leaves its cell or returns to the pool.
func (m *Manager) Unregister(h scene.Handle) {
	e, ok := m.entries[h]
	if !ok {
		return
	}
	m.drop(e)
}

// Update recomputes every object's tier against the viewpoint and performs
// the transitions. Tracked objects whose nodes were freed elsewhere fail
// the generation check and are dropped, never dereferenced.
func (m *Manager) Update(viewpoint mgl32.Vec3) {
	for _, e := range m.entries {
		if !m.graph.Alive(e.handle) {
			m.drop(e)
			m.dropped++
			continue
		}

		pos := utils.TranslationOf(m.graph.Transform(e.handle))
		d := viewpoint.Sub(pos).Len()

		target := m.tierFor(d, e.scale)
		if target != e.tier {
			m.transition(e, target, pos, viewpoint)
		} else if e.tier == TierBillboard {
			e.billboard.setTransform(m.billboardTransform(e, pos, viewpoint))
		}
	}
}

func (m *Manager) tierFor(d, scale float32) Tier {
	switch {
	case d <= m.cfg.FullDistance*scale:
		return TierFull
	case d <= m.cfg.LowDistance*scale:
		return TierLow
	case d <= m.cfg.BillboardDistance*scale:
		return TierBillboard
	default:
		return TierCulled
	}
}

func (m *Manager) transition(e *entry, target Tier, pos, viewpoint mgl32.Vec3) {
	// Leaving billboard always releases the draw handle first.
	if e.billboard != nil && target != TierBillboard {
		e.billboard.release()
		e.billboard = nil
	}

	switch target {
	case TierFull:
		m.graph.SetVisible(e.handle, true)
		m.graph.SetShadows(e.handle, true)
		m.graph.SetCollision(e.handle, true)
	case TierLow:
		m.graph.SetVisible(e.handle, true)
		m.graph.SetShadows(e.handle, false)
		m.graph.SetCollision(e.handle, false)
	case TierBillboard:
		m.graph.SetVisible(e.handle, false)
		m.graph.SetCollision(e.handle, false)
		if e.billboard == nil {
			e.billboard = newBillboard(m.draws, e.albedo, m.billboardTransform(e, pos, viewpoint))
		}
	case TierCulled:
		m.graph.SetVisible(e.handle, false)
		m.graph.SetCollision(e.handle, false)
	}

	m.counts[e.tier]--
	m.counts[target]++
	e.tier = target
}

// billboardTransform yaws the impostor quad toward the viewer and scales it
// to the object's bounding size. Refreshed per LOD tick only.
func (m *Manager) billboardTransform(e *entry, pos, viewpoint mgl32.Vec3) mgl32.Mat4 {
	yaw := float32(math.Atan2(
		float64(viewpoint.X()-pos.X()),
		float64(viewpoint.Z()-pos.Z())))
	return mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).
		Mul4(mgl32.HomogRotate3DY(yaw)).
		Mul4(mgl32.Scale3D(e.size, e.size, e.size))
}

func (m *Manager) drop(e *entry) {
	if e.billboard != nil {
		e.billboard.release()
		e.billboard = nil
	}
	m.counts[e.tier]--
	delete(m.entries, e.handle)
}

func (m *Manager) Tier(h scene.Handle) (Tier, bool) {
	if e, ok := m.entries[h]; ok {
		return e.tier, true
	}
	return TierCulled, false
}

// HasDrawHandle reports whether the object currently owns a billboard draw
// instance. True iff the object sits in the billboard tier.
func (m *Manager) HasDrawHandle(h scene.Handle) bool {
	e, ok := m.entries[h]
	return ok && e.billboard != nil && !e.billboard.released
}

func (m *Manager) TierCounts() [TierCount]int {
	return m.counts
}

func (m *Manager) Tracked() int {
	return len(m.entries)
}
