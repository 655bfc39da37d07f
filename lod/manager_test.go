package lod

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/world_streamer/scene"
)

func testManager() (*Manager, *scene.Graph, *scene.DrawList) {
	g := scene.NewGraph()
	d := scene.NewDrawList()
	return NewManager(g, d, DefaultConfig()), g, d
}

func placeObject(g *scene.Graph, x float32) scene.Handle {
	h := g.Insert(g.Root(), "obj")
	g.SetTransform(h, mgl32.Translate3D(x, 0, 0))
	return h
}

// sweep the viewer away from and back toward one reference-sized object,
// checking the tier and the draw-handle invariant at every step
func TestTierTransitions(t *testing.T) {
	m, g, d := testManager()
	h := placeObject(g, 0)
	m.Register(h, 2, "rock_albedo")

	steps := []struct {
		dist float32
		want Tier
	}{
		{10, TierFull},
		{100, TierLow},
		{200, TierBillboard},
		{1000, TierCulled},
		{200, TierBillboard},
		{100, TierLow},
		{10, TierFull},
	}
	for _, step := range steps {
		m.Update(mgl32.Vec3{step.dist, 0, 0})

		tier, ok := m.Tier(h)
		if !ok {
			t.Fatalf("object lost at distance %v", step.dist)
		}
		if tier != step.want {
			t.Errorf("distance %v: tier %v, want %v", step.dist, tier, step.want)
		}
		if got := m.HasDrawHandle(h); got != (step.want == TierBillboard) {
			t.Errorf("distance %v: draw handle %v in tier %v", step.dist, got, tier)
		}
		wantDraws := 0
		if step.want == TierBillboard {
			wantDraws = 1
		}
		if d.Len() != wantDraws {
			t.Errorf("distance %v: %d draw instances, want %d", step.dist, d.Len(), wantDraws)
		}
	}
}

func TestTierNodeState(t *testing.T) {
	m, g, _ := testManager()
	h := placeObject(g, 0)
	m.Register(h, 2, "")

	cases := []struct {
		dist                        float32
		visible, shadows, collision bool
	}{
		{10, true, true, true},
		{100, true, false, false},
		{200, false, false, false},
		{1000, false, false, false},
	}
	for _, c := range cases {
		m.Update(mgl32.Vec3{c.dist, 0, 0})
		if g.Visible(h) != c.visible || g.Shadows(h) != c.shadows || g.Collision(h) != c.collision {
			t.Errorf("distance %v: visible=%v shadows=%v collision=%v, want %v/%v/%v",
				c.dist, g.Visible(h), g.Shadows(h), g.Collision(h), c.visible, c.shadows, c.collision)
		}
	}
}

// a large object keeps detail at distances where a small one is culled
func TestSizeScalesThresholds(t *testing.T) {
	m, g, _ := testManager()
	small := placeObject(g, 0)
	big := placeObject(g, 0)
	m.Register(small, 2, "")  // scale 1
	m.Register(big, 8, "")    // scale 4

	m.Update(mgl32.Vec3{200, 0, 0})

	if tier, _ := m.Tier(small); tier != TierBillboard {
		t.Errorf("small object at 200: %v, want %v", tier, TierBillboard)
	}
	if tier, _ := m.Tier(big); tier != TierFull {
		t.Errorf("big object at 200: %v, want %v", tier, TierFull)
	}
}

func TestScaleClamp(t *testing.T) {
	m, g, _ := testManager()
	tiny := placeObject(g, 0)
	m.Register(tiny, 0.01, "") // clamped to MinScale 0.25

	// 60 * 0.25 = 15, so inside 15 is still full detail
	m.Update(mgl32.Vec3{14, 0, 0})
	if tier, _ := m.Tier(tiny); tier != TierFull {
		t.Errorf("tiny object at 14: %v, want %v", tier, TierFull)
	}
	m.Update(mgl32.Vec3{16, 0, 0})
	if tier, _ := m.Tier(tiny); tier == TierFull {
		t.Error("tiny object kept full detail past its clamped threshold")
	}
}

func TestUnregisterReleasesBillboard(t *testing.T) {
	m, g, d := testManager()
	h := placeObject(g, 0)
	m.Register(h, 2, "")

	m.Update(mgl32.Vec3{200, 0, 0})
	if d.Len() != 1 {
		t.Fatalf("draw instances %d, want 1", d.Len())
	}

	m.Unregister(h)
	if d.Len() != 0 {
		t.Error("billboard survived unregister")
	}
	if m.Tracked() != 0 {
		t.Errorf("tracked %d after unregister", m.Tracked())
	}
}

func TestStaleHandleDropped(t *testing.T) {
	m, g, d := testManager()
	h := placeObject(g, 0)
	m.Register(h, 2, "")
	m.Update(mgl32.Vec3{200, 0, 0}) // owns a billboard

	// the node is freed behind the manager's back
	g.Remove(h)
	m.Update(mgl32.Vec3{200, 0, 0})

	if m.Tracked() != 0 {
		t.Errorf("tracked %d after node removal", m.Tracked())
	}
	if d.Len() != 0 {
		t.Error("billboard leaked for a dead node")
	}
	if m.dropped != 1 {
		t.Errorf("dropped %d, want 1", m.dropped)
	}
}

func TestBillboardFacesViewer(t *testing.T) {
	m, g, d := testManager()
	h := placeObject(g, 0)
	m.Register(h, 2, "")

	m.Update(mgl32.Vec3{200, 0, 0})
	var first mgl32.Mat4
	d.ForEach(func(_ scene.DrawID, inst scene.DrawInstance) { first = inst.Transform })

	// same tier, new viewer direction: the quad must re-orient
	m.Update(mgl32.Vec3{0, 0, 200})
	var second mgl32.Mat4
	d.ForEach(func(_ scene.DrawID, inst scene.DrawInstance) { second = inst.Transform })

	if first == second {
		t.Error("billboard transform not refreshed for a moved viewer")
	}
}

func TestTierCountsConsistent(t *testing.T) {
	m, g, _ := testManager()
	for _, x := range []float32{0, 100, 200, 500} {
		h := placeObject(g, x)
		m.Register(h, 2, "")
	}
	m.Update(mgl32.Vec3{0, 0, 0}) // one object per tier

	counts := m.TierCounts()
	want := [TierCount]int{1, 1, 1, 1}
	if counts != want {
		t.Errorf("tier counts %v, want %v", counts, want)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != m.Tracked() {
		t.Errorf("counts sum %d != tracked %d", total, m.Tracked())
	}
}
