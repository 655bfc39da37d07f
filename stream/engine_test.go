package stream

import (
	"io"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/config"
	"github.com/mogaika/world_streamer/world"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// fakeSource produces deterministic cells with one object per entry of
// assets, advancing an optional fake clock by cellCost per parsed cell.
type fakeSource struct {
	clock    *fakeClock
	cellCost time.Duration
	assets   []string
	missing  map[string]bool
	badCells map[world.CellKey]bool
	parses   int
}

func (s *fakeSource) ParseCell(key world.CellKey) (*world.Cell, error) {
	s.parses++
	if s.clock != nil {
		s.clock.advance(s.cellCost)
	}
	if s.badCells[key] {
		return nil, errors.Errorf("corrupt cell %v", key)
	}
	cell := &world.Cell{Key: key}
	base := mgl32.Vec3{float32(key.X) * 64, 0, float32(key.Z) * 64}
	for i, asset := range s.assets {
		cell.Objects = append(cell.Objects, world.ObjectRef{
			Asset:    asset,
			Position: base.Add(mgl32.Vec3{float32(i) * 4, 0, 0}),
			Scale:    1,
		})
	}
	return cell, nil
}

func (s *fakeSource) ParseAsset(id string) (*world.AssetSpec, error) {
	if s.missing[id] {
		return nil, errors.Wrapf(world.ErrNotFound, "Asset %q", id)
	}
	return &world.AssetSpec{
		Name:      id,
		Geometry:  &world.Geometry{Positions: []float32{0, 0, 0}},
		Materials: []world.MaterialSpec{{Tint: [4]float32{1, 1, 1, 1}}},
		Radius:    1,
	}, nil
}

func (s *fakeSource) OpenTexture(path string) (io.ReadCloser, error) {
	return nil, errors.Wrapf(world.ErrNotFound, "File %q", path)
}

func newTestEngine(t *testing.T, src *fakeSource) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.DiskCacheDir = ""
	e, err := NewEngine(cfg, src)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func chebyshev(a, b world.CellKey) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	if dz > dx {
		return dz
	}
	return dx
}

func gridDist2(a, b world.CellKey) int {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return dx*dx + dz*dz
}

func TestNeighborhoodEnqueueOrder(t *testing.T) {
	src := &fakeSource{assets: []string{"rock"}}
	e := newTestEngine(t, src)

	// middle of cell (0,0) with the default 64-unit cells
	e.SetViewpoint(mgl32.Vec3{32, 0, 32})

	pending := e.PendingLoads()
	if len(pending) != 25 {
		t.Fatalf("pending %d cells, want the full 5x5 neighborhood", len(pending))
	}

	center := world.ExteriorKey(0, 0)
	if pending[0] != center {
		t.Errorf("first queued cell %v, want the viewpoint cell", pending[0])
	}
	seen := map[world.CellKey]bool{}
	for i, key := range pending {
		if chebyshev(key, center) > 2 {
			t.Errorf("cell %v outside the view radius", key)
		}
		if seen[key] {
			t.Errorf("cell %v queued twice", key)
		}
		seen[key] = true
		if i > 0 && gridDist2(pending[i-1], center) > gridDist2(key, center) {
			t.Errorf("queue not distance-ascending at %d: %v before %v",
				i, pending[i-1], key)
		}
	}
}

func TestTickLoadsNeighborhood(t *testing.T) {
	src := &fakeSource{assets: []string{"rock", "tree"}}
	e := newTestEngine(t, src)

	e.SetViewpoint(mgl32.Vec3{32, 0, 32})
	e.Tick(16*time.Millisecond, time.Second)

	if got := len(e.LoadedCells()); got != 25 {
		t.Fatalf("loaded %d cells, want 25", got)
	}
	if got := len(e.PendingLoads()); got != 0 {
		t.Errorf("pending %d after drain", got)
	}

	st := e.Stats()
	if st.TrackedLOD != 50 {
		t.Errorf("tracking %d objects, want 50", st.TrackedLOD)
	}
	if st.PartialCells != 0 {
		t.Errorf("%d partial cells, want 0", st.PartialCells)
	}
}

func TestViewpointCrossingStreamsEdges(t *testing.T) {
	src := &fakeSource{assets: []string{"rock", "tree"}}
	e := newTestEngine(t, src)

	e.SetViewpoint(mgl32.Vec3{32, 0, 32})
	e.Tick(16*time.Millisecond, time.Second)

	// one cell east: the x=3 column comes in, the x=-2 column goes out
	e.SetViewpoint(mgl32.Vec3{96, 0, 32})

	pending := e.PendingLoads()
	if len(pending) != 5 {
		t.Fatalf("pending %d loads after crossing, want 5", len(pending))
	}
	for _, key := range pending {
		if key.X != 3 {
			t.Errorf("queued %v, want only the x=3 column", key)
		}
	}
	unloads := e.PendingUnloads()
	if len(unloads) != 5 {
		t.Fatalf("pending %d unloads, want 5", len(unloads))
	}
	for _, key := range unloads {
		if key.X != -2 {
			t.Errorf("unloading %v, want only the x=-2 column", key)
		}
	}

	e.Tick(16*time.Millisecond, time.Second)

	loaded := e.LoadedCells()
	if len(loaded) != 25 {
		t.Fatalf("loaded %d cells after crossing, want 25", len(loaded))
	}
	newCenter := world.ExteriorKey(1, 0)
	for _, key := range loaded {
		if chebyshev(key, newCenter) > 2 {
			t.Errorf("cell %v resident outside the new neighborhood", key)
		}
	}

	// unloaded instances went back to the pool, so the next column over
	// is served from it
	before := e.Pool().Resident()
	e.SetViewpoint(mgl32.Vec3{160, 0, 32})
	e.Tick(16*time.Millisecond, time.Second)
	if got := e.Pool().Resident(); got != before {
		t.Errorf("resident %d -> %d, crossing should reuse pooled instances", before, got)
	}
}

func TestTickBudgetBound(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	src := &fakeSource{assets: []string{"rock"}, clock: clock, cellCost: 10 * time.Millisecond}
	e := newTestEngine(t, src)
	e.now = clock.now

	e.SetViewpoint(mgl32.Vec3{32, 0, 32})

	// no budget: the queue fills but nothing loads
	e.Tick(0, 0)
	if got := len(e.LoadedCells()); got != 0 {
		t.Fatalf("loaded %d cells with zero budget", got)
	}

	// 25ms pays for two full cells and lets the third, already started,
	// run to completion
	e.Tick(0, 25*time.Millisecond)
	if got := len(e.LoadedCells()); got != 3 {
		t.Errorf("loaded %d cells under 25ms budget, want 3", got)
	}
	if got := len(e.PendingLoads()); got != 22 {
		t.Errorf("pending %d, want 22", got)
	}

	// the remainder drains over later ticks
	for i := 0; i < 20 && len(e.PendingLoads()) != 0; i++ {
		e.Tick(0, 25*time.Millisecond)
	}
	if got := len(e.LoadedCells()); got != 25 {
		t.Errorf("loaded %d cells after drain, want 25", got)
	}
}

func TestStaleRequestsDropped(t *testing.T) {
	src := &fakeSource{assets: []string{"rock"}}
	e := newTestEngine(t, src)

	e.SetViewpoint(mgl32.Vec3{32, 0, 32})
	// teleport before anything loads: the old queue is now all stale
	e.SetViewpoint(mgl32.Vec3{6432, 0, 6432})
	e.Tick(16*time.Millisecond, time.Second)

	if got := e.Stats().StaleDropped; got != 25 {
		t.Errorf("dropped %d stale requests, want 25", got)
	}
	center := world.ExteriorKey(100, 100)
	loaded := e.LoadedCells()
	if len(loaded) != 25 {
		t.Fatalf("loaded %d cells, want 25", len(loaded))
	}
	for _, key := range loaded {
		if chebyshev(key, center) > 2 {
			t.Errorf("stale cell %v was loaded anyway", key)
		}
	}
	if src.parses != 25 {
		t.Errorf("parsed %d cells, stale requests should never reach the source", src.parses)
	}
}

func TestLoadUnloadIdempotent(t *testing.T) {
	src := &fakeSource{assets: []string{"rock"}}
	e := newTestEngine(t, src)
	key := world.ExteriorKey(0, 0)

	first := e.LoadCell(key)
	if first.Loaded != 1 {
		t.Fatalf("loaded %d objects, want 1", first.Loaded)
	}
	nodes := e.Graph().NodeCount()

	second := e.LoadCell(key)
	if second != (LoadResult{}) {
		t.Errorf("second load did work: %+v", second)
	}
	if e.Graph().NodeCount() != nodes {
		t.Error("second load grew the scene graph")
	}

	e.UnloadCell(key)
	e.UnloadCell(key)
	e.UnloadCell(world.ExteriorKey(9, 9))
	if got := len(e.LoadedCells()); got != 0 {
		t.Errorf("loaded %d cells after unload", got)
	}
}

func TestUnloadParksInstances(t *testing.T) {
	src := &fakeSource{assets: []string{"rock", "rock", "rock"}}
	e := newTestEngine(t, src)
	key := world.ExteriorKey(0, 0)

	e.LoadCell(key)
	resident := e.Pool().Resident()
	e.UnloadCell(key)

	if got := e.Pool().Resident(); got != resident {
		t.Errorf("resident %d -> %d, unload should park instances", resident, got)
	}
	result := e.LoadCell(key)
	if result.FromPool != 3 {
		t.Errorf("reload pulled %d from pool, want 3", result.FromPool)
	}
	if got := e.Pool().Resident(); got != resident {
		t.Errorf("resident %d after reload, want %d", got, resident)
	}
}

func TestPartialCellLoad(t *testing.T) {
	src := &fakeSource{
		assets:  []string{"rock", "ghost"},
		missing: map[string]bool{"ghost": true},
	}
	e := newTestEngine(t, src)

	result := e.LoadCell(world.ExteriorKey(0, 0))
	if result.Loaded != 1 || result.Failed != 1 {
		t.Errorf("loaded=%d failed=%d, want 1/1", result.Loaded, result.Failed)
	}
	st := e.Stats()
	if st.LoadedCells != 1 || st.PartialCells != 1 {
		t.Errorf("loaded=%d partial=%d cells, want 1/1", st.LoadedCells, st.PartialCells)
	}
}

func TestBrokenCellNotRetried(t *testing.T) {
	bad := world.ExteriorKey(0, 0)
	src := &fakeSource{
		assets:   []string{"rock"},
		badCells: map[world.CellKey]bool{bad: true},
	}
	e := newTestEngine(t, src)

	e.SetViewpoint(mgl32.Vec3{32, 0, 32})
	e.Tick(16*time.Millisecond, time.Second)

	st := e.Stats()
	if st.LoadedCells != 25 {
		t.Fatalf("loaded %d cells, want 25 with the broken one marked resident", st.LoadedCells)
	}
	if st.PartialCells != 1 {
		t.Errorf("partial %d, want 1", st.PartialCells)
	}

	parses := src.parses
	// later neighborhood passes must not re-enqueue the broken cell
	for i := 0; i < 40; i++ {
		e.Tick(16*time.Millisecond, time.Second)
	}
	if src.parses != parses {
		t.Errorf("broken cell re-parsed: %d -> %d", parses, src.parses)
	}
}

func TestCellOfNegativeCoordinates(t *testing.T) {
	src := &fakeSource{assets: []string{"rock"}}
	e := newTestEngine(t, src)

	cases := []struct {
		pos  mgl32.Vec3
		want world.CellKey
	}{
		{mgl32.Vec3{0, 0, 0}, world.ExteriorKey(0, 0)},
		{mgl32.Vec3{63.9, 0, 63.9}, world.ExteriorKey(0, 0)},
		{mgl32.Vec3{64, 0, 0}, world.ExteriorKey(1, 0)},
		{mgl32.Vec3{-0.1, 0, -0.1}, world.ExteriorKey(-1, -1)},
		{mgl32.Vec3{-64.1, 0, 10}, world.ExteriorKey(-2, 0)},
	}
	for _, c := range cases {
		if got := e.cellOf(c.pos); got != c.want {
			t.Errorf("cellOf(%v) = %v, want %v", c.pos, got, c.want)
		}
	}
}

func TestCloseUnloadsEverything(t *testing.T) {
	src := &fakeSource{assets: []string{"rock"}}
	e := newTestEngine(t, src)

	e.SetViewpoint(mgl32.Vec3{32, 0, 32})
	e.Tick(16*time.Millisecond, time.Second)
	e.Close()

	if got := len(e.LoadedCells()); got != 0 {
		t.Errorf("loaded %d cells after close", got)
	}
	if got := len(e.PendingLoads()); got != 0 {
		t.Errorf("pending %d loads after close", got)
	}
	if got := e.LOD().Tracked(); got != 0 {
		t.Errorf("tracking %d objects after close", got)
	}
}
