package stream

import "longwater/internal/sim/decor"

// Handle is an opaque graphics resource owned by the rendering
// collaborator. The core never inspects it.
type Handle any

// GroundMeshSpec is a regular height grid over one chunk's footprint,
// row-major in z. Colors carry the biome-blended ground color per row.
type GroundMeshSpec struct {
	ChunkIndex int
	XMin, XMax float64
	ZMin, ZMax float64
	Heights    [][]float64
	Colors     [][3]float64
}

// WaterMeshSpec is the river surface strip across one chunk: centerline
// x and width per sampled row.
type WaterMeshSpec struct {
	ChunkIndex int
	ZMin, ZMax float64
	CenterXs   []float64
	Widths     []float64
}

// DecorationBatchSpec merges a chunk's placements into one instanced
// draw unit.
type DecorationBatchSpec struct {
	ChunkIndex int
	Placements []*decor.Placement
}

// Graphics is the rendering collaborator contract. Creation returns
// handles; the core releases them only through Dispose and never
// bypasses these entry points.
type Graphics interface {
	CreateGroundMesh(spec GroundMeshSpec) Handle
	CreateWaterMesh(spec WaterMeshSpec) Handle
	CreateDecorationBatch(spec DecorationBatchSpec) Handle
	AddToScene(h Handle)
	RemoveFromScene(h Handle)
	Dispose(h Handle)
}

// TrackingGraphics is the headless backend: it tracks live handles and
// scene membership so leaks show up as test failures and stats.
type TrackingGraphics struct {
	live    map[*trackedHandle]struct{}
	inScene map[*trackedHandle]struct{}

	Created  int
	Disposed int
}

type trackedHandle struct {
	kind string
}

func NewTrackingGraphics() *TrackingGraphics {
	return &TrackingGraphics{
		live:    map[*trackedHandle]struct{}{},
		inScene: map[*trackedHandle]struct{}{},
	}
}

func (g *TrackingGraphics) create(kind string) Handle {
	h := &trackedHandle{kind: kind}
	g.live[h] = struct{}{}
	g.Created++
	return h
}

func (g *TrackingGraphics) CreateGroundMesh(GroundMeshSpec) Handle { return g.create("ground") }
func (g *TrackingGraphics) CreateWaterMesh(WaterMeshSpec) Handle   { return g.create("water") }
func (g *TrackingGraphics) CreateDecorationBatch(DecorationBatchSpec) Handle {
	return g.create("decor")
}

func (g *TrackingGraphics) AddToScene(h Handle) {
	if th, ok := h.(*trackedHandle); ok {
		g.inScene[th] = struct{}{}
	}
}

func (g *TrackingGraphics) RemoveFromScene(h Handle) {
	if th, ok := h.(*trackedHandle); ok {
		delete(g.inScene, th)
	}
}

func (g *TrackingGraphics) Dispose(h Handle) {
	th, ok := h.(*trackedHandle)
	if !ok {
		return
	}
	if _, live := g.live[th]; live {
		delete(g.live, th)
		delete(g.inScene, th)
		g.Disposed++
	}
}

func (g *TrackingGraphics) LiveCount() int  { return len(g.live) }
func (g *TrackingGraphics) SceneCount() int { return len(g.inScene) }
