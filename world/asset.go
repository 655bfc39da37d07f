package world

// TransparencyMode mirrors the blend setups the content pipeline emits.
type TransparencyMode int

const (
	TransparencyOpaque TransparencyMode = iota
	TransparencyAlphaBlend
	TransparencyAdditive
	TransparencySubtract
)

type CullMode int

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// MaterialSpec is the full visual property set of one material. Everything
// that changes pixels is here; the content cache key is derived from it and
// nothing else.
type MaterialSpec struct {
	Texture          string // logical texture name, resolved by the cache
	Transparency     TransparencyMode
	Cull             CullMode
	VertexColor      bool
	EmissionColor    [3]float32
	EmissionStrength float32
	Tint             [4]float32 // non-default albedo tint, RGBA
}

// Geometry is renderer-ready triangle data produced by the external
// converter. Flat arrays, xyz / xyz / uv triplets, 16-bit indices.
type Geometry struct {
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint16
}

func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

// AssetSpec is what ParseAsset hands the engine for one asset id.
type AssetSpec struct {
	Name      string
	Geometry  *Geometry
	Materials []MaterialSpec
	// Radius is the bounding sphere radius, the LOD size hint.
	Radius float32
}

// Albedo is the texture used for the flattened billboard impostor: the
// first textured material wins.
func (a *AssetSpec) Albedo() string {
	for i := range a.Materials {
		if a.Materials[i].Texture != "" {
			return a.Materials[i].Texture
		}
	}
	return ""
}
