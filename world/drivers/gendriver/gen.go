// Package gendriver is a deterministic synthetic world source used by the
// demo binary, benchmarks and tests. Same seed, same world.
package gendriver

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/utils"
	"github.com/mogaika/world_streamer/world"
)

const (
	terrainSide    = 17
	paletteSize    = 12
	textureVariety = 4
)

type assetDef struct {
	name    string
	radius  float32
	texture string
}

var _ world.Source = (*Gen)(nil)

type Gen struct {
	seed     int64
	cellSize float32
	palette  []assetDef
	textures map[string][]byte // encoded png per resolved path
}

func NewGen(seed int64, cellSize float32) *Gen {
	g := &Gen{
		seed:     seed,
		cellSize: cellSize,
		textures: make(map[string][]byte),
	}

	var names utils.RandomNameGenerator
	for i := 0; i < paletteSize; i++ {
		g.palette = append(g.palette, assetDef{
			name:    names.RandomName(seed),
			radius:  0.5 + float32(i%5)*1.75,
			texture: g.textureName(i % textureVariety),
		})
	}
	return g
}

func (g *Gen) textureName(i int) string {
	return "synthetic_" + string(rune('a'+i))
}

// AssetNames exposes the palette, used by tooling to pre-warm pools.
func (g *Gen) AssetNames() []string {
	names := make([]string, len(g.palette))
	for i, def := range g.palette {
		names[i] = def.name
	}
	return names
}

func (g *Gen) cellRand(key world.CellKey) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(key.String()))
	return rand.New(rand.NewSource(g.seed ^ int64(h.Sum64())))
}

func (g *Gen) ParseCell(key world.CellKey) (*world.Cell, error) {
	if key.IsInterior() {
		return g.parseInterior(key)
	}

	rng := g.cellRand(key)
	cell := &world.Cell{Key: key}

	count := 16 + rng.Intn(24)
	base := mgl32.Vec3{float32(key.X) * g.cellSize, 0, float32(key.Z) * g.cellSize}
	for i := 0; i < count; i++ {
		def := &g.palette[rng.Intn(len(g.palette))]
		cell.Objects = append(cell.Objects, world.ObjectRef{
			Asset: def.name,
			Position: base.Add(mgl32.Vec3{
				rng.Float32() * g.cellSize,
				0,
				rng.Float32() * g.cellSize,
			}),
			Rotation: mgl32.Vec3{0, rng.Float32() * 2 * math.Pi, 0},
			Scale:    0.75 + rng.Float32()*0.5,
		})
	}

	cell.Terrain = g.terrain(key)
	return cell, nil
}

func (g *Gen) parseInterior(key world.CellKey) (*world.Cell, error) {
	rng := g.cellRand(key)
	cell := &world.Cell{Key: key}
	count := 4 + rng.Intn(8)
	for i := 0; i < count; i++ {
		def := &g.palette[rng.Intn(len(g.palette))]
		cell.Objects = append(cell.Objects, world.ObjectRef{
			Asset:    def.name,
			Position: mgl32.Vec3{rng.Float32() * 16, 0, rng.Float32() * 16},
			Scale:    1,
		})
	}
	return cell, nil
}

func (g *Gen) terrain(key world.CellKey) *world.Terrain {
	t := &world.Terrain{
		Size:    terrainSide,
		Heights: make([]float32, terrainSide*terrainSide),
	}
	for z := 0; z < terrainSide; z++ {
		for x := 0; x < terrainSide; x++ {
			wx := float64(key.X) + float64(x)/float64(terrainSide-1)
			wz := float64(key.Z) + float64(z)/float64(terrainSide-1)
			t.Heights[z*terrainSide+x] = float32(3*math.Sin(wx*0.7) + 2*math.Cos(wz*1.1))
		}
	}
	return t
}

func (g *Gen) ParseAsset(id string) (*world.AssetSpec, error) {
	for i := range g.palette {
		def := &g.palette[i]
		if def.name != id {
			continue
		}
		return &world.AssetSpec{
			Name:     id,
			Geometry: boxGeometry(def.radius),
			Materials: []world.MaterialSpec{{
				Texture: def.texture,
				Tint:    [4]float32{1, 1, 1, 1},
			}},
			Radius: def.radius,
		}, nil
	}
	return nil, errors.Wrapf(world.ErrNotFound, "Asset %q", id)
}

// OpenTexture serves generated png bytes; only the ".png" candidate of a
// synthetic texture name resolves, everything else misses like a real
// archive would.
func (g *Gen) OpenTexture(path string) (io.ReadCloser, error) {
	if data, ok := g.textures[path]; ok {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	for i := 0; i < textureVariety; i++ {
		if path == g.textureName(i)+".png" {
			data := g.encodeTexture(i)
			g.textures[path] = data
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	return nil, errors.Wrapf(world.ErrNotFound, "Texture path %q", path)
}

func (g *Gen) encodeTexture(i int) []byte {
	const side = 16
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	rng := rand.New(rand.NewSource(g.seed + int64(i)))
	a := color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255}
	b := color.RGBA{a.B, a.R, a.G, 255}
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, a)
			} else {
				img.Set(x, y, b)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// boxGeometry builds an axis-aligned box with side 2r, the stand-in for
// converted model geometry.
func boxGeometry(r float32) *world.Geometry {
	p := []float32{
		-r, -r, -r, r, -r, -r, r, r, -r, -r, r, -r,
		-r, -r, r, r, -r, r, r, r, r, -r, r, r,
	}
	n := []float32{
		0, 0, -1, 0, 0, -1, 0, 0, -1, 0, 0, -1,
		0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1,
	}
	uv := []float32{
		0, 0, 1, 0, 1, 1, 0, 1,
		0, 0, 1, 0, 1, 1, 0, 1,
	}
	idx := []uint16{
		0, 1, 2, 0, 2, 3,
		4, 6, 5, 4, 7, 6,
		0, 4, 5, 0, 5, 1,
		3, 2, 6, 3, 6, 7,
		0, 3, 7, 0, 7, 4,
		1, 5, 6, 1, 6, 2,
	}
	return &world.Geometry{Positions: p, Normals: n, UVs: uv, Indices: idx}
}
