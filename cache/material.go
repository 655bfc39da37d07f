package cache

import (
	"fmt"

	"github.com/mogaika/world_streamer/utils"
	"github.com/mogaika/world_streamer/world"
)

// Material is a deduplicated, ready-to-bind material. Two objects whose
// specs compare equal share one handle.
type Material struct {
	Key     string
	Spec    world.MaterialSpec
	Texture *Texture // nil for untextured materials
}

// MaterialKey derives the content fingerprint from the visual property set
// and nothing else. Pure: equal specs always produce equal keys.
func MaterialKey(spec world.MaterialSpec) string {
	canonical := fmt.Sprintf("tex=%s;tr=%d;cull=%d;vc=%t;em=%.5f,%.5f,%.5f*%.5f;tint=%.5f,%.5f,%.5f,%.5f",
		NormalizeTextureName(spec.Texture),
		spec.Transparency, spec.Cull, spec.VertexColor,
		spec.EmissionColor[0], spec.EmissionColor[1], spec.EmissionColor[2], spec.EmissionStrength,
		spec.Tint[0], spec.Tint[1], spec.Tint[2], spec.Tint[3])
	return utils.FingerprintString(canonical)
}

type MaterialCache struct {
	textures *TextureCache
	lru      *lruCache
	hits     uint64
	misses   uint64
}

func NewMaterialCache(textures *TextureCache, maxEntries int) *MaterialCache {
	return &MaterialCache{
		textures: textures,
		lru:      newLRU(maxEntries),
	}
}

// GetOrCreate returns the shared material for the spec, building it (and
// pulling its texture through the texture cache) exactly once per resident
// key.
func (c *MaterialCache) GetOrCreate(spec world.MaterialSpec) (*Material, error) {
	key := MaterialKey(spec)
	if v, ok := c.lru.get(key); ok {
		c.hits++
		return v.(*Material), nil
	}

	var tex *Texture
	if spec.Texture != "" {
		var err error
		tex, err = c.textures.GetOrCreate(spec.Texture)
		if err != nil {
			return nil, err
		}
	}

	mat := &Material{Key: key, Spec: spec, Texture: tex}
	c.lru.add(key, mat)
	c.misses++
	return mat, nil
}

type MaterialStats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

func (c *MaterialCache) Stats() MaterialStats {
	return MaterialStats{
		Entries:   c.lru.len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.lru.evictions,
	}
}

func (c *MaterialCache) Keys() []string {
	return c.lru.keys()
}
