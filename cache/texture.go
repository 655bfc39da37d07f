package cache

import (
	"image"
	"image/draw"
	"io"
	"log"
	"path"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/world"
)

// Texture is an immutable decoded image ready for upload. Callers share the
// handle and must never mutate Pixels.
type Texture struct {
	Key           string // normalized logical name, the cache key
	Path          string // resolved archive path
	Width, Height int
	Pixels        []byte // RGBA, row-major
}

// TextureOpener returns the encoded bytes behind one candidate path, or a
// not-found error when nothing lives there.
type TextureOpener func(path string) (io.ReadCloser, error)

type TextureCache struct {
	open TextureOpener
	hot  *lruCache
	disk *diskCache

	// paths remembers which candidate location a logical name resolved
	// to, negative results included, so misses do not re-probe the
	// archive on every request.
	paths  map[string]string
	probes uint64

	hits     uint64
	misses   uint64
	diskHits uint64
}

// NewTextureCache builds the cache. diskDir enables the persisted decoded
// image tier when non-empty.
func NewTextureCache(open TextureOpener, maxEntries int, diskDir string) *TextureCache {
	c := &TextureCache{
		open:  open,
		hot:   newLRU(maxEntries),
		paths: make(map[string]string),
	}
	if diskDir != "" {
		disk, err := newDiskCache(diskDir)
		if err != nil {
			log.Printf("[cache] disk texture cache disabled: %v", err)
		} else {
			c.disk = disk
		}
	}
	return c
}

// NormalizeTextureName is the pure key derivation for textures: one logical
// asset name maps to exactly one key no matter how a referencing object
// spelled it.
func NormalizeTextureName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Clean(name)
}

// GetOrCreate resolves the logical name and returns the shared texture
// handle, decoding at most once per key for the lifetime of the entry.
func (c *TextureCache) GetOrCreate(name string) (*Texture, error) {
	key := NormalizeTextureName(name)

	if v, ok := c.hot.get(key); ok {
		c.hits++
		return v.(*Texture), nil
	}

	resolved, ok := c.paths[key]
	if !ok {
		resolved = c.probe(key)
		c.paths[key] = resolved
	}
	if resolved == "" {
		return nil, errors.Wrapf(world.ErrNotFound, "Texture %q", name)
	}

	if c.disk != nil {
		if tex := c.disk.load(key); tex != nil {
			c.diskHits++
			c.hot.add(key, tex)
			return tex, nil
		}
	}

	tex, err := c.decode(key, resolved)
	if err != nil {
		return nil, err
	}
	c.misses++
	if c.disk != nil {
		c.disk.store(tex)
	}
	c.hot.add(key, tex)
	return tex, nil
}

// probe walks the candidate extensions/locations for a logical name and
// returns the first that opens, or "" when none does.
func (c *TextureCache) probe(key string) string {
	for _, candidate := range candidatePaths(key) {
		c.probes++
		rc, err := c.open(candidate)
		if err != nil {
			continue
		}
		rc.Close()
		return candidate
	}
	return ""
}

func candidatePaths(key string) []string {
	if path.Ext(key) != "" {
		return []string{key, "textures/" + key}
	}
	candidates := make([]string, 0, 6)
	for _, dir := range []string{"", "textures/"} {
		for _, ext := range []string{".png", ".jpg", ".jpeg"} {
			candidates = append(candidates, dir+key+ext)
		}
	}
	return candidates
}

func (c *TextureCache) decode(key, resolved string) (*Texture, error) {
	rc, err := c.open(resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open texture %q", resolved)
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode texture %q", resolved)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return &Texture{
		Key:    key,
		Path:   resolved,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: rgba.Pix,
	}, nil
}

type TextureStats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	DiskHits  uint64 `json:"disk_hits"`
	Evictions uint64 `json:"evictions"`
	Probes    uint64 `json:"probes"`
	Negative  int    `json:"negative_paths"`
}

func (c *TextureCache) Stats() TextureStats {
	negative := 0
	for _, p := range c.paths {
		if p == "" {
			negative++
		}
	}
	return TextureStats{
		Entries:   c.hot.len(),
		Hits:      c.hits,
		Misses:    c.misses,
		DiskHits:  c.diskHits,
		Evictions: c.hot.evictions,
		Probes:    c.probes,
		Negative:  negative,
	}
}

func (c *TextureCache) Keys() []string {
	return c.hot.keys()
}
