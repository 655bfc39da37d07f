package cache

import (
	"bufio"
	"encoding/gob"
	"log"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/utils"
)

// diskCache persists decoded textures between runs so a warm process never
// pays decode cost twice for the same content. One zstd-compressed gob blob
// per entry, file name = content fingerprint of the texture key.
type diskCache struct {
	dir string
}

func newDiskCache(dir string) (*diskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "Failed to create texture cache dir %q", dir)
	}
	return &diskCache{dir: dir}, nil
}

func (d *diskCache) path(key string) string {
	return filepath.Join(d.dir, utils.FingerprintString(key)+".texblob")
}

// load returns nil on any miss or corruption; the caller falls back to a
// fresh decode and re-store.
func (d *diskCache) load(key string) *Texture {
	f, err := os.Open(d.path(key))
	if err != nil {
		return nil
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil
	}
	defer dec.Close()

	var tex Texture
	if err := gob.NewDecoder(bufio.NewReader(dec)).Decode(&tex); err != nil {
		log.Printf("[cache] dropping corrupt disk entry for %q: %v", key, err)
		return nil
	}
	if tex.Key != key {
		// fingerprint collision or stale file layout
		return nil
	}
	return &tex
}

// store failures only cost the next run a decode, so they are logged and
// swallowed.
func (d *diskCache) store(tex *Texture) {
	tmp := d.path(tex.Key) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		log.Printf("[cache] disk store %q: %v", tex.Key, err)
		return
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	encodeErr := gob.NewEncoder(bw).Encode(tex)
	if encodeErr == nil {
		encodeErr = bw.Flush()
	}
	if err := enc.Close(); encodeErr == nil {
		encodeErr = err
	}
	if err := f.Close(); encodeErr == nil {
		encodeErr = err
	}
	if encodeErr != nil {
		log.Printf("[cache] disk store %q: %v", tex.Key, encodeErr)
		os.Remove(tmp)
		return
	}

	if err := os.Rename(tmp, d.path(tex.Key)); err != nil {
		log.Printf("[cache] disk store %q: %v", tex.Key, err)
		os.Remove(tmp)
	}
}
