package lod

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/world_streamer/scene"
)

// billboard scopes the lifetime of one direct-render draw handle. Every
// path out of the billboard tier goes through release, and release is
// idempotent, so the handle cannot leak even on an early return.
type billboard struct {
	draws    *scene.DrawList
	id       scene.DrawID
	released bool
}

func newBillboard(draws *scene.DrawList, texture string, transform mgl32.Mat4) *billboard {
	return &billboard{
		draws: draws,
		id:    draws.Add(scene.DrawInstance{TextureKey: texture, Transform: transform}),
	}
}

func (b *billboard) setTransform(m mgl32.Mat4) {
	if !b.released {
		b.draws.SetTransform(b.id, m)
	}
}

func (b *billboard) release() {
	if b.released {
		return
	}
	b.draws.Remove(b.id)
	b.released = true
}
