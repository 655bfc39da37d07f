package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/world_streamer/utils"
)

// ObjectRef places one asset inside a cell.
type ObjectRef struct {
	Asset    string
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // euler, rads
	Scale    float32
}

func (r *ObjectRef) Transform() mgl32.Mat4 {
	scale := r.Scale
	if scale == 0 {
		scale = 1
	}
	return mgl32.Translate3D(r.Position.X(), r.Position.Y(), r.Position.Z()).
		Mul4(utils.EulerToMat4(r.Rotation)).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}
