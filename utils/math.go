package utils

import (
	"github.com/go-gl/mathgl/mgl32"
)

func Clamp32(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// EulerToMat4 builds a rotation matrix from XYZ euler angles in radians,
// applied in Z-Y-X order like the content pipeline does.
func EulerToMat4(e mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DZ(e.Z()).
		Mul4(mgl32.HomogRotate3DY(e.Y())).
		Mul4(mgl32.HomogRotate3DX(e.X()))
}

func TranslationOf(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}
}
