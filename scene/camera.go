package scene

import (
	"fmt"
	"math"

	"github.com/achilleasa/stilltrace/types"
)

// The camera type controls the scene camera.
type Camera struct {
	Position types.Vec3
	Right    types.Vec3
	Up       types.Vec3
	Forward  types.Vec3

	// Horizontal field of view in radians. The vertical FOV is derived
	// from the frame aspect ratio.
	FovX float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: types.Vec3{0, 0, 0},
		Right:    types.Vec3{1, 0, 0},
		Up:       types.Vec3{0, 1, 0},
		Forward:  types.Vec3{0, 0, -1},
		FovX:     math.Pi / 2,
	}
}

func (c *Camera) String() string {
	return fmt.Sprintf(
		"Camera:\npos : (%3.3f, %3.3f, %3.3f)\nfwd : (%3.3f, %3.3f, %3.3f)\nfovX: %3.3f",
		c.Position[0], c.Position[1], c.Position[2],
		c.Forward[0], c.Forward[1], c.Forward[2],
		c.FovX,
	)
}

// Generate the primary ray passing through the given (sub)pixel coordinates
// of a frameW x frameH frame. Pixel (0, 0) is the top-left corner.
func (c *Camera) Ray(coords types.Vec2, frameW, frameH int) types.Ray {
	tanX := float32(math.Tan(float64(c.FovX) / 2))
	tanY := tanX * float32(frameH) / float32(frameW)

	x := (2*coords[0]/float32(frameW) - 1) * tanX
	y := -(2*coords[1]/float32(frameH) - 1) * tanY

	dir := c.Right.Mul(x).Add(c.Up.Mul(y)).Add(c.Forward)
	return types.Ray{
		Origin: c.Position,
		Dir:    dir.Normalize(),
	}
}
