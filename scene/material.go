package scene

import "github.com/achilleasa/stilltrace/types"

type MaterialType uint8

const (
	Diffuse MaterialType = iota
	Metallic
	Dielectric
)

func (t MaterialType) String() string {
	switch t {
	case Metallic:
		return "metallic"
	case Dielectric:
		return "dielectric"
	default:
		return "diffuse"
	}
}

// The surface properties of a primitive.
type Material struct {
	Type MaterialType

	// Diffuse/specular tint.
	Color types.Vec3

	// Emitted radiance.
	Emission types.Vec3

	// Index of refraction for dielectrics.
	IOR float32
}

// Create the material assigned to primitives that do not specify one.
func DefaultMaterial() Material {
	return Material{
		Type:  Diffuse,
		Color: types.Splat(1),
		IOR:   1.5,
	}
}
