package scene

import (
	"math"

	"github.com/achilleasa/stilltrace/types"
)

type PrimitiveType uint32

const (
	PlanePrimitive PrimitiveType = iota
	EllipsoidPrimitive
	BoxPrimitive
)

func (t PrimitiveType) String() string {
	switch t {
	case PlanePrimitive:
		return "plane"
	case EllipsoidPrimitive:
		return "ellipsoid"
	case BoxPrimitive:
		return "box"
	}
	return "unknown"
}

// Intersections closer than this distance are ignored to avoid self hits.
const hitEpsilon float32 = 1e-4

// Defines a scene primitive. Geometry is specified in local space and
// placed in the scene by a rotation followed by a translation.
type Primitive struct {
	// The primitive type.
	Type PrimitiveType

	// Primitive dimensions; the plane normal, the ellipsoid radii or the
	// box half-sizes depending on primitive type.
	Dimensions types.Vec3

	Position types.Vec3
	Rotation types.Quat

	Material Material

	// Cached world space bounds (bounded primitives only).
	bbox [2]types.Vec3
}

// Create new plane primitive through the origin with the given normal.
func NewPlane(normal types.Vec3) *Primitive {
	return &Primitive{
		Type:       PlanePrimitive,
		Dimensions: normal.Normalize(),
		Rotation:   types.QuatIdent(),
		Material:   DefaultMaterial(),
	}
}

// Create new ellipsoid primitive.
func NewEllipsoid(radii types.Vec3) *Primitive {
	return &Primitive{
		Type:       EllipsoidPrimitive,
		Dimensions: radii,
		Rotation:   types.QuatIdent(),
		Material:   DefaultMaterial(),
	}
}

// Create new box primitive.
func NewBox(halfSize types.Vec3) *Primitive {
	return &Primitive{
		Type:       BoxPrimitive,
		Dimensions: halfSize,
		Rotation:   types.QuatIdent(),
		Material:   DefaultMaterial(),
	}
}

// Returns true if the primitive has finite extents.
func (p *Primitive) IsBounded() bool {
	return p.Type != PlanePrimitive
}

// Calculate and cache the world space bbox. Must be called before the
// primitive is shared between goroutines.
func (p *Primitive) updateBBox() {
	min := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	d := p.Dimensions
	for corner := 0; corner < 8; corner++ {
		local := d
		for axis := 0; axis < 3; axis++ {
			if corner&(1<<axis) != 0 {
				local[axis] = -local[axis]
			}
		}
		world := p.Rotation.Rotate(local).Add(p.Position)
		min = types.MinVec3(min, world)
		max = types.MaxVec3(max, world)
	}
	p.bbox = [2]types.Vec3{min, max}
}

// Get the world space bbox.
func (p *Primitive) BBox() [2]types.Vec3 {
	return p.bbox
}

// Get the world space bbox center.
func (p *Primitive) Center() types.Vec3 {
	return p.bbox[0].Add(p.bbox[1]).Mul(0.5)
}

// A ray-primitive intersection.
type Hit struct {
	T float32

	// World space normal facing against the incoming ray.
	Normal types.Vec3

	// True if the ray hit the primitive from the inside.
	Inside bool

	Primitive *Primitive
}

// Intersect a world space ray with the primitive. Returns false if the ray
// misses the primitive or hits it at a distance outside (hitEpsilon, tMax).
func (p *Primitive) Intersect(ray types.Ray, tMax float32) (Hit, bool) {
	inv := p.Rotation.Conjugate()
	o := inv.Rotate(ray.Origin.Sub(p.Position))
	d := inv.Rotate(ray.Dir)

	var (
		t      float32
		normal types.Vec3
		ok     bool
	)
	switch p.Type {
	case PlanePrimitive:
		t, normal, ok = intersectPlane(o, d, p.Dimensions)
	case EllipsoidPrimitive:
		t, normal, ok = intersectEllipsoid(o, d, p.Dimensions)
	case BoxPrimitive:
		t, normal, ok = intersectBox(o, d, p.Dimensions)
	}
	if !ok || t >= tMax {
		return Hit{}, false
	}

	hit := Hit{
		T:         t,
		Normal:    p.Rotation.Rotate(normal).Normalize(),
		Primitive: p,
	}
	if hit.Normal.Dot(ray.Dir) > 0 {
		hit.Normal = hit.Normal.Neg()
		hit.Inside = true
	}
	return hit, true
}

func intersectPlane(o, d, n types.Vec3) (float32, types.Vec3, bool) {
	denom := d.Dot(n)
	if denom == 0 {
		return 0, types.Vec3{}, false
	}
	t := -o.Dot(n) / denom
	if t <= hitEpsilon {
		return 0, types.Vec3{}, false
	}
	return t, n, true
}

func intersectEllipsoid(o, d, r types.Vec3) (float32, types.Vec3, bool) {
	or := o.DivVec(r)
	dr := d.DivVec(r)

	a := dr.Dot(dr)
	b := or.Dot(dr)
	c := or.Dot(or) - 1
	disc := b*b - a*c
	if a == 0 || disc < 0 {
		return 0, types.Vec3{}, false
	}

	sq := float32(math.Sqrt(float64(disc)))
	t := (-b - sq) / a
	if t <= hitEpsilon {
		t = (-b + sq) / a
		if t <= hitEpsilon {
			return 0, types.Vec3{}, false
		}
	}

	point := o.Add(d.Mul(t))
	normal := point.DivVec(r.MulVec(r)).Normalize()
	return t, normal, true
}

func intersectBox(o, d, s types.Vec3) (float32, types.Vec3, bool) {
	tNear := float32(-math.MaxFloat32)
	tFar := float32(math.MaxFloat32)
	for axis := 0; axis < 3; axis++ {
		if d[axis] == 0 {
			if o[axis] < -s[axis] || o[axis] > s[axis] {
				return 0, types.Vec3{}, false
			}
			continue
		}
		t0 := (-s[axis] - o[axis]) / d[axis]
		t1 := (s[axis] - o[axis]) / d[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
	}
	if tNear > tFar || tFar <= hitEpsilon {
		return 0, types.Vec3{}, false
	}

	t := tNear
	if t <= hitEpsilon {
		t = tFar
	}

	// The normal points along the axis where the hit point is closest to
	// the box face.
	point := o.Add(d.Mul(t))
	var normal types.Vec3
	best := float32(-1)
	for axis := 0; axis < 3; axis++ {
		rel := float32(math.Abs(float64(point[axis] / s[axis])))
		if rel > best {
			best = rel
			normal = types.Vec3{}
			normal[axis] = float32(math.Copysign(1, float64(point[axis])))
		}
	}
	return t, normal, true
}
