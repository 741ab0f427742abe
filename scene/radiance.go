package scene

import (
	"errors"
	"math"

	"github.com/achilleasa/stilltrace/tracer"
	"github.com/achilleasa/stilltrace/types"
)

// Secondary rays are offset along their direction by this amount.
const rayOffset float32 = 1e-4

var ErrNonFiniteRadiance = errors.New("scene: radiance evaluation produced a non-finite value")

// Evaluate the radiance arriving along a primary ray using a recursive
// path tracer. The scene must have been built.
func (s *Scene) Evaluate(ray types.Ray, rng tracer.Sampler) (types.Vec3, error) {
	if !s.built {
		return types.Vec3{}, ErrNotBuilt
	}

	radiance := s.trace(ray, rng, 0)
	if !radiance.IsFinite() {
		return types.Vec3{}, ErrNonFiniteRadiance
	}
	return radiance, nil
}

func (s *Scene) trace(ray types.Ray, rng tracer.Sampler, depth int) types.Vec3 {
	if depth >= s.RayDepth {
		return types.Vec3{}
	}

	hit, ok := s.intersect(ray)
	if !ok {
		return s.BgColor
	}

	mat := &hit.Primitive.Material
	point := ray.At(hit.T)

	switch mat.Type {
	case Metallic:
		dir := reflect(ray.Dir, hit.Normal)
		incoming := s.trace(spawn(point, dir), rng, depth+1)
		return mat.Emission.Add(mat.Color.MulVec(incoming))
	case Dielectric:
		return mat.Emission.Add(s.traceDielectric(ray, hit, point, rng, depth))
	default:
		dir := cosineSampleHemisphere(hit.Normal, rng)
		incoming := s.trace(spawn(point, dir), rng, depth+1)
		return mat.Emission.Add(mat.Color.MulVec(incoming))
	}
}

// Pick between reflection and refraction using the Schlick approximation
// of the Fresnel term. Refracted light entering the primitive is tinted by
// the material color.
func (s *Scene) traceDielectric(ray types.Ray, hit Hit, point types.Vec3, rng tracer.Sampler, depth int) types.Vec3 {
	mat := &hit.Primitive.Material

	eta1, eta2 := float32(1), mat.IOR
	if hit.Inside {
		eta1, eta2 = eta2, eta1
	}

	cosIn := -hit.Normal.Dot(ray.Dir)
	sinOut := eta1 / eta2 * float32(math.Sqrt(math.Max(0, float64(1-cosIn*cosIn))))
	reflected := reflect(ray.Dir, hit.Normal)

	// Total internal reflection.
	if sinOut >= 1 {
		return s.trace(spawn(point, reflected), rng, depth+1)
	}

	r0 := (eta1 - eta2) / (eta1 + eta2)
	r0 *= r0
	fresnel := r0 + (1-r0)*float32(math.Pow(float64(1-cosIn), 5))
	if rng.Float32() < fresnel {
		return s.trace(spawn(point, reflected), rng, depth+1)
	}

	cosOut := float32(math.Sqrt(float64(1 - sinOut*sinOut)))
	refracted := ray.Dir.Mul(eta1 / eta2).Add(hit.Normal.Mul(eta1/eta2*cosIn - cosOut)).Normalize()
	incoming := s.trace(spawn(point, refracted), rng, depth+1)
	if !hit.Inside {
		incoming = incoming.MulVec(mat.Color)
	}
	return incoming
}

func spawn(point, dir types.Vec3) types.Ray {
	return types.Ray{Origin: point.Add(dir.Mul(rayOffset)), Dir: dir}
}

func reflect(dir, normal types.Vec3) types.Vec3 {
	return dir.Sub(normal.Mul(2 * normal.Dot(dir))).Normalize()
}

// Draw a cosine-weighted direction on the hemisphere around n. With this
// distribution the diffuse BRDF and the cosine term cancel out with the pdf.
func cosineSampleHemisphere(n types.Vec3, rng tracer.Sampler) types.Vec3 {
	u1, u2 := rng.Float32(), rng.Float32()
	r := float32(math.Sqrt(float64(u1)))
	phi := 2 * math.Pi * float64(u2)

	x := r * float32(math.Cos(phi))
	y := r * float32(math.Sin(phi))
	z := float32(math.Sqrt(math.Max(0, float64(1-u1))))

	// Build an orthonormal basis around n.
	helper := types.Vec3{1, 0, 0}
	if math.Abs(float64(n[0])) > 0.9 {
		helper = types.Vec3{0, 1, 0}
	}
	tangent := helper.Cross(n).Normalize()
	bitangent := n.Cross(tangent)

	return tangent.Mul(x).Add(bitangent.Mul(y)).Add(n.Mul(z)).Normalize()
}
