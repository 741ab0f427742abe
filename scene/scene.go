package scene

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/achilleasa/stilltrace/scene/bvh"
	"github.com/achilleasa/stilltrace/types"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

const (
	DefaultRayDepth = 6
	DefaultSamples  = 1

	// Max number of primitives stored in a BVH leaf.
	minLeafPrimitives = 2
)

var (
	ErrInvalidDimensions = errors.New("scene: frame dimensions must be positive")
	ErrInvalidSamples    = errors.New("scene: samples per pixel must be positive")
	ErrNotBuilt          = errors.New("scene: Build must be called before rendering")
)

// The Scene holds everything needed for rendering a frame. Once Build
// returns, the scene is immutable and safe for concurrent use.
type Scene struct {
	FrameW  int
	FrameH  int
	Samples int

	// Max path length.
	RayDepth int

	BgColor types.Vec3
	Camera  *Camera

	Primitives []*Primitive

	// Derived state populated by Build.
	built     bool
	planes    []*Primitive
	bounded   []*Primitive
	bvhNodes  []bvh.Node
	bvhStats  bvh.Stats
	primStats map[PrimitiveType]int
}

func NewScene() *Scene {
	return &Scene{
		Samples:    DefaultSamples,
		RayDepth:   DefaultRayDepth,
		Camera:     NewCamera(),
		Primitives: make([]*Primitive, 0),
	}
}

// Add a primitive to the scene.
func (s *Scene) AddPrimitive(primitive *Primitive) error {
	if s.built {
		return fmt.Errorf("scene: cannot add primitives after Build")
	}
	for _, prim := range s.Primitives {
		if prim == primitive {
			return fmt.Errorf("scene: primitive already added")
		}
	}
	s.Primitives = append(s.Primitives, primitive)
	return nil
}

// Validate the scene and eagerly compute all derived state (primitive
// bounds and the BVH). Build must be called before the scene is shared
// with rendering workers. Calling Build more than once is a no-op.
func (s *Scene) Build() error {
	if s.built {
		return nil
	}
	if s.FrameW <= 0 || s.FrameH <= 0 {
		return ErrInvalidDimensions
	}
	if s.Samples <= 0 {
		return ErrInvalidSamples
	}
	if s.Camera == nil {
		s.Camera = NewCamera()
	}

	s.primStats = make(map[PrimitiveType]int)
	workList := make([]bvh.BoundedVolume, 0, len(s.Primitives))
	for _, prim := range s.Primitives {
		prim.Rotation = prim.Rotation.Normalize()
		s.primStats[prim.Type]++
		if !prim.IsBounded() {
			s.planes = append(s.planes, prim)
			continue
		}
		prim.updateBBox()
		workList = append(workList, prim)
	}

	s.bounded = make([]*Primitive, 0, len(workList))
	s.bvhNodes, s.bvhStats = bvh.Build(workList, minLeafPrimitives, func(leaf *bvh.Node, items []bvh.BoundedVolume) {
		leaf.SetPrimitives(uint32(len(s.bounded)), uint32(len(items)))
		for _, item := range items {
			s.bounded = append(s.bounded, item.(*Primitive))
		}
	}, bvh.SurfaceAreaHeuristic)

	s.built = true
	return nil
}

// Frame width in pixels.
func (s *Scene) Width() int {
	return s.FrameW
}

// Frame height in pixels.
func (s *Scene) Height() int {
	return s.FrameH
}

// Samples per pixel.
func (s *Scene) SamplesPerPixel() int {
	return s.Samples
}

// Map (sub)pixel coordinates to a primary ray.
func (s *Scene) PixelToRay(coords types.Vec2) types.Ray {
	return s.Camera.Ray(coords, s.FrameW, s.FrameH)
}

// Find the closest intersection along a ray.
func (s *Scene) intersect(ray types.Ray) (Hit, bool) {
	closest := Hit{T: math.MaxFloat32}
	found := false

	for _, prim := range s.planes {
		if hit, ok := prim.Intersect(ray, closest.T); ok {
			closest, found = hit, true
		}
	}

	if len(s.bvhNodes) == 0 {
		return closest, found
	}

	invDir := types.Vec3{1 / ray.Dir[0], 1 / ray.Dir[1], 1 / ray.Dir[2]}
	var stack [64]uint32
	stack[0] = 0
	sp := 1
	for sp > 0 {
		sp--
		node := &s.bvhNodes[stack[sp]]
		if !node.Hit(ray.Origin, invDir, closest.T) {
			continue
		}

		if node.IsLeaf() {
			first, count := node.GetPrimitives()
			for _, prim := range s.bounded[first : first+count] {
				if hit, ok := prim.Intersect(ray, closest.T); ok {
					closest, found = hit, true
				}
			}
			continue
		}

		if sp+2 > len(stack) {
			// Tree deeper than the traversal stack; fall back to a
			// linear scan.
			return s.intersectLinear(ray, closest, found)
		}
		stack[sp] = uint32(node.LData)
		stack[sp+1] = uint32(node.RData)
		sp += 2
	}

	return closest, found
}

func (s *Scene) intersectLinear(ray types.Ray, closest Hit, found bool) (Hit, bool) {
	for _, prim := range s.bounded {
		if hit, ok := prim.Intersect(ray, closest.T); ok {
			closest, found = hit, true
		}
	}
	return closest, found
}

// Build a tabular representation of scene statistics.
func (s *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Frame", "Dimensions", fmt.Sprintf("%d x %d", s.FrameW, s.FrameH)})
	table.Append([]string{"", "Samples/pixel", fmt.Sprintf("%d", s.Samples)})
	table.Append([]string{"", "Ray depth", fmt.Sprintf("%d", s.RayDepth)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Primitives", "---", fmt.Sprintf("%d", len(s.Primitives))})
	for _, primType := range []PrimitiveType{PlanePrimitive, EllipsoidPrimitive, BoxPrimitive} {
		table.Append([]string{"", primType.String(), fmt.Sprintf("%d", s.primStats[primType])})
	}
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"BVH", "Nodes", fmt.Sprintf("%d (%s)", len(s.bvhNodes), humanize.Bytes(uint64(len(s.bvhNodes))*uint64(unsafe.Sizeof(bvh.Node{}))))})
	table.Append([]string{"", "Leafs", fmt.Sprintf("%d", s.bvhStats.Leafs)})
	table.Append([]string{"", "Max depth", fmt.Sprintf("%d", s.bvhStats.MaxDepth)})
	table.SetFooter([]string{"Total", " ", fmt.Sprintf("%d primitives", len(s.Primitives))})

	table.Render()
	return buf.String()
}
