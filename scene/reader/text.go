package reader

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/stilltrace/asset"
	"github.com/achilleasa/stilltrace/log"
	"github.com/achilleasa/stilltrace/scene"
	"github.com/achilleasa/stilltrace/types"
)

var errMissingDimensions = errors.New("missing DIMENSIONS")

// Reads the line oriented keyword scene format. Each non-empty line starts
// with a keyword followed by its arguments; lines starting with '#' are
// comments. Primitive properties apply to the primitive declared by the
// most recent NEW_PRIMITIVE block.
type textSceneReader struct {
	logger log.Logger

	scene *scene.Scene

	// The primitive currently being defined; nil until NEW_PRIMITIVE
	// is followed by a shape keyword.
	curPrim *scene.Primitive

	// Set by NEW_PRIMITIVE and cleared once the shape is known.
	pendingPrim bool

	// Material and transform keywords may precede the shape keyword.
	pending scene.Primitive

	sawDimensions bool
}

func newTextReader() *textSceneReader {
	return &textSceneReader{
		logger: log.New("text scene reader"),
		scene:  scene.NewScene(),
	}
}

// Read scene definition.
func (r *textSceneReader) Read(res *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, res.Path())
	start := time.Now()

	lineNum, err := r.parse(res)
	if err != nil {
		return nil, &ParseError{Path: res.Path(), Line: lineNum, Err: err}
	}

	if !r.sawDimensions {
		return nil, &ParseError{Path: res.Path(), Err: errMissingDimensions}
	}

	if err = r.scene.Build(); err != nil {
		return nil, &ParseError{Path: res.Path(), Err: err}
	}

	r.logger.Noticef("parsed scene with %d primitives in %d ms", len(r.scene.Primitives), time.Since(start).Nanoseconds()/1e6)
	return r.scene, nil
}

// Parse scene lines; on error the offending line number is returned.
func (r *textSceneReader) parse(res *asset.Resource) (int, error) {
	var lineNum int
	var err error

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "DIMENSIONS":
			var dims [2]int
			if dims, err = parseInts2(lineTokens); err != nil {
				return lineNum, err
			}
			if dims[0] <= 0 || dims[1] <= 0 {
				return lineNum, fmt.Errorf("frame dimensions must be positive; got %d x %d", dims[0], dims[1])
			}
			r.scene.FrameW, r.scene.FrameH = dims[0], dims[1]
			r.sawDimensions = true
		case "SAMPLES":
			if r.scene.Samples, err = parseInt(lineTokens); err != nil {
				return lineNum, err
			}
			if r.scene.Samples <= 0 {
				return lineNum, fmt.Errorf("samples per pixel must be positive; got %d", r.scene.Samples)
			}
		case "RAY_DEPTH":
			if r.scene.RayDepth, err = parseInt(lineTokens); err != nil {
				return lineNum, err
			}
			if r.scene.RayDepth < 0 {
				return lineNum, fmt.Errorf("ray depth must not be negative; got %d", r.scene.RayDepth)
			}
		case "BG_COLOR":
			if r.scene.BgColor, err = parseVec3(lineTokens); err != nil {
				return lineNum, err
			}
		case "CAMERA_POSITION":
			if r.scene.Camera.Position, err = parseVec3(lineTokens); err != nil {
				return lineNum, err
			}
		case "CAMERA_RIGHT":
			if r.scene.Camera.Right, err = parseVec3(lineTokens); err != nil {
				return lineNum, err
			}
		case "CAMERA_UP":
			if r.scene.Camera.Up, err = parseVec3(lineTokens); err != nil {
				return lineNum, err
			}
		case "CAMERA_FORWARD":
			if r.scene.Camera.Forward, err = parseVec3(lineTokens); err != nil {
				return lineNum, err
			}
		case "CAMERA_FOV_X":
			if r.scene.Camera.FovX, err = parseFloat32(lineTokens); err != nil {
				return lineNum, err
			}
		case "NEW_PRIMITIVE":
			r.curPrim = nil
			r.pendingPrim = true
			r.pending = scene.Primitive{Rotation: types.QuatIdent(), Material: scene.DefaultMaterial()}
		case "PLANE", "ELLIPSOID", "BOX":
			if err = r.defineShape(lineTokens); err != nil {
				return lineNum, err
			}
		case "POSITION", "ROTATION", "COLOR", "EMISSION", "METALLIC", "DIELECTRIC", "IOR":
			prim := r.target()
			if prim == nil {
				return lineNum, fmt.Errorf(`got "%s" without a "NEW_PRIMITIVE"`, lineTokens[0])
			}
			if err = setPrimitiveProperty(prim, lineTokens); err != nil {
				return lineNum, err
			}
		default:
			r.logger.Debugf("[%s: %d] skipping unsupported keyword %q", res.Path(), lineNum, lineTokens[0])
		}
	}

	if err = scanner.Err(); err != nil {
		return lineNum, err
	}
	if r.pendingPrim {
		return lineNum, errors.New(`"NEW_PRIMITIVE" block without a shape`)
	}
	return 0, nil
}

// Returns the primitive that property keywords currently apply to.
func (r *textSceneReader) target() *scene.Primitive {
	if r.pendingPrim {
		return &r.pending
	}
	return r.curPrim
}

func (r *textSceneReader) defineShape(lineTokens []string) error {
	if !r.pendingPrim {
		return fmt.Errorf(`got "%s" without a "NEW_PRIMITIVE"`, lineTokens[0])
	}

	dims, err := parseVec3(lineTokens)
	if err != nil {
		return err
	}

	var prim *scene.Primitive
	switch lineTokens[0] {
	case "PLANE":
		if dims.Len() == 0 {
			return errors.New("plane normal must not be zero")
		}
		prim = scene.NewPlane(dims)
	case "ELLIPSOID":
		if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
			return fmt.Errorf("ellipsoid radii must be positive; got %v", dims)
		}
		prim = scene.NewEllipsoid(dims)
	case "BOX":
		if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
			return fmt.Errorf("box size must be positive; got %v", dims)
		}
		prim = scene.NewBox(dims)
	}

	// Apply properties declared ahead of the shape.
	prim.Position = r.pending.Position
	prim.Rotation = r.pending.Rotation
	prim.Material = r.pending.Material

	if err = r.scene.AddPrimitive(prim); err != nil {
		return err
	}
	r.curPrim = prim
	r.pendingPrim = false
	return nil
}

func setPrimitiveProperty(prim *scene.Primitive, lineTokens []string) error {
	var err error
	switch lineTokens[0] {
	case "POSITION":
		prim.Position, err = parseVec3(lineTokens)
	case "ROTATION":
		var q [4]float32
		if q, err = parseFloats4(lineTokens); err != nil {
			return err
		}
		prim.Rotation = types.QuatXYZW(q[0], q[1], q[2], q[3])
		if prim.Rotation.Len() == 0 {
			return errors.New("rotation quaternion must not be zero")
		}
	case "COLOR":
		prim.Material.Color, err = parseVec3(lineTokens)
	case "EMISSION":
		prim.Material.Emission, err = parseVec3(lineTokens)
	case "METALLIC":
		prim.Material.Type = scene.Metallic
	case "DIELECTRIC":
		prim.Material.Type = scene.Dielectric
	case "IOR":
		prim.Material.IOR, err = parseFloat32(lineTokens)
		if err == nil && prim.Material.IOR <= 0 {
			err = fmt.Errorf("index of refraction must be positive; got %v", prim.Material.IOR)
		}
	}
	return err
}

// Parse a scalar float row.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

func parseFloats4(lineTokens []string) ([4]float32, error) {
	var v [4]float32
	if len(lineTokens) < 5 {
		return v, fmt.Errorf(`unsupported syntax for "%s"; expected 4 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}
	for tokIdx := 1; tokIdx <= 4; tokIdx++ {
		val, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(val)
	}
	return v, nil
}

func parseInt(lineTokens []string) (int, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}
	return strconv.Atoi(lineTokens[1])
}

func parseInts2(lineTokens []string) ([2]int, error) {
	var v [2]int
	if len(lineTokens) < 3 {
		return v, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		val, err := strconv.Atoi(lineTokens[tokIdx])
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = val
	}
	return v, nil
}
