package reader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/stilltrace/asset"
	"github.com/achilleasa/stilltrace/scene"
	"github.com/achilleasa/stilltrace/types"
	"github.com/google/go-cmp/cmp"
)

func mockResource(payload string) *asset.Resource {
	return asset.NewResourceFromStream("embedded", strings.NewReader(payload))
}

func TestFloat32Parser(t *testing.T) {
	expError := `unsupported syntax for "IOR"; expected 1 argument; got 0`
	_, err := parseFloat32([]string{"IOR"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseFloat32([]string{"IOR", "not-a-float"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseFloat32([]string{"IOR", "1.5"})
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.5 {
		t.Fatalf("expected parsed value to be 1.5; got %f", v)
	}
}

func TestVec3Parser(t *testing.T) {
	expError := `unsupported syntax for "COLOR"; expected 3 arguments; got 0`
	_, err := parseVec3([]string{"COLOR"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec3([]string{"COLOR", "not-a-float", "2", "3"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec3([]string{"COLOR", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(types.Vec3{3.14, 0, 0.4}, v); diff != "" {
		t.Fatalf("unexpected parsed value (-want +got):\n%s", diff)
	}
}

func TestParseScene(t *testing.T) {
	payload := `
# a small test scene
DIMENSIONS 64 48
SAMPLES 8
RAY_DEPTH 4
BG_COLOR 0.1 0.2 0.3
CAMERA_POSITION 0 1 5
CAMERA_FOV_X 1.2

NEW_PRIMITIVE
COLOR 0.5 0.5 0.5
PLANE 0 1 0

NEW_PRIMITIVE
ELLIPSOID 1 2 1
POSITION 0 1 -2
ROTATION 0 0 0 2
EMISSION 3 3 3
DIELECTRIC
IOR 1.33

NEW_PRIMITIVE
BOX 0.5 0.5 0.5
METALLIC
SPECULAR 1 1 1
`
	sc, err := newTextReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	if sc.Width() != 64 || sc.Height() != 48 || sc.SamplesPerPixel() != 8 || sc.RayDepth != 4 {
		t.Fatalf("unexpected frame settings: %dx%d, %d samples, depth %d", sc.Width(), sc.Height(), sc.SamplesPerPixel(), sc.RayDepth)
	}
	if diff := cmp.Diff(types.Vec3{0.1, 0.2, 0.3}, sc.BgColor); diff != "" {
		t.Fatalf("unexpected bg color (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(types.Vec3{0, 1, 5}, sc.Camera.Position); diff != "" {
		t.Fatalf("unexpected camera position (-want +got):\n%s", diff)
	}
	if sc.Camera.FovX != 1.2 {
		t.Fatalf("expected camera fov 1.2; got %f", sc.Camera.FovX)
	}

	if len(sc.Primitives) != 3 {
		t.Fatalf("expected 3 primitives; got %d", len(sc.Primitives))
	}

	plane, ellipsoid, box := sc.Primitives[0], sc.Primitives[1], sc.Primitives[2]
	if plane.Type != scene.PlanePrimitive || plane.Material.Color != (types.Vec3{0.5, 0.5, 0.5}) {
		t.Fatalf("unexpected plane definition %+v", plane)
	}

	expEllipsoid := scene.Material{
		Type:     scene.Dielectric,
		Color:    types.Vec3{1, 1, 1},
		Emission: types.Vec3{3, 3, 3},
		IOR:      1.33,
	}
	if diff := cmp.Diff(expEllipsoid, ellipsoid.Material); diff != "" {
		t.Fatalf("unexpected ellipsoid material (-want +got):\n%s", diff)
	}
	if ellipsoid.Position != (types.Vec3{0, 1, -2}) {
		t.Fatalf("unexpected ellipsoid position %v", ellipsoid.Position)
	}
	// Build normalizes rotations.
	if ellipsoid.Rotation != types.QuatIdent() {
		t.Fatalf("expected normalized identity rotation; got %+v", ellipsoid.Rotation)
	}

	if box.Type != scene.BoxPrimitive || box.Material.Type != scene.Metallic {
		t.Fatalf("unexpected box definition %+v", box)
	}
}

func TestPropertiesBeforeShape(t *testing.T) {
	payload := `
DIMENSIONS 4 4
NEW_PRIMITIVE
POSITION 1 2 3
COLOR 0 1 0
BOX 1 1 1
`
	sc, err := newTextReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}
	box := sc.Primitives[0]
	if box.Position != (types.Vec3{1, 2, 3}) || box.Material.Color != (types.Vec3{0, 1, 0}) {
		t.Fatalf("expected properties declared ahead of the shape to apply; got %+v", box)
	}
}

func TestParseErrors(t *testing.T) {
	type spec struct {
		payload  string
		expError string
	}
	specs := []spec{
		{"SAMPLES 4", "[embedded] error: missing DIMENSIONS"},
		{"DIMENSIONS 0 4", "[embedded: 1] error: frame dimensions must be positive; got 0 x 4"},
		{"DIMENSIONS 4", `[embedded: 1] error: unsupported syntax for "DIMENSIONS"; expected 2 arguments; got 1`},
		{"DIMENSIONS 4 4\nSAMPLES -1", "[embedded: 2] error: samples per pixel must be positive; got -1"},
		{"DIMENSIONS 4 4\n\nCOLOR 1 1 1", `[embedded: 3] error: got "COLOR" without a "NEW_PRIMITIVE"`},
		{"DIMENSIONS 4 4\nBOX 1 1 1", `[embedded: 2] error: got "BOX" without a "NEW_PRIMITIVE"`},
		{"DIMENSIONS 4 4\nNEW_PRIMITIVE\nELLIPSOID 1 0 1", "[embedded: 3] error: ellipsoid radii must be positive; got [1 0 1]"},
		{"DIMENSIONS 4 4\nNEW_PRIMITIVE\nCOLOR 1 1 1", `[embedded: 3] error: "NEW_PRIMITIVE" block without a shape`},
		{"DIMENSIONS 4 4\nNEW_PRIMITIVE\nBOX 1 1 1\nROTATION 0 0 0 0", "[embedded: 4] error: rotation quaternion must not be zero"},
	}

	for index, s := range specs {
		_, err := newTextReader().Read(mockResource(s.payload))
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("[spec %d] expected a *ParseError; got %v", index, err)
		}
		if err.Error() != s.expError {
			t.Fatalf("[spec %d] expected error %q; got %q", index, s.expError, err.Error())
		}
	}
}

func TestReadScene(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.txt")
	if err := os.WriteFile(scenePath, []byte("DIMENSIONS 3 2\nSAMPLES 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := ReadScene(context.Background(), scenePath)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Width() != 3 || sc.Height() != 2 || sc.SamplesPerPixel() != 2 {
		t.Fatalf("unexpected scene settings %dx%d/%d", sc.Width(), sc.Height(), sc.SamplesPerPixel())
	}

	_, err = ReadScene(context.Background(), filepath.Join(dir, "missing.txt"))
	var perr *ParseError
	if !errors.As(err, &perr) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a *ParseError wrapping a not-exist error; got %v", err)
	}

	unsupported := filepath.Join(dir, "scene.obj")
	if err = os.WriteFile(unsupported, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ReadScene(context.Background(), unsupported)
	if !errors.As(err, &perr) || !strings.Contains(err.Error(), `unsupported scene format ".obj"`) {
		t.Fatalf("expected unsupported format error; got %v", err)
	}
}

func TestReadRemoteScene(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("DIMENSIONS 8 8\nNEW_PRIMITIVE\nELLIPSOID 1 1 1\n"))
	}))
	defer server.Close()

	sc, err := ReadScene(context.Background(), server.URL+"/scenes/sphere.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Primitives) != 1 || sc.Primitives[0].Type != scene.EllipsoidPrimitive {
		t.Fatalf("unexpected remote scene primitives %v", sc.Primitives)
	}
}
