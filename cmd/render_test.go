package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/stilltrace/asset/image"
	"github.com/achilleasa/stilltrace/log"
	"github.com/achilleasa/stilltrace/scene/reader"
	"github.com/google/go-cmp/cmp"
)

func init() {
	log.SetSink(io.Discard)
}

func writeScene(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.txt")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runApp(args ...string) error {
	app := NewApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	return app.Run(append([]string{"stilltrace"}, args...))
}

func TestUsageErrors(t *testing.T) {
	specs := [][]string{
		{},
		{"scene.txt"},
		{"scene.txt", "out.ppm", "extra"},
		{"--workers", "2", "scene.txt"},
	}

	for index, args := range specs {
		err := runApp(args...)
		if !errors.Is(err, ErrUsage) {
			t.Fatalf("[spec %d] expected a usage error; got %v", index, err)
		}
		if code := ExitCode(err); code != ExitUsage {
			t.Fatalf("[spec %d] expected exit status %d; got %d", index, ExitUsage, code)
		}
	}
}

func TestRenderBlackFrame(t *testing.T) {
	scenePath := writeScene(t, "DIMENSIONS 2 1\nSAMPLES 1\nBG_COLOR 0 0 0\n")
	outPath := filepath.Join(t.TempDir(), "out.ppm")

	err := runApp("--workers", "2", "--seed", "7", "--chunk-rows", "1", scenePath, outPath)
	if err != nil {
		t.Fatal(err)
	}
	if code := ExitCode(err); code != ExitOK {
		t.Fatalf("expected exit status %d; got %d", ExitOK, code)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	exp := append([]byte("P6\n2 1\n255\n"), 0, 0, 0, 0, 0, 0)
	if diff := cmp.Diff(exp, data); diff != "" {
		t.Fatalf("unexpected output image (-want +got):\n%s", diff)
	}
}

func TestRenderLitScene(t *testing.T) {
	scenePath := writeScene(t, `
DIMENSIONS 8 6
SAMPLES 4
BG_COLOR 0.2 0.3 0.5

NEW_PRIMITIVE
ELLIPSOID 1 1 1
POSITION 0 0 -4
EMISSION 2 2 2

NEW_PRIMITIVE
PLANE 0 1 0
POSITION 0 -1 0
COLOR 0.5 0.5 0.5
`)
	outPath := filepath.Join(t.TempDir(), "lit.ppm")

	if err := runApp("--seed", "1", scenePath, outPath); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	header := "P6\n8 6\n255\n"
	if len(data) != len(header)+3*8*6 || string(data[:len(header)]) != header {
		t.Fatalf("unexpected output image layout (%d bytes)", len(data))
	}

	// The emitter covers the center of the frame.
	center := len(header) + 3*(3*8+4)
	if data[center] == 0 {
		t.Fatalf("expected the frame center to be lit; got %v", data[center:center+3])
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	goodScene := writeScene(t, "DIMENSIONS 2 2\n")
	badScene := writeScene(t, "DIMENSIONS 2\n")

	err := runApp(badScene, filepath.Join(dir, "out.ppm"))
	var perr *reader.ParseError
	if !errors.As(err, &perr) || perr.Line != 1 {
		t.Fatalf("expected a parse error on line 1; got %v", err)
	}
	if code := ExitCode(err); code != ExitError {
		t.Fatalf("expected exit status %d; got %d", ExitError, code)
	}

	err = runApp(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "out.ppm"))
	if !errors.As(err, &perr) {
		t.Fatalf("expected a parse error for a missing scene; got %v", err)
	}

	unwritable := filepath.Join(dir, "missing-dir", "out.ppm")
	err = runApp(goodScene, unwritable)
	var werr *image.WriteError
	if !errors.As(err, &werr) || werr.Path != unwritable {
		t.Fatalf("expected a write error for %s; got %v", unwritable, err)
	}
	if code := ExitCode(err); code != ExitError {
		t.Fatalf("expected exit status %d; got %d", ExitError, code)
	}
	if _, err := os.Stat(unwritable); !os.IsNotExist(err) {
		t.Fatalf("expected no output file; got %v", err)
	}
}
