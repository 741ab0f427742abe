package reader

import (
	"context"
	"fmt"

	"github.com/achilleasa/stilltrace/asset"
	"github.com/achilleasa/stilltrace/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// A ParseError describes a malformed or unreadable scene input. Line is 0
// when the error is not tied to a particular line.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("[%s] error: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("[%s: %d] error: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Read a scene from a local file or an http(s) URL. The returned scene has
// already been built and is ready for rendering.
func ReadScene(ctx context.Context, pathToScene string) (*scene.Scene, error) {
	res, err := asset.NewResource(ctx, pathToScene, nil)
	if err != nil {
		return nil, &ParseError{Path: pathToScene, Err: err}
	}
	defer res.Close()

	// Select reader based on file extension
	var reader Reader
	switch res.Ext() {
	case ".txt", ".scene", "":
		reader = newTextReader()
	default:
		return nil, &ParseError{Path: res.Path(), Err: fmt.Errorf("unsupported scene format %q", res.Ext())}
	}
	return reader.Read(res)
}
