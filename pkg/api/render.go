package api

import (
	"bytes"
	"errors"
	"io"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/imageio"
	"github.com/lemonberrylabs/holomorph/pkg/remap"
	"github.com/lemonberrylabs/holomorph/pkg/store"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// Render modes.
const (
	ModeDirect = "direct"
	ModeLookup = "lookup"
)

// RenderRequest describes an encoded image to remap. Exactly one of
// Expression and Name is set; Name refers to a stored expression.
type RenderRequest struct {
	Image      io.Reader
	Expression string
	Name       string
	// Width and Height resize the decoded image first when both are set.
	Width   int
	Height  int
	Format  string
	Quality int
	Mode    string
}

// Rendered is an encoded output image.
type Rendered struct {
	Data        []byte
	ContentType string
	Format      string
	Expression  string
	Width       int
	Height      int
}

// Render decodes, remaps and re-encodes an image. Stored expressions in
// lookup mode use the store's table cache.
func Render(s *store.Store, req RenderRequest) (*Rendered, error) {
	format, err := imageio.NormalizeFormat(req.Format)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if req.Mode != ModeDirect && req.Mode != ModeLookup {
		return nil, invalidf("unknown mode '%s' (want %s or %s)", req.Mode, ModeDirect, ModeLookup)
	}

	var tree expr.Node
	switch {
	case req.Name != "" && req.Expression != "":
		return nil, invalidf("set either expression or name, not both")
	case req.Name != "":
		e, err := s.GetExpression(req.Name)
		if err != nil {
			return nil, err
		}
		tree = e.Tree
	default:
		if tree, err = expr.Parse(req.Expression); err != nil {
			return nil, err
		}
	}

	src, _, err := imageio.Decode(req.Image)
	if err != nil {
		if errors.Is(err, types.ErrTooLarge) {
			return nil, err
		}
		return nil, invalidf("%v", err)
	}
	if req.Width > 0 && req.Height > 0 {
		if src, err = imageio.Resize(src, req.Width, req.Height); err != nil {
			return nil, err
		}
	}

	var out *types.Image
	if req.Mode == ModeLookup {
		var t *remap.LookupTable
		if req.Name != "" {
			t, err = s.Table(req.Name, src.Width, src.Height)
		} else {
			t, err = remap.BuildLookup(tree, src.Width, src.Height)
		}
		if err != nil {
			return nil, err
		}
		if out, err = t.Apply(src); err != nil {
			return nil, err
		}
	} else {
		out = remap.Transform(src, tree)
	}

	var buf bytes.Buffer
	if err := imageio.Encode(&buf, out, format, req.Quality); err != nil {
		return nil, err
	}
	return &Rendered{
		Data:        buf.Bytes(),
		ContentType: imageio.ContentType(format),
		Format:      format,
		Expression:  expr.Format(tree),
		Width:       out.Width,
		Height:      out.Height,
	}, nil
}
