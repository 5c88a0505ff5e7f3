package diagram

import (
	"context"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/rendis/codeflow/pkg/schema"
)

// Format names accepted by Render.
const (
	Mermaid = "mermaid"
	ASCII   = "ascii"
	DOT     = "dot"
	SVG     = "svg"
	PNG     = "png"
)

// Formats lists every supported format.
var Formats = []string{Mermaid, ASCII, DOT, SVG, PNG}

// Rendered is a diagram in one format.
type Rendered struct {
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Text reports whether Data is printable text.
func (r Rendered) Text() bool {
	return r.Format != PNG
}

// Render builds the model for g and renders it in format.
func Render(ctx context.Context, g schema.FlowchartGraph, format string) (Rendered, error) {
	model, err := Build(g)
	if err != nil {
		return Rendered{}, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case Mermaid:
		return Rendered{Format: format, ContentType: "text/plain; charset=utf-8", Data: []byte(RenderMermaid(model))}, nil
	case ASCII:
		return Rendered{Format: format, ContentType: "text/plain; charset=utf-8", Data: []byte(RenderASCII(model))}, nil
	case DOT, SVG, PNG:
		data, err := RenderGraphviz(ctx, model, graphvizFormats[format])
		if err != nil {
			return Rendered{}, schema.NewError(schema.ErrCodeInternal, err.Error()).WithCause(err)
		}
		return Rendered{Format: format, ContentType: contentTypes[format], Data: data}, nil
	default:
		return Rendered{}, schema.NewErrorf(schema.ErrCodeUnsupported,
			"unsupported diagram format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

var graphvizFormats = map[string]graphviz.Format{
	DOT: FormatDOT,
	SVG: FormatSVG,
	PNG: FormatPNG,
}

var contentTypes = map[string]string{
	DOT: "text/vnd.graphviz; charset=utf-8",
	SVG: "image/svg+xml",
	PNG: "image/png",
}
