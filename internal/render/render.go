package render

import (
	"fmt"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// Renderer formats drafts and packs into bytes for output.
type Renderer interface {
	RenderDraft(report *schema.DraftReport) ([]byte, error)
	RenderPack(p *schema.CustomerPack) ([]byte, error)
}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json" (default), "md".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are json, md", format)
	}
}
