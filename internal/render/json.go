package render

import (
	"encoding/json"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

type jsonRenderer struct{}

func (r *jsonRenderer) RenderDraft(report *schema.DraftReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

func (r *jsonRenderer) RenderPack(p *schema.CustomerPack) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
