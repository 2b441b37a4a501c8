package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	canonical "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/template"
)

type markdownRenderer struct{}

var funcs = template.FuncMap{
	"display": display,
	"deref":   deref,
	"reason":  reasonText,
}

var packTemplate = template.Must(template.New("pack").Funcs(funcs).Parse(`# Customer Pack {{ .Pack.InvestigationRef }}

**Pack:** {{ .Pack.PackID }}
**Audience:** {{ .Pack.PackType }}
**Generated:** {{ .Pack.GeneratedAt.Format "2006-01-02T15:04:05Z07:00" }} by {{ .Pack.GeneratedBy }}
**Checksum:** ` + "`{{ .Pack.Checksum }}`" + `
{{ if .Pack.Warnings }}
> **Warnings**
{{ range .Pack.Warnings }}> - {{ .Code }} ({{ .Path }}): {{ .Message }}
{{ end }}{{ end }}{{ range .Sections }}
## {{ .Title }}
{{ range .Fields }}
- **{{ .Name }}:** {{ display .Value }}{{ end }}
{{ end }}{{ if .Pack.Evidence }}
## Evidence
{{ range .Pack.Evidence }}
- {{ .AssetID }} ({{ .AssetType }}): {{ .Disposition }}{{ if .RedactionNote }}. {{ .RedactionNote }}{{ end }}{{ if .ExclusionReason }}. {{ .ExclusionReason }}{{ end }}{{ end }}
{{ end }}
---
*Redaction log: {{ .Included }} included, {{ .Redacted }} redacted, {{ .Excluded }} excluded*
`))

var draftTemplate = template.Must(template.New("draft").Funcs(funcs).Parse(`# Investigation Draft {{ .Report.Draft.ReferenceNumber }}

**Source:** {{ .Report.Draft.SourceType }} {{ .Report.Draft.SourceID }} (schema {{ .Report.Draft.SchemaVersion }})
**Severity:** {{ if .Report.Draft.Severity }}{{ deref .Report.Draft.Severity }}{{ else }}not applicable (gated as {{ .Report.Review.EffectiveLevel }}){{ end }}
**Verdict:** {{ .Report.Review.Verdict }}
**Success:** {{ .Report.Review.SuccessCount }} | **Fallback:** {{ .Report.Review.FallbackCount }} | **Error:** {{ .Report.Review.ErrorCount }}
{{ if .Report.Review.MissingRequired }}
**Missing required fields:**
{{ range .Report.Review.MissingRequired }}- {{ . }}
{{ end }}{{ end }}{{ range .Sections }}
## {{ .Title }}{{ if not .Applicable }} (not applicable){{ end }}
{{ range .Fields }}
- **{{ .Name }}:** {{ display .Value }}{{ end }}
{{ end }}
## Mapping Log

| # | Target | Source | Transform | Result | Reason |
|---|--------|--------|-----------|--------|--------|
{{ range $i, $e := .Report.MappingLog }}| {{ $i }} | {{ $e.TargetField }} | {{ if $e.SourceField }}{{ deref $e.SourceField }}{{ end }} | {{ $e.Transform }} | {{ $e.Result }} | {{ reason $e.ReasonCode }} |
{{ end }}`))

type fieldView struct {
	Name  string
	Value any
}

type sectionView struct {
	Title      string
	Applicable bool
	Fields     []fieldView
}

type packView struct {
	Pack                         *schema.CustomerPack
	Sections                     []sectionView
	Included, Redacted, Excluded int
}

type draftView struct {
	Report   *schema.DraftReport
	Sections []sectionView
}

func (r *markdownRenderer) RenderPack(p *schema.CustomerPack) ([]byte, error) {
	v := packView{Pack: p}
	for _, group := range [][]schema.PackSection{p.Sections, p.Addenda} {
		for _, s := range group {
			v.Sections = append(v.Sections, sectionView{
				Title:      s.Title,
				Applicable: true,
				Fields:     orderedFields(s.ID, s.Fields),
			})
		}
	}
	for _, d := range p.RedactionLog {
		switch d.Decision {
		case schema.DecisionInclude:
			v.Included++
		case schema.DecisionRedact:
			v.Redacted++
		case schema.DecisionExclude:
			v.Excluded++
		}
	}
	var buf bytes.Buffer
	if err := packTemplate.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *markdownRenderer) RenderDraft(report *schema.DraftReport) ([]byte, error) {
	d := &report.Draft
	v := draftView{Report: report}
	for _, c := range canonical.Containers(d.SourceType) {
		vals := d.Sections[c.ID]
		if schema.IsAddendum(c.ID) {
			vals = d.Addenda[c.ID]
		}
		v.Sections = append(v.Sections, sectionView{
			Title:      c.Title,
			Applicable: d.IsApplicable(c.ID),
			Fields:     orderedFields(c.ID, vals),
		})
	}
	var buf bytes.Buffer
	if err := draftTemplate.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// orderedFields lists a container's values in template order. Names the
// template does not know follow in lexical order.
func orderedFields(container string, vals schema.Values) []fieldView {
	out := make([]fieldView, 0, len(vals))
	known := make(map[string]bool)
	var def canonical.SectionDef
	if s, ok := canonical.Section(container); ok {
		def = s
	} else {
		for _, st := range schema.SourceTypes() {
			if a, ok := canonical.Addendum(st); ok && a.ID == container {
				def = a
			}
		}
	}
	for _, f := range def.Fields {
		if v, ok := vals[f.Name]; ok {
			out = append(out, fieldView{Name: f.Name, Value: v})
			known[f.Name] = true
		}
	}
	var extra []string
	for name := range vals {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, fieldView{Name: name, Value: vals[name]})
	}
	return out
}

// display formats a field value on one line.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "_(no value)_"
	case string:
		return strings.ReplaceAll(t, "\n", " ")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = display(e)
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func deref(v any) string {
	switch t := v.(type) {
	case *string:
		return *t
	case *schema.Level:
		return string(*t)
	}
	return fmt.Sprint(v)
}

func reasonText(c *schema.ReasonCode) string {
	if c == nil {
		return ""
	}
	return string(*c)
}
