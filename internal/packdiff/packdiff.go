// Package packdiff shows what one customer pack discloses that another
// does not, as a line diff over their markdown renderings.
package packdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/render"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// Change is one added or removed line.
type Change struct {
	Op   string // "+" or "-"
	Text string
}

// Result is the disclosure diff from pack A to pack B.
type Result struct {
	// SameContent is true when both checksums match.
	SameContent bool
	Changes     []Change
	// Patch is the diff-match-patch text transforming A's rendering into B's.
	Patch string
}

// String renders the changes as unified-style lines.
func (r *Result) String() string {
	var b strings.Builder
	for _, c := range r.Changes {
		fmt.Fprintf(&b, "%s %s\n", c.Op, c.Text)
	}
	return b.String()
}

// Diff compares two packs. Generation metadata (pack id, time, actor,
// checksum) is left out of the comparison.
func Diff(a, b *schema.CustomerPack) (*Result, error) {
	ra, err := body(a)
	if err != nil {
		return nil, err
	}
	rb, err := body(b)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(ra, rb)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	res := &Result{SameContent: a.Checksum != "" && a.Checksum == b.Checksum}
	for _, d := range diffs {
		var op string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = "+"
		case diffmatchpatch.DiffDelete:
			op = "-"
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			res.Changes = append(res.Changes, Change{Op: op, Text: line})
		}
	}
	res.Patch = dmp.PatchToText(dmp.PatchMake(ra, diffs))
	return res, nil
}

// metadataPrefixes mark the rendered lines that differ between every two
// generations.
var metadataPrefixes = []string{"**Pack:**", "**Generated:**", "**Checksum:**"}

func body(p *schema.CustomerPack) (string, error) {
	r, err := render.NewRenderer("md")
	if err != nil {
		return "", err
	}
	out, err := r.RenderPack(p)
	if err != nil {
		return "", err
	}
	return normalize(string(out)), nil
}

// normalize drops metadata lines, trims trailing whitespace from each line
// and converts CRLF to LF.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if isMetadata(line) {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}

func isMetadata(line string) bool {
	for _, p := range metadataPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
