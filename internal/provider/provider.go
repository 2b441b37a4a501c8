// Package provider defines the read-only collaborators the pipeline
// consumes and file-backed implementations of them.
package provider

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema/validate"
)

// ErrNotFound is returned when a provider has no record for the request.
var ErrNotFound = errors.New("record not found")

// SourceProvider returns the snapshot of one source record.
type SourceProvider interface {
	Snapshot(ctx context.Context, t schema.SourceType, sourceID string) (*Snapshot, error)
}

// EvidenceProvider returns the evidence metadata linked to an investigation.
type EvidenceProvider interface {
	Evidence(ctx context.Context, investigationRef string) ([]schema.EvidenceAsset, error)
}

// ActorResolver turns a caller-supplied actor into the opaque id stamped
// on packs.
type ActorResolver interface {
	Resolve(ctx context.Context, actor string) (string, error)
}

// Snapshot is a loaded snapshot document with its content hash.
type Snapshot struct {
	Path     string
	Hash     string // "sha256:<hex>" of the file bytes
	Snapshot *schema.SourceSnapshot
}

// LoadSnapshot reads, hashes and validates a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	snap, err := validate.ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return &Snapshot{
		Path:     path,
		Hash:     fmt.Sprintf("sha256:%x", sum),
		Snapshot: snap,
	}, nil
}

// LoadEvidence reads and validates an evidence metadata file.
func LoadEvidence(path string) ([]schema.EvidenceAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading evidence file: %w", err)
	}
	assets, err := validate.ParseEvidence(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return assets, nil
}

// Dir serves snapshots from <Root>/<source_type>/<source_id>.json and
// evidence from <Root>/evidence/<investigation_reference>.json.
type Dir struct {
	Root string
}

// Snapshot implements SourceProvider.
func (d Dir) Snapshot(ctx context.Context, t schema.SourceType, sourceID string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !schema.IsValidSourceType(t) {
		return nil, fmt.Errorf("unknown source type %q", t)
	}
	name, err := fileName(sourceID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(d.Root, string(t), name)
	s, err := LoadSnapshot(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: snapshot %s/%s", ErrNotFound, t, sourceID)
	}
	if err != nil {
		return nil, err
	}
	if s.Snapshot.SourceType != t || s.Snapshot.SourceID != sourceID {
		return nil, fmt.Errorf("%s: holds %s/%s, not %s/%s", path, s.Snapshot.SourceType, s.Snapshot.SourceID, t, sourceID)
	}
	return s, nil
}

// Evidence implements EvidenceProvider. An investigation without an
// evidence file has no evidence.
func (d Dir) Evidence(ctx context.Context, investigationRef string) ([]schema.EvidenceAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := fileName(investigationRef)
	if err != nil {
		return nil, err
	}
	assets, err := LoadEvidence(filepath.Join(d.Root, "evidence", name))
	if errors.Is(err, os.ErrNotExist) {
		return []schema.EvidenceAsset{}, nil
	}
	return assets, err
}

// fileName rejects ids that would escape their directory.
func fileName(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid record id %q", id)
	}
	return id + ".json", nil
}

// OpaqueActors accepts any non-blank actor id unchanged.
type OpaqueActors struct{}

// Resolve implements ActorResolver.
func (OpaqueActors) Resolve(_ context.Context, actor string) (string, error) {
	id := strings.TrimSpace(actor)
	if id == "" {
		return "", errors.New("actor id is required")
	}
	return id, nil
}
