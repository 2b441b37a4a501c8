// Package pipeline exposes the two entry points of the core: normalizing a
// source snapshot into a reviewed draft, and generating a customer pack
// from a draft. Each call runs against the rule snapshot current when it
// starts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/config"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/normalize"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/pack"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/provider"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/redact"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/review"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// Archiver persists generated packs.
type Archiver interface {
	Store(ctx context.Context, p *schema.CustomerPack) error
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	store     *config.Store
	assembler *pack.Assembler
	actors    provider.ActorResolver
	archive   Archiver
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAssembler replaces the default pack assembler.
func WithAssembler(a *pack.Assembler) Option {
	return func(p *Pipeline) { p.assembler = a }
}

// WithActorResolver replaces the default opaque actor resolver.
func WithActorResolver(r provider.ActorResolver) Option {
	return func(p *Pipeline) { p.actors = r }
}

// WithArchive stores every generated pack in a.
func WithArchive(a Archiver) Option {
	return func(p *Pipeline) { p.archive = a }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New returns a pipeline reading rules from store.
func New(store *config.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		assembler: pack.NewAssembler(),
		actors:    provider.OpaqueActors{},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Normalize maps snap onto a draft, gates it by severity and reviews it.
// Errors are limited to unknown source types and unsupported schema
// versions; field-level problems are reported in the mapping log.
func (p *Pipeline) Normalize(ctx context.Context, snap *schema.SourceSnapshot) (*schema.DraftReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.New("pipeline: nil snapshot")
	}
	rules := p.store.Current()

	if err := rules.Registry.CheckVersion(snap.SourceType, snap.SchemaVersion); err != nil {
		return nil, fmt.Errorf("pipeline: snapshot %s/%s: %w", snap.SourceType, snap.SourceID, err)
	}
	draft, log, err := normalize.Normalize(rules.Registry, snap)
	if err != nil {
		return nil, fmt.Errorf("pipeline: snapshot %s/%s: %w", snap.SourceType, snap.SourceID, err)
	}
	rules.Gate.Annotate(draft)
	rev := review.Summarize(draft, log, rules.Gate)

	attrs := []any{
		"source_type", snap.SourceType,
		"source_id", snap.SourceID,
		"rules", len(log),
		"fallbacks", rev.FallbackCount,
		"errors", rev.ErrorCount,
		"level", rev.EffectiveLevel,
		"verdict", rev.Verdict,
	}
	if rev.ErrorCount > 0 {
		p.logger.Warn("normalize complete with mapping errors", attrs...)
	} else {
		p.logger.Info("normalize complete", attrs...)
	}
	return &schema.DraftReport{Draft: *draft, MappingLog: log, Review: rev}, nil
}

// GeneratePack redacts draft and its evidence for audience and assembles a
// checksummed pack stamped with the resolved actor. The draft and assets
// are not modified.
func (p *Pipeline) GeneratePack(ctx context.Context, draft *schema.InvestigationDraft, assets []schema.EvidenceAsset, audience schema.PackType, actor string) (*schema.CustomerPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, errors.New("pipeline: nil draft")
	}
	actorID, err := p.actors.Resolve(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolving actor: %w", err)
	}
	rules := p.store.Current()

	d := draft
	if d.ApplicableSections == nil {
		gated := *draft
		rules.Gate.Annotate(&gated)
		d = &gated
	}

	view, err := rules.Redactor.Apply(d, assets, audience)
	if errors.Is(err, redact.ErrDataQuality) {
		p.logger.Warn("pack generation refused",
			"investigation_reference", d.ReferenceNumber,
			"pack_type", audience,
			"error", err,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	for _, w := range view.Warnings {
		p.logger.Warn("evidence data-quality warning",
			"investigation_reference", d.ReferenceNumber,
			"code", w.Code,
			"path", w.Path,
		)
	}
	for i := 1; i <= len(view.Withheld); i++ {
		token := fmt.Sprintf("withheld-%d", i)
		p.logger.Info("evidence withheld",
			"investigation_reference", d.ReferenceNumber,
			"pack_type", audience,
			"log_path", token,
			"asset_id", view.Withheld[token],
		)
	}

	cp, err := p.assembler.Assemble(d, view, actorID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if p.archive != nil {
		if err := p.archive.Store(ctx, cp); err != nil {
			return nil, fmt.Errorf("pipeline: archiving pack %s: %w", cp.PackID, err)
		}
	}

	included, redacted, excluded := decisionCounts(cp.RedactionLog)
	p.logger.Info("pack generated",
		"pack_id", cp.PackID,
		"pack_type", cp.PackType,
		"investigation_reference", cp.InvestigationRef,
		"included", included,
		"redacted", redacted,
		"excluded", excluded,
		"warnings", len(cp.Warnings),
		"checksum", cp.Checksum,
	)
	return cp, nil
}

func decisionCounts(log []schema.RedactionDecision) (included, redacted, excluded int) {
	for _, d := range log {
		switch d.Decision {
		case schema.DecisionInclude:
			included++
		case schema.DecisionRedact:
			redacted++
		case schema.DecisionExclude:
			excluded++
		}
	}
	return included, redacted, excluded
}
