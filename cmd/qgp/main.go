package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/archive"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/config"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/logging"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/pack"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/packdiff"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/pipeline"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/provider"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/redact"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/registry"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/render"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/review"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema/validate"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitGeneric   = 1
	exitFailOn    = 2
	exitInput     = 3
	exitIntegrity = 6
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// globalFlags are shared by every command.
type globalFlags struct {
	config   string
	logLevel string
}

// normalizeFlags holds the parsed flags for the normalize command.
type normalizeFlags struct {
	format    string
	out       string
	sourceDir string
	failOn    string
}

// generateFlags holds the parsed flags for the generate command.
type generateFlags struct {
	format    string
	out       string
	sourceDir string
	evidence  string
	audience  string
	actor     string
	archive   string
}

// verifyFlags holds the parsed flags for the verify command.
type verifyFlags struct {
	archive string
	packID  string
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(exitGeneric)
	}
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:     "qgp",
		Short:   "Normalize investigation sources and generate redacted customer packs",
		Long:    "qgp maps near-miss, complaint and road-traffic-collision records onto one investigation template and renders audited, checksummed customer packs from it.",
		Version: version,
	}
	root.PersistentFlags().StringVar(&g.config, "config", "", "Policy file (default $"+config.EnvPath+", else built-in defaults)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides the policy file)")

	var nf normalizeFlags
	normalizeCmd := &cobra.Command{
		Use:   "normalize <snapshot>",
		Short: "Map a source snapshot onto an investigation draft and review it",
		Long:  "Map a source snapshot onto an investigation draft. <snapshot> is a JSON file, or <source_type>/<source_id> when --source-dir is set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd.Context(), args[0], g, nf, cmd.OutOrStdout())
		},
	}
	f := normalizeCmd.Flags()
	f.StringVar(&nf.format, "format", "json", "Output format: json or md")
	f.StringVar(&nf.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&nf.sourceDir, "source-dir", "", "Resolve <snapshot> as <source_type>/<source_id> under this directory")
	f.StringVar(&nf.failOn, "fail-on", "", "Exit 2 if verdict >= this level (COMPLETE_WITH_GAPS or INCOMPLETE)")

	var gf generateFlags
	generateCmd := &cobra.Command{
		Use:   "generate <snapshot>",
		Short: "Generate a customer pack for one audience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), args[0], g, gf, cmd.OutOrStdout())
		},
	}
	f = generateCmd.Flags()
	f.StringVar(&gf.format, "format", "json", "Output format: json or md")
	f.StringVar(&gf.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&gf.sourceDir, "source-dir", "", "Resolve <snapshot> and its evidence under this directory")
	f.StringVar(&gf.evidence, "evidence", "", "Evidence metadata file (JSON array)")
	f.StringVar(&gf.audience, "audience", "", "Pack audience: internal_customer or external_customer")
	f.StringVar(&gf.actor, "actor", "", "Actor id stamped as generated_by")
	f.StringVar(&gf.archive, "archive", "", "Append the pack to this archive (default archive_path from the policy file)")

	var vf verifyFlags
	verifyCmd := &cobra.Command{
		Use:   "verify [pack.json]",
		Short: "Recompute a pack checksum; exit 6 on mismatch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runVerify(cmd.Context(), path, vf, cmd.OutOrStdout())
		},
	}
	verifyCmd.Flags().StringVar(&vf.archive, "archive", "", "Verify an archived pack instead of a file")
	verifyCmd.Flags().StringVar(&vf.packID, "pack-id", "", "Archived pack id (with --archive)")

	diffCmd := &cobra.Command{
		Use:   "diff <packA.json> <packB.json>",
		Short: "Show what pack B discloses differently from pack A",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], cmd.OutOrStdout())
		},
	}

	rulesCmd := &cobra.Command{
		Use:   "rules [source-type]",
		Short: "List the mapping rules for one or all source types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := ""
			if len(args) == 1 {
				st = args[0]
			}
			return runRules(st, cmd.OutOrStdout())
		},
	}

	var historyArchive string
	historyCmd := &cobra.Command{
		Use:   "history <investigation-reference>",
		Short: "List archived packs for an investigation, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), args[0], g, historyArchive, cmd.OutOrStdout())
		},
	}
	historyCmd.Flags().StringVar(&historyArchive, "archive", "", "Archive database (default archive_path from the policy file)")

	root.AddCommand(normalizeCmd, generateCmd, verifyCmd, diffCmd, rulesCmd, historyCmd)
	return root
}

// setup loads the policy, builds the rule snapshot and configures logging.
// Logs are JSON when the command's document goes to stdout.
func setup(g globalFlags, docOnStdout bool) (*config.Store, error) {
	c, err := config.Load(config.Path(g.config))
	if err != nil {
		return nil, codeError(exitInput, "loading config: %s", err)
	}
	level := c.LogLevel
	if g.logLevel != "" {
		level = g.logLevel
	}
	logging.Init(docOnStdout, logging.ParseLevel(level))

	s, err := config.Build(c)
	if err != nil {
		return nil, codeError(exitInput, "invalid configuration: %s", err)
	}
	return config.NewStore(s), nil
}

func runNormalize(ctx context.Context, arg string, g globalFlags, flags normalizeFlags, stdout io.Writer) error {
	if err := validateNormalizeFlags(flags); err != nil {
		return codeError(exitInput, "invalid flags: %s", err)
	}
	store, err := setup(g, flags.out == "")
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(ctx, arg, flags.sourceDir)
	if err != nil {
		return codeError(exitInput, "loading snapshot: %s", err)
	}

	report, err := pipeline.New(store).Normalize(ctx, snap.Snapshot)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}

	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(exitInput, "invalid format: %s", err)
	}
	out, err := renderer.RenderDraft(report)
	if err != nil {
		return codeError(exitGeneric, "rendering output: %s", err)
	}
	if err := writeOutput(stdout, flags.out, out); err != nil {
		return err
	}

	if flags.failOn != "" {
		threshold := schema.Verdict(flags.failOn)
		if review.FailsAt(report.Review.Verdict, threshold) {
			return codeError(exitFailOn, "verdict %s meets or exceeds --fail-on threshold %s", report.Review.Verdict, threshold)
		}
	}
	return nil
}

func runGenerate(ctx context.Context, arg string, g globalFlags, flags generateFlags, stdout io.Writer) error {
	if err := validateGenerateFlags(flags); err != nil {
		return codeError(exitInput, "invalid flags: %s", err)
	}
	store, err := setup(g, flags.out == "")
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(ctx, arg, flags.sourceDir)
	if err != nil {
		return codeError(exitInput, "loading snapshot: %s", err)
	}
	assets, err := loadEvidence(ctx, snap.Snapshot.ReferenceNumber, flags)
	if err != nil {
		return codeError(exitInput, "loading evidence: %s", err)
	}

	var opts []pipeline.Option
	archivePath := flags.archive
	if archivePath == "" {
		archivePath = store.Current().Config.ArchivePath
	}
	if archivePath != "" {
		a, err := archive.Open(ctx, archivePath)
		if err != nil {
			return codeError(exitGeneric, "%s", err)
		}
		defer a.Close()
		opts = append(opts, pipeline.WithArchive(a))
	}
	p := pipeline.New(store, opts...)

	report, err := p.Normalize(ctx, snap.Snapshot)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}
	cp, err := p.GeneratePack(ctx, &report.Draft, assets, schema.PackType(flags.audience), flags.actor)
	switch {
	case errors.Is(err, redact.ErrDataQuality):
		return codeError(exitInput, "%s", err)
	case err != nil:
		return codeError(exitGeneric, "%s", err)
	}

	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(exitInput, "invalid format: %s", err)
	}
	out, err := renderer.RenderPack(cp)
	if err != nil {
		return codeError(exitGeneric, "rendering output: %s", err)
	}
	return writeOutput(stdout, flags.out, out)
}

func runVerify(ctx context.Context, path string, flags verifyFlags, stdout io.Writer) error {
	var (
		p   *schema.CustomerPack
		err error
	)
	switch {
	case path != "" && flags.archive != "":
		return codeError(exitInput, "invalid flags: give either a pack file or --archive, not both")
	case path != "":
		p, err = readPack(path)
		if err != nil {
			return codeError(exitInput, "%s", err)
		}
		err = pack.Verify(p)
	case flags.archive != "" && flags.packID != "":
		a, openErr := archive.Open(ctx, flags.archive)
		if openErr != nil {
			return codeError(exitGeneric, "%s", openErr)
		}
		defer a.Close()
		p, err = a.Get(ctx, flags.packID)
		if errors.Is(err, archive.ErrNotFound) {
			return codeError(exitInput, "%s", err)
		}
	default:
		return codeError(exitInput, "invalid flags: give a pack file, or --archive with --pack-id")
	}
	if errors.Is(err, pack.ErrIntegrity) {
		return codeError(exitIntegrity, "%s", err)
	}
	if err != nil {
		return codeError(exitGeneric, "%s", err)
	}
	_, err = fmt.Fprintf(stdout, "OK %s %s\n", p.PackID, p.Checksum)
	return err
}

func runDiff(pathA, pathB string, stdout io.Writer) error {
	a, err := readPack(pathA)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}
	b, err := readPack(pathB)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}
	res, err := packdiff.Diff(a, b)
	if err != nil {
		return codeError(exitGeneric, "%s", err)
	}
	if res.SameContent {
		_, err = fmt.Fprintf(stdout, "no differences (checksum %s)\n", a.Checksum)
		return err
	}
	_, err = io.WriteString(stdout, res.String())
	return err
}

func runRules(sourceType string, stdout io.Writer) error {
	reg, err := registry.New()
	if err != nil {
		return codeError(exitInput, "invalid rule registry: %s", err)
	}
	types := schema.SourceTypes()
	if sourceType != "" {
		types = []schema.SourceType{schema.SourceType(sourceType)}
	}
	var parts []string
	for _, st := range types {
		text, err := reg.Describe(st)
		if err != nil {
			return codeError(exitInput, "%s", err)
		}
		parts = append(parts, text)
	}
	_, err = io.WriteString(stdout, strings.Join(parts, "\n"))
	return err
}

func runHistory(ctx context.Context, ref string, g globalFlags, archivePath string, stdout io.Writer) error {
	if archivePath == "" {
		c, err := config.Load(config.Path(g.config))
		if err != nil {
			return codeError(exitInput, "loading config: %s", err)
		}
		archivePath = c.ArchivePath
	}
	if archivePath == "" {
		return codeError(exitInput, "invalid flags: --archive is required when the policy file sets no archive_path")
	}
	a, err := archive.Open(ctx, archivePath)
	if err != nil {
		return codeError(exitGeneric, "%s", err)
	}
	defer a.Close()
	entries, err := a.History(ctx, ref)
	if err != nil {
		return codeError(exitGeneric, "%s", err)
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return codeError(exitGeneric, "%s", err)
	}
	return writeOutput(stdout, "", out)
}

// loadSnapshot reads arg as a file, or as <source_type>/<source_id> under
// sourceDir.
func loadSnapshot(ctx context.Context, arg, sourceDir string) (*provider.Snapshot, error) {
	if sourceDir == "" {
		return provider.LoadSnapshot(arg)
	}
	st, id, ok := strings.Cut(arg, "/")
	if !ok {
		return nil, fmt.Errorf("with --source-dir the snapshot is <source_type>/<source_id>, got %q", arg)
	}
	return provider.Dir{Root: sourceDir}.Snapshot(ctx, schema.SourceType(st), id)
}

// loadEvidence prefers --evidence, then the source directory, then none.
func loadEvidence(ctx context.Context, ref string, flags generateFlags) ([]schema.EvidenceAsset, error) {
	switch {
	case flags.evidence != "":
		return provider.LoadEvidence(flags.evidence)
	case flags.sourceDir != "":
		return provider.Dir{Root: flags.sourceDir}.Evidence(ctx, ref)
	default:
		return []schema.EvidenceAsset{}, nil
	}
}

func readPack(path string) (*schema.CustomerPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pack file: %w", err)
	}
	p, err := validate.ParsePack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// writeOutput writes data to the named file, or to stdout when out is empty.
func writeOutput(stdout io.Writer, out string, data []byte) error {
	if out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return codeError(exitInput, "writing output file: %s", err)
		}
		return nil
	}
	if _, err := stdout.Write(data); err != nil {
		return codeError(exitInput, "writing output: %s", err)
	}
	// Ensure output ends with a newline for terminal friendliness.
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(stdout)
	}
	return nil
}

func validateFormat(format string) error {
	switch format {
	case "json", "md":
		return nil
	default:
		return fmt.Errorf("--format must be json or md, got %q", format)
	}
}

// validateNormalizeFlags returns an error if any flag value is invalid.
func validateNormalizeFlags(flags normalizeFlags) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	if flags.failOn != "" {
		switch schema.Verdict(flags.failOn) {
		case schema.VerdictCompleteWithGaps, schema.VerdictIncomplete:
		default:
			return fmt.Errorf("--fail-on must be COMPLETE_WITH_GAPS or INCOMPLETE, got %q", flags.failOn)
		}
	}
	return nil
}

// validateGenerateFlags returns an error if any flag value is invalid.
func validateGenerateFlags(flags generateFlags) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	if !schema.IsValidPackType(schema.PackType(flags.audience)) {
		return fmt.Errorf("--audience must be internal_customer or external_customer, got %q", flags.audience)
	}
	if strings.TrimSpace(flags.actor) == "" {
		return fmt.Errorf("--actor is required")
	}
	return nil
}
