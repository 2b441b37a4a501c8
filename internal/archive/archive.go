// Package archive keeps the append-only history of generated packs in
// SQLite. Packs are never updated or deleted; a regeneration is a new row.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/pack"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema/validate"
)

var (
	// ErrNotFound is returned by Get for an unknown pack id.
	ErrNotFound = errors.New("pack not found")
	// ErrDuplicate is returned by Store when the pack id is already archived.
	ErrDuplicate = errors.New("pack already archived")
)

// timeLayout is fixed-width so generated_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS packs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	pack_id TEXT NOT NULL UNIQUE,
	investigation_reference TEXT NOT NULL,
	pack_type TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	generated_by TEXT NOT NULL,
	checksum TEXT NOT NULL,
	document BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS packs_by_reference ON packs (investigation_reference, generated_at);
CREATE TRIGGER IF NOT EXISTS packs_no_update BEFORE UPDATE ON packs
BEGIN
	SELECT RAISE(ABORT, 'packs are append-only');
END;
CREATE TRIGGER IF NOT EXISTS packs_no_delete BEFORE DELETE ON packs
BEGIN
	SELECT RAISE(ABORT, 'packs are append-only');
END;`

// Entry summarizes one archived pack.
type Entry struct {
	PackID      string          `json:"pack_id"`
	PackType    schema.PackType `json:"pack_type"`
	GeneratedAt time.Time       `json:"generated_at"`
	GeneratedBy string          `json:"generated_by"`
	Checksum    string          `json:"checksum"`
}

// Archive is a SQLite-backed pack history.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path. ":memory:" gives a
// private in-memory archive.
func Open(ctx context.Context, path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Store appends p. The pack must verify against its own checksum.
func (a *Archive) Store(ctx context.Context, p *schema.CustomerPack) error {
	if err := pack.Verify(p); err != nil {
		return fmt.Errorf("archive: refusing to store: %w", err)
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("archive: marshal pack: %w", err)
	}
	res, err := a.db.ExecContext(ctx, `INSERT INTO packs (
		pack_id, investigation_reference, pack_type, generated_at, generated_by, checksum, document
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (pack_id) DO NOTHING`,
		p.PackID, p.InvestigationRef, string(p.PackType), p.GeneratedAt.UTC().Format(timeLayout), p.GeneratedBy, p.Checksum, doc,
	)
	if err != nil {
		return fmt.Errorf("archive: insert pack %s: %w", p.PackID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive: insert pack %s: %w", p.PackID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, p.PackID)
	}
	return nil
}

// Get returns the pack with packID after verifying that the stored document
// still matches both its own checksum and the checksum recorded at
// archive time. A mismatch wraps pack.ErrIntegrity.
func (a *Archive) Get(ctx context.Context, packID string) (*schema.CustomerPack, error) {
	var (
		checksum string
		doc      []byte
	)
	err := a.db.QueryRowContext(ctx, `SELECT checksum, document FROM packs WHERE pack_id = ?`, packID).Scan(&checksum, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, packID)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get pack %s: %w", packID, err)
	}
	p, err := validate.ParsePack(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: archived pack %s is unreadable: %v", pack.ErrIntegrity, packID, err)
	}
	if p.Checksum != checksum {
		return nil, fmt.Errorf("%w: pack %s: document checksum %s, archived %s", pack.ErrIntegrity, packID, p.Checksum, checksum)
	}
	if err := pack.Verify(p); err != nil {
		return nil, err
	}
	return p, nil
}

// History lists every pack for an investigation, newest first.
func (a *Archive) History(ctx context.Context, investigationRef string) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT pack_id, pack_type, generated_at, generated_by, checksum
		FROM packs
		WHERE investigation_reference = ?
		ORDER BY generated_at DESC, seq DESC`, investigationRef)
	if err != nil {
		return nil, fmt.Errorf("archive: history %s: %w", investigationRef, err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			packType string
			at       string
		)
		if err := rows.Scan(&e.PackID, &packType, &at, &e.GeneratedBy, &e.Checksum); err != nil {
			return nil, fmt.Errorf("archive: history %s: %w", investigationRef, err)
		}
		e.PackType = schema.PackType(packType)
		if e.GeneratedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("archive: history %s: bad generated_at %q: %w", investigationRef, at, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: history %s: %w", investigationRef, err)
	}
	return entries, nil
}
