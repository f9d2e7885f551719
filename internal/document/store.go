package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for document persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// Drafts, the staging area, and the deployed tree are three disjoint
// stores. Synthesis and validation only ever touch the draft workspace;
// the deployed tree is written exclusively through Promote, so a
// re-synthesized draft can never displace a deployed revision.
type Repository interface {
	// Draft workspace, keyed by (kind, logical_id)
	Put(ctx context.Context, doc *Document) error
	Get(ctx context.Context, kind Kind, logicalID string) (*Document, error)
	List(ctx context.Context, kind Kind) ([]Document, error)
	Delete(ctx context.Context, kind Kind, logicalID string) error

	// Staging area used by the deployment tester. Staged artifacts never
	// appear in Get/List results.
	Stage(ctx context.Context, doc *Document) error
	GetStaged(ctx context.Context, kind Kind, logicalID string) ([]byte, error)
	DiscardStaged(ctx context.Context, kind Kind, logicalID string) error
	Promote(ctx context.Context, doc *Document) error

	// Deployed configuration tree. Read-only outside Promote.
	GetDeployed(ctx context.Context, kind Kind, logicalID string) (*Document, error)
	ListDeployed(ctx context.Context, kind Kind) ([]Document, error)
}

// docColumns is the SELECT column list for document queries.
const docColumns = `kind, logical_id, title, raw, status, issues, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed document repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Put upserts a document into the draft workspace.
// CreatedAt is preserved for existing rows; UpdatedAt is always refreshed.
func (r *SQLiteRepository) Put(ctx context.Context, doc *Document) error {
	if !ValidKind(doc.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, doc.Kind)
	}
	if doc.Raw == nil {
		if err := doc.Finalize(); err != nil {
			return err
		}
	}

	issuesJSON, err := marshalIssues(doc.Issues)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (kind, logical_id, title, raw, status, issues, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, logical_id) DO UPDATE SET
			title = excluded.title,
			raw = excluded.raw,
			status = excluded.status,
			issues = excluded.issues,
			updated_at = excluded.updated_at`,
		doc.Kind, doc.LogicalID, doc.Title, doc.Raw, doc.Status, issuesJSON, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

// Get retrieves a draft by (kind, logical_id).
func (r *SQLiteRepository) Get(ctx context.Context, kind Kind, logicalID string) (*Document, error) {
	return r.getFrom(ctx, "documents", kind, logicalID)
}

// List retrieves drafts, optionally filtered by kind (empty = all),
// ordered by kind then logical id for deterministic output.
func (r *SQLiteRepository) List(ctx context.Context, kind Kind) ([]Document, error) {
	return r.listFrom(ctx, "documents", kind)
}

// GetDeployed retrieves a deployed revision by (kind, logical_id).
func (r *SQLiteRepository) GetDeployed(ctx context.Context, kind Kind, logicalID string) (*Document, error) {
	return r.getFrom(ctx, "document_deployed", kind, logicalID)
}

// ListDeployed retrieves deployed revisions, optionally filtered by kind.
func (r *SQLiteRepository) ListDeployed(ctx context.Context, kind Kind) ([]Document, error) {
	return r.listFrom(ctx, "document_deployed", kind)
}

func (r *SQLiteRepository) getFrom(ctx context.Context, table string, kind Kind, logicalID string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM `+table+` WHERE kind = ? AND logical_id = ?`,
		kind, logicalID,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, logicalID)
		}
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return doc, nil
}

func (r *SQLiteRepository) listFrom(ctx context.Context, table string, kind Kind) ([]Document, error) {
	query := `SELECT ` + docColumns + ` FROM ` + table
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY kind, logical_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only iteration

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Delete removes a draft. A deployed revision of the same document is
// untouched; only a replacement deployment changes the deployed tree.
func (r *SQLiteRepository) Delete(ctx context.Context, kind Kind, logicalID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE kind = ? AND logical_id = ?`, kind, logicalID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, logicalID)
	}
	return nil
}

// Stage writes a candidate's raw form into the isolated staging area.
func (r *SQLiteRepository) Stage(ctx context.Context, doc *Document) error {
	if doc.Raw == nil {
		if err := doc.Finalize(); err != nil {
			return err
		}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO document_staging (kind, logical_id, raw, staged_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, logical_id) DO UPDATE SET
			raw = excluded.raw,
			staged_at = excluded.staged_at`,
		doc.Kind, doc.LogicalID, doc.Raw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("staging document: %w", err)
	}
	return nil
}

// GetStaged returns the raw form of a staged candidate.
func (r *SQLiteRepository) GetStaged(ctx context.Context, kind Kind, logicalID string) ([]byte, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT raw FROM document_staging WHERE kind = ? AND logical_id = ?`,
		kind, logicalID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStaged, kind, logicalID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying staged document: %w", err)
	}
	return raw, nil
}

// DiscardStaged removes a staging entry. Discarding an absent entry is not
// an error; cleanup paths must be idempotent.
func (r *SQLiteRepository) DiscardStaged(ctx context.Context, kind Kind, logicalID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM document_staging WHERE kind = ? AND logical_id = ?`, kind, logicalID)
	if err != nil {
		return fmt.Errorf("discarding staged document: %w", err)
	}
	return nil
}

// Promote moves a staged candidate into the deployed tree in one
// transaction. This is the only write path into document_deployed.
// Returns ErrNotStaged if the candidate was never staged (or already
// promoted or discarded).
func (r *SQLiteRepository) Promote(ctx context.Context, doc *Document) error {
	issuesJSON, err := marshalIssues(doc.Issues)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning promote transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	result, err := tx.ExecContext(ctx,
		`DELETE FROM document_staging WHERE kind = ? AND logical_id = ?`,
		doc.Kind, doc.LogicalID)
	if err != nil {
		return fmt.Errorf("clearing staging entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking staging entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotStaged, doc.Kind, doc.LogicalID)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_deployed (kind, logical_id, title, raw, status, issues, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, logical_id) DO UPDATE SET
			title = excluded.title,
			raw = excluded.raw,
			status = excluded.status,
			issues = excluded.issues,
			updated_at = excluded.updated_at`,
		doc.Kind, doc.LogicalID, doc.Title, doc.Raw, doc.Status, issuesJSON, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("promoting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing promote: %w", err)
	}
	return nil
}

// marshalIssues encodes the issue list for storage; nil stays NULL.
func marshalIssues(issues []Issue) (*string, error) {
	if issues == nil {
		return nil, nil
	}
	b, err := json.Marshal(issues)
	if err != nil {
		return nil, fmt.Errorf("marshalling issues: %w", err)
	}
	s := string(b)
	return &s, nil
}

// scanner abstracts sql.Row and sql.Rows for scanDocument.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument reads a document row and rebuilds its body from raw form.
func scanDocument(s scanner) (*Document, error) {
	var (
		doc        Document
		issuesJSON sql.NullString
	)
	if err := s.Scan(&doc.Kind, &doc.LogicalID, &doc.Title, &doc.Raw,
		&doc.Status, &issuesJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}

	if issuesJSON.Valid {
		if err := json.Unmarshal([]byte(issuesJSON.String), &doc.Issues); err != nil {
			return nil, fmt.Errorf("unmarshalling issues: %w", err)
		}
	}

	body, err := Decode(doc.Raw)
	if err != nil {
		return nil, fmt.Errorf("rebuilding document body: %w", err)
	}
	doc.Body = body
	return &doc, nil
}
