package suggest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dwrignell/homesynth/internal/document"
)

// Repository defines the interface for suggestion persistence.
type Repository interface {
	ReplaceProposed(ctx context.Context, candidates []Candidate) error
	List(ctx context.Context) ([]Candidate, error)
	Get(ctx context.Context, id string) (*Candidate, error)
	SetStatus(ctx context.Context, id string, status Status) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed suggestion repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const candidateColumns = `id, pattern, support, confidence, draft_kind, draft_id, draft_title, draft_raw, status, created_at, updated_at`

// ReplaceProposed atomically swaps the proposed suggestion set for the
// given candidates. Accepted and dismissed rows are untouched.
func (r *SQLiteRepository) ReplaceProposed(ctx context.Context, candidates []Candidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM suggestions WHERE status = ?`, StatusProposed); err != nil {
		return fmt.Errorf("clearing proposed suggestions: %w", err)
	}

	now := time.Now().UTC()
	for _, c := range candidates {
		patternJSON, err := json.Marshal(c.Pattern)
		if err != nil {
			return fmt.Errorf("marshalling pattern: %w", err)
		}
		if c.Draft == nil || c.Draft.Raw == nil {
			return fmt.Errorf("suggest: candidate %s has no rendered draft", c.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO suggestions (`+candidateColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, string(patternJSON), c.Pattern.Support, c.Pattern.Confidence,
			string(c.Draft.Kind), c.Draft.LogicalID, c.Draft.Title, c.Draft.Raw,
			StatusProposed, now.Format(time.RFC3339), now.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting suggestion %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing suggestions: %w", err)
	}
	return nil
}

// List returns all suggestions ranked by confidence, support, then id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM suggestions
		 ORDER BY confidence DESC, support DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying suggestions: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating suggestions: %w", err)
	}
	return candidates, nil
}

// Get returns one suggestion by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Candidate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM suggestions WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, err
}

// SetStatus transitions a suggestion to the given status.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id string, status Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE suggestions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating suggestion status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(s scanner) (*Candidate, error) {
	var (
		c                    Candidate
		patternJSON          string
		support              int
		confidence           float64
		draftKind, draftID   string
		draftTitle           string
		draftRaw             []byte
		createdAt, updatedAt string
	)
	if err := s.Scan(&c.ID, &patternJSON, &support, &confidence,
		&draftKind, &draftID, &draftTitle, &draftRaw, &c.Status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning suggestion: %w", err)
	}

	if err := json.Unmarshal([]byte(patternJSON), &c.Pattern); err != nil {
		return nil, fmt.Errorf("unmarshalling pattern: %w", err)
	}
	c.Pattern.Support = support
	c.Pattern.Confidence = confidence

	body, err := document.Decode(draftRaw)
	if err != nil {
		return nil, fmt.Errorf("decoding draft body: %w", err)
	}
	c.Draft = &document.Document{
		Kind:      document.Kind(draftKind),
		LogicalID: draftID,
		Title:     draftTitle,
		Body:      body,
		Raw:       draftRaw,
		Status:    document.StatusUnvalidated,
	}

	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing suggestion timestamp %q: %w", createdAt, err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing suggestion timestamp %q: %w", updatedAt, err)
	}
	return &c, nil
}
