package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists match records in the relational database. The
// unique index on (patient_id, therapist_id) plus the ON CONFLICT clause
// makes Upsert atomic under concurrent double submissions.
type PostgresStore struct {
	pool dbQuerier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("matching: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q dbQuerier) *PostgresStore {
	if q == nil {
		panic("matching: querier required")
	}
	return &PostgresStore{pool: q}
}

var _ Store = (*PostgresStore)(nil)

const matchColumns = `id, patient_id, therapist_id, status, secure_token, reasons,
	patient_initiated, contacted_at, created_at, updated_at`

// Upsert inserts the match row; a conflicting pair refreshes updated_at only,
// so the original token and status survive a retried orchestration run.
func (s *PostgresStore) Upsert(ctx context.Context, req UpsertMatchRequest) (*Match, error) {
	query := `
		INSERT INTO matches (id, patient_id, therapist_id, status, secure_token, reasons)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, therapist_id)
		DO UPDATE SET updated_at = now()
		RETURNING ` + matchColumns
	row := s.pool.QueryRow(ctx, query,
		uuid.New(),
		req.PatientID,
		req.TherapistID,
		req.Status,
		req.SecureToken,
		ReasonStrings(req.Reasons),
	)
	m, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("matching: upsert match: %w", err)
	}
	return m, nil
}

// GetByID fetches a match row.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Match, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("matching: select match: %w", err)
	}
	return m, nil
}

// ListByToken returns all matches sharing a secure token in creation order.
func (s *PostgresStore) ListByToken(ctx context.Context, token string) ([]Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE secure_token = $1 ORDER BY created_at, id`,
		token)
	if err != nil {
		return nil, fmt.Errorf("matching: list by token: %w", err)
	}
	defer rows.Close()

	out := []Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("matching: scan match: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// UpdateStatus sets a match status; callers validate the transition.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status string) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE matches SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("matching: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// MarkContactInitiated records the patient's direct outreach on the row.
func (s *PostgresStore) MarkContactInitiated(ctx context.Context, id string, at time.Time) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE matches
		SET patient_initiated = true, contacted_at = $2, updated_at = now()
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("matching: mark contact initiated: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// CountContactInitiatedSince counts patient-initiated contacts in the
// rolling window. The cutoff is evaluated against contacted_at so the window
// slides with the contact time, not row creation.
func (s *PostgresStore) CountContactInitiatedSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE patient_id = $1 AND patient_initiated AND contacted_at > $2`,
		patientID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("matching: count contacts: %w", err)
	}
	return count, nil
}

func scanMatch(row pgx.Row) (*Match, error) {
	var m Match
	var reasons []string
	if err := row.Scan(
		&m.ID,
		&m.PatientID,
		&m.TherapistID,
		&m.Status,
		&m.SecureToken,
		&reasons,
		&m.PatientInitiated,
		&m.ContactedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Reasons = ReasonsFromStrings(reasons)
	return &m, nil
}
