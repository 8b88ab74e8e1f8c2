package patients

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

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	pool dbQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q dbQuerier) *PostgresRepository {
	if q == nil {
		panic("patients: querier required")
	}
	return &PostgresRepository{pool: q}
}

var _ Repository = (*PostgresRepository)(nil)

const patientColumns = `id, name, email, phone, city, session_preference, session_preferences,
	specializations, gender_preference, time_slots, created_at`

// Create inserts a new intake row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO patients (id, name, email, phone, city, session_preference,
		    session_preferences, specializations, gender_preference, time_slots)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.Name,
		req.Email,
		req.Phone,
		req.City,
		req.SessionPreference,
		req.SessionPreferences,
		req.Specializations,
		req.GenderPreference,
		req.TimeSlots,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}

	return &Patient{
		ID:                 id.String(),
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		City:               req.City,
		SessionPreference:  req.SessionPreference,
		SessionPreferences: req.SessionPreferences,
		Specializations:    req.Specializations,
		GenderPreference:   req.GenderPreference,
		TimeSlots:          req.TimeSlots,
		CreatedAt:          createdAt,
	}, nil
}

// GetByID fetches a patient row.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return p, nil
}

// List returns patients newest-first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Patient, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	out := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.City,
		&p.SessionPreference,
		&p.SessionPreferences,
		&p.Specializations,
		&p.GenderPreference,
		&p.TimeSlots,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
