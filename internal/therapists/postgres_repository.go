package therapists

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/praxisfinder/therapy-platform/internal/matching/norm"
)

// PostgresRepository stores the directory in the relational database.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository initializes a repo backed by database/sql.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("therapists: sql db required")
	}
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

const therapistColumns = `id, name, email, gender, city, session_preferences, modalities,
	accepting_new, status, hidden, photo_url, about, approach, qualifications,
	years_experience, created_at, updated_at`

// Create inserts a new directory row in pending state.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateTherapistRequest) (*Therapist, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	var createdAt, updatedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO therapists (id, name, email, gender, city, session_preferences, modalities,
		    accepting_new, status, hidden, photo_url, about, approach, qualifications, years_experience)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,false,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		id, req.Name, req.Email, req.Gender, req.City,
		pq.Array(req.SessionPreferences), pq.Array(req.Modalities),
		nullableBool(req.AcceptingNew), StatusPending,
		req.Profile.PhotoURL, req.Profile.About, req.Profile.Approach,
		req.Profile.Qualifications, req.Profile.YearsExperience,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("therapists: insert: %w", err)
	}

	return &Therapist{
		ID:                 id,
		Name:               req.Name,
		Email:              req.Email,
		Gender:             req.Gender,
		City:               req.City,
		SessionPreferences: req.SessionPreferences,
		Modalities:         req.Modalities,
		AcceptingNew:       req.AcceptingNew,
		Status:             StatusPending,
		Profile:            req.Profile,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

// GetByID fetches a single therapist.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Therapist, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+therapistColumns+` FROM therapists WHERE id = $1`, id)
	t, err := scanTherapist(row)
	if err == sql.ErrNoRows {
		return nil, ErrTherapistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("therapists: select: %w", err)
	}
	return t, nil
}

// List returns therapists matching the filter in stable ID order. The
// modality constraint is applied in the normalized space after scanning.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Therapist, error) {
	query := `SELECT ` + therapistColumns + ` FROM therapists`
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		conds = append(conds, "LOWER(city) = LOWER($"+strconv.Itoa(len(args))+")")
	}
	if !filter.IncludeHidden {
		conds = append(conds, "NOT hidden")
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("therapists: list: %w", err)
	}
	defer rows.Close()

	out := []Therapist{}
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, fmt.Errorf("therapists: scan: %w", err)
		}
		if filter.Modality != "" && !norm.Contains(norm.NormalizeSet(t.Modalities), filter.Modality) {
			continue
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update fetches, applies the partial update, and writes the full row back.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateTherapistRequest) (*Therapist, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(t)

	err = r.db.QueryRowContext(ctx, `
		UPDATE therapists SET
		    name=$2, email=$3, gender=$4, city=$5, session_preferences=$6, modalities=$7,
		    accepting_new=$8, photo_url=$9, about=$10, approach=$11, qualifications=$12,
		    years_experience=$13, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		id, t.Name, t.Email, t.Gender, t.City,
		pq.Array(t.SessionPreferences), pq.Array(t.Modalities),
		nullableBool(t.AcceptingNew),
		t.Profile.PhotoURL, t.Profile.About, t.Profile.Approach,
		t.Profile.Qualifications, t.Profile.YearsExperience,
	).Scan(&t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTherapistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("therapists: update: %w", err)
	}
	return t, nil
}

// SetStatus moves a therapist through the verification workflow.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status string) error {
	if status != StatusPending && status != StatusVerified {
		return ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE therapists SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("therapists: set status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTherapistNotFound
	}
	return nil
}

// SetHidden toggles administrative hiding.
func (r *PostgresRepository) SetHidden(ctx context.Context, id string, hidden bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE therapists SET hidden=$2, updated_at=now() WHERE id=$1`, id, hidden)
	if err != nil {
		return fmt.Errorf("therapists: set hidden: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTherapistNotFound
	}
	return nil
}

// ListVerified returns the matching pool in stable ID order.
func (r *PostgresRepository) ListVerified(ctx context.Context) ([]Therapist, error) {
	return r.List(ctx, ListFilter{Status: StatusVerified})
}

// CreateSlot adds an availability slot, deriving the weekday for one-off rows.
func (r *PostgresRepository) CreateSlot(ctx context.Context, req *CreateSlotRequest) (*AvailabilitySlot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	slot := newSlotFromRequest(req)
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO availability_slots (id, therapist_id, day_of_week, time_local, format, kind,
		    active, is_recurring, specific_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		slot.ID, slot.TherapistID, nullableInt(slot.DayOfWeek), slot.TimeLocal,
		slot.Format, slot.Kind, slot.Active, slot.IsRecurring,
		nullableTime(slot.SpecificDate), nullableTime(slot.EndDate),
	).Scan(&slot.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrTherapistNotFound
		}
		return nil, fmt.Errorf("therapists: insert slot: %w", err)
	}
	return slot, nil
}

const slotColumns = `id, therapist_id, day_of_week, time_local, format, kind,
	active, is_recurring, specific_date, end_date, created_at`

// ListSlots returns all slots for one therapist.
func (r *PostgresRepository) ListSlots(ctx context.Context, therapistID string) ([]AvailabilitySlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM availability_slots WHERE therapist_id = $1 ORDER BY created_at`,
		therapistID)
	if err != nil {
		return nil, fmt.Errorf("therapists: list slots: %w", err)
	}
	defer rows.Close()
	return collectSlots(rows)
}

// ListActiveSlotsByTherapistIDs returns active slots grouped by therapist.
func (r *PostgresRepository) ListActiveSlotsByTherapistIDs(ctx context.Context, ids []string) (map[string][]AvailabilitySlot, error) {
	if len(ids) == 0 {
		return map[string][]AvailabilitySlot{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM availability_slots
		 WHERE therapist_id = ANY($1) AND active ORDER BY created_at`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("therapists: list active slots: %w", err)
	}
	defer rows.Close()

	slots, err := collectSlots(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]AvailabilitySlot, len(ids))
	for _, s := range slots {
		out[s.TherapistID] = append(out[s.TherapistID], s)
	}
	return out, nil
}

// DeleteSlot removes a slot.
func (r *PostgresRepository) DeleteSlot(ctx context.Context, therapistID, slotID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM availability_slots WHERE id = $1 AND therapist_id = $2`, slotID, therapistID)
	if err != nil {
		return fmt.Errorf("therapists: delete slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTherapist(row rowScanner) (*Therapist, error) {
	var t Therapist
	var acceptingNew sql.NullBool
	if err := row.Scan(
		&t.ID, &t.Name, &t.Email, &t.Gender, &t.City,
		pq.Array(&t.SessionPreferences), pq.Array(&t.Modalities),
		&acceptingNew, &t.Status, &t.Hidden,
		&t.Profile.PhotoURL, &t.Profile.About, &t.Profile.Approach,
		&t.Profile.Qualifications, &t.Profile.YearsExperience,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if acceptingNew.Valid {
		t.AcceptingNew = &acceptingNew.Bool
	}
	if t.SessionPreferences == nil {
		t.SessionPreferences = []string{}
	}
	if t.Modalities == nil {
		t.Modalities = []string{}
	}
	return &t, nil
}

func collectSlots(rows *sql.Rows) ([]AvailabilitySlot, error) {
	var out []AvailabilitySlot
	for rows.Next() {
		var s AvailabilitySlot
		var day sql.NullInt64
		var specific, end sql.NullTime
		if err := rows.Scan(
			&s.ID, &s.TherapistID, &day, &s.TimeLocal, &s.Format, &s.Kind,
			&s.Active, &s.IsRecurring, &specific, &end, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("therapists: scan slot: %w", err)
		}
		if day.Valid {
			d := int(day.Int64)
			s.DayOfWeek = &d
		}
		if specific.Valid {
			t := specific.Time
			s.SpecificDate = &t
		}
		if end.Valid {
			t := end.Time
			s.EndDate = &t
		}
		out = append(out, s)
	}
	if out == nil {
		out = []AvailabilitySlot{}
	}
	return out, rows.Err()
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isForeignKeyViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23503"
}
