package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var weekdayOrder = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3,
	Friday: 4, Saturday: 5, Sunday: 6,
}

func scanClinician(row pgx.Row) (*Clinician, error) {
	var c Clinician
	var specialty *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&specialty,
		&c.FeeCents,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicianNotFound
		}
		return nil, err
	}

	c.Specialty = specialty
	return &c, nil
}

func (r *PgRepository) GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, consultation_fee_cents, created_at, updated_at
		FROM clinicians
		WHERE id = $1
	`, id)

	c, err := scanClinician(row)
	if err != nil {
		return nil, err
	}

	weekly, err := r.loadWeekly(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load weekly availability: %w", err)
	}
	c.Weekly = weekly

	return c, nil
}

// loadWeekly reads availability rows and groups them per weekday, keeping
// each day's windows in configured order. Day names are normalized here so
// callers never see formatting inconsistencies from upstream writes.
func (r *PgRepository) loadWeekly(ctx context.Context, clinicianID uuid.UUID) ([]DayAvailability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day, start_minutes, end_minutes, is_available
		FROM clinician_availability
		WHERE clinician_id = $1
		ORDER BY day, position
	`, clinicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[Weekday][]TimeWindow)
	for rows.Next() {
		var rawDay string
		var start, end int
		var available *bool

		if err := rows.Scan(&rawDay, &start, &end, &available); err != nil {
			return nil, err
		}

		day, err := NormalizeWeekday(rawDay)
		if err != nil {
			return nil, err
		}

		w := TimeWindow{
			Start: TimeOfDay(start),
			End:   TimeOfDay(end),
			// NULL means available; only an explicit false disables.
			Available: available == nil || *available,
		}
		byDay[day] = append(byDay[day], w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	weekly := make([]DayAvailability, 0, len(byDay))
	for day, windows := range byDay {
		weekly = append(weekly, DayAvailability{Day: day, Windows: windows})
	}
	sort.Slice(weekly, func(i, j int) bool {
		return weekdayOrder[weekly[i].Day] < weekdayOrder[weekly[j].Day]
	})

	return weekly, nil
}

func (r *PgRepository) ListClinicians(ctx context.Context, specialty string, limit, offset int) ([]Clinician, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, consultation_fee_cents, created_at, updated_at
		FROM clinicians
		WHERE ($1 = '' OR specialty = $1)
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, specialty, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Clinician
	for rows.Next() {
		c, err := scanClinician(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
