package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/channelmed/booking-engine/internal/schedule"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index on (clinician_id, date, start_minutes, end_minutes) WHERE
// status <> 'cancelled'. That index is the authoritative double-booking
// guard; the Redis lock only narrows the race window.
const uniqueViolation = "23505"

const windowIndexName = "appointments_window_active"

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// implements it for tests.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, appointment_number, patient_queue_number, clinician_id,
	date, start_minutes, end_minutes,
	patient_name, phone_number, email, notes,
	payment_method, consultation_fee_cents, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var start, end int
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.AppointmentNumber,
		&a.PatientQueueNumber,
		&a.ClinicianID,
		&date,
		&start,
		&end,
		&a.Patient.Name,
		&a.Patient.Phone,
		&a.Patient.Email,
		&notes,
		&a.PaymentMethod,
		&a.FeeCents,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = date.Format("2006-01-02")
	a.Window = schedule.TimeWindow{
		Start:     schedule.TimeOfDay(start),
		End:       schedule.TimeOfDay(end),
		Available: true,
	}
	if notes != nil {
		a.Patient.Notes = *notes
	}
	return &a, nil
}

func (r *PgRepository) ConsumedWindows(ctx context.Context, clinicianID uuid.UUID, date string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minutes, end_minutes
		FROM appointments
		WHERE clinician_id = $1
		  AND date = $2
		  AND status <> 'cancelled'
	`, clinicianID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	consumed := make(map[string]bool)
	for rows.Next() {
		var start, end int
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		w := schedule.TimeWindow{Start: schedule.TimeOfDay(start), End: schedule.TimeOfDay(end)}
		consumed[w.Identity()] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return consumed, nil
}

// CreateAppointment runs the whole commit in one transaction: the queue
// counter upsert and the insert either both land or neither does. The
// appointment number comes from the appointment_number_seq default.
func (r *PgRepository) CreateAppointment(ctx context.Context, n NewAppointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reservation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var queueNumber int
	err = tx.QueryRow(ctx, `
		INSERT INTO queue_counters (clinician_id, date, next_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (clinician_id, date)
		DO UPDATE SET next_number = queue_counters.next_number + 1
		RETURNING next_number
	`, n.ClinicianID, n.Date).Scan(&queueNumber)
	if err != nil {
		return nil, fmt.Errorf("allocate queue number: %w", err)
	}

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_queue_number, clinician_id, date, start_minutes, end_minutes,
			patient_name, phone_number, email, notes,
			payment_method, consultation_fee_cents, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING`+appointmentColumns,
		id, queueNumber, n.ClinicianID, n.Date, n.StartMinutes, n.EndMinutes,
		n.Patient.Name, n.Patient.Phone, n.Patient.Email, nullableString(n.Patient.Notes),
		n.PaymentMethod, n.FeeCents, n.Status,
	)

	appt, err := scanAppointment(row)
	if err != nil {
		if isWindowConflict(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reservation tx: %w", err)
	}

	return appt, nil
}

func isWindowConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == windowIndexName
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE ($1::uuid IS NULL OR clinician_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, f.ClinicianID, f.Status, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING`+appointmentColumns,
		id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) SetStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING`+appointmentColumns,
		id, to)

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
