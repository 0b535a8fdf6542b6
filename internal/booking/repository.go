package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// NewAppointment is the payload the transaction manager commits. Numbers and
// timestamps are assigned by the store, never by callers.
type NewAppointment struct {
	ClinicianID   uuid.UUID
	Date          string
	StartMinutes  int
	EndMinutes    int
	Patient       PatientInfo
	PaymentMethod PaymentMethod
	FeeCents      int64
	Status        Status
}

// ListFilter narrows administrative appointment listings.
type ListFilter struct {
	ClinicianID *uuid.UUID
	Status      *Status
	Limit       int
	Offset      int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// ConsumedWindows returns the window identities held by non-cancelled
	// appointments for the clinician on the given date.
	ConsumedWindows(ctx context.Context, clinicianID uuid.UUID, date string) (map[string]bool, error)

	// CreateAppointment atomically assigns the global appointment number and
	// the per (clinician, date) queue number and inserts the row. A window
	// already held by a non-cancelled appointment fails with
	// ErrSlotUnavailable from the storage-level uniqueness guard.
	CreateAppointment(ctx context.Context, n NewAppointment) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)

	// UpdateStatus moves status only when the row still holds from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	// SetStatus is the administrative override; it does not check from.
	SetStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
