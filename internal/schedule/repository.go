package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrClinicianNotFound = errors.New("clinician not found")
)

// Repository reads clinicians and their recurring weekly availability.
type Repository interface {
	GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error)
	ListClinicians(ctx context.Context, specialty string, limit, offset int) ([]Clinician, error)
}
