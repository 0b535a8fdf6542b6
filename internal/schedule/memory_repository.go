package schedule

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local demos.
type MemoryRepository struct {
	mu         sync.RWMutex
	clinicians map[uuid.UUID]*Clinician
}

func NewMemoryRepository(clinicians ...*Clinician) *MemoryRepository {
	r := &MemoryRepository{clinicians: make(map[uuid.UUID]*Clinician)}
	for _, c := range clinicians {
		r.clinicians[c.ID] = c
	}
	return r
}

func (r *MemoryRepository) GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clinicians[id]
	if !ok {
		return nil, ErrClinicianNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) ListClinicians(ctx context.Context, specialty string, limit, offset int) ([]Clinician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Clinician
	for _, c := range r.clinicians {
		if specialty != "" && (c.Specialty == nil || *c.Specialty != specialty) {
			continue
		}
		result = append(result, *c)
	}
	return result, nil
}
