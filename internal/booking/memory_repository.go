package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/channelmed/booking-engine/internal/schedule"
)

// MemoryRepository is an in-memory Repository used by tests and local demos.
// It enforces the same window-uniqueness rule the Postgres partial index
// does, so reservation races behave identically against it.
type MemoryRepository struct {
	mu      sync.Mutex
	appts   map[uuid.UUID]*Appointment
	nextNum int64
	queues  map[string]int
	events  []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		appts:   make(map[uuid.UUID]*Appointment),
		nextNum: 1000,
		queues:  make(map[string]int),
	}
}

func (r *MemoryRepository) ConsumedWindows(ctx context.Context, clinicianID uuid.UUID, date string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	consumed := make(map[string]bool)
	for _, a := range r.appts {
		if a.ClinicianID == clinicianID && a.Date == date && a.Status != StatusCancelled {
			consumed[a.Window.Identity()] = true
		}
	}
	return consumed, nil
}

func (r *MemoryRepository) CreateAppointment(ctx context.Context, n NewAppointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	win := schedule.TimeWindow{
		Start:     schedule.TimeOfDay(n.StartMinutes),
		End:       schedule.TimeOfDay(n.EndMinutes),
		Available: true,
	}

	// The uniqueness guard: one non-cancelled appointment per tuple.
	for _, a := range r.appts {
		if a.ClinicianID == n.ClinicianID && a.Date == n.Date &&
			a.Window.Identity() == win.Identity() && a.Status != StatusCancelled {
			return nil, ErrSlotUnavailable
		}
	}

	r.nextNum++
	queueKey := n.ClinicianID.String() + "|" + n.Date
	r.queues[queueKey]++

	now := time.Now()
	appt := &Appointment{
		ID:                 uuid.New(),
		AppointmentNumber:  r.nextNum,
		PatientQueueNumber: r.queues[queueKey],
		ClinicianID:        n.ClinicianID,
		Date:               n.Date,
		Window:             win,
		Patient:            n.Patient,
		PaymentMethod:      n.PaymentMethod,
		FeeCents:           n.FeeCents,
		Status:             n.Status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.appts[appt.ID] = appt

	cp := *appt
	return &cp, nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if f.ClinicianID != nil && a.ClinicianID != *f.ClinicianID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		result = append(result, *a)
	}

	// Newest first, matching the SQL ordering; appointment number breaks
	// ties since in-memory rows often share a timestamp.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].AppointmentNumber > result[j].AppointmentNumber
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return nil, nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) SetStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a snapshot of the event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
