package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelmed/booking-engine/internal/redisclient"
	"github.com/channelmed/booking-engine/internal/schedule"
)

const (
	EventAppointmentBooked = "APPOINTMENT_BOOKED"
	EventStatusChanged     = "STATUS_CHANGED"
	EventStatusOverridden  = "STATUS_OVERRIDDEN"
)

var (
	// ErrSlotUnavailable is the distinguished conflict: the requested window
	// was consumed between the caller's read and this write. The correct
	// recovery is re-resolving the date, not retrying the same window.
	ErrSlotUnavailable = errors.New("requested window is no longer available")

	// ErrSlotBeingBooked means another reservation holds the window lock
	// right now; the caller may retry shortly.
	ErrSlotBeingBooked = errors.New("window is currently being booked, please retry")

	ErrInvalidInitialStatus = errors.New("initial status must be pending or paid")
)

type Service struct {
	schedules schedule.Repository
	repo      Repository
	locker    redisclient.Locker
	logger    *zap.Logger
}

func NewService(schedules schedule.Repository, repo Repository, locker redisclient.Locker, logger *zap.Logger) *Service {
	return &Service{
		schedules: schedules,
		repo:      repo,
		locker:    locker,
		logger:    logger,
	}
}

// AvailableWindows resolves the bookable windows for a clinician on a date:
// the recurring weekly template minus structurally disabled windows minus
// windows consumed by non-cancelled appointments on that exact date.
func (s *Service) AvailableWindows(ctx context.Context, clinicianID uuid.UUID, date string) ([]schedule.TimeWindow, error) {
	date, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}

	clin, err := s.schedules.GetClinician(ctx, clinicianID)
	if err != nil {
		return nil, fmt.Errorf("load clinician: %w", err)
	}

	consumed, err := s.repo.ConsumedWindows(ctx, clinicianID, date)
	if err != nil {
		return nil, fmt.Errorf("load consumed windows: %w", err)
	}

	return schedule.Resolve(clin.Weekly, date, consumed)
}

// ReserveRequest carries everything needed to convert one available window
// into a durable appointment.
type ReserveRequest struct {
	ClinicianID   uuid.UUID
	Date          string
	Window        string // "HH:MM-HH:MM" identity
	Patient       PatientInfo
	PaymentMethod PaymentMethod
	InitialStatus Status // StatusPending (pay at clinic) or StatusPaid (online, confirmed)
}

// Reserve atomically converts exactly one available window into an
// appointment, or fails with ErrSlotUnavailable. The client-supplied
// snapshot of availability is never trusted; windows are re-resolved inside
// the per-window lock, and the storage-level unique index backs the lock up.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*Appointment, error) {
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	win, err := schedule.ParseWindow(req.Window)
	if err != nil {
		return nil, err
	}

	status := req.InitialStatus
	if status == "" {
		status = StatusPending
	}
	if status != StatusPending && status != StatusPaid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInitialStatus, status)
	}

	clin, err := s.schedules.GetClinician(ctx, req.ClinicianID)
	if err != nil {
		if errors.Is(err, schedule.ErrClinicianNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load clinician: %w", err)
	}

	key := redisclient.WindowKey{
		ClinicianID: req.ClinicianID,
		Date:        date,
		Window:      win.Identity(),
	}

	var created *Appointment

	err = s.locker.WithWindowLock(ctx, key, func(lockCtx context.Context) error {
		consumed, err := s.repo.ConsumedWindows(lockCtx, req.ClinicianID, date)
		if err != nil {
			return fmt.Errorf("load consumed windows: %w", err)
		}

		resolved, err := schedule.Resolve(clin.Weekly, date, consumed)
		if err != nil {
			return err
		}

		found := false
		for _, w := range resolved {
			if w.Identity() == win.Identity() {
				found = true
				break
			}
		}
		if !found {
			return ErrSlotUnavailable
		}

		appt, err := s.repo.CreateAppointment(lockCtx, NewAppointment{
			ClinicianID:   req.ClinicianID,
			Date:          date,
			StartMinutes:  int(win.Start),
			EndMinutes:    int(win.End),
			Patient:       req.Patient,
			PaymentMethod: req.PaymentMethod,
			FeeCents:      clin.FeeCents,
			Status:        status,
		})
		if err != nil {
			return err
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"clinician_id":   req.ClinicianID.String(),
			"date":           date,
			"window":         win.Identity(),
			"payment_method": string(req.PaymentMethod),
			"status":         string(status),
			"queue_number":   appt.PatientQueueNumber,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logger.Info("appointment reserved",
		zap.String("appointment_id", created.ID.String()),
		zap.Int64("appointment_number", created.AppointmentNumber),
		zap.String("clinician_id", req.ClinicianID.String()),
		zap.String("date", date),
		zap.String("window", win.Identity()),
	)

	return created, nil
}

// Transition moves an appointment along the strict lifecycle table.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !CanTransition(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the race with a concurrent transition.
			return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidStatusTransition)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, id, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// Cancel transitions the appointment to cancelled, releasing its
// (clinician, date, window) tuple back into the resolvable set; the
// uniqueness guard ignores cancelled rows.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, id, StatusCancelled)
}

// AdminSetStatus is the administrative escape hatch: any known status may be
// set directly, terminal or not. Operators correcting real-world state are
// trusted; the strict table is not consulted.
func (s *Service) AdminSetStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	updated, err := s.repo.SetStatus(ctx, id, to)
	if err != nil {
		return nil, fmt.Errorf("override status: %w", err)
	}

	s.logEvent(ctx, id, EventStatusOverridden, map[string]any{
		"to": string(to),
	})

	s.logger.Warn("appointment status overridden",
		zap.String("appointment_id", id.String()),
		zap.String("to", string(to)),
	)

	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	if f.Limit <= 0 {
		f.Limit = 20 // default
	}
	if f.Limit > 100 {
		f.Limit = 100 // max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	appointments, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error("insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
