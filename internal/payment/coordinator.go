package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/channelmed/booking-engine/internal/booking"
	"github.com/channelmed/booking-engine/internal/schedule"
)

var (
	// ErrSessionNotCompleted means the provider has not (yet) reported the
	// checkout as paid; the session is kept so a later callback can succeed.
	ErrSessionNotCompleted = errors.New("payment session is not completed")
)

// Coordinator branches a booking into its two durability strategies:
// immediate commit for pay-at-clinic, deferred commit pending the external
// checkout callback for pay-online.
type Coordinator struct {
	bookings  *booking.Service
	schedules schedule.Repository
	sessions  *SessionStore
	checkout  CheckoutProvider
	logger    *zap.Logger
}

func NewCoordinator(bookings *booking.Service, schedules schedule.Repository, sessions *SessionStore, checkout CheckoutProvider, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		bookings:  bookings,
		schedules: schedules,
		sessions:  sessions,
		checkout:  checkout,
		logger:    logger,
	}
}

// BeginResult is one of two shapes: a committed appointment (pay at clinic)
// or a checkout redirect (pay online).
type BeginResult struct {
	Appointment *booking.Appointment
	SessionID   string
	CheckoutURL string
}

// BeginRequest is the inbound reservation intent before path branching.
type BeginRequest struct {
	Pending       PendingBooking
	PaymentMethod booking.PaymentMethod
}

// Begin routes the reservation down its payment path. Pay-at-clinic commits
// synchronously with status pending. Pay-online creates a checkout session
// holding the full booking payload and commits nothing; the slot stays
// resolvable to others until the callback lands.
func (c *Coordinator) Begin(ctx context.Context, req BeginRequest) (*BeginResult, error) {
	switch req.PaymentMethod {
	case booking.PayAtClinic:
		appt, err := c.bookings.Reserve(ctx, booking.ReserveRequest{
			ClinicianID:   req.Pending.ClinicianID,
			Date:          req.Pending.Date,
			Window:        req.Pending.Window,
			Patient:       req.Pending.Patient,
			PaymentMethod: booking.PayAtClinic,
			InitialStatus: booking.StatusPending,
		})
		if err != nil {
			return nil, err
		}
		return &BeginResult{Appointment: appt}, nil

	case booking.PayOnline:
		return c.beginOnline(ctx, req.Pending)

	default:
		return nil, fmt.Errorf("%w: %q", booking.ErrUnknownPaymentMethod, req.PaymentMethod)
	}
}

func (c *Coordinator) beginOnline(ctx context.Context, pending PendingBooking) (*BeginResult, error) {
	date, err := schedule.ParseDate(pending.Date)
	if err != nil {
		return nil, err
	}
	pending.Date = date

	win, err := schedule.ParseWindow(pending.Window)
	if err != nil {
		return nil, err
	}
	pending.Window = win.Identity()

	clin, err := c.schedules.GetClinician(ctx, pending.ClinicianID)
	if err != nil {
		return nil, fmt.Errorf("load clinician: %w", err)
	}

	// Fail fast when the window is already gone; this check does not hold
	// the slot, the callback path re-reserves under the lock.
	resolved, err := c.bookings.AvailableWindows(ctx, pending.ClinicianID, date)
	if err != nil {
		return nil, err
	}
	available := false
	for _, w := range resolved {
		if w.Identity() == pending.Window {
			available = true
			break
		}
	}
	if !available {
		return nil, booking.ErrSlotUnavailable
	}

	description := fmt.Sprintf("Consultation with %s on %s %s", clin.Name, date, pending.Window)
	reference := fmt.Sprintf("%s:%s:%s", pending.ClinicianID, date, pending.Window)

	cs, err := c.checkout.CreateCheckoutSession(ctx, clin.FeeCents, description, reference)
	if err != nil {
		// No session, no appointment, no partial state.
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	sess := Session{
		ID:          cs.ProviderID,
		Booking:     pending,
		AmountCents: clin.FeeCents,
		Status:      SessionPending,
		CheckoutURL: cs.URL,
		CreatedAt:   time.Now(),
	}
	if err := c.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}

	c.logger.Info("payment session created",
		zap.String("session_id", cs.ProviderID),
		zap.String("clinician_id", pending.ClinicianID.String()),
		zap.String("date", date),
		zap.String("window", pending.Window),
		zap.Int64("amount_cents", clin.FeeCents),
	)

	return &BeginResult{SessionID: cs.ProviderID, CheckoutURL: cs.URL}, nil
}

// Complete handles the checkout completion callback. The session is consumed
// exactly once, verified against the provider, and only then does the stored
// payload go through the booking transaction manager with status paid.
//
// A window consumed by someone else in the interim surfaces the same
// ErrSlotUnavailable the synchronous path uses, and the paid session is
// parked for reconciliation rather than dropped. Every other failure after
// the consume restores the session, so a transient outage never strands a
// paid patient.
func (c *Coordinator) Complete(ctx context.Context, sessionID string) (*booking.Appointment, error) {
	sess, err := c.sessions.Consume(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	completed, err := c.checkout.VerifyCompleted(ctx, sessionID)
	if err != nil {
		// Transient provider failure: restore the session so the caller can
		// retry the callback.
		if putErr := c.sessions.Restore(ctx, *sess); putErr != nil {
			c.logger.Error("restore session after verify failure", zap.String("session_id", sessionID), zap.Error(putErr))
		}
		return nil, fmt.Errorf("verify checkout session: %w", err)
	}
	if !completed {
		if putErr := c.sessions.Restore(ctx, *sess); putErr != nil {
			c.logger.Error("restore unpaid session", zap.String("session_id", sessionID), zap.Error(putErr))
		}
		return nil, ErrSessionNotCompleted
	}

	appt, err := c.bookings.Reserve(ctx, booking.ReserveRequest{
		ClinicianID:   sess.Booking.ClinicianID,
		Date:          sess.Booking.Date,
		Window:        sess.Booking.Window,
		Patient:       sess.Booking.Patient,
		PaymentMethod: booking.PayOnline,
		InitialStatus: booking.StatusPaid,
	})
	if err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			// The window is definitively gone; an operator has to resolve
			// this paid patient through the admin path.
			if recErr := c.sessions.RecordFailure(ctx, *sess, err.Error()); recErr != nil {
				c.logger.Error("park paid session for reconciliation", zap.String("session_id", sessionID), zap.Error(recErr))
			}
			c.logger.Warn("paid session could not materialize appointment",
				zap.String("session_id", sessionID),
				zap.String("window", sess.Booking.Window),
				zap.Error(err),
			)
			return nil, err
		}

		// Anything else (lock contention, storage outage) is retryable; the
		// consumed session goes back so the next callback can succeed.
		if putErr := c.sessions.Restore(ctx, *sess); putErr != nil {
			c.logger.Error("restore session after reserve failure", zap.String("session_id", sessionID), zap.Error(putErr))
		}
		return nil, err
	}

	c.logger.Info("online payment materialized appointment",
		zap.String("session_id", sessionID),
		zap.String("appointment_id", appt.ID.String()),
		zap.Int64("appointment_number", appt.AppointmentNumber),
	)

	return appt, nil
}
