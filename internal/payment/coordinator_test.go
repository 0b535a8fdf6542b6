package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channelmed/booking-engine/internal/booking"
	"github.com/channelmed/booking-engine/internal/redisclient"
	"github.com/channelmed/booking-engine/internal/schedule"
)

type serialLocker struct {
	mu       sync.Mutex
	failNext bool
}

func (l *serialLocker) WithWindowLock(ctx context.Context, key redisclient.WindowKey, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext {
		l.failNext = false
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

// flakyRepo injects one-off storage failures around the real in-memory
// repository.
type flakyRepo struct {
	*booking.MemoryRepository
	createErr error
}

func (r *flakyRepo) CreateAppointment(ctx context.Context, n booking.NewAppointment) (*booking.Appointment, error) {
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return nil, err
	}
	return r.MemoryRepository.CreateAppointment(ctx, n)
}

type fixture struct {
	coordinator *Coordinator
	bookings    *booking.Service
	checkout    *FakeCheckoutProvider
	sessions    *SessionStore
	redis       *miniredis.Miniredis
	clinician   *schedule.Clinician
	repo        *flakyRepo
	locker      *serialLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mustWindow := func(raw string) schedule.TimeWindow {
		w, err := schedule.ParseWindow(raw)
		require.NoError(t, err)
		return w
	}

	clin := &schedule.Clinician{
		ID:       uuid.New(),
		Name:     "Dr. Amara Silva",
		FeeCents: 7500,
		Weekly: []schedule.DayAvailability{
			{Day: schedule.Monday, Windows: []schedule.TimeWindow{
				mustWindow("09:00-09:30"),
				mustWindow("09:30-10:00"),
			}},
		},
	}

	schedules := schedule.NewMemoryRepository(clin)
	repo := &flakyRepo{MemoryRepository: booking.NewMemoryRepository()}
	locker := &serialLocker{}
	svc := booking.NewService(schedules, repo, locker, zap.NewNop())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := NewSessionStore(client, time.Hour)
	checkout := NewFakeCheckoutProvider()
	coord := NewCoordinator(svc, schedules, sessions, checkout, zap.NewNop())

	return &fixture{
		coordinator: coord,
		bookings:    svc,
		checkout:    checkout,
		sessions:    sessions,
		redis:       mr,
		clinician:   clin,
		repo:        repo,
		locker:      locker,
	}
}

const fxMonday = "2025-06-02"

func (f *fixture) pending() PendingBooking {
	return PendingBooking{
		ClinicianID: f.clinician.ID,
		Date:        fxMonday,
		Window:      "09:00-09:30",
		Patient: booking.PatientInfo{
			Name:  "Nimal Perera",
			Phone: "+94761234567",
			Email: "nimal@example.com",
		},
	}
}

func (f *fixture) windowResolvable(t *testing.T, window string) bool {
	t.Helper()
	windows, err := f.bookings.AvailableWindows(context.Background(), f.clinician.ID, fxMonday)
	require.NoError(t, err)
	for _, w := range windows {
		if w.Identity() == window {
			return true
		}
	}
	return false
}

func TestBeginPayAtClinicCommitsImmediately(t *testing.T) {
	f := newFixture(t)

	res, err := f.coordinator.Begin(context.Background(), BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayAtClinic,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Appointment)
	assert.Equal(t, booking.StatusPending, res.Appointment.Status)
	assert.Equal(t, int64(7500), res.Appointment.FeeCents)
	assert.Empty(t, res.SessionID)

	assert.False(t, f.windowResolvable(t, "09:00-09:30"), "committed window must stop resolving")
}

func TestBeginPayOnlineCommitsNothing(t *testing.T) {
	f := newFixture(t)

	res, err := f.coordinator.Begin(context.Background(), BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	require.NoError(t, err)

	assert.Nil(t, res.Appointment)
	assert.NotEmpty(t, res.SessionID)
	assert.NotEmpty(t, res.CheckoutURL)

	// The slot is not held by a pending session.
	assert.True(t, f.windowResolvable(t, "09:00-09:30"), "pending session must not hold the slot")
}

func TestCompleteMaterializesPaidAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coordinator.Begin(ctx, BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	require.NoError(t, err)

	f.checkout.MarkPaid(res.SessionID)

	appt, err := f.coordinator.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, appt.Status)
	assert.Equal(t, booking.PayOnline, appt.PaymentMethod)
	assert.Equal(t, "09:00-09:30", appt.Window.Identity())

	assert.False(t, f.windowResolvable(t, "09:00-09:30"))

	// The session was consumed exactly once; a duplicate callback finds
	// nothing and books nothing.
	_, err = f.coordinator.Complete(ctx, res.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompleteUnpaidSessionIsRestored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coordinator.Begin(ctx, BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	require.NoError(t, err)

	_, err = f.coordinator.Complete(ctx, res.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotCompleted)

	// A later callback, after the patient actually paid, still works.
	f.checkout.MarkPaid(res.SessionID)
	appt, err := f.coordinator.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, appt.Status)
}

func TestCompleteSlotTakenParksSessionForReconciliation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coordinator.Begin(ctx, BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	require.NoError(t, err)

	// Someone else takes the window while the patient is off paying.
	other := f.pending()
	other.Patient.Name = "Kamala Fernando"
	_, err = f.coordinator.Begin(ctx, BeginRequest{
		Pending:       other,
		PaymentMethod: booking.PayAtClinic,
	})
	require.NoError(t, err)

	f.checkout.MarkPaid(res.SessionID)

	_, err = f.coordinator.Complete(ctx, res.SessionID)
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)

	candidates, err := f.sessions.ReconcileCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1, "a paid session that lost the slot must be parked")
	assert.True(t, strings.HasSuffix(candidates[0], res.SessionID))
}

func TestBeginOnlineCheckoutFailureLeavesNoState(t *testing.T) {
	f := newFixture(t)
	f.checkout.FailCreate = true

	_, err := f.coordinator.Begin(context.Background(), BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	require.Error(t, err)

	assert.Empty(t, f.redis.Keys(), "no session may survive a failed checkout creation")
	assert.True(t, f.windowResolvable(t, "09:00-09:30"))
}

func TestBeginOnlineWindowAlreadyGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coordinator.Begin(ctx, BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayAtClinic,
	})
	require.NoError(t, err)

	_, err = f.coordinator.Begin(ctx, BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
	assert.Empty(t, f.redis.Keys())
}

func TestCompleteStorageFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coordinator.Begin(ctx, BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	require.NoError(t, err)

	f.checkout.MarkPaid(res.SessionID)

	f.repo.createErr = errors.New("connection reset by peer")
	_, err = f.coordinator.Complete(ctx, res.SessionID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)

	// Not parked as failed: the slot is still winnable on retry.
	candidates, err := f.sessions.ReconcileCandidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	// Once storage recovers, the same callback succeeds.
	appt, err := f.coordinator.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, appt.Status)
}

func TestCompleteLockContentionKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coordinator.Begin(ctx, BeginRequest{
		Pending:       f.pending(),
		PaymentMethod: booking.PayOnline,
	})
	require.NoError(t, err)

	f.checkout.MarkPaid(res.SessionID)

	f.locker.failNext = true
	_, err = f.coordinator.Complete(ctx, res.SessionID)
	assert.ErrorIs(t, err, booking.ErrSlotBeingBooked)

	candidates, err := f.sessions.ReconcileCandidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates, "contention is transient, not a reconciliation case")

	appt, err := f.coordinator.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, appt.Status)
}
