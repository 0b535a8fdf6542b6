package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/channelmed/booking-engine/internal/booking"
)

var (
	ErrSessionNotFound = errors.New("payment session not found or expired")
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// PendingBooking is the full not-yet-committed reservation payload held by a
// session while the patient is off at external checkout.
type PendingBooking struct {
	ClinicianID uuid.UUID           `json:"clinicianId"`
	Date        string              `json:"date"`
	Window      string              `json:"window"`
	Patient     booking.PatientInfo `json:"patient"`
}

// Session is the ephemeral record of one online-payment attempt. It is keyed
// by the checkout provider's session ID, lives in Redis under a TTL, and is
// consumed exactly once by the completion callback. While a session is
// pending, the window it names stays resolvable to other patients; only a
// committed appointment holds a slot.
type Session struct {
	ID          string         `json:"id"` // provider session id
	Booking     PendingBooking `json:"booking"`
	AmountCents int64          `json:"amountCents"`
	Status      SessionStatus  `json:"status"`
	CheckoutURL string         `json:"checkoutUrl"`
	CreatedAt   time.Time      `json:"createdAt"`
}

const (
	sessionKeyPrefix   = "payment:session:"
	reconcileKeyPrefix = "payment:reconcile:"

	// reconcileTTL keeps failed completed-payment records around long enough
	// for the sweeper and an operator to act on them.
	reconcileTTL = 7 * 24 * time.Hour
)

// SessionStore persists payment sessions in Redis with a TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Put(ctx context.Context, sess Session) error {
	return s.write(ctx, sess, s.ttl)
}

// restoreGraceTTL is the floor applied when a consumed session is put back
// with almost no original lifetime left, so one more retry stays possible.
const restoreGraceTTL = time.Minute

// Restore re-stores a consumed session without extending its life: the TTL
// keeps counting from CreatedAt, so repeated restore cycles cannot keep a
// session alive past its original deadline.
func (s *SessionStore) Restore(ctx context.Context, sess Session) error {
	remaining := s.ttl - time.Since(sess.CreatedAt)
	if remaining < restoreGraceTTL {
		remaining = restoreGraceTTL
	}
	return s.write(ctx, sess, remaining)
}

func (s *SessionStore) write(ctx context.Context, sess Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal payment session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("store payment session: %w", err)
	}
	return nil
}

// Consume atomically removes and returns the session, so two concurrent
// callback deliveries cannot both materialize an appointment.
func (s *SessionStore) Consume(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.GetDel(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("consume payment session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode payment session: %w", err)
	}
	return &sess, nil
}

// RecordFailure parks a session whose payment completed but whose
// appointment could not materialize. These are reconciliation candidates; a
// paid patient must never be silently dropped.
func (s *SessionStore) RecordFailure(ctx context.Context, sess Session, reason string) error {
	sess.Status = SessionFailed
	payload := struct {
		Session
		Reason string `json:"reason"`
	}{sess, reason}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reconcile record: %w", err)
	}
	if err := s.client.Set(ctx, reconcileKeyPrefix+sess.ID, data, reconcileTTL).Err(); err != nil {
		return fmt.Errorf("store reconcile record: %w", err)
	}
	return nil
}

// ReconcileCandidates scans the parked failure records for the sweeper.
func (s *SessionStore) ReconcileCandidates(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, reconcileKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan reconcile records: %w", err)
	}
	return keys, nil
}
