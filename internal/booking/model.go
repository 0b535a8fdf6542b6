package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/channelmed/booking-engine/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var ErrUnknownStatus = errors.New("unknown appointment status")

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusConfirmed, StatusPaid, StatusCompleted, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

type PaymentMethod string

const (
	PayAtClinic PaymentMethod = "payAtClinic"
	PayOnline   PaymentMethod = "payOnline"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case PayAtClinic, PayOnline:
		return PaymentMethod(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, raw)
}

// PatientInfo is the contact block captured with every reservation.
type PatientInfo struct {
	Name  string `json:"patientName"`
	Phone string `json:"phoneNumber"`
	Email string `json:"email"`
	Notes string `json:"notes,omitempty"`
}

// Appointment is the durable record of one consumed window. Appointments are
// never deleted; the lifecycle only moves their status.
type Appointment struct {
	ID                 uuid.UUID
	AppointmentNumber  int64 // global monotonic sequence, human-facing
	PatientQueueNumber int   // per (clinician, date), starts at 1
	ClinicianID        uuid.UUID
	Date               string // civil date YYYY-MM-DD
	Window             schedule.TimeWindow
	Patient            PatientInfo
	PaymentMethod      PaymentMethod
	FeeCents           int64 // captured at booking time, immutable
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
