package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelmed/booking-engine/internal/booking"
	"github.com/channelmed/booking-engine/internal/schedule"
)

type CreateAppointmentRequest struct {
	ClinicianID   string `json:"clinicianId" validate:"required,uuid"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime     string `json:"startTime" validate:"required"`
	EndTime       string `json:"endTime" validate:"required"`
	PatientName   string `json:"patientName" validate:"required"`
	PhoneNumber   string `json:"phoneNumber" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Notes         string `json:"notes"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=payAtClinic payOnline"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type WindowResponse struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type AvailabilityResponse struct {
	ClinicianID uuid.UUID        `json:"clinicianId"`
	Date        string           `json:"date"`
	Windows     []WindowResponse `json:"slots"`
}

type DayAvailabilityResponse struct {
	Day   string           `json:"day"`
	Slots []WindowResponse `json:"slots"`
}

type ClinicianResponse struct {
	ID            uuid.UUID                 `json:"id"`
	Name          string                    `json:"name"`
	Specialty     *string                   `json:"specialty,omitempty"`
	FeeCents      int64                     `json:"consultationFee"`
	AvailableDays []DayAvailabilityResponse `json:"availableDays"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID `json:"id"`
	AppointmentNumber  int64     `json:"appointmentNumber"`
	PatientQueueNumber int       `json:"patientQueueNumber"`
	ClinicianID        uuid.UUID `json:"clinicianId"`
	Date               string    `json:"date"`
	StartTime          string    `json:"startTime"`
	EndTime            string    `json:"endTime"`
	PatientName        string    `json:"patientName"`
	PhoneNumber        string    `json:"phoneNumber"`
	Email              string    `json:"email"`
	Notes              string    `json:"notes,omitempty"`
	PaymentMethod      string    `json:"paymentMethod"`
	FeeCents           int64     `json:"consultationFee"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toWindowResponse(w schedule.TimeWindow) WindowResponse {
	return WindowResponse{
		StartTime: w.Start.String(),
		EndTime:   w.End.String(),
	}
}

func toClinicianResponse(c *schedule.Clinician) ClinicianResponse {
	days := make([]DayAvailabilityResponse, 0, len(c.Weekly))
	for _, d := range c.Weekly {
		slots := make([]WindowResponse, 0, len(d.Windows))
		for _, w := range d.Windows {
			slots = append(slots, toWindowResponse(w))
		}
		days = append(days, DayAvailabilityResponse{Day: string(d.Day), Slots: slots})
	}
	return ClinicianResponse{
		ID:            c.ID,
		Name:          c.Name,
		Specialty:     c.Specialty,
		FeeCents:      c.FeeCents,
		AvailableDays: days,
	}
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		AppointmentNumber:  a.AppointmentNumber,
		PatientQueueNumber: a.PatientQueueNumber,
		ClinicianID:        a.ClinicianID,
		Date:               a.Date,
		StartTime:          a.Window.Start.String(),
		EndTime:            a.Window.End.String(),
		PatientName:        a.Patient.Name,
		PhoneNumber:        a.Patient.Phone,
		Email:              a.Patient.Email,
		Notes:              a.Patient.Notes,
		PaymentMethod:      string(a.PaymentMethod),
		FeeCents:           a.FeeCents,
		Status:             string(a.Status),
		CreatedAt:          a.CreatedAt,
	}
}
