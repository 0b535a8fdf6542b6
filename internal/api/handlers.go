package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/channelmed/booking-engine/internal/booking"
	"github.com/channelmed/booking-engine/internal/payment"
	"github.com/channelmed/booking-engine/internal/redisclient"
	"github.com/channelmed/booking-engine/internal/schedule"
)

var validate = validator.New()

func listCliniciansHandler(schedules schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagination(r)

		clinicians, err := schedules.ListClinicians(r.Context(), r.URL.Query().Get("specialty"), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]ClinicianResponse, 0, len(clinicians))
		for i := range clinicians {
			resp = append(resp, toClinicianResponse(&clinicians[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getClinicianHandler(schedules schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinician_id", "id must be a valid UUID")
			return
		}

		clin, err := schedules.GetClinician(r.Context(), id)
		if err != nil {
			if errors.Is(err, schedule.ErrClinicianNotFound) {
				writeError(w, http.StatusNotFound, "clinician_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toClinicianResponse(clin))
	}
}

func availabilityHandler(bookings *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinician_id", "id must be a valid UUID")
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "date query parameter is required")
			return
		}

		windows, err := bookings.AvailableWindows(r.Context(), id, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := AvailabilityResponse{
			ClinicianID: id,
			Date:        date,
			Windows:     make([]WindowResponse, 0, len(windows)),
		}
		for _, win := range windows {
			resp.Windows = append(resp.Windows, toWindowResponse(win))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(coord *payment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		clinicianID, err := uuid.Parse(req.ClinicianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinician_id", "clinicianId must be a valid UUID")
			return
		}

		method, err := booking.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		result, err := coord.Begin(r.Context(), payment.BeginRequest{
			Pending: payment.PendingBooking{
				ClinicianID: clinicianID,
				Date:        req.Date,
				Window:      req.StartTime + "-" + req.EndTime,
				Patient: booking.PatientInfo{
					Name:  req.PatientName,
					Phone: req.PhoneNumber,
					Email: req.Email,
					Notes: req.Notes,
				},
			},
			PaymentMethod: method,
		})
		if err != nil {
			reservationsTotal.WithLabelValues(string(method), "error").Inc()
			handleBookingError(w, err)
			return
		}

		if result.Appointment != nil {
			reservationsTotal.WithLabelValues(string(method), "committed").Inc()
			writeJSON(w, http.StatusCreated, toAppointmentResponse(result.Appointment))
			return
		}

		paymentSessionsTotal.WithLabelValues("created").Inc()
		writeJSON(w, http.StatusAccepted, CheckoutResponse{
			SessionID:   result.SessionID,
			CheckoutURL: result.CheckoutURL,
		})
	}
}

func paymentSuccessHandler(coord *payment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "session_id query parameter is required")
			return
		}

		appt, err := coord.Complete(r.Context(), sessionID)
		if err != nil {
			paymentSessionsTotal.WithLabelValues("failed").Inc()
			handlePaymentError(w, err)
			return
		}

		paymentSessionsTotal.WithLabelValues("completed").Inc()
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(bookings *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := bookings.GetAppointment(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(bookings *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagination(r)
		filter := booking.ListFilter{Limit: limit, Offset: offset}

		if raw := r.URL.Query().Get("clinicianId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_clinician_id", "clinicianId must be a valid UUID")
				return
			}
			filter.ClinicianID = &id
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := booking.ParseStatus(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
				return
			}
			filter.Status = &status
		}

		appointments, err := bookings.ListAppointments(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appointments))
		for i := range appointments {
			resp = append(resp, toAppointmentResponse(&appointments[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// updateStatusHandler is the administrative correction surface; it uses the
// permissive override path, not the strict lifecycle table.
func updateStatusHandler(bookings *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status, err := booking.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		appt, err := bookings.AdminSetStatus(r.Context(), id, status)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, schedule.ErrInvalidTime),
		errors.Is(err, schedule.ErrInvalidWindow),
		errors.Is(err, booking.ErrUnknownStatus),
		errors.Is(err, booking.ErrUnknownPaymentMethod):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, schedule.ErrClinicianNotFound):
		writeError(w, http.StatusNotFound, "clinician_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "SLOT_UNAVAILABLE", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "window is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, payment.ErrSessionNotCompleted):
		writeError(w, http.StatusConflict, "payment_not_completed", err.Error())
	default:
		handleBookingError(w, err)
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			offset = n
		}
	}
	return limit, offset
}
