package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medimeet/scheduling/internal/account"
	"github.com/medimeet/scheduling/internal/appointment"
	"github.com/medimeet/scheduling/internal/availability"
	"github.com/medimeet/scheduling/internal/ledger"
	"github.com/medimeet/scheduling/internal/video"
)

func listDoctorsHandler(accounts account.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := accounts.ListVerifiedDoctors(r.Context(), r.URL.Query().Get("specialty"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			resp = append(resp, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getDoctorHandler(accounts account.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		doctor, err := accounts.GetVerifiedDoctor(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(doctor))
	}
}

func getSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		days, err := svc.GetSlots(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDaySlotsResponses(days))
	}
}

func setAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requesterID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid X-Account-ID header")
			return
		}

		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if caller != id {
			writeError(w, http.StatusForbidden, "forbidden", "doctors manage only their own availability")
			return
		}

		var req SetAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, end, ok := parseInterval(w, req.StartTime, req.EndTime)
		if !ok {
			return
		}

		window, err := svc.SetWindow(r.Context(), id, start, end)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWindowResponse(window))
	}
}

func listAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		windows, err := svc.ListWindows(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for i := range windows {
			resp = append(resp, toWindowResponse(&windows[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requesterID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid X-Account-ID header")
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		start, end, ok := parseInterval(w, req.StartTime, req.EndTime)
		if !ok {
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookRequest{
			PatientID:   caller,
			DoctorID:    doctorID,
			StartTime:   start,
			EndTime:     end,
			Description: req.Description,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, id, ok := identifiedPathID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Cancel(r.Context(), id, caller)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, id, ok := identifiedPathID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Complete(r.Context(), id, caller)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func addNotesHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, id, ok := identifiedPathID(w, r)
		if !ok {
			return
		}

		var req AddNotesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.AddNotes(r.Context(), id, caller, req.Notes)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func issueTokenHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, id, ok := identifiedPathID(w, r)
		if !ok {
			return
		}

		grant, err := svc.IssueAccessToken(r.Context(), id, caller)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TokenResponse{
			SessionID: grant.SessionID,
			Token:     grant.Token,
			ExpiresAt: grant.ExpiresAt,
		})
	}
}

func allocateCreditsHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, id, ok := identifiedPathID(w, r)
		if !ok {
			return
		}
		if caller != id {
			writeError(w, http.StatusForbidden, "forbidden", "credits are allocated to the caller's own account")
			return
		}

		acct, err := svc.AllocateMonthlyCredits(r.Context(), id, time.Now())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AccountResponse{
			ID:      acct.ID,
			Name:    acct.Name,
			Role:    string(acct.Role),
			Credits: acct.Credits,
		})
	}
}

func listPatientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, id, ok := identifiedPathID(w, r)
		if !ok {
			return
		}
		if caller != id {
			writeError(w, http.StatusForbidden, "forbidden", "patients see only their own appointments")
			return
		}

		appts, err := svc.ListPatientAppointments(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func listDoctorAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, id, ok := identifiedPathID(w, r)
		if !ok {
			return
		}
		if caller != id {
			writeError(w, http.StatusForbidden, "forbidden", "doctors see only their own appointments")
			return
		}

		appts, err := svc.ListDoctorAppointments(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, account.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, account.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, availability.ErrNoWindow):
		writeError(w, http.StatusNotFound, "no_availability", err.Error())
	case errors.Is(err, availability.ErrInvalidRange),
		errors.Is(err, appointment.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ledger.ErrInsufficientCredits):
		writeError(w, http.StatusPaymentRequired, "insufficient_credits", err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrNotScheduled):
		writeError(w, http.StatusConflict, "not_scheduled", err.Error())
	case errors.Is(err, appointment.ErrTooEarly):
		writeError(w, http.StatusConflict, "too_early", err.Error())
	case errors.Is(err, appointment.ErrTokenNotAvailable):
		writeError(w, http.StatusConflict, "token_not_yet_available", err.Error())
	case errors.Is(err, video.ErrUnknownSession):
		writeError(w, http.StatusConflict, "session_not_provisioned", err.Error())
	case errors.Is(err, video.ErrSessionProvisioning):
		writeError(w, http.StatusBadGateway, "session_provisioning_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// pathID parses the {id} route parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// identifiedPathID combines the identity header check with {id} parsing.
func identifiedPathID(w http.ResponseWriter, r *http.Request) (caller, id uuid.UUID, ok bool) {
	caller, ok = requesterID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid X-Account-ID header")
		return uuid.Nil, uuid.Nil, false
	}
	id, ok = pathID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return caller, id, true
}

func parseInterval(w http.ResponseWriter, startStr, endStr string) (start, end time.Time, ok bool) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be RFC 3339")
		return start, end, false
	}
	end, err = time.Parse(time.RFC3339, endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be RFC 3339")
		return start, end, false
	}
	return start, end, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
