package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/scheduling/internal/account"
	"github.com/medimeet/scheduling/internal/appointment"
	"github.com/medimeet/scheduling/internal/availability"
	"github.com/medimeet/scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	DoctorID    string `json:"doctor_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description,omitempty"`
}

type SetAvailabilityRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AddNotesRequest struct {
	Notes string `json:"notes"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          uuid.UUID `json:"patient_id"`
	DoctorID           uuid.UUID `json:"doctor_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Status             string    `json:"status"`
	VideoSessionID     *string   `json:"video_session_id,omitempty"`
	PatientDescription *string   `json:"patient_description,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		DoctorID:           a.DoctorID,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Status:             string(a.Status),
		VideoSessionID:     a.VideoSessionID,
		PatientDescription: a.PatientDescription,
		Notes:              a.Notes,
	}
}

func toAppointmentResponses(appts []appointment.Appointment) []AppointmentResponse {
	result := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		result = append(result, toAppointmentResponse(&appts[i]))
	}
	return result
}

type SlotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Formatted string    `json:"formatted"`
	Day       string    `json:"day"`
}

type DaySlotsResponse struct {
	Date        string         `json:"date"`
	DisplayDate string         `json:"display_date"`
	Slots       []SlotResponse `json:"slots"`
}

func toDaySlotsResponses(days []schedule.DaySlots) []DaySlotsResponse {
	result := make([]DaySlotsResponse, 0, len(days))
	for _, d := range days {
		slots := make([]SlotResponse, 0, len(d.Slots))
		for _, s := range d.Slots {
			slots = append(slots, SlotResponse{
				StartTime: s.StartTime,
				EndTime:   s.EndTime,
				Formatted: s.Formatted,
				Day:       s.Day,
			})
		}
		result = append(result, DaySlotsResponse{
			Date:        d.Date,
			DisplayDate: d.DisplayDate,
			Slots:       slots,
		})
	}
	return result
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

func toDoctorResponse(a *account.Account) DoctorResponse {
	return DoctorResponse{ID: a.ID, Name: a.Name, Specialty: a.Specialty}
}

type AccountResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Role    string    `json:"role"`
	Credits int       `json:"credits"`
}

type WindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

func toWindowResponse(w *availability.Window) WindowResponse {
	return WindowResponse{
		ID:        w.ID,
		DoctorID:  w.DoctorID,
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		Status:    string(w.Status),
	}
}

type TokenResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
