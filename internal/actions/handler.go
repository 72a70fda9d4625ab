// Package actions exposes the portal automation as callable actions for the
// conversational voice front-end: find_patient and create_appointment, each
// returning a structured success/failure payload and never a raw error.
package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicvoice/healthie-agent/internal/dates"
	"github.com/clinicvoice/healthie-agent/internal/healthie"
	"github.com/clinicvoice/healthie-agent/internal/observability/metrics"
	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

// Error codes recognized by the voice front-end.
const (
	CodeInvalidInput      = "invalid_input"
	CodePatientNotFound   = "patient_not_found"
	CodePatientIDNotFound = "patient_id_not_found"
	CodeAppointmentFailed = "appointment_creation_failed"
	CodeUnexpectedError   = "unexpected_error"
)

// PatientFinder is the slice of the portal integration the find_patient
// action needs.
type PatientFinder interface {
	FindPatient(ctx context.Context, name, dateOfBirth string) healthie.PatientLookup
}

// AppointmentScheduler is the slice the create_appointment action needs.
type AppointmentScheduler interface {
	CreateAppointment(ctx context.Context, patientID, date, clock string) healthie.BookingResult
}

// FindPatientRequest is the find_patient action input.
type FindPatientRequest struct {
	PatientName        string `json:"patient_name"`
	PatientDateOfBirth string `json:"patient_date_of_birth"`
}

// CreateAppointmentRequest is the create_appointment action input.
type CreateAppointmentRequest struct {
	PatientID       string `json:"patient_id"`
	AppointmentDate string `json:"appointment_date"` // YYYY-MM-DD
	AppointmentTime string `json:"appointment_time"` // HH:MM AM/PM
}

// PatientPayload is the patient slice returned to the front-end.
type PatientPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"`
}

// AppointmentPayload is the appointment slice returned to the front-end.
type AppointmentPayload struct {
	MeetingLink          string `json:"meeting_link"`
	ConsultationType     string `json:"consultation_type"`
	ConsultationDuration string `json:"consultation_duration"`
	AppointmentChannel   string `json:"appointment_channel"`
	PatientName          string `json:"patient_name"`
	PatientPhone         string `json:"patient_phone"`
	AppointmentDate      string `json:"appointment_date"`
	AppointmentTime      string `json:"appointment_time"`
}

// Response is the uniform action result envelope.
type Response struct {
	Success     bool                `json:"success"`
	Patient     *PatientPayload     `json:"patient,omitempty"`
	Appointment *AppointmentPayload `json:"appointment,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorCode   string              `json:"error_code,omitempty"`
}

// Handler serves the action endpoints.
type Handler struct {
	finder    PatientFinder
	scheduler AppointmentScheduler
	metrics   *metrics.ActionMetrics
	logger    *logging.Logger
}

// NewHandler creates an action handler. metrics may be nil.
func NewHandler(finder PatientFinder, scheduler AppointmentScheduler, m *metrics.ActionMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{finder: finder, scheduler: scheduler, metrics: m, logger: logger}
}

// FindPatient handles POST /actions/find-patient.
func (h *Handler) FindPatient(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With("action", "find_patient", "request_id", uuid.NewString())
	started := time.Now()
	defer func() {
		h.metrics.ObserveDuration("find_patient", time.Since(started).Seconds())
	}()

	var req FindPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, log, "find_patient", http.StatusBadRequest, CodeInvalidInput, "Request body must be valid JSON.")
		return
	}

	name := strings.TrimSpace(req.PatientName)
	if name == "" {
		h.fail(w, log, "find_patient", http.StatusBadRequest, CodeInvalidInput, "Patient name cannot be empty.")
		return
	}
	dob, err := dates.ParseFlexibleDate(req.PatientDateOfBirth)
	if err != nil {
		h.fail(w, log, "find_patient", http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	lookup := h.finder.FindPatient(r.Context(), name, dob.Format("2006-01-02"))

	switch {
	case lookup.Found():
		if lookup.Patient.ID == "" {
			h.fail(w, log, "find_patient", http.StatusNotFound, CodePatientIDNotFound,
				"Patient record is missing an identifier; cannot find a patient.")
			return
		}
		log.Info("patient found", "patient_id", lookup.Patient.ID, "outcome", string(lookup.Outcome))
		h.metrics.ObserveAction("find_patient", string(lookup.Outcome))
		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Patient: &PatientPayload{
				ID:          lookup.Patient.ID,
				Name:        lookup.Patient.Name,
				Email:       lookup.Patient.Email,
				PhoneNumber: lookup.Patient.Phone,
				DateOfBirth: lookup.Patient.DateOfBirth,
			},
		})
	case lookup.Outcome == healthie.LookupFailed:
		log.Error("patient lookup failed", "error", lookup.Err)
		h.fail(w, log, "find_patient", http.StatusInternalServerError, CodeUnexpectedError,
			"Something went wrong while searching for the patient.")
	default: // not_found, timeout
		h.fail(w, log, "find_patient", http.StatusNotFound, CodePatientNotFound,
			"No patient found for the given name and date of birth.")
	}
}

// CreateAppointment handles POST /actions/create-appointment.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With("action", "create_appointment", "request_id", uuid.NewString())
	started := time.Now()
	defer func() {
		h.metrics.ObserveDuration("create_appointment", time.Since(started).Seconds())
	}()

	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, log, "create_appointment", http.StatusBadRequest, CodeInvalidInput, "Request body must be valid JSON.")
		return
	}
	if strings.TrimSpace(req.PatientID) == "" {
		h.fail(w, log, "create_appointment", http.StatusBadRequest, CodeInvalidInput, "Patient identifier cannot be empty.")
		return
	}

	result := h.scheduler.CreateAppointment(r.Context(), strings.TrimSpace(req.PatientID), req.AppointmentDate, req.AppointmentTime)

	switch result.Outcome {
	case healthie.BookingCreated:
		log.Info("appointment created", "patient_id", req.PatientID, "date", req.AppointmentDate, "time", req.AppointmentTime)
		h.metrics.ObserveAction("create_appointment", string(result.Outcome))
		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Appointment: &AppointmentPayload{
				MeetingLink:          result.Appointment.MeetingLink,
				ConsultationType:     result.Appointment.ConsultationType,
				ConsultationDuration: result.Appointment.ConsultationDuration,
				AppointmentChannel:   result.Appointment.Channel,
				PatientName:          result.Appointment.PatientName,
				PatientPhone:         result.Appointment.PatientPhone,
				AppointmentDate:      result.Appointment.Date,
				AppointmentTime:      result.Appointment.Time,
			},
		})
	case healthie.BookingInvalidInput:
		h.fail(w, log, "create_appointment", http.StatusBadRequest, CodeInvalidInput, result.Err.Error())
	case healthie.BookingPastDate:
		h.fail(w, log, "create_appointment", http.StatusConflict, CodeAppointmentFailed,
			"The requested time is in the past; please choose another slot.")
	case healthie.BookingConflict:
		h.fail(w, log, "create_appointment", http.StatusConflict, CodeAppointmentFailed,
			"Another event is already scheduled at this time; please try another slot.")
	case healthie.BookingNotConfirmed:
		h.fail(w, log, "create_appointment", http.StatusConflict, CodeAppointmentFailed,
			"The portal did not confirm the appointment; please try another slot.")
	default: // failed
		log.Error("appointment creation failed", "error", result.Err)
		h.fail(w, log, "create_appointment", http.StatusInternalServerError, CodeUnexpectedError,
			"Something went wrong while creating the appointment.")
	}
}

func (h *Handler) fail(w http.ResponseWriter, log *logging.Logger, action string, status int, code, message string) {
	h.metrics.ObserveAction(action, code)
	log.Warn("action rejected", "error_code", code, "message", message)
	writeJSON(w, status, Response{Success: false, Error: message, ErrorCode: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
