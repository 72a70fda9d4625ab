package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicvoice/healthie-agent/internal/actions"
	"github.com/clinicvoice/healthie-agent/internal/healthie"
	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

type stubFinder struct{}

func (stubFinder) FindPatient(context.Context, string, string) healthie.PatientLookup {
	return healthie.PatientLookup{Outcome: healthie.LookupNotFound}
}

type stubScheduler struct{}

func (stubScheduler) CreateAppointment(context.Context, string, string, string) healthie.BookingResult {
	return healthie.BookingResult{Outcome: healthie.BookingFailed}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	handler := actions.NewHandler(stubFinder{}, stubScheduler{}, nil, logging.Default())
	return New(&Config{
		Logger:  logging.Default(),
		Actions: handler,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestActionRoutes(t *testing.T) {
	r := newTestRouter(t)

	t.Run("find-patient wired", func(t *testing.T) {
		payload := `{"patient_name":"Jane Doe","patient_date_of_birth":"1990-01-05"}`
		req := httptest.NewRequest(http.MethodPost, "/actions/find-patient", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create-appointment wired", func(t *testing.T) {
		payload := `{"patient_id":"123","appointment_date":"2026-02-28","appointment_time":"4:00 PM"}`
		req := httptest.NewRequest(http.MethodPost, "/actions/create-appointment", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("GET rejected on action routes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/actions/find-patient", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMetricsEndpointMountedWhenConfigured(t *testing.T) {
	handler := actions.NewHandler(stubFinder{}, stubScheduler{}, nil, logging.Default())
	r := New(&Config{
		Actions: handler,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
