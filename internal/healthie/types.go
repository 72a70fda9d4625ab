package healthie

// PatientRecord is the normalized client profile extracted from the portal.
// Immutable once returned by the Finder.
type PatientRecord struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Group       string
	DateOfBirth string // YYYY-MM-DD or the portal's own label
	Location    string
	Timezone    string
	LastSync    string // portal's "Last Fitbit sync" label
	ClientSince string
}

// LookupOutcome tags the result of a patient search so callers can tell a
// clean miss from a timeout or a broken page without string-sniffing.
type LookupOutcome string

const (
	// LookupFound means exactly one row matched.
	LookupFound LookupOutcome = "found"
	// LookupAmbiguous means several rows matched and the first was used.
	LookupAmbiguous LookupOutcome = "ambiguous"
	// LookupNotFound means the portal reported no matches.
	LookupNotFound LookupOutcome = "not_found"
	// LookupTimeout means the results table never rendered within the bound.
	LookupTimeout LookupOutcome = "timeout"
	// LookupFailed means an automation step broke; Err carries the cause.
	LookupFailed LookupOutcome = "failed"
)

// PatientLookup is the tagged result of Finder.FindPatient.
type PatientLookup struct {
	Outcome LookupOutcome
	Patient *PatientRecord // set for found and ambiguous
	Err     error          // set for failed
}

// Found reports whether a patient record was extracted.
func (l PatientLookup) Found() bool {
	return l.Outcome == LookupFound || l.Outcome == LookupAmbiguous
}

// AppointmentRecord describes a confirmed appointment.
type AppointmentRecord struct {
	MeetingLink          string
	ConsultationType     string
	ConsultationDuration string
	Channel              string
	PatientName          string // empty when the opened entry does not expose it
	PatientPhone         string // empty when the opened entry does not expose it
	Date                 string // echoed request date, YYYY-MM-DD
	Time                 string // echoed request time, HH:MM AM/PM
}

// BookingOutcome tags the result of Scheduler.CreateAppointment.
type BookingOutcome string

const (
	// BookingCreated means the appointment was confirmed in the portal.
	BookingCreated BookingOutcome = "created"
	// BookingInvalidInput means the date or time did not parse.
	BookingInvalidInput BookingOutcome = "invalid_input"
	// BookingPastDate means the requested instant was already in the past;
	// the dialog is never opened for these.
	BookingPastDate BookingOutcome = "past_date"
	// BookingConflict means the portal flashed its double-booking message.
	BookingConflict BookingOutcome = "conflict"
	// BookingNotConfirmed means submission went through but the appointment
	// never appeared in the reloaded list.
	BookingNotConfirmed BookingOutcome = "not_confirmed"
	// BookingFailed means an automation step broke; Err carries the cause.
	BookingFailed BookingOutcome = "failed"
)

// BookingResult is the tagged result of Scheduler.CreateAppointment.
type BookingResult struct {
	Outcome     BookingOutcome
	Appointment *AppointmentRecord // set for created
	Err         error              // set for failed and invalid_input
}

// Created reports whether the appointment exists in the portal.
func (r BookingResult) Created() bool {
	return r.Outcome == BookingCreated
}
