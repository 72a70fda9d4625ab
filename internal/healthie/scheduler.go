package healthie

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/clinicvoice/healthie-agent/internal/dates"
	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

const (
	consultationOption   = "Initial Consultation - 60 Minutes"
	consultationType     = "Initial Consultation"
	consultationDuration = "60 Minutes"
	appointmentChannel   = "video call"

	// conflictMessage is the portal's standard double-booking flash text.
	conflictMessage = "You have another event scheduled at this time"

	// consultationTypeControl is the rendered react-select control for the
	// appointment type dropdown. Class names are part of the portal's build
	// output and owned by the portal, same as its test ids.
	consultationTypeControl = ".appointment_type_id > .css-1wpuca6-control > .css-cjz6q7 > .css-qc71lm"
)

// Scheduler drives the portal's multi-step appointment-creation dialog.
// Every distinct failure mode maps to a tagged booking outcome.
type Scheduler struct {
	sessions sessionProvider
	logger   *logging.Logger
	now      func() time.Time // test hook
}

// NewScheduler creates an appointment scheduler bound to the shared session.
func NewScheduler(sessions *SessionManager, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{sessions: sessions, logger: logger, now: time.Now}
}

// CreateAppointment books an Initial Consultation for the patient at the
// requested date (YYYY-MM-DD) and time (HH:MM AM/PM). Input validation and
// the past-instant check run before any browser work, so a past slot never
// opens the dialog.
func (s *Scheduler) CreateAppointment(ctx context.Context, patientID, date, clock string) BookingResult {
	target, err := dates.ToDateTime(date, clock)
	if err != nil {
		return BookingResult{Outcome: BookingInvalidInput, Err: err}
	}
	now := s.now()
	if target.Before(now) {
		s.logger.Info("rejecting past appointment request", "patient_id", patientID, "date", date, "time", clock)
		return BookingResult{Outcome: BookingPastDate}
	}

	page, release, err := s.sessions.Acquire(ctx)
	if err != nil {
		return BookingResult{Outcome: BookingFailed, Err: err}
	}
	defer release()

	s.logger.Info("creating appointment", "patient_id", patientID, "date", date, "time", clock)

	if err := s.openAppointmentDialog(page, patientID); err != nil {
		return BookingResult{Outcome: BookingFailed, Err: err}
	}
	if err := s.fillSlot(page, target, now, clock); err != nil {
		return BookingResult{Outcome: BookingFailed, Err: err}
	}

	if s.conflictFlashed(page) {
		s.logger.Info("portal reported a scheduling conflict", "patient_id", patientID, "date", date, "time", clock)
		return BookingResult{Outcome: BookingConflict}
	}

	submit := page.Locator(testID("appointment-form-modal")).Locator(testID("primaryButton"))
	if err := submit.Click(); err != nil {
		return BookingResult{Outcome: BookingFailed, Err: fmt.Errorf("healthie: submit appointment dialog: %w", err)}
	}

	entry, ok, err := s.confirmInList(page, target)
	if err != nil {
		return BookingResult{Outcome: BookingFailed, Err: err}
	}
	if !ok {
		s.logger.Warn("appointment missing from reloaded list", "patient_id", patientID, "label", dates.AppointmentLabel(target))
		return BookingResult{Outcome: BookingNotConfirmed}
	}

	record, err := s.extractRecord(page, entry, date, clock)
	if err != nil {
		return BookingResult{Outcome: BookingFailed, Err: err}
	}

	s.logger.Info("appointment created", "patient_id", patientID, "meeting_link", record.MeetingLink)
	return BookingResult{Outcome: BookingCreated, Appointment: record}
}

// openAppointmentDialog searches the header by patient id, opens the profile,
// opens the add-appointment dialog, and selects the consultation type.
func (s *Scheduler) openAppointmentDialog(page playwright.Page, patientID string) error {
	search, err := waitForTestID(page, "header-client-search-form")
	if err != nil {
		return err
	}
	if err := search.Fill(patientID); err != nil {
		return fmt.Errorf("healthie: fill header search: %w", err)
	}
	if err := search.Press("Enter"); err != nil {
		return fmt.Errorf("healthie: submit header search: %w", err)
	}

	viewProfile, err := waitForTestID(page, "view-profile")
	if err != nil {
		return err
	}
	if err := viewProfile.Click(); err != nil {
		return fmt.Errorf("healthie: open profile: %w", err)
	}

	addButton, err := waitForTestID(page, "add-appointment-button")
	if err != nil {
		return err
	}
	if err := addButton.Click(); err != nil {
		return fmt.Errorf("healthie: open appointment dialog: %w", err)
	}

	modal := page.Locator(`div[data-test-id="appointment-modal-body"], div._asideModalBody_bk67x_39`)
	if err := waitVisible(modal, maxWaitMs); err != nil {
		return fmt.Errorf("healthie: appointment dialog not visible: %w", err)
	}

	if err := page.Locator(consultationTypeControl).Click(); err != nil {
		return fmt.Errorf("healthie: open consultation type dropdown: %w", err)
	}
	option := page.GetByText(consultationOption, playwright.PageGetByTextOptions{Exact: playwright.Bool(true)})
	if err := option.Click(); err != nil {
		return fmt.Errorf("healthie: select consultation type: %w", err)
	}
	return nil
}

// fillSlot picks the time-of-day entry, pages the calendar to the target
// month, and clicks the target day button.
func (s *Scheduler) fillSlot(page playwright.Page, target, now time.Time, clock string) error {
	if err := page.GetByPlaceholder("Select a time").Click(); err != nil {
		return fmt.Errorf("healthie: open time picker: %w", err)
	}
	timeEntry := page.Locator("li.react-datepicker__time-list-item").
		Filter(playwright.LocatorFilterOptions{HasText: clock})
	if err := waitVisible(timeEntry, defaultWaitMs); err != nil {
		return fmt.Errorf("healthie: time entry %q not visible: %w", clock, err)
	}
	if err := timeEntry.Click(); err != nil {
		return fmt.Errorf("healthie: select time %q: %w", clock, err)
	}

	startDate := page.GetByRole(*playwright.AriaRoleTextbox, playwright.PageGetByRoleOptions{Name: "Start date*"})
	if err := startDate.Click(); err != nil {
		return fmt.Errorf("healthie: open start date calendar: %w", err)
	}

	for i := 0; i < dates.MonthDistance(now, target); i++ {
		if err := page.Locator(testID("next-month")).Click(); err != nil {
			return fmt.Errorf("healthie: page calendar forward: %w", err)
		}
	}

	dayButton := page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{
		Name: "Choose " + dates.TargetDateLabel(target),
	})
	if err := dayButton.Click(); err != nil {
		return fmt.Errorf("healthie: choose day %q: %w", dates.TargetDateLabel(target), err)
	}
	return nil
}

// conflictFlashed reports whether the dialog's flash region shows the
// portal's double-booking message. The flash renders shortly after day
// selection, so it gets a short visibility bound.
func (s *Scheduler) conflictFlashed(page playwright.Page) bool {
	flash := page.Locator(testID("appointment-form-modal")).Locator(testID("flash-message"))
	if err := waitVisible(flash, shortWaitMs); err != nil {
		return false
	}
	text, err := flash.InnerText()
	if err != nil {
		return false
	}
	return strings.TrimSpace(text) == conflictMessage
}

// confirmInList reloads the appointments list by toggling the past/future
// tabs and locates the entry carrying the canonical appointment label.
func (s *Scheduler) confirmInList(page playwright.Page, target time.Time) (playwright.Locator, bool, error) {
	for _, tab := range []string{"tab-past", "tab-future"} {
		tabButton, err := waitForTestID(page, tab)
		if err != nil {
			return nil, false, err
		}
		if err := tabButton.Click(); err != nil {
			return nil, false, fmt.Errorf("healthie: toggle %s: %w", tab, err)
		}
	}

	list := page.Locator(testID("cop-appointments-section")).Locator(testID("collapsible-section-body"))
	if err := waitVisible(list, maxWaitMs); err != nil {
		return nil, false, fmt.Errorf("healthie: appointments list not visible: %w", err)
	}

	entry := list.GetByText(dates.AppointmentLabel(target))
	if err := waitVisible(entry, defaultWaitMs); err != nil {
		return nil, false, nil
	}
	return entry, true, nil
}

// extractRecord opens the confirmed entry and assembles the appointment
// record. Patient contact details are read from the opened panel when the
// portal exposes them and left empty otherwise.
func (s *Scheduler) extractRecord(page playwright.Page, entry playwright.Locator, date, clock string) (*AppointmentRecord, error) {
	if err := entry.Click(); err != nil {
		return nil, fmt.Errorf("healthie: open appointment entry: %w", err)
	}

	link := page.GetByRole(*playwright.AriaRoleLink, playwright.PageGetByRoleOptions{Name: "Healthie video call"})
	if err := waitVisible(link, defaultWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: video call link not visible: %w", err)
	}
	href, err := link.GetAttribute("href")
	if err != nil {
		return nil, fmt.Errorf("healthie: read video call link: %w", err)
	}

	panel := page.Locator(testID("appointment-panel"))
	patientName := optionalText(panel.Locator(testID("attendee-name")))
	patientPhone := optionalText(panel.Locator(testID("attendee-phone")))

	return &AppointmentRecord{
		MeetingLink:          s.sessions.BaseURL() + "/" + strings.TrimLeft(href, "/"),
		ConsultationType:     consultationType,
		ConsultationDuration: consultationDuration,
		Channel:              appointmentChannel,
		PatientName:          patientName,
		PatientPhone:         patientPhone,
		Date:                 date,
		Time:                 clock,
	}, nil
}
