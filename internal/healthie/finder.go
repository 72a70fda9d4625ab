package healthie

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

const noResultsMessage = "No results match your search"

// Finder drives the portal's client-search screen and extracts patient
// records. It never raises on UI surprises past session acquisition; every
// failure mode maps to a tagged lookup outcome.
type Finder struct {
	sessions sessionProvider
	logger   *logging.Logger
}

// NewFinder creates a patient finder bound to the shared session.
func NewFinder(sessions *SessionManager, logger *logging.Logger) *Finder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Finder{sessions: sessions, logger: logger}
}

// FindPatient searches the clients listing by name, opens the first matching
// profile, and extracts a normalized record. dateOfBirth (YYYY-MM-DD) is
// substituted into the record when the portal's own DOB label is empty.
func (f *Finder) FindPatient(ctx context.Context, name, dateOfBirth string) PatientLookup {
	page, release, err := f.sessions.Acquire(ctx)
	if err != nil {
		return PatientLookup{Outcome: LookupFailed, Err: err}
	}
	defer release()

	f.logger.Info("searching portal for patient", "name", name)

	clientsLink := page.GetByRole(*playwright.AriaRoleLink, playwright.PageGetByRoleOptions{Name: "Clients"})
	if err := waitVisible(clientsLink, maxWaitMs); err != nil {
		return PatientLookup{Outcome: LookupFailed, Err: fmt.Errorf("healthie: clients link not visible: %w", err)}
	}
	if err := clientsLink.Click(); err != nil {
		return PatientLookup{Outcome: LookupFailed, Err: fmt.Errorf("healthie: open clients listing: %w", err)}
	}

	searchInput, err := waitForTestID(page, "search-input")
	if err != nil {
		return PatientLookup{Outcome: LookupFailed, Err: err}
	}
	if err := searchInput.Fill(name); err != nil {
		return PatientLookup{Outcome: LookupFailed, Err: fmt.Errorf("healthie: fill search: %w", err)}
	}
	if err := searchInput.Press("Enter"); err != nil {
		return PatientLookup{Outcome: LookupFailed, Err: fmt.Errorf("healthie: submit search: %w", err)}
	}

	// A short bound is enough for the explicit "no results" banner; the
	// results table gets the long one.
	noResults := page.GetByText(noResultsMessage)
	if err := waitVisible(noResults, shortWaitMs); err == nil {
		f.logger.Info("portal reported no matches", "name", name)
		return PatientLookup{Outcome: LookupNotFound}
	}

	results := page.Locator("#quick-profile-user-list-target")
	if err := waitVisible(results, maxWaitMs); err != nil {
		f.logger.Warn("results container never rendered, assuming no matches", "name", name)
		return PatientLookup{Outcome: LookupTimeout}
	}
	if err := waitVisible(results.Locator("table"), maxWaitMs); err != nil {
		f.logger.Warn("results table never rendered, assuming no matches", "name", name)
		return PatientLookup{Outcome: LookupTimeout}
	}

	rows := results.Locator(testID("user-row"))
	count, err := rows.Count()
	if err != nil {
		return PatientLookup{Outcome: LookupFailed, Err: fmt.Errorf("healthie: count result rows: %w", err)}
	}
	f.logger.Info("result rows", "name", name, "count", count)

	if count == 0 {
		return PatientLookup{Outcome: LookupNotFound}
	}
	ambiguous := count > 1
	if ambiguous {
		f.logger.Warn("multiple patients matched, using the first row", "name", name, "count", count)
	}

	record, err := f.openAndExtract(page, rows.First(), name, dateOfBirth)
	if err != nil {
		f.logger.Error("patient extraction failed", "name", name, "error", err)
		return PatientLookup{Outcome: LookupFailed, Err: err}
	}

	outcome := LookupFound
	if ambiguous {
		outcome = LookupAmbiguous
	}
	f.logger.Info("patient extracted", "name", name, "patient_id", record.ID)
	return PatientLookup{Outcome: outcome, Patient: record}
}

// openAndExtract opens a result row's profile and reads the basic-information
// panel into a PatientRecord.
func (f *Finder) openAndExtract(page playwright.Page, row playwright.Locator, name, dateOfBirth string) (*PatientRecord, error) {
	if err := waitVisible(row, maxWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: result row not visible: %w", err)
	}
	link := row.Locator(testID("client-link"))
	if err := waitVisible(link, maxWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: client link not visible: %w", err)
	}
	if err := link.Click(); err != nil {
		return nil, fmt.Errorf("healthie: open client profile: %w", err)
	}

	section := page.Locator(testID("cp-section-basic-information"))
	if err := waitVisible(section, maxWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: basic information section not visible: %w", err)
	}
	if err := ensureSectionOpen(section); err != nil {
		return nil, fmt.Errorf("healthie: expand basic information: %w", err)
	}

	basicInfo := page.Locator(testID("client-basic-info"))
	if err := waitVisible(basicInfo, maxWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: basic info panel not visible: %w", err)
	}

	id, err := textByTestID(basicInfo, "unique-client-id")
	if err != nil {
		return nil, err
	}
	clientSince, err := textByTestID(basicInfo, "client-since")
	if err != nil {
		return nil, err
	}
	dobLabel, err := textByTestID(basicInfo, "client-dob")
	if err != nil {
		return nil, err
	}
	phone, err := valueByLabel(basicInfo, "Phone number")
	if err != nil {
		return nil, err
	}
	group, err := valueByLabel(basicInfo, "Group")
	if err != nil {
		return nil, err
	}
	timezone, err := valueByLabel(basicInfo, "Timezone")
	if err != nil {
		return nil, err
	}
	location, err := valueByLabel(basicInfo, "Location")
	if err != nil {
		return nil, err
	}
	lastSync, err := valueByLabel(basicInfo, "Last Fitbit sync")
	if err != nil {
		return nil, err
	}

	// The sidebar email is not always present; empty is fine.
	email := ""
	if text, err := page.Locator(".sidebar-email").TextContent(); err == nil {
		email = strings.TrimSpace(text)
	}

	return newPatientRecord(basicInfoFields{
		ID:          id,
		Email:       email,
		Phone:       phone,
		Group:       group,
		DOBLabel:    dobLabel,
		Location:    location,
		Timezone:    timezone,
		LastSync:    lastSync,
		ClientSince: clientSince,
	}, name, dateOfBirth), nil
}

// basicInfoFields holds the raw values read from the basic-information panel.
type basicInfoFields struct {
	ID          string
	Email       string
	Phone       string
	Group       string
	DOBLabel    string
	Location    string
	Timezone    string
	LastSync    string
	ClientSince string
}

// newPatientRecord normalizes panel values into a record. The portal's own
// date-of-birth label wins; the caller-supplied date of birth fills in only
// when the label is empty.
func newPatientRecord(info basicInfoFields, name, dateOfBirth string) *PatientRecord {
	dob := info.DOBLabel
	if dob == "" {
		dob = dateOfBirth
	}
	return &PatientRecord{
		ID:          info.ID,
		Name:        name,
		Email:       info.Email,
		Phone:       info.Phone,
		Group:       info.Group,
		DateOfBirth: dob,
		Location:    info.Location,
		Timezone:    info.Timezone,
		LastSync:    info.LastSync,
		ClientSince: info.ClientSince,
	}
}
