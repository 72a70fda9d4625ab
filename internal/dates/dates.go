// Package dates converts caller-supplied date and time strings into the
// canonical instants and UI labels the Healthie portal works with.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// DateLayouts are the date-of-birth formats accepted from callers.
var DateLayouts = []string{"2006-01-02", "Jan 2, 2006", "January 2, 2006"}

const (
	dateTimeLayout = "2006-01-02 3:04 PM"
	labelLayout    = "Jan 02, 2006"
	clockLayout    = "3:04 PM"
)

// ParseFlexibleDate parses a date in any supported caller format.
func ParseFlexibleDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dates: %q must match one of the formats: %s", value, strings.Join(DateLayouts, ", "))
}

// ToDateTime combines a YYYY-MM-DD date and an HH:MM AM/PM clock value into
// a single instant.
func ToDateTime(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(dateTimeLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: parse %q %q: %w", date, clock, err)
	}
	return t, nil
}

// DayWithSuffix returns the day of month with its ordinal suffix, e.g. 23 -> "23rd".
func DayWithSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return fmt.Sprintf("%dth", day)
	}
	switch day % 10 {
	case 1:
		return fmt.Sprintf("%dst", day)
	case 2:
		return fmt.Sprintf("%dnd", day)
	case 3:
		return fmt.Sprintf("%drd", day)
	}
	return fmt.Sprintf("%dth", day)
}

// TargetDateLabel formats the calendar day-button label the portal renders,
// e.g. "Saturday, February 28th".
func TargetDateLabel(t time.Time) string {
	return t.Format("Monday, January ") + DayWithSuffix(t.Day())
}

// AppointmentLabel formats the appointments-list entry label, e.g.
// "Feb 28, 2026 at 4:00 PM". The day is zero-padded, the hour is not.
func AppointmentLabel(t time.Time) string {
	return t.Format(labelLayout) + " at " + t.Format(clockLayout)
}

// MonthDistance returns how many times the calendar must page forward from
// now to show target's month. Targets before now yield 0.
func MonthDistance(now, target time.Time) int {
	if target.Before(now) {
		return 0
	}
	return (target.Year()-now.Year())*12 + int(target.Month()) - int(now.Month())
}
