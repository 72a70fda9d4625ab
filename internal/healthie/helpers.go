package healthie

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Wait bounds in milliseconds. The portal renders asynchronously, so every
// read goes through a bounded visibility wait rather than a fixed sleep.
const (
	shortWaitMs   = 2500
	defaultWaitMs = 10000
	maxWaitMs     = 30000
)

// testID builds the CSS selector for one of the portal's data-test-id tagged
// controls. The portal uses "data-test-id", not the "data-testid" default
// Playwright resolves test ids against.
func testID(id string) string {
	return fmt.Sprintf(`[data-test-id=%q]`, id)
}

// waitVisible blocks until the locator is visible or the bound expires.
func waitVisible(loc playwright.Locator, timeoutMs float64) error {
	return loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMs),
	})
}

// waitForTestID returns the locator for a test-id tagged control once it is
// visible.
func waitForTestID(page playwright.Page, id string) (playwright.Locator, error) {
	loc := page.Locator(testID(id))
	if err := waitVisible(loc, maxWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: control %q not visible: %w", id, err)
	}
	return loc, nil
}

// textByTestID reads the trimmed inner text of a child control.
func textByTestID(container playwright.Locator, id string) (string, error) {
	text, err := container.Locator(testID(id)).InnerText()
	if err != nil {
		return "", fmt.Errorf("healthie: read %q: %w", id, err)
	}
	return strings.TrimSpace(text), nil
}

// valueByLabel reads the value cell of a label/value row inside container,
// e.g. the "Phone number" row of the basic-information panel.
func valueByLabel(container playwright.Locator, label string) (string, error) {
	row := container.Locator("div.row").Filter(playwright.LocatorFilterOptions{HasText: label})
	text, err := row.Locator("div").Last().InnerText()
	if err != nil {
		return "", fmt.Errorf("healthie: read %q row: %w", label, err)
	}
	return strings.TrimSpace(text), nil
}

// ensureSectionOpen expands a collapsible section when it is closed. Opened
// sections carry an "opened" class on the section element.
func ensureSectionOpen(section playwright.Locator) error {
	classes, err := section.GetAttribute("class")
	if err != nil {
		classes = ""
	}
	if strings.Contains(classes, "opened") {
		return nil
	}
	return section.GetByRole(*playwright.AriaRoleButton).Click()
}

// optionalText reads trimmed inner text, returning "" when the element is
// missing or unreadable. Used for fields the portal does not always render.
func optionalText(loc playwright.Locator) string {
	visible, err := loc.IsVisible()
	if err != nil || !visible {
		return ""
	}
	text, err := loc.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// waitUntil polls pred until it returns true or the timeout expires. This is
// the condition-based replacement for calendar-time sleeps wherever the page
// exposes a readiness signal.
func waitUntil(timeout, interval time.Duration, pred func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if pred() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}
