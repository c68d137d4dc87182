package services

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// IntakeScreenResult describes an injection pattern found in a free-text
// intake field.
type IntakeScreenResult struct {
	Field       string // Name of the intake field that failed the check
	IsSQLi      bool
	IsXSS       bool
	Fingerprint string // libinjection fingerprint when SQLi was detected
}

// ScreenIntakeField checks one free-text intake value for SQL injection and
// XSS payloads before it is persisted. Returns nil when the value is clean.
// Persistence is parameterized everywhere, so this is a screen on stored
// text that later surfaces in dashboards and PDFs, not the injection defense
// itself.
func ScreenIntakeField(field, value string) *IntakeScreenResult {
	if value == "" {
		return nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return &IntakeScreenResult{
			Field:       field,
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
		}
	}

	if libinjection.IsXSS(value) {
		return &IntakeScreenResult{
			Field: field,
			IsXSS: true,
		}
	}

	return nil
}

// ScreenIntakeFields screens a set of named free-text fields and returns a
// result per dirty field. Empty when all are clean.
func ScreenIntakeFields(fields map[string]string) []*IntakeScreenResult {
	var results []*IntakeScreenResult
	for name, value := range fields {
		if result := ScreenIntakeField(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
