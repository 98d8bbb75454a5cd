// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizeE164 formats a phone number to E.164 using region for national
// numbers. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = defaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// FromWhatsAppID normalizes a WhatsApp "wa_id" (international digits without
// a leading plus) to E.164.
func FromWhatsAppID(waID, region string) string {
	trimmed := strings.TrimSpace(waID)
	if trimmed != "" && !strings.HasPrefix(trimmed, "+") && isDigits(trimmed) {
		trimmed = "+" + trimmed
	}
	return NormalizeE164(trimmed, region)
}

// ToWhatsAppID converts an E.164 number into the recipient format the
// WhatsApp Cloud API expects.
func ToWhatsAppID(e164 string) string {
	return strings.TrimPrefix(strings.TrimSpace(e164), "+")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
