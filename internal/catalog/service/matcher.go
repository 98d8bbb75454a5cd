package service

import (
	"strconv"
	"strings"

	"quote_assistant_backend/internal/shared/textfold"
)

// minReverseMatchLen is the shortest folded candidate allowed to match by
// being contained in a catalog name ("silver" in "Silver Foil").
const minReverseMatchLen = 2

// textMatches reports whether the folded candidate contains the folded target
// on word boundaries, or the target contains the candidate.
func textMatches(candidate, target string) bool {
	if candidate == "" || target == "" {
		return false
	}
	if textfold.ContainsPhrase(candidate, target) {
		return true
	}
	return len(candidate) >= minReverseMatchLen && textfold.ContainsPhrase(target, candidate)
}

// parseExternalID extracts a numeric ERP id from text such as "1042" or "#1042".
func parseExternalID(text string) (int64, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(text), "#")
	if trimmed == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// matchable is a catalog row viewed through the shared fuzzy-match policy.
type matchable struct {
	name        string
	aliases     []string
	description string
	externalID  int64
}

// bestMatch applies the policy passes in order: name, aliases, description,
// external id. Rows must already be sorted; the first hit of a pass wins.
func bestMatch(text string, rows []matchable) int {
	candidate := textfold.Fold(text)

	passes := []func(m matchable) bool{
		func(m matchable) bool { return textMatches(candidate, textfold.Fold(m.name)) },
		func(m matchable) bool {
			for _, alias := range m.aliases {
				if textMatches(candidate, textfold.Fold(alias)) {
					return true
				}
			}
			return false
		},
		func(m matchable) bool { return textMatches(candidate, textfold.Fold(m.description)) },
	}
	if candidate != "" {
		for _, pass := range passes {
			for i, row := range rows {
				if pass(row) {
					return i
				}
			}
		}
	}

	if id, ok := parseExternalID(text); ok {
		for i, row := range rows {
			if row.externalID == id {
				return i
			}
		}
	}
	return -1
}
