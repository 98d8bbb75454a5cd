package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// numberRunPattern matches digits joined by "," or "_" with no spacing, such
// as "1,500" or "250,500,1000".
var numberRunPattern = regexp.MustCompile(`\d+(?:[,_]\d+)*`)

// ParseQuantities returns every positive quantity in text, in order.
func ParseQuantities(text string) []int {
	var out []int
	for _, run := range numberRunPattern.FindAllString(text, -1) {
		out = append(out, SplitNumberRun(run)...)
	}
	return out
}

// SplitNumberRun reads a run of comma- or underscore-joined digits either as
// one thousands-grouped number or as a list. "1,500" and "250,000" are single
// numbers; "250,500" and "500,1000" are lists.
func SplitNumberRun(run string) []int {
	groups := strings.FieldsFunc(run, func(r rune) bool { return r == ',' || r == '_' })
	if len(groups) > 1 && thousandsGrouped(groups) {
		if n, err := strconv.Atoi(strings.Join(groups, "")); err == nil && n > 0 {
			return []int{n}
		}
		return nil
	}

	out := make([]int, 0, len(groups))
	for _, g := range groups {
		if n, err := strconv.Atoi(g); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	return out
}

// thousandsGrouped reports whether groups form a well-formed grouped number
// that is not more plausibly a list of round quantities. The leading group
// must be short ("1,500") or a trailing group must be "000" ("250,000").
func thousandsGrouped(groups []string) bool {
	if len(groups[0]) > 3 || groups[0][0] == '0' {
		return false
	}
	zeroGroup := false
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
		if g == "000" {
			zeroGroup = true
		}
	}
	return len(groups[0]) < 3 || zeroGroup
}
