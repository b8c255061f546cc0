package billing

import (
	"regexp"
	"strings"
	"time"
)

// Classifier decides how a stored line item participates in totals and reconciliation.
type Classifier interface {
	Classify(item LineItem) ItemKind
}

// DefaultClassifier trusts a valid type tag and falls back to the "Work on <date>" name
// pattern used for timesheet-derived lines saved without a tag.
var DefaultClassifier Classifier = tagThenName{}

// StrictClassifier only reads the type tag. Untagged lines are ITEM.
var StrictClassifier Classifier = tagOnly{}

type tagThenName struct{}

func (tagThenName) Classify(item LineItem) ItemKind {
	if kind, ok := parseKind(item.Type); ok {
		return kind
	}
	if IsTimesheetName(item.Name) {
		return KindTimesheet
	}
	return KindItem
}

type tagOnly struct{}

func (tagOnly) Classify(item LineItem) ItemKind {
	if kind, ok := parseKind(item.Type); ok {
		return kind
	}
	return KindItem
}

// IsMonetary reports whether lines of this kind count towards totals.
func IsMonetary(kind ItemKind) bool {
	return kind == KindItem || kind == KindTimesheet
}

func parseKind(raw string) (ItemKind, bool) {
	switch ItemKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case KindItem:
		return KindItem, true
	case KindHeader:
		return KindHeader, true
	case KindTimesheet:
		return KindTimesheet, true
	}
	return "", false
}

var (
	workOnPattern  = regexp.MustCompile(`(?i)^work\s+on\s+(.+)$`)
	numericDateRe  = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}$`)
	timesheetDates = []string{
		"2006-01-02",
		"2006/01/02",
		"02/01/2006",
		"01/02/2006",
		"02-01-2006",
		"2 Jan 2006",
		"02 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 January 2006",
		"Mon, 02 Jan 2006",
		"Mon Jan 2 2006",
	}
)

// IsTimesheetName matches "Work on <date>" after trimming, ignoring case.
func IsTimesheetName(name string) bool {
	m := workOnPattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return false
	}
	return looksLikeDate(strings.TrimSpace(m[1]))
}

func looksLikeDate(s string) bool {
	if numericDateRe.MatchString(s) {
		return true
	}
	for _, layout := range timesheetDates {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
