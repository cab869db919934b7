// Package status classifies issue status labels.
//
// A label such as "Tentatively Ready" or "Pending NAD Editorial" is a
// canonical status optionally preceded by a qualifier. The canonical part
// decides which published document the issue appears in.
package status

import (
	"strings"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
)

// Category is the publication category of an issue.
type Category int

// Publication categories.
const (
	Active Category = iota + 1
	Defect
	Closed
)

func (c Category) String() string {
	switch c {
	case Active:
		return "Active"
	case Defect:
		return "Defect"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Published document names, one per category.
const (
	ActiveFile  = "lwg-active.html"
	DefectsFile = "lwg-defects.html"
	ClosedFile  = "lwg-closed.html"
)

const (
	pending     = "Pending"
	tentatively = "Tentatively"
)

var categories = map[string]Category{
	"TC1":           Defect,
	"CD1":           Defect,
	"C++11":         Defect,
	"C++14":         Defect,
	"C++17":         Defect,
	"WP":            Defect,
	"Resolved":      Defect,
	"DR":            Defect,
	"TRDec":         Defect,
	"Dup":           Closed,
	"NAD":           Closed,
	"NAD Future":    Closed,
	"NAD Editorial": Closed,
	"NAD Concepts":  Closed,
	"Voting":        Active,
	"Immediate":     Active,
	"Ready":         Active,
	"Review":        Active,
	"New":           Active,
	"Open":          Active,
	"EWG":           Active,
	"LEWG":          Active,
	"Core":          Active,
	"SG1":           Active,
	"Deferred":      Active,
}

// priorityOrder is the manual ordering used when grouping issues by status
// in generated documents. It is not used for classification.
var priorityOrder = []string{
	"Voting",
	"Tentatively Voting",
	"Immediate",
	"Ready",
	"Tentatively Ready",
	"Tentatively NAD Editorial",
	"Tentatively NAD Future",
	"Tentatively NAD",
	"Review",
	"New",
	"Open",
	"LEWG",
	"EWG",
	"SG1",
	"Core",
	"Deferred",
	"Tentatively Resolved",
	"Pending DR",
	"Pending WP",
	"Pending Resolved",
	"Pending NAD Future",
	"Pending NAD Editorial",
	"Pending NAD",
	"NAD Future",
	"DR",
	"WP",
	"C++17",
	"C++14",
	"C++11",
	"CD1",
	"TC1",
	"Resolved",
	"TRDec",
	"NAD Editorial",
	"NAD",
	"Dup",
	"NAD Concepts",
}

// RemovePending strips a leading "Pending " qualifier.
func RemovePending(stat string) string {
	if strings.HasPrefix(stat, pending) {
		return cut(stat, len(pending)+1)
	}
	return stat
}

// RemoveTentatively strips a leading "Tentatively " qualifier.
func RemoveTentatively(stat string) string {
	if strings.HasPrefix(stat, tentatively) {
		return cut(stat, len(tentatively)+1)
	}
	return stat
}

// RemoveQualifier strips "Pending " and then "Tentatively ".
func RemoveQualifier(stat string) string {
	return RemoveTentatively(RemovePending(stat))
}

// cut drops the first n bytes of s, or all of s when it is shorter.
func cut(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

// PublicationCategory maps a status label to the document it is published in.
// Tentative statuses are always Active. Any other label must name a canonical
// status once qualifiers are stripped, otherwise a *errors.StatusError is
// returned.
func PublicationCategory(stat string) (Category, error) {
	if IsTentative(stat) {
		return Active, nil
	}
	if c, ok := categories[RemoveQualifier(stat)]; ok {
		return c, nil
	}
	return 0, &lwgerrors.StatusError{Status: stat}
}

// Filename returns the published document for an issue with the given status.
func Filename(stat string) (string, error) {
	c, err := PublicationCategory(stat)
	if err != nil {
		return "", err
	}
	switch c {
	case Defect:
		return DefectsFile, nil
	case Closed:
		return ClosedFile, nil
	default:
		return ActiveFile, nil
	}
}

// IsKnown reports whether stat classifies without error.
func IsKnown(stat string) bool {
	_, err := PublicationCategory(stat)
	return err == nil
}

func is(stat string, want Category) bool {
	c, err := PublicationCategory(stat)
	return err == nil && c == want
}

// IsActive reports whether stat is published in the active list.
// Unknown labels report false.
func IsActive(stat string) bool { return is(stat, Active) }

// IsDefect reports whether stat is published in the defect list.
func IsDefect(stat string) bool { return is(stat, Defect) }

// IsClosed reports whether stat is published in the closed list.
func IsClosed(stat string) bool { return is(stat, Closed) }

// IsTentative reports whether stat carries the "Tentatively" qualifier.
func IsTentative(stat string) bool {
	return strings.HasPrefix(stat, tentatively)
}

// IsNotResolved reports whether stat is one of the statuses that still need
// committee work before a resolution can be proposed.
func IsNotResolved(stat string) bool {
	switch stat {
	case "Core", "Deferred", "EWG", "New", "Open", "Review":
		return true
	}
	return false
}

// IsVotable reports whether stat is up for a vote at the next meeting.
func IsVotable(stat string) bool {
	switch RemoveTentatively(stat) {
	case "Immediate", "Voting":
		return true
	}
	return false
}

// IsReady reports whether stat is Ready or Tentatively Ready.
func IsReady(stat string) bool {
	return RemoveTentatively(stat) == "Ready"
}

// IsActiveNotReady reports whether stat is active but not exactly "Ready".
func IsActiveNotReady(stat string) bool {
	return IsActive(stat) && stat != "Ready"
}

// PriorityRank returns the position of stat in the manual display order.
// Unknown labels rank past the end of the table instead of failing.
func PriorityRank(stat string) int {
	for i, s := range priorityOrder {
		if s == stat {
			return i
		}
	}
	return len(priorityOrder)
}

// Less orders two statuses by PriorityRank.
func Less(a, b string) bool {
	return PriorityRank(a) < PriorityRank(b)
}
