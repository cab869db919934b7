// Package diff compares two snapshots of the issues list and renders the
// revision-history fragment describing what changed between them.
package diff

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
	"github.com/cplusplus/lib-issues-software/core/issue"
)

// Entry is the state of one issue in a snapshot.
type Entry struct {
	Num    int
	Status string
}

// Snapshot is a list of entries sorted by number.
type Snapshot []Entry

// FromIssues builds a snapshot from issues.
func FromIssues(issues []issue.Issue) Snapshot {
	s := make(Snapshot, 0, len(issues))
	for _, is := range issues {
		s = append(s, Entry{Num: is.Num, Status: is.Status})
	}
	s.Sort()
	return s
}

// Sort orders the snapshot by number.
func (s Snapshot) Sort() {
	slices.SortStableFunc(s, func(a, b Entry) int { return cmp.Compare(a.Num, b.Num) })
}

// Find returns the entry for num.
func (s Snapshot) Find(num int) (Entry, bool) {
	i, found := slices.BinarySearchFunc(s, num, func(e Entry, n int) int {
		return cmp.Compare(e.Num, n)
	})
	if !found {
		return Entry{}, false
	}
	return s[i], true
}

// ReadTOC reads a snapshot from a table-of-contents document. The first
// <tr> is the title row. Each later row names the issue number in the text
// of its first anchor and the status in the text of its second.
func ReadTOC(doc string) (Snapshot, error) {
	const row = "<tr>"

	i := strings.Index(doc, row)
	if i < 0 {
		return nil, &lwgerrors.SnapshotError{Message: "unable to find the first (title) row"}
	}

	var s Snapshot
	for n := 1; ; n++ {
		k := strings.Index(doc[i+len(row):], row)
		if k < 0 {
			break
		}
		i += len(row) + k

		numText, next, err := anchorText(doc, i)
		if err != nil {
			return nil, &lwgerrors.SnapshotError{Row: n, Message: "unable to parse issue number", Err: err}
		}
		num, err := strconv.Atoi(strings.TrimSpace(numText))
		if err != nil {
			return nil, &lwgerrors.SnapshotError{Row: n, Message: "unable to parse issue number", Err: err}
		}

		stat, _, err := anchorText(doc, next)
		if err != nil {
			return nil, &lwgerrors.SnapshotError{Row: n, Message: "partial issue found", Err: err}
		}
		s = append(s, Entry{Num: num, Status: stat})
	}
	s.Sort()
	return s, nil
}

// anchorText returns the text that ends at the first "</a>" at or after
// from, starting just past the preceding '>'. The second result is the
// offset just past "</a>".
func anchorText(doc string, from int) (string, int, error) {
	const closeA = "</a>"
	end := strings.Index(doc[from:], closeA)
	if end < 0 {
		return "", 0, errMissingAnchor
	}
	end += from
	start := strings.LastIndexByte(doc[:end], '>')
	if start < 0 {
		return "", 0, errMissingBracket
	}
	return doc[start+1 : end], end + len(closeA), nil
}
