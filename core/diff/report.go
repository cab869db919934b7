package diff

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cplusplus/lib-issues-software/core/status"
)

var (
	errMissingAnchor  = errors.New("missing </a>")
	errMissingBracket = errors.New("can't find beginning bracket")
)

// AddedGroup lists issues new in a snapshot that share a status.
type AddedGroup struct {
	Status string
	Nums   []int
}

// ChangedGroup lists issues that moved between the same pair of statuses.
type ChangedGroup struct {
	From string
	To   string
	Nums []int
}

// Counts tallies the open and closed issues of a snapshot. Closed covers
// both the defect and closed lists.
type Counts struct {
	Open   int
	Closed int
}

// Total returns the number of issues counted.
func (c Counts) Total() int {
	return c.Open + c.Closed
}

// byRank orders statuses by display priority, then by label so that
// statuses outside the priority table stay distinct.
func byRank(a, b string) int {
	if c := cmp.Compare(status.PriorityRank(a), status.PriorityRank(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Added returns the entries of newer whose numbers are absent from older,
// grouped by status in display-priority order.
func Added(older, newer Snapshot) []AddedGroup {
	groups := make(map[string][]int)
	for _, e := range newer {
		if _, ok := older.Find(e.Num); !ok {
			groups[e.Status] = append(groups[e.Status], e.Num)
		}
	}

	out := make([]AddedGroup, 0, len(groups))
	for stat, nums := range groups {
		out = append(out, AddedGroup{Status: stat, Nums: nums})
	}
	slices.SortFunc(out, func(a, b AddedGroup) int { return byRank(a.Status, b.Status) })
	return out
}

// Changed returns the entries present in both snapshots whose status
// differs, grouped by transition. Groups are ordered by the new status,
// then by the old one.
func Changed(older, newer Snapshot) []ChangedGroup {
	type transition struct{ from, to string }
	groups := make(map[transition][]int)
	for _, e := range newer {
		if prev, ok := older.Find(e.Num); ok && prev.Status != e.Status {
			t := transition{from: prev.Status, to: e.Status}
			groups[t] = append(groups[t], e.Num)
		}
	}

	out := make([]ChangedGroup, 0, len(groups))
	for t, nums := range groups {
		out = append(out, ChangedGroup{From: t.from, To: t.to, Nums: nums})
	}
	slices.SortFunc(out, func(a, b ChangedGroup) int {
		if c := byRank(a.To, b.To); c != 0 {
			return c
		}
		return byRank(a.From, b.From)
	})
	return out
}

// Count tallies s. An unclassifiable status fails with errors.ErrUnknownStatus.
func Count(s Snapshot) (Counts, error) {
	var c Counts
	for _, e := range s {
		cat, err := status.PublicationCategory(e.Status)
		if err != nil {
			return Counts{}, fmt.Errorf("issue %d: %w", e.Num, err)
		}
		if cat == status.Active {
			c.Open++
		} else {
			c.Closed++
		}
	}
	return c, nil
}

// Report renders the change summary between two snapshots as an HTML list.
// Issue numbers are written as <iref ref="N"/> tags to be resolved against
// the current issues.
func Report(older, newer Snapshot) (string, error) {
	before, err := Count(older)
	if err != nil {
		return "", err
	}
	after, err := Count(newer)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<ul>\n<li><b>Summary:</b><ul>\n")
	writeCount(&b, after.Open, before.Open, "open issues")
	writeCount(&b, after.Closed, before.Closed, "closed issues")
	writeCount(&b, after.Total(), before.Total(), "issues total")
	b.WriteString("</ul></li>\n<li><b>Details:</b><ul>\n")

	added := Added(older, newer)
	for _, g := range added {
		if len(g.Nums) == 1 {
			fmt.Fprintf(&b, "<li>Added the following %s issue: %s.</li>\n", g.Status, irefs(g.Nums))
		} else {
			fmt.Fprintf(&b, "<li>Added the following %d %s issues: %s.</li>\n", len(g.Nums), g.Status, irefs(g.Nums))
		}
	}
	if len(added) == 0 {
		b.WriteString("<li>No issues added.</li>\n")
	}

	changed := Changed(older, newer)
	for _, g := range changed {
		if len(g.Nums) == 1 {
			fmt.Fprintf(&b, "<li>Changed the following issue to %s (from %s): %s.</li>\n", g.To, g.From, irefs(g.Nums))
		} else {
			fmt.Fprintf(&b, "<li>Changed the following %d issues to %s (from %s): %s.</li>\n", len(g.Nums), g.To, g.From, irefs(g.Nums))
		}
	}
	if len(changed) == 0 {
		b.WriteString("<li>No issues changed.</li>\n")
	}

	b.WriteString("</ul></li>\n</ul>\n")
	return b.String(), nil
}

func writeCount(b *strings.Builder, now, was int, what string) {
	fmt.Fprintf(b, "<li>%d %s, ", now, what)
	if now >= was {
		fmt.Fprintf(b, "up by %d", now-was)
	} else {
		fmt.Fprintf(b, "down by %d", was-now)
	}
	b.WriteString(".</li>\n")
}

func irefs(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = `<iref ref="` + strconv.Itoa(n) + `"/>`
	}
	return strings.Join(parts, ", ")
}
