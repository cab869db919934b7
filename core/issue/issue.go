// Package issue defines the issue record and parses it from the tagged text
// stored in the issues directory.
package issue

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"github.com/cplusplus/lib-issues-software/core/section"
	"github.com/cplusplus/lib-issues-software/core/status"
)

// Unprioritized is the priority of an issue without a <priority> element.
const Unprioritized = 99

// MaxPriority is the largest priority an issue may carry.
const MaxPriority = 4

// Issue is one tracked item of the issues list.
type Issue struct {
	Num       int
	Status    string
	Title     string
	Tags      []string // Section tags, first one is the primary section
	Submitter string
	Date      time.Time // Date the issue was filed
	ModDate   time.Time // Last modification, from file metadata
	Priority  int       // 0..MaxPriority or Unprioritized
	Owner     string

	// Text is the body, starting at the <discussion> element. It holds raw
	// markup until the markup engine rewrites it.
	Text string

	// Resolution is the content of the <resolution> element of an active
	// issue, empty when that content is too short to be a real proposal.
	Resolution string

	// HasResolution is always true outside the active list.
	HasResolution bool

	// Duplicates holds rendered anchors of the issues this one duplicates,
	// sorted and without repeats.
	Duplicates []string
}

// Anchor renders a hyperlink to the issue in the document it is published in.
func (is *Issue) Anchor() string {
	file, err := status.Filename(is.Status)
	if err != nil {
		file = status.ActiveFile
	}
	n := strconv.Itoa(is.Num)
	return `<a href="` + file + "#" + n + `">` + n + "</a>"
}

// AddDuplicate records ref as a duplicate. It reports whether ref was new.
func (is *Issue) AddDuplicate(ref string) bool {
	i, found := slices.BinarySearch(is.Duplicates, ref)
	if found {
		return false
	}
	is.Duplicates = slices.Insert(is.Duplicates, i, ref)
	return true
}

// PrimaryTag returns the first section tag.
func (is *Issue) PrimaryTag() string {
	if len(is.Tags) == 0 {
		return ""
	}
	return is.Tags[0]
}

// Category returns the publication category of the issue.
func (is *Issue) Category() (status.Category, error) {
	return status.PublicationCategory(is.Status)
}

// SortByNumber sorts issues by number.
func SortByNumber(issues []Issue) {
	slices.SortFunc(issues, ByNumber)
}

// IsSortedByNumber reports whether issues are in strictly increasing number order.
func IsSortedByNumber(issues []Issue) bool {
	for i := 1; i < len(issues); i++ {
		if issues[i-1].Num >= issues[i].Num {
			return false
		}
	}
	return true
}

// Search finds num in issues, which must be sorted by number.
func Search(issues []Issue, num int) (int, bool) {
	return slices.BinarySearchFunc(issues, num, func(is Issue, n int) int {
		return cmp.Compare(is.Num, n)
	})
}

// ByNumber orders issues by number.
func ByNumber(a, b Issue) int {
	return cmp.Compare(a.Num, b.Num)
}

// ByStatus orders issues by the display priority of their status.
func ByStatus(a, b Issue) int {
	return cmp.Compare(status.PriorityRank(a.Status), status.PriorityRank(b.Status))
}

// ByModDateDesc orders the most recently modified issues first.
func ByModDateDesc(a, b Issue) int {
	return b.ModDate.Compare(a.ModDate)
}

// ByPriority orders issues by priority, unprioritized last.
func ByPriority(a, b Issue) int {
	return cmp.Compare(a.Priority, b.Priority)
}

// BySection orders issues by the locator of their primary section tag.
func BySection(idx *section.Index) func(a, b Issue) int {
	return func(a, b Issue) int {
		return section.Compare(locatorOf(idx, a), locatorOf(idx, b))
	}
}

// ByMajorSection orders issues by prefix and the first component of their
// primary section only.
func ByMajorSection(idx *section.Index) func(a, b Issue) int {
	return func(a, b Issue) int {
		la, lb := locatorOf(idx, a), locatorOf(idx, b)
		if c := cmp.Compare(la.Prefix, lb.Prefix); c != 0 {
			return c
		}
		return cmp.Compare(first(la), first(lb))
	}
}

func locatorOf(idx *section.Index, is Issue) section.Locator {
	if loc, ok := idx.Lookup(is.PrimaryTag()); ok {
		return loc
	}
	return section.Sentinel()
}

func first(l section.Locator) int {
	if len(l.Components) == 0 {
		return 0
	}
	return l.Components[0]
}
