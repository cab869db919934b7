package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/section"
	"github.com/cplusplus/lib-issues-software/core/status"
)

const referenceLine = "<p>Reference ISO/IEC IS 14882:2011(E)</p>\n"

func (g *Generator) indexPreamble(buf *strings.Builder, title, heading string) error {
	revision, err := g.meta.Revision()
	if err != nil {
		return err
	}
	writeHeader(buf, title)
	buf.WriteString(fmt.Sprintf("<h1>C++ Standard Library Issues List (Revision %s)</h1>\n", revision))
	buf.WriteString("<h1>" + heading + "</h1>\n")
	buf.WriteString(referenceLine)
	buf.WriteString(fmt.Sprintf("<p>This document is the %s for the <a href=\"%s\">Library Active Issues List</a>,\n", heading, g.names.Active))
	buf.WriteString(fmt.Sprintf("<a href=\"%s\">Library Defect Reports List</a>, and <a href=\"%s\">Library Closed Issues List</a>.</p>\n",
		g.names.Defects, g.names.Closed))
	g.writeTimestamp(buf)
	return nil
}

func byStatusLabel(a, b issue.Issue) int {
	return cmp.Or(issue.ByStatus(a, b), strings.Compare(a.Status, b.Status))
}

// ByNumber renders the table of contents. Its rows are the snapshot a
// later run diffs against.
func (g *Generator) ByNumber(issues []issue.Issue) (string, error) {
	sorted := slices.Clone(issues)
	slices.SortStableFunc(sorted, issue.ByNumber)

	var buf strings.Builder
	if err := g.indexPreamble(&buf, "LWG Table of Contents", "Table of Contents"); err != nil {
		return "", err
	}
	g.writeTable(&buf, sorted)
	writeTrailer(&buf)
	return buf.String(), nil
}

// ByStatus renders the index grouped by status, each group ordered by
// section and then most recent modification.
func (g *Generator) ByStatus(issues []issue.Issue) (string, error) {
	bySection := issue.BySection(g.index)
	return g.statusIndex(issues, "LWG Index by Status and Section", "Index by Status and Section", func(a, b issue.Issue) int {
		return cmp.Or(byStatusLabel(a, b), bySection(a, b), issue.ByModDateDesc(a, b), issue.ByNumber(a, b))
	})
}

// ByStatusModDate renders the index grouped by status, each group ordered
// by most recent modification.
func (g *Generator) ByStatusModDate(issues []issue.Issue) (string, error) {
	bySection := issue.BySection(g.index)
	return g.statusIndex(issues, "LWG Index by Status and Date", "Index by Status and Date", func(a, b issue.Issue) int {
		return cmp.Or(byStatusLabel(a, b), issue.ByModDateDesc(a, b), bySection(a, b), issue.ByNumber(a, b))
	})
}

func (g *Generator) statusIndex(issues []issue.Issue, title, heading string, order func(a, b issue.Issue) int) (string, error) {
	sorted := slices.Clone(issues)
	slices.SortStableFunc(sorted, order)

	var buf strings.Builder
	if err := g.indexPreamble(&buf, title, heading); err != nil {
		return "", err
	}
	for group := range chunkBy(sorted, func(is issue.Issue) string { return is.Status }) {
		writeGroupHeading(&buf, group[0].Status, group[0].Status, len(group))
		g.writeTable(&buf, group)
	}
	writeTrailer(&buf)
	return buf.String(), nil
}

// openAfterReady reports whether stat is an active status that sorts after
// Ready, the issues still open for discussion.
func openAfterReady(stat string) bool {
	return status.IsActive(stat) && status.PriorityRank(stat) > status.PriorityRank("Ready")
}

// BySection renders the index grouped by major section. With openOnly set
// it covers only active issues that are not yet Ready.
func (g *Generator) BySection(issues []issue.Issue, openOnly bool) (string, error) {
	bySection := issue.BySection(g.index)
	var sorted []issue.Issue
	for _, is := range issues {
		if !openOnly || openAfterReady(is.Status) {
			sorted = append(sorted, is)
		}
	}
	slices.SortStableFunc(sorted, func(a, b issue.Issue) int {
		return cmp.Or(bySection(a, b), issue.ByStatus(a, b), issue.ByModDateDesc(a, b), issue.ByNumber(a, b))
	})

	openSections := make(map[string]bool)
	for _, is := range issues {
		if status.IsActiveNotReady(is.Status) {
			openSections[g.majorSection(is)] = true
		}
	}

	revision, err := g.meta.Revision()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	writeHeader(&buf, "LWG Index by Section")
	buf.WriteString(fmt.Sprintf("<h1>C++ Standard Library Issues List (Revision %s)</h1>\n", revision))
	buf.WriteString("<h1>Index by Section</h1>\n")
	buf.WriteString(referenceLine)
	buf.WriteString(fmt.Sprintf("<p>This document is the Index by Section for the <a href=\"%s\">Library Active Issues List</a>", g.names.Active))
	if !openOnly {
		buf.WriteString(fmt.Sprintf(", <a href=\"%s\">Library Defect Reports List</a>, and <a href=\"%s\">Library Closed Issues List</a>",
			g.names.Defects, g.names.Closed))
	}
	buf.WriteString(".</p>\n")
	if openOnly {
		buf.WriteString("<h2>Index by Section (non-Ready active issues only)</h2>\n")
		buf.WriteString(fmt.Sprintf("<p><a href=\"%s\">(view all issues)</a></p>\n", g.names.SectionIndex))
	} else {
		buf.WriteString("<h2>Index by Section</h2>\n")
		buf.WriteString(fmt.Sprintf("<p><a href=\"%s\">(view only non-Ready open issues)</a></p>\n", g.names.OpenIndex))
	}
	g.writeTimestamp(&buf)

	for group := range chunkBy(sorted, g.majorSection) {
		msn := g.majorSection(group[0])
		writeGroupHeading(&buf, "Section "+msn, "Section "+msn, len(group))
		switch {
		case openOnly:
			buf.WriteString(fmt.Sprintf("<p><a href=\"%s#Section %s\">(view all issues)</a></p>\n", g.names.SectionIndex, msn))
		case openSections[msn]:
			buf.WriteString(fmt.Sprintf("<p><a href=\"%s#Section %s\">(view only non-Ready open issues)</a></p>\n", g.names.OpenIndex, msn))
		}
		g.writeTable(&buf, group)
	}
	writeTrailer(&buf)
	return buf.String(), nil
}

func (g *Generator) majorSection(is issue.Issue) string {
	loc, ok := g.index.Lookup(is.PrimaryTag())
	if !ok {
		loc = section.Sentinel()
	}
	return section.MajorSection(loc)
}

func priorityLabel(p int) string {
	if p == issue.Unprioritized {
		return "Not Prioritized"
	}
	return fmt.Sprintf("Priority %d", p)
}

// ByPriority renders the index grouped by priority, unprioritized issues
// last, each group ordered by section.
func (g *Generator) ByPriority(issues []issue.Issue) (string, error) {
	bySection := issue.BySection(g.index)
	sorted := slices.Clone(issues)
	slices.SortStableFunc(sorted, func(a, b issue.Issue) int {
		return cmp.Or(issue.ByPriority(a, b), bySection(a, b), issue.ByNumber(a, b))
	})

	var buf strings.Builder
	if err := g.indexPreamble(&buf, "LWG Index by Priority", "Index by Priority"); err != nil {
		return "", err
	}
	for group := range chunkBy(sorted, func(is issue.Issue) int { return is.Priority }) {
		label := priorityLabel(group[0].Priority)
		writeGroupHeading(&buf, label, label, len(group))
		g.writeTable(&buf, group)
	}
	writeTrailer(&buf)
	return buf.String(), nil
}

// chunkBy yields the maximal runs of issues sharing the same key.
func chunkBy[K comparable](issues []issue.Issue, key func(issue.Issue) K) func(yield func([]issue.Issue) bool) {
	return func(yield func([]issue.Issue) bool) {
		for i := 0; i < len(issues); {
			k := key(issues[i])
			j := i + 1
			for j < len(issues) && key(issues[j]) == k {
				j++
			}
			if !yield(issues[i:j]) {
				return
			}
			i = j
		}
	}
}
