// Package filenames names the documents written for a mailing.
package filenames

import "github.com/cplusplus/lib-issues-software/core/status"

// DefaultPrefix is used when the metadata document names no prefix.
const DefaultPrefix = "lwg-"

// Names holds the output file name of every published document.
//
// The three main lists always use the status package's file names, since
// issue anchors link to them.
type Names struct {
	Prefix string

	Active  string
	Defects string
	Closed  string

	TOC             string
	OldTOC          string
	StatusIndex     string
	StatusDateIndex string
	SectionIndex    string
	OpenIndex       string

	UnresolvedTOC             string
	UnresolvedStatusIndex     string
	UnresolvedStatusDateIndex string
	UnresolvedSectionIndex    string
	UnresolvedPrioritized     string

	VotableTOC             string
	VotableStatusIndex     string
	VotableStatusDateIndex string
	VotableSectionIndex    string

	Tentative       string
	Unresolved      string
	Immediate       string
	IssuesForEditor string
}

// New returns the document names for prefix.
func New(prefix string) Names {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Names{
		Prefix:  prefix,
		Active:  status.ActiveFile,
		Defects: status.DefectsFile,
		Closed:  status.ClosedFile,

		TOC:             prefix + "toc.html",
		OldTOC:          prefix + "old-toc.html",
		StatusIndex:     prefix + "status-index.html",
		StatusDateIndex: prefix + "status-date-index.html",
		SectionIndex:    prefix + "section-index.html",
		OpenIndex:       prefix + "open-index.html",

		UnresolvedTOC:             prefix + "unresolved-toc.html",
		UnresolvedStatusIndex:     prefix + "unresolved-status-index.html",
		UnresolvedStatusDateIndex: prefix + "unresolved-status-date-index.html",
		UnresolvedSectionIndex:    prefix + "unresolved-section-index.html",
		UnresolvedPrioritized:     prefix + "unresolved-prioritized-index.html",

		VotableTOC:             prefix + "votable-toc.html",
		VotableStatusIndex:     prefix + "votable-status-index.html",
		VotableStatusDateIndex: prefix + "votable-status-date-index.html",
		VotableSectionIndex:    prefix + "votable-section-index.html",

		Tentative:       prefix + "tentative.html",
		Unresolved:      prefix + "unresolved.html",
		Immediate:       prefix + "immediate.html",
		IssuesForEditor: prefix + "issues-for-editor.html",
	}
}

// Published returns every document a run writes, in writing order.
// OldTOC is an input and is not included.
func (n Names) Published() []string {
	return []string{
		n.Active, n.Defects, n.Closed,
		n.Tentative, n.Unresolved, n.Immediate, n.IssuesForEditor,
		n.TOC, n.StatusIndex, n.StatusDateIndex, n.SectionIndex, n.OpenIndex,
		n.UnresolvedTOC, n.UnresolvedStatusIndex, n.UnresolvedStatusDateIndex,
		n.UnresolvedSectionIndex, n.UnresolvedPrioritized,
		n.VotableTOC, n.VotableStatusIndex, n.VotableStatusDateIndex, n.VotableSectionIndex,
	}
}
