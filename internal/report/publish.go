package report

import (
	"context"
	"os"
	"path/filepath"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/status"
	"github.com/cplusplus/lib-issues-software/internal/logging"
)

// Document is one written output file.
type Document struct {
	Name string
	Path string
	Size int
}

// Partition splits issues into the unresolved and votable working sets.
// Ready issues count as votable while nothing else is up for a vote, and
// as unresolved otherwise. Both results keep the input order.
func Partition(issues []issue.Issue) (unresolved, votable []issue.Issue) {
	for _, is := range issues {
		if status.IsNotResolved(is.Status) {
			unresolved = append(unresolved, is)
		}
		if status.IsVotable(is.Status) {
			votable = append(votable, is)
		}
	}
	betweenMeetings := len(votable) == 0
	for _, is := range issues {
		if !status.IsReady(is.Status) {
			continue
		}
		if betweenMeetings {
			votable = append(votable, is)
		} else {
			unresolved = append(unresolved, is)
		}
	}
	issue.SortByNumber(unresolved)
	issue.SortByNumber(votable)
	return unresolved, votable
}

type job struct {
	name   string
	issues int
	render func() (string, error)
}

// Publish renders every document into dir. issues must be sorted by number
// and already transformed.
func (g *Generator) Publish(ctx context.Context, dir string, issues []issue.Issue, diffReport string) ([]Document, error) {
	if !issue.IsSortedByNumber(issues) {
		return nil, ErrUnsorted
	}
	unresolved, votable := Partition(issues)
	n := g.names
	all := len(issues)

	jobs := []job{
		{n.Active, all, func() (string, error) { return g.Active(issues, diffReport) }},
		{n.Defects, all, func() (string, error) { return g.Defects(issues, diffReport) }},
		{n.Closed, all, func() (string, error) { return g.Closed(issues, diffReport) }},
		{n.Tentative, all, func() (string, error) { return g.Tentative(issues) }},
		{n.Unresolved, all, func() (string, error) { return g.Unresolved(issues) }},
		{n.Immediate, all, func() (string, error) { return g.Immediate(issues) }},
		{n.IssuesForEditor, all, func() (string, error) { return g.IssuesForEditor(issues) }},

		{n.TOC, all, func() (string, error) { return g.ByNumber(issues) }},
		{n.StatusIndex, all, func() (string, error) { return g.ByStatus(issues) }},
		{n.StatusDateIndex, all, func() (string, error) { return g.ByStatusModDate(issues) }},
		{n.SectionIndex, all, func() (string, error) { return g.BySection(issues, false) }},
		{n.OpenIndex, all, func() (string, error) { return g.BySection(issues, true) }},

		{n.UnresolvedTOC, len(unresolved), func() (string, error) { return g.ByNumber(unresolved) }},
		{n.UnresolvedStatusIndex, len(unresolved), func() (string, error) { return g.ByStatus(unresolved) }},
		{n.UnresolvedStatusDateIndex, len(unresolved), func() (string, error) { return g.ByStatusModDate(unresolved) }},
		{n.UnresolvedSectionIndex, len(unresolved), func() (string, error) { return g.BySection(unresolved, false) }},
		{n.UnresolvedPrioritized, len(unresolved), func() (string, error) { return g.ByPriority(unresolved) }},

		{n.VotableTOC, len(votable), func() (string, error) { return g.ByNumber(votable) }},
		{n.VotableStatusIndex, len(votable), func() (string, error) { return g.ByStatus(votable) }},
		{n.VotableStatusDateIndex, len(votable), func() (string, error) { return g.ByStatusModDate(votable) }},
		{n.VotableSectionIndex, len(votable), func() (string, error) { return g.BySection(votable, false) }},
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, lwgerrors.NewIO("create", dir, err)
	}

	docs := make([]Document, 0, len(jobs))
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		text, err := j.render()
		if err != nil {
			return docs, lwgerrors.Wrapf(err, "rendering %s", j.name)
		}
		path := filepath.Join(dir, j.name)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return docs, lwgerrors.NewIO("write", path, err)
		}
		logging.DocumentWritten(ctx, path, j.issues)
		docs = append(docs, Document{Name: j.name, Path: path, Size: len(text)})
	}
	return docs, nil
}
