package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/status"
	"github.com/cplusplus/lib-issues-software/internal/mailing"
)

// ErrUnsorted is returned when a document that lists issues in order is
// given issues that are not sorted by number.
var ErrUnsorted = errors.New("issues are not sorted by number")

var paperTitles = map[mailing.List]string{
	mailing.Active: "C++ Standard Library Active Issues List",
	mailing.Defect: "C++ Standard Library Defect Report List",
	mailing.Closed: "C++ Standard Library Closed Issues List",
}

func (g *Generator) writePaperHeading(buf *strings.Builder, list mailing.List) error {
	docno, err := g.meta.DocNumber(list)
	if err != nil {
		return err
	}
	maintainer, err := g.meta.Maintainer()
	if err != nil {
		return err
	}
	revision, err := g.meta.Revision()
	if err != nil {
		return err
	}

	buf.WriteString("<table>\n")
	buf.WriteString("<tr>\n  <td align=\"left\">Doc. no.</td>\n")
	buf.WriteString(fmt.Sprintf("  <td align=\"left\">%s</td>\n</tr>\n", docno))
	buf.WriteString("<tr>\n  <td align=\"left\">Date:</td>\n")
	buf.WriteString(fmt.Sprintf("  <td align=\"left\">%s</td>\n</tr>\n", formatDate(g.now)))
	buf.WriteString("<tr>\n  <td align=\"left\">Project:</td>\n")
	buf.WriteString("  <td align=\"left\">Programming Language C++</td>\n</tr>\n")
	buf.WriteString("<tr>\n  <td align=\"left\">Reply to:</td>\n")
	buf.WriteString(fmt.Sprintf("  <td align=\"left\">%s</td>\n</tr>\n", maintainer))
	buf.WriteString("</table>\n")

	buf.WriteString(fmt.Sprintf("<h1>%s (Revision %s)</h1>\n", paperTitles[list], revision))
	g.writeTimestamp(buf)
	return nil
}

// paper renders one of the three published lists.
func (g *Generator) paper(list mailing.List, issues []issue.Issue, diffReport, heading string, keep func(issue.Issue) bool) (string, error) {
	if !issue.IsSortedByNumber(issues) {
		return "", ErrUnsorted
	}
	var buf strings.Builder
	writeHeader(&buf, paperTitles[list])
	if err := g.writePaperHeading(&buf, list); err != nil {
		return "", err
	}

	intro, err := g.meta.Intro(list)
	if err != nil {
		return "", err
	}
	buf.WriteString(intro + "\n")

	revisions, err := g.meta.Revisions(issues, diffReport)
	if err != nil {
		return "", err
	}
	buf.WriteString("<h2>Revision History</h2>\n" + revisions + "\n")

	if list == mailing.Active {
		statuses, err := g.meta.Statuses()
		if err != nil {
			return "", err
		}
		buf.WriteString("<h2><a name=\"Status\"></a>Issue Status</h2>\n" + statuses + "\n")
	}

	buf.WriteString("<h2>" + heading + "</h2>\n")
	g.writeIssues(&buf, issues, keep)
	writeTrailer(&buf)
	return buf.String(), nil
}

// Active renders the active issues list. issues must be sorted by number.
func (g *Generator) Active(issues []issue.Issue, diffReport string) (string, error) {
	return g.paper(mailing.Active, issues, diffReport, "Active Issues", func(is issue.Issue) bool {
		return status.IsActive(is.Status)
	})
}

// Defects renders the defect report list.
func (g *Generator) Defects(issues []issue.Issue, diffReport string) (string, error) {
	return g.paper(mailing.Defect, issues, diffReport, "Defect Reports", func(is issue.Issue) bool {
		return status.IsDefect(is.Status)
	})
}

// Closed renders the closed issues list.
func (g *Generator) Closed(issues []issue.Issue, diffReport string) (string, error) {
	return g.paper(mailing.Closed, issues, diffReport, "Closed Issues", func(is issue.Issue) bool {
		return status.IsClosed(is.Status)
	})
}

// working renders a meeting document: the selected issues in full, without
// the paper heading.
func (g *Generator) working(title, heading string, issues []issue.Issue, keep func(issue.Issue) bool) (string, error) {
	if !issue.IsSortedByNumber(issues) {
		return "", ErrUnsorted
	}
	var buf strings.Builder
	writeHeader(&buf, title)
	g.writeTimestamp(&buf)
	buf.WriteString("<h2>" + heading + "</h2>\n")
	g.writeIssues(&buf, issues, keep)
	writeTrailer(&buf)
	return buf.String(), nil
}

// Tentative lists issues with a tentative status.
func (g *Generator) Tentative(issues []issue.Issue) (string, error) {
	return g.working("C++ Standard Library Tentative Issues", "Tentative Issues", issues, func(is issue.Issue) bool {
		return status.IsTentative(is.Status)
	})
}

// Unresolved lists issues that still need review at a meeting.
func (g *Generator) Unresolved(issues []issue.Issue) (string, error) {
	return g.working("C++ Standard Library Unresolved Issues", "Unresolved Issues", issues, func(is issue.Issue) bool {
		return status.IsNotResolved(is.Status)
	})
}

// Immediate lists issues resolved directly at the current meeting.
func (g *Generator) Immediate(issues []issue.Issue) (string, error) {
	return g.working("C++ Standard Library Issues Resolved Directly In the Current Meeting", "Immediate Issues", issues, func(is issue.Issue) bool {
		return is.Status == "Immediate"
	})
}

// IssuesForEditor lists the proposed resolutions of the issues up for a
// vote, which the project editor applies once they are adopted.
func (g *Generator) IssuesForEditor(issues []issue.Issue) (string, error) {
	if !issue.IsSortedByNumber(issues) {
		return "", ErrUnsorted
	}
	var buf strings.Builder
	writeHeader(&buf, "C++ Standard Library Issues to be moved in the Current Meeting")
	g.writeTimestamp(&buf)
	buf.WriteString("<h1>C++ Standard Library Issues to be moved in the Current Meeting</h1>\n")
	buf.WriteString("<p>The following issues are proposed to be moved into the Working Paper.</p>\n")
	for _, is := range issues {
		if is.Status != "Voting" && is.Status != "Immediate" {
			continue
		}
		buf.WriteString("<hr>\n")
		buf.WriteString(fmt.Sprintf("<h3><a name=\"%d\"></a>%d. %s</h3>\n", is.Num, is.Num, is.Title))
		buf.WriteString("<p><b>Section:</b> " + g.sections(is) + " <b>Status:</b> " + g.statusLink(is.Status) + "</p>\n")
		if is.Resolution == "" {
			buf.WriteString("<p><b>Proposed resolution:</b> <font color=\"red\">None</font></p>\n\n")
			continue
		}
		buf.WriteString("<p><b>Proposed resolution:</b></p>\n")
		buf.WriteString(is.Resolution)
		buf.WriteString("\n\n")
	}
	writeTrailer(&buf)
	return buf.String(), nil
}
