// Package report renders the published HTML documents of an issues list:
// the active, defect and closed lists, the meeting working documents and
// the index documents ordered by number, status, section and priority.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/section"
	"github.com/cplusplus/lib-issues-software/core/status"
	"github.com/cplusplus/lib-issues-software/internal/filenames"
	"github.com/cplusplus/lib-issues-software/internal/mailing"
)

// Metadata supplies the per-mailing text of the documents.
type Metadata interface {
	Revision() (string, error)
	DocNumber(list mailing.List) (string, error)
	Maintainer() (string, error)
	Intro(list mailing.List) (string, error)
	Statuses() (string, error)
	Revisions(issues []issue.Issue, diffReport string) (string, error)
}

// Generator renders documents for one mailing.
type Generator struct {
	meta  Metadata
	index *section.Index
	names filenames.Names
	now   time.Time
}

// NewGenerator creates a generator. now stamps every document.
func NewGenerator(meta Metadata, idx *section.Index, names filenames.Names, now time.Time) *Generator {
	return &Generator{
		meta:  meta,
		index: idx,
		names: names,
		now:   now.UTC(),
	}
}

// Names returns the document names the generator links to.
func (g *Generator) Names() filenames.Names {
	return g.names
}

const styleSheet = `<style type="text/css">
  p {text-align:justify}
  li {text-align:justify}
  blockquote.note
  {
    background-color:#E0E0E0;
    padding-left: 15px;
    padding-right: 15px;
    padding-top: 1px;
    padding-bottom: 1px;
  }
  ins {background-color:#A0FFA0}
  del {background-color:#FFA0A0}
</style>
`

func writeHeader(buf *strings.Builder, title string) {
	buf.WriteString("<!DOCTYPE HTML PUBLIC \"-//W3C//DTD HTML 4.01//EN\"\n")
	buf.WriteString("    \"http://www.w3.org/TR/html4/strict.dtd\">\n")
	buf.WriteString("<html>\n")
	buf.WriteString("<head>\n")
	buf.WriteString("<meta http-equiv=\"Content-Type\" content=\"text/html; charset=utf-8\">\n")
	buf.WriteString(fmt.Sprintf("<title>%s</title>\n", title))
	buf.WriteString(styleSheet)
	buf.WriteString("</head>\n")
	buf.WriteString("<body>\n")
}

func writeTrailer(buf *strings.Builder) {
	buf.WriteString("</body>\n")
	buf.WriteString("</html>\n")
}

func (g *Generator) writeTimestamp(buf *strings.Builder) {
	buf.WriteString(fmt.Sprintf("<p>Revised %s at %s UTC</p>\n",
		g.now.Format(time.DateOnly), g.now.Format(time.TimeOnly)))
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// bareTag strips the square brackets of a section tag.
func bareTag(tag string) string {
	return strings.TrimSuffix(strings.TrimPrefix(tag, "["), "]")
}

func (g *Generator) statusLink(stat string) string {
	return fmt.Sprintf(`<a href="%s#%s">%s</a>`, g.names.Active, status.RemoveQualifier(stat), stat)
}

func (g *Generator) sections(is issue.Issue) string {
	parts := make([]string, len(is.Tags))
	for i, tag := range is.Tags {
		parts[i] = g.index.Format(tag)
	}
	return strings.Join(parts, ", ")
}

// writeTable renders one row per issue with number, status, section,
// title, resolution state, duplicates and modification date.
func (g *Generator) writeTable(buf *strings.Builder, issues []issue.Issue) {
	buf.WriteString("<table border=\"1\" cellpadding=\"4\">\n")
	buf.WriteString("<tr>\n")
	buf.WriteString(fmt.Sprintf("  <td align=\"center\"><a href=\"%s\"><b>Issue</b></a></td>\n", g.names.TOC))
	buf.WriteString(fmt.Sprintf("  <td align=\"center\"><a href=\"%s\"><b>Status</b></a></td>\n", g.names.StatusIndex))
	buf.WriteString(fmt.Sprintf("  <td align=\"center\"><a href=\"%s\"><b>Section</b></a></td>\n", g.names.SectionIndex))
	buf.WriteString("  <td align=\"center\"><b>Title</b></td>\n")
	buf.WriteString("  <td align=\"center\"><b>Proposed Resolution</b></td>\n")
	buf.WriteString("  <td align=\"center\"><b>Duplicates</b></td>\n")
	buf.WriteString(fmt.Sprintf("  <td align=\"center\"><a href=\"%s\"><b>Last modified</b></a></td>\n", g.names.StatusDateIndex))
	buf.WriteString("</tr>\n")

	prevTag := ""
	for _, is := range issues {
		buf.WriteString("<tr>\n")
		buf.WriteString(fmt.Sprintf("<td align=\"right\">%s</td>\n", is.Anchor()))
		buf.WriteString(fmt.Sprintf("<td align=\"left\">%s<a name=\"%d\"></a></td>\n", g.statusLink(is.Status), is.Num))

		tag := is.PrimaryTag()
		buf.WriteString("<td align=\"left\">" + g.index.Format(tag))
		if tag != prevTag {
			prevTag = tag
			buf.WriteString(fmt.Sprintf("<a name=\"%s\"></a>", bareTag(tag)))
		}
		buf.WriteString("</td>\n")

		buf.WriteString(fmt.Sprintf("<td align=\"left\">%s</td>\n", is.Title))
		if is.HasResolution {
			buf.WriteString("<td align=\"center\">Yes</td>\n")
		} else {
			buf.WriteString("<td align=\"center\"><font color=\"red\">No</font></td>\n")
		}
		buf.WriteString(fmt.Sprintf("<td align=\"left\">%s</td>\n", strings.Join(is.Duplicates, ", ")))
		buf.WriteString(fmt.Sprintf("<td align=\"center\">%s</td>\n", formatDate(is.ModDate)))
		buf.WriteString("</tr>\n")
	}
	buf.WriteString("</table>\n")
}

// writeIssues renders every issue matching keep in full.
func (g *Generator) writeIssues(buf *strings.Builder, issues []issue.Issue, keep func(issue.Issue) bool) {
	byTag := make(map[string]int)
	activeByTag := make(map[string]int)
	byStatus := make(map[string]int)
	for _, is := range issues {
		byTag[is.PrimaryTag()]++
		byStatus[is.Status]++
		if status.IsActive(is.Status) {
			activeByTag[is.PrimaryTag()]++
		}
	}

	for _, is := range issues {
		if !keep(is) {
			continue
		}
		tag := is.PrimaryTag()

		buf.WriteString("<hr>\n")
		buf.WriteString(fmt.Sprintf("<h3><a name=\"%d\"></a>%d. %s</h3>\n", is.Num, is.Num, is.Title))
		buf.WriteString("<p><b>Section:</b> " + g.sections(is))
		buf.WriteString(" <b>Status:</b> " + g.statusLink(is.Status) + "\n")
		buf.WriteString(" <b>Submitter:</b> " + is.Submitter)
		buf.WriteString(" <b>Opened:</b> " + formatDate(is.Date))
		buf.WriteString(" <b>Last modified:</b> " + formatDate(is.ModDate))
		buf.WriteString("</p>\n")

		if activeByTag[tag] > 1 {
			buf.WriteString(fmt.Sprintf("<p><b>View other</b> <a href=\"%s#%s\">active issues</a> in %s.</p>\n",
				g.names.OpenIndex, bareTag(tag), tag))
		}
		if byTag[tag] > 1 {
			buf.WriteString(fmt.Sprintf("<p><b>View all other</b> <a href=\"%s#%s\">issues</a> in %s.</p>\n",
				g.names.SectionIndex, bareTag(tag), tag))
		}
		if byStatus[is.Status] > 1 {
			buf.WriteString(fmt.Sprintf("<p><b>View all issues with</b> <a href=\"%s#%s\">%s</a> status.</p>\n",
				g.names.StatusIndex, is.Status, is.Status))
		}
		if len(is.Duplicates) > 0 {
			buf.WriteString("<p><b>Duplicate of:</b> " + strings.Join(is.Duplicates, ", ") + "</p>\n")
		}

		buf.WriteString(is.Text)
		buf.WriteString("\n\n")
	}
}

// writeGroupHeading writes the heading of one group of an index document.
func writeGroupHeading(buf *strings.Builder, anchor, label string, n int) {
	buf.WriteString(fmt.Sprintf("<h2><a name=\"%s\"></a>%s (%s issues)</h2>\n", anchor, label, strconv.Itoa(n)))
}
