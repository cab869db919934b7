package issue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
	"github.com/cplusplus/lib-issues-software/core/section"
	"github.com/cplusplus/lib-issues-software/core/status"
)

// DateLayout is the layout of the <date> element, e.g. "14 Feb 2013".
const DateLayout = "2 Jan 2006"

// minResolution is the shortest resolution content counted as a proposal.
// Shorter content is whitespace left between tags.
const minResolution = 15

// cursor walks raw issue text in one direction.
type cursor struct {
	text string
	pos  int
}

// find returns the index of marker at or after the cursor, or -1.
func (c *cursor) find(marker string) int {
	if c.pos > len(c.text) {
		return -1
	}
	i := strings.Index(c.text[c.pos:], marker)
	if i < 0 {
		return -1
	}
	return c.pos + i
}

// element returns the content between open and close, leaving the cursor
// on close. The second result is false if either marker is missing.
func (c *cursor) element(open, close string) (string, bool) {
	k := c.find(open)
	if k < 0 {
		return "", false
	}
	start := k + len(open)
	end := strings.Index(c.text[start:], close)
	if end < 0 {
		return "", false
	}
	c.pos = start + end
	return c.text[start:c.pos], true
}

// Parse builds an issue from its raw record. filename is used in
// diagnostics and modified is the last-modified time of the record.
// Section tags missing from idx are registered with the sentinel locator.
func Parse(raw, filename string, modified time.Time, idx *section.Index) (*Issue, error) {
	fail := func(kind lwgerrors.Kind, msg string) error {
		return lwgerrors.NewIssueFile(filename, kind, msg)
	}

	c := &cursor{text: raw}
	is := &Issue{ModDate: modified, Priority: Unprioritized}

	num, ok := c.element(`<issue num="`, `"`)
	if !ok {
		return nil, fail(lwgerrors.KindMissingIssueNumber, "Unable to find issue number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n <= 0 {
		return nil, fail(lwgerrors.KindMissingIssueNumber, "Unable to parse issue number")
	}
	is.Num = n

	stat, ok := c.element(`status="`, `"`)
	if !ok {
		return nil, fail(lwgerrors.KindMissingStatus, "Unable to find issue status")
	}
	if _, err := status.PublicationCategory(stat); err != nil {
		return nil, &lwgerrors.IssueFileError{
			Path:    filename,
			Kind:    lwgerrors.KindUnknownStatus,
			Message: fmt.Sprintf("unknown status %q", stat),
			Err:     err,
		}
	}
	is.Status = stat

	if is.Title, ok = c.element("<title>", "</title>"); !ok {
		return nil, fail(lwgerrors.KindMissingTitle, "Unable to find issue title")
	}

	sect, ok := c.element("<section>", "</section>")
	if !ok {
		return nil, fail(lwgerrors.KindMissingSection, "Unable to find issue section")
	}
	tags, ok := quoted(sect)
	if !ok || len(tags) == 0 {
		return nil, fail(lwgerrors.KindMissingSection, "Unable to find issue section")
	}
	for _, tag := range tags {
		idx.Register(tag)
	}
	is.Tags = tags

	if is.Submitter, ok = c.element("<submitter>", "</submitter>"); !ok {
		return nil, fail(lwgerrors.KindMissingSubmitter, "Unable to find issue submitter")
	}

	date, ok := c.element("<date>", "</date>")
	if !ok {
		return nil, fail(lwgerrors.KindMissingDate, "Unable to find issue date")
	}
	if is.Date, err = ParseDate(date); err != nil {
		return nil, &lwgerrors.IssueFileError{
			Path:    filename,
			Kind:    lwgerrors.KindBadDate,
			Message: "date format error",
			Err:     err,
		}
	}

	disc := c.find("<discussion>")
	if disc < 0 {
		return nil, fail(lwgerrors.KindMissingDiscussion, "Unable to find issue discussion")
	}

	// Optional elements live between the date and the discussion.
	header := &cursor{text: raw[:disc], pos: c.pos}
	if k := header.find("<priority>"); k >= 0 {
		p, ok := header.element("<priority>", "</priority>")
		if !ok {
			return nil, fail(lwgerrors.KindBadPriorityValue, "Corrupt 'priority' element: no closing tag")
		}
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > MaxPriority {
			return nil, fail(lwgerrors.KindBadPriorityValue, fmt.Sprintf("Bad priority value %q", p))
		}
		is.Priority = v
	}
	header.pos = c.pos
	if owner, ok := header.element("<owner>", "</owner>"); ok {
		is.Owner = strings.TrimSpace(owner)
	}

	is.Text = raw[disc:]
	is.HasResolution = true
	if status.IsActive(is.Status) {
		is.Resolution = extractResolution(is.Text)
		is.HasResolution = is.Resolution != ""
	}
	return is, nil
}

// ParseDate parses a "day Mon year" date, tolerating extra whitespace.
func ParseDate(s string) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("expected day, month and year in %q", s)
	}
	return time.Parse(DateLayout, strings.Join(fields, " "))
}

// quoted returns the double-quoted strings in s. The second result is false
// when a quote is left open.
func quoted(s string) ([]string, bool) {
	var out []string
	for {
		k := strings.IndexByte(s, '"')
		if k < 0 {
			return out, true
		}
		s = s[k+1:]
		l := strings.IndexByte(s, '"')
		if l < 0 {
			return out, false
		}
		out = append(out, s[:l])
		s = s[l+1:]
	}
}

// extractResolution returns the raw content of the first <resolution>
// element of text, or "" if it is absent or too short to count.
func extractResolution(text string) string {
	const open, close = "<resolution>", "</resolution>"
	k := strings.Index(text, open)
	if k < 0 {
		return ""
	}
	body := text[k+len(open):]
	if l := strings.Index(body, close); l >= 0 {
		body = body[:l]
	}
	if len(body) < minResolution {
		return ""
	}
	return body
}

// SetStatus rewrites the status attribute of a raw issue record. num must
// match the number recorded in the text, and newStatus must classify.
func SetStatus(raw, filename string, num int, newStatus string) (string, error) {
	if _, err := status.PublicationCategory(newStatus); err != nil {
		return "", err
	}

	c := &cursor{text: raw}
	got, ok := c.element(`<issue num="`, `"`)
	if !ok {
		return "", lwgerrors.NewIssueFile(filename, lwgerrors.KindMissingIssueNumber, "Unable to find issue number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(got))
	if err != nil {
		return "", lwgerrors.NewIssueFile(filename, lwgerrors.KindMissingIssueNumber, "Corrupt issue number attribute")
	}
	if n != num {
		return "", lwgerrors.NewIssueFile(filename, lwgerrors.KindMissingIssueNumber,
			fmt.Sprintf("Issue number %d does not match requested issue %d", n, num))
	}

	const attr = `status="`
	k := c.find(attr)
	if k < 0 {
		return "", lwgerrors.NewIssueFile(filename, lwgerrors.KindMissingStatus, "Unable to find issue status")
	}
	k += len(attr)
	l := strings.IndexByte(raw[k:], '"')
	if l < 0 {
		return "", lwgerrors.NewIssueFile(filename, lwgerrors.KindMissingStatus, "Corrupt status attribute")
	}
	return raw[:k] + newStatus + raw[k+l:], nil
}
