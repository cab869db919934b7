// Package mailing reads the per-mailing metadata document (config.xml):
// revision, dates, document numbers, maintainer, list introductions, the
// status legend and the revision history.
//
// The document is XML except for <replace "name"/> directives, which are
// substituted with the named attribute's raw value before parsing.
package mailing

import (
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/markup"
)

// ErrConfig is returned for a missing or malformed metadata entry.
var ErrConfig = errors.New("config.xml")

// List selects one of the three published issue lists.
type List string

// Published lists.
const (
	Active List = "active"
	Defect List = "defect"
	Closed List = "closed"
)

var introNames = map[List]string{
	Active: "Active",
	Defect: "Defects",
	Closed: "Closed",
}

// Info is a parsed metadata document. HTML fragments are served from the
// substituted source text verbatim; the parsed tree answers attribute and
// structure queries.
type Info struct {
	raw string
	doc *xmlquery.Node
}

const replaceOpen = `<replace "`

// Load reads and parses a metadata document.
func Load(r io.Reader) (*Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %w: %v", ErrConfig, err)
	}
	text, err := substitute(string(data))
	if err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(strings.NewReader(normalizeEntities(text)))
	if err != nil {
		return nil, fmt.Errorf("parsing %w: %v", ErrConfig, err)
	}
	return &Info{raw: text, doc: doc}, nil
}

// substitute expands every <replace "name"/> with the raw value of the
// first name="..." attribute in the document.
func substitute(data string) (string, error) {
	pos := 0
	for {
		first := strings.Index(data[pos:], replaceOpen)
		if first < 0 {
			return data, nil
		}
		first += pos
		nameStart := first + len(replaceOpen)
		last := strings.Index(data[nameStart:], `"/>`)
		if last < 0 {
			end := min(len(data), first+32)
			return "", fmt.Errorf("%w: failed to find close for: %s...", ErrConfig, data[first:end])
		}
		last += nameStart
		value, err := rawAttribute(data, data[nameStart:last])
		if err != nil {
			return "", err
		}
		data = data[:first] + value + data[last+3:]
		pos = first + len(value)
	}
}

func rawAttribute(data, name string) (string, error) {
	search := name + `="`
	i := strings.Index(data, search)
	if i < 0 {
		return "", fmt.Errorf("%w: unable to find %s", ErrConfig, name)
	}
	i += len(search)
	j := strings.IndexByte(data[i:], '"')
	if j < 0 {
		return "", fmt.Errorf("%w: unable to parse %s", ErrConfig, name)
	}
	return data[i : i+j], nil
}

var (
	entityRef   = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*);`)
	xmlEntities = map[string]bool{"lt": true, "gt": true, "amp": true, "quot": true, "apos": true}
)

// normalizeEntities turns HTML named entities into numeric references so
// the XML parser accepts them.
func normalizeEntities(s string) string {
	return entityRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if xmlEntities[name] {
			return ref
		}
		decoded := html.UnescapeString(ref)
		if decoded == ref {
			return "&amp;" + ref[1:]
		}
		var b strings.Builder
		for _, r := range decoded {
			fmt.Fprintf(&b, "&#%d;", r)
		}
		return b.String()
	})
}

// Attribute returns the first attribute called name anywhere in the
// document, escaped for HTML.
func (m *Info) Attribute(name string) (string, error) {
	expr, err := xpath.Compile(fmt.Sprintf("//*[@%s]", name))
	if err != nil {
		return "", fmt.Errorf("%w: bad attribute name %q: %v", ErrConfig, name, err)
	}
	n := xmlquery.QuerySelector(m.doc, expr)
	if n == nil {
		return "", fmt.Errorf("%w: unable to find %s", ErrConfig, name)
	}
	return html.EscapeString(n.SelectAttr(name)), nil
}

// Revision returns the mailing revision, such as "R104".
func (m *Info) Revision() (string, error) {
	return m.Attribute("revision")
}

// FilePrefix returns the prefix for output file names. It is optional.
func (m *Info) FilePrefix() string {
	p, err := m.Attribute("file_name_prefix")
	if err != nil {
		return ""
	}
	return p
}

// DocNumber returns the paper number of a list.
func (m *Info) DocNumber(list List) (string, error) {
	if _, ok := introNames[list]; !ok {
		return "", fmt.Errorf("%w: unknown list %q", ErrConfig, list)
	}
	return m.Attribute(string(list) + "_docno")
}

// Maintainer returns the maintainer line with the address inside &lt;...&gt;
// turned into a mailto link.
func (m *Info) Maintainer() (string, error) {
	n := xmlquery.FindOne(m.doc, "//*[@maintainer]")
	if n == nil {
		return "", fmt.Errorf("%w: unable to find maintainer", ErrConfig)
	}
	v := n.SelectAttr("maintainer")
	open := strings.IndexByte(v, '<')
	if open < 0 {
		return "", fmt.Errorf("%w: unable to parse maintainer email address", ErrConfig)
	}
	closing := strings.IndexByte(v[open:], '>')
	if closing < 0 {
		return "", fmt.Errorf("%w: unable to parse maintainer email address", ErrConfig)
	}
	closing += open
	email := html.EscapeString(v[open+1 : closing])
	return html.EscapeString(v[:open]) +
		`&lt;<a href="mailto:` + email + `">` + email + `</a>&gt;` +
		html.EscapeString(v[closing+1:]), nil
}

// Intro returns the introduction of a list as an HTML fragment.
func (m *Info) Intro(list List) (string, error) {
	name, ok := introNames[list]
	if !ok {
		return "", fmt.Errorf("%w: unknown list %q", ErrConfig, list)
	}
	body, _, err := m.element(0, `<intro list="`+name+`">`, "</intro>")
	if err != nil {
		return "", fmt.Errorf("%w: intro for %s: %v", ErrConfig, name, err)
	}
	return body, nil
}

// Statuses returns the status legend as an HTML fragment.
func (m *Info) Statuses() (string, error) {
	body, _, err := m.element(0, "<statuses>", "</statuses>")
	if err != nil {
		return "", fmt.Errorf("%w: statuses: %v", ErrConfig, err)
	}
	return body, nil
}

// Revisions renders the revision history as an HTML list. The first entry
// describes this mailing and carries diffReport; issue references in the
// result are resolved against issues, which must be sorted by number.
func (m *Info) Revisions(issues []issue.Issue, diffReport string) (string, error) {
	hist := xmlquery.FindOne(m.doc, "//revision_history")
	if hist == nil {
		return "", fmt.Errorf("%w: unable to find <revision_history>", ErrConfig)
	}
	var head [3]string
	for i, name := range []string{"revision", "date", "title"} {
		v, err := m.Attribute(name)
		if err != nil {
			return "", err
		}
		head[i] = v
	}

	var b strings.Builder
	b.WriteString("<ul>\n<li>")
	b.WriteString(head[0] + ": " + head[1] + " " + head[2])
	b.WriteString(diffReport)
	b.WriteString("</li>\n")
	_, pos, err := m.element(0, "<revision_history>", "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfig, err)
	}
	for _, rev := range xmlquery.Find(hist, "revision") {
		tag := rev.SelectAttr("tag")
		var body string
		body, pos, err = m.element(pos, `<revision tag="`+tag+`">`, "</revision>")
		if err != nil {
			return "", fmt.Errorf("%w: revision %s: %v", ErrConfig, tag, err)
		}
		b.WriteString("<li>")
		b.WriteString(tag + ": ")
		b.WriteString(body)
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n")

	r, err := markup.ResolveIssueRefs(b.String(), issues)
	if err != nil {
		return "", fmt.Errorf("revision history: %w", err)
	}
	return r, nil
}

// element returns the source text between open and close, searching from
// pos, and the offset just past it. An empty close returns no body and the
// offset just past open.
func (m *Info) element(pos int, open, close string) (string, int, error) {
	i := strings.Index(m.raw[pos:], open)
	if i < 0 {
		return "", 0, fmt.Errorf("unable to find %s", open)
	}
	i += pos + len(open)
	if close == "" {
		return "", i, nil
	}
	j := strings.Index(m.raw[i:], close)
	if j < 0 {
		return "", 0, fmt.Errorf("unable to find %s", close)
	}
	return m.raw[i : i+j], i + j + len(close), nil
}
