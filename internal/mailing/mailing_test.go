package mailing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cplusplus/lib-issues-software/core/issue"
)

const sampleConfig = `<?xml version="1.0" encoding="utf-8"?>
<issuelist revision="R104" date="2026-03-01" title="Pre-Croydon mailing"
  active_docno="N9001" defect_docno="N9002" closed_docno="N9003"
  maintainer="Jane Doe &lt;lwgchair@example.org&gt;" file_name_prefix="lwg-">
<intro list="Active">
<p>This is revision <replace "revision"/> of the active list.&nbsp;See <iref ref="2"/>.</p>
</intro>
<intro list="Defects">
<p>Defect reports.</p>
</intro>
<intro list="Closed">
<p>Closed issues.</p>
</intro>
<statuses>
<p><b><a name="New">New</a></b> - The issue has not yet been reviewed.</p>
</statuses>
<revision_history>
<revision tag="R103">
<ul><li>Changed <iref ref="1"/> to Ready.</li></ul>
</revision>
<revision tag="R102">Initial.</revision>
</revision_history>
</issuelist>
`

func load(t *testing.T, text string) *Info {
	t.Helper()
	m, err := Load(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return m
}

func sampleIssues() []issue.Issue {
	return []issue.Issue{
		{Num: 1, Status: "Ready", ModDate: time.Now()},
		{Num: 2, Status: "NAD"},
		{Num: 3, Status: "WP"},
	}
}

func TestAttributes(t *testing.T) {
	m := load(t, sampleConfig)
	tests := []struct {
		name string
		get  func() (string, error)
		want string
	}{
		{"revision", m.Revision, "R104"},
		{"active docno", func() (string, error) { return m.DocNumber(Active) }, "N9001"},
		{"defect docno", func() (string, error) { return m.DocNumber(Defect) }, "N9002"},
		{"closed docno", func() (string, error) { return m.DocNumber(Closed) }, "N9003"},
		{"title", func() (string, error) { return m.Attribute("title") }, "Pre-Croydon mailing"},
		{"maintainer", m.Maintainer, `Jane Doe &lt;<a href="mailto:lwgchair@example.org">lwgchair@example.org</a>&gt;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if got := m.FilePrefix(); got != "lwg-" {
		t.Errorf("FilePrefix() = %q, want %q", got, "lwg-")
	}
}

func TestMissingEntries(t *testing.T) {
	m := load(t, `<issuelist revision="R1"><revision_history></revision_history></issuelist>`)
	checks := map[string]func() (string, error){
		"attribute":  func() (string, error) { return m.Attribute("date") },
		"docno":      func() (string, error) { return m.DocNumber("pending") },
		"intro":      func() (string, error) { return m.Intro(Active) },
		"bad list":   func() (string, error) { return m.Intro("other") },
		"statuses":   m.Statuses,
		"maintainer": m.Maintainer,
		"revisions":  func() (string, error) { return m.Revisions(nil, "") },
	}
	for name, get := range checks {
		t.Run(name, func(t *testing.T) {
			if _, err := get(); !errors.Is(err, ErrConfig) {
				t.Errorf("error = %v, want ErrConfig", err)
			}
		})
	}
	if got := m.FilePrefix(); got != "" {
		t.Errorf("FilePrefix() = %q, want empty", got)
	}
}

func TestReplaceDirective(t *testing.T) {
	m := load(t, sampleConfig)
	intro, err := m.Intro(Active)
	if err != nil {
		t.Fatalf("Intro() error = %v", err)
	}
	if !strings.Contains(intro, "This is revision R104 of the active list.&nbsp;See") {
		t.Errorf("Intro() = %q", intro)
	}
	if !strings.Contains(intro, `<iref ref="2"/>`) {
		t.Errorf("Intro() should keep the fragment verbatim, got %q", intro)
	}
}

func TestReplaceUnterminated(t *testing.T) {
	_, err := Load(strings.NewReader(`<a revision="R1"><replace "revision"</a>`))
	if !errors.Is(err, ErrConfig) || !strings.Contains(err.Error(), "failed to find close") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestReplaceUnknownAttribute(t *testing.T) {
	_, err := Load(strings.NewReader(`<a><replace "nothing"/></a>`))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("Load() error = %v, want ErrConfig", err)
	}
}

func TestMalformedDocument(t *testing.T) {
	_, err := Load(strings.NewReader(`<issuelist revision="R1"><intro></issuelist>`))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("Load() error = %v, want ErrConfig", err)
	}
}

func TestIntros(t *testing.T) {
	m := load(t, sampleConfig)
	for list, want := range map[List]string{
		Defect: "\n<p>Defect reports.</p>\n",
		Closed: "\n<p>Closed issues.</p>\n",
	} {
		got, err := m.Intro(list)
		if err != nil {
			t.Fatalf("Intro(%s) error = %v", list, err)
		}
		if got != want {
			t.Errorf("Intro(%s) = %q, want %q", list, got, want)
		}
	}
}

func TestStatuses(t *testing.T) {
	m := load(t, sampleConfig)
	got, err := m.Statuses()
	if err != nil {
		t.Fatalf("Statuses() error = %v", err)
	}
	want := "\n<p><b><a name=\"New\">New</a></b> - The issue has not yet been reviewed.</p>\n"
	if got != want {
		t.Errorf("Statuses() = %q, want %q", got, want)
	}
}

func TestRevisions(t *testing.T) {
	m := load(t, sampleConfig)
	got, err := m.Revisions(sampleIssues(), "\n<ul><li>Changed <iref ref=\"3\"/>.</li></ul>\n")
	if err != nil {
		t.Fatalf("Revisions() error = %v", err)
	}
	want := "<ul>\n" +
		"<li>R104: 2026-03-01 Pre-Croydon mailing\n<ul><li>Changed <a href=\"lwg-defects.html#3\">3</a>.</li></ul>\n</li>\n" +
		"<li>R103: \n<ul><li>Changed <a href=\"lwg-active.html#1\">1</a> to Ready.</li></ul>\n</li>\n" +
		"<li>R102: Initial.</li>\n" +
		"</ul>\n"
	if got != want {
		t.Errorf("Revisions() =\n%s\nwant\n%s", got, want)
	}
}

func TestRevisionsUnresolved(t *testing.T) {
	m := load(t, sampleConfig)
	if _, err := m.Revisions(sampleIssues()[1:], ""); err == nil {
		t.Error("Revisions() should fail when a referenced issue is missing")
	}
}

func TestNormalizeEntities(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a &lt; b", "a &lt; b"},
		{"x&nbsp;y", "x&#160;y"},
		{"&bogus;", "&amp;bogus;"},
		{"&#169;", "&#169;"},
	}
	for _, tt := range tests {
		if got := normalizeEntities(tt.in); got != tt.want {
			t.Errorf("normalizeEntities(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
