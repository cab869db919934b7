package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cplusplus/lib-issues-software/core/diff"
	"github.com/cplusplus/lib-issues-software/internal/archive"
	"github.com/cplusplus/lib-issues-software/internal/historydb"
	"github.com/cplusplus/lib-issues-software/internal/manifest"
	"github.com/cplusplus/lib-issues-software/internal/validation"
)

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = saved })
	return &buf
}

const testConfig = `<?xml version="1.0" encoding="utf-8"?>
<issuelist revision="R12" date="2026-03-01" title="Post-Kona mailing"
  active_docno="N5001" defect_docno="N5002" closed_docno="N5003"
  maintainer="Jane Doe &lt;lwgchair@example.org&gt;" file_name_prefix="lwg-">
<intro list="Active">
<p>Revision <replace "revision"/> of the active issues.</p>
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
<revision tag="R11">
<ul><li>Opened <iref ref="1"/>.</li></ul>
</revision>
</revision_history>
</issuelist>
`

const testSections = `23.3.5 [list]
23.3.6 [vector]
`

// The previous mailing had issue 1 open and no issue 2 or 3.
const testOldTOC = `<table>
<tr><th>Num</th><th>Status</th></tr>
<tr><td><a href="lwg-active.html#1">1</a></td><td><a href="lwg-active.html#Open">Open</a></td></tr>
</table>
`

func issueRecord(num, stat, tag, body string) string {
	return `<?xml version='1.0' encoding='utf-8' standalone='no'?>
<!DOCTYPE issue SYSTEM "lwg-issue.dtd">

<issue num="` + num + `" status="` + stat + `">
<title>Issue ` + num + ` title</title>
<section><sref ref="` + tag + `"/></section>
<submitter>Jane Doe</submitter>
<date>21 Aug 2012</date>

<discussion>
` + body + `
</discussion>

<resolution>
<p>Apply the change to the synopsis of the container.</p>
</resolution>

</issue>
`
}

// createTestRepo lays out a repository root with three issues.
func createTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	createTestFile(t, root, "meta-data/section.data", testSections)
	createTestFile(t, root, "meta-data/lwg-old-toc.html", testOldTOC)
	createTestFile(t, root, "xml/config.xml", testConfig)
	createTestFile(t, root, "xml/issue0001.xml", issueRecord("1", "New", "[vector]", "<p>Growth is unspecified.</p>"))
	createTestFile(t, root, "xml/issue0002.xml", issueRecord("2", "Ready", "[list]", "<p>See <iref ref=\"1\"/>.</p>"))
	createTestFile(t, root, "xml/issue0003.xml", issueRecord("3", "NAD", "[list.ops]", "<p>Not a defect.</p>"))
	if err := os.Mkdir(filepath.Join(root, "mailing"), 0755); err != nil {
		t.Fatalf("failed to create mailing directory: %v", err)
	}
	return root
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
}

func readSnapshotFile(t *testing.T, path string) diff.Snapshot {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	snap, err := diff.ReadTOC(string(data))
	if err != nil {
		t.Fatalf("ReadTOC(%s) error = %v", path, err)
	}
	return snap
}

func TestListsCmd_Run(t *testing.T) {
	root := createTestRepo(t)
	out := captureOutput(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	archivePath := filepath.Join(t.TempDir(), "mailing-R12.tar.xz")

	cmd := &ListsCmd{
		Root:      root,
		HistoryDB: dbPath,
		Manifest:  true,
		Archive:   archivePath,
		now:       fixedClock,
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Wrote 21 documents for 3 issues") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	mailing := filepath.Join(root, "mailing")
	want := diff.Snapshot{{Num: 1, Status: "New"}, {Num: 2, Status: "Ready"}, {Num: 3, Status: "NAD"}}
	if d := cmp.Diff(want, readSnapshotFile(t, filepath.Join(mailing, "lwg-toc.html"))); d != "" {
		t.Errorf("table of contents mismatch (-want +got):\n%s", d)
	}

	active, err := os.ReadFile(filepath.Join(mailing, "lwg-active.html"))
	if err != nil {
		t.Fatalf("failed to read active list: %v", err)
	}
	for _, s := range []string{
		"<h1>C++ Standard Library Active Issues List (Revision R12)</h1>",
		`<h3><a name="1"></a>1. Issue 1 title</h3>`,
		`<a href="lwg-active.html#1">1</a>`,
		"Revised 2026-03-01 at 12:30:00 UTC",
	} {
		if !strings.Contains(string(active), s) {
			t.Errorf("active list missing %q", s)
		}
	}
	if strings.Contains(string(active), "<iref") {
		t.Error("active list still holds unresolved issue references")
	}

	m, err := manifest.Read(filepath.Join(mailing, manifest.FileName))
	if err != nil {
		t.Fatalf("manifest.Read() error = %v", err)
	}
	if m.Revision != "R12" || len(m.Documents) != 21 {
		t.Errorf("manifest = %s with %d documents, want R12 with 21", m.Revision, len(m.Documents))
	}
	if m.CreatedAt != "2026-03-01T12:30:00Z" {
		t.Errorf("CreatedAt = %q", m.CreatedAt)
	}
	if bad, err := manifest.Verify(mailing, m); err != nil {
		t.Errorf("Verify() = %v, %v", bad, err)
	}

	names, err := archive.List(archivePath)
	if err != nil {
		t.Fatalf("archive.List() error = %v", err)
	}
	if !slices.Contains(names, "lwg-toc.html") || !slices.Contains(names, manifest.FileName) {
		t.Errorf("archive entries = %v", names)
	}

	store, err := historydb.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("historydb.Open() error = %v", err)
	}
	defer store.Close()
	run, snap, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if run.Revision != "R12" || run.Issues != 3 {
		t.Errorf("run = %+v", run)
	}
	if d := cmp.Diff(want, snap); d != "" {
		t.Errorf("saved snapshot mismatch (-want +got):\n%s", d)
	}
}

func TestListsCmd_Run_RevisionHistory(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)

	cmd := &ListsCmd{Root: root, now: fixedClock}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	active, err := os.ReadFile(filepath.Join(root, "mailing", "lwg-active.html"))
	if err != nil {
		t.Fatalf("failed to read active list: %v", err)
	}
	for _, s := range []string{
		"<li>R12: 2026-03-01 Post-Kona mailing",
		"<li>R11: ",
		"Added the following",
	} {
		if !strings.Contains(string(active), s) {
			t.Errorf("revision history missing %q", s)
		}
	}
}

func TestListsCmd_Run_HistoryDiff(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	var active [2][]byte
	for i := range active {
		cmd := &ListsCmd{Root: root, HistoryDB: dbPath, now: fixedClock}
		if err := cmd.Run(context.Background()); err != nil {
			t.Fatalf("run %d: Run() error = %v", i, err)
		}
		data, err := os.ReadFile(filepath.Join(root, "mailing", "lwg-active.html"))
		if err != nil {
			t.Fatal(err)
		}
		active[i] = data
	}
	// Publishing R12 again still diffs against the old table of contents,
	// not against the first R12 run.
	if !bytes.Equal(active[0], active[1]) {
		t.Error("republishing the same revision changed lwg-active.html")
	}

	store, err := historydb.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("historydb.Open() error = %v", err)
	}
	defer store.Close()
	runs, err := store.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("each run should get its own ID")
	}
}

func TestListsCmd_Run_OldArchive(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)
	archivePath := filepath.Join(t.TempDir(), "previous.tar.xz")

	first := &ListsCmd{Root: root, Archive: archivePath, now: fixedClock}
	if err := first.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Without the old table of contents the archive is the only source.
	if err := os.Remove(filepath.Join(root, "meta-data", "lwg-old-toc.html")); err != nil {
		t.Fatal(err)
	}
	second := &ListsCmd{Root: root, OldArchive: archivePath, now: fixedClock}
	if err := second.Run(context.Background()); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
}

func TestListsCmd_Run_MissingOldTOC(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)
	if err := os.Remove(filepath.Join(root, "meta-data", "lwg-old-toc.html")); err != nil {
		t.Fatal(err)
	}
	cmd := &ListsCmd{Root: root, now: fixedClock}
	err := cmd.Run(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Run() error = %v, want not-exist", err)
	}
}

func TestListsCmd_Run_KeepGoing(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		body     string
		wantKept bool
	}{
		{
			name:     "parse failure",
			file:     "xml/issue0009.xml",
			body:     `<issue num="9" status="New"><title>No section</title></issue>`,
			wantKept: false,
		},
		{
			name:     "markup failure",
			file:     "xml/issue0009.xml",
			body:     issueRecord("9", "New", "[vector]", "<note>unclosed"),
			wantKept: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := createTestRepo(t)
			captureOutput(t)
			createTestFile(t, root, tt.file, tt.body)

			strict := &ListsCmd{Root: root, now: fixedClock}
			if err := strict.Run(context.Background()); err == nil {
				t.Fatal("Run() should fail without --keep-going")
			}

			lenient := &ListsCmd{Root: root, KeepGoing: true, now: fixedClock}
			if err := lenient.Run(context.Background()); err != nil {
				t.Fatalf("Run() with --keep-going error = %v", err)
			}
			snap := readSnapshotFile(t, filepath.Join(root, "mailing", "lwg-toc.html"))
			if _, ok := snap.Find(9); ok != tt.wantKept {
				t.Errorf("issue 9 in table of contents = %v, want %v", ok, tt.wantKept)
			}
		})
	}
}

func TestListsCmd_Run_KeepGoingCitedIssue(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)
	// Issue 2 and the revision history both cite issue 1.
	createTestFile(t, root, "xml/issue0001.xml", issueRecord("1", "New", "[vector]", "<note>unclosed"))
	dbPath := filepath.Join(t.TempDir(), "history.db")

	cmd := &ListsCmd{Root: root, KeepGoing: true, HistoryDB: dbPath, now: fixedClock}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	snap := readSnapshotFile(t, filepath.Join(root, "mailing", "lwg-toc.html"))
	if len(snap) != 3 {
		t.Errorf("got %d issues in table of contents, want 3", len(snap))
	}
	if _, ok := snap.Find(1); !ok {
		t.Error("issue 1 should still be published")
	}

	active, err := os.ReadFile(filepath.Join(root, "mailing", "lwg-active.html"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"could not be rendered", "&lt;note&gt;unclosed"} {
		if !strings.Contains(string(active), want) {
			t.Errorf("lwg-active.html missing %q", want)
		}
	}
	if strings.Contains(string(active), "<note>unclosed") {
		t.Error("raw markup of the failing issue should be escaped")
	}

	store, err := historydb.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	_, saved, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if _, ok := saved.Find(1); !ok {
		t.Error("saved run should include issue 1")
	}
}

func TestListsCmd_Run_NotDirectory(t *testing.T) {
	cmd := &ListsCmd{Root: filepath.Join(t.TempDir(), "missing")}
	err := cmd.Run(context.Background())
	if !errors.Is(err, validation.ErrNotDirectory) {
		t.Errorf("Run() error = %v, want ErrNotDirectory", err)
	}
}

func TestListIssuesCmd_Run(t *testing.T) {
	root := createTestRepo(t)
	tests := []struct {
		status string
		want   string
	}{
		{"Ready", "2\n"},
		{"New", "1\n"},
		{"Open", ""},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			out := captureOutput(t)
			cmd := &ListIssuesCmd{Status: tt.status, Root: root}
			if err := cmd.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestSetStatusCmd_Run(t *testing.T) {
	root := createTestRepo(t)
	path := filepath.Join(root, "xml", "issue0001.xml")
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("dry run", func(t *testing.T) {
		out := captureOutput(t)
		cmd := &SetStatusCmd{Num: "0001", Status: "Tentatively_Ready", Root: root, DryRun: true}
		if err := cmd.Run(); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		want := "--- " + path + "\n+++ " + path + "\n" +
			"-<issue num=\"1\" status=\"New\">\n" +
			"+<issue num=\"1\" status=\"Tentatively Ready\">\n"
		if out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
		data, _ := os.ReadFile(path)
		if !bytes.Equal(data, original) {
			t.Error("dry run should not modify the file")
		}
	})

	t.Run("write", func(t *testing.T) {
		captureOutput(t)
		cmd := &SetStatusCmd{Num: "0001", Status: "Tentatively_Ready", Root: root}
		if err := cmd.Run(); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		data, _ := os.ReadFile(path)
		want := strings.Replace(string(original), `status="New"`, `status="Tentatively Ready"`, 1)
		if string(data) != want {
			t.Errorf("file not rewritten:\n%s", data)
		}
	})
}

func TestSetStatusCmd_Run_Errors(t *testing.T) {
	root := createTestRepo(t)
	createTestFile(t, root, "xml/issue7.xml", issueRecord("8", "New", "[vector]", "<p>x</p>"))

	tests := []struct {
		name   string
		num    string
		status string
	}{
		{"not a number", "abc", "New"},
		{"zero", "0", "New"},
		{"missing file", "0042", "New"},
		{"number mismatch", "7", "New"},
		{"unknown status", "0001", "Bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			cmd := &SetStatusCmd{Num: tt.num, Status: tt.status, Root: root}
			if err := cmd.Run(); err == nil {
				t.Error("Run() should fail")
			}
		})
	}
}

func TestSectionsCmd_Run(t *testing.T) {
	root := createTestRepo(t)
	out := captureOutput(t)
	cmd := &SectionsCmd{Root: root}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "23.3.5 [list]\n23.3.6 [vector]\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestSectionsCmd_Run_Missing(t *testing.T) {
	cmd := &SectionsCmd{Root: t.TempDir()}
	if err := cmd.Run(); err == nil {
		t.Error("Run() should fail without a section table")
	}
}

func TestVerifyCmd_Run(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)
	cmd := &ListsCmd{Root: root, Manifest: true, now: fixedClock}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("ListsCmd.Run() error = %v", err)
	}
	mailing := filepath.Join(root, "mailing")

	out := captureOutput(t)
	verify := &VerifyCmd{Dir: mailing}
	if err := verify.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "[OK]") {
		t.Errorf("output = %q", out.String())
	}

	createTestFile(t, mailing, "lwg-closed.html", "tampered")
	out = captureOutput(t)
	err := verify.Run()
	if !errors.Is(err, manifest.ErrMismatch) {
		t.Errorf("Run() error = %v, want ErrMismatch", err)
	}
	if !strings.Contains(out.String(), "[FAIL] lwg-closed.html") {
		t.Errorf("output = %q", out.String())
	}
}

func TestUnpackCmd_Run(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)
	archivePath := filepath.Join(t.TempDir(), "mailing.tar.xz")
	cmd := &ListsCmd{Root: root, Archive: archivePath, now: fixedClock}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("ListsCmd.Run() error = %v", err)
	}

	dst := t.TempDir()
	out := captureOutput(t)
	unpack := &UnpackCmd{Archive: archivePath, Dir: dst}
	if err := unpack.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Extracted 21 files") {
		t.Errorf("output = %q", out.String())
	}
	got, err := os.ReadFile(filepath.Join(dst, "lwg-toc.html"))
	if err != nil {
		t.Fatalf("failed to read extracted document: %v", err)
	}
	want, _ := os.ReadFile(filepath.Join(root, "mailing", "lwg-toc.html"))
	if !bytes.Equal(got, want) {
		t.Error("extracted document differs from the published one")
	}
}

func TestHistoryCmd_Run(t *testing.T) {
	root := createTestRepo(t)
	captureOutput(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cmd := &ListsCmd{Root: root, HistoryDB: dbPath, now: fixedClock}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("ListsCmd.Run() error = %v", err)
	}

	out := captureOutput(t)
	history := &HistoryCmd{DB: dbPath}
	if err := history.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "R12     2026-03-01T12:30:00Z  3 issues") {
		t.Errorf("output = %q", out.String())
	}
}

func TestVersionCmd_Run(t *testing.T) {
	out := captureOutput(t)
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "lwg version "+version+"\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestSetupLogging(t *testing.T) {
	if err := setupLogging("debug", "json"); err != nil {
		t.Errorf("setupLogging() error = %v", err)
	}
	if err := setupLogging("loud", "text"); err == nil {
		t.Error("setupLogging() should reject an unknown level")
	}
	if err := setupLogging("info", "xml"); err == nil {
		t.Error("setupLogging() should reject an unknown format")
	}
	t.Cleanup(func() { _ = setupLogging("info", "text") })
}

func TestLineDiff(t *testing.T) {
	before := "a\nb\nc\n"
	after := "a\nB\nc\n"
	want := "--- f\n+++ f\n-b\n+B\n"
	if got := lineDiff("f", before, after); got != want {
		t.Errorf("lineDiff() = %q, want %q", got, want)
	}
	if got := lineDiff("f", before, before); got != "--- f\n+++ f\n" {
		t.Errorf("lineDiff() of equal texts = %q", got)
	}
}

func TestUnregistered(t *testing.T) {
	got := unregistered([]string{"[a]", "[b]"}, []string{"[a]", "[b]", "[c]"})
	if d := cmp.Diff([]string{"[c]"}, got); d != "" {
		t.Errorf("unregistered() mismatch (-want +got):\n%s", d)
	}
	if got := unregistered([]string{"[a]"}, []string{"[a]"}); got != nil {
		t.Errorf("unregistered() = %v, want nil", got)
	}
}

func TestReadSnapshot(t *testing.T) {
	snap, err := readSnapshot("lwg-old-toc.html", []byte(testOldTOC))
	if err != nil {
		t.Fatalf("readSnapshot() error = %v", err)
	}
	if d := cmp.Diff(diff.Snapshot{{Num: 1, Status: "Open"}}, snap); d != "" {
		t.Errorf("readSnapshot() mismatch (-want +got):\n%s", d)
	}

	_, err = readSnapshot("lwg-old-toc.html", []byte("\x00\x01\x02binary"))
	if !errors.Is(err, validation.ErrFileType) {
		t.Errorf("readSnapshot() error = %v, want ErrFileType", err)
	}
}
