package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cplusplus/lib-issues-software/core/diff"
	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/markup"
	"github.com/cplusplus/lib-issues-software/core/section"
	"github.com/cplusplus/lib-issues-software/internal/archive"
	"github.com/cplusplus/lib-issues-software/internal/filenames"
	"github.com/cplusplus/lib-issues-software/internal/historydb"
	"github.com/cplusplus/lib-issues-software/internal/issuedir"
	"github.com/cplusplus/lib-issues-software/internal/logging"
	"github.com/cplusplus/lib-issues-software/internal/manifest"
	"github.com/cplusplus/lib-issues-software/internal/report"
	"github.com/cplusplus/lib-issues-software/internal/validation"
)

// ListsCmd generates the mailing documents.
type ListsCmd struct {
	Root       string `arg:"" optional:"" default:"." help:"Repository root holding meta-data/, xml/ and mailing/" type:"path"`
	Out        string `help:"Output directory (default ROOT/mailing)" type:"path"`
	KeepGoing  bool   `name:"keep-going" short:"k" help:"Leave out issues that fail to parse and publish the raw text of issues that fail to transform"`
	OldArchive string `name:"old-archive" help:"Diff against the table of contents in a previous mailing archive" type:"existingfile"`
	HistoryDB  string `name:"history-db" help:"Diff against the last run saved in this database, then save this run" type:"path"`
	Manifest   bool   `help:"Write manifest.json with the digests of the documents"`
	Archive    string `help:"Pack the documents into this .tar.xz archive" type:"path"`

	now func() time.Time
}

func (c *ListsCmd) Run(ctx context.Context) error {
	root := c.Root
	if err := validation.CheckDirectory(root); err != nil {
		return err
	}
	outDir := c.Out
	if outDir == "" {
		outDir = filepath.Join(root, mailingDir)
	}
	if err := validation.CheckDirectory(outDir); err != nil {
		return err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logging.RunStarted(ctx, root, "output", outDir)

	idx, err := readSections(root)
	if err != nil {
		return err
	}
	known := idx.Tags()

	info, err := readConfig(root)
	if err != nil {
		return err
	}
	revision, err := info.Revision()
	if err != nil {
		return err
	}
	names := filenames.New(info.FilePrefix())

	var store *historydb.Store
	if c.HistoryDB != "" {
		store, err = historydb.Open(ctx, c.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	older, err := c.previousSnapshot(ctx, root, revision, names, store)
	if err != nil {
		return err
	}

	xmlDir := filepath.Join(root, issuesDir)
	fmt.Fprintf(stdout, "Reading issues from: %s\n", xmlDir)
	loaded, err := issuedir.Load(ctx, xmlDir, idx, issuedir.Options{KeepGoing: c.KeepGoing})
	if err != nil {
		return err
	}

	issues, err := c.transform(ctx, loaded.Issues, idx)
	if err != nil {
		return err
	}
	if added := unregistered(known, idx.Tags()); len(added) > 0 {
		logging.SectionsRegistered(ctx, added)
	}

	newer := diff.FromIssues(issues)
	diffReport, err := diff.Report(older, newer)
	if err != nil {
		return err
	}

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}
	now = now.UTC().Truncate(time.Second)

	gen := report.NewGenerator(info, idx, names, now)
	docs, err := gen.Publish(ctx, outDir, issues, diffReport)
	if err != nil {
		return err
	}
	written := make([]string, 0, len(docs)+1)
	for _, d := range docs {
		written = append(written, d.Name)
	}
	fmt.Fprintf(stdout, "Wrote %d documents for %d issues to %s\n", len(docs), len(issues), outDir)

	if c.Manifest {
		entries, err := manifest.Describe(outDir, written)
		if err != nil {
			return err
		}
		m := &manifest.Manifest{
			RunID:     runID,
			Revision:  revision,
			CreatedAt: now.Format(time.RFC3339),
			Documents: entries,
		}
		if err := manifest.Write(filepath.Join(outDir, manifest.FileName), m); err != nil {
			return err
		}
		written = append(written, manifest.FileName)
		fmt.Fprintf(stdout, "Manifest: %s\n", filepath.Join(outDir, manifest.FileName))
	}

	if store != nil {
		run, err := store.Save(ctx, revision, newer, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved run %s (%s) to %s\n", run.ID, run.Revision, store.Path())
	}

	if c.Archive != "" {
		base := strings.TrimSuffix(filepath.Base(c.Archive), ".tar.xz")
		if err := archive.Create(c.Archive, outDir, base, written, now); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Archive: %s\n", c.Archive)
	}
	return nil
}

// previousSnapshot reads the issue states of the last mailing. An archive
// takes precedence over the history database, and the database over the
// old table of contents kept in meta-data/. Runs saved for revision itself
// are ignored so that a mailing can be published again.
func (c *ListsCmd) previousSnapshot(ctx context.Context, root, revision string, names filenames.Names, store *historydb.Store) (diff.Snapshot, error) {
	if c.OldArchive != "" {
		data, err := archive.ReadFile(c.OldArchive, names.TOC)
		if err != nil {
			return nil, err
		}
		return readSnapshot(c.OldArchive+":"+names.TOC, data)
	}

	if store != nil {
		run, snap, err := store.Previous(ctx, revision)
		switch {
		case err == nil:
			logging.InfoContext(ctx, "previous_run", "id", run.ID, "revision", run.Revision, "issues", run.Issues)
			return snap, nil
		case !errors.Is(err, historydb.ErrNoRuns):
			return nil, err
		}
	}

	path := filepath.Join(root, metaDataDir, names.OldTOC)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file %s: %w", path, err)
	}
	return readSnapshot(path, data)
}

// readSnapshot parses a table of contents. from names the document and
// must end in .html.
func readSnapshot(from string, data []byte) (diff.Snapshot, error) {
	if _, err := validation.ValidateFileType(bytes.NewReader(data), from); err != nil {
		return nil, fmt.Errorf("%s: %w", from, err)
	}
	snap, err := diff.ReadTOC(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", from, err)
	}
	return snap, nil
}

// transform rewrites the text of every issue. With KeepGoing the issues
// that fail are logged and published with their raw text escaped, so that
// references to them still resolve.
func (c *ListsCmd) transform(ctx context.Context, issues []issue.Issue, idx *section.Index) ([]issue.Issue, error) {
	engine, err := markup.NewEngine(issues, idx)
	if err != nil {
		return nil, err
	}
	policy := markup.AbortOnError
	if c.KeepGoing {
		policy = markup.SkipOnError
	}
	skipped, err := engine.TransformAll(policy)
	if policy == markup.AbortOnError && err != nil {
		return nil, err
	}
	if len(skipped) == 0 {
		return engine.Issues(), nil
	}

	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	out := engine.Issues()
	for i, num := range skipped {
		cause := err
		if i < len(errs) {
			cause = errs[i]
		}
		logging.IssueSkipped(ctx, num, cause)
		if pos, ok := issue.Search(out, num); ok {
			unrendered(&out[pos], cause)
		}
	}
	return out, nil
}

// unrendered replaces the text of an issue that failed to transform with a
// notice and its escaped source.
func unrendered(is *issue.Issue, cause error) {
	is.Text = "<p><i>[This issue could not be rendered: " + html.EscapeString(cause.Error()) + "]</i></p>\n" +
		"<pre>" + html.EscapeString(is.Text) + "</pre>\n"
	if is.Resolution != "" {
		is.Resolution = "<pre>" + html.EscapeString(is.Resolution) + "</pre>\n"
	}
}

// unregistered returns the tags of after that are missing from before.
func unregistered(before, after []string) []string {
	var added []string
	for _, tag := range after {
		if !slices.Contains(before, tag) {
			added = append(added, tag)
		}
	}
	return added
}
