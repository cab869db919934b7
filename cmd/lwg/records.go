package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/internal/issuedir"
	"github.com/cplusplus/lib-issues-software/internal/validation"
)

// ListIssuesCmd prints the numbers of the issues with a given status.
type ListIssuesCmd struct {
	Status string `arg:"" help:"Status to match exactly, qualifiers included"`
	Root   string `default:"." help:"Repository root" type:"path"`
}

func (c *ListIssuesCmd) Run(ctx context.Context) error {
	if err := validation.CheckDirectory(c.Root); err != nil {
		return err
	}
	idx, err := readSections(c.Root)
	if err != nil {
		return err
	}
	loaded, err := issuedir.Load(ctx, filepath.Join(c.Root, issuesDir), idx, issuedir.Options{})
	if err != nil {
		return err
	}
	for _, is := range loaded.Issues {
		if is.Status == c.Status {
			fmt.Fprintln(stdout, is.Num)
		}
	}
	return nil
}

// SetStatusCmd rewrites the status attribute of one issue record.
type SetStatusCmd struct {
	Num    string `arg:"" help:"Issue number, as spelled in the file name issueNUM.xml"`
	Status string `arg:"" help:"New status; underscores stand for spaces"`
	Root   string `default:"." help:"Repository root" type:"path"`
	DryRun bool   `name:"dry-run" short:"n" help:"Show the change without writing it"`
}

func (c *SetStatusCmd) Run() error {
	if err := validation.CheckDirectory(c.Root); err != nil {
		return err
	}
	num, err := strconv.Atoi(c.Num)
	if err != nil {
		return fmt.Errorf("%w: %q", validation.ErrIssueNumber, c.Num)
	}
	if err := validation.ValidateIssueNumber(num); err != nil {
		return err
	}
	newStatus := strings.ReplaceAll(c.Status, "_", " ")

	path := filepath.Join(c.Root, issuesDir, "issue"+c.Num+".xml")
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("unable to open issue file: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to open issue file: %w", err)
	}
	updated, err := issue.SetStatus(string(raw), path, num, newStatus)
	if err != nil {
		return err
	}

	if c.DryRun {
		fmt.Fprint(stdout, lineDiff(path, string(raw), updated))
		return nil
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("unable to re-open file %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Issue %d: %s\n", num, newStatus)
	return nil
}

// lineDiff renders the changed lines between before and after, prefixed
// with - and +.
func lineDiff(name, before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("--- %s\n+++ %s\n", name, name))
	for _, d := range diffs {
		var mark string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			mark = "-"
		case diffmatchpatch.DiffInsert:
			mark = "+"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(mark + line)
			if !strings.HasSuffix(line, "\n") {
				buf.WriteString("\n")
			}
		}
	}
	return buf.String()
}

// SectionsCmd prints the section index.
type SectionsCmd struct {
	Root string `arg:"" optional:"" default:"." help:"Repository root" type:"path"`
}

func (c *SectionsCmd) Run() error {
	idx, err := readSections(c.Root)
	if err != nil {
		return err
	}
	for _, tag := range idx.Tags() {
		fmt.Fprintln(stdout, idx.Format(tag))
	}
	return nil
}
