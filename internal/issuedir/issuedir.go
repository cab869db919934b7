// Package issuedir loads the issue records of an issues directory.
package issuedir

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/section"
	"github.com/cplusplus/lib-issues-software/internal/logging"
	"github.com/cplusplus/lib-issues-software/internal/validation"
)

// ErrDuplicateNumber is returned when two files carry the same issue number.
var ErrDuplicateNumber = errors.New("duplicate issue number")

// Options controls Load.
type Options struct {
	// KeepGoing skips files that fail to parse instead of stopping.
	KeepGoing bool
}

// Result is the outcome of Load.
type Result struct {
	Issues  []issue.Issue // Sorted by number
	Skipped []error       // Parse failures tolerated under KeepGoing
}

// Files returns the issue files of dir in name order: every regular file
// whose name starts with "issue" and ends in ".xml".
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, lwgerrors.NewIO("read", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "issue") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	slices.Sort(files)
	return files, nil
}

// Load parses every issue file of dir, registering section tags in idx.
// The last-modified date of each issue comes from its file.
func Load(ctx context.Context, dir string, idx *section.Index, opts Options) (*Result, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	res := &Result{Issues: make([]issue.Issue, 0, len(files))}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		is, err := readOne(path, idx)
		if err != nil {
			if !opts.KeepGoing {
				return nil, err
			}
			logging.IssueSkipped(ctx, 0, err, "file", path)
			res.Skipped = append(res.Skipped, err)
			continue
		}
		res.Issues = append(res.Issues, *is)
	}

	issue.SortByNumber(res.Issues)
	for i := 1; i < len(res.Issues); i++ {
		if res.Issues[i-1].Num == res.Issues[i].Num {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateNumber, res.Issues[i].Num)
		}
	}
	return res, nil
}

func readOne(path string, idx *section.Index) (*issue.Issue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, lwgerrors.NewIO("stat", path, err)
	}
	if err := validation.CheckFileSize(info.Size()); err != nil {
		return nil, lwgerrors.NewIO("read", path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, lwgerrors.NewIO("read", path, err)
	}
	if _, err := validation.ValidateFileType(bytes.NewReader(raw), path); err != nil {
		return nil, lwgerrors.NewIO("read", path, err)
	}
	return issue.Parse(string(raw), path, info.ModTime(), idx)
}
