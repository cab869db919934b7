package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cplusplus/lib-issues-software/internal/archive"
	"github.com/cplusplus/lib-issues-software/internal/historydb"
	"github.com/cplusplus/lib-issues-software/internal/manifest"
	"github.com/cplusplus/lib-issues-software/internal/sqlitedriver"
	"github.com/cplusplus/lib-issues-software/internal/validation"
)

// VerifyCmd checks a directory of published documents against its manifest.
type VerifyCmd struct {
	Dir string `arg:"" help:"Directory holding manifest.json and the documents" type:"existingdir"`
}

func (c *VerifyCmd) Run() error {
	m, err := manifest.Read(filepath.Join(c.Dir, manifest.FileName))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Mailing: %s\n", c.Dir)
	fmt.Fprintf(stdout, "  Revision: %s\n", m.Revision)
	fmt.Fprintf(stdout, "  Run: %s\n", m.RunID)
	fmt.Fprintf(stdout, "  Created: %s\n", m.CreatedAt)
	fmt.Fprintf(stdout, "  Documents: %d\n", len(m.Documents))

	bad, err := manifest.Verify(c.Dir, m)
	for _, name := range bad {
		fmt.Fprintf(stdout, "  [FAIL] %s\n", name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "  [OK] all documents match")
	return nil
}

// UnpackCmd extracts a mailing archive.
type UnpackCmd struct {
	Archive string `arg:"" help:"Mailing archive (.tar.xz or .tar.gz)" type:"existingfile"`
	Dir     string `arg:"" help:"Destination directory" type:"path"`
}

func (c *UnpackCmd) Run() error {
	if err := validation.ValidatePath(c.Dir); err != nil {
		return err
	}
	written, err := archive.Extract(c.Archive, c.Dir)
	if err != nil {
		return fmt.Errorf("failed to unpack %s: %w", c.Archive, err)
	}
	fmt.Fprintf(stdout, "Extracted %d files to %s\n", len(written), c.Dir)
	return nil
}

// HistoryCmd lists the runs of a history database.
type HistoryCmd struct {
	DB string `arg:"" help:"History database" type:"existingfile"`
}

func (c *HistoryCmd) Run(ctx context.Context) error {
	store, err := historydb.Open(ctx, c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	info := sqlitedriver.GetInfo()
	fmt.Fprintf(stdout, "Database: %s (%s, %s)\n", store.Path(), info.Package, info.DriverType)
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s  %-6s  %s  %d issues\n", r.ID, r.Revision, r.CreatedAt.Format(time.RFC3339), r.Issues)
	}
	return nil
}
