// Command lwg builds the issues-list documents for a committee mailing and
// maintains the issue records they are built from.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/cplusplus/lib-issues-software/core/section"
	"github.com/cplusplus/lib-issues-software/internal/logging"
	"github.com/cplusplus/lib-issues-software/internal/mailing"
	"github.com/cplusplus/lib-issues-software/internal/validation"
)

const version = "1.0.0"

// stdout receives command output. Tests replace it.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for lwg.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`

	Lists      ListsCmd      `cmd:"" help:"Generate the mailing documents from the issue records"`
	ListIssues ListIssuesCmd `cmd:"" name:"list-issues" help:"Print the numbers of the issues with a given status"`
	SetStatus  SetStatusCmd  `cmd:"" name:"set-status" help:"Change the status of one issue record"`
	Sections   SectionsCmd   `cmd:"" help:"Print the section index"`
	Verify     VerifyCmd     `cmd:"" help:"Check published documents against their manifest"`
	Unpack     UnpackCmd     `cmd:"" help:"Extract a mailing archive"`
	History    HistoryCmd    `cmd:"" help:"List the runs saved in a history database"`
	Version    VersionCmd    `cmd:"" help:"Print version information"`
}

// Repository layout below the root directory.
const (
	metaDataDir = "meta-data"
	issuesDir   = "xml"
	mailingDir  = "mailing"
	sectionFile = "section.data"
	configFile  = "config.xml"
)

func setupLogging(level, format string) error {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.InitLogger(l, f)
	return nil
}

// readSections loads the section index of the repository at root.
func readSections(root string) (*section.Index, error) {
	path := filepath.Join(root, metaDataDir, sectionFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open %s at %s: %w", sectionFile, filepath.Join(root, metaDataDir), err)
	}
	defer f.Close()

	idx, err := section.ReadIndex(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return idx, nil
}

// readConfig loads the mailing metadata of the repository at root.
func readConfig(root string) (*mailing.Info, error) {
	path := filepath.Join(root, issuesDir, configFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", path, err)
	}
	defer f.Close()

	info, err := mailing.Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := validation.ValidatePrefix(info.FilePrefix()); err != nil {
		return nil, err
	}
	return info, nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "lwg version %s\n", version)
	return nil
}

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx := kong.Parse(&CLI,
		kong.Name("lwg"),
		kong.Description("Issues list publishing tools"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(runCtx, (*context.Context)(nil)),
	)
	ctx.FatalIfErrorf(setupLogging(CLI.LogLevel, CLI.LogFormat))
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
