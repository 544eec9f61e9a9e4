package main

import (
	"context"
	"fmt"
	"io"

	"eachfmt/internal/runner"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	formatWrite bool
	formatCheck bool
	formatDiff  bool
)

var formatCmd = &cobra.Command{
	Use:   "format [paths...]",
	Short: "Format test.each tables",
	Long: `Formats every test.each table found under the given files and directories
(default: the current directory).

Without flags the formatted content of each file is printed to stdout.`,
	RunE: runFormat,
}

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Exit with status 1 if any test.each table is not formatted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return check(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func runFormat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case formatCheck:
		return check(ctx, out, args)
	case formatDiff:
		return printDiffs(ctx, out, args)
	case formatWrite:
		return write(ctx, out, args)
	}

	report, err := run(ctx, args, runner.ModeCheck)
	if report != nil {
		for _, f := range report.Files {
			if f.Output != nil {
				out.Write(f.Output)
			}
		}
	}
	return err
}

func run(ctx context.Context, args []string, mode runner.Mode) (*runner.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	files, err := discover(args)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, files, runner.Options{Mode: mode, Settings: live.Snapshot()})
}

func check(ctx context.Context, out io.Writer, args []string) error {
	report, err := run(ctx, args, runner.ModeCheck)
	if report == nil {
		return err
	}

	warn := color.New(color.FgYellow)
	for _, f := range report.Changed() {
		warn.Fprint(out, "[warn] ")
		fmt.Fprintln(out, f.Path)
	}
	if err != nil {
		return err
	}
	if !report.AllFormatted {
		fmt.Fprintf(out, "%d file(s) need formatting\n", len(report.Changed()))
		return errUnformatted
	}
	fmt.Fprintln(out, "all test.each tables are already formatted")
	return nil
}

func printDiffs(ctx context.Context, out io.Writer, args []string) error {
	report, err := run(ctx, args, runner.ModeDiff)
	if report == nil {
		return err
	}
	for _, f := range report.Changed() {
		fmt.Fprint(out, f.Diff.Unified(!color.NoColor))
	}
	return err
}

func write(ctx context.Context, out io.Writer, args []string) error {
	report, err := run(ctx, args, runner.ModeWrite)
	if report == nil {
		return err
	}
	for _, f := range report.Files {
		if f.Written {
			fmt.Fprintln(out, f.Path)
		}
	}
	return err
}
