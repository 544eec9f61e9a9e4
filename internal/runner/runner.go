// Package runner formats a batch of files in parallel and collects a report.
package runner

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"eachfmt/internal/config"
	"eachfmt/internal/diff"
	"eachfmt/internal/engine"
	"eachfmt/internal/logging"
	"eachfmt/internal/workspace"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Mode selects what Run does with each plan.
type Mode string

const (
	ModeWrite Mode = "write" // rewrite files that change
	ModeCheck Mode = "check" // report only
	ModeDiff  Mode = "diff"  // report with a unified diff per changed file
	ModeList  Mode = "list"  // report located tables without formatting output
)

// Options configure a run.
type Options struct {
	Mode     Mode
	Settings config.Settings
	// Concurrency bounds parallel files. Zero means GOMAXPROCS.
	Concurrency int
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path string
	Plan *engine.Plan
	// Output is the formatted content; nil when the file failed.
	Output  []byte
	Diff    *diff.FileDiff
	Written bool
	Err     error
}

// Changed reports whether formatting would alter the file.
func (r FileResult) Changed() bool {
	return r.Plan != nil && !r.Plan.AllFormatted
}

// Report aggregates a run in input order.
type Report struct {
	Files []FileResult
	// AllFormatted is true when every file succeeded and none would change.
	AllFormatted bool
	Duration     time.Duration
}

// Changed returns the results of files that would change.
func (r *Report) Changed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Changed() {
			out = append(out, f)
		}
	}
	return out
}

// Tables counts located tables across all files.
func (r *Report) Tables() int {
	n := 0
	for _, f := range r.Files {
		if f.Plan != nil {
			n += len(f.Plan.Results)
		}
	}
	return n
}

// Run processes files with bounded parallelism. Per-file failures do not stop
// other files; they are returned together as a multierror alongside the
// report. The returned error is ctx.Err() when the run was cancelled.
func Run(ctx context.Context, files []workspace.File, opts Options) (*Report, error) {
	start := time.Now()
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, f := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = FormatFile(egCtx, f.Path, opts)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Files: results, AllFormatted: true, Duration: time.Since(start)}
	var errs *multierror.Error
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			errs = multierror.Append(errs, r.Err)
			failed++
			report.AllFormatted = false
			continue
		}
		report.AllFormatted = report.AllFormatted && !r.Changed()
	}

	logging.Runner("%s: %d file(s), %d table(s), %d changed, %d failed in %s",
		opts.Mode, len(files), report.Tables(), len(report.Changed()), failed, report.Duration)
	return report, errs.ErrorOrNil()
}

// FormatFile reads, plans and, in write mode, rewrites a single file.
func FormatFile(ctx context.Context, path string, opts Options) FileResult {
	res := FileResult{Path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}

	plan, err := engine.FormatSource(ctx, path, content, opts.Settings)
	if err != nil {
		res.Err = err
		return res
	}
	res.Plan = plan

	out, err := plan.Apply(content)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)
		return res
	}
	res.Output = out

	if !res.Changed() {
		return res
	}

	switch opts.Mode {
	case ModeDiff:
		res.Diff = diff.Compute(path, path, string(content), string(out))
	case ModeWrite:
		if err := writeFile(path, out); err != nil {
			res.Err = err
			return res
		}
		res.Written = true
		logging.RunnerDebug("rewrote %s (%d table(s) changed)", path, len(plan.Edits))
	}
	return res
}

// writeFile replaces path's content, keeping its permissions.
func writeFile(path string, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, info.Mode().Perm())
}
