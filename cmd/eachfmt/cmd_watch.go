package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"eachfmt/internal/config"
	"eachfmt/internal/runner"
	"eachfmt/internal/watch"
	"eachfmt/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Format files as they are saved",
	Long: `Watches the given directories (default: the current directory) and formats
test.each tables whenever a file is saved, as long as formatOnSave is enabled.
Changes to the config file are picked up without restarting.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := live.Config()
	m, err := workspace.NewMatcher(cfg.Include, cfg.Exclude)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	out := cmd.OutOrStdout()
	w, err := watch.New(args, live, watch.Options{
		Matcher: m,
		OnResult: func(res runner.FileResult) {
			if res.Written {
				fmt.Fprintln(out, res.Path)
			}
		},
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	logger.Info("watching", zap.Strings("paths", args), zap.Bool("formatOnSave", live.Snapshot().FormatOnSave))

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	return nil
}
