package main

import (
	"errors"
	"fmt"
	"os"

	"eachfmt/internal/config"
	"eachfmt/internal/logging"
	"eachfmt/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath     string
	verbose        bool
	characterWidth float64

	// Set up by PersistentPreRunE
	live   *config.Live
	logger *zap.Logger
)

// errUnformatted makes the process exit with status 1 without printing
// anything more.
var errUnformatted = errors.New("some test.each tables are not formatted")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "eachfmt",
	Short: "Align the columns of test.each template tables",
	Long: `eachfmt formats the tagged-template tables passed to test.each, it.each and
describe.each in JavaScript and TypeScript test files, padding every column so
the " | " separators line up.

Non-ASCII characters are measured with --character-width (default 0.5, i.e.
double width) so tables stay aligned in editors using CJK fonts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		width := cmd.Flags().Changed("character-width")
		var err error
		live, err = config.NewLive(configPath, func(c *config.Config) {
			if width {
				c.CharacterWidth = characterWidth
			}
			if verbose {
				c.Logging.Level = "debug"
			}
		})
		if err != nil {
			return err
		}

		cfg := live.Config()
		if err := logging.Initialize(logging.Options{Level: cfg.Logging.Level, JSON: cfg.IsJSONLogging()}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Root()
		logging.Boot("eachfmt %s: config=%s characterWidth=%v", cmd.Name(), configPath, cfg.CharacterWidth)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.FileName, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Float64Var(&characterWidth, "character-width", 0.5, "Width of a non-ASCII character relative to an ASCII one")

	formatCmd.Flags().BoolVarP(&formatWrite, "write", "w", false, "Rewrite files in place")
	formatCmd.Flags().BoolVar(&formatCheck, "check", false, "Report files that would change and exit 1 if any")
	formatCmd.Flags().BoolVarP(&formatDiff, "diff", "d", false, "Print a unified diff of the changes")
	formatCmd.MarkFlagsMutuallyExclusive("write", "check", "diff")

	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errUnformatted) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// discover expands args into files using the loaded include/exclude lists.
func discover(args []string) ([]workspace.File, error) {
	cfg := live.Config()
	m, err := workspace.NewMatcher(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return workspace.Discover(args, m)
}
