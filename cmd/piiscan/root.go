package piiscan

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/config"
	"github.com/redactyl/piiscan/internal/logging"
)

var (
	flagJSON      bool
	flagSARIF     bool
	flagWorkers   int
	flagNoColor   bool
	flagLanguage  string
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	version = "0.1.0"

	// fileCfg is the merged configuration, loaded before every command runs.
	fileCfg config.FileConfig
	logger  = slog.Default()
)

// rootCmd is the base Cobra command for the piiscan CLI.
var rootCmd = &cobra.Command{
	Use:   "piiscan",
	Short: "Find personally identifiable information in text and files",
	Long: "piiscan runs a catalog of recognizers over text, merges their findings and reports PII entities " +
		"with confidence scores. It analyzes single texts, scans directory trees and git changes, " +
		"anonymizes text and serves the same analysis over HTTP.",
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// exitError carries a non-zero exit status without printing an error.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the piiscan CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "worker count (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVarP(&flagLanguage, "language", "l", "", "analysis language (default from config, else en)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file layered over local and global config")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text|json")
}

// setup loads configuration and installs the logger. Logs go to stderr so
// stdout stays machine-readable.
func setup(cmd *cobra.Command, _ []string) error {
	fc, err := config.Load(".")
	if err != nil {
		return err
	}
	if flagConfig != "" {
		explicit, err := config.LoadFile(flagConfig)
		if err != nil {
			return err
		}
		fc = config.Merge(fc, explicit)
	}
	fileCfg = fc
	logger = logging.Init(logging.Options{
		Level:  pickString(flagLogLevel, fc.LogLevel, "info"),
		Format: logging.Format(pickString(flagLogFormat, fc.LogFormat, string(logging.FormatText))),
		Output: cmd.ErrOrStderr(),
	})
	return nil
}
