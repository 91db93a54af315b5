package piiscan

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/audit"
	"github.com/redactyl/piiscan/internal/batch"
	"github.com/redactyl/piiscan/internal/cache"
	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/git"
	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/types"
	"github.com/redactyl/piiscan/internal/update"
)

var (
	flagPath            string
	flagStaged          bool
	flagHistory         int
	flagBase            string
	flagInclude         string
	flagExclude         string
	flagMaxBytes        int64
	flagNoCache         bool
	flagDefaultExcludes bool
	flagTable           bool
	flagBaseline        string
	flagFailOnScore     float64
	flagLast            bool
	flagNoUpdateCheck   bool
	flagUploadURL       string
	flagUploadToken     string
	flagNoUploadMeta    bool
	// archive scanning toggles and limits
	flagArchives        bool
	flagMaxArchiveBytes int64
	flagMaxEntries      int
	flagMaxDepth        int
	flagScanTimeBudget  time.Duration
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan files for PII",
		Long: "Walk a directory (or staged changes, a branch diff or recent history), analyze every eligible text " +
			"file and report findings with path, line and column.",
		RunE: runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().BoolVar(&flagStaged, "staged", false, "scan staged changes")
	cmd.Flags().IntVar(&flagHistory, "history", 0, "scan last N commits (0=off)")
	cmd.Flags().StringVar(&flagBase, "base", "", "scan lines added since base branch (e.g. main)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip files larger than this (default 1MiB)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "disable incremental scan cache")
	cmd.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list (node_modules, dist, images, etc.)")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().BoolVar(&flagTable, "table", false, "output as a bordered table (default)")
	cmd.Flags().BoolVar(&flagShowMatch, "show-match", false, "print matched text unmasked")
	cmd.Flags().StringVar(&flagBaseline, "baseline", report.DefaultBaselinePath, "baseline file; findings recorded there are not reported")
	cmd.Flags().Float64Var(&flagFailOnScore, "fail-on-score", 0.5, "exit 1 when a reported finding scores at least this (0 disables)")
	cmd.Flags().BoolVar(&flagLast, "last", false, "print the results of the previous scan without scanning")
	cmd.Flags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable update check")
	cmd.Flags().StringVar(&flagUploadURL, "upload", "", "POST findings (JSON) to this URL after scan")
	cmd.Flags().StringVar(&flagUploadToken, "upload-token", "", "Bearer token for upload auth")
	cmd.Flags().BoolVar(&flagNoUploadMeta, "no-upload-metadata", false, "do not include repo/commit/branch in upload envelope")
	addAnalysisFlags(cmd)

	limits := batch.DefaultArchiveLimits()
	cmd.Flags().BoolVar(&flagArchives, "archives", false, "also scan text entries inside archives (zip/tar/gz)")
	cmd.Flags().Int64Var(&flagMaxArchiveBytes, "max-archive-bytes", limits.MaxBytes, "max decompressed bytes per archive before aborting")
	cmd.Flags().IntVar(&flagMaxEntries, "max-entries", limits.MaxEntries, "max entries per archive before aborting")
	cmd.Flags().IntVar(&flagMaxDepth, "max-depth", limits.MaxDepth, "max recursion depth for nested archives")
	cmd.Flags().DurationVar(&flagScanTimeBudget, "scan-time-budget", limits.TimeBudget, "time budget per archive (e.g., 10s)")
}

// scanConfig resolves batch settings: CLI > config > defaults.
func scanConfig(cmd *cobra.Command, abs string, rt *runtime) batch.Config {
	return batch.Config{
		Root:            abs,
		IncludeGlobs:    pickString(flagInclude, fileCfg.Include, ""),
		ExcludeGlobs:    pickString(flagExclude, fileCfg.Exclude, ""),
		MaxBytes:        pickInt64(flagMaxBytes, fileCfg.MaxBytes, 1<<20),
		Workers:         pickInt(flagWorkers, fileCfg.Workers),
		DefaultExcludes: pickBool(flagDefaultExcludes, cmd.Flags().Changed("default-excludes"), fileCfg.DefaultExcludes),
		NoCache:         pickBool(flagNoCache, cmd.Flags().Changed("no-cache"), fileCfg.NoCache),
		Staged:          flagStaged,
		BaseBranch:      flagBase,
		HistoryCommits:  flagHistory,
		Archives:        flagArchives,
		ArchiveLimits: batch.ArchiveLimits{
			MaxBytes:   flagMaxArchiveBytes,
			MaxEntries: flagMaxEntries,
			MaxDepth:   flagMaxDepth,
			TimeBudget: flagScanTimeBudget,
		},
		Request:     analysisRequest(cmd),
		Fingerprint: rt.fingerprint,
	}
}

func runScan(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return err
	}
	if flagLast {
		return printLast(cmd, abs)
	}
	rt, err := buildRuntime(fileCfg)
	if err != nil {
		return err
	}
	cfg := scanConfig(cmd, abs, rt)
	machine := flagJSON || flagSARIF
	stderr := cmd.ErrOrStderr()

	if !machine {
		if !flagNoUpdateCheck {
			if latest, newer, _ := update.Check(version, false); newer && latest != "" {
				fmt.Fprintf(stderr, "(new version available: v%s)  run 'piiscan update' to upgrade\n", latest)
			}
		}
		fmt.Fprintf(stderr, "Scanning %s with %d recognizers...\n", abs, len(rt.analyzer.Recognizers("")))
	}

	// Simple textual progress bar for the working tree walk.
	var total int
	if !machine && !cfg.Staged && cfg.BaseBranch == "" && cfg.HistoryCommits == 0 {
		total, _ = batch.CountTargets(cmd.Context(), cfg)
	}
	progressed := 0
	if total > 0 {
		cfg.Progress = func() {
			progressed++
			if progressed%10 == 0 || progressed == total {
				pct := float64(progressed) / float64(total) * 100
				fmt.Fprintf(stderr, "\r[%d/%d] %.0f%%", progressed, total, pct)
			}
		}
	}
	res, err := batch.Scan(cmd.Context(), rt.analyzer, cfg)
	if total > 0 {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		if errors.Is(err, errs.ErrUnsupportedLanguage) || errors.Is(err, errs.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("scan error: %w", err)
	}
	for _, fe := range res.Errors {
		fmt.Fprintln(stderr, "warning:", fe.Error())
	}
	if err := cache.SaveResults(abs, res.Findings, res.FilesScanned+res.FilesCached); err != nil {
		logger.Debug("failed to save scan results", "err", err)
	}

	base, _ := report.LoadBaseline(baselinePath(abs))
	newFindings := report.FilterNewFindings(res.Findings, base)
	if newFindings == nil {
		newFindings = []types.FileFinding{}
	}

	opts := report.PrintOptions{
		NoColor:      !colorEnabled(),
		Duration:     res.Duration,
		FilesScanned: res.FilesScanned,
		FilesCached:  res.FilesCached,
		ShowMatch:    flagShowMatch,
	}
	if err := writeFindings(cmd, abs, newFindings, opts); err != nil {
		return err
	}

	rec := audit.NewRecord(abs, res.Findings, newFindings, res.FilesScanned+res.FilesCached, res.Duration, baselinePath(abs))
	if err := audit.New(abs).Append(rec); err != nil {
		logger.Debug("failed to write audit record", "err", err)
	}

	// Upload failures never fail the scan.
	if flagUploadURL != "" {
		if err := uploadFindings(cmd.Context(), abs, flagUploadURL, flagUploadToken, flagNoUploadMeta, newFindings); err != nil {
			fmt.Fprintln(stderr, "upload warning:", err)
		}
	}

	if report.ShouldFail(newFindings, flagFailOnScore) {
		return exitError{code: 1}
	}
	return nil
}

func writeFindings(cmd *cobra.Command, root string, findings []types.FileFinding, opts report.PrintOptions) error {
	out := cmd.OutOrStdout()
	switch {
	case flagSARIF:
		if err := report.WriteSARIF(out, findings, report.SARIFOptions{
			ToolVersion: version,
			Repo:        git.RepoMetadata(cmd.Context(), root),
		}); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
		return nil
	case flagJSON:
		return report.WriteFindings(out, findings)
	case flagText:
		report.PrintText(out, findings, opts)
		return nil
	default:
		return report.PrintTable(out, findings, opts)
	}
}

func printLast(cmd *cobra.Command, root string) error {
	last, err := cache.LoadResults(root)
	if err != nil {
		return fmt.Errorf("no previous scan results for %s: %w", root, err)
	}
	if !flagJSON && !flagSARIF {
		fmt.Fprintf(cmd.ErrOrStderr(), "Results of scan at %s\n", last.Timestamp.Format(time.RFC3339))
	}
	findings := last.Findings
	if findings == nil {
		findings = []types.FileFinding{}
	}
	return writeFindings(cmd, root, findings, report.PrintOptions{
		NoColor:      !colorEnabled(),
		FilesScanned: last.Files,
		ShowMatch:    flagShowMatch,
	})
}

// baselinePath resolves a relative --baseline against the scan root.
func baselinePath(root string) string {
	if filepath.IsAbs(flagBaseline) {
		return flagBaseline
	}
	return filepath.Join(root, flagBaseline)
}
