package piiscan

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/batch"
	"github.com/redactyl/piiscan/internal/cache"
	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/tui"
	"github.com/redactyl/piiscan/internal/types"
)

var flagFresh bool

func init() {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse findings interactively",
		Long: "Open an interactive browser over the last scan of --path (or a fresh scan when none exists). " +
			"Findings can be filtered, baselined, ignored and rescanned from the browser.",
		RunE: runView,
	}
	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().StringVar(&flagBaseline, "baseline", report.DefaultBaselinePath, "baseline file")
	cmd.Flags().BoolVar(&flagFresh, "fresh", false, "scan now instead of loading the last results")
	cmd.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "disable incremental scan cache")
	rootCmd.AddCommand(cmd)
}

func runView(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(fileCfg)
	if err != nil {
		return err
	}
	cfg := scanConfig(cmd, abs, rt)
	rescan := func() ([]types.FileFinding, error) {
		res, err := batch.Scan(cmd.Context(), rt.analyzer, cfg)
		if err != nil {
			return nil, err
		}
		if err := cache.SaveResults(abs, res.Findings, res.FilesScanned+res.FilesCached); err != nil {
			logger.Debug("failed to save scan results", "err", err)
		}
		return res.Findings, nil
	}

	var (
		findings []types.FileFinding
		stamp    time.Time
	)
	if last, err := cache.LoadResults(abs); err == nil && !flagFresh {
		findings, stamp = last.Findings, last.Timestamp
	} else if findings, err = rescan(); err != nil {
		return err
	}
	return tui.Run(findings, tui.Options{
		Root:         abs,
		BaselinePath: baselinePath(abs),
		Rescan:       rescan,
		Timestamp:    stamp,
	})
}
