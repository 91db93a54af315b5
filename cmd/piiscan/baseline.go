package piiscan

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/batch"
	"github.com/redactyl/piiscan/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage baselines",
		Long:  "A baseline records accepted findings; later scans only report findings missing from it.",
	}

	update := &cobra.Command{
		Use:   "update",
		Short: "Update baseline from current scan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, err := filepath.Abs(flagPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(fileCfg)
			if err != nil {
				return err
			}
			res, err := batch.Scan(cmd.Context(), rt.analyzer, scanConfig(cmd, abs, rt))
			if err != nil {
				return err
			}
			path := baselinePath(abs)
			if err := report.SaveBaseline(path, res.Findings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline updated: %s (%d findings)\n", path, len(res.Findings))
			return nil
		},
	}
	update.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	update.Flags().StringVar(&flagBaseline, "baseline", report.DefaultBaselinePath, "baseline file")
	update.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list")
	update.Flags().BoolVar(&flagNoCache, "no-cache", false, "disable incremental scan cache")

	rootCmd.AddCommand(cmd)
	cmd.AddCommand(update)
}
