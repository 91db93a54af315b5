package piiscan

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/audit"
	"github.com/redactyl/piiscan/internal/report"
)

var (
	flagHistoryLimit  int
	flagHistoryDelete int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past scans recorded in the audit log",
		RunE:  runHistory,
	}
	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "scanned root")
	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 10, "show at most this many scans (0 = all)")
	cmd.Flags().IntVar(&flagHistoryDelete, "delete", -1, "delete the record at this index (0 = newest)")
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return err
	}
	log := audit.New(abs)
	out := cmd.OutOrStdout()
	if flagHistoryDelete >= 0 {
		if err := log.Delete(flagHistoryDelete); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted record %d\n", flagHistoryDelete)
		return nil
	}
	records, err := log.History()
	if err != nil {
		return err
	}
	if flagHistoryLimit > 0 && len(records) > flagHistoryLimit {
		records = records[:flagHistoryLimit]
	}
	if flagJSON {
		if records == nil {
			records = []audit.ScanRecord{}
		}
		return report.WriteJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No scans recorded")
		return nil
	}
	for i, r := range records {
		fmt.Fprintf(out, "[%d] %s  %d findings (%d new, %d baselined)  %d files  %s\n",
			i, r.Timestamp.Local().Format(time.RFC3339), r.TotalFindings, r.NewFindings,
			r.BaselinedCount, r.FilesScanned, r.Duration)
		if len(r.EntityCounts) > 0 {
			fmt.Fprintf(out, "    %s\n", countsLine(r.EntityCounts))
		}
	}
	return nil
}

func countsLine(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}
