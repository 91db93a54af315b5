package piiscan

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/trace"
)

var (
	flagTraceLimit int
	flagTraceID    string
)

func init() {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded decision-process events from trace_file",
		Long:  "Print events recorded by analyze --trace when trace_file is configured, newest first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fileCfg.TraceFile == nil || *fileCfg.TraceFile == "" {
				return errors.New("trace_file is not configured")
			}
			events, err := trace.NewJSONL(*fileCfg.TraceFile).History()
			if err != nil {
				return err
			}
			var out []trace.Event
			for _, ev := range events {
				if flagTraceID != "" && ev.CorrelationID != flagTraceID {
					continue
				}
				out = append(out, ev)
				if flagTraceLimit > 0 && len(out) == flagTraceLimit {
					break
				}
			}
			if flagJSON {
				if out == nil {
					out = []trace.Event{}
				}
				return report.WriteJSON(cmd.OutOrStdout(), out)
			}
			for _, ev := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", ev.Timestamp.Format(time.RFC3339), ev.CorrelationID, ev.Payload)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&flagTraceLimit, "limit", "n", 20, "show at most this many events (0 = all)")
	cmd.Flags().StringVar(&flagTraceID, "correlation-id", "", "only show events with this correlation id")
	rootCmd.AddCommand(cmd)
}
