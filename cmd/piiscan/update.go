package piiscan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/update"
)

var flagCheckOnly bool

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update piiscan to the latest release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if flagCheckOnly {
				latest, newer, err := update.Check(currentVersion(), false)
				if err != nil {
					return err
				}
				if newer {
					fmt.Fprintf(out, "new version available: v%s (current v%s)\n", latest, version)
				} else {
					fmt.Fprintf(out, "piiscan v%s is up to date\n", version)
				}
				return nil
			}
			v, err := selfUpdate()
			if err != nil {
				return fmt.Errorf("self-update: %w", err)
			}
			fmt.Fprintf(out, "updated to v%s\n", v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagCheckOnly, "check", false, "only report whether a newer release exists")
	rootCmd.AddCommand(cmd)
}
