package piiscan

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/files"
	"github.com/redactyl/piiscan/internal/ignore"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ignore <pattern>...",
		Short: "Add patterns to .piiscanignore",
		Long: "Append gitignore-style patterns to the .piiscanignore file at --path. " +
			"Existing patterns are not duplicated.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := files.AppendIgnore(flagPath, ignore.FileName, p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", filepath.Join(flagPath, ignore.FileName))
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "scan root holding the ignore file")
	rootCmd.AddCommand(cmd)
}
