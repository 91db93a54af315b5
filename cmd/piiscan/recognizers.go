package piiscan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/report"
)

type recognizerInfo struct {
	Name      string   `json:"name"`
	Entities  []string `json:"supported_entities"`
	Languages []string `json:"supported_languages"`
}

func init() {
	recs := &cobra.Command{
		Use:   "recognizers",
		Short: "List recognizers serving a language",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(fileCfg)
			if err != nil {
				return err
			}
			list := rt.analyzer.Recognizers(flagLanguage)
			if flagJSON {
				out := make([]recognizerInfo, 0, len(list))
				for _, r := range list {
					out = append(out, recognizerInfo{Name: r.Name(), Entities: r.SupportedEntities(), Languages: r.SupportedLanguages()})
				}
				return report.WriteJSON(cmd.OutOrStdout(), out)
			}
			return report.PrintRecognizers(cmd.OutOrStdout(), list)
		},
	}

	entities := &cobra.Command{
		Use:   "entities",
		Short: "List entity types supported for a language",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(fileCfg)
			if err != nil {
				return err
			}
			list := rt.analyzer.SupportedEntities(flagLanguage)
			if flagJSON {
				if list == nil {
					list = []string{}
				}
				return report.WriteJSON(cmd.OutOrStdout(), list)
			}
			for _, e := range list {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
	rootCmd.AddCommand(recs, entities)
}
