package piiscan

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/redactyl/piiscan/internal/config"
	"github.com/redactyl/piiscan/internal/files"
)

var (
	cfgPreset          string
	cfgOutput          string
	cfgCommented       bool
	cfgForce           bool
	cfgGitignore       bool
	cfgLanguage        string
	cfgWorkers         int
	cfgMaxBytes        int64
	cfgNoColor         bool
	cfgDefaultExcludes bool
)

// presets map a name to an entity filter and score threshold.
var presets = map[string]struct {
	entities  []string
	threshold float64
}{
	"minimal":  {[]string{"CREDIT_CARD", "US_SSN", "EMAIL_ADDRESS", "PHONE_NUMBER", "IBAN_CODE"}, 0.5},
	"standard": {nil, 0.4},
	"strict":   {nil, 0},
}

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .piiscan.yml",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgPreset, "preset", "standard", "preset: minimal | standard | strict")
	initCmd.Flags().StringVar(&cfgOutput, "output", ".piiscan.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgCommented, "commented", false, "write the fully commented template instead")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&cfgGitignore, "gitignore", false, "add piiscan state files to .gitignore")
	initCmd.Flags().StringVar(&cfgLanguage, "language", "en", "default analysis language")
	initCmd.Flags().IntVar(&cfgWorkers, "workers", 0, "worker count (0=GOMAXPROCS)")
	initCmd.Flags().Int64Var(&cfgMaxBytes, "max-bytes", 1<<20, "skip files larger than this")
	initCmd.Flags().BoolVar(&cfgNoColor, "no-color", false, "disable color output by default")
	initCmd.Flags().BoolVar(&cfgDefaultExcludes, "default-excludes", true, "enable default ignore patterns")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (global, local, --config and environment merged)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := yaml.Marshal(&fileCfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cfgCmd.AddCommand(showCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	}
	var b []byte
	if cfgCommented {
		b = []byte(config.Template)
	} else {
		p, ok := presets[strings.ToLower(cfgPreset)]
		if !ok {
			return fmt.Errorf("unknown preset %q (want minimal, standard or strict)", cfgPreset)
		}
		fc := config.FileConfig{
			Language:        strPtr(cfgLanguage),
			ScoreThreshold:  floatPtr(p.threshold),
			Workers:         intPtr(cfgWorkers),
			Entities:        p.entities,
			MaxBytes:        int64Ptr(cfgMaxBytes),
			NoColor:         boolPtr(cfgNoColor),
			DefaultExcludes: boolPtr(cfgDefaultExcludes),
		}
		var err error
		if b, err = yaml.Marshal(&fc); err != nil {
			return err
		}
	}
	if err := os.WriteFile(cfgOutput, b, 0644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)

	if cfgGitignore {
		for _, p := range files.DefaultStateIgnores() {
			if err := files.AppendIgnore(".", ".gitignore", p); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Updated .gitignore")
	}
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
