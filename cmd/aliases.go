// =============================================================================
// Sales Reconciliation Engine - Aliases Command
// =============================================================================
//
// COMMAND USAGE:
//   salesrecon aliases [--profile CODE]
//
// Prints the column labels accepted for each canonical field, in priority
// order, after configuration and profile aliases are merged.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/engine"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

var aliasesProfile string

// aliasesCmd represents the 'aliases' command.
var aliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "Print the effective column alias table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		engineCfg := cfg.Engine
		if aliasesProfile != "" {
			profiles, err := config.LoadSourceProfiles(cfg.ProfilesDir)
			if err != nil {
				return fmt.Errorf("failed to load source profiles: %w", err)
			}
			var found *config.SourceProfile
			for _, p := range profiles {
				if p.Key() == aliasesProfile {
					found = p
					break
				}
			}
			if found == nil {
				return fmt.Errorf("profile %q not found in %s", aliasesProfile, cfg.ProfilesDir)
			}
			engineCfg = found.ApplyEngine(engineCfg)
		}

		opts, err := engine.OptionsFromConfig(engineCfg)
		if err != nil {
			return err
		}
		printAliases(cmd.OutOrStdout(), engine.New(opts, nil), opts.Required)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aliasesCmd)
	aliasesCmd.Flags().StringVar(&aliasesProfile, "profile", "", "Merge the aliases of this source profile")
}

func printAliases(w io.Writer, eng *engine.Engine, required []types.Field) {
	isRequired := make(map[types.Field]bool, len(required))
	for _, f := range required {
		isRequired[f] = true
	}

	table := eng.Aliases()
	for _, field := range table.Fields() {
		marker := " "
		if isRequired[field] {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-30s %s\n", marker, field, strings.Join(table[field], " | "))
	}
	fmt.Fprintln(w, "\n* required")
}
