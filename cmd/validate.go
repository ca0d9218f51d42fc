// =============================================================================
// Sales Reconciliation Engine - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   salesrecon validate
//
// Loads the main configuration and every source profile, applies each
// profile's overrides and reports the first problem found. Nothing is read
// from the input directory.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/engine"
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and source profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := engine.OptionsFromConfig(cfg.Engine); err != nil {
			return err
		}
		fmt.Fprintf(out, "Main configuration OK (%s)\n", cfgFile)

		profiles, err := config.LoadSourceProfiles(cfg.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load source profiles: %w", err)
		}

		for _, p := range profiles {
			if err := config.ValidateInput(p.ApplyInput(cfg.Input)); err != nil {
				return fmt.Errorf("profile %s: %w", p.Key(), err)
			}
			engineCfg := p.ApplyEngine(cfg.Engine)
			if err := config.ValidateEngine(engineCfg); err != nil {
				return fmt.Errorf("profile %s: %w", p.Key(), err)
			}
			if _, err := engine.OptionsFromConfig(engineCfg); err != nil {
				return fmt.Errorf("profile %s: %w", p.Key(), err)
			}
			fmt.Fprintf(out, "Profile %-16s OK (%s)\n", p.Key(), p.Path())
		}

		fmt.Fprintf(out, "%d profile(s) validated\n", len(profiles))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
