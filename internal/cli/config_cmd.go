package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"entrascan/internal/config"
	"entrascan/internal/flags"
	"entrascan/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	Long: `Write a config file capturing the current settings (defaults plus any
flags given on this invocation), so later runs pick them up without
repeating the flags.

The file goes to --config when set, otherwise ~/.entrascan/config.yaml.
Credentials are never written; they stay in the environment.

Examples:
  # Persist the defaults
  entrascan config init

  # Persist a tenant and compliance level for future runs
  entrascan config init --tenant-id <tenant> --level 2
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
		if err := config.SaveFile(cfg, path); err != nil {
			return err
		}
		ui.PrintMessage(ui.Success, "wrote config to %s", path)
		return nil
	},
}

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVar(&cfg.Target.TenantID, flags.FlagTenantID, "", "Tenant to persist in the config file")
	configInitCmd.Flags().IntVar(&cfg.Rules.Level, flags.FlagLevel, cfg.Rules.Level, "Compliance level to persist")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
}
