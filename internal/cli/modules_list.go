package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"entrascan/internal/flags"
	"entrascan/internal/modules"
)

var modulesListQuiet bool
var modulesProvider string

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect audit modules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available audit modules",
	Long: `List the audit modules registered in this build, sorted by ID.

Examples:
  entrascan modules list
  entrascan modules list -q
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bold := color.New(color.Bold)
		for _, m := range modules.List(modulesProvider) {
			if modulesListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), m.ID())
				continue
			}
			bold.Fprintf(cmd.OutOrStdout(), "%s", m.ID())
			fmt.Fprintf(cmd.OutOrStdout(), " (%s)\n", m.Provider())
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m.Description())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.PersistentFlags().StringVar(&modulesProvider, flags.FlagProvider, "", "Filter modules by provider (empty = all)")
	modulesListCmd.Flags().BoolVarP(&modulesListQuiet, "quiet", "q", false, "Only print module IDs")
}
