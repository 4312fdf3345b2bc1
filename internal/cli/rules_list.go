package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"entrascan/internal/flags"
	"entrascan/internal/rulepack"
)

var rulesListQuiet bool
var rulesProvider string
var rulesLevel int
var rulesDir string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect rule packs",
	Long: `Inspect the rule packs bundled with this build.

Rules are evaluated during audits (see "entrascan audit --help").

Examples:
  # List the level 1 rules for Entra ID
  entrascan rules list

  # List the stricter level 2 pack
  entrascan rules list --level 2
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules in a pack",
	Long: `List the rules in the pack for a provider and compliance level.

Rules print in pack order.

Examples:
  entrascan rules list
  entrascan rules list --provider entra --level 2
  entrascan rules list -q
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pack, err := loadRulesPack()
		if err != nil {
			return err
		}
		for _, r := range pack.Rules {
			if rulesListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			} else {
				printRule(cmd.OutOrStdout(), r)
			}
		}
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show [rule-id]",
	Short: "Show details of a specific rule",
	Long: `Show details of a specific rule by its ID.

Examples:
  entrascan rules show CIS-ENTRA-1.1
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pack, err := loadRulesPack()
		if err != nil {
			return err
		}
		for _, r := range pack.Rules {
			if r.ID == args[0] {
				printRule(cmd.OutOrStdout(), r)
				return nil
			}
		}
		return fmt.Errorf("rule not found in %s level %d pack: %s", pack.Provider, pack.Level, args[0])
	},
}

func loadRulesPack() (*rulepack.Pack, error) {
	if rulesDir != "" {
		return rulepack.LoadDir(rulesDir, rulesProvider, rulesLevel)
	}
	return rulepack.Load(rulesProvider, rulesLevel)
}

func printRule(w io.Writer, r rulepack.Rule) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "RULE: %s\n", r.ID)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "%s [%s]\n", r.Title, r.Severity)
	if r.Description != "" {
		fmt.Fprintln(w, r.Description)
	}
	if r.Source.Module != "" {
		fmt.Fprintf(w, "Module:      %s\n", r.Source.Module)
	}
	if r.Source.Path != "" {
		fmt.Fprintf(w, "Path:        %s\n", r.Source.Path)
	}
	fmt.Fprintf(w, "Check:       %s\n", r.Test.Op)
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(r.Tags, ", "))
	}
	if r.Remediation != "" {
		fmt.Fprintf(w, "Remediation: %s\n", r.Remediation)
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.PersistentFlags().StringVar(&rulesProvider, flags.FlagProvider, "entra", "Provider pack to inspect")
	rulesCmd.PersistentFlags().IntVar(&rulesLevel, flags.FlagLevel, 1, "Compliance level of the pack")
	rulesCmd.PersistentFlags().StringVar(&rulesDir, flags.FlagRulesDir, "", "Load rule packs from this directory instead of the embedded ones")
	rulesListCmd.Flags().BoolVarP(&rulesListQuiet, "quiet", "q", false, "Only print rule IDs")
}
