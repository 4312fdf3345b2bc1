package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"entrascan/internal/config"
	"entrascan/internal/modules"
	"entrascan/internal/ui"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Collect raw module data without rule evaluation",
	Long: `Run the audit modules and print their raw payloads as one JSON
document keyed by module ID, without evaluating any rules.

Useful for inspecting what the rule packs see, and for building custom
rule packs against real tenant data.

Exit codes:
	0 = all modules collected
	2 = partial failure (one or more modules errored)
	3 = fatal error (scan did not run)

Examples:
  entrascan scan --tenant-id <tenant>
  entrascan scan --tenant-id <tenant> --modules user_assessment,group_audit
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		os.Exit(runScan(cmd.Context(), cfg))
	},
}

func runScan(ctx context.Context, cfg *config.Config) int {
	ui.Banner(buildVersion)

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	mods, err := modules.Resolve(cfg.Target.Provider, cfg.Target.Modules)
	if err != nil {
		ui.PrintMessage(ui.Error, "%v", err)
		return 3
	}
	if len(mods) == 0 {
		ui.PrintMessage(ui.Error, "provider %s is recognized but not yet supported: no audit modules are available", cfg.Target.Provider)
		return 3
	}

	api, err := buildGraphClient(cfg)
	if err != nil {
		ui.PrintMessage(ui.Error, "%v", err)
		return 3
	}

	runner := modules.NewRunner(api, cfg.Runtime.Concurrency, cfg.Target.SkipModules)
	root, results, err := runner.Run(ctx, mods)
	if err != nil {
		ui.PrintMessage(ui.Error, "scan aborted: %v", err)
		return 3
	}

	out := os.Stdout
	if scanOut != "" {
		f, err := os.Create(scanOut)
		if err != nil {
			ui.PrintMessage(ui.Error, "create output file: %v", err)
			return 3
		}
		defer f.Close()
		out = f
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(root); err != nil {
		ui.PrintMessage(ui.Error, "encode payload: %v", err)
		return 3
	}

	for _, res := range results {
		if res.Err != nil && !res.Skipped() {
			return 2
		}
	}
	return 0
}

var scanOut string

func init() {
	rootCmd.AddCommand(scanCmd)
	addTargetFlags(scanCmd)
	addRuntimeFlags(scanCmd)
	scanCmd.Flags().StringVar(&scanOut, "out", "", "Write the payload document to this path instead of stdout")
}
