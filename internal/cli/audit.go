package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"entrascan/internal/config"
	"entrascan/internal/flags"
	"entrascan/internal/graph"
	"entrascan/internal/modules"
	"entrascan/internal/output"
	"entrascan/internal/ruleeval"
	"entrascan/internal/rulepack"
	"entrascan/internal/ui"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a tenant against a rule pack",
	Long: `Collect identity posture from the tenant and evaluate it against the
rule pack for the selected provider and compliance level.

Authentication (entra):
  entrascan prefers the client-credentials flow when --tenant-id plus
  ENTRASCAN_CLIENT_ID and ENTRASCAN_CLIENT_SECRET are set; otherwise it
  falls back to the Azure default credential chain (az login, managed
  identity, environment variables).

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write JSON, NDJSON, CSV or an HTML report to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --no-console: suppress the console sink (use with --emit/--out)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events
	with a "type" field (run.started, module.started, module.finished,
	finding, run.finished).

Exit codes:
	0 = clean run, every rule passed
	1 = failing rules detected
	2 = partial failure (one or more modules errored)
	3 = fatal error (audit did not run)

Examples:
  # Audit with app credentials from the environment
  export ENTRASCAN_CLIENT_ID="<app id>"
  export ENTRASCAN_CLIENT_SECRET="<secret>"
  entrascan audit --tenant-id <tenant> --level 2

  # Machine-readable stream for automation
  entrascan audit --tenant-id <tenant> --no-console --emit ndjson

  # Standalone HTML report
  entrascan audit --tenant-id <tenant> --out report.html
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		os.Exit(runAudit(cmd.Context(), cfg))
	},
}

func runAudit(ctx context.Context, cfg *config.Config) int {
	ui.Banner(buildVersion)

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	pack, err := loadPack(cfg)
	if err != nil {
		ui.PrintMessage(ui.Error, "%v", err)
		return 3
	}

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

	mgr, err := buildSinks(cfg)
	if err != nil {
		ui.PrintMessage(ui.Error, "%v", err)
		return 3
	}

	exit := runAuditPipeline(ctx, cfg, pack, mods, api, mgr)
	if err := mgr.Close(); err != nil {
		ui.PrintMessage(ui.Error, "flush outputs: %v", err)
		if exit == 0 {
			exit = 3
		}
	}
	return exit
}

func runAuditPipeline(ctx context.Context, cfg *config.Config, pack *rulepack.Pack, mods []modules.Module, api modules.GraphAPI, mgr *output.Manager) int {
	writeEvent(mgr, output.Event{
		Type:     "run.started",
		Provider: cfg.Target.Provider,
		Modules:  len(mods),
		Rules:    len(pack.Rules),
	})

	skip := make(map[string]bool, len(cfg.Target.SkipModules))
	for _, id := range cfg.Target.SkipModules {
		skip[id] = true
	}
	for _, m := range mods {
		if !skip[m.ID()] {
			writeEvent(mgr, output.Event{Type: "module.started", Module: m.ID()})
		}
	}

	runner := modules.NewRunner(api, cfg.Runtime.Concurrency, cfg.Target.SkipModules)
	root, results, err := runner.Run(ctx, mods)
	if err != nil {
		ui.PrintMessage(ui.Error, "audit aborted: %v", err)
		writeEvent(mgr, output.Event{Type: "run.finished", ExitCode: 3, Err: err.Error()})
		return 3
	}

	partial := false
	for _, res := range results {
		if res.Skipped() {
			continue
		}
		ev := output.Event{Type: "module.finished", Module: res.Module.ID()}
		if res.Err != nil {
			partial = true
			ev.Err = res.Err.Error()
			if cfg.Runtime.FailFast {
				ui.PrintMessage(ui.Error, "module %s failed: %v", res.Module.ID(), res.Err)
				writeEvent(mgr, output.Event{Type: "run.finished", ExitCode: 3, Err: res.Err.Error()})
				return 3
			}
		}
		writeEvent(mgr, ev)
	}

	report := ruleeval.Evaluate(root, pack)
	for _, f := range report.Findings {
		if err := mgr.Write(f); err != nil {
			ui.PrintMessage(ui.Error, "write finding: %v", err)
		}
	}

	if cfg.Output.Tables && !cfg.Output.NoConsole {
		renderTables(os.Stdout, mods, root, report.Findings)
	}

	exit := 0
	switch {
	case partial:
		exit = 2
	case report.Counts.Failed > 0:
		exit = 1
	}
	writeEvent(mgr, output.Event{Type: "run.finished", ExitCode: exit})

	ui.PrintMessage(ui.Info, "%d rules evaluated: %d passed, %d failed",
		report.Counts.Total, report.Counts.Passed, report.Counts.Failed)
	return exit
}

func loadPack(cfg *config.Config) (*rulepack.Pack, error) {
	if cfg.Rules.Dir != "" {
		return rulepack.LoadDir(cfg.Rules.Dir, cfg.Target.Provider, cfg.Rules.Level)
	}
	return rulepack.Load(cfg.Target.Provider, cfg.Rules.Level)
}

func buildGraphClient(cfg *config.Config) (*graph.Client, error) {
	creds := graph.Credentials{
		TenantID:     cfg.Target.TenantID,
		ClientID:     cfg.Target.ClientID,
		ClientSecret: cfg.Target.ClientSecret,
	}
	return graph.NewClient(creds, graph.WithVerbose(cfg.Runtime.Verbose))
}

func buildSinks(cfg *config.Config) (*output.Manager, error) {
	mgr := output.NewManager()
	if !cfg.Output.NoConsole {
		if err := mgr.AddSink(output.NewConsoleSink(os.Stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			return nil, err
		}
	}
	if cfg.Output.Out != "" {
		sink, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			return nil, err
		}
		if err := mgr.AddSink(sink); err != nil {
			return nil, err
		}
	}
	for _, format := range cfg.Output.Emit {
		sink, err := output.NewEmitSink(os.Stdout, format)
		if err != nil {
			return nil, err
		}
		if err := mgr.AddSink(sink); err != nil {
			return nil, err
		}
	}
	return mgr, nil
}

func writeEvent(mgr *output.Manager, ev output.Event) {
	if err := mgr.Write(ev); err != nil {
		ui.PrintMessage(ui.Error, "write event: %v", err)
	}
}

// renderTables prints the findings table followed by one summary table
// per module that produced a summary.
func renderTables(w io.Writer, mods []modules.Module, root map[string]any, findings []ruleeval.Finding) {
	if len(findings) > 0 {
		fmt.Fprintln(w)
		output.RenderFindingsTable(w, findings)
	}
	for _, m := range mods {
		payload, _ := root[m.ID()].(map[string]any)
		summary, _ := payload["summary"].(map[string]any)
		if len(summary) == 0 {
			continue
		}
		fmt.Fprintln(w)
		output.RenderSummaryTable(w, m.Title(), summary)
	}
}

func init() {
	rootCmd.AddCommand(auditCmd)
	addTargetFlags(auditCmd)
	addOutputFlags(auditCmd)
	addRuntimeFlags(auditCmd)

	auditCmd.Flags().IntVar(&cfg.Rules.Level, flags.FlagLevel, 1, "Compliance level of the rule pack (default: 1)")
	auditCmd.Flags().StringVar(&cfg.Rules.Dir, flags.FlagRulesDir, "", "Load rule packs from this directory instead of the embedded ones")
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.Target.Provider, flags.FlagProvider, "entra", "Cloud provider to audit: entra|aws|gcp (default: entra)")
	cmd.Flags().StringVar(&cfg.Target.TenantID, flags.FlagTenantID, "", "Tenant to audit (falls back to ENTRASCAN_TENANT_ID)")
	cmd.Flags().StringVar(&cfg.Target.Modules, flags.FlagModules, "", "Modules to run as a comma-separated ID list (empty = all)")
	cmd.Flags().StringSliceVar(&cfg.Target.SkipModules, flags.FlagSkipModules, nil, "Module IDs to skip (repeatable; comma-separated accepted)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	cmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (pass, fail). Comma-separated.")
	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson|csv|html (default: inferred from file extension)")
	cmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	cmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out)")
	cmd.Flags().BoolVar(&cfg.Output.Tables, flags.FlagTables, false, "Print per-module summary tables after the findings")
}

func addRuntimeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent module runs (default: 4)")
	cmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 15m)")
	cmd.Flags().BoolVar(&cfg.Runtime.FailFast, flags.FlagFailFast, false, "Stop on first module error instead of isolating it (default: false)")
}
