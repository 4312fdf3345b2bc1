package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that
	// affect audit behavior, keep the CLI flags in internal/cli in
	// sync.
	Target  Target
	Rules   Rules
	Output  Output
	Runtime Runtime
}

type Target struct {
	// Provider selects the cloud to audit (see --provider).
	// Allowed values: entra, aws, gcp.
	Provider string

	// TenantID is the Entra tenant to audit. Falls back to the
	// ENTRASCAN_TENANT_ID environment variable.
	TenantID string

	// ClientID and ClientSecret select the client-credentials flow.
	// They fall back to ENTRASCAN_CLIENT_ID / ENTRASCAN_CLIENT_SECRET;
	// when absent, the Azure default credential chain is used.
	ClientID     string
	ClientSecret string

	// Modules selects which audit modules to run as a comma-separated
	// ID list (see --modules). Empty means all modules for the
	// provider.
	Modules string

	// SkipModules lists module IDs to skip (see --skip-modules).
	// Values may be provided as repeated flags and/or comma-separated
	// lists.
	SkipModules []string
}

type Rules struct {
	// Level selects the compliance level of the rule pack (see
	// --level). Must be >= 1.
	Level int

	// Dir overrides the embedded rule packs with an on-disk pack
	// directory laid out as <dir>/<provider>/level<N>.json (see
	// --rules-dir).
	Dir string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by finding status (see --console-filter-status).
	// Allowed values: pass, fail.
	ConsoleFilterStatus []string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson, csv, html. If empty, it is
	// inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	// Use with --emit/--out for machine-readable output.
	NoConsole bool

	// Tables prints per-module summary tables after the findings (see --tables).
	Tables bool
}

type Runtime struct {
	// Concurrency controls parallelism for module execution (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout is the global timeout for the run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// FailFast stops the audit on the first module error instead of
	// isolating it (see --fail-fast).
	FailFast bool

	// Verbose enables request-level diagnostics.
	Verbose bool

	// Quiet suppresses informational console chatter, keeping only
	// warnings, errors and sink output (see --quiet).
	Quiet bool

	// NoColor disables ANSI colors in all console output (see
	// --no-color).
	NoColor bool
}

func New() *Config {
	return &Config{
		Target: Target{
			Provider: "entra",
		},
		Rules: Rules{
			Level: 1,
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 4,
			Timeout:     15 * time.Minute,
		},
	}
}

// Providers the CLI accepts. Only entra has modules today; aws and
// gcp are recognized so configs written for upcoming providers parse.
var knownProviders = map[string]bool{"entra": true, "aws": true, "gcp": true}

func (c *Config) Validate() error {
	c.Target.SkipModules = splitCommaList(c.Target.SkipModules)

	c.Target.Provider = normalizeEnumValue(c.Target.Provider)
	if c.Target.Provider == "" {
		c.Target.Provider = "entra"
	}
	if !knownProviders[c.Target.Provider] {
		return fmt.Errorf("unsupported --provider: %s (must be one of: entra, aws, gcp)", c.Target.Provider)
	}

	// Credentials fall back to the environment so secrets stay out of
	// shell history and config files.
	if c.Target.TenantID == "" {
		c.Target.TenantID = os.Getenv("ENTRASCAN_TENANT_ID")
	}
	if c.Target.ClientID == "" {
		c.Target.ClientID = os.Getenv("ENTRASCAN_CLIENT_ID")
	}
	if c.Target.ClientSecret == "" {
		c.Target.ClientSecret = os.Getenv("ENTRASCAN_CLIENT_SECRET")
	}

	if c.Rules.Level < 1 {
		return errors.New("--level must be >= 1")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
	}

	for i, st := range c.Output.ConsoleFilterStatus {
		v := normalizeEnumValue(st)
		if v != "pass" && v != "fail" {
			return fmt.Errorf("unsupported --console-filter-status: %s (must be one of: pass, fail)", st)
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			case ".csv":
				c.Output.OutFormat = "csv"
			case ".html", ".htm":
				c.Output.OutFormat = "html"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else {
			switch c.Output.OutFormat {
			case "json", "ndjson", "csv", "html":
			default:
				return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
			}
		}
	}

	if c.Rules.Dir != "" {
		info, err := os.Stat(c.Rules.Dir)
		if err != nil {
			return fmt.Errorf("--rules-dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("--rules-dir %s is not a directory", c.Rules.Dir)
		}
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
