package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"entrascan/internal/config"
	"entrascan/internal/flags"
	"entrascan/internal/ui"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfg = config.New()
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "entrascan",
	Short: "Audit cloud identity tenants against declarative rule packs",
	Long: `entrascan collects identity posture from a cloud tenant and evaluates
it against declarative rule packs.

entrascan is read-only: it reports misconfigurations, it never changes
tenant state.

Examples:
	# Show available commands and global flags
	entrascan --help

	# Audit an Entra ID tenant at compliance level 1
	entrascan audit --tenant-id <tenant>

	# Collect raw module data without rule evaluation
	entrascan scan --tenant-id <tenant>

	# List rules and modules
	entrascan rules list
	entrascan modules list

Output:
	By default, commands write human-readable output to stdout.
	Structured output is available via emitter flags (see each command's --help).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetDebug(cfg.Runtime.Verbose)
		ui.SetQuiet(cfg.Runtime.Quiet)
		ui.SetNoColor(cfg.Runtime.NoColor)
		path := cfgFile
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return nil
			}
			path = p
		}
		return config.LoadFile(cfg, path)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every Graph API call and retry decision)")
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Quiet, flags.FlagQuiet, false, "Suppress the banner and informational messages")
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.NoColor, flags.FlagNoColor, false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, flags.FlagConfig, "", "Config file path (default: ~/.entrascan/config.yaml)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
