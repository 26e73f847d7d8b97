// zwctl - Z-Wave Controller Core CLI
//
// A noun-group CLI for operating a zwcore Controller: node inclusion and
// exclusion, network healing, association management, and registry
// inspection.
//
// Write commands are dry-run by default; pass -x to execute.
//
// Examples:
//
//	zwctl node list
//	zwctl node show 5
//	zwctl include start -x
//	zwctl include stop -x
//	zwctl heal network -x
//	zwctl heal status
//	zwctl assoc list 5
//	zwctl assoc add 5 1 --target 1 -x
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/zwave-network/zwcore/pkg/zwcore"
	"github.com/zwave-network/zwcore/pkg/zwcore/cliutil"
	"github.com/zwave-network/zwcore/pkg/zwcore/config"
	"github.com/zwave-network/zwcore/pkg/zwcore/logging"
)

// App holds CLI state shared across all commands.
type App struct {
	settingsPath string
	executeMode  bool
	jsonOutput   bool
	verbose      bool

	settings   *config.Settings
	controller *zwcore.Controller
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cliutil.Red(err.Error()))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "zwctl",
	Short:             "Z-Wave Controller Core CLI",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isHelpOrVersion(cmd) {
			return nil
		}

		if app.verbose {
			_ = logging.SetLevel("debug")
		} else {
			_ = logging.SetLevel("warn")
		}

		path := app.settingsPath
		if path == "" {
			path = config.DefaultSettingsPath()
		}
		settings, err := config.LoadFrom(path)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		app.settings = settings

		t := newDevTransport(0x00112233, 1)

		ctrl, err := zwcore.New(context.Background(), settings, t, prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("initializing controller: %w", err)
		}
		app.controller = ctrl

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.controller == nil {
			return nil
		}
		return app.controller.SaveCache()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&app.settingsPath, "settings", "", "Path to settings file")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose logging")

	for _, cmd := range []*cobra.Command{includeCmd, excludeCmd, healCmd, assocCmd} {
		addWriteFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{nodeCmd, assocCmd} {
		addOutputFlags(cmd)
	}

	rootCmd.AddCommand(includeCmd, excludeCmd, healCmd, assocCmd, nodeCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("zwctl dev build")
	},
}

// isHelpOrVersion checks whether cmd (or any ancestor) is help/version, which
// skip controller initialization.
func isHelpOrVersion(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "version" {
			return true
		}
	}
	return false
}

// addWriteFlags registers -x/--execute as a persistent flag on a noun-group
// parent command so every subcommand inherits it.
func addWriteFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&app.executeMode, "execute", "x", false, "Execute the change (default is dry-run)")
}

// addOutputFlags registers --json as a persistent flag.
func addOutputFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "JSON output")
}

func printDryRunNotice() {
	if !app.executeMode {
		fmt.Println("\n" + cliutil.Yellow("DRY-RUN: no changes applied. Use -x to execute."))
	}
}
