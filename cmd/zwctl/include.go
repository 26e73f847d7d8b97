package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zwave-network/zwcore/pkg/zwcore/cliutil"
)

var includeCmd = &cobra.Command{
	Use:   "include",
	Short: "Add nodes to the network",
}

func init() {
	includeCmd.PersistentFlags().Bool("non-secure", false, "Include without S0 bootstrap")
	includeCmd.AddCommand(includeStartCmd, includeStopCmd)
}

var includeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin inclusion and wait for the stick to start listening",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.executeMode {
			fmt.Println(cliutil.Bold("Would begin inclusion."))
			printDryRunNotice()
			return nil
		}
		nonSecure, _ := cmd.Flags().GetBool("non-secure")
		ctx := context.Background()
		sig := app.controller.Inclusion.BeginInclusion(ctx, nonSecure)
		fmt.Println("Starting inclusion (Ctrl-C to abort)...")
		ok, err := sig.Wait()
		if err != nil {
			return fmt.Errorf("inclusion failed: %w", err)
		}
		if !ok {
			fmt.Println(cliutil.Yellow("Inclusion did not start."))
			return nil
		}
		fmt.Println(cliutil.Green("Inclusion started; the stick is listening for a node to join."))
		return nil
	},
}

var includeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop an in-flight inclusion",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.executeMode {
			fmt.Println(cliutil.Bold("Would stop inclusion."))
			printDryRunNotice()
			return nil
		}
		stopped := app.controller.Inclusion.StopInclusion(context.Background())
		if !stopped {
			fmt.Println(cliutil.Yellow("No inclusion was active."))
			return nil
		}
		fmt.Println(cliutil.Green("Inclusion stopped."))
		return nil
	},
}
