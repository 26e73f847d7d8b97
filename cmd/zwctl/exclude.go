package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zwave-network/zwcore/pkg/zwcore/cliutil"
)

var excludeCmd = &cobra.Command{
	Use:   "exclude",
	Short: "Remove nodes from the network",
}

func init() {
	excludeCmd.AddCommand(excludeStartCmd, excludeStopCmd, replaceFailedCmd, removeFailedCmd)
}

var excludeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin exclusion and wait for the stick to start listening",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.executeMode {
			fmt.Println(cliutil.Bold("Would begin exclusion."))
			printDryRunNotice()
			return nil
		}
		sig := app.controller.Inclusion.BeginExclusion(context.Background())
		fmt.Println("Starting exclusion (Ctrl-C to abort)...")
		ok, err := sig.Wait()
		if err != nil {
			return fmt.Errorf("exclusion failed: %w", err)
		}
		if !ok {
			fmt.Println(cliutil.Yellow("Exclusion did not start."))
			return nil
		}
		fmt.Println(cliutil.Green("Exclusion started; the stick is listening for a node to leave."))
		return nil
	},
}

var excludeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop an in-flight exclusion",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.executeMode {
			fmt.Println(cliutil.Bold("Would stop exclusion."))
			printDryRunNotice()
			return nil
		}
		stopped := app.controller.Inclusion.StopExclusion(context.Background())
		if !stopped {
			fmt.Println(cliutil.Yellow("No exclusion was active."))
			return nil
		}
		fmt.Println(cliutil.Green("Exclusion stopped."))
		return nil
	},
}

var replaceFailedCmd = &cobra.Command{
	Use:   "replace-failed <node-id>",
	Short: "Replace a failed node with a newly joining one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		if !app.executeMode {
			fmt.Printf(cliutil.Bold("Would replace failed node %d.\n"), id)
			printDryRunNotice()
			return nil
		}
		sig, err := app.controller.Inclusion.ReplaceFailedNode(context.Background(), id)
		if err != nil {
			return err
		}
		ok, err := sig.Wait()
		if err != nil {
			return fmt.Errorf("replace failed: %w", err)
		}
		if !ok {
			fmt.Println(cliutil.Yellow("Replacement did not start."))
			return nil
		}
		fmt.Println(cliutil.Green("Replacement started; the stick is listening for the new node."))
		return nil
	},
}

var removeFailedCmd = &cobra.Command{
	Use:   "remove-failed <node-id>",
	Short: "Remove a failed node from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		if !app.executeMode {
			fmt.Printf(cliutil.Bold("Would remove failed node %d.\n"), id)
			printDryRunNotice()
			return nil
		}
		if err := app.controller.Inclusion.RemoveFailedNode(context.Background(), id); err != nil {
			return err
		}
		fmt.Println(cliutil.Green("Node removed."))
		return nil
	},
}
