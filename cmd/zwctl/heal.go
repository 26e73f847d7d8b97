package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zwave-network/zwcore/pkg/zwcore/cliutil"
	"github.com/zwave-network/zwcore/pkg/zwcore/core"
)

var healCmd = &cobra.Command{
	Use:   "heal",
	Short: "Run network-wide routing heal",
}

func init() {
	healCmd.AddCommand(healNetworkStartCmd, healNetworkStopCmd, healStatusCmd)
}

var healNetworkStartCmd = &cobra.Command{
	Use:   "network",
	Short: "Begin a network-wide heal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.executeMode {
			fmt.Println(cliutil.Bold("Would begin a network heal."))
			printDryRunNotice()
			return nil
		}
		started := app.controller.BeginHealingNetwork(context.Background())
		if !started {
			fmt.Println(cliutil.Yellow("Could not start: inclusion, exclusion, or another heal is active."))
			return nil
		}
		fmt.Println(cliutil.Green("Network heal started. Use 'zwctl heal status' to follow progress."))
		return nil
	},
}

var healNetworkStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop an in-flight network heal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.executeMode {
			fmt.Println(cliutil.Bold("Would stop the network heal."))
			printDryRunNotice()
			return nil
		}
		app.controller.Heal.StopHealingNetwork(app.controller.Transport)
		fmt.Println(cliutil.Green("Heal stop requested."))
		return nil
	},
}

var healStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show heal activity and per-node progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("active: %s\n", yesNo(app.controller.Heal.IsActive()))
		t := cliutil.NewTable("NODE", "HEAL STATUS")
		progress := app.controller.Heal.Progress()
		ids := make([]int, 0, len(progress))
		for id := range progress {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		for _, id := range ids {
			t.Row(strconv.Itoa(id), healStatusString(progress[uint8(id)]))
		}
		t.Flush()
		return nil
	},
}

func healStatusString(s core.HealStatus) string {
	switch s {
	case core.HealDone:
		return cliutil.Green("done")
	case core.HealFailed:
		return cliutil.Red("failed")
	case core.HealSkipped:
		return cliutil.Dim("skipped")
	default:
		return cliutil.Yellow("pending")
	}
}
