package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zwave-network/zwcore/pkg/zwcore/cliutil"
	"github.com/zwave-network/zwcore/pkg/zwcore/core"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect the node registry",
}

func init() {
	nodeCmd.AddCommand(nodeListCmd, nodeShowCmd)
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes := app.controller.Registry.All()
		t := cliutil.NewTable("ID", "STATUS", "INTERVIEW", "SECURE", "SUC ROUTE")
		for _, n := range nodes {
			t.Row(
				strconv.Itoa(int(n.ID())),
				statusString(n.Status()),
				interviewString(n.InterviewStage()),
				yesNo(n.IsSecure()),
				yesNo(n.HasSUCReturnRoute()),
			)
		}
		t.Flush()
		return nil
	},
}

var nodeShowCmd = &cobra.Command{
	Use:   "show <node-id>",
	Short: "Show a single node's detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		n, err := app.controller.Registry.GetOrThrow(id)
		if err != nil {
			return err
		}
		fmt.Printf("node %d\n", n.ID())
		fmt.Printf("  status:       %s\n", statusString(n.Status()))
		fmt.Printf("  interview:    %s\n", interviewString(n.InterviewStage()))
		fmt.Printf("  secure:       %s\n", yesNo(n.IsSecure()))
		fmt.Printf("  suc route:    %s\n", yesNo(n.HasSUCReturnRoute()))
		dc := n.DeviceClass()
		fmt.Printf("  device class: basic=0x%02x generic=0x%02x specific=0x%02x\n", dc.Basic, dc.Generic, dc.Specific)
		fmt.Printf("  endpoints:    %d\n", n.EndpointCount())
		return nil
	},
}

func parseNodeID(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return uint8(v), nil
}

func statusString(s core.NodeStatus) string {
	switch s {
	case core.NodeStatusAlive:
		return cliutil.Green("alive")
	case core.NodeStatusAsleep:
		return cliutil.Yellow("asleep")
	case core.NodeStatusDead:
		return cliutil.Red("dead")
	default:
		return cliutil.Dim("unknown")
	}
}

func interviewString(s core.InterviewStage) string {
	switch s {
	case core.InterviewStageComplete:
		return "complete"
	case core.InterviewStageNodeInfo:
		return "node-info"
	case core.InterviewStageProtocolInfo:
		return "protocol-info"
	default:
		return "none"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
