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

var assocCmd = &cobra.Command{
	Use:   "assoc",
	Short: "Manage node association groups",
}

func init() {
	assocAddCmd.Flags().Uint8("target", 0, "Destination node id")
	assocAddCmd.Flags().Int("endpoint", -1, "Destination endpoint (multi-channel association)")
	_ = assocAddCmd.MarkFlagRequired("target")

	assocRemoveCmd.Flags().Uint8("target", 0, "Destination node id")
	assocRemoveCmd.Flags().Int("endpoint", -1, "Destination endpoint (multi-channel association)")
	_ = assocRemoveCmd.MarkFlagRequired("target")

	assocCmd.AddCommand(assocGroupsCmd, assocListCmd, assocAddCmd, assocRemoveCmd)
}

var assocGroupsCmd = &cobra.Command{
	Use:   "groups <node-id>",
	Short: "List a node's association groups and their metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		groups, err := app.controller.Association.GetAssociationGroups(context.Background(), id)
		if err != nil {
			return err
		}
		t := cliutil.NewTable("GROUP", "LABEL", "MAX NODES", "LIFELINE", "MULTI CHANNEL")
		for i, g := range groups {
			t.Row(strconv.Itoa(i+1), g.Label, strconv.Itoa(int(g.MaxNodes)), yesNo(g.IsLifeline), yesNo(g.MultiChannel))
		}
		t.Flush()
		return nil
	},
}

var assocListCmd = &cobra.Command{
	Use:   "list <node-id>",
	Short: "List a node's current association destinations by group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		byGroup, err := app.controller.Association.GetAssociations(context.Background(), id)
		if err != nil {
			return err
		}
		groupIDs := make([]int, 0, len(byGroup))
		for g := range byGroup {
			groupIDs = append(groupIDs, int(g))
		}
		sort.Ints(groupIDs)

		t := cliutil.NewTable("GROUP", "DESTINATION")
		for _, g := range groupIDs {
			dests := byGroup[uint8(g)]
			if len(dests) == 0 {
				t.Row(strconv.Itoa(g), cliutil.Dim("(none)"))
				continue
			}
			for _, d := range dests {
				t.Row(strconv.Itoa(g), formatAssociation(d))
			}
		}
		t.Flush()
		return nil
	},
}

var assocAddCmd = &cobra.Command{
	Use:   "add <node-id> <group-id>",
	Short: "Add a destination to an association group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, groupID, err := parseNodeAndGroup(args)
		if err != nil {
			return err
		}
		target, err := targetFromFlags(cmd)
		if err != nil {
			return err
		}
		if !app.executeMode {
			fmt.Printf(cliutil.Bold("Would add %s to node %d group %d.\n"), formatAssociation(target), nodeID, groupID)
			printDryRunNotice()
			return nil
		}
		if err := app.controller.Association.AddAssociations(context.Background(), nodeID, groupID, []core.Association{target}); err != nil {
			return err
		}
		fmt.Println(cliutil.Green("Association added."))
		return nil
	},
}

var assocRemoveCmd = &cobra.Command{
	Use:   "remove <node-id> <group-id>",
	Short: "Remove a destination from an association group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, groupID, err := parseNodeAndGroup(args)
		if err != nil {
			return err
		}
		target, err := targetFromFlags(cmd)
		if err != nil {
			return err
		}
		if !app.executeMode {
			fmt.Printf(cliutil.Bold("Would remove %s from node %d group %d.\n"), formatAssociation(target), nodeID, groupID)
			printDryRunNotice()
			return nil
		}
		if err := app.controller.Association.RemoveAssociations(context.Background(), nodeID, groupID, []core.Association{target}); err != nil {
			return err
		}
		fmt.Println(cliutil.Green("Association removed."))
		return nil
	},
}

func parseNodeAndGroup(args []string) (nodeID, groupID uint8, err error) {
	nodeID, err = parseNodeID(args[0])
	if err != nil {
		return 0, 0, err
	}
	g, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid group id %q: %w", args[1], err)
	}
	return nodeID, uint8(g), nil
}

func targetFromFlags(cmd *cobra.Command) (core.Association, error) {
	target, err := cmd.Flags().GetUint8("target")
	if err != nil {
		return core.Association{}, err
	}
	endpoint, err := cmd.Flags().GetInt("endpoint")
	if err != nil {
		return core.Association{}, err
	}
	a := core.Association{NodeID: target}
	if endpoint >= 0 {
		e := uint8(endpoint)
		a.Endpoint = &e
	}
	return a, nil
}

func formatAssociation(a core.Association) string {
	if a.Endpoint == nil {
		return strconv.Itoa(int(a.NodeID))
	}
	return fmt.Sprintf("%d:%d", a.NodeID, *a.Endpoint)
}
