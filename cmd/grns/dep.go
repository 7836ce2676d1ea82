package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	GroupID: "tasks",
	Short:   "Manage dependency edges",
}

var depAddCmd = &cobra.Command{
	Use:   "add <child> <parent>",
	Short: "Record that <parent> blocks <child>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := apiClient.AddDependency(rootCtx, &api.DepCreateRequest{
			ChildID:  args[0],
			ParentID: args[1],
		})
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s %s is now blocked by %s\n", ui.RenderPass("✓"), ui.RenderID(args[0]), ui.RenderID(args[1]))
		return nil
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <child> <parent>",
	Short: "Remove a blocking edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.RemoveDependency(rootCtx, args[0], args[1]); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s %s no longer blocked by %s\n", ui.RenderPass("✓"), ui.RenderID(args[0]), ui.RenderID(args[1]))
		return nil
	},
}

var depTreeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Show the dependency tree around a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := url.Values{}
		if direction, _ := cmd.Flags().GetString("direction"); direction != "" {
			values.Set("direction", direction)
		}
		tree, err := apiClient.DependencyTree(rootCtx, args[0], values.Encode())
		if err != nil {
			fatalf("%v", err)
		}
		output(tree, func() {
			fmt.Printf("\n%s\n", ui.RenderID(tree.RootID))
			for _, node := range tree.Nodes {
				arrow := "→" // downstream: tasks this one blocks
				if node.Direction == "up" {
					arrow = "←"
				}
				indent := strings.Repeat("  ", node.Depth)
				fmt.Printf("%s%s %s %s [%s]\n", indent, arrow, ui.RenderID(node.ID), node.Title, ui.RenderStatus(node.Status))
			}
			fmt.Println()
		})
		return nil
	},
}

func init() {
	depTreeCmd.Flags().String("direction", "", "Walk only \"up\" (blockers) or \"down\" (blocked)")
	depCmd.AddCommand(depAddCmd, depRmCmd, depTreeCmd)
	rootCmd.AddCommand(depCmd)
}
