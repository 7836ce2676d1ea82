package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/ui"
)

var labelCmd = &cobra.Command{
	Use:     "label",
	GroupID: "tasks",
	Short:   "Manage task labels",
}

var labelAddCmd = &cobra.Command{
	Use:   "add <id> <label>...",
	Short: "Attach labels to a task",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := apiClient.AddLabels(rootCtx, args[0], args[1:])
		if err != nil {
			fatalf("%v", err)
		}
		output(task, func() {
			fmt.Printf("%s %s labels: %s\n", ui.RenderPass("✓"), ui.RenderID(task.ID), ui.RenderLabels(task.Labels))
		})
		return nil
	},
}

var labelRmCmd = &cobra.Command{
	Use:   "rm <id> <label>...",
	Short: "Detach labels from a task",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := apiClient.RemoveLabels(rootCtx, args[0], args[1:])
		if err != nil {
			fatalf("%v", err)
		}
		output(task, func() {
			fmt.Printf("%s %s labels: %s\n", ui.RenderPass("✓"), ui.RenderID(task.ID), ui.RenderLabels(task.Labels))
		})
		return nil
	},
}

var labelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every label in the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, err := apiClient.ListLabels(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		output(labels, func() {
			if len(labels) == 0 {
				fmt.Println("No labels.")
				return
			}
			for _, label := range labels {
				fmt.Println(label)
			}
		})
		return nil
	},
}

func init() {
	labelCmd.AddCommand(labelAddCmd, labelRmCmd, labelListCmd)
	rootCmd.AddCommand(labelCmd)
}
