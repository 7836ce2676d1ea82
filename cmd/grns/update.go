package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	GroupID: "tasks",
	Short:   "Update fields on a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &api.TaskUpdateRequest{}

		stringFlag := func(name string, dst **string) {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetString(name)
				*dst = &v
			}
		}
		stringFlag("title", &req.Title)
		stringFlag("status", &req.Status)
		stringFlag("type", &req.Type)
		stringFlag("description", &req.Description)
		stringFlag("acceptance", &req.AcceptanceCriteria)
		stringFlag("design", &req.Design)
		stringFlag("notes", &req.Notes)
		stringFlag("assignee", &req.Assignee)
		stringFlag("parent", &req.ParentID)
		stringFlag("repo", &req.SourceRepo)
		if cmd.Flags().Changed("priority") {
			p, _ := cmd.Flags().GetInt("priority")
			req.Priority = &p
		}

		task, err := apiClient.UpdateTask(rootCtx, args[0], req)
		if err != nil {
			fatalf("%v", err)
		}
		output(task, func() {
			fmt.Printf("%s Updated %s\n", ui.RenderPass("✓"), ui.RenderID(task.ID))
		})
		return nil
	},
}

func init() {
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().StringP("status", "s", "", "New status")
	updateCmd.Flags().StringP("type", "t", "", "New type")
	updateCmd.Flags().IntP("priority", "p", 0, "New priority")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().String("acceptance", "", "New acceptance criteria")
	updateCmd.Flags().String("design", "", "New design notes")
	updateCmd.Flags().String("notes", "", "New notes")
	updateCmd.Flags().StringP("assignee", "a", "", "New assignee (empty clears)")
	updateCmd.Flags().String("parent", "", "New parent id (empty clears)")
	updateCmd.Flags().String("repo", "", "New source repo (empty clears)")
	rootCmd.AddCommand(updateCmd)
}
