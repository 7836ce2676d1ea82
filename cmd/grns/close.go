package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var closeCmd = &cobra.Command{
	Use:     "close <id>...",
	GroupID: "tasks",
	Short:   "Close one or more tasks",
	Long: `Close tasks, optionally recording the commit that finished the work.
With --commit, each closed task gets a closed_by git reference. The repo
comes from --repo or falls back to each task's source_repo.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commit, _ := cmd.Flags().GetString("commit")
		repo, _ := cmd.Flags().GetString("repo")

		resp, err := apiClient.CloseTasks(rootCtx, &api.TaskCloseRequest{
			IDs:    args,
			Commit: commit,
			Repo:   repo,
		})
		if err != nil {
			fatalf("%v", err)
		}
		output(resp, func() {
			for _, id := range resp.Closed {
				fmt.Printf("%s Closed %s\n", ui.RenderPass("✓"), ui.RenderID(id))
			}
			if resp.Annotated > 0 {
				fmt.Printf("  Annotated %d task(s) with commit %s\n", resp.Annotated, shortHash(commit))
			}
		})
		return nil
	},
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

var reopenCmd = &cobra.Command{
	Use:     "reopen <id>...",
	GroupID: "tasks",
	Short:   "Reopen closed tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := apiClient.ReopenTasks(rootCtx, args)
		if err != nil {
			fatalf("%v", err)
		}
		output(tasks, func() {
			for _, task := range tasks {
				fmt.Printf("%s Reopened %s: %s\n", ui.RenderPass("✓"), ui.RenderID(task.ID), task.Title)
			}
		})
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	GroupID: "tasks",
	Short:   "Permanently delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fatalf("delete is permanent; pass --force to confirm")
		}
		if err := apiClient.DeleteTask(rootCtx, args[0]); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), ui.RenderID(args[0]))
		return nil
	},
}

func init() {
	closeCmd.Flags().String("commit", "", "Commit hash that closed the work (40 hex chars)")
	closeCmd.Flags().String("repo", "", "Repo for the close annotation (host/owner/name or URL)")
	deleteCmd.Flags().Bool("force", false, "Confirm permanent deletion")
	rootCmd.AddCommand(closeCmd, reopenCmd, deleteCmd)
}
