package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:     "info",
	GroupID: "views",
	Short:   "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := apiClient.Info(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		output(info, func() {
			fmt.Printf("\nProject %s · schema v%d · %d tasks\n\n", ui.RenderID(info.ProjectPrefix), info.SchemaVersion, info.TotalTasks)
			statuses := make([]string, 0, len(info.TaskCounts))
			for status := range info.TaskCounts {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)
			for _, status := range statuses {
				fmt.Printf("  %-12s %d\n", ui.RenderStatus(status), info.TaskCounts[status])
			}
			fmt.Println()
		})
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:     "cleanup",
	GroupID: "data",
	Short:   "Purge old closed tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("older-than")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")
		if !dryRun && !force {
			fatalf("cleanup is permanent; pass --force, or --dry-run to preview")
		}

		resp, err := apiClient.Cleanup(rootCtx, &api.CleanupRequest{OlderThanDays: days, DryRun: dryRun})
		if err != nil {
			fatalf("%v", err)
		}
		output(resp, func() {
			verb := "Purged"
			if resp.DryRun {
				verb = "Would purge"
			}
			fmt.Printf("%s %s %d closed task(s) older than %d days\n", ui.RenderPass("✓"), verb, resp.Count, days)
			for _, id := range resp.TaskIDs {
				fmt.Printf("  %s\n", ui.RenderMuted(id))
			}
		})
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Int("older-than", 90, "Purge closed tasks older than this many days")
	cleanupCmd.Flags().Bool("dry-run", false, "Preview without deleting")
	cleanupCmd.Flags().Bool("force", false, "Confirm permanent deletion")
	rootCmd.AddCommand(infoCmd, cleanupCmd)
}
