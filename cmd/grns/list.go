package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "views",
	Short:   "List tasks",
	Long: `List tasks with filters. Time flags accept RFC 3339, bare dates, or
natural language ("2 weeks ago"). With -q, results are ranked by full-text
relevance instead of recency.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := buildListQueryValues(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		tasks, err := apiClient.ListTasks(rootCtx, query.Encode())
		if err != nil {
			fatalf("%v", err)
		}
		output(tasks, func() { printTaskTable(tasks) })
		return nil
	},
}

func buildListQueryValues(cmd *cobra.Command) (url.Values, error) {
	values := url.Values{}

	setCSV := func(flag, param string) {
		if v, _ := cmd.Flags().GetStringSlice(flag); len(v) > 0 {
			values.Set(param, strings.Join(v, ","))
		}
	}
	setString := func(flag, param string) {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			values.Set(param, v)
		}
	}

	setCSV("status", "status")
	setCSV("type", "type")
	setCSV("label", "label")
	setCSV("label-any", "label_any")
	setString("assignee", "assignee")
	setString("parent", "parent")
	setString("spec-regex", "spec")
	setString("query", "search")

	if cmd.Flags().Changed("priority") {
		p, _ := cmd.Flags().GetInt("priority")
		values.Set("priority", strconv.Itoa(p))
	}
	if v, _ := cmd.Flags().GetBool("no-assignee"); v {
		values.Set("no_assignee", "true")
	}
	if v, _ := cmd.Flags().GetBool("no-labels"); v {
		values.Set("no_labels", "true")
	}

	for flag, param := range map[string]string{
		"created-after":  "created_after",
		"created-before": "created_before",
		"updated-after":  "updated_after",
		"updated-before": "updated_before",
	} {
		raw, _ := cmd.Flags().GetString(flag)
		if raw == "" {
			continue
		}
		t, err := parseTimeFlag(raw)
		if err != nil {
			return nil, err
		}
		values.Set(param, t.UTC().Format(time.RFC3339))
	}

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset, _ := cmd.Flags().GetInt("offset"); offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	return values, nil
}

func printTaskTable(tasks []api.TaskResponse) {
	rows := make([]ui.TaskRow, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, ui.TaskRow{
			ID:       task.ID,
			Status:   task.Status,
			Priority: task.Priority,
			Type:     task.Type,
			Title:    task.Title,
			Labels:   task.Labels,
		})
	}
	fmt.Println(ui.RenderTaskTable(rows, ui.GetWidth()))
}

var readyCmd = &cobra.Command{
	Use:     "ready",
	GroupID: "views",
	Short:   "Show unblocked actionable tasks",
	Long: `Show open or in-progress tasks whose blocking dependencies are all
closed or gone. This is the "what can I pick up next" view.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		values := url.Values{}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			values.Set("limit", strconv.Itoa(limit))
		}
		tasks, err := apiClient.ListReadyTasks(rootCtx, values.Encode())
		if err != nil {
			fatalf("%v", err)
		}
		output(tasks, func() {
			if len(tasks) == 0 {
				fmt.Printf("\n%s Nothing ready; everything is blocked or done\n\n", ui.RenderWarn("∅"))
				return
			}
			printTaskTable(tasks)
		})
		return nil
	},
}

var staleCmd = &cobra.Command{
	Use:     "stale",
	GroupID: "views",
	Short:   "Show tasks with no recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		values := url.Values{}
		days, _ := cmd.Flags().GetInt("days")
		if since, _ := cmd.Flags().GetString("since"); since != "" {
			t, err := parseTimeFlag(since)
			if err != nil {
				fatalf("%v", err)
			}
			days = int(time.Since(t).Hours() / 24)
		}
		values.Set("days", strconv.Itoa(days))
		if status, _ := cmd.Flags().GetStringSlice("status"); len(status) > 0 {
			values.Set("status", strings.Join(status, ","))
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			values.Set("limit", strconv.Itoa(limit))
		}

		tasks, err := apiClient.ListStaleTasks(rootCtx, values.Encode())
		if err != nil {
			fatalf("%v", err)
		}
		output(tasks, func() {
			if len(tasks) == 0 {
				fmt.Printf("\n%s No stale tasks (all active)\n\n", ui.RenderPass("✨"))
				return
			}
			fmt.Printf("\n%s Stale tasks (%d not updated in %d+ days):\n\n", ui.RenderWarn("⏰"), len(tasks), days)
			now := time.Now()
			for i, task := range tasks {
				daysStale := int(now.Sub(task.UpdatedAt).Hours() / 24)
				fmt.Printf("%d. [%s] %s: %s\n", i+1, ui.RenderPriority(task.Priority), ui.RenderID(task.ID), task.Title)
				fmt.Printf("   Status: %s, last updated %d days ago\n", ui.RenderStatus(task.Status), daysStale)
				if task.Assignee != "" {
					fmt.Printf("   Assignee: %s\n", task.Assignee)
				}
				fmt.Println()
			}
		})
		return nil
	},
}

func init() {
	listCmd.Flags().StringSliceP("status", "s", nil, "Filter by status (repeatable)")
	listCmd.Flags().StringSliceP("type", "t", nil, "Filter by type (repeatable)")
	listCmd.Flags().IntP("priority", "p", 0, "Filter by exact priority")
	listCmd.Flags().StringSliceP("label", "l", nil, "Require every label (AND)")
	listCmd.Flags().StringSlice("label-any", nil, "Require any label (OR)")
	listCmd.Flags().StringP("assignee", "a", "", "Filter by assignee")
	listCmd.Flags().Bool("no-assignee", false, "Only unassigned tasks")
	listCmd.Flags().Bool("no-labels", false, "Only unlabeled tasks")
	listCmd.Flags().String("parent", "", "Filter by parent id")
	listCmd.Flags().String("spec-regex", "", "Filter spec_id by regular expression")
	listCmd.Flags().StringP("query", "q", "", "Full-text search over title, description, notes")
	listCmd.Flags().String("created-after", "", "Created after this time")
	listCmd.Flags().String("created-before", "", "Created before this time")
	listCmd.Flags().String("updated-after", "", "Updated after this time")
	listCmd.Flags().String("updated-before", "", "Updated before this time")
	listCmd.Flags().IntP("limit", "n", 50, "Maximum tasks to show")
	listCmd.Flags().Int("offset", 0, "Skip this many tasks")

	readyCmd.Flags().IntP("limit", "n", 20, "Maximum tasks to show")

	staleCmd.Flags().IntP("days", "d", 30, "Tasks not updated in this many days")
	staleCmd.Flags().String("since", "", "Cutoff as a time instead of days")
	staleCmd.Flags().StringSliceP("status", "s", nil, "Statuses to include")
	staleCmd.Flags().IntP("limit", "n", 50, "Maximum tasks to show")

	rootCmd.AddCommand(listCmd, readyCmd, staleCmd)
}
