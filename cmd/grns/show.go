package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "views",
	Short:   "Show one task in full",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := apiClient.GetTask(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		refs, err := apiClient.ListTaskGitRefs(rootCtx, task.ID)
		if err != nil {
			refs = nil // git refs are auxiliary; show the task anyway
		}

		output(task, func() {
			md := renderTaskMarkdown(task, refs)
			if ui.IsTerminal() {
				rendered, err := glamour.Render(md, "auto")
				if err == nil {
					fmt.Print(rendered)
					return
				}
			}
			fmt.Print(md)
		})
		return nil
	},
}

func renderTaskMarkdown(task *api.TaskResponse, refs []api.TaskGitRefResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", task.ID, task.Title)
	fmt.Fprintf(&b, "**Status:** %s · **Type:** %s · **Priority:** P%d\n\n", task.Status, task.Type, task.Priority)

	if task.Assignee != "" {
		fmt.Fprintf(&b, "**Assignee:** %s\n\n", task.Assignee)
	}
	if task.ParentID != "" {
		fmt.Fprintf(&b, "**Parent:** %s\n\n", task.ParentID)
	}
	if task.SourceRepo != "" {
		fmt.Fprintf(&b, "**Repo:** %s\n\n", task.SourceRepo)
	}
	if len(task.Labels) > 0 {
		fmt.Fprintf(&b, "**Labels:** %s\n\n", strings.Join(task.Labels, ", "))
	}
	if len(task.Deps) > 0 {
		b.WriteString("**Blocked by:**\n\n")
		for _, dep := range task.Deps {
			fmt.Fprintf(&b, "- %s\n", dep.ParentID)
		}
		b.WriteString("\n")
	}

	if task.Description != "" {
		fmt.Fprintf(&b, "## Description\n\n%s\n\n", task.Description)
	}
	if task.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "## Acceptance Criteria\n\n%s\n\n", task.AcceptanceCriteria)
	}
	if task.Design != "" {
		fmt.Fprintf(&b, "## Design\n\n%s\n\n", task.Design)
	}
	if task.Notes != "" {
		fmt.Fprintf(&b, "## Notes\n\n%s\n\n", task.Notes)
	}

	if len(refs) > 0 {
		b.WriteString("## Git References\n\n")
		for _, ref := range refs {
			fmt.Fprintf(&b, "- `%s` %s %s:%s", ref.ID, ref.Relation, ref.ObjectType, ref.ObjectValue)
			if ref.Repo != "" {
				fmt.Fprintf(&b, " (%s)", ref.Repo)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\nCreated %s · Updated %s", task.CreatedAt.Local().Format(time.RFC822), task.UpdatedAt.Local().Format(time.RFC822))
	if task.ClosedAt != nil {
		fmt.Fprintf(&b, " · Closed %s", task.ClosedAt.Local().Format(time.RFC822))
	}
	b.WriteString("\n")
	return b.String()
}

func init() {
	rootCmd.AddCommand(showCmd)
}
