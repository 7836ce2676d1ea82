package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/models"
	"github.com/untoldecay/grns/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create [title]",
	GroupID: "tasks",
	Short:   "Create a task",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")

		req := &api.TaskCreateRequest{}
		if len(args) > 0 {
			req.Title = args[0]
		}

		if interactive {
			if err := runCreateForm(req); err != nil {
				return err
			}
		} else {
			if status, _ := cmd.Flags().GetString("status"); status != "" {
				req.Status = &status
			}
			if taskType, _ := cmd.Flags().GetString("type"); taskType != "" {
				req.Type = &taskType
			}
			if cmd.Flags().Changed("priority") {
				p, _ := cmd.Flags().GetInt("priority")
				req.Priority = &p
			}
			if desc, _ := cmd.Flags().GetString("description"); desc != "" {
				req.Description = &desc
			}
			if assignee, _ := cmd.Flags().GetString("assignee"); assignee != "" {
				req.Assignee = &assignee
			}
			if parent, _ := cmd.Flags().GetString("parent"); parent != "" {
				req.ParentID = &parent
			}
			if repo, _ := cmd.Flags().GetString("repo"); repo != "" {
				req.SourceRepo = &repo
			}
			req.Labels, _ = cmd.Flags().GetStringSlice("label")
			for _, parentID := range mustStringSlice(cmd, "blocked-by") {
				req.Deps = append(req.Deps, models.Dependency{ParentID: parentID})
			}
		}

		if req.Title == "" {
			fatalf("title is required (pass it as an argument or use --interactive)")
		}

		task, err := apiClient.CreateTask(rootCtx, req)
		if err != nil {
			fatalf("%v", err)
		}
		output(task, func() {
			fmt.Printf("%s Created %s: %s\n", ui.RenderPass("✓"), ui.RenderID(task.ID), task.Title)
		})
		return nil
	},
}

// runCreateForm collects task fields with an interactive form.
func runCreateForm(req *api.TaskCreateRequest) error {
	taskType := string(models.TypeTask)
	priority := strconv.Itoa(models.DefaultPriority)
	var description string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&req.Title).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("task", string(models.TypeTask)),
					huh.NewOption("bug", string(models.TypeBug)),
					huh.NewOption("feature", string(models.TypeFeature)),
					huh.NewOption("epic", string(models.TypeEpic)),
					huh.NewOption("chore", string(models.TypeChore)),
				).
				Value(&taskType),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("P0 (critical)", "0"),
					huh.NewOption("P1 (high)", "1"),
					huh.NewOption("P2 (normal)", "2"),
					huh.NewOption("P3 (low)", "3"),
					huh.NewOption("P4 (backlog)", "4"),
				).
				Value(&priority),
			huh.NewText().
				Title("Description").
				Value(&description),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	req.Type = &taskType
	p, _ := strconv.Atoi(priority)
	req.Priority = &p
	if description != "" {
		req.Description = &description
	}
	return nil
}

func mustStringSlice(cmd *cobra.Command, name string) []string {
	values, _ := cmd.Flags().GetStringSlice(name)
	return values
}

func init() {
	createCmd.Flags().BoolP("interactive", "i", false, "Fill in fields interactively")
	createCmd.Flags().StringP("status", "s", "", "Initial status")
	createCmd.Flags().StringP("type", "t", "", "Task type (bug|feature|task|epic|chore)")
	createCmd.Flags().IntP("priority", "p", models.DefaultPriority, "Priority 0 (urgent) to 4 (backlog)")
	createCmd.Flags().StringP("description", "d", "", "Description")
	createCmd.Flags().StringP("assignee", "a", "", "Assignee")
	createCmd.Flags().String("parent", "", "Parent task id")
	createCmd.Flags().String("repo", "", "Source repo (host/owner/name or URL)")
	createCmd.Flags().StringSliceP("label", "l", nil, "Labels (repeatable)")
	createCmd.Flags().StringSlice("blocked-by", nil, "Blocking task ids (repeatable)")
	rootCmd.AddCommand(createCmd)
}
