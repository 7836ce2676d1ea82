package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var gitRefCmd = &cobra.Command{
	Use:     "git-ref",
	GroupID: "tasks",
	Short:   "Link tasks to git objects",
	Long: `Attach git references (commits, branches, tags, paths) to tasks.
Repos are cataloged by canonical host/owner/name slug; URLs and scp-style
remotes are accepted and reduced to that form.`,
}

var gitRefAddCmd = &cobra.Command{
	Use:   "add <task-id>",
	Short: "Attach a git reference to a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &api.TaskGitRefCreateRequest{}
		req.Repo, _ = cmd.Flags().GetString("repo")
		req.Relation, _ = cmd.Flags().GetString("relation")
		req.ObjectType, _ = cmd.Flags().GetString("type")
		req.ObjectValue, _ = cmd.Flags().GetString("value")
		req.ResolvedCommit, _ = cmd.Flags().GetString("resolved-commit")
		req.Note, _ = cmd.Flags().GetString("note")

		ref, err := apiClient.CreateTaskGitRef(rootCtx, args[0], req)
		if err != nil {
			fatalf("%v", err)
		}
		output(ref, func() {
			fmt.Printf("%s %s: %s %s:%s (%s)\n", ui.RenderPass("✓"), ref.ID, ref.Relation, ref.ObjectType, ref.ObjectValue, ref.Repo)
		})
		return nil
	},
}

var gitRefListCmd = &cobra.Command{
	Use:   "list <task-id>",
	Short: "List git references on a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := apiClient.ListTaskGitRefs(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		output(refs, func() {
			if len(refs) == 0 {
				fmt.Println("No git references.")
				return
			}
			for _, ref := range refs {
				fmt.Printf("%s  %-13s %s:%s  %s", ui.RenderID(ref.ID), ref.Relation, ref.ObjectType, ref.ObjectValue, ui.RenderMuted(ref.Repo))
				if ref.Note != "" {
					fmt.Printf("  %q", ref.Note)
				}
				fmt.Println()
			}
		})
		return nil
	},
}

var gitRefShowCmd = &cobra.Command{
	Use:   "show <ref-id>",
	Short: "Show one git reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := apiClient.GetGitRef(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		output(ref, func() {
			fmt.Printf("%s  task %s  %s %s:%s  %s\n", ui.RenderID(ref.ID), ui.RenderID(ref.TaskID), ref.Relation, ref.ObjectType, ref.ObjectValue, ui.RenderMuted(ref.Repo))
			if ref.ResolvedCommit != "" {
				fmt.Printf("  resolved: %s\n", ref.ResolvedCommit)
			}
			if ref.Note != "" {
				fmt.Printf("  note: %s\n", ref.Note)
			}
		})
		return nil
	},
}

var gitRefRmCmd = &cobra.Command{
	Use:   "rm [task-id] <ref-id>",
	Short: "Detach a git reference",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := apiClient.DeleteGitRef(rootCtx, args[0]); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("%s Removed %s\n", ui.RenderPass("✓"), args[0])
			return nil
		}
		if err := apiClient.DeleteTaskGitRef(rootCtx, args[0], args[1]); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Removed %s from %s\n", ui.RenderPass("✓"), args[1], ui.RenderID(args[0]))
		return nil
	},
}

func init() {
	gitRefAddCmd.Flags().String("repo", "", "Repo (defaults to the task's source_repo)")
	gitRefAddCmd.Flags().String("relation", "related", "Relation (design_doc|implements|fix_commit|closed_by|introduced_by|related|x-*)")
	gitRefAddCmd.Flags().String("type", "commit", "Object type (commit|branch|tag|path|blob|tree)")
	gitRefAddCmd.Flags().String("value", "", "Object value (hash, branch, tag, or repo-relative path)")
	gitRefAddCmd.Flags().String("resolved-commit", "", "Commit the object resolved to at link time")
	gitRefAddCmd.Flags().String("note", "", "Free-form note")
	_ = gitRefAddCmd.MarkFlagRequired("value")

	gitRefCmd.AddCommand(gitRefAddCmd, gitRefListCmd, gitRefShowCmd, gitRefRmCmd)
	rootCmd.AddCommand(gitRefCmd)
}
