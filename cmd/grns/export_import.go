package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "data",
	Short:   "Export tasks as NDJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := os.Stdout
		if path, _ := cmd.Flags().GetString("output"); path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		values := url.Values{}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			values.Set("status", status)
		}
		if err := apiClient.Export(rootCtx, out, values.Encode()); err != nil {
			fatalf("%v", err)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import",
	GroupID: "data",
	Short:   "Import tasks from NDJSON",
	Long: `Import NDJSON task records, one per line. Existing ids are skipped by
default; --dedupe overwrite replaces them and --dedupe error fails on them.
--orphan-handling strict rejects records whose dependencies are missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := os.Stdin
		if path, _ := cmd.Flags().GetString("input"); path != "" && path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			input = f
		}

		dedupe, _ := cmd.Flags().GetString("dedupe")
		orphans, _ := cmd.Flags().GetString("orphan-handling")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		atomic, _ := cmd.Flags().GetBool("atomic")

		values := url.Values{}
		if dedupe != "" {
			values.Set("dedupe", dedupe)
		}
		if orphans != "" {
			values.Set("orphan_handling", orphans)
		}
		if dryRun {
			values.Set("dry_run", "true")
		}
		if atomic {
			values.Set("atomic", "true")
		}

		resp, err := apiClient.ImportStream(rootCtx, input, values.Encode())
		if err != nil {
			fatalf("%v", err)
		}
		output(resp, func() { printImportSummary(resp) })
		return nil
	},
}

func printImportSummary(resp *api.ImportResponse) {
	marker := ui.RenderPass("✓")
	if resp.Errors > 0 {
		marker = ui.RenderWarn("!")
	}
	mode := ""
	if resp.DryRun {
		mode = " (dry run)"
	}
	fmt.Printf("%s Import%s: %d created, %d updated, %d skipped, %d errors\n",
		marker, mode, resp.Created, resp.Updated, resp.Skipped, resp.Errors)
	for _, msg := range resp.Messages {
		fmt.Printf("  %s\n", ui.RenderMuted(msg))
	}
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().String("status", "", "Only export these statuses (comma separated)")

	importCmd.Flags().StringP("input", "i", "", "Read from file instead of stdin")
	importCmd.Flags().String("dedupe", "", "Duplicate id policy (skip|overwrite|error)")
	importCmd.Flags().String("orphan-handling", "", "Missing dependency policy (lenient|strict)")
	importCmd.Flags().Bool("dry-run", false, "Validate and count without writing")
	importCmd.Flags().Bool("atomic", false, "Apply all records in one transaction")

	rootCmd.AddCommand(exportCmd, importCmd)
}
