// Command grns is the CLI companion to the grns task server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/config"
)

var (
	jsonOutput   bool
	formatOutput string
	apiClient    *api.Client
	rootCtx      context.Context
)

var rootCmd = &cobra.Command{
	Use:   "grns",
	Short: "Track tasks in a local graph store",
	Long: `grns tracks units of work as a dependency-aware task graph backed by
SQLite, served over HTTP. Most commands talk to a running server; start one
with 'grns serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		if dir, ok := config.FindWorkspaceDir(); ok {
			manifest, err := config.LoadManifest(dir)
			if err != nil {
				return err
			}
			config.ApplyManifest(manifest)
		}

		// Flags beat config and env.
		if cmd.Flags().Changed("addr") {
			addr, _ := cmd.Flags().GetString("addr")
			config.Set("addr", addr)
		}
		if cmd.Flags().Changed("project") {
			project, _ := cmd.Flags().GetString("project")
			config.Set("prefix", project)
		}
		if cmd.Flags().Changed("json") {
			jsonOutput, _ = cmd.Flags().GetBool("json")
		} else {
			jsonOutput = config.GetBool("json")
		}
		formatOutput, _ = cmd.Flags().GetString("format")

		apiClient = api.NewClient("http://" + config.GetString("addr"))
		apiClient.SetProject(config.GetString("prefix"))
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx

	rootCmd.PersistentFlags().String("addr", "127.0.0.1:4242", "Server address (host:port)")
	rootCmd.PersistentFlags().String("project", "", "Project prefix (two lowercase letters)")
	rootCmd.PersistentFlags().Bool("json", false, "Output JSON")
	rootCmd.PersistentFlags().String("format", "", "Output format (yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tasks", Title: "Task Commands:"},
		&cobra.Group{ID: "views", Title: "View Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fatalf("%v", err)
	}
}

func outputYAML(v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		fatalf("%v", err)
	}
	os.Stdout.Write(data)
}

// output renders v honoring --json and --format yaml, falling back to the
// given human renderer.
func output(v any, human func()) {
	switch {
	case jsonOutput:
		outputJSON(v)
	case formatOutput == "yaml":
		outputYAML(v)
	default:
		human()
	}
}

var whenParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseTimeFlag accepts RFC 3339, bare dates, and natural language such as
// "2 weeks ago" or "yesterday".
func parseTimeFlag(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	r, err := whenParser.Parse(raw, time.Now())
	if err == nil && r != nil {
		return r.Time, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
