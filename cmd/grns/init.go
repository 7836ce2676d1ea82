package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/config"
	"github.com/untoldecay/grns/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .grns workspace in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		repo, _ := cmd.Flags().GetString("repo")

		dir := filepath.Join(".", config.WorkspaceDirName)
		if _, err := os.Stat(filepath.Join(dir, config.ManifestFileName)); err == nil {
			fatalf("%s already initialized", dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		manifest := &config.Manifest{Prefix: prefix, Repo: repo}
		if err := config.SaveManifest(dir, manifest); err != nil {
			return err
		}

		configPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			sample := "# grns configuration\n# addr: 127.0.0.1:4242\n# log-level: info\n"
			if err := os.WriteFile(configPath, []byte(sample), 0o644); err != nil {
				return err
			}
		}

		fmt.Printf("%s Initialized workspace in %s (prefix %s)\n", ui.RenderPass("✓"), dir, prefix)
		fmt.Printf("  Start the server with: grns serve\n")
		return nil
	},
}

func init() {
	initCmd.Flags().String("prefix", "gr", "Project prefix (two lowercase letters)")
	initCmd.Flags().String("repo", "", "Default source repo (host/owner/name or URL)")
	rootCmd.AddCommand(initCmd)
}
