package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/grns/internal/ui"
	"github.com/untoldecay/grns/internal/version"
)

// Build can be set via ldflags at compile time.
var Build = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		checkServer, _ := cmd.Flags().GetBool("server")

		if jsonOutput {
			result := map[string]string{"version": version.Version, "build": Build}
			if checkServer {
				if health, err := apiClient.Ping(rootCtx); err == nil {
					result["server_version"] = health.Version
				}
			}
			outputJSON(result)
			return
		}

		fmt.Printf("grns version %s (%s)\n", version.Version, Build)
		if !checkServer {
			return
		}

		health, err := apiClient.Ping(rootCtx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: server unreachable: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("server version %s\n", health.Version)
		if !version.Compatible(version.Version, health.Version) {
			fmt.Printf("%s client and server major versions differ; upgrade one of them\n", ui.RenderWarn("!"))
		}
	},
}

func init() {
	versionCmd.Flags().Bool("server", false, "Also report the server's version")
	rootCmd.AddCommand(versionCmd)
}
