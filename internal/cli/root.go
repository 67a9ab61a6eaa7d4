// Package cli implements the leadscout command tree.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/leadscout/leadscout/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"  _                   _ ____                  _\n" +
		" | |    ___  __ _  __| / ___|  ___ ___  _   _| |_\n" +
		" | |   / _ \\/ _` |/ _` \\___ \\ / __/ _ \\| | | | __|\n" +
		" | |__|  __/ (_| | (_| |___) | (_| (_) | |_| | |_\n" +
		" |_____\\___|\\__,_|\\__,_|____/ \\___\\___/ \\__,_|\\__|\n"
)

var rootCmd = &cobra.Command{
	Use:   "leadscout",
	Short: "leadscout - chat-activity lead generation pipeline",
	Long:  color.CyanString(logo) + "\nFinds and qualifies leads from chat activity, extracts recurring pains, and drafts content around them.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(programsCmd)
	rootCmd.AddCommand(clustersCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(daemonCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
