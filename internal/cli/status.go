package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadscout/leadscout/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ LeadScout Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 LeadScout Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (" + configPath + ")")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("API Key: ? Unable to load config")
			return
		}
		if cfg.Providers.OpenAI.APIKey != "" {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found (set OPENAI_API_KEY)")
		}

		if cfg.Enrichment.APIKey != "" {
			fmt.Println("Search:  ✓ Enrichment configured")
		} else {
			fmt.Println("Search:  ✗ No search key (drafts run without enrichment)")
		}

		fmt.Printf("Source:  %s\n", cfg.Source.Kind)
		if _, err := os.Stat(config.DatabasePath(cfg)); err == nil {
			fmt.Println("DB:      ✓ Found (" + config.DatabasePath(cfg) + ")")
		} else {
			fmt.Println("DB:      ✗ Not created yet")
		}
		if cfg.Scheduler.Enabled {
			fmt.Println("Daemon:  ✓ Scheduler enabled")
		} else {
			fmt.Println("Daemon:  ✗ Scheduler disabled")
		}
	},
}
