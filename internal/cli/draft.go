package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters <program-id>",
	Short: "List pain clusters for a program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		programID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid program id %q", args[0])
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		clusters, err := a.store.ListClusters(cmd.Context(), programID)
		if err != nil {
			return err
		}
		printHeader("🧩 Pain Clusters")
		if len(clusters) == 0 {
			fmt.Println("No clusters yet. Run the program first.")
			return nil
		}
		for _, c := range clusters {
			trend := c.Trend
			switch trend {
			case "rising":
				trend = color.GreenString("▲ rising")
			case "falling":
				trend = color.RedString("▼ falling")
			default:
				trend = "■ stable"
			}
			posted := ""
			if c.PostGenerated {
				posted = " [drafted]"
			}
			fmt.Printf("#%d  %s (%s)%s\n", c.ID, c.Label, c.Category, posted)
			fmt.Printf("    %d pains | avg intensity %.1f | %s\n", c.PainCount, c.AvgIntensity, trend)
		}
		return nil
	},
}

var draftCmd = &cobra.Command{
	Use:   "draft <cluster-id>",
	Short: "Generate a post draft for a pain cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clusterID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid cluster id %q", args[0])
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		c, err := a.store.GetCluster(ctx, clusterID)
		if err != nil {
			return err
		}

		printHeader("✍️  Draft")
		d, err := a.drafter().ForCluster(ctx, c)
		if err != nil {
			return err
		}
		if !d.WithEnrichment {
			fmt.Println(color.YellowString("(generated without web enrichment)"))
		}
		fmt.Println(color.New(color.Bold).Sprint(d.Title))
		fmt.Println()
		fmt.Println(d.Body)
		return nil
	},
}
