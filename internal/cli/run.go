package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/leadscout/leadscout/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run <program-id>",
	Short: "Execute one lead-generation run for a program",
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

		r, err := a.runner()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		printHeader("🔎 LeadScout Run")
		report, err := r.RunOnce(ctx, programID)
		if errors.Is(err, runner.ErrAlreadyRunning) {
			fmt.Println(color.YellowString("A run is already in progress for this program."))
			return nil
		}
		if err != nil {
			if report != nil {
				fmt.Println(color.RedString("Run failed: %v", err))
				return nil
			}
			return err
		}

		fmt.Printf("Run:         %s\n", report.ReportID)
		fmt.Printf("Candidates:  %d\n", report.CandidatesSeen)
		fmt.Printf("Leads:       %d created, %d updated\n", report.LeadsCreated, report.LeadsUpdated)
		fmt.Printf("Pains:       %d extracted\n", report.PainsExtracted)
		if report.QualificationFailures > 0 {
			fmt.Println(color.YellowString("Failures:    %d candidates could not be qualified", report.QualificationFailures))
		}
		if report.QuotaSkips > 0 {
			fmt.Println(color.YellowString("Quota:       weekly budget exhausted, %d candidates skipped", report.QuotaSkips))
		}
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports <program-id>",
	Short: "Show recent run reports for a program",
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

		reports, err := a.store.ListRunReports(cmd.Context(), programID, 20)
		if err != nil {
			return err
		}
		printHeader("🗂  Run Reports")
		if len(reports) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}
		for _, r := range reports {
			status := color.GreenString(r.Status)
			if r.Status != "completed" {
				status = color.RedString(r.Status)
			}
			fmt.Printf("%s  %s  candidates=%d created=%d updated=%d pains=%d\n",
				r.StartedAt.Format("2006-01-02 15:04"), status,
				r.CandidatesSeen, r.LeadsCreated, r.LeadsUpdated, r.PainsExtracted)
		}
		return nil
	},
}
