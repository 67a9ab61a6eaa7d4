package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadscout/leadscout/internal/scheduler"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduler daemon for daily program runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if !a.cfg.Scheduler.Enabled {
			return fmt.Errorf("scheduler is disabled; set scheduler.enabled in the config")
		}

		r, err := a.runner()
		if err != nil {
			return err
		}

		printHeader("⏰ LeadScout Daemon")
		fmt.Printf("Tick: %s | Max concurrent runs: %d\n", a.cfg.Scheduler.TickInterval, a.cfg.Scheduler.MaxConcRuns)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched := scheduler.New(a.cfg.Scheduler, a.store, r)
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
