package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/leadscout/leadscout/internal/scheduler"
	"github.com/leadscout/leadscout/internal/store"
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "Manage lead-generation programs",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var programsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all programs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		programs, err := a.store.ListPrograms(cmd.Context(), false)
		if err != nil {
			return err
		}
		printHeader("📋 Programs")
		if len(programs) == 0 {
			fmt.Println("No programs yet. Create one with 'leadscout programs add'.")
			return nil
		}
		for _, p := range programs {
			state := color.GreenString("enabled")
			if !p.Enabled {
				state = color.RedString("disabled")
			}
			schedule := p.ScheduleTime
			if schedule == "" {
				schedule = "manual"
			}
			fmt.Printf("#%d  %s  (%s)\n", p.ID, p.Name, state)
			fmt.Printf("    niche: %s | mode: %s | min score: %d | schedule: %s\n",
				p.Niche, p.SafetyMode, p.MinScore, schedule)
			fmt.Printf("    chats: %s\n", strings.Join(p.Chats, ", "))
		}
		return nil
	},
}

var (
	addOwner    int64
	addName     string
	addNiche    string
	addChats    []string
	addMode     string
	addMinScore int
	addMaxLeads int
	addSchedule string
)

var programsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a program",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addName == "" || addNiche == "" || len(addChats) == 0 {
			return fmt.Errorf("--name, --niche, and --chat are required")
		}
		switch addMode {
		case "fast", "normal", "careful":
		default:
			return fmt.Errorf("--mode must be fast, normal, or careful")
		}
		if addSchedule != "" {
			if _, _, err := scheduler.ParseScheduleTime(addSchedule); err != nil {
				return err
			}
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		if _, err := a.store.EnsureOwner(ctx, addOwner, ""); err != nil {
			return err
		}
		p, err := a.store.CreateProgram(ctx, &store.Program{
			OwnerID:        addOwner,
			Name:           addName,
			Niche:          addNiche,
			Chats:          addChats,
			SafetyMode:     addMode,
			MinScore:       addMinScore,
			MaxLeadsPerRun: addMaxLeads,
			ScheduleTime:   addSchedule,
			Enabled:        true,
		})
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("Created program #%d (%s)", p.ID, p.Name))
		return nil
	},
}

var programsEnableCmd = &cobra.Command{
	Use:   "enable <program-id>",
	Short: "Enable a program",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], true) },
}

var programsDisableCmd = &cobra.Command{
	Use:   "disable <program-id>",
	Short: "Disable a program (a run in flight finishes its current candidate, then stops)",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], false) },
}

func setEnabled(cmd *cobra.Command, arg string, enabled bool) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid program id %q", arg)
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.SetProgramEnabled(cmd.Context(), id, enabled); err != nil {
		return err
	}
	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}
	fmt.Println(color.GreenString("Program #%d %s", id, verb))
	return nil
}

func init() {
	programsAddCmd.Flags().Int64Var(&addOwner, "owner", 1, "owner account id")
	programsAddCmd.Flags().StringVar(&addName, "name", "", "program name")
	programsAddCmd.Flags().StringVar(&addNiche, "niche", "", "target niche description")
	programsAddCmd.Flags().StringArrayVar(&addChats, "chat", nil, "chat id to monitor (repeatable)")
	programsAddCmd.Flags().StringVar(&addMode, "mode", "normal", "safety mode: fast, normal, careful")
	programsAddCmd.Flags().IntVar(&addMinScore, "min-score", 60, "qualification score threshold")
	programsAddCmd.Flags().IntVar(&addMaxLeads, "max-leads", 20, "max leads per run")
	programsAddCmd.Flags().StringVar(&addSchedule, "schedule", "", "daily run time HH:MM (empty = manual)")

	programsCmd.AddCommand(programsListCmd)
	programsCmd.AddCommand(programsAddCmd)
	programsCmd.AddCommand(programsEnableCmd)
	programsCmd.AddCommand(programsDisableCmd)
}
