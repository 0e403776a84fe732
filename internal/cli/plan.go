package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/staycheck/internal/dates"
	"github.com/roach88/staycheck/internal/partition"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Today string // YYYY-MM-DD; the system date when empty
}

// PlanRow is one cell of the partition with its concrete dates.
type PlanRow struct {
	partition.Slot
	CheckIn  string `json:"checkin"`
	CheckOut string `json:"checkout"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan [suite.yaml]",
		Short: "Show the room and dates each scenario will book",
		Long: `Print the partition of the booking calendar: for every scenario and agent,
the room and the stay range it books. No two rows overlap.

Examples:
  staycheck plan
  staycheck plan ./suites/booking.yaml --today 2026-10-16
  STAYCHECK_BASE_OFFSET=900 staycheck plan`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return showPlan(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Today, "today", "", "compute dates relative to this day (YYYY-MM-DD)")

	return cmd
}

func showPlan(opts *PlanOptions, path string, cmd *cobra.Command) error {
	today := dates.SystemClock{}.Today()
	if opts.Today != "" {
		t, err := dates.ParseAPIDate(opts.Today)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --today", err)
		}
		today = t
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	suite, err := loadSuite(path, cfg)
	if err != nil {
		return err
	}
	plan := suite.Plan()

	if opts.Format == "json" {
		slots := plan.Table()
		rows := make([]PlanRow, len(slots))
		for i, s := range slots {
			r := s.Range(today)
			rows[i] = PlanRow{
				Slot:     s,
				CheckIn:  dates.FormatAPIDate(r.CheckIn),
				CheckOut: dates.FormatAPIDate(r.CheckOut),
			}
		}
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: rows})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Suite %s, today %s\n\n", suite.Name, dates.FormatAPIDate(today))
	return plan.Render(w, today)
}
