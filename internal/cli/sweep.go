package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/roach88/staycheck/internal/store"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Ledger string // overrides STAYCHECK_LEDGER
	DryRun bool
}

// SweepResult reports what a sweep did.
type SweepResult struct {
	Pending []store.Entry `json:"pending"`
	Deleted []int         `json:"deleted"`
	Failed  []int         `json:"failed,omitempty"`
	DryRun  bool          `json:"dry_run,omitempty"`
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete bookings earlier runs left behind",
		Long: `Delete every booking the ledger records as created against the configured
site but never deleted, e.g. because a run was killed before teardown.

Bookings already gone count as deleted.

Examples:
  staycheck sweep --ledger ./staycheck.db
  staycheck sweep --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweep(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to the SQLite ledger (default $STAYCHECK_LEDGER)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list pending bookings without deleting them")

	return cmd
}

func sweep(opts *SweepOptions, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	path := opts.Ledger
	if path == "" {
		path = cfg.LedgerPath
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no ledger configured: pass --ledger or set STAYCHECK_LEDGER")
	}

	ledger, err := openLedger(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ledger.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pending, err := ledger.Pending(ctx, cfg.BaseURL)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}
	result := SweepResult{Pending: pending, Deleted: []int{}, DryRun: opts.DryRun}

	if len(pending) > 0 && !opts.DryRun {
		client := newClient(cfg, logger)
		session, err := client.Login(ctx, cfg.Credentials)
		if err != nil {
			return WrapExitError(ExitFailure, "admin login failed", err)
		}

		for _, e := range pending {
			resp, err := client.Delete(ctx, e.BookingID, session)
			if err != nil {
				logger.Warn("sweep delete failed", "booking_id", e.BookingID, "error", err)
				result.Failed = append(result.Failed, e.BookingID)
				continue
			}
			switch resp.Status {
			case http.StatusOK, http.StatusAccepted, http.StatusNoContent, http.StatusNotFound:
			default:
				logger.Warn("sweep delete refused", "booking_id", e.BookingID, "status", resp.Status)
				result.Failed = append(result.Failed, e.BookingID)
				continue
			}
			if err := ledger.MarkReleased(ctx, e.RunID, e.BookingID); err != nil {
				return WrapExitError(ExitCommandError, "failed to update ledger", err)
			}
			result.Deleted = append(result.Deleted, e.BookingID)
		}
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if len(result.Failed) > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_SWEEP_FAILED",
				Message: fmt.Sprintf("%d booking(s) could not be deleted", len(result.Failed)),
			}
		}
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		outputSweepText(cmd.OutOrStdout(), result)
	}

	if len(result.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d booking(s) could not be deleted", len(result.Failed)))
	}
	return nil
}

func outputSweepText(w io.Writer, result SweepResult) {
	if len(result.Pending) == 0 {
		fmt.Fprintln(w, "Nothing to sweep.")
		return
	}

	if result.DryRun {
		for _, e := range result.Pending {
			fmt.Fprintf(w, "  booking %d  room %d  %s -> %s  (%s/%s, run %s)\n",
				e.BookingID, e.RoomID, e.CheckIn, e.CheckOut, e.Scenario, e.Agent, e.RunID)
		}
		fmt.Fprintf(w, "%d booking(s) pending\n", len(result.Pending))
		return
	}

	for _, id := range result.Deleted {
		fmt.Fprintf(w, "✓ deleted booking %d\n", id)
	}
	for _, id := range result.Failed {
		fmt.Fprintf(w, "✗ booking %d could not be deleted\n", id)
	}
	fmt.Fprintf(w, "Swept %d of %d booking(s)\n", len(result.Deleted), len(result.Pending))
}
