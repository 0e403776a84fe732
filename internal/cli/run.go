package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/staycheck/internal/dates"
	"github.com/roach88/staycheck/internal/driver"
	"github.com/roach88/staycheck/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter  string   // scenario filter (glob pattern)
	Agents  []string // agents to run as; all of the partition's when empty
	APIOnly bool     // skip the browser: ui scenarios fail instead of launching Chrome

	// Clock and RunIDs allow overriding today and the run id (for testing).
	// If nil, the system clock and UUIDv7 run ids are used.
	Clock  dates.Clock
	RunIDs harness.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [suite.yaml]",
		Short: "Run booking scenarios against the site",
		Long: `Run every scenario of a suite under every agent and report the outcome.

Without a suite file the built-in suite runs: the UI happy path, short names
and double booking, plus API rejection, conflict and round trip.

Settings come from the environment (see STAYCHECK_* variables), optionally
seeded from a .env file.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (bad suite, bad configuration, etc.)

Examples:
  staycheck run
  staycheck run --filter "api-*"
  staycheck run ./suites/booking.yaml --agent chromium
  STAYCHECK_BASE_URL=http://localhost:8080 staycheck run --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSuite(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringSliceVar(&opts.Agents, "agent", nil, "run only as these agents (repeatable)")
	cmd.Flags().BoolVar(&opts.APIOnly, "api-only", false, "do not launch a browser")

	return cmd
}

func runSuite(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	suite, err := loadSuite(path, cfg)
	if err != nil {
		return err
	}

	ledger, err := openLedger(cfg.LedgerPath)
	if err != nil {
		return err
	}

	client := newClient(cfg, logger)
	drivers := harness.Drivers(client, driver.UIConfig{
		BaseURL:         cfg.BaseURL,
		Headless:        cfg.Headless,
		ActionTimeout:   cfg.ActionTimeout,
		ResponseTimeout: cfg.ResponseTimeout,
		ExpectTimeout:   cfg.ExpectTimeout,
		Logger:          logger,
	})
	if opts.APIOnly {
		drivers = harness.APIDrivers(client)
	}

	rcfg := harness.Config{
		Client:          client,
		Credentials:     cfg.Credentials,
		Clock:           opts.Clock,
		RunIDs:          opts.RunIDs,
		Drivers:         drivers,
		ScenarioTimeout: cfg.ScenarioTimeout,
		TeardownTimeout: cfg.TeardownTimeout,
		Retries:         cfg.Retries,
		Parallel:        cfg.Parallel,
		Filter:          opts.Filter,
		Logger:          logger,
	}
	if ledger != nil {
		defer func() {
			if closeErr := ledger.Close(); closeErr != nil {
				logger.Error("error closing ledger", "error", closeErr)
			}
		}()
		rcfg.Ledger = ledger
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	logger.Info("running suite", "suite", suite.Name, "base_url", cfg.BaseURL)
	report, err := harness.NewRunner(rcfg).Run(ctx, suite, opts.Agents)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start run", err)
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd.OutOrStdout(), report)
	}
	return outputRunText(cmd.OutOrStdout(), report, opts.Verbose)
}

// signalContext is cancelled on SIGINT or SIGTERM. Scenarios still tear
// down after cancellation.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

// outputRunJSON outputs the report as JSON.
func outputRunJSON(w io.Writer, report *harness.Report) error {
	response := CLIResponse{Status: "ok", Data: report}
	if !report.OK() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_RUN_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", report.Failed),
		}
	}

	if err := writeJSON(w, response); err != nil {
		return err
	}
	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

// outputRunText outputs one line per unit and a summary.
func outputRunText(w io.Writer, report *harness.Report, verbose bool) error {
	for _, res := range report.Results {
		attempts := ""
		if res.Attempts > 1 {
			attempts = fmt.Sprintf(" (%d attempts)", res.Attempts)
		}

		if res.Pass {
			fmt.Fprintf(w, "✓ %s%s\n", res.Name(), attempts)
		} else {
			fmt.Fprintf(w, "✗ %s [%s]%s\n", res.Name(), res.Kind, attempts)
			for _, e := range res.Errors {
				if !verbose {
					// drop the trace
					e, _, _ = strings.Cut(e, "\n\n")
				}
				for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
					fmt.Fprintf(w, "  %s\n", line)
				}
			}
		}
		if len(res.Leaked) > 0 {
			fmt.Fprintf(w, "  ! bookings left behind: %v (run staycheck sweep)\n", res.Leaked)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run %s: %d passed, %d failed, %d total\n", report.RunID, report.Passed, report.Failed, report.Total)

	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
