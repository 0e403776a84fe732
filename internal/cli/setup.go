package cli

import (
	"log/slog"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/config"
	"github.com/roach88/staycheck/internal/harness"
	"github.com/roach88/staycheck/internal/store"
)

// loadConfig reads the environment, failing with ExitCommandError.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.envFiles()...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// loadSuite reads the suite at path, or returns the built-in suite when path
// is empty, with the configuration's partition overrides applied.
func loadSuite(path string, cfg *config.Config) (*harness.Suite, error) {
	suite := harness.DefaultSuite()
	if path != "" {
		var err error
		if suite, err = harness.LoadSuite(path); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load suite", err)
		}
	}

	suite.Partition = cfg.Partition(suite.Partition)
	if err := suite.Plan().Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid partition", err)
	}
	return suite, nil
}

// newClient builds the booking client every command shares.
func newClient(cfg *config.Config, logger *slog.Logger) *booking.Client {
	return booking.NewClient(cfg.BaseURL,
		booking.WithTimeout(cfg.ActionTimeout),
		booking.WithLogger(logger),
	)
}

// openLedger opens the configured ledger; nil when none is configured.
func openLedger(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, nil
}
