package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/dates"
	"github.com/roach88/staycheck/internal/driver"
	"github.com/roach88/staycheck/internal/partition"
	"github.com/roach88/staycheck/internal/store"
	"github.com/roach88/staycheck/internal/teardown"
)

// DefaultScenarioTimeout bounds one attempt of one unit.
const DefaultScenarioTimeout = 30 * time.Second

// ErrNoUIDriver is returned by APIDrivers for ui scenarios.
var ErrNoUIDriver = errors.New("no ui driver configured")

// ErrDuplicateAgent is returned by Run when an agent is named twice. Both
// units would be handed the same slot.
var ErrDuplicateAgent = errors.New("duplicate agent")

// DriverFactory builds the driver for one scenario unit. kind is the
// scenario's driver ("api" or "ui") and agent the partition agent it runs as.
type DriverFactory func(kind, agent string, locators driver.Locators) (driver.Driver, error)

// APIDrivers serves api scenarios through c and refuses ui ones.
func APIDrivers(c *booking.Client) DriverFactory {
	return func(kind, agent string, _ driver.Locators) (driver.Driver, error) {
		if kind == driver.KindUI {
			return nil, fmt.Errorf("%s: %w", agent, ErrNoUIDriver)
		}
		return driver.NewAPI(c), nil
	}
}

// Drivers serves api scenarios through c and ui scenarios through a browser
// configured from ui, with the agent's profile and the suite's locators.
func Drivers(c *booking.Client, ui driver.UIConfig) DriverFactory {
	return func(kind, agent string, locators driver.Locators) (driver.Driver, error) {
		switch kind {
		case driver.KindAPI:
			return driver.NewAPI(c), nil
		case driver.KindUI:
			cfg := ui
			cfg.Profile = driver.ProfileFor(agent)
			cfg.Locators = locators
			return driver.NewUI(cfg), nil
		default:
			return nil, fmt.Errorf("unknown driver %q", kind)
		}
	}
}

// Ledger persists a run and its created bookings. *store.Store implements it.
type Ledger interface {
	teardown.Ledger
	BeginRun(ctx context.Context, r store.Run) error
}

// Config configures a Runner.
type Config struct {
	// Client performs admin calls and teardown. Required.
	Client      *booking.Client
	Credentials booking.Credentials

	Clock   dates.Clock
	RunIDs  RunIDGenerator
	Drivers DriverFactory

	ScenarioTimeout time.Duration
	TeardownTimeout time.Duration

	// Retries re-runs a failed unit from scratch, each time with a fresh
	// tracker.
	Retries int

	// Parallel bounds how many units run at once.
	Parallel int

	// Filter selects scenarios by name (path.Match pattern). Empty runs all.
	Filter string

	// Ledger is optional.
	Ledger Ledger

	Logger *slog.Logger
}

// Runner executes suites.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// NewRunner returns a runner with zero fields of cfg defaulted.
func NewRunner(cfg Config) *Runner {
	if cfg.Clock == nil {
		cfg.Clock = dates.SystemClock{}
	}
	if cfg.RunIDs == nil {
		cfg.RunIDs = UUIDv7Generator{}
	}
	if cfg.Drivers == nil {
		cfg.Drivers = APIDrivers(cfg.Client)
	}
	if cfg.ScenarioTimeout <= 0 {
		cfg.ScenarioTimeout = DefaultScenarioTimeout
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = teardown.DefaultTimeout
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{cfg: cfg, logger: cfg.Logger}
}

type unit struct {
	sc   *Scenario
	slot partition.Slot
}

// Run executes every selected scenario under every agent. With no agents
// given, the partition's agents are used. Units run scenario-major and the
// report lists them in that order, whatever order they finished in.
//
// A returned error means the run could not start; scenario failures are
// reported in the Report.
func (r *Runner) Run(ctx context.Context, suite *Suite, agents []string) (*Report, error) {
	plan := suite.Plan()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	if len(agents) == 0 {
		agents = plan.Agents
	}
	seen := make(map[string]bool, len(agents))
	for _, agent := range agents {
		if seen[agent] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAgent, agent)
		}
		seen[agent] = true
	}
	if _, err := path.Match(r.cfg.Filter, ""); err != nil {
		return nil, fmt.Errorf("filter %q: %w", r.cfg.Filter, err)
	}

	var units []unit
	for i := range suite.Scenarios {
		sc := &suite.Scenarios[i]
		if !r.selected(sc.Name) {
			continue
		}
		for _, agent := range agents {
			slot, err := plan.Parameters(sc.Name, agent)
			if err != nil {
				return nil, err
			}
			units = append(units, unit{sc: sc, slot: slot})
		}
	}

	runID := r.cfg.RunIDs.Generate()
	if r.cfg.Ledger != nil {
		err := r.cfg.Ledger.BeginRun(ctx, store.Run{
			ID:        runID,
			BaseURL:   r.cfg.Client.BaseURL(),
			Suite:     suite.Name,
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
	}

	r.logger.Info("suite started", "suite", suite.Name, "run_id", runID, "units", len(units))

	results := make([]*Result, len(units))
	var g errgroup.Group
	g.SetLimit(r.cfg.Parallel)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			results[i] = r.runUnit(ctx, runID, u, suite.Locators)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{RunID: runID, Suite: suite.Name, Results: results}
	report.tally()
	r.logger.Info("suite finished", "suite", suite.Name, "passed", report.Passed, "failed", report.Failed)
	return report, nil
}

func (r *Runner) selected(name string) bool {
	if r.cfg.Filter == "" {
		return true
	}
	ok, _ := path.Match(r.cfg.Filter, name)
	return ok
}

// runUnit runs u until it passes, its retries are spent or ctx is done.
func (r *Runner) runUnit(ctx context.Context, runID string, u unit, locators driver.Locators) *Result {
	start := time.Now()

	drv, err := r.cfg.Drivers(u.sc.Driver, u.slot.Agent, locators)
	if err != nil {
		res := NewResult(u.sc.Name, u.slot.Agent, u.sc.Driver)
		res.Slot = u.slot
		res.Attempts = 1
		res.Fail(fmt.Errorf("driver: %w", err))
		return res
	}
	if c, ok := drv.(io.Closer); ok {
		defer c.Close()
	}

	var res *Result
	for n := 1; ; n++ {
		res = r.attempt(ctx, runID, u, drv)
		res.Attempts = n
		if res.Pass || n > r.cfg.Retries || ctx.Err() != nil {
			break
		}
		r.logger.Info("retrying unit", "unit", res.Name(), "attempt", n, "kind", res.Kind)
	}
	res.Duration = time.Since(start)

	r.logger.Info("unit finished",
		"unit", res.Name(),
		"pass", res.Pass,
		"kind", res.Kind,
		"attempts", res.Attempts,
		"duration", res.Duration)
	return res
}

// attempt runs u once inside its own teardown scope.
func (r *Runner) attempt(ctx context.Context, runID string, u unit, drv driver.Driver) (res *Result) {
	res = NewResult(u.sc.Name, u.slot.Agent, drv.Name())
	res.Slot = u.slot

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ScenarioTimeout)
	defer cancel()

	var tracker *teardown.Tracker
	defer func() {
		if p := recover(); p != nil {
			res.Fail(fmt.Errorf("panic: %v", p))
		}
		if tracker != nil {
			res.Leaked = tracker.Leaked()
		}
	}()

	tcfg := teardown.Config{
		Client:      r.cfg.Client,
		Credentials: r.cfg.Credentials,
		Timeout:     r.cfg.TeardownTimeout,
		RunID:       runID,
		Logger:      r.logger.With("unit", res.Name()),
	}
	if r.cfg.Ledger != nil {
		tcfg.Ledger = r.cfg.Ledger
	}

	err := teardown.Scope(ctx, tcfg, func(t *teardown.Tracker) error {
		tracker = t
		a := &attempt{
			sc:      u.sc,
			slot:    u.slot,
			req:     r.request(u, runID),
			runID:   runID,
			drv:     drv,
			client:  r.cfg.Client,
			creds:   r.cfg.Credentials,
			tracker: t,
			res:     res,
			check:   checker{res: res},
		}
		return transitions[u.sc.Transition](ctx, a)
	})
	if err != nil {
		res.Fail(err)
	}
	return res
}

// request builds the unit's first submission on the unit's own slot.
func (r *Runner) request(u unit, runID string) booking.Request {
	today := r.cfg.Clock.Today()
	req := booking.NewRequest(today, booking.Options{
		RoomID:     u.slot.RoomID,
		StayLength: u.slot.StayLength,
		Email:      booking.UniqueEmail(u.sc.emailPrefix(), runID),
		Phone:      u.sc.Phone,
	})
	// Offset 0 is a valid slot, so the range is set here rather than
	// through Options.
	req.Stay = u.slot.Range(today)
	req.Guest = u.sc.guest()
	return req
}
