// Package teardown guarantees that bookings a scenario creates are deleted
// when the scenario ends, however it ends.
//
// A scenario runs inside Scope. Every booking id the backend acknowledges is
// registered on the scope's Tracker before anything is asserted about it.
// When the scenario function returns, fails, panics or is cancelled, Scope
// logs in afresh as admin and deletes every id still tracked. Deletion is
// best-effort: failures are logged and swallowed, never reported as scenario
// failures.
//
// The drain runs on a context detached from the scenario's cancellation and
// bounded by its own timeout, so an aborted scenario still cleans up without
// being able to hang the run.
package teardown

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/dates"
	"github.com/roach88/staycheck/internal/store"
)

// DefaultTimeout bounds a drain when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Deleter is the subset of the booking client teardown needs.
type Deleter interface {
	Login(ctx context.Context, creds booking.Credentials) (booking.Session, error)
	Delete(ctx context.Context, id int, s booking.Session) (*booking.Response, error)
}

// Ledger persists created ids so a crashed run can be swept later.
// *store.Store implements it.
type Ledger interface {
	RecordCreated(ctx context.Context, e store.Entry) error
	MarkReleased(ctx context.Context, runID string, bookingID int) error
}

// Config describes how to clean up.
type Config struct {
	Client      Deleter
	Credentials booking.Credentials
	Timeout     time.Duration

	// RunID and Ledger are optional; without a ledger nothing is persisted.
	RunID  string
	Ledger Ledger

	Logger *slog.Logger
}

// Meta describes where a booking came from.
type Meta struct {
	Scenario string
	Agent    string
	RoomID   int
	Stay     booking.StayRange
}

// Tracker is a scenario's ordered set of booking ids awaiting deletion.
// Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	ids    []int
	meta   map[int]Meta
	leaked []int

	ctx    context.Context
	runID  string
	ledger Ledger
	logger *slog.Logger
}

func newTracker(ctx context.Context, cfg Config) *Tracker {
	return &Tracker{
		meta:   make(map[int]Meta),
		ctx:    context.WithoutCancel(ctx),
		runID:  cfg.RunID,
		ledger: cfg.Ledger,
		logger: cfg.Logger,
	}
}

// Register adds id. Registering the same id twice keeps one entry.
func (t *Tracker) Register(id int, meta Meta) {
	t.mu.Lock()
	if _, ok := t.meta[id]; ok {
		t.mu.Unlock()
		return
	}
	t.ids = append(t.ids, id)
	t.meta[id] = meta
	t.mu.Unlock()

	if t.ledger == nil {
		return
	}
	err := t.ledger.RecordCreated(t.ctx, store.Entry{
		RunID:     t.runID,
		BookingID: id,
		Scenario:  meta.Scenario,
		Agent:     meta.Agent,
		RoomID:    meta.RoomID,
		CheckIn:   dates.FormatAPIDate(meta.Stay.CheckIn),
		CheckOut:  dates.FormatAPIDate(meta.Stay.CheckOut),
	})
	if err != nil {
		t.logger.Warn("ledger write failed", "booking_id", id, "error", err)
	}
}

// Release drops id because the scenario deleted it itself.
func (t *Tracker) Release(id int) {
	if !t.remove(id) {
		return
	}
	t.markReleased(id)
}

// IDs returns the tracked ids in registration order.
func (t *Tracker) IDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.ids...)
}

// Leaked returns the ids the last drain could not delete.
func (t *Tracker) Leaked() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.leaked...)
}

func (t *Tracker) remove(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.meta[id]; !ok {
		return false
	}
	delete(t.meta, id)
	for i, v := range t.ids {
		if v == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return true
}

func (t *Tracker) markReleased(id int) {
	if t.ledger == nil {
		return
	}
	if err := t.ledger.MarkReleased(t.ctx, t.runID, id); err != nil {
		t.logger.Warn("ledger release failed", "booking_id", id, "error", err)
	}
}

// Scope runs fn with a fresh Tracker and drains it on every exit path.
// It returns fn's error unchanged; a panic in fn is re-raised after the drain.
func Scope(ctx context.Context, cfg Config, fn func(*Tracker) error) error {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	t := newTracker(ctx, cfg)
	defer func() {
		r := recover()
		drain(ctx, cfg, t)
		if r != nil {
			panic(r)
		}
	}()

	return fn(t)
}

// drain deletes every id t still tracks using a fresh admin session. Ids that
// cannot be deleted are logged and recorded in t.Leaked.
func drain(ctx context.Context, cfg Config, t *Tracker) {
	ids := t.IDs()
	if len(ids) == 0 {
		return
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Timeout)
	defer cancel()

	session, err := cfg.Client.Login(dctx, cfg.Credentials)
	if err != nil {
		cfg.Logger.Warn("teardown login failed", "ids", ids, "error", err)
		t.setLeaked(ids)
		return
	}

	var leaked []int
	for _, id := range ids {
		if err := deleteOne(dctx, cfg.Client, id, session); err != nil {
			cfg.Logger.Warn("teardown delete failed", "booking_id", id, "error", err)
			leaked = append(leaked, id)
			continue
		}
		t.remove(id)
		t.markReleased(id)
		cfg.Logger.Debug("teardown deleted booking", "booking_id", id)
	}
	t.setLeaked(leaked)
}

// deleteOne treats 404 as success: the booking is gone either way.
func deleteOne(ctx context.Context, c Deleter, id int, s booking.Session) error {
	resp, err := c.Delete(ctx, id, s)
	if err != nil {
		return err
	}
	switch resp.Status {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("delete booking %d: status %d", id, resp.Status)
	}
}

func (t *Tracker) setLeaked(ids []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaked = ids
}
