package store

import (
	"context"
	"fmt"
)

// Run identifies one harness invocation.
type Run struct {
	ID        string
	BaseURL   string
	Suite     string
	StartedAt string // RFC 3339, informational only
}

// Entry is one created booking.
type Entry struct {
	RunID     string
	BookingID int
	Scenario  string
	Agent     string
	RoomID    int
	CheckIn   string // YYYY-MM-DD
	CheckOut  string // YYYY-MM-DD
}

// BeginRun records a run. Entries must reference an existing run.
// Uses ON CONFLICT(id) DO NOTHING, so retrying with the same id is harmless.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, base_url, suite, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.ID, r.BaseURL, r.Suite, r.StartedAt)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordCreated adds a booking to the ledger as pending.
// Recording the same (run, booking) twice is a no-op.
func (s *Store) RecordCreated(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO created_bookings
		(run_id, booking_id, scenario, agent, room_id, checkin, checkout)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, booking_id) DO NOTHING
	`,
		e.RunID,
		e.BookingID,
		e.Scenario,
		e.Agent,
		e.RoomID,
		e.CheckIn,
		e.CheckOut,
	)
	if err != nil {
		return fmt.Errorf("record booking %d: %w", e.BookingID, err)
	}
	return nil
}

// MarkReleased flags a booking as deleted. Unknown ids are ignored.
func (s *Store) MarkReleased(ctx context.Context, runID string, bookingID int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE created_bookings SET released = 1
		WHERE run_id = ? AND booking_id = ?
	`, runID, bookingID)
	if err != nil {
		return fmt.Errorf("release booking %d: %w", bookingID, err)
	}
	return nil
}

// Pending returns bookings created against baseURL that were never released,
// oldest first.
func (s *Store) Pending(ctx context.Context, baseURL string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.run_id, b.booking_id, b.scenario, b.agent, b.room_id, b.checkin, b.checkout
		FROM created_bookings b
		JOIN runs r ON r.id = b.run_id
		WHERE b.released = 0 AND r.base_url = ?
		ORDER BY b.seq ASC
	`, baseURL)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.BookingID, &e.Scenario, &e.Agent, &e.RoomID, &e.CheckIn, &e.CheckOut); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	return entries, nil
}
