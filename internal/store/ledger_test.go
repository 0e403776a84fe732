package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(run string, id int) Entry {
	return Entry{
		RunID:     run,
		BookingID: id,
		Scenario:  "api-round-trip",
		Agent:     "chromium",
		RoomID:    1,
		CheckIn:   "2028-09-15",
		CheckOut:  "2028-09-17",
	}
}

func TestLedger_PendingUntilReleased(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", BaseURL: "http://a", Suite: "default", StartedAt: "2026-10-16T09:00:00Z"}))
	require.NoError(t, s.RecordCreated(ctx, entry("run-1", 11)))
	require.NoError(t, s.RecordCreated(ctx, entry("run-1", 12)))

	pending, err := s.Pending(ctx, "http://a")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, entry("run-1", 11), pending[0])
	assert.Equal(t, 12, pending[1].BookingID)

	require.NoError(t, s.MarkReleased(ctx, "run-1", 11))

	pending, err = s.Pending(ctx, "http://a")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 12, pending[0].BookingID)
}

func TestLedger_RecordIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", BaseURL: "http://a", Suite: "default"}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", BaseURL: "http://a", Suite: "default"}))
	require.NoError(t, s.RecordCreated(ctx, entry("run-1", 5)))
	require.NoError(t, s.RecordCreated(ctx, entry("run-1", 5)))

	pending, err := s.Pending(ctx, "http://a")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestLedger_PendingIsScopedToBaseURL(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-a", BaseURL: "http://a", Suite: "default"}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-b", BaseURL: "http://b", Suite: "default"}))
	require.NoError(t, s.RecordCreated(ctx, entry("run-a", 1)))
	require.NoError(t, s.RecordCreated(ctx, entry("run-b", 1)))

	pending, err := s.Pending(ctx, "http://b")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "run-b", pending[0].RunID)
}

func TestLedger_MarkReleasedUnknownIsIgnored(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.MarkReleased(context.Background(), "nope", 99))
}
