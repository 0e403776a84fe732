package partition

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/staycheck/internal/dates"
	"github.com/roach88/staycheck/internal/testutil"
)

var suiteScenarios = []string{
	"ui-happy", "ui-invalid-names", "ui-double-booking",
	"api-reject", "api-conflict", "api-round-trip",
}

func defaultPlan() Plan {
	return Plan{Scenarios: suiteScenarios}.WithDefaults()
}

func TestParameters_DefaultOffsets(t *testing.T) {
	p := defaultPlan()
	require.NoError(t, p.Validate())

	tests := []struct {
		scenario string
		agent    string
		room     int
		offset   int
	}{
		{"ui-happy", "chromium", 1, 500},
		{"ui-happy", "firefox", 2, 520},
		{"ui-invalid-names", "chromium", 1, 540},
		{"ui-invalid-names", "firefox", 2, 560},
		{"ui-double-booking", "chromium", 1, 580},
		{"ui-double-booking", "firefox", 2, 600},
		{"api-round-trip", "firefox", 2, 720},
	}

	for _, tt := range tests {
		t.Run(tt.scenario+"/"+tt.agent, func(t *testing.T) {
			slot, err := p.Parameters(tt.scenario, tt.agent)
			require.NoError(t, err)
			assert.Equal(t, tt.room, slot.RoomID)
			assert.Equal(t, tt.offset, slot.Offset)
			assert.Equal(t, 2, slot.StayLength)
		})
	}
}

func TestParameters_Deterministic(t *testing.T) {
	a, err := defaultPlan().Parameters("api-conflict", "chromium")
	require.NoError(t, err)
	b, err := defaultPlan().Parameters("api-conflict", "chromium")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParameters_UnknownIDs(t *testing.T) {
	p := defaultPlan()

	_, err := p.Parameters("nope", "chromium")
	assert.ErrorIs(t, err, ErrUnknownScenario)

	_, err = p.Parameters("ui-happy", "webkit")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Plan)
		wantErr string
	}{
		{"default", func(*Plan) {}, ""},
		{"width equals stay", func(p *Plan) { p.Width = 2 }, "width 2 must exceed stay_length 2"},
		{"negative base", func(p *Plan) { p.BaseOffset = -1 }, "base_offset must be non-negative"},
		{"no scenarios", func(p *Plan) { p.Scenarios = nil }, "at least one scenario"},
		{"no agents", func(p *Plan) { p.Agents = nil }, "at least one agent"},
		{"no rooms", func(p *Plan) { p.Rooms = nil }, "at least one room"},
		{"duplicate agent", func(p *Plan) { p.Agents = []string{"a", "a"} }, `duplicate agent "a"`},
		{"duplicate scenario", func(p *Plan) { p.Scenarios = []string{"x", "x"} }, `duplicate scenario "x"`},
		{"bad room", func(p *Plan) { p.Rooms = []int{1, 0} }, "rooms[1]: room id must be positive"},
		{"zero stay", func(p *Plan) { p.StayLength = 0 }, "stay_length must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultPlan()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTable_CoversEveryCell(t *testing.T) {
	p := defaultPlan()
	table := p.Table()
	require.Len(t, table, len(suiteScenarios)*2)

	for _, slot := range table {
		got, err := p.Parameters(slot.Scenario, slot.Agent)
		require.NoError(t, err)
		assert.Equal(t, got, slot)
	}
}

func TestRender_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, defaultPlan().Render(&buf, testutil.DefaultToday))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "default_plan", buf.Bytes())
}

// Every valid plan keeps all cells at least one free night apart, on any room.
func TestPlan_CellsNeverOverlap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		stay := rapid.IntRange(1, 14).Draw(t, "stay")
		p := Plan{
			BaseOffset: rapid.IntRange(0, 5000).Draw(t, "base"),
			StayLength: stay,
			Width:      rapid.IntRange(stay+1, stay+30).Draw(t, "width"),
			Scenarios:  names("s", rapid.IntRange(1, 8).Draw(t, "scenarios")),
			Agents:     names("a", rapid.IntRange(1, 4).Draw(t, "agents")),
			Rooms:      rapid.SliceOfN(rapid.IntRange(1, 3), 1, 3).Draw(t, "rooms"),
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("generated plan invalid: %v", err)
		}

		today := testutil.DefaultToday
		table := p.Table()
		for i := range table {
			ri := table[i].Range(today)
			for j := i + 1; j < len(table); j++ {
				rj := table[j].Range(today)
				if ri.Overlaps(rj) {
					t.Fatalf("%v and %v overlap", table[i], table[j])
				}
				gap := dates.DaysBetween(ri.CheckOut, rj.CheckIn)
				if gap < 0 {
					gap = dates.DaysBetween(rj.CheckOut, ri.CheckIn)
				}
				if gap < 1 {
					t.Fatalf("%v and %v have no free night between them", table[i], table[j])
				}
			}
		}
	})
}

func names(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}
