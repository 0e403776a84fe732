// Package partition assigns every (scenario, agent) pair its own room and
// date window on the shared booking backend.
//
// The backend has no tenant isolation, so two testers asking for the same
// room on overlapping nights get a spurious 409. Instead of coordinating at
// run time, each cell of the scenario × agent grid is given a fixed slot:
//
//	offset = BaseOffset + (scenarioIndex*len(Agents) + agentIndex) * Width
//	room   = Rooms[agentIndex % len(Rooms)]
//
// Because Width > StayLength, any two cells' stay ranges are disjoint with at
// least one free night between them, whatever rooms they land on. When a
// shared environment still collides, widen Width or move BaseOffset; never
// retry.
package partition

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/dates"
)

// Defaults for the grid. 500 days out is far beyond anything a human tester
// books by hand.
const (
	DefaultBaseOffset = 500
	DefaultWidth      = 20
)

var (
	// ErrUnknownScenario is returned for a scenario id the plan does not declare.
	ErrUnknownScenario = errors.New("unknown scenario")
	// ErrUnknownAgent is returned for an agent id the plan does not declare.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Plan is the partition of date offsets and rooms across scenarios and agents.
type Plan struct {
	BaseOffset int      `yaml:"base_offset" json:"base_offset"`
	Width      int      `yaml:"width" json:"width"`
	StayLength int      `yaml:"stay_length" json:"stay_length"`
	Agents     []string `yaml:"agents" json:"agents"`
	Rooms      []int    `yaml:"rooms" json:"rooms"`

	// Scenarios is filled from the suite, in declaration order.
	Scenarios []string `yaml:"-" json:"scenarios"`
}

// Slot is the parameters assigned to one cell.
type Slot struct {
	Scenario   string `json:"scenario"`
	Agent      string `json:"agent"`
	RoomID     int    `json:"room_id"`
	Offset     int    `json:"offset"`
	StayLength int    `json:"stay_length"`
}

// Range returns the stay the slot books, relative to today.
func (s Slot) Range(today time.Time) booking.StayRange {
	return booking.NewStayRange(today, s.Offset, s.StayLength)
}

// DefaultAgents mirrors the two browser engines the harness runs under.
var DefaultAgents = []string{"chromium", "firefox"}

// DefaultRooms gives each agent its own room.
var DefaultRooms = []int{1, 2}

// WithDefaults returns p with zero fields filled in.
func (p Plan) WithDefaults() Plan {
	if p.BaseOffset == 0 {
		p.BaseOffset = DefaultBaseOffset
	}
	if p.Width == 0 {
		p.Width = DefaultWidth
	}
	if p.StayLength == 0 {
		p.StayLength = booking.DefaultStayLength
	}
	if len(p.Agents) == 0 {
		p.Agents = append([]string(nil), DefaultAgents...)
	}
	if len(p.Rooms) == 0 {
		p.Rooms = append([]int(nil), DefaultRooms...)
	}
	return p
}

// Validate checks that the plan is well formed. A valid plan gives every
// cell a stay range disjoint from every other cell's.
func (p Plan) Validate() error {
	if p.BaseOffset < 0 {
		return fmt.Errorf("base_offset must be non-negative, got %d", p.BaseOffset)
	}
	if p.StayLength < 1 {
		return fmt.Errorf("stay_length must be at least 1, got %d", p.StayLength)
	}
	if p.Width <= p.StayLength {
		return fmt.Errorf("width %d must exceed stay_length %d", p.Width, p.StayLength)
	}
	if len(p.Scenarios) == 0 {
		return errors.New("at least one scenario is required")
	}
	if len(p.Agents) == 0 {
		return errors.New("at least one agent is required")
	}
	if len(p.Rooms) == 0 {
		return errors.New("at least one room is required")
	}
	if err := unique("scenario", p.Scenarios); err != nil {
		return err
	}
	if err := unique("agent", p.Agents); err != nil {
		return err
	}
	for i, r := range p.Rooms {
		if r < 1 {
			return fmt.Errorf("rooms[%d]: room id must be positive, got %d", i, r)
		}
	}
	return nil
}

func unique(kind string, names []string) error {
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			return fmt.Errorf("%s[%d]: name is required", kind, i)
		}
		if seen[n] {
			return fmt.Errorf("duplicate %s %q", kind, n)
		}
		seen[n] = true
	}
	return nil
}

// Parameters returns the slot for (scenario, agent).
func (p Plan) Parameters(scenario, agent string) (Slot, error) {
	si := indexOf(p.Scenarios, scenario)
	if si < 0 {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownScenario, scenario)
	}
	ai := indexOf(p.Agents, agent)
	if ai < 0 {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
	}
	return p.slot(si, ai), nil
}

func (p Plan) slot(si, ai int) Slot {
	return Slot{
		Scenario:   p.Scenarios[si],
		Agent:      p.Agents[ai],
		RoomID:     p.Rooms[ai%len(p.Rooms)],
		Offset:     p.BaseOffset + (si*len(p.Agents)+ai)*p.Width,
		StayLength: p.StayLength,
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// Table returns every cell, scenario-major.
func (p Plan) Table() []Slot {
	slots := make([]Slot, 0, len(p.Scenarios)*len(p.Agents))
	for si := range p.Scenarios {
		for ai := range p.Agents {
			slots = append(slots, p.slot(si, ai))
		}
	}
	return slots
}

// Render writes the table as aligned text, with stay ranges relative to today.
func (p Plan) Render(w io.Writer, today time.Time) error {
	sw, aw := len("SCENARIO"), len("AGENT")
	for _, s := range p.Scenarios {
		sw = max(sw, len(s))
	}
	for _, a := range p.Agents {
		aw = max(aw, len(a))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %-*s  %4s  %6s  %s\n", sw, "SCENARIO", aw, "AGENT", "ROOM", "OFFSET", "STAY")
	for _, s := range p.Table() {
		r := s.Range(today)
		fmt.Fprintf(&b, "%-*s  %-*s  %4d  %6d  %s -> %s\n", sw, s.Scenario, aw, s.Agent, s.RoomID, s.Offset,
			dates.FormatAPIDate(r.CheckIn), dates.FormatAPIDate(r.CheckOut))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
