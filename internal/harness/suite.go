package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/driver"
	"github.com/roach88/staycheck/internal/partition"
)

// Suite is a set of scenarios sharing one partition of the booking calendar.
type Suite struct {
	// Name identifies the suite in reports and the ledger.
	Name string `yaml:"name"`

	// Description explains what the suite covers.
	Description string `yaml:"description"`

	// Partition assigns each scenario × agent its room and dates.
	// Scenarios are taken from the scenario list, in order.
	Partition partition.Plan `yaml:"partition"`

	// Locators override how the UI driver finds page elements.
	Locators driver.Locators `yaml:"locators,omitempty"`

	// Scenarios each drive one state transition.
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario drives one transition of the booking state machine.
type Scenario struct {
	// Name uniquely identifies this scenario and selects its partition slot.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Driver is "api" or "ui".
	Driver string `yaml:"driver"`

	// Transition is one of reserve, reject, conflict, round_trip.
	Transition string `yaml:"transition"`

	// Guest books the first submission. Defaults to PKQA QATest.
	Guest *GuestSpec `yaml:"guest,omitempty"`

	// SecondGuest makes the conflicting submission. Defaults to Charlie Parker.
	SecondGuest *GuestSpec `yaml:"second_guest,omitempty"`

	// EmailPrefix starts each generated guest email. Defaults to "pk".
	EmailPrefix string `yaml:"email_prefix,omitempty"`

	// Phone defaults to 01234567890.
	Phone string `yaml:"phone,omitempty"`

	// Expect overrides the transition's expected outcome.
	Expect *ExpectSpec `yaml:"expect,omitempty"`

	// ProbeAvailable makes a reject scenario follow up with a valid
	// submission for the same range, which must be accepted.
	ProbeAvailable bool `yaml:"probe_available,omitempty"`
}

// GuestSpec names a guest.
type GuestSpec struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// ExpectSpec overrides the decisive outcome of a transition.
type ExpectSpec struct {
	// Status of the decisive submission: 201 reserve, 400 reject,
	// 409 conflict.
	Status int `yaml:"status,omitempty"`

	// Error text a rejection must carry.
	Error string `yaml:"error,omitempty"`
}

// Transition names.
const (
	TransitionReserve   = "reserve"
	TransitionReject    = "reject"
	TransitionConflict  = "conflict"
	TransitionRoundTrip = "round_trip"
)

//go:embed default_suite.yaml
var defaultSuiteYAML []byte

// DefaultSuite returns the built-in suite: the UI happy path, short names and
// double booking, plus API rejection, conflict and round trip.
func DefaultSuite() *Suite {
	s, err := ParseSuite(defaultSuiteYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default suite: %v", err))
	}
	return s
}

// LoadSuite reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite parses suite YAML.
func ParseSuite(data []byte) (*Suite, error) {
	// Strict field validation catches typos like "scenario:" vs "scenarios:"
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &suite, nil
}

// Plan returns the suite's partition with defaults applied and the scenario
// names filled in.
func (s *Suite) Plan() partition.Plan {
	p := s.Partition.WithDefaults()
	p.Scenarios = make([]string, len(s.Scenarios))
	for i, sc := range s.Scenarios {
		p.Scenarios[i] = sc.Name
	}
	return p
}

// validateSuite checks that required fields are present and valid.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Scenarios) == 0 {
		return fmt.Errorf("scenarios list is required and must be non-empty")
	}

	for i, sc := range s.Scenarios {
		if err := validateScenario(&sc); err != nil {
			return fmt.Errorf("scenarios[%d]: %w", i, err)
		}
	}

	if err := s.Plan().Validate(); err != nil {
		return fmt.Errorf("partition: %w", err)
	}
	return nil
}

// validateScenario checks one scenario.
func validateScenario(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Description == "" {
		return fmt.Errorf("%s: description is required", sc.Name)
	}

	switch sc.Driver {
	case driver.KindAPI, driver.KindUI:
	default:
		return fmt.Errorf("%s: unknown driver %q", sc.Name, sc.Driver)
	}

	switch sc.Transition {
	case TransitionReserve, TransitionConflict, TransitionRoundTrip:
	case TransitionReject:
		g := sc.guest()
		if booking.ValidName(g.FirstName) && booking.ValidName(g.LastName) {
			return fmt.Errorf("%s: reject needs a guest name outside [%d,%d] characters",
				sc.Name, booking.MinNameLength, booking.MaxNameLength)
		}
	default:
		return fmt.Errorf("%s: unknown transition %q", sc.Name, sc.Transition)
	}

	if sc.ProbeAvailable && sc.Transition != TransitionReject {
		return fmt.Errorf("%s: probe_available only applies to reject", sc.Name)
	}
	if sc.Expect != nil && sc.Expect.Status != 0 && (sc.Expect.Status < 100 || sc.Expect.Status > 599) {
		return fmt.Errorf("%s: expect.status %d is not an HTTP status", sc.Name, sc.Expect.Status)
	}
	return nil
}

func (sc *Scenario) guest() booking.Guest {
	if sc.Guest == nil {
		return booking.Guest{FirstName: booking.DefaultFirstName, LastName: booking.DefaultLastName}
	}
	return booking.Guest{FirstName: sc.Guest.FirstName, LastName: sc.Guest.LastName}
}

func (sc *Scenario) secondGuest() booking.Guest {
	if sc.SecondGuest == nil {
		return booking.Guest{FirstName: "Charlie", LastName: "Parker"}
	}
	return booking.Guest{FirstName: sc.SecondGuest.FirstName, LastName: sc.SecondGuest.LastName}
}

func (sc *Scenario) emailPrefix() string {
	if sc.EmailPrefix == "" {
		return "pk"
	}
	return sc.EmailPrefix
}

// expectedStatus is the status of the submission that decides the scenario.
func (sc *Scenario) expectedStatus() int {
	if sc.Expect != nil && sc.Expect.Status != 0 {
		return sc.Expect.Status
	}
	switch sc.Transition {
	case TransitionReject:
		return 400
	case TransitionConflict:
		return 409
	default:
		return 201
	}
}

func (sc *Scenario) expectedError() string {
	if sc.Expect != nil && sc.Expect.Error != "" {
		return sc.Expect.Error
	}
	return booking.NameLengthMessage
}
