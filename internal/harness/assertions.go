package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/driver"
)

// Kind classifies why a unit failed.
type Kind string

// Failure kinds. A collision is a create the shared environment refused,
// most likely because another tester holds the range; it is reported apart
// from assertion failures so the two are never confused.
const (
	KindCollision Kind = "collision"
	KindAssertion Kind = "assertion"
	KindTimeout   Kind = "timeout"
	KindError     Kind = "error"
)

// Classify returns the Kind of err.
func Classify(err error) Kind {
	var ae *AssertionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ae):
		return KindAssertion
	case booking.IsCollision(err):
		return KindCollision
	case booking.IsTimeout(err):
		return KindTimeout
	default:
		return KindError
	}
}

// AssertionError is returned when an observed outcome is not the one the
// transition requires. It includes the trace so far to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace up to the failing check
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventRequest:
				fmt.Fprintf(&buf, "  [%d] %s %s %v\n", event.Seq, event.Driver, event.Action, event.Args)
			case EventResponse:
				fmt.Fprintf(&buf, "  [%d]   -> %d %v\n", event.Seq, event.Status, event.Result)
			}
		}
	}

	return buf.String()
}

// checker builds assertion errors carrying the result's trace.
type checker struct {
	res *Result
}

func (c checker) fail(typ, expected, actual string) error {
	return &AssertionError{
		Type:     typ,
		Expected: expected,
		Actual:   actual,
		Trace:    slices.Clone(c.res.Trace),
	}
}

// status checks the status a submission or call returned.
func (c checker) status(action string, want, got int) error {
	if want == got {
		return nil
	}
	return c.fail(action+"_status", fmt.Sprintf("status %d", want), fmt.Sprintf("status %d", got))
}

// noBooking checks that a refused submission left no booking behind and
// showed no confirmation.
func (c checker) noBooking(action string, out driver.Outcome) error {
	if out.BookingID != 0 {
		return c.fail(action+"_no_booking", "no booking id", fmt.Sprintf("booking id %d", out.BookingID))
	}
	if out.Rendered && out.Confirmed {
		return c.fail(action+"_no_confirmation", "no confirmation shown", "confirmation shown")
	}
	return nil
}

// confirmed checks that an accepted UI submission rendered the confirmation
// with the booked range. API outcomes have nothing rendered and pass.
func (c checker) confirmed(out driver.Outcome, stay booking.StayRange) error {
	if !out.Rendered {
		return nil
	}
	if !out.Confirmed {
		return c.fail("confirmation", "confirmation shown", "no confirmation")
	}
	if out.ConfirmedRange != stay.String() {
		return c.fail("confirmation_dates", stay.String(), fmt.Sprintf("%q", out.ConfirmedRange))
	}
	if len(out.Missing) > 0 {
		return c.fail("confirmation_details", "confirmation message and link shown",
			"missing "+strings.Join(out.Missing, ", "))
	}
	return nil
}

// message checks that a rejection carries msg, in the API error list or in
// the rendered page text.
func (c checker) message(out driver.Outcome, msg string) error {
	if slices.Contains(out.Errors, msg) {
		return nil
	}
	if out.Rendered && strings.Contains(out.Text, msg) {
		return nil
	}
	return c.fail("error_message", fmt.Sprintf("%q in errors", msg), fmt.Sprintf("%q", out.Errors))
}

// decoded returns the record in a read response, failing with the decode
// error when the body is not one.
func (c checker) decoded(resp *booking.Response) (*booking.Record, error) {
	rec, err := resp.Record()
	if err != nil {
		return nil, c.fail("read_record", "booking record", err.Error())
	}
	return rec, nil
}

// record checks that a read-back record matches what was submitted.
func (c checker) record(rec *booking.Record, req booking.Request) error {
	if rec == nil {
		return c.fail("read_record", "booking record", "no record in body")
	}
	if !rec.Matches(req) {
		return c.fail("read_record",
			fmt.Sprintf("%s %s, room %d, %s", req.Guest.FirstName, req.Guest.LastName, req.RoomID, req.Stay),
			fmt.Sprintf("%s %s, room %d, %s", rec.FirstName, rec.LastName, rec.RoomID, rec.Stay))
	}
	return nil
}
