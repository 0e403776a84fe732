package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/driver"
	"github.com/roach88/staycheck/internal/testutil"
)

func TestClassify(t *testing.T) {
	req := booking.NewRequest(testutil.DefaultToday, booking.Options{})
	collision := &booking.CollisionError{Request: req, Status: 409}
	assertion := &AssertionError{Type: "submit_status", Expected: "status 409", Actual: "status 201"}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"assertion", assertion, KindAssertion},
		{"wrapped assertion", fmt.Errorf("conflict: %w", assertion), KindAssertion},
		{"collision", collision, KindCollision},
		{"wrapped collision", fmt.Errorf("submit: %w", collision), KindCollision},
		{"deadline", fmt.Errorf("submit: %w", context.DeadlineExceeded), KindTimeout},
		{"other", errors.New("connection refused"), KindError},
		{"login status", &booking.StatusError{Op: "login", Expected: 200, Status: 401}, KindError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestAssertionError_Error(t *testing.T) {
	res := NewResult("api-conflict", "chromium", "api")
	res.AddRequestTrace("submit", "api", map[string]any{"room": 1})
	res.AddResponseTrace("submit", "api", 201, map[string]any{"booking_id": 3})

	err := checker{res: res}.status("submit", 409, 201)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: submit_status")
	assert.Contains(t, msg, "Expected: status 409")
	assert.Contains(t, msg, "Actual: status 201")
	assert.Contains(t, msg, "[1] api submit map[room:1]")
	assert.Contains(t, msg, "[2]   -> 201 map[booking_id:3]")
}

func TestAssertionError_TraceIsSnapshot(t *testing.T) {
	res := NewResult("s", "a", "api")
	res.AddRequestTrace("submit", "api", nil)
	err := checker{res: res}.fail("x", "y", "z")
	res.AddResponseTrace("submit", "api", 201, nil)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Len(t, ae.Trace, 1)
}

func TestChecker(t *testing.T) {
	c := checker{res: NewResult("s", "a", "api")}
	stay := booking.NewStayRange(testutil.DefaultToday, 500, 2)

	assert.NoError(t, c.status("submit", 201, 201))
	assert.Error(t, c.status("submit", 201, 409))

	assert.NoError(t, c.noBooking("submit", driver.Outcome{Status: 409}))
	assert.Error(t, c.noBooking("submit", driver.Outcome{Status: 409, BookingID: 4}))
	assert.Error(t, c.noBooking("submit", driver.Outcome{Status: 409, Rendered: true, Confirmed: true}))

	// API outcomes have no page to check.
	assert.NoError(t, c.confirmed(driver.Outcome{Status: 201}, stay))
	assert.NoError(t, c.confirmed(driver.Outcome{Rendered: true, Confirmed: true, ConfirmedRange: "2028-02-28 - 2028-03-01"}, stay))
	assert.Error(t, c.confirmed(driver.Outcome{Rendered: true}, stay))
	assert.Error(t, c.confirmed(driver.Outcome{Rendered: true, Confirmed: true, ConfirmedRange: "2028-02-27 - 2028-03-01"}, stay))

	msg := booking.NameLengthMessage
	assert.NoError(t, c.message(driver.Outcome{Errors: []string{msg}}, msg))
	assert.NoError(t, c.message(driver.Outcome{Rendered: true, Text: "Oops\n" + msg + "\n"}, msg))
	assert.Error(t, c.message(driver.Outcome{Text: msg}, msg))
	assert.Error(t, c.message(driver.Outcome{Errors: []string{"must not be empty"}}, msg))

	req := booking.NewRequest(testutil.DefaultToday, booking.Options{DateOffset: 500})
	assert.Error(t, c.record(nil, req))
	rec := &booking.Record{BookingID: 1, RoomID: 1, FirstName: "PKQA", LastName: "QATest", Stay: req.Stay}
	assert.NoError(t, c.record(rec, req))
	rec.LastName = "Other"
	assert.Error(t, c.record(rec, req))

	assert.Error(t, c.confirmed(driver.Outcome{
		Rendered:       true,
		Confirmed:      true,
		ConfirmedRange: "2028-02-28 - 2028-03-01",
		Missing:        []string{`"Return Home" link`},
	}, stay))
}

func TestChecker_DecodedKeepsCause(t *testing.T) {
	c := checker{res: NewResult("s", "a", "api")}

	_, err := c.decoded(&booking.Response{Status: 200, Body: []byte("<html>maintenance</html>")})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "read_record", ae.Type)
	assert.Contains(t, ae.Actual, "decode booking record")

	rec, err := c.decoded(&booking.Response{Status: 200, Body: []byte(`{"bookingid":3,"roomid":1,"firstname":"PKQA"}`)})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.BookingID)
	assert.Equal(t, "PKQA", rec.FirstName)
}
