package harness

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/dates"
	"github.com/roach88/staycheck/internal/driver"
	"github.com/roach88/staycheck/internal/partition"
	"github.com/roach88/staycheck/internal/teardown"
)

// attempt is one execution of a scenario unit. Every call it makes is traced
// on res, and every booking the backend acknowledges is registered on tracker
// before anything is asserted about it.
type attempt struct {
	sc      *Scenario
	slot    partition.Slot
	req     booking.Request
	runID   string
	drv     driver.Driver
	client  *booking.Client
	creds   booking.Credentials
	tracker *teardown.Tracker
	res     *Result
	check   checker
}

type transition func(ctx context.Context, a *attempt) error

var transitions = map[string]transition{
	TransitionReserve:   reserve,
	TransitionReject:    reject,
	TransitionConflict:  conflict,
	TransitionRoundTrip: roundTrip,
}

// reserve drives Available -> Reserved.
func reserve(ctx context.Context, a *attempt) error {
	out, err := a.submit(ctx, "submit", a.req)
	if err != nil {
		return err
	}
	if want := a.sc.expectedStatus(); want != http.StatusCreated {
		return a.check.status("submit", want, out.Status)
	}
	if err := a.created(out, a.req); err != nil {
		return err
	}
	if out.Record != nil {
		if err := a.check.record(out.Record, a.req); err != nil {
			return err
		}
	}
	return a.check.confirmed(out, a.req.Stay)
}

// reject drives Available -> Rejected with an out-of-range guest name.
func reject(ctx context.Context, a *attempt) error {
	out, err := a.submit(ctx, "submit", a.req)
	if err != nil {
		return err
	}
	if err := a.check.status("submit", a.sc.expectedStatus(), out.Status); err != nil {
		return err
	}
	if err := a.check.message(out, a.sc.expectedError()); err != nil {
		return err
	}
	if err := a.check.noBooking("submit", out); err != nil {
		return err
	}
	if !a.sc.ProbeAvailable {
		return nil
	}

	// The range must still be free.
	probe := a.req.
		WithGuest(booking.Guest{FirstName: booking.DefaultFirstName, LastName: booking.DefaultLastName}).
		WithEmail(booking.UniqueEmail(a.sc.emailPrefix(), a.runID))
	pout, err := a.submit(ctx, "probe", probe)
	if err != nil {
		return err
	}
	return a.check.status("probe", http.StatusCreated, pout.Status)
}

// conflict drives Reserved -> Conflict: a second guest for a held range.
func conflict(ctx context.Context, a *attempt) error {
	first, err := a.submit(ctx, "submit", a.req)
	if err != nil {
		return err
	}
	if err := a.created(first, a.req); err != nil {
		return err
	}
	if err := a.check.confirmed(first, a.req.Stay); err != nil {
		return err
	}

	second := a.req.
		WithGuest(a.sc.secondGuest()).
		WithEmail(booking.UniqueEmail(a.sc.emailPrefix(), a.runID))
	out, err := a.submit(ctx, "submit", second)
	if err != nil {
		return err
	}
	if err := a.check.status("submit", a.sc.expectedStatus(), out.Status); err != nil {
		return err
	}
	return a.check.noBooking("submit", out)
}

// roundTrip drives Reserved -> Deleted -> absent through the admin API.
func roundTrip(ctx context.Context, a *attempt) error {
	out, err := a.submit(ctx, "submit", a.req)
	if err != nil {
		return err
	}
	if err := a.created(out, a.req); err != nil {
		return err
	}
	id := out.BookingID

	a.res.AddRequestTrace("login", "", nil)
	session, err := a.client.Login(ctx, a.creds)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	a.res.AddResponseTrace("login", "", http.StatusOK, nil)

	read, err := a.call(ctx, "read", id, session, a.client.Read)
	if err != nil {
		return err
	}
	if err := a.check.status("read", http.StatusOK, read.Status); err != nil {
		return err
	}
	rec, err := a.check.decoded(read)
	if err != nil {
		return err
	}
	if err := a.check.record(rec, a.req); err != nil {
		return err
	}

	del, err := a.call(ctx, "delete", id, session, a.client.Delete)
	if err != nil {
		return err
	}
	if err := a.check.status("delete", http.StatusOK, del.Status); err != nil {
		return err
	}
	a.tracker.Release(id)

	gone, err := a.call(ctx, "read", id, session, a.client.Read)
	if err != nil {
		return err
	}
	if err := a.check.status("read", http.StatusNotFound, gone.Status); err != nil {
		return err
	}

	// Deleting again is tolerated whatever it answers.
	if _, err := a.call(ctx, "delete", id, session, a.client.Delete); err != nil {
		return err
	}
	return nil
}

// submit sends req through the unit's driver, registering any booking it
// creates before returning.
func (a *attempt) submit(ctx context.Context, action string, req booking.Request) (driver.Outcome, error) {
	name := a.drv.Name()
	a.res.AddRequestTrace(action, name, submitArgs(req))

	out, err := a.drv.Submit(ctx, req)
	if out.BookingID != 0 {
		room := req.RoomID
		if out.RoomID != 0 {
			room = out.RoomID
		}
		a.tracker.Register(out.BookingID, teardown.Meta{
			Scenario: a.sc.Name,
			Agent:    a.slot.Agent,
			RoomID:   room,
			Stay:     req.Stay,
		})
	}
	if err != nil {
		return out, fmt.Errorf("%s %s: %w", action, req.Diagnostic(), err)
	}

	a.res.AddResponseTrace(action, name, out.Status, outcomeResult(out))
	return out, nil
}

// created turns anything but an acknowledged create into a CollisionError.
func (a *attempt) created(out driver.Outcome, req booking.Request) error {
	if out.Created() {
		return nil
	}
	return &booking.CollisionError{Request: req, Status: out.Status, Body: string(out.Body)}
}

type byID func(ctx context.Context, id int, s booking.Session) (*booking.Response, error)

// call traces one admin call against a booking id.
func (a *attempt) call(ctx context.Context, action string, id int, s booking.Session, fn byID) (*booking.Response, error) {
	args := map[string]any{"booking_id": id}
	a.res.AddRequestTrace(action, "", args)
	resp, err := fn(ctx, id, s)
	if err != nil {
		return nil, fmt.Errorf("%s booking %d: %w", action, id, err)
	}
	a.res.AddResponseTrace(action, "", resp.Status, nil)
	return resp, nil
}

func submitArgs(req booking.Request) map[string]any {
	return map[string]any{
		"room":      req.RoomID,
		"checkin":   dates.FormatAPIDate(req.Stay.CheckIn),
		"checkout":  dates.FormatAPIDate(req.Stay.CheckOut),
		"firstname": req.Guest.FirstName,
		"lastname":  req.Guest.LastName,
	}
}

// outcomeResult is the traced part of an outcome; nil when there is nothing
// beyond the status.
func outcomeResult(out driver.Outcome) any {
	m := map[string]any{}
	if out.BookingID != 0 {
		m["booking_id"] = out.BookingID
	}
	if len(out.Errors) > 0 {
		m["errors"] = out.Errors
	}
	if out.Rendered {
		m["confirmed"] = out.Confirmed
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
