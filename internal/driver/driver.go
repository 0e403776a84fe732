// Package driver submits booking requests to the system under test and
// reports what was observed.
//
// Two drivers exist. API posts straight to /api/booking. UI goes through the
// rendered site in a real browser and captures the POST /api/booking the page
// fires. The state-machine checks in package harness are written once against
// the Driver interface and run unchanged over either.
package driver

import (
	"context"
	"net/http"

	"github.com/roach88/staycheck/internal/booking"
)

// Driver names.
const (
	KindAPI = "api"
	KindUI  = "ui"
)

// Driver submits a booking and reports the outcome.
type Driver interface {
	Name() string
	Submit(ctx context.Context, req booking.Request) (Outcome, error)
}

// Outcome is what one submission produced. A non-2xx status is an outcome,
// not an error; errors are reserved for transport failures and timeouts.
type Outcome struct {
	Status    int             `json:"status"`
	BookingID int             `json:"booking_id,omitempty"`
	Record    *booking.Record `json:"-"`
	Body      []byte          `json:"-"`
	Errors    []string        `json:"errors,omitempty"`

	// RoomID is the room booked by a driver that picks rooms itself; zero
	// means the requested room.
	RoomID int `json:"room_id,omitempty"`

	// Rendered is true when the driver observed a page. Confirmed,
	// ConfirmedRange and Text are only meaningful then.
	Rendered       bool   `json:"rendered,omitempty"`
	Confirmed      bool   `json:"confirmed,omitempty"`
	ConfirmedRange string `json:"confirmed_range,omitempty"`
	Text           string `json:"-"`
	URL            string `json:"url,omitempty"`

	// Missing lists parts of the confirmation page that were absent even
	// though the confirmation heading was shown.
	Missing []string `json:"missing,omitempty"`
}

// Created reports whether the backend acknowledged a new booking.
func (o Outcome) Created() bool {
	return o.Status == http.StatusCreated && o.BookingID != 0
}

// fromResponse fills the status, body and decoded parts of an outcome.
func fromResponse(status int, body []byte) Outcome {
	resp := booking.Response{Status: status, Body: body}
	out := Outcome{Status: status, Body: body, Errors: resp.Errors()}
	if status == http.StatusCreated {
		if rec, err := resp.Record(); err == nil {
			out.Record = rec
			out.BookingID = rec.BookingID
		}
	}
	return out
}

// API drives the REST endpoint directly.
type API struct {
	client *booking.Client
}

// NewAPI returns a driver that submits through c.
func NewAPI(c *booking.Client) *API {
	return &API{client: c}
}

// Name returns "api".
func (a *API) Name() string { return KindAPI }

// Submit posts req and returns the response as an outcome.
func (a *API) Submit(ctx context.Context, req booking.Request) (Outcome, error) {
	resp, err := a.client.Submit(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return fromResponse(resp.Status, resp.Body), nil
}
