package driver

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/testutil"
)

func TestAPI_Submit(t *testing.T) {
	b := testutil.NewBackend(t)
	d := NewAPI(booking.NewClient(b.URL()))
	ctx := context.Background()
	assert.Equal(t, "api", d.Name())

	req := booking.NewRequest(testutil.DefaultToday, booking.Options{DateOffset: 500})

	first, err := d.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, first.Status)
	assert.True(t, first.Created())
	require.NotNil(t, first.Record)
	assert.True(t, first.Record.Matches(req))
	assert.False(t, first.Rendered)

	second, err := d.Submit(ctx, req.WithGuest(booking.Guest{FirstName: "Charlie", LastName: "Parker"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, second.Status)
	assert.False(t, second.Created())
	assert.Zero(t, second.BookingID)

	short, err := d.Submit(ctx, booking.NewRequest(testutil.DefaultToday, booking.Options{DateOffset: 540, FirstName: "PK"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, short.Status)
	assert.Contains(t, short.Errors, booking.NameLengthMessage)
}

func TestOutcomeFrom_Confirmed(t *testing.T) {
	req := booking.NewRequest(testutil.DefaultToday, booking.Options{DateOffset: 500})
	body := []byte(`{"bookingid":7,"roomid":1,"firstname":"PKQA","lastname":"QATest","depositpaid":false,"bookingdates":{"checkin":"2028-02-28","checkout":"2028-03-01"}}`)
	snap := snapshot{
		Headings: []string{"Shady Meadows", " Booking Confirmed "},
		Links:    []string{"Rooms", "Return Home"},
		Text:     "Your booking has been confirmed for the following dates:\n2028-02-28 - 2028-03-01\nReturn Home",
	}

	out := outcomeFrom(fromResponse(http.StatusCreated, body), req, snap, DefaultLocators)
	assert.True(t, out.Rendered)
	assert.True(t, out.Confirmed)
	assert.Equal(t, 7, out.BookingID)
	assert.Equal(t, "2028-02-28 - 2028-03-01", out.ConfirmedRange)
	assert.Empty(t, out.Missing)
}

func TestOutcomeFrom_ConfirmationIncomplete(t *testing.T) {
	req := booking.NewRequest(testutil.DefaultToday, booking.Options{DateOffset: 500})
	body := []byte(`{"bookingid":7,"roomid":1,"firstname":"PKQA","lastname":"QATest","bookingdates":{"checkin":"2028-02-28","checkout":"2028-03-01"}}`)
	snap := snapshot{
		Headings: []string{"Booking Confirmed"},
		Links:    []string{"Rooms"},
		Text:     "2028-02-28 - 2028-03-01",
	}

	out := outcomeFrom(fromResponse(http.StatusCreated, body), req, snap, DefaultLocators)
	assert.True(t, out.Confirmed)
	assert.Equal(t, []string{
		`"Your booking has been confirmed for the following dates:" text`,
		`"Return Home" link`,
	}, out.Missing)
}

func TestOutcomeFrom_Rejected(t *testing.T) {
	req := booking.NewRequest(testutil.DefaultToday, booking.Options{FirstName: "PK", LastName: "QA"})
	body := []byte(`{"errors":["size must be between 3 and 18","size must be between 3 and 18"]}`)
	snap := snapshot{Headings: []string{"Book This Room"}, Text: "size must be between 3 and 18"}

	out := outcomeFrom(fromResponse(http.StatusBadRequest, body), req, snap, DefaultLocators)
	assert.False(t, out.Confirmed)
	assert.Zero(t, out.BookingID)
	assert.Empty(t, out.ConfirmedRange)
	assert.Empty(t, out.Missing)
	assert.Contains(t, out.Text, booking.NameLengthMessage)
	assert.Len(t, out.Errors, 2)
}

func TestUnknownBooking_NamesRoomAndDates(t *testing.T) {
	req := booking.NewRequest(testutil.DefaultToday, booking.Options{DateOffset: 500, RoomID: 2})
	err := unknownBooking(req, context.DeadlineExceeded)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "returned 201 for room 2 on 2028-02-28 -> 2028-03-01")
	assert.Contains(t, err.Error(), "delete it by hand")
}

func TestLocators_WithDefaults(t *testing.T) {
	l := Locators{ReserveButton: "Book"}.WithDefaults()
	assert.Equal(t, "Book", l.ReserveButton)
	assert.Equal(t, "#doReservation", l.OpenReservation)
	assert.Equal(t, `input[name="firstname"]`, l.FirstName)
	assert.Equal(t, "Return Home", l.ReturnHomeLink)
	assert.Equal(t, DefaultLocators, Locators{}.WithDefaults())
}

func TestProfileFor(t *testing.T) {
	assert.Contains(t, ProfileFor("firefox").UserAgent, "Firefox")
	assert.Empty(t, ProfileFor("chromium").UserAgent)
	assert.Equal(t, Profile{Name: "webkit", Width: 1280, Height: 720}, ProfileFor("webkit"))
}

func TestScripts_QuoteUserText(t *testing.T) {
	l := DefaultLocators
	l.SearchButton = `Check "Availability"`

	script := tagSearchForm(l)
	assert.Contains(t, script, `"Check \"Availability\""`)
	assert.Contains(t, script, `"#booking"`)

	room := tagRoomLink(l.RoomLink, 2)
	assert.Contains(t, room, "/reservation/2(")
	assert.Contains(t, room, "return m ? Number(m[1]) : -1;")
	assert.True(t, strings.HasPrefix(tagged("room"), "[data-staycheck="))
}

func TestNewUI_Defaults(t *testing.T) {
	u := NewUI(UIConfig{BaseURL: "https://example.test/", Profile: Profile{Name: "firefox"}})
	assert.Equal(t, "ui", u.Name())
	assert.Equal(t, "https://example.test", u.cfg.BaseURL)
	assert.Equal(t, DefaultLocators, u.cfg.Locators)
	assert.Contains(t, u.cfg.Profile.UserAgent, "Firefox")
	assert.NoError(t, u.Close())
}
