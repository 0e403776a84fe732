package booking

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/staycheck/internal/dates"
)

// Guest name bounds enforced by the booking service.
const (
	MinNameLength = 3
	MaxNameLength = 18
)

// NameLengthMessage is the field-level validation message for guest names.
const NameLengthMessage = "size must be between 3 and 18"

// Guest identifies who the booking is for.
type Guest struct {
	FirstName string
	LastName  string
}

// Contact holds the guest's contact details.
type Contact struct {
	Email string
	Phone string
}

// StayRange is a half-open range of nights [CheckIn, CheckOut).
type StayRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStayRange returns the range starting offset days after today and
// lasting nights nights.
func NewStayRange(today time.Time, offset, nights int) StayRange {
	return StayRange{
		CheckIn:  dates.AddDays(today, offset),
		CheckOut: dates.AddDays(today, offset+nights),
	}
}

// Nights returns the length of the stay.
func (r StayRange) Nights() int {
	return dates.DaysBetween(r.CheckIn, r.CheckOut)
}

// Valid reports whether CheckIn is strictly before CheckOut.
func (r StayRange) Valid() bool {
	return dates.Date(r.CheckIn).Before(dates.Date(r.CheckOut))
}

// Overlaps reports whether two ranges share at least one night.
func (r StayRange) Overlaps(o StayRange) bool {
	return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

// String renders the range the way the confirmation page shows it.
func (r StayRange) String() string {
	return dates.FormatAPIDate(r.CheckIn) + " - " + dates.FormatAPIDate(r.CheckOut)
}

// Request is a booking submission. Values are built once per scenario and
// passed by value.
type Request struct {
	RoomID      int
	Guest       Guest
	Contact     Contact
	Stay        StayRange
	DepositPaid bool
}

// Diagnostic describes the request for collision messages.
func (r Request) Diagnostic() string {
	return fmt.Sprintf("room %d on %s -> %s",
		r.RoomID, dates.FormatAPIDate(r.Stay.CheckIn), dates.FormatAPIDate(r.Stay.CheckOut))
}

// WithGuest returns a copy of r for a different guest.
func (r Request) WithGuest(g Guest) Request {
	r.Guest = g
	return r
}

// WithEmail returns a copy of r with a different email address.
func (r Request) WithEmail(email string) Request {
	r.Contact.Email = email
	return r
}

// Record is a booking as stored by the service.
type Record struct {
	BookingID   int
	RoomID      int
	FirstName   string
	LastName    string
	DepositPaid bool
	Stay        StayRange
}

// Matches reports whether the record carries the room, names and dates of req.
func (rec Record) Matches(req Request) bool {
	return rec.RoomID == req.RoomID &&
		rec.FirstName == req.Guest.FirstName &&
		rec.LastName == req.Guest.LastName &&
		dates.FormatAPIDate(rec.Stay.CheckIn) == dates.FormatAPIDate(req.Stay.CheckIn) &&
		dates.FormatAPIDate(rec.Stay.CheckOut) == dates.FormatAPIDate(req.Stay.CheckOut)
}

// Credentials authenticate against /api/auth/login.
type Credentials struct {
	Username string
	Password string
}

// Session is an authenticated cookie, e.g. "token=abc".
type Session struct {
	Cookie string
}

// NewSession wraps a login token as a cookie.
func NewSession(token string) Session {
	return Session{Cookie: "token=" + token}
}

// Empty reports whether the session carries no cookie.
func (s Session) Empty() bool {
	return s.Cookie == ""
}

// NameLength counts the characters of a guest name the way a user perceives
// them: NFC-normalised runes, so a precomposed and a decomposed accent count
// the same.
func NameLength(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// ValidName reports whether s satisfies the guest name length rule.
func ValidName(s string) bool {
	n := NameLength(s)
	return n >= MinNameLength && n <= MaxNameLength
}

// wire types

type wireDates struct {
	CheckIn  string `json:"checkin"`
	CheckOut string `json:"checkout"`
}

type wireBooking struct {
	BookingID   int       `json:"bookingid,omitempty"`
	RoomID      int       `json:"roomid"`
	FirstName   string    `json:"firstname"`
	LastName    string    `json:"lastname"`
	DepositPaid bool      `json:"depositpaid"`
	Dates       wireDates `json:"bookingdates"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
}

// MarshalJSON encodes the request in the service's wire shape.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireBooking{
		RoomID:      r.RoomID,
		FirstName:   r.Guest.FirstName,
		LastName:    r.Guest.LastName,
		DepositPaid: r.DepositPaid,
		Dates: wireDates{
			CheckIn:  dates.FormatAPIDate(r.Stay.CheckIn),
			CheckOut: dates.FormatAPIDate(r.Stay.CheckOut),
		},
		Email: r.Contact.Email,
		Phone: r.Contact.Phone,
	})
}

// UnmarshalJSON decodes a record. Create responses on some deployments nest
// the booking under "booking"; both shapes are accepted.
func (rec *Record) UnmarshalJSON(data []byte) error {
	var w struct {
		wireBooking
		Booking *wireBooking `json:"booking"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	src := w.wireBooking
	if w.Booking != nil {
		id := src.BookingID
		src = *w.Booking
		if src.BookingID == 0 {
			src.BookingID = id
		}
	}

	rec.BookingID = src.BookingID
	rec.RoomID = src.RoomID
	rec.FirstName = src.FirstName
	rec.LastName = src.LastName
	rec.DepositPaid = src.DepositPaid
	rec.Stay = StayRange{}

	if src.Dates.CheckIn != "" {
		in, err := dates.ParseAPIDate(src.Dates.CheckIn)
		if err != nil {
			return fmt.Errorf("checkin: %w", err)
		}
		rec.Stay.CheckIn = in
	}
	if src.Dates.CheckOut != "" {
		out, err := dates.ParseAPIDate(src.Dates.CheckOut)
		if err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		rec.Stay.CheckOut = out
	}
	return nil
}

// MarshalJSON encodes a record in the service's wire shape.
func (rec Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireBooking{
		BookingID:   rec.BookingID,
		RoomID:      rec.RoomID,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		DepositPaid: rec.DepositPaid,
		Dates: wireDates{
			CheckIn:  dates.FormatAPIDate(rec.Stay.CheckIn),
			CheckOut: dates.FormatAPIDate(rec.Stay.CheckOut),
		},
	})
}

// DecodeRequest parses a wire booking body into a Request. Used by the fake
// service and by tests.
func DecodeRequest(data []byte) (Request, error) {
	var w wireBooking
	if err := json.Unmarshal(data, &w); err != nil {
		return Request{}, err
	}
	req := Request{
		RoomID:      w.RoomID,
		Guest:       Guest{FirstName: w.FirstName, LastName: w.LastName},
		Contact:     Contact{Email: w.Email, Phone: w.Phone},
		DepositPaid: w.DepositPaid,
	}
	var err error
	if req.Stay.CheckIn, err = dates.ParseAPIDate(w.Dates.CheckIn); err != nil {
		return Request{}, fmt.Errorf("checkin: %w", err)
	}
	if req.Stay.CheckOut, err = dates.ParseAPIDate(w.Dates.CheckOut); err != nil {
		return Request{}, fmt.Errorf("checkout: %w", err)
	}
	return req, nil
}
