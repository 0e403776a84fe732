package booking

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Defaults applied by NewRequest when an option is left zero.
const (
	DefaultRoomID     = 1
	DefaultDateOffset = 120
	DefaultStayLength = 2
	DefaultFirstName  = "PKQA"
	DefaultLastName   = "QATest"
	DefaultPhone      = "01234567890"
)

// Options customise NewRequest. Zero fields take the defaults above.
type Options struct {
	RoomID     int
	DateOffset int
	StayLength int
	FirstName  string
	LastName   string
	Email      string
	Phone      string
}

var emailSeq atomic.Int64

// UniqueEmail returns an address that no other call in this process returns.
// tag should identify the run (e.g. a run id) so parallel processes differ too.
func UniqueEmail(prefix, tag string) string {
	n := emailSeq.Add(1)
	prefix = strings.ToLower(strings.ReplaceAll(prefix, " ", "."))
	if tag == "" {
		return fmt.Sprintf("%s.%d@example.com", prefix, n)
	}
	return fmt.Sprintf("%s.%s.%d@example.com", prefix, tag, n)
}

// NewRequest builds a booking request for a stay starting DateOffset days
// after today.
func NewRequest(today time.Time, opts Options) Request {
	if opts.RoomID == 0 {
		opts.RoomID = DefaultRoomID
	}
	if opts.DateOffset == 0 {
		opts.DateOffset = DefaultDateOffset
	}
	if opts.StayLength == 0 {
		opts.StayLength = DefaultStayLength
	}
	if opts.FirstName == "" {
		opts.FirstName = DefaultFirstName
	}
	if opts.LastName == "" {
		opts.LastName = DefaultLastName
	}
	if opts.Email == "" {
		opts.Email = fmt.Sprintf("pk.%d@example.com", time.Now().UnixNano())
	}
	if opts.Phone == "" {
		opts.Phone = DefaultPhone
	}

	return Request{
		RoomID:  opts.RoomID,
		Guest:   Guest{FirstName: opts.FirstName, LastName: opts.LastName},
		Contact: Contact{Email: opts.Email, Phone: opts.Phone},
		Stay:    NewStayRange(today, opts.DateOffset, opts.StayLength),
	}
}
