package driver

// Locators tell the UI driver how to find things on the site. Text values
// are matched against trimmed visible text; the rest are CSS selectors.
// Zero fields take the defaults below.
type Locators struct {
	BookingSection   string `yaml:"booking_section,omitempty"`
	CheckInLabel     string `yaml:"check_in_label,omitempty"`
	CheckOutLabel    string `yaml:"check_out_label,omitempty"`
	SearchButton     string `yaml:"search_button,omitempty"`
	RoomLink         string `yaml:"room_link,omitempty"`
	OpenReservation  string `yaml:"open_reservation,omitempty"`
	FirstName        string `yaml:"first_name,omitempty"`
	LastName         string `yaml:"last_name,omitempty"`
	Email            string `yaml:"email,omitempty"`
	Phone            string `yaml:"phone,omitempty"`
	ReserveButton    string `yaml:"reserve_button,omitempty"`
	ConfirmedHeading string `yaml:"confirmed_heading,omitempty"`
	ConfirmedMessage string `yaml:"confirmed_message,omitempty"`
	ReturnHomeLink   string `yaml:"return_home_link,omitempty"`
}

// DefaultLocators matches the public demo site.
var DefaultLocators = Locators{
	BookingSection:   "#booking",
	CheckInLabel:     "Check In",
	CheckOutLabel:    "Check Out",
	SearchButton:     "Check Availability",
	RoomLink:         `a[href*="/reservation/"]`,
	OpenReservation:  "#doReservation",
	FirstName:        `input[name="firstname"]`,
	LastName:         `input[name="lastname"]`,
	Email:            `input[name="email"]`,
	Phone:            `input[name="phone"]`,
	ReserveButton:    "Reserve Now",
	ConfirmedHeading: "Booking Confirmed",
	ConfirmedMessage: "Your booking has been confirmed for the following dates:",
	ReturnHomeLink:   "Return Home",
}

// WithDefaults returns l with empty fields taken from DefaultLocators.
func (l Locators) WithDefaults() Locators {
	d := DefaultLocators
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&l.BookingSection, d.BookingSection)
	fill(&l.CheckInLabel, d.CheckInLabel)
	fill(&l.CheckOutLabel, d.CheckOutLabel)
	fill(&l.SearchButton, d.SearchButton)
	fill(&l.RoomLink, d.RoomLink)
	fill(&l.OpenReservation, d.OpenReservation)
	fill(&l.FirstName, d.FirstName)
	fill(&l.LastName, d.LastName)
	fill(&l.Email, d.Email)
	fill(&l.Phone, d.Phone)
	fill(&l.ReserveButton, d.ReserveButton)
	fill(&l.ConfirmedHeading, d.ConfirmedHeading)
	fill(&l.ConfirmedMessage, d.ConfirmedMessage)
	fill(&l.ReturnHomeLink, d.ReturnHomeLink)
	return l
}

// Profile is an execution agent's browser identity.
type Profile struct {
	Name      string
	UserAgent string
	Width     int
	Height    int
}

// Profiles for the default agents. Both run in Chrome; the firefox profile
// presents Firefox's user agent so the site serves what a Firefox visitor
// gets.
var Profiles = map[string]Profile{
	"chromium": {Name: "chromium", Width: 1280, Height: 720},
	"firefox": {
		Name:      "firefox",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
		Width:     1280,
		Height:    720,
	},
}

// ProfileFor returns the profile for agent, or a plain desktop profile.
func ProfileFor(agent string) Profile {
	if p, ok := Profiles[agent]; ok {
		return p
	}
	return Profile{Name: agent, Width: 1280, Height: 720}
}
