package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/dates"
)

// tagAttr marks elements found by text so later actions can select them by
// CSS.
const tagAttr = "data-staycheck"

// UIConfig configures a UI driver.
type UIConfig struct {
	BaseURL  string
	Headless bool
	Profile  Profile
	Locators Locators

	// ActionTimeout bounds each navigation, click and fill.
	ActionTimeout time.Duration
	// ResponseTimeout bounds the wait for the POST /api/booking response.
	ResponseTimeout time.Duration
	// ExpectTimeout bounds the wait for the page to render the outcome.
	ExpectTimeout time.Duration

	Logger *slog.Logger
}

// UI drives the booking site in headless Chrome. One UI owns one tab;
// Submit calls on the same UI are serialised.
type UI struct {
	cfg UIConfig

	mu           sync.Mutex
	allocCancel  context.CancelFunc
	tab          context.Context
	tabCancel    context.CancelFunc
	reservations map[string]reservation // by stay range
}

// reservation is a room page opened for a stay range.
type reservation struct {
	url  string
	room int // 0 when the link did not name a room
}

// NewUI creates a UI driver. The browser starts on first use.
func NewUI(cfg UIConfig) *UI {
	cfg.Locators = cfg.Locators.WithDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 5 * time.Second
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = 15 * time.Second
	}
	if cfg.ExpectTimeout <= 0 {
		cfg.ExpectTimeout = 5 * time.Second
	}
	if cfg.Profile.Width == 0 {
		cfg.Profile = ProfileFor(cfg.Profile.Name)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &UI{cfg: cfg, reservations: make(map[string]reservation)}
}

// Name returns "ui".
func (u *UI) Name() string { return KindUI }

// Close shuts the browser down.
func (u *UI) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tabCancel != nil {
		u.tabCancel()
		u.allocCancel()
		u.tab, u.tabCancel, u.allocCancel = nil, nil, nil
	}
	return nil
}

// start launches the browser. The first Run on a tab allocates the browser
// and binds it to that Run's context, so it must not carry a timeout.
func (u *UI) start() error {
	if u.tab != nil {
		return nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", u.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(u.cfg.Profile.Width, u.cfg.Profile.Height),
	)
	if u.cfg.Profile.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(u.cfg.Profile.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			u.cfg.Logger.Debug(fmt.Sprintf(format, args...), "agent", u.cfg.Profile.Name)
		}),
	)
	if err := chromedp.Run(tab); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("start browser: %w", err)
	}
	u.allocCancel, u.tab, u.tabCancel = allocCancel, tab, tabCancel
	return nil
}

// Submit books req through the site: search for the stay, open a room,
// fill the guest form and press the reserve button. The first submit for a
// stay range remembers the reservation page so a second submit for the same
// range reopens the same room.
//
// Once the booking response has been captured, Submit returns the outcome
// decoded from it even when a later step fails, so an acknowledged booking
// id is never lost.
func (u *UI) Submit(ctx context.Context, req booking.Request) (Outcome, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.start(); err != nil {
		return Outcome{}, err
	}

	key := req.Stay.String()
	res, ok := u.reservations[key]
	if ok {
		if err := u.run(ctx, u.cfg.ActionTimeout, chromedp.Navigate(res.url)); err != nil {
			return Outcome{}, fmt.Errorf("reopen reservation: %w", err)
		}
	} else {
		var err error
		res, err = u.openReservation(ctx, req)
		if err != nil {
			return Outcome{}, err
		}
		u.reservations[key] = res
	}

	if err := u.fillGuest(ctx, req); err != nil {
		return Outcome{}, err
	}

	status, body, err := u.reserve(ctx, req)
	out := fromResponse(status, body)
	out.URL = res.url
	out.RoomID = res.room
	if err != nil {
		return out, err
	}

	snap, err := u.observe(ctx, status)
	if err != nil {
		return out, err
	}

	out = outcomeFrom(out, req, snap, u.cfg.Locators)
	u.cfg.Logger.Debug("ui submit",
		"agent", u.cfg.Profile.Name,
		"stay", key,
		"status", status,
		"confirmed", out.Confirmed,
	)
	return out, nil
}

// run executes actions on the tab within timeout, aborting early if ctx ends.
func (u *UI) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	rctx, cancel := context.WithTimeout(u.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(rctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	}
	return nil
}

// openReservation searches for the stay and opens the room page, preferring
// the request's room.
func (u *UI) openReservation(ctx context.Context, req booking.Request) (reservation, error) {
	l := u.cfg.Locators

	err := u.run(ctx, u.cfg.ActionTimeout,
		chromedp.Navigate(u.cfg.BaseURL+"/"),
		chromedp.WaitVisible(l.BookingSection, chromedp.ByQuery),
	)
	if err != nil {
		return reservation{}, fmt.Errorf("open home page: %w", err)
	}

	var found bool
	err = u.run(ctx, u.cfg.ActionTimeout, chromedp.Evaluate(tagSearchForm(l), &found))
	if err != nil {
		return reservation{}, fmt.Errorf("locate search form: %w", err)
	}
	if !found {
		return reservation{}, fmt.Errorf("locate search form: no %q/%q inputs or %q button in %s",
			l.CheckInLabel, l.CheckOutLabel, l.SearchButton, l.BookingSection)
	}

	err = u.run(ctx, u.cfg.ActionTimeout,
		chromedp.Clear(tagged("checkin"), chromedp.ByQuery),
		chromedp.SendKeys(tagged("checkin"), dates.FormatUIDate(req.Stay.CheckIn), chromedp.ByQuery),
		chromedp.Clear(tagged("checkout"), chromedp.ByQuery),
		chromedp.SendKeys(tagged("checkout"), dates.FormatUIDate(req.Stay.CheckOut), chromedp.ByQuery),
		chromedp.Click(tagged("search"), chromedp.ByQuery),
	)
	if err != nil {
		return reservation{}, fmt.Errorf("search availability: %w", err)
	}

	var picked int
	err = u.run(ctx, u.cfg.ResponseTimeout,
		chromedp.WaitVisible(l.RoomLink, chromedp.ByQuery),
		chromedp.Evaluate(tagRoomLink(l.RoomLink, req.RoomID), &picked),
	)
	if err != nil {
		return reservation{}, fmt.Errorf("wait for available rooms: %w", err)
	}
	if picked == 0 {
		return reservation{}, fmt.Errorf("no available room for %s", req.Stay)
	}
	room := max(picked, 0)
	if room != req.RoomID {
		u.cfg.Logger.Warn("requested room not listed, booking another",
			"agent", u.cfg.Profile.Name,
			"stay", req.Stay.String(),
			"want_room", req.RoomID,
			"room", room,
		)
	}

	var location string
	err = u.run(ctx, u.cfg.ActionTimeout,
		chromedp.Click(tagged("room"), chromedp.ByQuery),
		chromedp.WaitVisible(l.OpenReservation, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return reservation{}, fmt.Errorf("open reservation: %w", err)
	}
	return reservation{url: location, room: room}, nil
}

func (u *UI) fillGuest(ctx context.Context, req booking.Request) error {
	l := u.cfg.Locators

	var found bool
	err := u.run(ctx, u.cfg.ActionTimeout,
		chromedp.Click(l.OpenReservation, chromedp.ByQuery),
		chromedp.WaitVisible(l.FirstName, chromedp.ByQuery),
		fill(l.FirstName, req.Guest.FirstName),
		fill(l.LastName, req.Guest.LastName),
		fill(l.Email, req.Contact.Email),
		fill(l.Phone, req.Contact.Phone),
		chromedp.Evaluate(tagButton("", l.ReserveButton, "reserve"), &found),
	)
	if err != nil {
		return fmt.Errorf("fill reservation form: %w", err)
	}
	if !found {
		return fmt.Errorf("fill reservation form: no %q button", l.ReserveButton)
	}
	return nil
}

func fill(sel, value string) chromedp.Action {
	return chromedp.Tasks{
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	}
}

// reserve clicks the reserve button and waits for the matching
// POST /api/booking response. Once a status has been seen it is returned
// alongside any later error.
func (u *UI) reserve(ctx context.Context, req booking.Request) (int, []byte, error) {
	rctx, cancel := context.WithTimeout(u.tab, u.cfg.ResponseTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		mu       sync.Mutex
		pending  network.RequestID
		status   int64
		finished = make(chan network.RequestID, 1)
		failed   = make(chan string, 1)
	)
	chromedp.ListenTarget(rctx, func(ev any) {
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			if pending == "" && e.Request.Method == http.MethodPost && strings.Contains(e.Request.URL, booking.BookingPath) {
				pending = e.RequestID
			}
		case *network.EventResponseReceived:
			if e.RequestID == pending {
				status = e.Response.Status
			}
		case *network.EventLoadingFinished:
			if e.RequestID == pending {
				select {
				case finished <- e.RequestID:
				default:
				}
			}
		case *network.EventLoadingFailed:
			if e.RequestID == pending {
				select {
				case failed <- e.ErrorText:
				default:
				}
			}
		}
	})

	if err := chromedp.Run(rctx, network.Enable(), chromedp.Click(tagged("reserve"), chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("press reserve: %w", err)
	}

	var id network.RequestID
	select {
	case id = <-finished:
	case msg := <-failed:
		return 0, nil, fmt.Errorf("POST %s failed: %s", booking.BookingPath, msg)
	case <-rctx.Done():
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("waiting for POST %s response: %w", booking.BookingPath, context.DeadlineExceeded)
		}
		mu.Lock()
		got := int(status)
		mu.Unlock()
		if got == http.StatusCreated {
			return got, nil, unknownBooking(req, err)
		}
		return got, nil, err
	}

	mu.Lock()
	got := int(status)
	mu.Unlock()

	var body []byte
	err := chromedp.Run(rctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		if got == http.StatusCreated {
			return got, nil, unknownBooking(req, err)
		}
		return got, nil, fmt.Errorf("read booking response body: %w", err)
	}
	return got, body, nil
}

// unknownBooking reports a booking the backend acknowledged whose id could
// not be read, so teardown cannot delete it.
func unknownBooking(req booking.Request, err error) error {
	return fmt.Errorf("POST %s returned 201 for room %d on %s -> %s but the booking id could not be read; delete it by hand: %w",
		booking.BookingPath, req.RoomID,
		dates.FormatAPIDate(req.Stay.CheckIn), dates.FormatAPIDate(req.Stay.CheckOut), err)
}

// snapshot is what the page shows once it has reacted to the response.
type snapshot struct {
	Headings []string `json:"headings"`
	Links    []string `json:"links"`
	Text     string   `json:"text"`
}

// observe waits for the page to settle and captures its visible headings and
// text. A 201 should render the confirmation; anything else should render
// something other than it. The wait ends at the first sign of either, or at
// ExpectTimeout.
func (u *UI) observe(ctx context.Context, status int) (snapshot, error) {
	l := u.cfg.Locators
	var ignored bool
	err := u.run(ctx, u.cfg.ExpectTimeout+u.cfg.ActionTimeout,
		chromedp.Poll(settledScript(l.ConfirmedHeading, status == http.StatusCreated), &ignored,
			chromedp.WithPollingTimeout(u.cfg.ExpectTimeout),
			chromedp.WithPollingInterval(100*time.Millisecond),
		),
	)
	if err != nil && !errors.Is(err, chromedp.ErrPollingTimeout) {
		return snapshot{}, fmt.Errorf("observe outcome: %w", err)
	}

	var snap snapshot
	if err := u.run(ctx, u.cfg.ActionTimeout, chromedp.Evaluate(snapshotScript, &snap)); err != nil {
		return snapshot{}, fmt.Errorf("observe outcome: %w", err)
	}
	return snap, nil
}

// outcomeFrom adds what the page rendered to the outcome of the captured
// response.
func outcomeFrom(out Outcome, req booking.Request, snap snapshot, l Locators) Outcome {
	out.Rendered = true
	out.Text = snap.Text
	out.Confirmed = containsTrimmed(snap.Headings, l.ConfirmedHeading)
	if want := req.Stay.String(); strings.Contains(snap.Text, want) {
		out.ConfirmedRange = want
	}
	if out.Confirmed {
		if !strings.Contains(snap.Text, l.ConfirmedMessage) {
			out.Missing = append(out.Missing, fmt.Sprintf("%q text", l.ConfirmedMessage))
		}
		if !containsTrimmed(snap.Links, l.ReturnHomeLink) {
			out.Missing = append(out.Missing, fmt.Sprintf("%q link", l.ReturnHomeLink))
		}
	}
	return out
}

func containsTrimmed(items []string, want string) bool {
	return slices.ContainsFunc(items, func(s string) bool { return strings.TrimSpace(s) == want })
}

func tagged(name string) string {
	return fmt.Sprintf(`[%s=%q]`, tagAttr, name)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const jsHelpers = `
const visible = el => !!(el && (el.offsetWidth || el.offsetHeight || el.getClientRects().length));
const tag = (el, name) => {
	document.querySelectorAll('[` + tagAttr + `="' + name + '"]').forEach(e => e.removeAttribute('` + tagAttr + `'));
	if (el) el.setAttribute('` + tagAttr + `', name);
	return !!el;
};
const byText = (root, sel, text) => [...root.querySelectorAll(sel)].find(e => e.textContent.trim() === text);
`

// tagSearchForm tags the check-in and check-out inputs (found through their
// label text, which is not associated with the inputs) and the search button.
func tagSearchForm(l Locators) string {
	return `(() => {` + jsHelpers + `
	const root = document.querySelector(` + jsString(l.BookingSection) + `) || document;
	const input = text => {
		const label = byText(root, 'label', text);
		return label ? label.parentElement.querySelector('input') : null;
	};
	return tag(input(` + jsString(l.CheckInLabel) + `), 'checkin') &&
		tag(input(` + jsString(l.CheckOutLabel) + `), 'checkout') &&
		tag(byText(root, 'button', ` + jsString(l.SearchButton) + `), 'search');
})()`
}

// tagRoomLink tags the link for roomID if listed, else the first available.
// The script yields the tagged link's room id, 0 when nothing was tagged and
// -1 when the link names no room.
func tagRoomLink(sel string, roomID int) string {
	return fmt.Sprintf(`(() => {`+jsHelpers+`
	const links = [...document.querySelectorAll(%s)].filter(visible);
	const want = links.find(a => new RegExp('/reservation/%d(\\D|$)').test(a.getAttribute('href')));
	const link = want || links[0];
	if (!tag(link, 'room')) return 0;
	const m = (link.getAttribute('href') || '').match(/\/reservation\/(\d+)/);
	return m ? Number(m[1]) : -1;
})()`, jsString(sel), roomID)
}

// tagButton tags the button whose text is text, inside root (or the document).
func tagButton(root, text, name string) string {
	r := "document"
	if root != "" {
		r = "(document.querySelector(" + jsString(root) + ") || document)"
	}
	return `(() => {` + jsHelpers + `
	return tag(byText(` + r + `, 'button', ` + jsString(text) + `), ` + jsString(name) + `);
})()`
}

func settledScript(heading string, wantConfirmed bool) string {
	if wantConfirmed {
		return `(() => {` + jsHelpers + `
	return [...document.querySelectorAll('h1,h2,h3,h4,h5,h6,[role=heading]')]
		.some(h => visible(h) && h.textContent.trim() === ` + jsString(heading) + `);
})()`
	}
	return `(() => {` + jsHelpers + `
	return [...document.querySelectorAll('.alert, .invalid-feedback, [role=alert]')].some(visible);
})()`
}

const snapshotScript = `(() => {` + jsHelpers + `
	const headings = [...document.querySelectorAll('h1,h2,h3,h4,h5,h6,[role=heading]')]
		.filter(visible).map(h => h.textContent.trim());
	const links = [...document.querySelectorAll('a,[role=link]')]
		.filter(visible).map(a => a.textContent.trim());
	return {headings, links, text: document.body ? document.body.innerText : ''};
})()`
