// Package booking is a small typed client for the booking service's REST API:
// authenticate, create, read and delete.
//
// Create fails unless the service answers 201. Read and Delete are
// observational: they return whatever the service said and leave the status
// check to the caller, because a 404 after a delete is the expected outcome.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// API paths.
const (
	LoginPath   = "/api/auth/login"
	BookingPath = "/api/booking"
)

// Exchange is one request/response pair, reported to an Observer.
type Exchange struct {
	Method string
	Path   string
	Body   []byte
	Status int
	Err    error
}

// Observer receives every exchange a Client performs.
type Observer func(Exchange)

// Client talks to the booking API.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver registers an exchange observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is the observed result of a call.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Record decodes the body as a booking record.
func (r *Response) Record() (*Record, error) {
	var rec Record
	if err := json.Unmarshal(r.Body, &rec); err != nil {
		return nil, fmt.Errorf("decode booking record: %w", err)
	}
	return &rec, nil
}

// Errors returns the validation messages of an error body, if any.
// Both {"errors":[...]} and {"error":"..."} shapes are understood.
func (r *Response) Errors() []string {
	var body struct {
		Errors []string `json:"errors"`
		Error  string   `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return nil
	}
	if body.Error != "" {
		return append(body.Errors, body.Error)
	}
	return body.Errors
}

// Login authenticates and returns a cookie session. Any status other than 200
// is an error; authentication failures are never retried.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	payload, err := json.Marshal(map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return Session{}, fmt.Errorf("encode login: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, LoginPath, payload, Session{})
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if resp.Status != http.StatusOK {
		return Session{}, &StatusError{Op: "login", Expected: http.StatusOK, Status: resp.Status, Body: string(resp.Body)}
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if body.Token == "" {
		return Session{}, fmt.Errorf("login: response carried no token")
	}
	return NewSession(body.Token), nil
}

// Submit posts a booking and returns the raw outcome, whatever the status.
func (c *Client) Submit(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode booking: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, BookingPath, payload, Session{})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return resp, nil
}

// Create posts a booking and requires 201. Any other status returns a
// *CollisionError naming the room, dates and status.
func (c *Client) Create(ctx context.Context, req Request) (*Record, error) {
	resp, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusCreated {
		c.logger.Warn("booking create rejected",
			"room", req.RoomID,
			"stay", req.Stay.String(),
			"status", resp.Status,
		)
		return nil, &CollisionError{Request: req, Status: resp.Status, Body: string(resp.Body)}
	}
	return resp.Record()
}

// Read fetches a booking. Non-200 statuses are returned, not raised.
func (c *Client) Read(ctx context.Context, id int, s Session) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, bookingPath(id), nil, s)
	if err != nil {
		return nil, fmt.Errorf("read booking %d: %w", id, err)
	}
	return resp, nil
}

// Delete removes a booking. Deleting an absent booking is not an error.
func (c *Client) Delete(ctx context.Context, id int, s Session) (*Response, error) {
	resp, err := c.do(ctx, http.MethodDelete, bookingPath(id), nil, s)
	if err != nil {
		return nil, fmt.Errorf("delete booking %d: %w", id, err)
	}
	return resp, nil
}

func bookingPath(id int) string {
	return BookingPath + "/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, s Session) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !s.Empty() {
		httpReq.Header.Set("Cookie", s.Cookie)
	}

	// credentials never reach observers
	observed := body
	if path == LoginPath {
		observed = nil
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(Exchange{Method: method, Path: path, Body: observed, Err: err})
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.observe(Exchange{Method: method, Path: path, Body: observed, Status: httpResp.StatusCode, Err: err})
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("booking api call",
		"method", method,
		"path", path,
		"status", httpResp.StatusCode,
		"elapsed", time.Since(start),
	)
	c.observe(Exchange{Method: method, Path: path, Body: observed, Status: httpResp.StatusCode})

	return &Response{Status: httpResp.StatusCode, Body: respBody, Header: httpResp.Header}, nil
}

func (c *Client) observe(ex Exchange) {
	if c.observer != nil {
		c.observer(ex)
	}
}
