// Package fakeapi is an in-process stand-in for the booking service. It
// implements the REST contract the harness relies on, so the client, the
// verifier and the runner can be exercised without the shared environment:
//
//	POST   /api/auth/login     200 {token} | 401
//	POST   /api/booking        201 record | 400 {errors} | 409 {error}
//	GET    /api/booking/:id    200 record | 404 | 403 without a valid cookie
//	DELETE /api/booking/:id    200 | 404 | 403 without a valid cookie
//
// Two bookings for the same room conflict when their half-open stay ranges
// share a night.
package fakeapi

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/staycheck/internal/booking"
)

// Validation messages returned in 400 bodies.
const (
	MsgPhoneLength = "size must be between 11 and 21"
	MsgEmail       = "must be a well-formed email address"
	MsgDates       = "checkout must be after checkin"
	MsgConflict    = "Failed to create booking"
)

type stored struct {
	record booking.Record
	email  string
}

// Server holds bookings in memory.
type Server struct {
	mu          sync.Mutex
	creds       booking.Credentials
	bookings    map[int]stored
	tokens      map[string]bool
	nextID      int
	nextToken   int
	createDelay time.Duration
	failDeletes bool
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials sets the accepted admin login.
func WithCredentials(c booking.Credentials) Option {
	return func(s *Server) { s.creds = c }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates an empty service accepting admin/password.
func New(opts ...Option) *Server {
	s := &Server{
		creds:    booking.Credentials{Username: "admin", Password: "password"},
		bookings: make(map[int]stored),
		tokens:   make(map[string]bool),
		nextID:   1,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCreateDelay makes POST /api/booking wait before answering, to simulate a
// hung backend. The wait ends early if the client goes away.
func (s *Server) SetCreateDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createDelay = d
}

// SetFailDeletes makes DELETE answer 500 without deleting.
func (s *Server) SetFailDeletes(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeletes = fail
}

// Seed stores a booking directly, bypassing validation. Returns its id.
func (s *Server) Seed(req booking.Request) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(req)
}

// IDs returns the ids of all stored bookings in ascending order.
func (s *Server) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.bookings))
	for id := range s.bookings {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Count returns the number of stored bookings.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/login", s.login)

		bookings := api.Group("/booking")
		{
			bookings.POST("", s.create)
			bookings.GET("/:id", s.requireToken, s.read)
			bookings.DELETE("/:id", s.requireToken, s.remove)
		}
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("fake api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *Server) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Username != s.creds.Username || body.Password != s.creds.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	s.nextToken++
	token := fmt.Sprintf("fake-token-%d", s.nextToken)
	s.tokens[token] = true
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) requireToken(c *gin.Context) {
	token, err := c.Cookie("token")
	s.mu.Lock()
	ok := err == nil && s.tokens[token]
	s.mu.Unlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "authentication required"})
		return
	}
	c.Next()
}

func (s *Server) create(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"unreadable body"}})
		return
	}
	req, err := booking.DecodeRequest(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{err.Error()}})
		return
	}

	s.mu.Lock()
	delay := s.createDelay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	if errs := validate(req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.record.RoomID == req.RoomID && b.record.Stay.Overlaps(req.Stay) {
			c.JSON(http.StatusConflict, gin.H{"error": MsgConflict})
			return
		}
	}
	id := s.insert(req)
	c.JSON(http.StatusCreated, s.bookings[id].record)
}

// insert stores req; callers hold s.mu.
func (s *Server) insert(req booking.Request) int {
	id := s.nextID
	s.nextID++
	s.bookings[id] = stored{
		record: booking.Record{
			BookingID:   id,
			RoomID:      req.RoomID,
			FirstName:   req.Guest.FirstName,
			LastName:    req.Guest.LastName,
			DepositPaid: req.DepositPaid,
			Stay:        req.Stay,
		},
		email: req.Contact.Email,
	}
	return id
}

func validate(req booking.Request) []string {
	var errs []string
	if !booking.ValidName(req.Guest.FirstName) {
		errs = append(errs, booking.NameLengthMessage)
	}
	if !booking.ValidName(req.Guest.LastName) {
		errs = append(errs, booking.NameLengthMessage)
	}
	if n := len(req.Contact.Phone); n < 11 || n > 21 {
		errs = append(errs, MsgPhoneLength)
	}
	if at := strings.Index(req.Contact.Email, "@"); at < 1 || at == len(req.Contact.Email)-1 {
		errs = append(errs, MsgEmail)
	}
	if !req.Stay.Valid() {
		errs = append(errs, MsgDates)
	}
	return errs
}

func (s *Server) read(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.mu.Lock()
	b, ok := s.bookings[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, b.record)
}

func (s *Server) remove(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDeletes {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if _, ok := s.bookings[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	delete(s.bookings, id)
	c.Status(http.StatusOK)
}
