package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/roach88/staycheck/internal/fakeapi"
)

// Backend is a fake booking service listening on a local port.
type Backend struct {
	*fakeapi.Server
	HTTP *httptest.Server
}

// URL returns the service root.
func (b *Backend) URL() string {
	return b.HTTP.URL
}

// NewBackend starts a fake booking service that stops when the test ends.
func NewBackend(t testing.TB, opts ...fakeapi.Option) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := fakeapi.New(opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &Backend{Server: srv, HTTP: ts}
}
