package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/fakeapi"
)

// ServeFakeOptions holds flags for the serve-fake command.
type ServeFakeOptions struct {
	*RootOptions
	Addr     string
	Username string
	Password string
}

// NewServeFakeCommand creates the serve-fake command.
func NewServeFakeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeFakeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Serve an in-memory booking API for offline runs",
		Long: `Serve an in-memory stand-in for the booking API: login, create, read and
delete, with the same validation messages and overlap conflicts as the real
service. Point STAYCHECK_BASE_URL at it and run API scenarios offline.

Examples:
  staycheck serve-fake --addr :8080
  STAYCHECK_BASE_URL=http://localhost:8080 staycheck run --api-only`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveFake(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Username, "user", "admin", "accepted admin username")
	cmd.Flags().StringVar(&opts.Password, "password", "password", "accepted admin password")

	return cmd
}

func serveFake(opts *ServeFakeOptions, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr())
	gin.SetMode(gin.ReleaseMode)

	fake := fakeapi.New(
		fakeapi.WithCredentials(booking.Credentials{Username: opts.Username, Password: opts.Password}),
		fakeapi.WithLogger(logger),
	)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           fake.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Fake booking API listening on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down fake booking API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "server forced to shutdown", err)
	}
	logger.Info("fake booking API stopped", "bookings", fake.Count())
	return nil
}
