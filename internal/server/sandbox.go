package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gmx/internal/services"
)

// Sandbox serves a library handler under every route in [services.Routes].
type Sandbox struct {
	library http.Handler
}

// NewSandbox wraps library, which must answer the patterns from [services.Route.ServePattern].
func NewSandbox(library http.Handler) *Sandbox {
	return &Sandbox{library: library}
}

// Routes returns the path of every operation once, sorted.
// Method dispatch is left to the library handler.
func (s *Sandbox) Routes() []string {
	seen := map[string]bool{}
	var routes []string
	for _, route := range services.Routes {
		if !seen[route.Pattern] {
			seen[route.Pattern] = true
			routes = append(routes, route.Pattern)
		}
	}
	sort.Strings(routes)
	return routes
}

func (s *Sandbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.library.ServeHTTP(w, r)
}

// Serve listens on addr and serves handler until ctx is done, then shuts down gracefully.
// ready, when non-nil, receives the bound address once the listener is open.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	logger.Info("sandbox listening", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down server", "error", err)
	}
	return <-errs
}
