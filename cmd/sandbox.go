package main

import (
	"context"
	"net/http"

	"github.com/desertthunder/gmx/internal/server"
	tu "github.com/desertthunder/gmx/internal/testing"
	"github.com/urfave/cli/v3"
)

// Sandbox serves an in-memory library on the service's routes until interrupted.
//
// Point [service] base_url at the printed address with any access_token to run commands against it.
func (r *Runner) Sandbox(ctx context.Context, cmd *cli.Command) error {
	fake := tu.NewFakeService(nil, cmd.Duration("settle"))
	fake.SetDrift(cmd.Bool("drift"))
	fake.Seed(
		tu.NewTrack("1001", "Harbor Lights", "The Quays", "Low Tide"),
		tu.NewTrack("1002", "Eleven Bells", "The Quays", "Low Tide"),
		tu.NewTrack("1003", "Copper Sky", "Mara Venn", "Weathervane"),
		tu.NewTrack("1004", "Slow Engine", "Mara Venn", "Weathervane"),
	)

	router := r.sandboxRouter(ctx, fake.Handler())

	ready := make(chan string, 1)
	go func() {
		if addr, ok := <-ready; ok {
			r.writePlain("✓ Sandbox serving %d tracks at http://%s\n", 4, addr)
			r.writePlainln("Set service.base_url to that address and service.access_token to any value.")
		}
	}()
	defer close(ready)

	return server.Serve(ctx, cmd.String("addr"), router, r.logger, ready)
}

// sandboxRouter serves /healthz without credentials and the library routes behind them.
func (r *Runner) sandboxRouter(ctx context.Context, library http.Handler) *server.BasicRouter {
	router := server.NewBasicRouter()
	router.Handle(http.MethodGet, "/healthz", server.Health(ctx))
	router.Use(server.Logging(r.logger), server.RequireCredentials())
	router.Handler(server.NewSandbox(library))
	return router
}
