// Package server serves a media library over the same HTTP routes the client dispatches to.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Sandbox
//
// [Sandbox] exposes any handler for the operation table in [services.Routes], typically the in-memory library
// from internal/testing. The "gmx sandbox" command runs it on localhost so the CLI, the TUI and the scenarios can be
// pointed at something that behaves like the remote service: settle delays, ignored fields and all.
//
// [RequireCredentials] rejects requests carrying neither a cookie nor a bearer token with 401, which the dispatcher
// reports as an expired session.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
