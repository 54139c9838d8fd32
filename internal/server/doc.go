// Package server provides HTTP routing, middleware and the listener
// lifecycle for the web interface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so
// path wildcards such as {id} are available to handlers via r.PathValue.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib
// handler interface and adds routes, so a handler owns its route table.
package server
