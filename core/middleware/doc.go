// Package middleware contains HTTP middleware for the Fiber application.
//
// It provides the cross-cutting concerns that sit between a request and the
// sync and inventory handlers.
//
// # Components
//
//   - Auth: API key validation protecting the sync trigger endpoints. An
//     empty configured key disables the check for local development.
//   - RayID: assigns a unique request id (RayID) to every request and
//     injects it into the context and response headers, so queued sync runs
//     can be traced back to the request that started them.
//
// Both are registered globally in the server startup path.
package middleware
