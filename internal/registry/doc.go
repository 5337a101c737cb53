// Package registry provides the central "glue" between the host
// application and its shared socket connections.
//
// The Registry is the context object the host passes around instead of a
// dependency-injection container. It holds the finite, ordered list of
// application components that the lifecycle coordinator scans at startup,
// and every registered Module keyed by its Token.
//
// A Module is one registration scope: it owns the configuration resolver
// (static or asynchronous) and builds its connection lazily on the first
// Get, at most once for its whole lifetime.
package registry
