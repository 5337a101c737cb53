// Package lifecycle binds tagged component methods to the shared connection
// when the application starts, and closes the connection when it stops.
//
// The Coordinator is driven by the host: OnStart once after every component
// exists, OnStop once at shutdown. Both are safe to call more than once and
// in any order.
package lifecycle
