// Package connection implements the shared connection handed out by the
// client registry and the factory that creates it.
//
// A Connection wraps one transport.Client. It keeps exactly one transport
// subscription per event name and fans each event out to its own listeners
// in the order they were added, so delivery order is deterministic for a
// fixed set of bindings.
//
// Lifecycle state follows the transport's reserved events:
//
//	Unconnected -> Connecting -> Connected <-> Disconnected -> Closed
//
// Closed is terminal and is reached only through Close.
//
// Listeners bound after the initial connect completed still observe it: a
// listener added for "connect" while Connected is called once right away,
// and a listener added for "connect_error" while a connect error is pending
// is called once with that error.
package connection
