// Package ioerr defines the error taxonomy shared by the client registry,
// the connection factory and the lifecycle coordinator.
//
// Callers match on these types with errors.As:
//
//	var connErr *ioerr.ConnectionError
//	if errors.As(err, &connErr) { ... }
package ioerr
