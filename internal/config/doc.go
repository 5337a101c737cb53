// Package config defines the client configuration model shared by the
// registry, the connection factory and the transport adapters, along with
// the Loader interface for reading it from files.
//
// A ConnectionConfig is immutable once resolved: the registry clones it
// before handing it to the connection factory. Concrete loaders, such as
// the HCL one, live in separate packages.
package config
