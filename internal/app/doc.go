// Package app contains the core application logic. It wires the client
// registry, the lifecycle coordinator and the health check server together,
// decoupled from any specific entrypoint like a CLI.
package app
