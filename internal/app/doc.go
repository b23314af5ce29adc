// Package app contains the core application logic. It loads the station and
// the sweep plan, binds plan references to instruments, and runs the plan on
// a loop.Engine with the configured sinks and monitor, decoupled from any
// specific entrypoint like a CLI or server.
package app
