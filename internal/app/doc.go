// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// The lifecycle is: load the experiment and module manifests, register the
// compiled-in handlers, build the dependency graph and hand it to the
// executor. Auxiliary surfaces (the status server, the memo index listing,
// the monitor connection) hang off the same App value.
package app
