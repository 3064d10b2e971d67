// Package dag is the planning layer of the application. It takes a config
// Model, expands every run's matrix into individual task nodes, links the
// nodes through explicit depends_on entries, through run.* references found
// in argument expressions, and through sub-store ownership, and validates
// that the resulting graph is acyclic before any task executes.
package dag
