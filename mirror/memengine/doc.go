// Package memengine provides an in-memory implementation of the mirror.Gateway.
//
// Batches run under a single lock against a cloned state that only replaces the
// live state when the batch function returns without error, so every batch is
// all-or-nothing. Uniqueness and foreign-entity constraints are enforced the same
// way the PostgreSQL schema enforces them.
//
// The engine backs the projection tests and the "memory" database adapter used for dry runs.
package memengine
