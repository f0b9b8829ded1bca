// Package adapters provide database adapter implementations for the PostgreSQL mirror gateway.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, including transactions for atomic batches, so the gateway
// works the same with any supported connection type.
package adapters
