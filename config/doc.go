// Package config loads the library mirror configuration from LIBRARY_MIRROR_* environment variables
// and creates the PostgreSQL connection pools for the supported adapters (pgx.Pool, sql.DB, sqlx.DB).
package config
