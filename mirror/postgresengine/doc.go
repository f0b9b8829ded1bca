// Package postgresengine provides a PostgreSQL implementation of the mirror.Gateway.
//
// This package writes the mirrored library catalog into PostgreSQL tables,
// supporting multiple database adapters (pgx, sql.DB, sqlx) with atomic batches
// and classification of constraint violations into the mirror error taxonomy.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Atomic batches via InTransaction (one database transaction per batch)
//   - Unique and foreign key violations mapped to mirror.ErrUniqueViolation and mirror.ErrForeignEntityMissing
//   - Configurable table names, logging, metrics and tracing
//   - Embedded schema for the default table names (EnsureSchema)
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	gateway, _ := postgresengine.NewGatewayFromPGXPool(db)
//
//	// With operational logging and metrics
//	gateway, _ := postgresengine.NewGatewayFromPGXPool(
//		db,
//		postgresengine.WithLogger(logger),
//		postgresengine.WithMetrics(collector),
//	)
//
//	err := gateway.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
//		return w.CreateBookItems(ctx, items)
//	})
package postgresengine
