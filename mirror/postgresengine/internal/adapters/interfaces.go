package adapters

import "context"

// DBExecutor runs parameterized statements, either directly on a pool or inside a transaction.
type DBExecutor interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBAdapter defines the interface for database operations needed by the mirror gateway.
type DBAdapter interface {
	DBExecutor
	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx is an open database transaction.
type DBTx interface {
	DBExecutor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
