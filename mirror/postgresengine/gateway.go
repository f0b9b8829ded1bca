package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/postgresengine/internal/adapters"
)

const (
	logMsgBuildStatementFailed = "failed to build sql statement"
	logMsgDBExecFailed         = "database execution failed"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgBeginFailed          = "failed to begin batch transaction"
	logMsgCommitFailed         = "failed to commit batch transaction"
	logMsgRollbackFailed       = "failed to roll back batch transaction"
	logMsgBatchCommitted       = "batch committed"
	logMsgBatchRolledBack      = "batch rolled back"
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "mirror operation: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrTable               = "table"
	logAttrDurationMS          = "duration_ms"
	colID                      = "id"
	colName                    = "name"
	colLocation                = "location"
	colContact                 = "contact"
	colPublisherID             = "publisher_id"
	colBookID                  = "book_id"
	colBookItemID              = "book_item_id"
	colStatus                  = "status"
	colPagesCount              = "pages_count"
	colTimestamp               = "timestamp"
	dialectPostgres            = "postgres"
)

// Gateway is the PostgreSQL implementation of mirror.Gateway.
type Gateway struct {
	db               adapters.DBAdapter
	tables           TableNames
	logger           mirror.Logger
	contextualLogger mirror.ContextualLogger
	metricsCollector mirror.MetricsCollector
	tracingCollector mirror.TracingCollector
}

// NewGatewayFromPGXPool creates a new Gateway using a pgx Pool with optional configuration.
func NewGatewayFromPGXPool(db *pgxpool.Pool, options ...Option) (*Gateway, error) {
	if db == nil {
		return nil, mirror.ErrNilDatabaseConnection
	}

	return newGateway(adapters.NewPGXAdapter(db), options...)
}

// NewGatewayFromSQLDB creates a new Gateway using a sql.DB with optional configuration.
func NewGatewayFromSQLDB(db *sql.DB, options ...Option) (*Gateway, error) {
	if db == nil {
		return nil, mirror.ErrNilDatabaseConnection
	}

	return newGateway(adapters.NewSQLAdapter(db), options...)
}

// NewGatewayFromSQLX creates a new Gateway using a sqlx.DB with optional configuration.
func NewGatewayFromSQLX(db *sqlx.DB, options ...Option) (*Gateway, error) {
	if db == nil {
		return nil, mirror.ErrNilDatabaseConnection
	}

	return newGateway(adapters.NewSQLXAdapter(db), options...)
}

func newGateway(db adapters.DBAdapter, options ...Option) (*Gateway, error) {
	g := &Gateway{
		db:     db,
		tables: DefaultTableNames(),
	}

	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// InTransaction runs fn inside one database transaction.
// The transaction is committed if fn returns nil and rolled back otherwise.
func (g *Gateway) InTransaction(ctx context.Context, fn func(ctx context.Context, w mirror.Writer) error) error {
	ctx, span := g.startTraceSpan(ctx, spanNameBatch, map[string]string{spanAttrOperation: operationBatch})
	start := time.Now()

	tx, beginErr := g.db.BeginTx(ctx)
	if beginErr != nil {
		g.logError(ctx, logMsgBeginFailed, beginErr)
		g.finishOperation(ctx, span, operationBatch, statusError, errorTypeBegin, time.Since(start))

		return errors.Join(mirror.ErrTransactionFailed, beginErr)
	}

	if fnErr := fn(ctx, &sqlWriter{gateway: g, exec: tx}); fnErr != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			g.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
		}

		g.logOperation(ctx, logMsgBatchRolledBack, logAttrError, fnErr.Error())
		g.finishOperation(ctx, span, operationBatch, statusError, errorTypeOf(fnErr), time.Since(start))

		return fnErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		g.logError(ctx, logMsgCommitFailed, commitErr)
		err := classifyWriteError(commitErr)
		g.finishOperation(ctx, span, operationBatch, statusError, errorTypeOf(err), time.Since(start))

		return errors.Join(mirror.ErrTransactionFailed, err)
	}

	duration := time.Since(start)
	g.logOperation(ctx, logMsgBatchCommitted, logAttrDurationMS, toMilliseconds(duration))
	g.finishOperation(ctx, span, operationBatch, statusSuccess, "", duration)

	return nil
}

// FindBook returns the mirrored book or mirror.ErrBookNotFound.
func (g *Gateway) FindBook(ctx context.Context, id string) (mirror.Book, error) {
	ctx, span := g.startTraceSpan(ctx, spanNameFindBook, map[string]string{spanAttrOperation: operationFindBook})
	start := time.Now()

	book, err := g.findBook(ctx, id)

	status := statusSuccess
	if err != nil && !errors.Is(err, mirror.ErrBookNotFound) {
		status = statusError
	}
	g.finishOperation(ctx, span, operationFindBook, status, errorTypeOf(err), time.Since(start))

	return book, err
}

func (g *Gateway) findBook(ctx context.Context, id string) (mirror.Book, error) {
	query, args, buildErr := g.buildFindBookQuery(id)
	if buildErr != nil {
		g.logError(ctx, logMsgBuildStatementFailed, buildErr, logAttrTable, g.tables.Books)
		return mirror.Book{}, buildErr
	}

	start := time.Now()
	rows, queryErr := g.db.Query(ctx, query, args...)
	g.logQueryWithDuration(ctx, query, operationFindBook, time.Since(start))
	if queryErr != nil {
		g.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, query)
		return mirror.Book{}, errors.Join(mirror.ErrQueryingFailed, queryErr)
	}
	defer g.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			g.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, query)
			return mirror.Book{}, errors.Join(mirror.ErrQueryingFailed, rowsErr)
		}

		return mirror.Book{}, mirror.ErrBookNotFound
	}

	var book mirror.Book
	if scanErr := rows.Scan(&book.ID, &book.Name, &book.PublisherID, &book.Timestamp); scanErr != nil {
		g.logError(ctx, logMsgScanRowFailed, scanErr)
		return mirror.Book{}, errors.Join(mirror.ErrQueryingFailed, scanErr)
	}

	book.Timestamp = book.Timestamp.UTC()

	return book, nil
}

// CreatePublisher implements mirror.Writer outside of an explicit batch.
func (g *Gateway) CreatePublisher(ctx context.Context, publisher mirror.Publisher) error {
	return g.autoCommitWriter().CreatePublisher(ctx, publisher)
}

// CreateBook implements mirror.Writer outside of an explicit batch.
func (g *Gateway) CreateBook(ctx context.Context, book mirror.Book) error {
	return g.autoCommitWriter().CreateBook(ctx, book)
}

// CreateBookItems implements mirror.Writer outside of an explicit batch.
// All items are inserted with one statement.
func (g *Gateway) CreateBookItems(ctx context.Context, items []mirror.BookItem) error {
	return g.autoCommitWriter().CreateBookItems(ctx, items)
}

// UpdateBookItemsStatus implements mirror.Writer outside of an explicit batch.
func (g *Gateway) UpdateBookItemsStatus(ctx context.Context, ids []string, status mirror.BookItemStatus, at time.Time) error {
	return g.autoCommitWriter().UpdateBookItemsStatus(ctx, ids, status, at)
}

// AppendTransactions implements mirror.Writer outside of an explicit batch.
func (g *Gateway) AppendTransactions(ctx context.Context, transactions []mirror.Transaction) error {
	return g.autoCommitWriter().AppendTransactions(ctx, transactions)
}

// CreateChapterItem implements mirror.Writer outside of an explicit batch.
func (g *Gateway) CreateChapterItem(ctx context.Context, chapter mirror.ChapterItem) error {
	return g.autoCommitWriter().CreateChapterItem(ctx, chapter)
}

func (g *Gateway) autoCommitWriter() *sqlWriter {
	return &sqlWriter{gateway: g, exec: g.db}
}

// closeRows safely closes database rows and logs any errors.
func (g *Gateway) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		g.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// classifyWriteError maps constraint violations onto the mirror error taxonomy.
func classifyWriteError(err error) error {
	switch adapters.SQLState(err) {
	case adapters.SQLStateUniqueViolation:
		return errors.Join(mirror.ErrUniqueViolation, err)

	case adapters.SQLStateForeignKeyViolation:
		return errors.Join(mirror.ErrForeignEntityMissing, err)

	default:
		return errors.Join(mirror.ErrWritingFailed, err)
	}
}

var _ mirror.Gateway = (*Gateway)(nil)
