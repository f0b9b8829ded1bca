package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/postgresengine/internal/adapters"
)

// sqlWriter runs the write statements of a Gateway, either on the pool or inside a batch transaction.
type sqlWriter struct {
	gateway *Gateway
	exec    adapters.DBExecutor
}

func (w *sqlWriter) CreatePublisher(ctx context.Context, publisher mirror.Publisher) error {
	query, args, err := w.gateway.buildInsertPublisher(publisher)
	_, err = w.execute(ctx, w.gateway.tables.Publishers, operationCreate, query, args, err)

	return err
}

func (w *sqlWriter) CreateBook(ctx context.Context, book mirror.Book) error {
	query, args, err := w.gateway.buildInsertBook(book)
	_, err = w.execute(ctx, w.gateway.tables.Books, operationCreate, query, args, err)

	return err
}

func (w *sqlWriter) CreateBookItems(ctx context.Context, items []mirror.BookItem) error {
	if len(items) == 0 {
		return nil
	}

	query, args, err := w.gateway.buildInsertBookItems(items)
	_, err = w.execute(ctx, w.gateway.tables.BookItems, operationCreate, query, args, err)

	return err
}

func (w *sqlWriter) AppendTransactions(ctx context.Context, transactions []mirror.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	query, args, err := w.gateway.buildInsertTransactions(transactions)
	_, err = w.execute(ctx, w.gateway.tables.Transactions, operationCreate, query, args, err)

	return err
}

func (w *sqlWriter) CreateChapterItem(ctx context.Context, chapter mirror.ChapterItem) error {
	query, args, err := w.gateway.buildInsertChapterItem(chapter)
	_, err = w.execute(ctx, w.gateway.tables.ChapterItems, operationCreate, query, args, err)

	return err
}

func (w *sqlWriter) UpdateBookItemsStatus(
	ctx context.Context,
	ids []string,
	status mirror.BookItemStatus,
	at time.Time,
) error {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}

	query, args, err := w.gateway.buildUpdateBookItemsStatus(unique, status, at)
	rowsAffected, err := w.execute(ctx, w.gateway.tables.BookItems, operationUpdate, query, args, err)
	if err != nil {
		return err
	}

	if rowsAffected < int64(len(unique)) {
		return errors.Join(
			mirror.ErrBookItemNotFound,
			fmt.Errorf("updated %d of %d book items", rowsAffected, len(unique)),
		)
	}

	return nil
}

// execute runs one prepared statement and maps driver errors onto the mirror error taxonomy.
func (w *sqlWriter) execute(
	ctx context.Context,
	table string,
	operation string,
	query sqlQueryString,
	args sqlArgs,
	buildErr error,
) (int64, error) {
	g := w.gateway

	if buildErr != nil {
		g.logError(ctx, logMsgBuildStatementFailed, buildErr, logAttrTable, table)
		g.recordStatement(ctx, table, operation, 0, buildErr)

		return 0, buildErr
	}

	start := time.Now()
	result, execErr := w.exec.Exec(ctx, query, args...)
	g.logQueryWithDuration(ctx, query, operation+" "+table, time.Since(start))
	if execErr != nil {
		err := classifyWriteError(execErr)
		g.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, query, logAttrTable, table)
		g.recordStatement(ctx, table, operation, 0, err)

		return 0, err
	}

	rowsAffected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		g.logError(ctx, logMsgRowsAffectedFailed, rowsErr, logAttrTable, table)
		err := errors.Join(mirror.ErrWritingFailed, rowsErr)
		g.recordStatement(ctx, table, operation, 0, err)

		return 0, err
	}

	g.recordStatement(ctx, table, operation, rowsAffected, nil)

	return rowsAffected, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	return unique
}

var _ mirror.Writer = (*sqlWriter)(nil)
