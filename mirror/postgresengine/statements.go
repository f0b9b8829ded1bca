package postgresengine

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

type (
	sqlQueryString = string
	sqlArgs        = []any
)

func (g *Gateway) dialect() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

func (g *Gateway) buildFindBookQuery(id string) (sqlQueryString, sqlArgs, error) {
	query, args, err := g.dialect().
		From(g.tables.Books).
		Select(colID, colName, colPublisherID, colTimestamp).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, errors.Join(mirror.ErrBuildingQueryFailed, err)
	}

	return query, args, nil
}

func (g *Gateway) buildInsertPublisher(publisher mirror.Publisher) (sqlQueryString, sqlArgs, error) {
	return g.buildInsert(g.tables.Publishers, goqu.Record{
		colID:        publisher.ID,
		colName:      publisher.Name,
		colLocation:  publisher.Location,
		colContact:   publisher.Contact,
		colTimestamp: publisher.Timestamp.UTC(),
	})
}

func (g *Gateway) buildInsertBook(book mirror.Book) (sqlQueryString, sqlArgs, error) {
	return g.buildInsert(g.tables.Books, goqu.Record{
		colID:          book.ID,
		colName:        book.Name,
		colPublisherID: book.PublisherID,
		colTimestamp:   book.Timestamp.UTC(),
	})
}

func (g *Gateway) buildInsertBookItems(items []mirror.BookItem) (sqlQueryString, sqlArgs, error) {
	records := make([]any, 0, len(items))
	for _, item := range items {
		records = append(records, goqu.Record{
			colID:        item.ID,
			colBookID:    item.BookID,
			colStatus:    string(item.Status),
			colTimestamp: item.Timestamp.UTC(),
		})
	}

	return g.buildInsert(g.tables.BookItems, records...)
}

func (g *Gateway) buildInsertTransactions(transactions []mirror.Transaction) (sqlQueryString, sqlArgs, error) {
	records := make([]any, 0, len(transactions))
	for _, transaction := range transactions {
		records = append(records, goqu.Record{
			colID:         transaction.ID,
			colBookItemID: transaction.BookItemID,
			colStatus:     string(transaction.Status),
			colTimestamp:  transaction.Timestamp.UTC(),
		})
	}

	return g.buildInsert(g.tables.Transactions, records...)
}

func (g *Gateway) buildInsertChapterItem(chapter mirror.ChapterItem) (sqlQueryString, sqlArgs, error) {
	return g.buildInsert(g.tables.ChapterItems, goqu.Record{
		colBookID:     chapter.BookID,
		colName:       chapter.Name,
		colPagesCount: int64(chapter.PagesCount), //nolint:gosec // bounded by the event decoder
		colTimestamp:  chapter.Timestamp.UTC(),
	})
}

func (g *Gateway) buildUpdateBookItemsStatus(
	ids []string,
	status mirror.BookItemStatus,
	at time.Time,
) (sqlQueryString, sqlArgs, error) {
	query, args, err := g.dialect().
		Update(g.tables.BookItems).
		Set(goqu.Record{colStatus: string(status), colTimestamp: at.UTC()}).
		Where(goqu.C(colID).In(ids)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, errors.Join(mirror.ErrBuildingQueryFailed, err)
	}

	return query, args, nil
}

func (g *Gateway) buildInsert(table string, records ...any) (sqlQueryString, sqlArgs, error) {
	query, args, err := g.dialect().
		Insert(table).
		Rows(records...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, errors.Join(mirror.ErrBuildingQueryFailed, err)
	}

	return query, args, nil
}
