package mirror

import (
	"context"
	"time"
)

// Writer is the set of write operations available on the mirror store.
// Inside Gateway.InTransaction all writes belong to the same atomic batch.
type Writer interface {
	CreatePublisher(ctx context.Context, publisher Publisher) error
	CreateBook(ctx context.Context, book Book) error
	CreateBookItems(ctx context.Context, items []BookItem) error

	// UpdateBookItemsStatus sets status and timestamp on every named book item.
	// It returns ErrBookItemNotFound if any of the ids is not mirrored.
	UpdateBookItemsStatus(ctx context.Context, ids []string, status BookItemStatus, at time.Time) error

	AppendTransactions(ctx context.Context, transactions []Transaction) error
	CreateChapterItem(ctx context.Context, chapter ChapterItem) error
}

// Gateway is the transactional write interface into the mirror store.
type Gateway interface {
	Writer

	// FindBook returns the mirrored book or ErrBookNotFound.
	FindBook(ctx context.Context, id string) (Book, error)

	// InTransaction runs fn as one atomic batch: either every write made through
	// the supplied Writer is committed or none is.
	InTransaction(ctx context.Context, fn func(ctx context.Context, w Writer) error) error
}
