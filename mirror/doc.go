// Package mirror provides the core abstractions of the library catalog mirror store.
//
// The mirror store is the relational projection of the on-chain library catalog:
// publishers, books, book items (copies), their status transactions and chapters.
// This package defines the entity types, the write Gateway that projection code
// talks to, the error taxonomy shared by all storage engines, and the
// dependency-free observability interfaces.
//
// Key types:
//   - Publisher, Book, BookItem, Transaction, ChapterItem: the mirrored entities
//   - BookItemStatus: the lifecycle status of a book item
//   - Gateway: transactional write interface implemented by the storage engines
//
// Common usage pattern:
//
//	err := gateway.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
//		if err := w.CreateBookItems(ctx, items); err != nil {
//			return err
//		}
//
//		return w.AppendTransactions(ctx, transactions)
//	})
package mirror
