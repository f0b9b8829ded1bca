package memengine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

type state struct {
	publishers   map[string]mirror.Publisher
	books        map[string]mirror.Book
	bookItems    map[string]mirror.BookItem
	transactions []mirror.Transaction
	chapters     []mirror.ChapterItem
}

func newState() state {
	return state{
		publishers: map[string]mirror.Publisher{},
		books:      map[string]mirror.Book{},
		bookItems:  map[string]mirror.BookItem{},
	}
}

func (s state) clone() state {
	return state{
		publishers:   maps.Clone(s.publishers),
		books:        maps.Clone(s.books),
		bookItems:    maps.Clone(s.bookItems),
		transactions: slices.Clone(s.transactions),
		chapters:     slices.Clone(s.chapters),
	}
}

// Store is an in-memory mirror.Gateway.
type Store struct {
	mu    sync.Mutex
	state state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// InTransaction runs fn against a staged copy of the state and publishes it only on success.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, w mirror.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Join(mirror.ErrTransactionFailed, err)
	}

	tx := &writer{state: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.state = tx.state

	return nil
}

// FindBook returns the mirrored book or mirror.ErrBookNotFound.
func (s *Store) FindBook(_ context.Context, id string) (mirror.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.state.books[id]
	if !ok {
		return mirror.Book{}, mirror.ErrBookNotFound
	}

	return book, nil
}

// CreatePublisher implements mirror.Writer.
func (s *Store) CreatePublisher(ctx context.Context, publisher mirror.Publisher) error {
	return s.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		return w.CreatePublisher(ctx, publisher)
	})
}

// CreateBook implements mirror.Writer.
func (s *Store) CreateBook(ctx context.Context, book mirror.Book) error {
	return s.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		return w.CreateBook(ctx, book)
	})
}

// CreateBookItems implements mirror.Writer.
func (s *Store) CreateBookItems(ctx context.Context, items []mirror.BookItem) error {
	return s.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		return w.CreateBookItems(ctx, items)
	})
}

// UpdateBookItemsStatus implements mirror.Writer.
func (s *Store) UpdateBookItemsStatus(ctx context.Context, ids []string, status mirror.BookItemStatus, at time.Time) error {
	return s.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		return w.UpdateBookItemsStatus(ctx, ids, status, at)
	})
}

// AppendTransactions implements mirror.Writer.
func (s *Store) AppendTransactions(ctx context.Context, transactions []mirror.Transaction) error {
	return s.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		return w.AppendTransactions(ctx, transactions)
	})
}

// CreateChapterItem implements mirror.Writer.
func (s *Store) CreateChapterItem(ctx context.Context, chapter mirror.ChapterItem) error {
	return s.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		return w.CreateChapterItem(ctx, chapter)
	})
}

// Publishers returns all mirrored publishers ordered by id.
func (s *Store) Publishers() []mirror.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.state.publishers, func(p mirror.Publisher) string { return p.ID })
}

// Books returns all mirrored books ordered by id.
func (s *Store) Books() []mirror.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.state.books, func(b mirror.Book) string { return b.ID })
}

// BookItems returns all mirrored book items ordered by id.
func (s *Store) BookItems() []mirror.BookItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedValues(s.state.bookItems, func(i mirror.BookItem) string { return i.ID })
}

// Transactions returns all audit rows in append order.
func (s *Store) Transactions() []mirror.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.state.transactions)
}

// ChapterItems returns all mirrored chapters in creation order.
func (s *Store) ChapterItems() []mirror.ChapterItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.state.chapters)
}

func sortedValues[V any](m map[string]V, key func(V) string) []V {
	values := slices.Collect(maps.Values(m))
	slices.SortFunc(values, func(a, b V) int {
		return strings.Compare(key(a), key(b))
	})

	return values
}

// writer applies writes to a staged state. It is only reachable through Store.InTransaction.
type writer struct {
	state state
}

func (w *writer) CreatePublisher(_ context.Context, publisher mirror.Publisher) error {
	if _, exists := w.state.publishers[publisher.ID]; exists {
		return errors.Join(mirror.ErrUniqueViolation, fmt.Errorf("publisher %s", publisher.ID))
	}

	w.state.publishers[publisher.ID] = publisher

	return nil
}

func (w *writer) CreateBook(_ context.Context, book mirror.Book) error {
	if _, exists := w.state.books[book.ID]; exists {
		return errors.Join(mirror.ErrUniqueViolation, fmt.Errorf("book %s", book.ID))
	}

	if _, exists := w.state.publishers[book.PublisherID]; !exists {
		return errors.Join(mirror.ErrForeignEntityMissing, fmt.Errorf("publisher %s", book.PublisherID))
	}

	w.state.books[book.ID] = book

	return nil
}

func (w *writer) CreateBookItems(_ context.Context, items []mirror.BookItem) error {
	for _, item := range items {
		if _, exists := w.state.bookItems[item.ID]; exists {
			return errors.Join(mirror.ErrUniqueViolation, fmt.Errorf("book item %s", item.ID))
		}

		if _, exists := w.state.books[item.BookID]; !exists {
			return errors.Join(mirror.ErrForeignEntityMissing, fmt.Errorf("book %s", item.BookID))
		}

		w.state.bookItems[item.ID] = item
	}

	return nil
}

func (w *writer) UpdateBookItemsStatus(_ context.Context, ids []string, status mirror.BookItemStatus, at time.Time) error {
	for _, id := range ids {
		item, exists := w.state.bookItems[id]
		if !exists {
			return errors.Join(mirror.ErrBookItemNotFound, fmt.Errorf("book item %s", id))
		}

		item.Status = status
		item.Timestamp = at
		w.state.bookItems[id] = item
	}

	return nil
}

func (w *writer) AppendTransactions(_ context.Context, transactions []mirror.Transaction) error {
	for _, transaction := range transactions {
		if _, exists := w.state.bookItems[transaction.BookItemID]; !exists {
			return errors.Join(mirror.ErrForeignEntityMissing, fmt.Errorf("book item %s", transaction.BookItemID))
		}

		if slices.ContainsFunc(w.state.transactions, func(t mirror.Transaction) bool { return t.ID == transaction.ID }) {
			return errors.Join(mirror.ErrUniqueViolation, fmt.Errorf("transaction %s", transaction.ID))
		}

		w.state.transactions = append(w.state.transactions, transaction)
	}

	return nil
}

func (w *writer) CreateChapterItem(_ context.Context, chapter mirror.ChapterItem) error {
	if _, exists := w.state.books[chapter.BookID]; !exists {
		return errors.Join(mirror.ErrForeignEntityMissing, fmt.Errorf("book %s", chapter.BookID))
	}

	w.state.chapters = append(w.state.chapters, chapter)

	return nil
}

var _ mirror.Gateway = (*Store)(nil)
