package helper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

// GivenUniqueID returns a fresh id, so tests against a shared database never collide.
func GivenUniqueID(t testing.TB) string {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id.String()
}

// FixturePublisher returns a publisher with the given id.
func FixturePublisher(id string, at time.Time) mirror.Publisher {
	return mirror.Publisher{
		ID:        id,
		Name:      "Acme Books",
		Location:  "Berlin",
		Contact:   "contact@acme.example",
		Timestamp: at,
	}
}

// FixtureBook returns a book of the given publisher.
func FixtureBook(id, publisherID string, at time.Time) mirror.Book {
	return mirror.Book{
		ID:          id,
		Name:        "Concurrency in Go",
		PublisherID: publisherID,
		Timestamp:   at,
	}
}

// FixtureBookItems returns one item per id, all of the given book and status.
func FixtureBookItems(bookID string, status mirror.BookItemStatus, at time.Time, ids ...string) []mirror.BookItem {
	items := make([]mirror.BookItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, mirror.BookItem{ID: id, BookID: bookID, Status: status, Timestamp: at})
	}

	return items
}

// FixtureTransactions returns one transaction with a fresh id per book item id.
func FixtureTransactions(t testing.TB, status mirror.BookItemStatus, at time.Time, bookItemIDs ...string) []mirror.Transaction {
	t.Helper()

	transactions := make([]mirror.Transaction, 0, len(bookItemIDs))
	for _, bookItemID := range bookItemIDs {
		transactions = append(transactions, mirror.Transaction{
			ID:         GivenUniqueID(t),
			BookItemID: bookItemID,
			Status:     status,
			Timestamp:  at,
		})
	}

	return transactions
}
