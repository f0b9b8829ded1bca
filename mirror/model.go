package mirror

import (
	"errors"
	"fmt"
	"time"
)

// BookItemStatus is the lifecycle status of a single book copy.
type BookItemStatus string

const (
	// StatusReserved is the status of a freshly added book item.
	StatusReserved BookItemStatus = "RESERVED"
	// StatusBorrowed marks a book item lent to a reader.
	StatusBorrowed BookItemStatus = "BORROWED"
	// StatusAvailable marks a book item that can be borrowed.
	StatusAvailable BookItemStatus = "AVAILABLE"
	// StatusLost marks a book item that went missing.
	StatusLost BookItemStatus = "LOST"
)

// statusTable maps the on-chain status enum index to the mirrored status.
// The order is fixed by the contract and must never change.
var statusTable = map[uint64]BookItemStatus{
	0: StatusReserved,
	1: StatusBorrowed,
	2: StatusAvailable,
	3: StatusLost,
}

// StatusFromIndex maps an on-chain status index to a BookItemStatus.
// Indexes outside the fixed table yield ErrUnknownStatusIndex.
func StatusFromIndex(index uint64) (BookItemStatus, error) {
	status, ok := statusTable[index]
	if !ok {
		return "", errors.Join(ErrUnknownStatusIndex, fmt.Errorf("index %d", index))
	}

	return status, nil
}

// Valid reports whether s is one of the four known statuses.
func (s BookItemStatus) Valid() bool {
	switch s {
	case StatusReserved, StatusBorrowed, StatusAvailable, StatusLost:
		return true
	default:
		return false
	}
}

// Publisher is a registered publisher. Its ID is the checksummed hex address of the publisher account.
type Publisher struct {
	ID        string
	Name      string
	Location  string
	Contact   string
	Timestamp time.Time
}

// Book is a catalog title owned by a Publisher. Its ID is the decimal string of the on-chain id.
type Book struct {
	ID          string
	Name        string
	PublisherID string
	Timestamp   time.Time
}

// BookItem is a single physical copy of a Book.
// Timestamp is the instant of the last status change.
type BookItem struct {
	ID        string
	BookID    string
	Status    BookItemStatus
	Timestamp time.Time
}

// Transaction is an append-only audit row, one per BookItem status change including its creation.
type Transaction struct {
	ID         string
	BookItemID string
	Status     BookItemStatus
	Timestamp  time.Time
}

// ChapterItem is a chapter of a Book.
type ChapterItem struct {
	BookID     string
	Name       string
	PagesCount uint64
	Timestamp  time.Time
}
