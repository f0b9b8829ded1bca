package chainevents

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Names of the contract events, as declared in the embedded ABI.
const (
	PublisherRegisteredName    = "PublisherRegistered"
	BookCreatedName            = "BookCreated"
	BookItemsAddedName         = "BookItemsAdded"
	BookItemsStatusChangedName = "BookItemsStatusChanged"
	ChapterCreatedName         = "ChapterCreated"
)

// Names returns the names of all tracked contract events in a stable order.
func Names() []string {
	return []string{
		PublisherRegisteredName,
		BookCreatedName,
		BookItemsAddedName,
		BookItemsStatusChangedName,
		ChapterCreatedName,
	}
}

// Origin locates the log an event was decoded from.
type Origin struct {
	BlockNumber uint64      `json:"blockNumber"`
	TxHash      common.Hash `json:"txHash"`
	LogIndex    uint        `json:"logIndex"`
}

// Event is the sealed union of the decoded contract events.
type Event interface {
	// EventType returns the contract event name.
	EventType() string
	// Source returns where the event was emitted. Its block number drives timestamp resolution.
	Source() Origin
	isChainEvent()
}

// PublisherRegistered is emitted when a publisher account registers itself.
type PublisherRegistered struct {
	Origin      Origin `json:"origin"`
	PublisherID string `json:"publisherId"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Contact     string `json:"contact"`
}

// BookCreated is emitted when a publisher creates a book.
type BookCreated struct {
	Origin      Origin `json:"origin"`
	BookID      string `json:"bookId"`
	Name        string `json:"name"`
	PublisherID string `json:"publisherId"`
}

// BookItemsAdded is emitted when copies of a book are added to the catalog.
type BookItemsAdded struct {
	Origin  Origin   `json:"origin"`
	ItemIDs []string `json:"itemIds"`
	BookID  string   `json:"bookId"`
}

// BookItemsStatusChanged is emitted when the status of one or more copies changes.
// StatusIndex is kept as emitted, mapping it to a status is up to the consumer.
type BookItemsStatusChanged struct {
	Origin      Origin   `json:"origin"`
	ItemIDs     []string `json:"itemIds"`
	StatusIndex *big.Int `json:"statusIndex"`
}

// ChapterCreated is emitted when a chapter is added to a book.
type ChapterCreated struct {
	Origin     Origin `json:"origin"`
	BookID     string `json:"bookId"`
	Name       string `json:"name"`
	PagesCount uint64 `json:"pagesCount"`
}

func (e PublisherRegistered) EventType() string    { return PublisherRegisteredName }
func (e BookCreated) EventType() string            { return BookCreatedName }
func (e BookItemsAdded) EventType() string         { return BookItemsAddedName }
func (e BookItemsStatusChanged) EventType() string { return BookItemsStatusChangedName }
func (e ChapterCreated) EventType() string         { return ChapterCreatedName }

func (e PublisherRegistered) Source() Origin    { return e.Origin }
func (e BookCreated) Source() Origin            { return e.Origin }
func (e BookItemsAdded) Source() Origin         { return e.Origin }
func (e BookItemsStatusChanged) Source() Origin { return e.Origin }
func (e ChapterCreated) Source() Origin         { return e.Origin }

func (PublisherRegistered) isChainEvent()    {}
func (BookCreated) isChainEvent()            {}
func (BookItemsAdded) isChainEvent()         {}
func (BookItemsStatusChanged) isChainEvent() {}
func (ChapterCreated) isChainEvent()         {}
