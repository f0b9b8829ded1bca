package helper

import (
	"math/big"
	"math/rand/v2"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
)

const numStatuses = 4

// CatalogStreamConfig sizes a generated catalog event stream.
type CatalogStreamConfig struct {
	Seed              uint64
	Publishers        int
	BooksPerPublisher int
	ItemsPerBook      int
	ChaptersPerBook   int
	StatusChanges     int
	MaxItemsPerChange int
}

// CatalogStream is a generated event stream split into the part that builds the catalog
// (publishers, books, items) and the part that only references it (status changes, chapters).
type CatalogStream struct {
	Setup     []chainevents.Event
	Follow    []chainevents.Event
	ItemIDs   []string
	BookIDs   []string
	lastBlock uint64
}

// GenerateCatalogStream builds a deterministic stream for the given seed.
// Every event lives in its own block, so block numbers grow by one per event.
func GenerateCatalogStream(cfg CatalogStreamConfig) CatalogStream {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // deterministic fixtures
	stream := CatalogStream{}

	nextBookID := 1
	nextItemID := 1

	for p := range cfg.Publishers {
		publisher := common.BigToAddress(big.NewInt(int64(0x1000 + p)))
		stream.Setup = append(stream.Setup, chainevents.PublisherRegistered{
			Origin:      stream.nextOrigin(),
			PublisherID: publisher.Hex(),
			Name:        "Publisher " + strconv.Itoa(p),
			Location:    "City " + strconv.Itoa(p),
			Contact:     "publisher" + strconv.Itoa(p) + "@example.org",
		})

		for range cfg.BooksPerPublisher {
			bookID := strconv.Itoa(nextBookID)
			nextBookID++
			stream.BookIDs = append(stream.BookIDs, bookID)

			stream.Setup = append(stream.Setup, chainevents.BookCreated{
				Origin:      stream.nextOrigin(),
				BookID:      bookID,
				Name:        "Book " + bookID,
				PublisherID: publisher.Hex(),
			})

			itemIDs := make([]string, 0, cfg.ItemsPerBook)
			for range cfg.ItemsPerBook {
				itemIDs = append(itemIDs, strconv.Itoa(nextItemID))
				nextItemID++
			}

			if len(itemIDs) > 0 {
				stream.ItemIDs = append(stream.ItemIDs, itemIDs...)
				stream.Setup = append(stream.Setup, chainevents.BookItemsAdded{
					Origin:  stream.nextOrigin(),
					ItemIDs: itemIDs,
					BookID:  bookID,
				})
			}
		}
	}

	for _, bookID := range stream.BookIDs {
		for c := range cfg.ChaptersPerBook {
			stream.Follow = append(stream.Follow, chainevents.ChapterCreated{
				Origin:     stream.nextOrigin(),
				BookID:     bookID,
				Name:       "Chapter " + strconv.Itoa(c+1),
				PagesCount: uint64(rng.IntN(40) + 1),
			})
		}
	}

	for range cfg.StatusChanges {
		if len(stream.ItemIDs) == 0 {
			break
		}

		stream.Follow = append(stream.Follow, chainevents.BookItemsStatusChanged{
			Origin:      stream.nextOrigin(),
			ItemIDs:     pickItems(rng, stream.ItemIDs, cfg.MaxItemsPerChange),
			StatusIndex: big.NewInt(int64(rng.IntN(numStatuses))),
		})
	}

	rng.Shuffle(len(stream.Follow), func(i, j int) {
		stream.Follow[i], stream.Follow[j] = stream.Follow[j], stream.Follow[i]
	})

	return stream
}

// TotalStatusChangeItems counts the item ids across all status changes of the stream.
func (s CatalogStream) TotalStatusChangeItems() int {
	total := 0

	for _, e := range s.Follow {
		if changed, ok := e.(chainevents.BookItemsStatusChanged); ok {
			total += len(changed.ItemIDs)
		}
	}

	return total
}

func (s *CatalogStream) nextOrigin() chainevents.Origin {
	s.lastBlock++

	return chainevents.Origin{
		BlockNumber: s.lastBlock,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(s.lastBlock)),
	}
}

// pickItems returns between one and maxItems distinct ids.
func pickItems(rng *rand.Rand, itemIDs []string, maxItems int) []string {
	limit := min(max(maxItems, 1), len(itemIDs))
	n := rng.IntN(limit) + 1

	picked := make([]string, 0, n)
	for _, i := range rng.Perm(len(itemIDs))[:n] {
		picked = append(picked, itemIDs[i])
	}

	return picked
}
