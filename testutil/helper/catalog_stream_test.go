package helper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
	"github.com/AntonStoeckl/library-chain-mirror/testutil/helper"
)

func Test_GenerateCatalogStream_Is_Deterministic_Per_Seed(t *testing.T) {
	// setup
	cfg := helper.CatalogStreamConfig{
		Seed:              7,
		Publishers:        2,
		BooksPerPublisher: 2,
		ItemsPerBook:      3,
		ChaptersPerBook:   1,
		StatusChanges:     10,
		MaxItemsPerChange: 3,
	}

	// act
	first := helper.GenerateCatalogStream(cfg)
	second := helper.GenerateCatalogStream(cfg)

	// assert
	assert.Equal(t, first, second)
}

func Test_GenerateCatalogStream_Sizes_The_Stream(t *testing.T) {
	// act
	stream := helper.GenerateCatalogStream(helper.CatalogStreamConfig{
		Seed:              1,
		Publishers:        2,
		BooksPerPublisher: 3,
		ItemsPerBook:      4,
		ChaptersPerBook:   2,
		StatusChanges:     5,
		MaxItemsPerChange: 2,
	})

	// assert
	assert.Len(t, stream.Setup, 2+2*3*2)
	assert.Len(t, stream.Follow, 2*3*2+5)
	assert.Len(t, stream.BookIDs, 6)
	assert.Len(t, stream.ItemIDs, 24)
	assert.GreaterOrEqual(t, stream.TotalStatusChangeItems(), 5)
	assert.LessOrEqual(t, stream.TotalStatusChangeItems(), 10)

	blocks := map[uint64]bool{}
	for _, e := range append(stream.Setup, stream.Follow...) {
		blocks[e.Source().BlockNumber] = true
	}
	assert.Len(t, blocks, len(stream.Setup)+len(stream.Follow))

	_, isPublisher := stream.Setup[0].(chainevents.PublisherRegistered)
	assert.True(t, isPublisher)
}
