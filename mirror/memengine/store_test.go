package memengine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/memengine"
)

func Test_CreatePublisher_Twice_Fails_With_UniqueViolation(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	publisher := mirror.Publisher{ID: "0xA1", Name: "O'Reilly", Timestamp: time.UnixMilli(1000).UTC()}

	// act
	firstErr := store.CreatePublisher(ctx, publisher)
	secondErr := store.CreatePublisher(ctx, publisher)

	// assert
	assert.NoError(t, firstErr)
	assert.ErrorIs(t, secondErr, mirror.ErrUniqueViolation)
	assert.Len(t, store.Publishers(), 1)
}

func Test_CreateBook_Without_Publisher_Fails_With_ForeignEntityMissing(t *testing.T) {
	// arrange
	store := memengine.NewStore()

	// act
	err := store.CreateBook(context.Background(), mirror.Book{ID: "1", PublisherID: "0xMissing"})

	// assert
	assert.ErrorIs(t, err, mirror.ErrForeignEntityMissing)
	assert.Empty(t, store.Books())
}

func Test_InTransaction_Discards_All_Writes_On_Error(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	assert.NoError(t, store.CreatePublisher(ctx, mirror.Publisher{ID: "0xA1"}))
	assert.NoError(t, store.CreateBook(ctx, mirror.Book{ID: "7", PublisherID: "0xA1"}))
	failure := errors.New("forced failure")

	// act
	err := store.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		if err := w.CreateBookItems(ctx, []mirror.BookItem{{ID: "1", BookID: "7", Status: mirror.StatusReserved}}); err != nil {
			return err
		}

		return failure
	})

	// assert
	assert.ErrorIs(t, err, failure)
	assert.Empty(t, store.BookItems())
}

func Test_UpdateBookItemsStatus_With_Unknown_Item_Changes_Nothing(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	assert.NoError(t, store.CreatePublisher(ctx, mirror.Publisher{ID: "0xA1"}))
	assert.NoError(t, store.CreateBook(ctx, mirror.Book{ID: "7", PublisherID: "0xA1"}))
	assert.NoError(t, store.CreateBookItems(ctx, []mirror.BookItem{{ID: "1", BookID: "7", Status: mirror.StatusReserved}}))

	// act
	err := store.UpdateBookItemsStatus(ctx, []string{"1", "2"}, mirror.StatusBorrowed, time.UnixMilli(2000).UTC())

	// assert
	assert.ErrorIs(t, err, mirror.ErrBookItemNotFound)
	assert.Equal(t, mirror.StatusReserved, store.BookItems()[0].Status)
}

func Test_FindBook(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	assert.NoError(t, store.CreatePublisher(ctx, mirror.Publisher{ID: "0xA1"}))
	assert.NoError(t, store.CreateBook(ctx, mirror.Book{ID: "7", Name: "Dune", PublisherID: "0xA1"}))

	// act
	book, err := store.FindBook(ctx, "7")
	_, missingErr := store.FindBook(ctx, "8")

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "Dune", book.Name)
	assert.ErrorIs(t, missingErr, mirror.ErrBookNotFound)
}
