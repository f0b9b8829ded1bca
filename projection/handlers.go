package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

// projectPublisherRegistered writes one Publisher. A replayed event fails with mirror.ErrUniqueViolation.
func (r *Router) projectPublisherRegistered(ctx context.Context, e chainevents.PublisherRegistered, at time.Time) error {
	return r.gateway.CreatePublisher(ctx, mirror.Publisher{
		ID:        e.PublisherID,
		Name:      e.Name,
		Location:  e.Location,
		Contact:   e.Contact,
		Timestamp: at,
	})
}

// projectBookCreated writes one Book. A missing publisher is retried according to the book-publisher policy
// and surfaces as an error once the policy gives up.
func (r *Router) projectBookCreated(ctx context.Context, e chainevents.BookCreated, at time.Time) error {
	book := mirror.Book{
		ID:          e.BookID,
		Name:        e.Name,
		PublisherID: e.PublisherID,
		Timestamp:   at,
	}

	outcome, err := AwaitForeignEntity(ctx, r.bookPublisherPolicy, func(ctx context.Context) error {
		return r.gateway.CreateBook(ctx, book)
	})
	if err != nil {
		if outcome.State == StateRetryLimitReached {
			r.recordRaceOutcome(ctx, e.EventType(), outcome.Complete())
		}

		return err
	}

	r.recordRaceOutcome(ctx, e.EventType(), outcome.Complete())

	return nil
}

// projectBookItemsAdded writes all items as RESERVED together with one RESERVED Transaction per item.
func (r *Router) projectBookItemsAdded(ctx context.Context, e chainevents.BookItemsAdded, at time.Time) error {
	if len(e.ItemIDs) == 0 {
		return nil
	}

	items := make([]mirror.BookItem, 0, len(e.ItemIDs))
	for _, itemID := range e.ItemIDs {
		items = append(items, mirror.BookItem{
			ID:        itemID,
			BookID:    e.BookID,
			Status:    mirror.StatusReserved,
			Timestamp: at,
		})
	}

	transactions, err := r.transactionsFor(e.ItemIDs, mirror.StatusReserved, at)
	if err != nil {
		return err
	}

	return r.gateway.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		if err := w.CreateBookItems(ctx, items); err != nil {
			return err
		}

		return w.AppendTransactions(ctx, transactions)
	})
}

// projectBookItemsStatusChanged moves all items to the indexed status and appends one Transaction per item.
// An unknown status index is rejected before anything is written.
func (r *Router) projectBookItemsStatusChanged(
	ctx context.Context,
	e chainevents.BookItemsStatusChanged,
	at time.Time,
) error {
	if e.StatusIndex == nil || !e.StatusIndex.IsUint64() {
		return errors.Join(mirror.ErrUnknownStatusIndex, fmt.Errorf("index %v", e.StatusIndex))
	}

	status, err := mirror.StatusFromIndex(e.StatusIndex.Uint64())
	if err != nil {
		return err
	}

	if len(e.ItemIDs) == 0 {
		return nil
	}

	transactions, err := r.transactionsFor(e.ItemIDs, status, at)
	if err != nil {
		return err
	}

	return r.gateway.InTransaction(ctx, func(ctx context.Context, w mirror.Writer) error {
		if err := w.UpdateBookItemsStatus(ctx, e.ItemIDs, status, at); err != nil {
			return err
		}

		return w.AppendTransactions(ctx, transactions)
	})
}

// projectChapterCreated waits for the chapter's book according to the chapter-book policy and writes the chapter.
// If the book never shows up the chapter is abandoned: the loss is logged and nil is returned.
func (r *Router) projectChapterCreated(ctx context.Context, e chainevents.ChapterCreated, at time.Time) error {
	outcome, err := AwaitForeignEntity(ctx, r.chapterBookPolicy, func(ctx context.Context) error {
		_, findErr := r.gateway.FindBook(ctx, e.BookID)
		if errors.Is(findErr, mirror.ErrBookNotFound) {
			return errors.Join(mirror.ErrForeignEntityMissing, findErr)
		}

		return findErr
	})

	switch {
	case outcome.State == StateRetryLimitReached:
		abandoned := outcome.Complete()
		r.logChapterAbandoned(ctx, e, abandoned, err)
		r.recordRaceOutcome(ctx, e.EventType(), abandoned)

		return nil

	case err != nil:
		return err
	}

	if err := r.gateway.CreateChapterItem(ctx, mirror.ChapterItem{
		BookID:     e.BookID,
		Name:       e.Name,
		PagesCount: e.PagesCount,
		Timestamp:  at,
	}); err != nil {
		return err
	}

	r.recordRaceOutcome(ctx, e.EventType(), outcome.Complete())

	return nil
}

func (r *Router) transactionsFor(itemIDs []string, status mirror.BookItemStatus, at time.Time) ([]mirror.Transaction, error) {
	transactions := make([]mirror.Transaction, 0, len(itemIDs))

	for _, itemID := range itemIDs {
		id, err := r.newTransactionID()
		if err != nil {
			return nil, errors.Join(ErrGeneratingTransactionIDFailed, err)
		}

		transactions = append(transactions, mirror.Transaction{
			ID:         id,
			BookItemID: itemID,
			Status:     status,
			Timestamp:  at,
		})
	}

	return transactions, nil
}
