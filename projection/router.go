package projection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

const (
	defaultChapterBookAttempts = 5
	defaultChapterBookDelay    = time.Second
)

var (
	// ErrUnsupportedEvent is returned for events outside the chainevents union, for example nil.
	ErrUnsupportedEvent = errors.New("unsupported event")

	// ErrDrainTimeout is returned when in-flight events did not finish before the drain context ended.
	ErrDrainTimeout = errors.New("draining in-flight events timed out")

	// ErrGeneratingTransactionIDFailed is returned when no Transaction id could be generated.
	ErrGeneratingTransactionIDFailed = errors.New("generating transaction id failed")
)

// Resolver resolves the timestamp of the block an event was emitted in.
type Resolver interface {
	Resolve(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Router dispatches decoded events to their projection handlers.
type Router struct {
	resolver            Resolver
	gateway             mirror.Gateway
	bookPublisherPolicy RetryPolicy
	chapterBookPolicy   RetryPolicy
	newTransactionID    func() (string, error)
	inFlight            sync.WaitGroup
	inFlightCount       atomic.Int64
	logger              mirror.Logger
	contextualLogger    mirror.ContextualLogger
	metricsCollector    mirror.MetricsCollector
	tracingCollector    mirror.TracingCollector
}

// NewRouter creates a Router writing through gateway.
func NewRouter(resolver Resolver, gateway mirror.Gateway, options ...Option) (*Router, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}

	if gateway == nil {
		return nil, ErrNilGateway
	}

	r := &Router{
		resolver:            resolver,
		gateway:             gateway,
		bookPublisherPolicy: FailFast(),
		chapterBookPolicy:   RetryPolicy{maxAttempts: defaultChapterBookAttempts, delay: defaultChapterBookDelay},
		newTransactionID:    newUUIDv7,
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// Dispatch processes the event in its own goroutine and returns immediately.
// A failure is logged together with the event payload and the event is dropped.
// Processing does not inherit ctx's cancellation, use Drain to wait for it.
func (r *Router) Dispatch(ctx context.Context, event chainevents.Event) {
	r.inFlight.Add(1)
	r.inFlightCount.Add(1)

	go func() {
		defer r.inFlight.Done()
		defer r.inFlightCount.Add(-1)

		detached := context.WithoutCancel(ctx)
		if err := r.Handle(detached, event); err != nil {
			r.logDropped(detached, event, err)
		}
	}()
}

// Handle resolves the event's timestamp once and runs the one handler owning the event type.
func (r *Router) Handle(ctx context.Context, event chainevents.Event) error {
	if event == nil {
		return errors.Join(ErrUnsupportedEvent, errors.New("nil event"))
	}

	ctx, span := r.startTraceSpan(ctx, event)
	start := time.Now()

	err := r.handle(ctx, event)

	r.finishEvent(ctx, span, event, err, time.Since(start))

	return err
}

func (r *Router) handle(ctx context.Context, event chainevents.Event) error {
	at, err := r.resolver.Resolve(ctx, event.Source().BlockNumber)
	if err != nil {
		return err
	}

	switch e := event.(type) {
	case chainevents.PublisherRegistered:
		return r.projectPublisherRegistered(ctx, e, at)
	case chainevents.BookCreated:
		return r.projectBookCreated(ctx, e, at)
	case chainevents.BookItemsAdded:
		return r.projectBookItemsAdded(ctx, e, at)
	case chainevents.BookItemsStatusChanged:
		return r.projectBookItemsStatusChanged(ctx, e, at)
	case chainevents.ChapterCreated:
		return r.projectChapterCreated(ctx, e, at)
	default:
		return errors.Join(ErrUnsupportedEvent, fmt.Errorf("%T", event))
	}
}

// InFlight returns the number of dispatched events that are still being processed.
func (r *Router) InFlight() int64 {
	return r.inFlightCount.Load()
}

// Drain blocks until all dispatched events are processed or ctx is done.
// Delivery of new events must have stopped before, see chainstream.Connection.Stop.
func (r *Router) Drain(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		r.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrDrainTimeout, ctx.Err())
	}
}
