package chainstream_test

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
	. "github.com/AntonStoeckl/library-chain-mirror/chainstream"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/memengine"
	"github.com/AntonStoeckl/library-chain-mirror/projection"
	"github.com/AntonStoeckl/library-chain-mirror/testutil/helper"
)

const (
	testEndpoint = "wss://example.invalid/v2/key"
	waitTimeout  = 2 * time.Second
)

var (
	contractAddress  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	publisherAddress = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func Test_Open_When_Dial_Fails_Returns_ErrDialFailed(t *testing.T) {
	// setup
	dialErr := errors.New("connection refused")
	dialer := func(context.Context, string) (Backend, error) { return nil, dialErr }

	// act
	conn, err := Open(context.Background(), testEndpoint, contractAddress, WithDialer(dialer))

	// assert
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrDialFailed)
	assert.ErrorIs(t, err, dialErr)
}

func Test_Open_With_Nil_Options_Fails(t *testing.T) {
	testCases := []struct {
		name    string
		option  Option
		wantErr error
	}{
		{name: "dialer", option: WithDialer(nil), wantErr: ErrNilDialer},
		{name: "logger", option: WithLogger(nil), wantErr: ErrNilLogger},
		{name: "contextual logger", option: WithContextualLogger(nil), wantErr: ErrNilLogger},
		{name: "metrics", option: WithMetrics(nil), wantErr: ErrNilMetricsCollector},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := Open(context.Background(), testEndpoint, contractAddress, tc.option)

			// assert
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_Open_Dials_The_Given_Endpoint(t *testing.T) {
	// setup
	backend := newFakeBackend()
	var dialed string
	dialer := func(_ context.Context, endpoint string) (Backend, error) {
		dialed = endpoint
		return backend, nil
	}

	// act
	conn, err := Open(context.Background(), testEndpoint, contractAddress, WithDialer(dialer))

	// assert
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, testEndpoint, dialed)
}

func Test_Subscribe_Installs_One_Listener_Per_Event(t *testing.T) {
	// setup
	backend := newFakeBackend()
	logHandler := helper.NewLogHandlerSpy(false)
	conn := givenOpenConnection(t, backend, WithLogger(slog.New(logHandler)))
	defer conn.Close()

	// act
	err := conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {})

	// assert
	require.NoError(t, err)
	assert.Equal(t, len(chainevents.Names()), backend.WatcherCount())
	for _, name := range chainevents.Names() {
		assert.True(t, logHandler.HasLogWithMessage(slog.LevelInfo, "Listening").WithAttr("event_type", name).Assert(), name)
	}
}

func Test_Subscribe_Twice_Returns_ErrAlreadySubscribed(t *testing.T) {
	// setup
	conn := givenOpenConnection(t, newFakeBackend())
	defer conn.Close()
	require.NoError(t, conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {}))

	// act
	err := conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {})

	// assert
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
}

func Test_Subscribe_Delivers_Decoded_Events_In_Arrival_Order(t *testing.T) {
	// setup
	backend := newFakeBackend()
	conn := givenOpenConnection(t, backend)
	defer conn.Close()
	sink, received := givenCollectingSink()
	require.NoError(t, conn.Subscribe(context.Background(), sink))

	// act
	backend.Emit(t, givenLog(t, 1, chainevents.BookCreatedName, big.NewInt(7), "Go in Action", publisherAddress))
	backend.Emit(t, givenLog(t, 1, chainevents.BookCreatedName, big.NewInt(8), "Go in Practice", publisherAddress))

	// assert
	first := awaitEvent(t, received)
	second := awaitEvent(t, received)
	assert.Equal(t, "7", first.(chainevents.BookCreated).BookID)
	assert.Equal(t, "8", second.(chainevents.BookCreated).BookID)
	assert.Equal(t, publisherAddress.Hex(), first.(chainevents.BookCreated).PublisherID)
}

func Test_Subscribe_Skips_Undecodable_And_Removed_Logs(t *testing.T) {
	// setup
	backend := newFakeBackend()
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy(true)
	conn := givenOpenConnection(t, backend, WithLogger(slog.New(logHandler)), WithMetrics(metrics))
	defer conn.Close()
	sink, received := givenCollectingSink()
	require.NoError(t, conn.Subscribe(context.Background(), sink))

	broken := givenLog(t, 2, chainevents.ChapterCreatedName, big.NewInt(7), "Intro", big.NewInt(12))
	broken.Data = broken.Data[:16]
	removed := givenLog(t, 3, chainevents.ChapterCreatedName, big.NewInt(7), "Preface", big.NewInt(2))
	removed.Removed = true
	valid := givenLog(t, 4, chainevents.ChapterCreatedName, big.NewInt(7), "Intro", big.NewInt(12))

	// act
	backend.Emit(t, broken)
	backend.Emit(t, removed)
	backend.Emit(t, valid)

	// assert
	chapter, ok := awaitEvent(t, received).(chainevents.ChapterCreated)
	require.True(t, ok)
	assert.Equal(t, uint64(4), chapter.Source().BlockNumber)
	assert.True(t, logHandler.HasLogWithMessage(slog.LevelError, "skipped undecodable contract log").WithAttrKey("tx_hash").Assert())
	assert.True(t, logHandler.HasLog(slog.LevelWarn, "skipped removed contract log"))
	assert.True(t, metrics.HasCounterRecordForMetric("chainstream_logs_total").WithLabel("status", "undecodable").Assert())
	assert.True(t, metrics.HasCounterRecordForMetric("chainstream_logs_total").WithLabel("status", "removed").Assert())
	assert.True(t, metrics.HasCounterRecordForMetric("chainstream_logs_total").
		WithLabel("event_type", chainevents.ChapterCreatedName).
		WithLabel("status", "delivered").
		Assert())
}

func Test_Subscribe_When_One_Listener_Fails_Logs_And_Continues(t *testing.T) {
	// setup
	backend := newFakeBackend()
	backend.FailTopic(chainevents.ChapterCreatedName)
	logHandler := helper.NewLogHandlerSpy(false)
	conn := givenOpenConnection(t, backend, WithLogger(slog.New(logHandler)))
	defer conn.Close()

	// act
	err := conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {})

	// assert
	require.NoError(t, err)
	assert.Equal(t, len(chainevents.Names())-1, backend.WatcherCount())
	assert.True(t, logHandler.HasLogWithMessage(slog.LevelError, "failed to install event listener").
		WithAttr("event_type", chainevents.ChapterCreatedName).
		Assert())
}

func Test_Subscribe_When_All_Listeners_Fail_Returns_ErrSubscriptionFailed(t *testing.T) {
	// setup
	backend := newFakeBackend()
	for _, name := range chainevents.Names() {
		backend.FailTopic(name)
	}
	conn := givenOpenConnection(t, backend)
	defer conn.Close()

	// act
	err := conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {})

	// assert
	assert.ErrorIs(t, err, ErrSubscriptionFailed)
}

func Test_Err_Reports_A_Broken_Subscription(t *testing.T) {
	// setup
	backend := newFakeBackend()
	conn := givenOpenConnection(t, backend)
	defer conn.Close()
	require.NoError(t, conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {}))

	// act
	backend.Break(chainevents.BookItemsAddedName, errors.New("websocket closed"))

	// assert
	select {
	case err := <-conn.Err():
		assert.ErrorIs(t, err, ErrSubscriptionFailed)
		assert.ErrorContains(t, err, "websocket closed")
	case <-time.After(waitTimeout):
		t.Fatal("no subscription error reported")
	}
}

func Test_Close_Unsubscribes_All_And_Is_Idempotent(t *testing.T) {
	// setup
	backend := newFakeBackend()
	conn := givenOpenConnection(t, backend)
	require.NoError(t, conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {}))

	// act
	conn.Close()
	conn.Close()

	// assert
	assert.Equal(t, len(chainevents.Names()), backend.UnsubscribeCount())
	assert.Equal(t, 1, backend.CloseCount())
	assert.ErrorIs(t, conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {}), ErrConnectionClosed)
	_, err := conn.HeaderByNumber(context.Background(), big.NewInt(1))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func Test_HeaderByNumber_Delegates_To_The_Backend(t *testing.T) {
	// setup
	backend := newFakeBackend()
	conn := givenOpenConnection(t, backend)
	defer conn.Close()

	// act
	header, err := conn.HeaderByNumber(context.Background(), big.NewInt(17))

	// assert
	require.NoError(t, err)
	assert.Equal(t, uint64(17), header.Number.Uint64())
	assert.Equal(t, uint64(1700000017), header.Time)
}

func Test_Stop_Ends_Delivery_But_Keeps_Serving_Headers_Until_Close(t *testing.T) {
	// setup
	backend := newFakeBackend()
	conn := givenOpenConnection(t, backend)
	require.NoError(t, conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {}))

	// act
	conn.Stop()
	conn.Stop()
	header, headerErr := conn.HeaderByNumber(context.Background(), big.NewInt(5))

	// assert
	require.NoError(t, headerErr)
	assert.Equal(t, uint64(5), header.Number.Uint64())
	assert.Equal(t, len(chainevents.Names()), backend.UnsubscribeCount())
	assert.Equal(t, 0, backend.CloseCount())
	assert.ErrorIs(t, conn.Subscribe(context.Background(), func(context.Context, chainevents.Event) {}), ErrConnectionClosed)

	// act
	conn.Close()
	_, closedErr := conn.HeaderByNumber(context.Background(), big.NewInt(5))

	// assert
	assert.ErrorIs(t, closedErr, ErrConnectionClosed)
	assert.Equal(t, 1, backend.CloseCount())
	assert.Equal(t, len(chainevents.Names()), backend.UnsubscribeCount())
}

func Test_Stop_Then_Drain_Projects_An_Event_Whose_Block_Lookup_Spans_The_Stop(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	backend := newFakeBackend()
	conn := givenOpenConnection(t, backend)
	defer conn.Close()
	store := memengine.NewStore()
	router, err := projection.NewRouter(projection.NewTimestampResolver(conn), store)
	require.NoError(t, err)
	require.NoError(t, conn.Subscribe(ctx, router.Dispatch))
	asked, release := backend.HoldHeaders()

	// arrange
	backend.Emit(t, givenLog(t, 3, chainevents.PublisherRegisteredName, publisherAddress, "Acme", "Berlin", "acme@example.org"))
	select {
	case <-asked:
	case <-ctx.Done():
		t.Fatal("the block lookup was never started")
	}

	// act
	conn.Stop()
	release()
	drainErr := router.Drain(ctx)
	conn.Close()

	// assert
	require.NoError(t, drainErr)
	publishers := store.Publishers()
	require.Len(t, publishers, 1)
	assert.Equal(t, publisherAddress.Hex(), publishers[0].ID)
	assert.Equal(t, projection.BlockTime(1700000003), publishers[0].Timestamp)
}

func givenOpenConnection(t *testing.T, backend *fakeBackend, options ...Option) *Connection {
	t.Helper()

	dialer := func(context.Context, string) (Backend, error) { return backend, nil }
	conn, err := Open(context.Background(), testEndpoint, contractAddress, append([]Option{WithDialer(dialer)}, options...)...)
	require.NoError(t, err, "error opening the connection in test setup")

	return conn
}

func givenCollectingSink() (Sink, <-chan chainevents.Event) {
	received := make(chan chainevents.Event, 16)

	return func(_ context.Context, e chainevents.Event) { received <- e }, received
}

func awaitEvent(t *testing.T, received <-chan chainevents.Event) chainevents.Event {
	t.Helper()

	select {
	case e := <-received:
		return e
	case <-time.After(waitTimeout):
		t.Fatal("no event delivered")
		return nil
	}
}

func givenLog(t *testing.T, blockNumber uint64, name string, values ...any) types.Log {
	t.Helper()

	abiEvent, ok := chainevents.ContractABI().Events[name]
	require.True(t, ok, "event %s missing in ABI", name)

	data, err := abiEvent.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err, "packing log data failed")

	return types.Log{
		Address:     contractAddress,
		Topics:      []common.Hash{abiEvent.ID},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(blockNumber)),
	}
}

// fakeBackend serves log subscriptions keyed by event topic and synthetic headers.
type fakeBackend struct {
	mu           sync.Mutex
	watchers     map[common.Hash]chan<- types.Log
	breakers     map[common.Hash]chan error
	failing      map[common.Hash]bool
	unsubscribed int
	closed       int
	headerWait   chan struct{}
	headerAsked  chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		watchers: map[common.Hash]chan<- types.Log{},
		breakers: map[common.Hash]chan error{},
		failing:  map[common.Hash]bool{},
	}
}

func topicOf(name string) common.Hash {
	return chainevents.ContractABI().Events[name].ID
}

func (b *fakeBackend) FailTopic(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[topicOf(name)] = true
}

func (b *fakeBackend) Emit(t *testing.T, entry types.Log) {
	t.Helper()

	b.mu.Lock()
	watcher, ok := b.watchers[entry.Topics[0]]
	b.mu.Unlock()
	require.True(t, ok, "no watcher for topic %s", entry.Topics[0].Hex())

	watcher <- entry
}

func (b *fakeBackend) Break(name string, err error) {
	b.mu.Lock()
	breaker := b.breakers[topicOf(name)]
	b.mu.Unlock()

	breaker <- err
}

func (b *fakeBackend) WatcherCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.watchers)
}

func (b *fakeBackend) UnsubscribeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.unsubscribed
}

func (b *fakeBackend) CloseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

func (b *fakeBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *fakeBackend) SubscribeFilterLogs(_ context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic := query.Topics[0][0]
	if b.failing[topic] {
		return nil, errors.New("subscription refused")
	}

	breaker := make(chan error, 1)
	b.watchers[topic] = ch
	b.breakers[topic] = breaker

	subscription := event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case <-quit:
			return nil
		case err := <-breaker:
			return err
		}
	})

	return &countingSubscription{Subscription: subscription, backend: b}, nil
}

// HoldHeaders makes HeaderByNumber block until release is called. asked is signalled per lookup.
func (b *fakeBackend) HoldHeaders() (asked <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.headerWait = make(chan struct{})
	b.headerAsked = make(chan struct{}, 16)
	wait := b.headerWait

	return b.headerAsked, func() { close(wait) }
}

func (b *fakeBackend) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	wait, asked := b.headerWait, b.headerAsked
	b.mu.Unlock()

	if wait != nil {
		asked <- struct{}{}
		<-wait
	}

	return &types.Header{Number: number, Time: 1700000000 + number.Uint64()}, nil
}

func (b *fakeBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
}

type countingSubscription struct {
	event.Subscription
	backend *fakeBackend
}

func (s *countingSubscription) Unsubscribe() {
	s.backend.mu.Lock()
	s.backend.unsubscribed++
	s.backend.mu.Unlock()

	s.Subscription.Unsubscribe()
}
