package chainstream

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

var (
	// ErrDialFailed is returned when the streaming endpoint cannot be reached.
	ErrDialFailed = errors.New("dialing the streaming endpoint failed")

	// ErrAlreadySubscribed is returned by a second call to Subscribe.
	ErrAlreadySubscribed = errors.New("connection is already subscribed")

	// ErrSubscriptionFailed is returned when no log watcher could be installed,
	// and reported on Err when an installed watcher breaks.
	ErrSubscriptionFailed = errors.New("contract log subscription failed")

	// ErrConnectionClosed is returned by Subscribe after Stop and by HeaderByNumber after Close.
	ErrConnectionClosed = errors.New("connection is closed")
)

// Backend is the part of an RPC client a Connection needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractFilterer
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// Sink receives decoded events in arrival order. It must not block for long.
type Sink func(ctx context.Context, event chainevents.Event)

// Connection is a live connection to the library catalog contract.
type Connection struct {
	dialer           Dialer
	backend          Backend
	contract         *bind.BoundContract
	decoder          *chainevents.Decoder
	logger           mirror.Logger
	contextualLogger mirror.ContextualLogger
	metricsCollector mirror.MetricsCollector

	mu            sync.Mutex
	subscribed    bool
	subscriptions []event.Subscription

	logs      chan types.Log
	errs      chan error
	done      chan struct{}
	released  chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	closeOnce sync.Once
}

// Open dials endpoint and binds the contract at contractAddress. There is no internal retry.
func Open(ctx context.Context, endpoint string, contractAddress common.Address, options ...Option) (*Connection, error) {
	c := &Connection{
		dialer:   dialWebsocket,
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		released: make(chan struct{}),
		logs:     make(chan types.Log),
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	backend, err := c.dialer(ctx, endpoint)
	if err != nil {
		c.logError(ctx, logMsgDialFailed, err)
		return nil, errors.Join(ErrDialFailed, err)
	}

	c.backend = backend
	c.contract = bind.NewBoundContract(contractAddress, chainevents.ContractABI(), nil, nil, backend)
	c.decoder = chainevents.NewDecoder(contractAddress)

	c.logInfo(ctx, logMsgConnected, logAttrContract, contractAddress.Hex())

	return c, nil
}

// Subscribe installs one log watcher per tracked contract event and starts delivering
// decoded events to sink. A failing watcher installation is logged and skipped; Subscribe
// fails only when none could be installed.
func (c *Connection) Subscribe(ctx context.Context, sink Sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	if c.subscribed {
		return ErrAlreadySubscribed
	}

	var setupErrs []error

	for _, name := range chainevents.Names() {
		logs, subscription, err := c.contract.WatchLogs(&bind.WatchOpts{Context: ctx}, name)
		if err != nil {
			c.logError(ctx, logMsgListenerFailed, err, logAttrEventType, name)
			setupErrs = append(setupErrs, fmt.Errorf("%s: %w", name, err))

			continue
		}

		c.subscriptions = append(c.subscriptions, subscription)
		c.wg.Add(1)
		go c.forward(ctx, name, logs, subscription)

		c.logInfo(ctx, logMsgListening, logAttrEventType, name)
	}

	if len(c.subscriptions) == 0 {
		return errors.Join(append([]error{ErrSubscriptionFailed}, setupErrs...)...)
	}

	c.subscribed = true
	c.wg.Add(1)
	go c.deliver(ctx, sink)

	return nil
}

// forward moves the logs of one watcher onto the shared channel until the watcher ends.
func (c *Connection) forward(ctx context.Context, name string, logs <-chan types.Log, subscription event.Subscription) {
	defer c.wg.Done()

	for {
		select {
		case entry := <-logs:
			select {
			case c.logs <- entry:
			case <-c.done:
				return
			}
		case err, ok := <-subscription.Err():
			if ok && err != nil {
				c.logError(ctx, logMsgSubscriptionBroken, err, logAttrEventType, name)
				c.report(errors.Join(ErrSubscriptionFailed, fmt.Errorf("%s: %w", name, err)))
			}

			return
		case <-c.done:
			return
		}
	}
}

// deliver decodes logs in the order they arrive and hands them to sink.
func (c *Connection) deliver(ctx context.Context, sink Sink) {
	defer c.wg.Done()

	for {
		select {
		case entry := <-c.logs:
			if entry.Removed {
				c.logWarn(ctx, logMsgRemovedLogSkipped, logAttrBlockNumber, entry.BlockNumber, logAttrTxHash, entry.TxHash.Hex())
				c.countLog(ctx, unknownEventType, logStatusRemoved)

				continue
			}

			decoded, err := c.decoder.Decode(entry)
			if err != nil {
				c.logError(ctx, logMsgUndecodableLog, err,
					logAttrBlockNumber, entry.BlockNumber,
					logAttrTxHash, entry.TxHash.Hex(),
					logAttrLogIndex, entry.Index,
				)
				c.countLog(ctx, unknownEventType, logStatusUndecodable)

				continue
			}

			c.countLog(ctx, decoded.EventType(), logStatusDelivered)
			sink(ctx, decoded)
		case <-c.done:
			return
		}
	}
}

// report publishes the first broken-watcher error on Err.
func (c *Connection) report(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Err delivers an error when an installed watcher breaks. The process is expected to terminate then.
func (c *Connection) Err() <-chan error {
	return c.errs
}

// HeaderByNumber returns the header of the given block.
// It keeps working after Stop so that events already handed to the sink can resolve their block.
func (c *Connection) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	select {
	case <-c.released:
		return nil, ErrConnectionClosed
	default:
	}

	return c.backend.HeaderByNumber(ctx, number)
}

// Stop unsubscribes every watcher and stops delivery. When Stop returns, the sink is not called again.
// The client stays open for HeaderByNumber until Close.
func (c *Connection) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		subscriptions := c.subscriptions
		c.mu.Unlock()

		for _, subscription := range subscriptions {
			subscription.Unsubscribe()
		}

		c.wg.Wait()

		c.logInfo(context.Background(), logMsgStopped, logAttrWatchers, len(subscriptions))
	})
}

// Close stops delivery if that did not happen yet and closes the client.
func (c *Connection) Close() {
	c.Stop()

	c.closeOnce.Do(func() {
		close(c.released)
		c.backend.Close()

		c.logInfo(context.Background(), logMsgClosed)
	})
}
