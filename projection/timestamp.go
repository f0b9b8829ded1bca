package projection

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrResolvingTimestampFailed is returned when the block header of an event cannot be fetched.
	ErrResolvingTimestampFailed = errors.New("resolving block timestamp failed")
)

// HeaderSource fetches block headers. *ethclient.Client and chainstream.Connection satisfy it.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// TimestampResolver converts a block number into the wall-clock instant the block was produced at.
type TimestampResolver struct {
	headers HeaderSource
}

// NewTimestampResolver creates a TimestampResolver reading headers from the given source.
func NewTimestampResolver(headers HeaderSource) *TimestampResolver {
	return &TimestampResolver{headers: headers}
}

// Resolve returns the block's timestamp with millisecond resolution in UTC.
func (r *TimestampResolver) Resolve(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := r.headers.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, errors.Join(ErrResolvingTimestampFailed, fmt.Errorf("block %d: %w", blockNumber, err))
	}

	if header == nil {
		return time.Time{}, errors.Join(ErrResolvingTimestampFailed, fmt.Errorf("block %d: no header", blockNumber))
	}

	return BlockTime(header.Time), nil
}

// BlockTime converts a block's seconds-since-epoch field into a UTC instant.
func BlockTime(seconds uint64) time.Time {
	return time.UnixMilli(int64(seconds) * 1000).UTC() //nolint:gosec // block times are far below MaxInt64
}
