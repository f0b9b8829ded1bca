package projection_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/library-chain-mirror/projection"
)

type headerSourceStub struct {
	headers map[uint64]*types.Header
	err     error
	calls   int
}

func (s *headerSourceStub) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	return s.headers[number.Uint64()], nil
}

func Test_TimestampResolver_Converts_Seconds_To_Milliseconds(t *testing.T) {
	// setup
	headers := &headerSourceStub{headers: map[uint64]*types.Header{42: {Time: 1700000000}}}
	resolver := NewTimestampResolver(headers)

	// act
	at, err := resolver.Resolve(context.Background(), 42)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), at.UnixMilli())
	assert.Equal(t, time.UTC, at.Location())
	assert.Equal(t, 1, headers.calls)
}

func Test_TimestampResolver_When_Header_Lookup_Fails(t *testing.T) {
	// setup
	resolver := NewTimestampResolver(&headerSourceStub{err: errors.New("not found")})

	// act
	_, err := resolver.Resolve(context.Background(), 42)

	// assert
	assert.ErrorIs(t, err, ErrResolvingTimestampFailed)
	assert.ErrorContains(t, err, "block 42")
}

func Test_TimestampResolver_When_Header_Is_Missing(t *testing.T) {
	// setup
	resolver := NewTimestampResolver(&headerSourceStub{headers: map[uint64]*types.Header{}})

	// act
	_, err := resolver.Resolve(context.Background(), 7)

	// assert
	assert.ErrorIs(t, err, ErrResolvingTimestampFailed)
}

func Test_BlockTime_Keeps_Millisecond_Resolution(t *testing.T) {
	assert.Equal(t, time.UnixMilli(0).UTC(), BlockTime(0))
	assert.Equal(t, int64(1), BlockTime(1).Unix())
	assert.Equal(t, 0, BlockTime(1700000000).Nanosecond())
}
