package chainevents_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
)

var (
	contractAddress  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	publisherAddress = common.HexToAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
)

func givenLog(t *testing.T, name string, values ...any) types.Log {
	t.Helper()

	event, ok := chainevents.ContractABI().Events[name]
	require.True(t, ok, "event %s missing in ABI", name)

	data, err := event.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err, "packing log data failed")

	return types.Log{
		Address:     contractAddress,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: 4242,
		TxHash:      common.HexToHash("0x01"),
		Index:       3,
	}
}

func Test_Decode_PublisherRegistered(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	log := givenLog(t, chainevents.PublisherRegisteredName, publisherAddress, "Acme", "Berlin", "acme@example.org")

	// act
	event, err := decoder.Decode(log)

	// assert
	require.NoError(t, err)
	assert.Equal(t, chainevents.PublisherRegistered{
		Origin:      chainevents.Origin{BlockNumber: 4242, TxHash: common.HexToHash("0x01"), LogIndex: 3},
		PublisherID: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Name:        "Acme",
		Location:    "Berlin",
		Contact:     "acme@example.org",
	}, event)
	assert.Equal(t, chainevents.PublisherRegisteredName, event.EventType())
	assert.Equal(t, uint64(4242), event.Source().BlockNumber)
}

func Test_Decode_BookCreated(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	log := givenLog(t, chainevents.BookCreatedName, big.NewInt(7), "Go in Practice", publisherAddress)

	// act
	event, err := decoder.Decode(log)

	// assert
	require.NoError(t, err)
	book, ok := event.(chainevents.BookCreated)
	require.True(t, ok)
	assert.Equal(t, "7", book.BookID)
	assert.Equal(t, "Go in Practice", book.Name)
	assert.Equal(t, publisherAddress.Hex(), book.PublisherID)
}

func Test_Decode_BookItemsAdded(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	log := givenLog(t, chainevents.BookItemsAddedName, []*big.Int{big.NewInt(1), huge}, big.NewInt(7))

	// act
	event, err := decoder.Decode(log)

	// assert
	require.NoError(t, err)
	added, ok := event.(chainevents.BookItemsAdded)
	require.True(t, ok)
	assert.Equal(t, []string{"1", huge.String()}, added.ItemIDs)
	assert.Equal(t, "7", added.BookID)
}

func Test_Decode_BookItemsStatusChanged(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	log := givenLog(t, chainevents.BookItemsStatusChangedName, []*big.Int{big.NewInt(1), big.NewInt(2)}, big.NewInt(9))

	// act
	event, err := decoder.Decode(log)

	// assert
	require.NoError(t, err)
	changed, ok := event.(chainevents.BookItemsStatusChanged)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, changed.ItemIDs)
	assert.Equal(t, int64(9), changed.StatusIndex.Int64(), "the index is passed on unmapped")
}

func Test_Decode_ChapterCreated(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	log := givenLog(t, chainevents.ChapterCreatedName, big.NewInt(7), "Concurrency", big.NewInt(42))

	// act
	event, err := decoder.Decode(log)

	// assert
	require.NoError(t, err)
	chapter, ok := event.(chainevents.ChapterCreated)
	require.True(t, ok)
	assert.Equal(t, "7", chapter.BookID)
	assert.Equal(t, "Concurrency", chapter.Name)
	assert.Equal(t, uint64(42), chapter.PagesCount)
}

func Test_Decode_ChapterCreated_When_PagesCount_Is_Out_Of_Range(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	tooMany := new(big.Int).Add(new(big.Int).SetUint64(math.MaxInt64), big.NewInt(1))
	log := givenLog(t, chainevents.ChapterCreatedName, big.NewInt(7), "Appendix", tooMany)

	// act
	_, err := decoder.Decode(log)

	// assert
	assert.ErrorIs(t, err, chainevents.ErrValueOutOfRange)
}

func Test_Decode_When_Topic_Is_Unknown(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	log := types.Log{Topics: []common.Hash{common.HexToHash("0xdeadbeef")}}

	// act
	_, err := decoder.Decode(log)

	// assert
	assert.ErrorIs(t, err, chainevents.ErrUnknownEvent)
}

func Test_Decode_When_Log_Has_No_Topics(t *testing.T) {
	// act
	_, err := chainevents.NewDecoder(contractAddress).Decode(types.Log{})

	// assert
	assert.ErrorIs(t, err, chainevents.ErrUnknownEvent)
}

func Test_Decode_When_Data_Is_Truncated(t *testing.T) {
	// setup
	decoder := chainevents.NewDecoder(contractAddress)
	log := givenLog(t, chainevents.BookCreatedName, big.NewInt(7), "Go in Practice", publisherAddress)
	log.Data = log.Data[:40]

	// act
	_, err := decoder.Decode(log)

	// assert
	assert.ErrorIs(t, err, chainevents.ErrDecodingFailed)
}

func Test_Topic_Matches_The_Event_Signature(t *testing.T) {
	// act
	topic, err := chainevents.Topic(chainevents.PublisherRegisteredName)
	_, unknownErr := chainevents.Topic("Transfer")

	// assert
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(crypto.Keccak256([]byte("PublisherRegistered(address,string,string,string)"))), topic)
	assert.ErrorIs(t, unknownErr, chainevents.ErrUnknownEvent)
	assert.Len(t, chainevents.Names(), 5)
}
