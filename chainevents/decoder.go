package chainevents

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUnknownEvent is returned for logs whose signature topic matches none of the tracked events.
	ErrUnknownEvent = errors.New("unknown contract event")

	// ErrDecodingFailed is returned when the log data does not match the event's ABI.
	ErrDecodingFailed = errors.New("decoding contract event failed")

	// ErrValueOutOfRange is returned when an on-chain integer does not fit the mirrored column.
	ErrValueOutOfRange = errors.New("on-chain value out of range")
)

//go:embed librarychain.abi.json
var contractABIJSON string

var contractABI = mustParseABI(contractABIJSON)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("chainevents: embedded ABI is invalid: %v", err))
	}

	return parsed
}

// ContractABI returns the parsed ABI of the tracked contract events.
func ContractABI() abi.ABI {
	return contractABI
}

// Topic returns the signature topic of the named event.
func Topic(name string) (common.Hash, error) {
	event, ok := contractABI.Events[name]
	if !ok {
		return common.Hash{}, errors.Join(ErrUnknownEvent, fmt.Errorf("event %q", name))
	}

	return event.ID, nil
}

type publisherRegisteredLog struct {
	ID       common.Address `abi:"id"`
	Name     string         `abi:"name"`
	Location string         `abi:"location"`
	Contact  string         `abi:"contact"`
}

type bookCreatedLog struct {
	ID          *big.Int       `abi:"id"`
	Name        string         `abi:"name"`
	PublisherID common.Address `abi:"publisherId"`
}

type bookItemsAddedLog struct {
	ItemIDs []*big.Int `abi:"itemIds"`
	BookID  *big.Int   `abi:"bookId"`
}

type bookItemsStatusChangedLog struct {
	ItemIDs     []*big.Int `abi:"itemIds"`
	StatusIndex *big.Int   `abi:"statusIndex"`
}

type chapterCreatedLog struct {
	BookID     *big.Int `abi:"bookId"`
	Name       string   `abi:"name"`
	PagesCount *big.Int `abi:"pagesCount"`
}

// Decoder turns raw contract logs into events.
type Decoder struct {
	contract *bind.BoundContract
	names    map[common.Hash]string
}

// NewDecoder creates a Decoder for logs of the contract deployed at address.
func NewDecoder(address common.Address) *Decoder {
	names := make(map[common.Hash]string, len(contractABI.Events))
	for name, event := range contractABI.Events {
		names[event.ID] = name
	}

	return &Decoder{
		contract: bind.NewBoundContract(address, contractABI, nil, nil, nil),
		names:    names,
	}
}

// Decode decodes one log. The event type is taken from the log's signature topic.
func (d *Decoder) Decode(log types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, errors.Join(ErrUnknownEvent, errors.New("log has no topics"))
	}

	name, ok := d.names[log.Topics[0]]
	if !ok {
		return nil, errors.Join(ErrUnknownEvent, fmt.Errorf("topic %s", log.Topics[0].Hex()))
	}

	origin := Origin{BlockNumber: log.BlockNumber, TxHash: log.TxHash, LogIndex: log.Index}

	switch name {
	case PublisherRegisteredName:
		return d.decodePublisherRegistered(origin, log)
	case BookCreatedName:
		return d.decodeBookCreated(origin, log)
	case BookItemsAddedName:
		return d.decodeBookItemsAdded(origin, log)
	case BookItemsStatusChangedName:
		return d.decodeBookItemsStatusChanged(origin, log)
	case ChapterCreatedName:
		return d.decodeChapterCreated(origin, log)
	default:
		return nil, errors.Join(ErrUnknownEvent, fmt.Errorf("event %q", name))
	}
}

func (d *Decoder) unpack(out any, name string, log types.Log) error {
	if err := d.contract.UnpackLog(out, name, log); err != nil {
		return errors.Join(ErrDecodingFailed, fmt.Errorf("%s: %w", name, err))
	}

	return nil
}

func (d *Decoder) decodePublisherRegistered(origin Origin, log types.Log) (Event, error) {
	var raw publisherRegisteredLog
	if err := d.unpack(&raw, PublisherRegisteredName, log); err != nil {
		return nil, err
	}

	return PublisherRegistered{
		Origin:      origin,
		PublisherID: raw.ID.Hex(),
		Name:        raw.Name,
		Location:    raw.Location,
		Contact:     raw.Contact,
	}, nil
}

func (d *Decoder) decodeBookCreated(origin Origin, log types.Log) (Event, error) {
	var raw bookCreatedLog
	if err := d.unpack(&raw, BookCreatedName, log); err != nil {
		return nil, err
	}

	bookID, err := decimal(raw.ID)
	if err != nil {
		return nil, err
	}

	return BookCreated{
		Origin:      origin,
		BookID:      bookID,
		Name:        raw.Name,
		PublisherID: raw.PublisherID.Hex(),
	}, nil
}

func (d *Decoder) decodeBookItemsAdded(origin Origin, log types.Log) (Event, error) {
	var raw bookItemsAddedLog
	if err := d.unpack(&raw, BookItemsAddedName, log); err != nil {
		return nil, err
	}

	itemIDs, err := decimals(raw.ItemIDs)
	if err != nil {
		return nil, err
	}

	bookID, err := decimal(raw.BookID)
	if err != nil {
		return nil, err
	}

	return BookItemsAdded{Origin: origin, ItemIDs: itemIDs, BookID: bookID}, nil
}

func (d *Decoder) decodeBookItemsStatusChanged(origin Origin, log types.Log) (Event, error) {
	var raw bookItemsStatusChangedLog
	if err := d.unpack(&raw, BookItemsStatusChangedName, log); err != nil {
		return nil, err
	}

	itemIDs, err := decimals(raw.ItemIDs)
	if err != nil {
		return nil, err
	}

	if raw.StatusIndex == nil {
		return nil, errors.Join(ErrDecodingFailed, errors.New("missing status index"))
	}

	return BookItemsStatusChanged{Origin: origin, ItemIDs: itemIDs, StatusIndex: raw.StatusIndex}, nil
}

func (d *Decoder) decodeChapterCreated(origin Origin, log types.Log) (Event, error) {
	var raw chapterCreatedLog
	if err := d.unpack(&raw, ChapterCreatedName, log); err != nil {
		return nil, err
	}

	bookID, err := decimal(raw.BookID)
	if err != nil {
		return nil, err
	}

	if raw.PagesCount == nil || !raw.PagesCount.IsUint64() || raw.PagesCount.Uint64() > math.MaxInt64 {
		return nil, errors.Join(ErrValueOutOfRange, fmt.Errorf("pages count %v", raw.PagesCount))
	}

	return ChapterCreated{
		Origin:     origin,
		BookID:     bookID,
		Name:       raw.Name,
		PagesCount: raw.PagesCount.Uint64(),
	}, nil
}

func decimal(value *big.Int) (string, error) {
	if value == nil {
		return "", errors.Join(ErrDecodingFailed, errors.New("missing integer value"))
	}

	return value.String(), nil
}

func decimals(values []*big.Int) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		s, err := decimal(value)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}
