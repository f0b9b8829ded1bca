package mirror

import (
	"errors"
)

var (
	// ErrNilDatabaseConnection is returned when a storage engine is created without a database connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is configured.
	ErrEmptyTableName = errors.New("empty table name supplied")

	// ErrUniqueViolation is returned when an entity with the same id already exists.
	ErrUniqueViolation = errors.New("entity already exists")

	// ErrForeignEntityMissing is returned when a referenced entity (publisher, book, book item) does not exist yet.
	ErrForeignEntityMissing = errors.New("referenced entity does not exist")

	// ErrBookNotFound is returned when a book is looked up but not (yet) mirrored.
	ErrBookNotFound = errors.New("book not found")

	// ErrBookItemNotFound is returned when a status change names a book item that is not mirrored.
	ErrBookItemNotFound = errors.New("book item not found")

	// ErrUnknownStatusIndex is returned when an on-chain status index is outside the fixed status table.
	ErrUnknownStatusIndex = errors.New("unknown book item status index")

	// ErrBuildingQueryFailed is returned when an SQL statement can't be built.
	ErrBuildingQueryFailed = errors.New("building the query failed")

	// ErrWritingFailed is returned when a write to the mirror store fails for an unclassified reason.
	ErrWritingFailed = errors.New("writing to the mirror store failed")

	// ErrQueryingFailed is returned when a read from the mirror store fails.
	ErrQueryingFailed = errors.New("querying the mirror store failed")

	// ErrTransactionFailed is returned when beginning or committing an atomic batch fails.
	ErrTransactionFailed = errors.New("atomic batch transaction failed")
)
