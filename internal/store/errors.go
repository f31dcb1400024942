package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrLibraryNotFound is returned when a library lookup matches no row.
	ErrLibraryNotFound = errors.New("library was not found")

	// ErrLibraryExists is returned when a library with the same type and
	// remote id is already registered.
	ErrLibraryExists = errors.New("library already exists")

	// ErrObjectNotFound is returned when an object identified by library,
	// type and key does not exist locally.
	ErrObjectNotFound = errors.New("object was not found")

	// ErrCacheNotFound is returned when no cache entry exists for the
	// requested object (and version).
	ErrCacheNotFound = errors.New("cache entry was not found")

	// ErrInvalidObjectType is returned when an operation is called with a
	// type it does not support, e.g. creating a setting through
	// CreateLocalObject.
	ErrInvalidObjectType = errors.New("invalid object type")

	// ErrKeyGeneration is returned when no free object key could be found.
	ErrKeyGeneration = errors.New("could not generate a free object key")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRows is returned when scanning column values during
	// row iteration fails.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrDecodingData is returned when a stored JSON column cannot be
	// decoded or a value cannot be encoded for storage.
	ErrDecodingData = errors.New("failed to decode stored data")
)
