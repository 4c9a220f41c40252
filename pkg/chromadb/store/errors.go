package store

import "errors"

var (
	// ErrCollectionNotFound is returned when a collection name or id does not resolve.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when creating a collection whose name is taken.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrDuplicateID is returned by Add when an id is already stored in the collection.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrDimensionMismatch is returned when an embedding does not match the
	// dimension fixed by the collection's first embedding.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidArgument covers malformed requests: bad names, ragged
	// slices, unsupported filters.
	ErrInvalidArgument = errors.New("invalid argument")
)
