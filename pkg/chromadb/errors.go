package chromadb

import "github.com/papercomputeco/kbase/pkg/chromadb/store"

// Errors returned by every API implementation. REST clients translate
// server error kinds back into these so callers can use errors.Is
// regardless of mode.
var (
	ErrCollectionNotFound = store.ErrCollectionNotFound
	ErrCollectionExists   = store.ErrCollectionExists
	ErrDuplicateID        = store.ErrDuplicateID
	ErrDimensionMismatch  = store.ErrDimensionMismatch
	ErrInvalidArgument    = store.ErrInvalidArgument
)

// Error kinds carried in the "error" field of REST error bodies.
const (
	kindNotFound        = "NotFoundError"
	kindUniqueViolation = "UniqueConstraintError"
	kindDuplicateID     = "DuplicateIDError"
	kindInvalidDim      = "InvalidDimensionException"
	kindInvalidArgument = "InvalidArgumentError"
	kindInternal        = "InternalError"
)

// ErrorResponse is the JSON body of every non-2xx server response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
