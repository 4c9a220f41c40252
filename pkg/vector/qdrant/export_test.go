package qdrant

// Exported for tests.
var (
	SplitTarget = splitTarget
	ToPayload   = toPayload
	FromPayload = fromPayload
)
