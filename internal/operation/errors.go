package operation

import "errors"

// Validation errors. All of them abort the whole operation before any
// overlay mutation; none are retryable without a corrected request.
var (
	// ErrMovedItem rejects refreshing a node whose transient parent differs
	// from its base's parent. The caller must refresh the parent instead.
	ErrMovedItem = errors.New("cannot refresh a moved item, try refreshing the parent")

	// ErrNewItem rejects refreshing a never-persisted node; there is nothing
	// to refresh to. The caller must remove the node instead.
	ErrNewItem = errors.New("cannot refresh a new item")

	// ErrInvalidDestination rejects a move whose destination is a descendant
	// of or equal to the source, carries a subscript, or targets the root.
	ErrInvalidDestination = errors.New("invalid destination path")
)
