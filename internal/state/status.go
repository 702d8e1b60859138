package state

// Status describes a node state's position in the overlay lifecycle.
type Status int

const (
	// StatusExisting is an unmodified mirror of the persistent base. It is
	// enumerable but never acted on by refresh.
	StatusExisting Status = iota

	// StatusNew is a transiently created node with no persistent counterpart.
	StatusNew

	// StatusExistingModified is a persistent node with uncommitted local edits.
	StatusExistingModified

	// StatusStaleModified is a locally edited node whose persistent base was
	// changed by another session's commit (a genuine conflict).
	StatusStaleModified

	// StatusStaleDestroyed is a node whose persistent base was removed by
	// another session's commit while a transient copy still exists here.
	StatusStaleDestroyed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusExisting:
		return "existing"
	case StatusNew:
		return "new"
	case StatusExistingModified:
		return "modified"
	case StatusStaleModified:
		return "stale-modified"
	case StatusStaleDestroyed:
		return "stale-destroyed"
	default:
		return "unknown"
	}
}

// Stale reports whether the status signals divergence from the base caused
// by an external commit.
func (s Status) Stale() bool {
	return s == StatusStaleModified || s == StatusStaleDestroyed
}
