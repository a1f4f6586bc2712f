package journal

import (
	"context"

	"github.com/xraph/membership/member"
)

// Store persists entries. Append must reject a sequence number that is
// already taken so that two writers racing on the same position cannot
// both succeed.
type Store interface {
	AppendEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)
	LastSequence(ctx context.Context) (uint64, error)
}

// ListOpts filters ListEntries. Results are always in ascending sequence order.
type ListOpts struct {
	// After excludes entries with Sequence <= After.
	After uint64
	// Subject, when set, keeps only entries touching that address.
	Subject member.Address
	// Limit caps the result size; 0 means no cap.
	Limit int
}
