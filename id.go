package membership

import "github.com/xraph/membership/id"

// ID identifies journal entries and snapshots.
type ID = id.ID
