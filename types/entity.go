package types

import "time"

// Entity carries creation and modification timestamps.
// Timestamps are supplied by the caller so replayed state matches the
// moment the change was recorded rather than the moment it was replayed.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity stamps both fields with at (normalized to UTC).
func NewEntity(at time.Time) Entity {
	at = at.UTC()
	return Entity{CreatedAt: at, UpdatedAt: at}
}

// Touch moves UpdatedAt to at.
func (e *Entity) Touch(at time.Time) {
	e.UpdatedAt = at.UTC()
}
