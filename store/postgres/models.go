package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/snapshot"
)

// ==================== Journal models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:membership_journal"`

	Seq        int64           `grove:"seq,pk"`
	ID         string          `grove:"id"`
	Kind       string          `grove:"kind"`
	Caller     string          `grove:"caller"`
	Subject    string          `grove:"subject"`
	Amount     int64           `grove:"amount"`
	Currency   string          `grove:"currency"`
	Payload    json.RawMessage `grove:"payload,type:jsonb"`
	RecordedAt time.Time       `grove:"recorded_at"`
}

func toEntryModel(e *journal.Entry) (*entryModel, error) {
	payload, err := journal.Encode(e)
	if err != nil {
		return nil, err
	}
	return &entryModel{
		Seq:        int64(e.Sequence), //nolint:gosec // sequences start at 1 and grow by one
		ID:         e.ID.String(),
		Kind:       string(e.Kind),
		Caller:     e.Caller.String(),
		Subject:    e.Subject.String(),
		Amount:     e.Amount.Amount,
		Currency:   e.Amount.Currency,
		Payload:    payload,
		RecordedAt: e.RecordedAt,
	}, nil
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	e, err := journal.Decode(m.Payload)
	if err != nil {
		return nil, err
	}
	if e.Sequence != uint64(m.Seq) { //nolint:gosec // column is never negative
		return nil, fmt.Errorf("membership/postgres: row %d holds entry %d", m.Seq, e.Sequence)
	}
	return e, nil
}

// ==================== Snapshot models ====================

type snapshotModel struct {
	grove.BaseModel `grove:"table:membership_snapshots"`

	ID      string          `grove:"id,pk"`
	Seq     int64           `grove:"seq"`
	Payload json.RawMessage `grove:"payload,type:jsonb"`
	TakenAt time.Time       `grove:"taken_at"`
}

func toSnapshotModel(s *snapshot.Snapshot) (*snapshotModel, error) {
	payload, err := snapshot.Encode(s)
	if err != nil {
		return nil, err
	}
	return &snapshotModel{
		ID:      s.ID.String(),
		Seq:     int64(s.Sequence), //nolint:gosec // bounded by the journal
		Payload: payload,
		TakenAt: s.TakenAt,
	}, nil
}

func fromSnapshotModel(m *snapshotModel) (*snapshot.Snapshot, error) {
	return snapshot.Decode(m.Payload)
}
