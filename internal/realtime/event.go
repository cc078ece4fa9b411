package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Channel is the Postgres NOTIFY channel the change trigger writes to.
const Channel = "recruitflow_changes"

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event is one row change. Record holds the new row for INSERT/UPDATE,
// Old the deleted row for DELETE. Partial is set when the row did not fit in
// a notification; the row then carries only id, candidate_id and version.
type Event struct {
	Table   string         `json:"table"`
	Op      Op             `json:"op"`
	Record  map[string]any `json:"record,omitempty"`
	Old     map[string]any `json:"old,omitempty"`
	Partial bool           `json:"partial,omitempty"`
}

// Row returns the row that identifies the event: the new row, or the old one
// for deletes.
func (e Event) Row() map[string]any {
	if e.Op == OpDelete {
		return e.Old
	}
	return e.Record
}

// Field reads a column from Row as a string.
func (e Event) Field(col string) string {
	row := e.Row()
	if row == nil {
		return ""
	}
	v, ok := row[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

var ErrMalformed = errors.New("malformed change event")

// Decode parses a trigger payload.
func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	e.Op = Op(strings.ToUpper(string(e.Op)))
	if e.Table == "" {
		return Event{}, fmt.Errorf("%w: no table", ErrMalformed)
	}
	switch e.Op {
	case OpInsert, OpUpdate:
		if e.Record == nil {
			return Event{}, fmt.Errorf("%w: %s without record", ErrMalformed, e.Op)
		}
	case OpDelete:
		if e.Old == nil {
			return Event{}, fmt.Errorf("%w: DELETE without old row", ErrMalformed)
		}
	default:
		return Event{}, fmt.Errorf("%w: unknown op %q", ErrMalformed, e.Op)
	}
	return e, nil
}
