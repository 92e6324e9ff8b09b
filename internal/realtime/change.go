// Package realtime fans row changes from Postgres out to websocket clients.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Channel is the Postgres NOTIFY channel the row change trigger publishes on.
const Channel = "row_changes"

// Change is one row event from the trigger.
type Change struct {
	Table  string         `json:"table"`
	Type   string         `json:"type"`
	Record map[string]any `json:"record"`
}

// DecodeChange parses a notification payload.
func DecodeChange(payload []byte) (Change, error) {
	var ch Change
	if err := json.Unmarshal(payload, &ch); err != nil {
		return Change{}, fmt.Errorf("decode row change: %w", err)
	}
	if ch.Table == "" || ch.Record == nil {
		return Change{}, fmt.Errorf("decode row change: missing table or record")
	}
	return ch, nil
}

// Value returns a record column as a string, "" when absent or null.
func (c Change) Value(column string) string {
	v, ok := c.Record[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Time parses a timestamp column.
func (c Change) Time(column string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, c.Value(column))
	return t, err == nil
}
