package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
)

// EntityReport is the only entity kind the report pipeline audits.
const EntityReport = "report"

// none stands in for an absent prior or new value.
const none = "None"

// Entry is one append-only, field-level audit record. Report ids are only
// unique within their origin table, so entries carry the origin as well.
type Entry struct {
	ID           uuid.UUID       `json:"id"`
	Entity       string          `json:"entity"`
	EntityOrigin string          `json:"entityOrigin"`
	EntityID     string          `json:"entityId"`
	ChangedBy    string          `json:"changedBy"`
	Action       string          `json:"action"`
	OldValue     json.RawMessage `json:"oldValue"`
	NewValue     json.RawMessage `json:"newValue"`
	ChangedAt    time.Time       `json:"changedAt"`
}

// Change is one field whose requested value differs from its prior value.
type Change struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Diff returns one Change per key in updates whose value differs from
// prior[key]. Keys set to their current value are dropped. Output is sorted
// by field name.
func Diff(prior, updates map[string]interface{}) []Change {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Change
	for _, k := range keys {
		oldV, newV := normalize(prior[k]), normalize(updates[k])
		if reflect.DeepEqual(oldV, newV) {
			continue
		}
		out = append(out, Change{Field: k, Old: oldV, New: newV})
	}
	return out
}

// normalize dereferences string pointers so *string and string compare
// by value.
func normalize(v interface{}) interface{} {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}

// NewEntries builds the entries for one mutation, all stamped with at.
func NewEntries(origin, entityID, changedBy string, changes []Change, at time.Time) []*Entry {
	entries := make([]*Entry, 0, len(changes))
	for _, ch := range changes {
		entries = append(entries, &Entry{
			ID:           uuid.New(),
			Entity:       EntityReport,
			EntityOrigin: origin,
			EntityID:     entityID,
			ChangedBy:    changedBy,
			Action:       "Changed " + ch.Field,
			OldValue:     singleKey(ch.Field, ch.Old),
			NewValue:     singleKey(ch.Field, ch.New),
			ChangedAt:    at,
		})
	}
	return entries
}

func singleKey(field string, v interface{}) json.RawMessage {
	if v == nil {
		v = none
	}
	b, err := json.Marshal(map[string]interface{}{field: v})
	if err != nil {
		b, _ = json.Marshal(map[string]string{field: fmt.Sprint(v)})
	}
	return b
}

// Display renders "field: old → new" when both values are single-key maps,
// otherwise the raw stored JSON of each side.
func (e *Entry) Display() string {
	var oldM, newM map[string]interface{}
	if json.Unmarshal(e.OldValue, &oldM) == nil && json.Unmarshal(e.NewValue, &newM) == nil &&
		len(oldM) == 1 && len(newM) == 1 {
		for field, oldV := range oldM {
			if newV, ok := newM[field]; ok {
				return fmt.Sprintf("%s: %s → %s", field, scalar(oldV), scalar(newV))
			}
		}
	}
	return fmt.Sprintf("%s → %s", rawOrNone(e.OldValue), rawOrNone(e.NewValue))
}

func scalar(v interface{}) string {
	if v == nil {
		return none
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func rawOrNone(b json.RawMessage) string {
	if len(b) == 0 {
		return none
	}
	return string(b)
}
