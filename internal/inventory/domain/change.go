package domain

import (
	"reflect"
	"time"
)

// FieldChange is one entry of a field-level diff.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// Changes accumulates a diff. Unchanged fields are never recorded.
type Changes []FieldChange

// Record appends a change when oldValue and newValue differ. Pointers are
// compared by the value they point to.
func (c *Changes) Record(field string, oldValue, newValue any) {
	o, n := normalize(oldValue), normalize(newValue)
	if equal(o, n) {
		return
	}
	*c = append(*c, FieldChange{Field: field, OldValue: o, NewValue: n})
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c) == 0
}

// Fields returns the changed field names in order.
func (c Changes) Fields() []string {
	out := make([]string, len(c))
	for i, ch := range c {
		out[i] = ch.Field
	}
	return out
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}

func equal(a, b any) bool {
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
