// Package models provides the row representation shared by the executors,
// the CSV bridge and the workflow items.
package models

import (
	"sort"

	jsonpool "github.com/ajitpratap0/nebula-snowflake/pkg/json"
)

// Row maps column names to scalar values (string, number, boolean or nil)
// and remembers the order in which columns were first set.
// A Row is not safe for concurrent modification.
type Row struct {
	keys   []string
	values map[string]interface{}
}

// NewRow creates an empty row with room for capacity columns
func NewRow(capacity int) *Row {
	return &Row{
		keys:   make([]string, 0, capacity),
		values: make(map[string]interface{}, capacity),
	}
}

// RowFromMap builds a row from a map. Map iteration order is undefined,
// so columns are ordered by name.
func RowFromMap(m map[string]interface{}) *Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := NewRow(len(keys))
	for _, k := range keys {
		row.Set(k, m[k])
	}
	return row
}

// Set assigns a column value, appending the column if it is new
func (r *Row) Set(key string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value of a column and whether it is present
func (r *Row) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value of a column, nil when absent
func (r *Row) Value(key string) interface{} {
	v, _ := r.Get(key)
	return v
}

// Keys returns the column names in insertion order
func (r *Row) Keys() []string {
	if r == nil {
		return nil
	}
	return r.keys
}

// Len returns the number of columns
func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Map returns a copy of the row as a plain map
func (r *Row) Map() map[string]interface{} {
	out := make(map[string]interface{}, r.Len())
	for _, k := range r.Keys() {
		out[k] = r.values[k]
	}
	return out
}

// Pick returns a new row holding only the given columns, in the given order.
// Missing columns are set to nil.
func (r *Row) Pick(columns []string) *Row {
	out := NewRow(len(columns))
	for _, c := range columns {
		out.Set(c, r.Value(c))
	}
	return out
}

// MarshalJSON encodes the row as a JSON object in column order
func (r *Row) MarshalJSON() ([]byte, error) {
	buf := jsonpool.GetBuffer()
	defer jsonpool.PutBuffer(buf)

	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := jsonpool.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := jsonpool.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// UnmarshalJSON decodes a JSON object into the row. Columns are ordered by name.
func (r *Row) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := jsonpool.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = *RowFromMap(m)
	return nil
}
