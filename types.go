package presto

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Structural columns (array, map, row) are returned by the driver as JSON
// text, with rows as objects keyed by field name. The types below scan that
// text into Go values.

// NullSlice scans an array column.
//
//	var tags presto.NullSlice[string]
//	err := row.Scan(&tags)
type NullSlice[T any] struct {
	Slice []T
	Valid bool
}

// NullMap scans a map column.
type NullMap[K comparable, V any] struct {
	Map   map[K]V
	Valid bool
}

// NullRow scans a row column into a struct (matched by json tags) or a map.
//
//	type Address struct {
//	    Street string `json:"street"`
//	    City   string `json:"city"`
//	}
//	var addr presto.NullRow[Address]
//	err := row.Scan(&addr)
type NullRow[T any] struct {
	Row   T
	Valid bool
}

var (
	_ sql.Scanner   = (*NullSlice[any])(nil)
	_ driver.Valuer = NullSlice[any]{}
	_ sql.Scanner   = (*NullMap[string, any])(nil)
	_ driver.Valuer = NullMap[string, any]{}
	_ sql.Scanner   = (*NullRow[any])(nil)
	_ driver.Valuer = NullRow[any]{}
)

func (s *NullSlice[T]) Scan(src any) error {
	s.Slice = nil
	return scanJSON(src, "array", &s.Slice, &s.Valid)
}

func (s NullSlice[T]) Value() (driver.Value, error) {
	return valueJSON(s.Valid, s.Slice)
}

func (m *NullMap[K, V]) Scan(src any) error {
	m.Map = nil
	return scanJSON(src, "map", &m.Map, &m.Valid)
}

func (m NullMap[K, V]) Value() (driver.Value, error) {
	return valueJSON(m.Valid, m.Map)
}

func (r *NullRow[T]) Scan(src any) error {
	var zero T
	r.Row = zero
	return scanJSON(src, "row", &r.Row, &r.Valid)
}

func (r NullRow[T]) Value() (driver.Value, error) {
	return valueJSON(r.Valid, r.Row)
}

func scanJSON(src any, kind string, dst any, valid *bool) error {
	*valid = false
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("presto: cannot scan %T into %s value", src, kind)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("presto: decoding %s: %w", kind, err)
	}
	*valid = true
	return nil
}

func valueJSON(valid bool, v any) (driver.Value, error) {
	if !valid {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
