// Package sysconfig models the process-wide tunables table. Raw strings are
// parsed once into typed values when a Snapshot is built; readers never
// re-coerce and fall back to documented defaults with a Warning.
package sysconfig

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/apperr"
)

var ErrNotFound = apperr.NotFound("configuration key")

type Type string

const (
	TypeBoolean Type = "BOOLEAN"
	TypeInteger Type = "INTEGER"
	TypeString  Type = "STRING"
	TypeJSON    Type = "JSON"
)

func (t Type) Valid() bool {
	switch t {
	case TypeBoolean, TypeInteger, TypeString, TypeJSON:
		return true
	}
	return false
}

// Table: system_configurations
type Setting struct {
	ID          uint64    `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	Key         string    `gorm:"column:config_key;size:128;not null;uniqueIndex" json:"key"`
	ValueType   Type      `gorm:"column:value_type;size:16;not null" json:"value_type"`
	RawValue    string    `gorm:"column:raw_value;type:text;not null" json:"value"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	UpdatedBy   string    `gorm:"column:updated_by;size:32" json:"updated_by,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Setting) TableName() string { return "system_configurations" }

// Value is a parsed configuration value; exactly one payload field is meaningful.
type Value struct {
	Type Type
	Bool bool
	Int  int64
	Str  string
	JSON json.RawMessage
}

// Parse resolves raw into a typed Value.
func Parse(t Type, raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	switch t {
	case TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a boolean", apperr.ErrConfig, raw)
		}
		return Value{Type: t, Bool: b}, nil
	case TypeInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an integer", apperr.ErrConfig, raw)
		}
		return Value{Type: t, Int: i}, nil
	case TypeString:
		return Value{Type: t, Str: raw}, nil
	case TypeJSON:
		if !json.Valid([]byte(s)) {
			return Value{}, fmt.Errorf("%w: value is not valid JSON", apperr.ErrConfig)
		}
		return Value{Type: t, JSON: json.RawMessage(s)}, nil
	}
	return Value{}, fmt.Errorf("%w: unknown value type %q", apperr.ErrConfig, t)
}

// Warning reports a key that fell back to its default.
type Warning struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

func (w Warning) String() string { return w.Key + ": " + w.Reason }

// Snapshot is an immutable, parsed view of the table.
type Snapshot struct {
	values   map[string]Value
	warnings []Warning
}

// NewSnapshot parses every row once. Unparsable rows are dropped with a warning.
func NewSnapshot(rows []Setting) *Snapshot {
	s := &Snapshot{values: make(map[string]Value, len(rows))}
	for _, r := range rows {
		v, err := Parse(r.ValueType, r.RawValue)
		if err != nil {
			s.warnings = append(s.warnings, Warning{Key: r.Key, Reason: err.Error()})
			continue
		}
		s.values[r.Key] = v
	}
	return s
}

func (s *Snapshot) Lookup(key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Reader resolves typed lookups against a snapshot and collects warnings.
type Reader struct {
	snap     *Snapshot
	warnings []Warning
}

func NewReader(s *Snapshot) *Reader {
	r := &Reader{snap: s}
	if s != nil {
		r.warnings = append(r.warnings, s.warnings...)
	}
	return r
}

func (r *Reader) warn(key, reason string) {
	r.warnings = append(r.warnings, Warning{Key: key, Reason: reason})
}

func (r *Reader) lookup(key string, want Type) (Value, bool) {
	v, ok := r.snap.Lookup(key)
	if !ok {
		r.warn(key, "missing, using default")
		return Value{}, false
	}
	if v.Type != want {
		r.warn(key, fmt.Sprintf("expected %s, found %s, using default", want, v.Type))
		return Value{}, false
	}
	return v, true
}

// Int reads an INTEGER value. Values outside the key's Bound fall back to def.
func (r *Reader) Int(key string, def int) int {
	v, ok := r.lookup(key, TypeInteger)
	if !ok {
		return def
	}
	if b, bounded := Bounds[key]; bounded && !b.Contains(decimal.NewFromInt(v.Int)) {
		r.warn(key, "must be "+b.String()+", using default")
		return def
	}
	return int(v.Int)
}

// Percent is Int clamped to 0..100; out-of-range values fall back to def.
func (r *Reader) Percent(key string, def int) int {
	n := r.Int(key, def)
	if n < 0 || n > 100 {
		r.warn(key, "outside 0..100, using default")
		return def
	}
	return n
}

func (r *Reader) Bool(key string, def bool) bool {
	if v, ok := r.lookup(key, TypeBoolean); ok {
		return v.Bool
	}
	return def
}

func (r *Reader) String(key, def string) string {
	if v, ok := r.lookup(key, TypeString); ok {
		return v.Str
	}
	return def
}

// Decimal reads a STRING value holding a decimal number.
func (r *Reader) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	v, ok := r.lookup(key, TypeString)
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.Str))
	if err != nil {
		r.warn(key, "not a decimal, using default")
		return def
	}
	if b, bounded := Bounds[key]; bounded && !b.Contains(d) {
		r.warn(key, "must be "+b.String()+", using default")
		return def
	}
	return d
}

// Fallback records that key was overridden by its default for a reason found
// outside the reader, such as two keys that contradict each other.
func (r *Reader) Fallback(key, reason string) {
	r.warn(key, reason)
}

// JSON decodes a JSON value into out and reports success. Decode into a copy of
// the defaults; fields absent from the stored document keep their values.
func (r *Reader) JSON(key string, out any) bool {
	v, ok := r.lookup(key, TypeJSON)
	if !ok {
		return false
	}
	if err := json.Unmarshal(v.JSON, out); err != nil {
		r.warn(key, "does not match the expected shape, using default")
		return false
	}
	return true
}

func (r *Reader) Warnings() []Warning { return r.warnings }
