// Package schema describes the fixed record layout of a store: an ordered
// list of typed fields at fixed byte offsets, plus the accessors that
// decode raw log bytes back into typed values.
package schema

import (
	"fmt"
	"strings"

	"github.com/awesome-nfv/confluo/types"
)

// Field is one column of a record layout.
type Field struct {
	Name   string // canonical (lowercase) name
	Idx    int    // position in the schema
	Type   types.Type
	Offset int // byte offset within the raw record
}

// Schema is an immutable ordered field layout. Field names are
// case-insensitive; the canonical form is lowercase.
type Schema struct {
	fields  []Field
	byName  map[string]int
	recSize int
}

// Builder accumulates fields and computes their offsets.
type Builder struct {
	fields []Field
	offset int
	err    error
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddField appends a field with the next free offset. Duplicate names
// (case-insensitively) are an error, reported by Build.
func (b *Builder) AddField(name string, t types.Type) *Builder {
	if b.err != nil {
		return b
	}
	canonical := strings.ToLower(strings.TrimSpace(name))
	if canonical == "" {
		b.err = fmt.Errorf("empty field name")
		return b
	}
	for _, f := range b.fields {
		if f.Name == canonical {
			b.err = fmt.Errorf("duplicate field %q", canonical)
			return b
		}
	}
	b.fields = append(b.fields, Field{
		Name:   canonical,
		Idx:    len(b.fields),
		Type:   t,
		Offset: b.offset,
	})
	b.offset += t.Size
	return b
}

func (b *Builder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.fields) == 0 {
		return nil, fmt.Errorf("schema has no fields")
	}
	byName := make(map[string]int, len(b.fields))
	for _, f := range b.fields {
		byName[f.Name] = f.Idx
	}
	return &Schema{
		fields:  append([]Field(nil), b.fields...),
		byName:  byName,
		recSize: b.offset,
	}, nil
}

// Lookup resolves a field name to its Field. Names are matched
// case-insensitively.
func (s *Schema) Lookup(name string) (Field, bool) {
	idx, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return Field{}, false
	}
	return s.fields[idx], true
}

func (s *Schema) Field(idx int) Field { return s.fields[idx] }
func (s *Schema) NumFields() int      { return len(s.fields) }
func (s *Schema) RecordSize() int     { return s.recSize }

// Fields returns the ordered field list. The slice is a copy.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Pack converts a map of field name to JSON-decoded value into the raw
// record layout. Every schema field must be present.
func (s *Schema) Pack(values map[string]any) ([]byte, error) {
	buf := make([]byte, s.recSize)
	// Track canonical names, not raw map keys: lookup is case insensitive
	// so two keys can land on the same field.
	seen := make(map[string]bool, len(s.fields))
	for name, raw := range values {
		f, ok := s.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		v, err := types.FromAny(raw, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		v.Encode(buf[f.Offset:])
	}
	if len(seen) != len(s.fields) {
		for _, f := range s.fields {
			if !seen[f.Name] {
				return nil, fmt.Errorf("missing field %q", f.Name)
			}
		}
	}
	return buf, nil
}

// Apply decodes a raw record into a Record anchored at the given log
// offset and timestamp.
func (s *Schema) Apply(offset int64, timestamp uint64, data []byte) Record {
	values := make([]types.Value, len(s.fields))
	for i, f := range s.fields {
		values[i] = types.Decode(data[f.Offset:], f.Type)
	}
	return Record{Offset: offset, Timestamp: timestamp, values: values}
}

// Snapshot returns an immutable copy of the field layout for raw-data
// access on the evaluation path.
func (s *Schema) Snapshot() Snapshot {
	return Snapshot{fields: s.Fields()}
}
