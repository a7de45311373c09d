package schema

import "github.com/awesome-nfv/confluo/types"

// Snapshot is a frozen copy of a schema's field layout. It decodes single
// fields straight out of a raw record buffer without materializing the
// whole record, which is what trigger evaluation does on the ingest path.
// A Snapshot holds no reference back to its Schema and is safe for
// concurrent use.
type Snapshot struct {
	fields []Field
}

// Get decodes the field at idx from the raw record bytes. The caller
// guarantees data is a complete record for this layout and stays stable
// for the duration of the call.
func (s Snapshot) Get(data []byte, idx int) types.Value {
	f := s.fields[idx]
	return types.Decode(data[f.Offset:f.Offset+f.Type.Size], f.Type)
}

// NumFields returns the number of fields in the layout.
func (s Snapshot) NumFields() int { return len(s.fields) }

// Record is a fully decoded record: its position in the log, its ingest
// timestamp and one typed value per schema field.
type Record struct {
	Offset    int64
	Timestamp uint64
	values    []types.Value
}

// NewRecord builds a record directly from decoded values. Mostly useful
// in tests.
func NewRecord(values ...types.Value) Record {
	return Record{values: values}
}

// At returns the value of the field at idx.
func (r Record) At(idx int) types.Value { return r.values[idx] }

// NumValues returns the number of decoded values.
func (r Record) NumValues() int { return len(r.values) }

// Values returns the decoded values as a copy.
func (r Record) Values() []types.Value {
	return append([]types.Value(nil), r.values...)
}
