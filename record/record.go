/*
Copyright 2024 The Hivebus Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package record implements the immutable columnar row batch that
// flows through hivebus: a schema-inferring JSON bridge on top of
// Apache Arrow, with a string-keyed metadata map carrying the
// reserved "topic" and "flag" keys.
package record

import (
	"encoding/json"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/aerofleet/hivebus/internal/errs"
)

const (
	metaTopicKey = "topic"
	metaFlagKey  = "flag"
)

// Flag is the reserved "flag" metadata value distinguishing a
// publish from a subscription registration.
type Flag int

const (
	FlagUnspecified Flag = iota
	FlagPublishPacket
	FlagSubscribePacket
)

func (f Flag) String() string {
	switch f {
	case FlagPublishPacket:
		return "PublishPacket"
	case FlagSubscribePacket:
		return "SubscribePacket"
	default:
		return "Unspecified"
	}
}

func parseFlag(s string) (Flag, error) {
	switch s {
	case "PublishPacket":
		return FlagPublishPacket, nil
	case "SubscribePacket":
		return FlagSubscribePacket, nil
	default:
		return FlagUnspecified, errs.New(errs.KindFlagNotSet, "invalid flag value "+s)
	}
}

// Record is a value-typed wrapper around an arrow.Record. Every
// mutation (SetTopic, SetFlag, Concat, Latest, Flatten, Unflatten)
// returns a new Record sharing the underlying column buffers where
// possible; the receiver is never modified.
type Record struct {
	rec arrow.Record
}

var allocator = memory.NewGoAllocator()

// FromValue builds a Record from any JSON-serializable value. A
// slice/array value yields one row per element; any other value
// yields a single row. Every element must be a JSON object with the
// same set of keys (spec: "mixed element shapes" fails fast).
func FromValue(v any) (*Record, error) {
	rows, err := valueToRows(v)
	if err != nil {
		return nil, err
	}
	schema, err := inferSchema(rows)
	if err != nil {
		return nil, err
	}
	rec, err := buildRecord(schema, rows)
	if err != nil {
		return nil, err
	}
	return &Record{rec: rec}, nil
}

func valueToRows(v any) ([]map[string]any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.KindSchemaInferenceFailed, "marshaling value to JSON", err)
	}
	var generic any
	if err := json.Unmarshal(buf, &generic); err != nil {
		return nil, errs.Wrap(errs.KindSchemaInferenceFailed, "decoding JSON bridge", err)
	}

	switch t := generic.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(t))
		for _, el := range t {
			obj, ok := el.(map[string]any)
			if !ok {
				return nil, errs.New(errs.KindSchemaInferenceFailed, "array element is not an object; value is not table-shaped")
			}
			rows = append(rows, obj)
		}
		return rows, nil
	case map[string]any:
		return []map[string]any{t}, nil
	default:
		return nil, errs.New(errs.KindSchemaInferenceFailed, "value is not table-shaped (expected object or array of objects)")
	}
}

// ToValues deserializes every row of r into T, via the same JSON
// bridge FromValue used to build the batch. Go has no generic
// methods, so this is a free function rather than (*Record).ToValues.
func ToValues[T any](r *Record) ([]T, error) {
	if r.rec.NumRows() == 0 {
		return nil, errs.New(errs.KindEmpty, "record has zero rows")
	}
	rows, err := recordToRows(r.rec)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(rows)
	if err != nil {
		return nil, errs.Wrap(errs.KindDecodeFailed, "re-marshaling rows to JSON", err)
	}
	var out []T
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, errs.Wrap(errs.KindDecodeFailed, "decoding rows into target type", err)
	}
	return out, nil
}

// FromRecordBatch wraps an existing arrow.Record, e.g. one loaded
// back from a persisted parquet file.
func FromRecordBatch(rec arrow.Record) *Record {
	return &Record{rec: rec}
}

// ToRecordBatch returns the underlying arrow.Record.
func (r *Record) ToRecordBatch() arrow.Record {
	return r.rec
}

// NumRows returns the row count of the batch.
func (r *Record) NumRows() int64 {
	return r.rec.NumRows()
}

// Schema returns the batch's Arrow schema, including metadata.
func (r *Record) Schema() *arrow.Schema {
	return r.rec.Schema()
}

func metadataValue(schema *arrow.Schema, key string) (string, bool) {
	md := schema.Metadata()
	idx := md.FindKey(key)
	if idx < 0 {
		return "", false
	}
	return md.Values()[idx], true
}

// withMetadata returns a new Record whose schema metadata has key
// set to value, with all other existing keys (self wins on
// collision) preserved.
func (r *Record) withMetadata(key, value string) *Record {
	md := r.rec.Schema().Metadata()
	keys := append([]string{}, md.Keys()...)
	values := append([]string{}, md.Values()...)
	found := false
	for i, k := range keys {
		if k == key {
			values[i] = value
			found = true
			break
		}
	}
	if !found {
		keys = append(keys, key)
		values = append(values, value)
	}
	newMeta := arrow.NewMetadata(keys, values)
	newSchema := arrow.NewSchema(r.rec.Schema().Fields(), &newMeta)
	newRec := array.NewRecord(newSchema, r.rec.Columns(), r.rec.NumRows())
	return &Record{rec: newRec}
}

// SetTopic returns a new Record with the reserved "topic" metadata
// key set.
func (r *Record) SetTopic(topic string) *Record {
	return r.withMetadata(metaTopicKey, topic)
}

// TryGetTopic returns the "topic" metadata value, or TopicNotSet.
func (r *Record) TryGetTopic() (string, error) {
	v, ok := metadataValue(r.rec.Schema(), metaTopicKey)
	if !ok {
		return "", errs.New(errs.KindTopicNotSet, "record has no topic metadata")
	}
	return v, nil
}

// SetFlag returns a new Record with the reserved "flag" metadata key
// set.
func (r *Record) SetFlag(flag Flag) *Record {
	return r.withMetadata(metaFlagKey, flag.String())
}

// GetFlag returns the "flag" metadata value, or FlagNotSet.
func (r *Record) GetFlag() (Flag, error) {
	v, ok := metadataValue(r.rec.Schema(), metaFlagKey)
	if !ok {
		return FlagUnspecified, errs.New(errs.KindFlagNotSet, "record has no flag metadata")
	}
	return parseFlag(v)
}

// schemasCompatible reports whether a and b have the same ordered
// field names and element-wise equal types (spec §4.1: strict,
// metadata ignored).
func schemasCompatible(a, b *arrow.Schema) bool {
	if a.NumFields() != b.NumFields() {
		return false
	}
	for i := 0; i < a.NumFields(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		if fa.Name != fb.Name || !arrow.TypeEqual(fa.Type, fb.Type) {
			return false
		}
	}
	return true
}

// Concat performs a schema-compatible concatenation; self's metadata
// wins on key collision.
func (r *Record) Concat(other *Record) (*Record, error) {
	if !schemasCompatible(r.rec.Schema(), other.rec.Schema()) {
		return nil, errs.New(errs.KindSchemaMismatch, "incompatible schemas for concat")
	}
	numCols := int(r.rec.NumCols())
	cols := make([]arrow.Array, numCols)
	for i := 0; i < numCols; i++ {
		merged, err := array.Concatenate([]arrow.Array{r.rec.Column(i), other.rec.Column(i)}, allocator)
		if err != nil {
			return nil, errs.Wrap(errs.KindIncompatibleAppend, "concatenating column "+r.rec.ColumnName(i), err)
		}
		cols[i] = merged
	}
	newRec := array.NewRecord(r.rec.Schema(), cols, r.rec.NumRows()+other.rec.NumRows())
	return &Record{rec: newRec}, nil
}

// Latest returns the last n rows; if n exceeds the row count all
// rows are returned; n == 0 yields a zero-row Record with the same
// schema.
func (r *Record) Latest(n int64) (*Record, error) {
	total := r.rec.NumRows()
	if n > total {
		n = total
	}
	if n < 0 {
		n = 0
	}
	start := total - n
	sliced := r.rec.NewSlice(start, total)
	return &Record{rec: sliced}, nil
}

// recordToRows decodes every column of rec back into a slice of rows
// of JSON-marshalable Go values (see columnValue).
func recordToRows(rec arrow.Record) ([]map[string]any, error) {
	n := int(rec.NumRows())
	schema := rec.Schema()
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		row := make(map[string]any, schema.NumFields())
		for f := 0; f < schema.NumFields(); f++ {
			v, err := columnValue(rec.Column(f), i)
			if err != nil {
				return nil, errs.Wrap(errs.KindDecodeFailed, "decoding field "+schema.Field(f).Name, err)
			}
			row[schema.Field(f).Name] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// sortedKeys returns m's keys in a deterministic, stable order; used
// wherever we need to impose a field order on a decoded JSON object
// (Go map iteration is randomized, unlike the Rust original's
// order-preserving serde_json map).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
