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

package record

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/aerofleet/hivebus/internal/errs"
)

// Flatten replaces every struct-typed column with one column per
// leaf field, named by dotted path. Lists (including lists of
// structs) pass through unchanged — they are not descended into, per
// spec §4.1. Idempotent on schemas with no struct columns.
func (r *Record) Flatten() (*Record, error) {
	schema := r.rec.Schema()
	var fields []arrow.Field
	var cols []arrow.Array

	for i := 0; i < schema.NumFields(); i++ {
		field := schema.Field(i)
		col := r.rec.Column(i)
		if st, ok := field.Type.(*arrow.StructType); ok {
			structArr, ok := col.(*array.Struct)
			if !ok {
				return nil, errs.New(errs.KindSchemaMismatch, "struct field "+field.Name+" is not backed by a struct array")
			}
			flatFields, flatCols, err := flattenStructColumn(field.Name, st, structArr)
			if err != nil {
				return nil, err
			}
			fields = append(fields, flatFields...)
			cols = append(cols, flatCols...)
		} else {
			fields = append(fields, field)
			cols = append(cols, col)
		}
	}

	newSchema := arrow.NewSchema(fields, schemaMetadataPtr(schema))
	newRec := array.NewRecord(newSchema, cols, r.rec.NumRows())
	return &Record{rec: newRec}, nil
}

func flattenStructColumn(prefix string, st *arrow.StructType, arr *array.Struct) ([]arrow.Field, []arrow.Array, error) {
	var fields []arrow.Field
	var cols []arrow.Array

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		name := f.Name
		if prefix != "" {
			name = prefix + "." + f.Name
		}
		col := arr.Field(i)

		if subSt, ok := f.Type.(*arrow.StructType); ok {
			subArr, ok := col.(*array.Struct)
			if !ok {
				return nil, nil, errs.New(errs.KindSchemaMismatch, "struct field "+name+" is not backed by a struct array")
			}
			subFields, subCols, err := flattenStructColumn(name, subSt, subArr)
			if err != nil {
				return nil, nil, err
			}
			fields = append(fields, subFields...)
			cols = append(cols, subCols...)
			continue
		}

		fields = append(fields, arrow.Field{Name: name, Type: f.Type, Nullable: f.Nullable})
		cols = append(cols, col)
	}
	return fields, cols, nil
}

func schemaMetadataPtr(schema *arrow.Schema) *arrow.Metadata {
	md := schema.Metadata()
	return &md
}

// Unflatten is the inverse of Flatten, rebuilding nested struct
// columns from dotted-path column names. It goes through the same
// JSON bridge as FromValue/ToValues rather than hand-assembling
// Arrow struct arrays directly: dotted paths are regrouped into
// nested maps per row, then re-inferred and rebuilt, which keeps the
// nesting logic in exactly one place.
func (r *Record) Unflatten() (*Record, error) {
	schema := r.rec.Schema()
	hasDotted := false
	for _, f := range schema.Fields() {
		if strings.Contains(f.Name, ".") {
			hasDotted = true
			break
		}
	}
	if !hasDotted {
		// Nothing to do: unflatten is a no-op on a Record with no
		// dotted field names (round-trip law, spec §4.1).
		return r, nil
	}

	flatRows, err := recordToRows(r.rec)
	if err != nil {
		return nil, err
	}

	nestedRows := make([]map[string]any, len(flatRows))
	for i, row := range flatRows {
		nestedRows[i] = nestRow(row)
	}
	jsonRows, err := valueToRows(nestedRows)
	if err != nil {
		return nil, err
	}

	schemaOut, err := inferSchema(jsonRows)
	if err != nil {
		return nil, errs.Wrap(errs.KindSchemaInferenceFailed, "inferring schema while unflattening", err)
	}
	rec, err := buildRecord(schemaOut, jsonRows)
	if err != nil {
		return nil, err
	}

	newSchema := arrow.NewSchema(rec.Schema().Fields(), schemaMetadataPtr(schema))
	newRec := array.NewRecord(newSchema, rec.Columns(), rec.NumRows())
	return &Record{rec: newRec}, nil
}

// nestRow groups a flat row's dotted keys ("inner.a", "inner.deep.x")
// into nested maps by greatest common prefix before the first '.'.
func nestRow(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, val := range flat {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) == 1 {
			out[key] = val
			continue
		}
		head, rest := parts[0], parts[1]
		sub, ok := out[head].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			out[head] = sub
		}
		assignNested(sub, rest, val)
	}
	return out
}

func assignNested(m map[string]any, key string, val any) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 1 {
		m[key] = val
		return
	}
	head, rest := parts[0], parts[1]
	sub, ok := m[head].(map[string]any)
	if !ok {
		sub = make(map[string]any)
		m[head] = sub
	}
	assignNested(sub, rest, val)
}
