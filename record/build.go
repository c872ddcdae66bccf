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
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/aerofleet/hivebus/internal/errs"
)

// buildRecord materializes rows (already validated against schema by
// inferSchema) into a concrete arrow.Record using a builder-per-field
// RecordBuilder, the same idiom used to populate Arrow columns
// throughout the retrieved corpus.
func buildRecord(schema *arrow.Schema, rows []map[string]any) (arrow.Record, error) {
	rb := array.NewRecordBuilder(allocator, schema)
	defer rb.Release()

	for _, row := range rows {
		for i, field := range schema.Fields() {
			if err := appendValue(rb.Field(i), field.Type, row[field.Name]); err != nil {
				return nil, errs.Wrap(errs.KindSchemaInferenceFailed, "appending field "+field.Name, err)
			}
		}
	}
	return rb.NewRecord(), nil
}

// appendValue appends a single JSON-decoded value onto b, recursing
// into struct and list builders for nested shapes.
func appendValue(b array.Builder, dt arrow.DataType, value any) error {
	if value == nil {
		b.AppendNull()
		return nil
	}

	switch bt := b.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		bt.Append(v)

	case *array.Int64Builder:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
		bt.Append(int64(v))

	case *array.Float64Builder:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
		bt.Append(v)

	case *array.StringBuilder:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		bt.Append(v)

	case *array.StructBuilder:
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
		st, ok := dt.(*arrow.StructType)
		if !ok {
			return fmt.Errorf("builder/type mismatch for struct field")
		}
		bt.Append(true)
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			if err := appendValue(bt.FieldBuilder(i), f.Type, m[f.Name]); err != nil {
				return err
			}
		}

	case *array.ListBuilder:
		elems, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
		lt, ok := dt.(*arrow.ListType)
		if !ok {
			return fmt.Errorf("builder/type mismatch for list field")
		}
		bt.Append(true)
		vb := bt.ValueBuilder()
		for _, el := range elems {
			if err := appendValue(vb, lt.Elem(), el); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("unsupported builder type %T", b)
	}
	return nil
}

// columnValue decodes the value at row i of arr back to a plain Go
// value that encoding/json can marshal. Int64 columns decode to int64,
// not to the float64 that appendValue accepts, so the result goes
// through a JSON round trip before it is appended again.
func columnValue(arr arrow.Array, row int) (any, error) {
	if arr.IsNull(row) {
		return nil, nil
	}

	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(row), nil
	case *array.Int64:
		return a.Value(row), nil
	case *array.Float64:
		return a.Value(row), nil
	case *array.String:
		return a.Value(row), nil
	case *array.Struct:
		st, ok := arr.DataType().(*arrow.StructType)
		if !ok {
			return nil, fmt.Errorf("struct array without struct type")
		}
		m := make(map[string]any, st.NumFields())
		for i := 0; i < st.NumFields(); i++ {
			v, err := columnValue(a.Field(i), row)
			if err != nil {
				return nil, err
			}
			m[st.Field(i).Name] = v
		}
		return m, nil
	case *array.List:
		offsets := a.Offsets()
		start, end := offsets[row], offsets[row+1]
		values := a.ListValues()
		out := make([]any, 0, end-start)
		for k := start; k < end; k++ {
			v, err := columnValue(values, int(k))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported array type %T", arr)
	}
}
