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

	"github.com/aerofleet/hivebus/internal/errs"
)

// inferSchema infers a column schema from a set of JSON-object rows
// which must all share the same key set (spec §4.1: mixed element
// shapes fail with SchemaInferenceFailed).
func inferSchema(rows []map[string]any) (*arrow.Schema, error) {
	if len(rows) == 0 {
		return nil, errs.New(errs.KindSchemaInferenceFailed, "cannot infer a schema from zero rows")
	}

	keys := sortedKeys(rows[0])
	for _, row := range rows[1:] {
		if len(row) != len(keys) {
			return nil, errs.New(errs.KindSchemaInferenceFailed, "rows have mismatched shapes")
		}
		for _, k := range keys {
			if _, ok := row[k]; !ok {
				return nil, errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("row missing field %q present in other rows", k))
			}
		}
	}

	fields := make([]arrow.Field, 0, len(keys))
	for _, k := range keys {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[k]
		}
		field, err := inferField(k, values)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return arrow.NewSchema(fields, nil), nil
}

// inferField infers a single column's Arrow field from the set of
// JSON-decoded values observed for it across all rows.
func inferField(name string, values []any) (arrow.Field, error) {
	nullable := false
	var sample any
	for _, v := range values {
		if v == nil {
			nullable = true
			continue
		}
		if sample == nil {
			sample = v
		}
	}
	if sample == nil {
		return arrow.Field{}, errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("column %q is null-only; cannot infer a type without a hint", name))
	}

	switch sample.(type) {
	case bool:
		if err := requireKind(name, values, func(v any) bool { _, ok := v.(bool); return ok }); err != nil {
			return arrow.Field{}, err
		}
		return arrow.Field{Name: name, Type: arrow.FixedWidthTypes.Boolean, Nullable: nullable}, nil

	case float64:
		if err := requireKind(name, values, func(v any) bool { _, ok := v.(float64); return ok }); err != nil {
			return arrow.Field{}, err
		}
		if allIntegral(values) {
			return arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: nullable}, nil
		}
		return arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: nullable}, nil

	case string:
		if err := requireKind(name, values, func(v any) bool { _, ok := v.(string); return ok }); err != nil {
			return arrow.Field{}, err
		}
		return arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: nullable}, nil

	case map[string]any:
		subRows := make([]map[string]any, 0, len(values))
		for _, v := range values {
			obj, ok := v.(map[string]any)
			if !ok {
				if v == nil {
					continue
				}
				return arrow.Field{}, errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("column %q mixes object and non-object values", name))
			}
			if err := validateFieldNames(obj); err != nil {
				return arrow.Field{}, err
			}
			subRows = append(subRows, obj)
		}
		subSchema, err := inferSchema(subRows)
		if err != nil {
			return arrow.Field{}, err
		}
		return arrow.Field{Name: name, Type: arrow.StructOf(subSchema.Fields()...), Nullable: nullable}, nil

	case []any:
		var elems []any
		for _, v := range values {
			arr, ok := v.([]any)
			if !ok {
				if v == nil {
					continue
				}
				return arrow.Field{}, errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("column %q mixes array and non-array values", name))
			}
			elems = append(elems, arr...)
		}
		if len(elems) == 0 {
			return arrow.Field{}, errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("column %q is an empty-array-only list; cannot infer element type", name))
		}
		elemField, err := inferField(name+".elem", elems)
		if err != nil {
			return arrow.Field{}, err
		}
		return arrow.Field{Name: name, Type: arrow.ListOf(elemField.Type), Nullable: nullable}, nil

	default:
		return arrow.Field{}, errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("column %q has an unsupported JSON value type %T", name, sample))
	}
}

func requireKind(name string, values []any, ok func(any) bool) error {
	for _, v := range values {
		if v == nil {
			continue
		}
		if !ok(v) {
			return errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("column %q has mixed element shapes", name))
		}
	}
	return nil
}

func allIntegral(values []any) bool {
	for _, v := range values {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		if f != float64(int64(f)) {
			return false
		}
	}
	return true
}

// validateFieldNames fails fast on a struct field name containing
// '.', per spec §3: flattening such a name would be ambiguous.
func validateFieldNames(obj map[string]any) error {
	for k := range obj {
		for _, r := range k {
			if r == '.' {
				return errs.New(errs.KindSchemaInferenceFailed, fmt.Sprintf("field name %q contains '.', which is reserved as the flatten path separator", k))
			}
		}
	}
	return nil
}
