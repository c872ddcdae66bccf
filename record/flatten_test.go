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
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Mirrors test_flatten_record_batch_simple from the original Rust
// record.rs test table.
func TestFlattenSimple(t *testing.T) {
	type inner struct {
		A int32  `json:"a"`
		B string `json:"b"`
	}
	type outer struct {
		ID    int32   `json:"id"`
		Inner inner   `json:"inner"`
		Value float64 `json:"value"`
	}

	data := []outer{
		{ID: 1, Inner: inner{A: 10, B: "hello"}, Value: 1.1},
		{ID: 2, Inner: inner{A: 20, B: "world"}, Value: 2.2},
	}

	r, err := FromValue(data)
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	flat, err := r.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	schema := flat.Schema()
	if schema.NumFields() != 4 {
		t.Fatalf("NumFields = %d, want 4", schema.NumFields())
	}
	var names []string
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	want := []string{"id", "inner.a", "inner.b", "value"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
	if got := flat.NumRows(); got != 2 {
		t.Fatalf("NumRows = %d, want 2", got)
	}
}

// Mirrors test_flatten_record_batch_nested.
func TestFlattenNested(t *testing.T) {
	type deepInner struct {
		X float64 `json:"x"`
	}
	type inner struct {
		A    int32     `json:"a"`
		Deep deepInner `json:"deep"`
	}
	type outer struct {
		ID    int32 `json:"id"`
		Inner inner `json:"inner"`
	}

	data := []outer{
		{ID: 1, Inner: inner{A: 10, Deep: deepInner{X: 100.1}}},
		{ID: 2, Inner: inner{A: 20, Deep: deepInner{X: 200.2}}},
	}

	r, err := FromValue(data)
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	flat, err := r.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	schema := flat.Schema()
	if schema.NumFields() != 3 {
		t.Fatalf("NumFields = %d, want 3", schema.NumFields())
	}
	var names []string
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	want := []string{"id", "inner.a", "inner.deep.x"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
}

// Mirrors test_flatten_record_batch_no_structs: flatten is a no-op
// on a schema with no struct columns.
func TestFlattenNoStructs(t *testing.T) {
	rows := []map[string]any{{"a": 1.0, "b": "x"}, {"a": 2.0, "b": nil}}
	r, err := FromValue(rows)
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	flat, err := r.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if flat.Schema().NumFields() != r.Schema().NumFields() {
		t.Fatalf("Flatten changed field count on a struct-free schema")
	}
}

// Flatten/unflatten round-trip law, spec §8: unflatten(flatten(r)) ==
// r on a Record with no dotted field names.
func TestFlattenUnflattenRoundTrip(t *testing.T) {
	type inner struct {
		A    int32   `json:"a"`
		Deep struct {
			X float64 `json:"x"`
		} `json:"deep"`
	}
	type outer struct {
		ID    int32 `json:"id"`
		Inner inner `json:"inner"`
	}

	data := outer{ID: 1, Inner: inner{A: 10}}
	data.Inner.Deep.X = 1.5

	r, err := FromValue(data)
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	r = r.SetTopic("t/topic")

	flat, err := r.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	unflat, err := flat.Unflatten()
	if err != nil {
		t.Fatalf("Unflatten: %v", err)
	}

	topic, err := unflat.TryGetTopic()
	if err != nil {
		t.Fatalf("TryGetTopic after round trip: %v", err)
	}
	if topic != "t/topic" {
		t.Fatalf("topic after round trip = %q, want t/topic", topic)
	}

	out, err := ToValues[outer](unflat)
	if err != nil {
		t.Fatalf("ToValues: %v", err)
	}
	if len(out) != 1 || out[0] != data {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, data)
	}
}

// Scenario 3 from spec §8: a nested object flattens to dotted
// columns then unflattens back to the original shape.
func TestFlattenUnflattenScenario(t *testing.T) {
	input := map[string]any{
		"id": 1.0,
		"inner": map[string]any{
			"a": 10.0,
			"deep": map[string]any{
				"x": 1.5,
			},
		},
	}
	r, err := FromValue(input)
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	flat, err := r.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	unflat, err := flat.Unflatten()
	if err != nil {
		t.Fatalf("Unflatten: %v", err)
	}
	out, err := ToValues[map[string]any](unflat)
	if err != nil {
		t.Fatalf("ToValues: %v", err)
	}
	if diff := cmp.Diff(input, out[0]); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
