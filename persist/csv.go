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

package persist

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/aerofleet/hivebus/record"
)

// writeCSV flattens rec (spec §4.5 step 3: tabular output always
// flattens first) and writes one row per record row, header from the
// flattened schema's dotted field names. No ecosystem CSV writer
// appears anywhere in the retrieved corpus and the format carries no
// type fidelity beyond cell strings once flattened, so stdlib
// encoding/csv is used directly (see DESIGN.md).
func writeCSV(path string, rec *record.Record) error {
	flat, err := rec.Flatten()
	if err != nil {
		return fmt.Errorf("persist: flattening for csv: %w", err)
	}

	rows, err := record.ToValues[map[string]any](flat)
	if err != nil {
		return fmt.Errorf("persist: decoding flattened rows: %w", err)
	}

	schema := flat.Schema()
	header := make([]string, schema.NumFields())
	for i := range header {
		header[i] = schema.Field(i).Name
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("persist: writing csv header: %w", err)
	}
	for _, row := range rows {
		cells := make([]string, len(header))
		for i, name := range header {
			cells[i] = fmt.Sprint(row[name])
		}
		if err := w.Write(cells); err != nil {
			return fmt.Errorf("persist: writing csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
