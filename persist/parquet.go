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
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/aerofleet/hivebus/record"
)

// writeParquet writes the unflattened (struct-preserving) record
// batch to path via the Arrow-to-Parquet bridge, grounded on the
// builder/writer-properties idiom used throughout the corpus for
// columnar output (e.g. the DataDog trace-stats parquet writer).
func writeParquet(path string, rec *record.Record) error {
	batch := rec.ToRecordBatch()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: creating %s: %w", path, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(compress.Codecs.Zstd),
	)
	writer, err := pqarrow.NewFileWriter(batch.Schema(), f, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("persist: opening parquet writer for %s: %w", path, err)
	}
	defer writer.Close()

	if err := writer.Write(batch); err != nil {
		return fmt.Errorf("persist: writing %s: %w", path, err)
	}
	return nil
}
