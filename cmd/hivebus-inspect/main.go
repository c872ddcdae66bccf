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

// hivebus-inspect opens one persisted batch (csv or parquet, as
// written by persist.Sink) and prints its rows to stdout, one JSON
// object per line.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/aerofleet/hivebus/record"
)

var (
	inputPath = flag.String("in", "", "Path to a persisted .csv or .parquet batch file. Must be set!")
)

func main() {
	flag.Parse()
	if *inputPath == "" {
		fmt.Println("The -in flag must be set. Run 'hivebus-inspect -h' for more info about flags.")
		os.Exit(1)
	}

	var rows []map[string]any
	var err error
	switch ext := strings.ToLower(filepath.Ext(*inputPath)); ext {
	case ".csv":
		rows, err = readCSV(*inputPath)
	case ".parquet":
		rows, err = readParquet(*inputPath)
	default:
		fmt.Printf("unsupported extension %q; expected .csv or .parquet\n", ext)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("reading %s: %v\n", *inputPath, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			fmt.Printf("encoding row: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Fprintf(os.Stderr, "wrote %d rows from %s\n", len(rows), *inputPath)
}

func readCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	for {
		fields, err := r.Read()
		if err != nil {
			break
		}
		row := make(map[string]any, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readParquet(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening parquet reader: %w", err)
	}
	defer pf.Close()

	fileReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("building arrow reader: %w", err)
	}
	recordReader, err := fileReader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("building record reader: %w", err)
	}
	defer recordReader.Release()

	var rows []map[string]any
	for recordReader.Next() {
		batch := recordReader.Record()
		rec := record.FromRecordBatch(batch)
		batchRows, err := record.ToValues[map[string]any](rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batchRows...)
	}
	if err := recordReader.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return rows, nil
}
