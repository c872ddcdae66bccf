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
	"os"
	"path/filepath"
	"testing"

	"github.com/aerofleet/hivebus/bus"
	"github.com/aerofleet/hivebus/record"
)

func publishRow(t *testing.T, state *bus.RunnerState, topicName string, n int) {
	t.Helper()
	rec, err := record.FromValue(map[string]any{"n": float64(n)})
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	rec = rec.SetTopic(topicName).SetFlag(record.FlagPublishPacket)
	if err := state.Apply(rec); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

// Scenario 4 (spec §8): Persistence spill. trigger_rows=3,
// history_rows=1, formats={columnar}. After 3 published rows, one
// file is written and state is trimmed to the latest 1 row.
func TestSinkSpillTriggersAndTrims(t *testing.T) {
	dir := t.TempDir()
	state := bus.NewRunnerState()
	for i := 1; i <= 3; i++ {
		publishRow(t, state, "t/a", i)
	}

	sink := New(Config{
		OutputRoot:  dir,
		TriggerRows: 3,
		HistoryRows: 1,
		Formats:     map[Format]bool{Columnar: true},
		SessionID:   "sess",
	})

	if err := sink.Spill(state); err != nil {
		t.Fatalf("Spill: %v", err)
	}

	path := filepath.Join(dir, "sess", "t", "a.parquet")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected parquet file at %s: %v", path, err)
	}

	n, ok := state.RowCount("t/a")
	if !ok || n != 1 {
		t.Fatalf("row count after spill = %d, %v; want 1, true", n, ok)
	}
}

// history_rows == 0 always drops the topic after a successful spill
// (Open Question 1, resolved in DESIGN.md).
func TestSinkSpillHistoryRowsZeroDropsTopic(t *testing.T) {
	dir := t.TempDir()
	state := bus.NewRunnerState()
	publishRow(t, state, "t/b", 1)
	publishRow(t, state, "t/b", 2)

	sink := New(Config{
		OutputRoot:  dir,
		TriggerRows: 2,
		HistoryRows: 0,
		Formats:     map[Format]bool{Tabular: true},
		SessionID:   "sess",
	})

	if err := sink.Spill(state); err != nil {
		t.Fatalf("Spill: %v", err)
	}

	if _, ok := state.Get("t/b"); ok {
		t.Fatalf("expected topic t/b removed after spill with history_rows=0")
	}

	path := filepath.Join(dir, "sess", "t", "b.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected csv file at %s: %v", path, err)
	}
	if len(data) == 0 {
		t.Fatalf("csv file is empty")
	}
}

// A topic below trigger_rows is left untouched.
func TestSinkSpillBelowTriggerLeavesTopic(t *testing.T) {
	dir := t.TempDir()
	state := bus.NewRunnerState()
	publishRow(t, state, "t/c", 1)

	sink := New(Config{
		OutputRoot:  dir,
		TriggerRows: 5,
		HistoryRows: 1,
		Formats:     map[Format]bool{Columnar: true},
		SessionID:   "sess",
	})

	if err := sink.Spill(state); err != nil {
		t.Fatalf("Spill: %v", err)
	}
	n, ok := state.RowCount("t/c")
	if !ok || n != 1 {
		t.Fatalf("row count below trigger = %d, %v; want unchanged 1, true", n, ok)
	}
	if _, err := os.Stat(filepath.Join(dir, "sess", "t", "c.parquet")); !os.IsNotExist(err) {
		t.Fatalf("expected no file written below trigger threshold")
	}
}

// FinalDump writes every non-empty topic with a _final suffix
// regardless of threshold, and never trims state.
func TestSinkFinalDump(t *testing.T) {
	dir := t.TempDir()
	state := bus.NewRunnerState()
	publishRow(t, state, "t/d", 1)

	sink := New(Config{
		OutputRoot:  dir,
		TriggerRows: 100,
		HistoryRows: 1,
		Formats:     map[Format]bool{Tabular: true},
		SessionID:   "sess",
	})

	if err := sink.FinalDump(state); err != nil {
		t.Fatalf("FinalDump: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sess", "t", "d_final.csv")); err != nil {
		t.Fatalf("expected final-dump file: %v", err)
	}
	if n, ok := state.RowCount("t/d"); !ok || n != 1 {
		t.Fatalf("FinalDump must not trim state, got %d, %v", n, ok)
	}
}
