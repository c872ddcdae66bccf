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

// Package persist implements the end-of-tick persistence sink (spec
// §4.5): it spills topic history to columnar (Parquet) and tabular
// (CSV) files once a topic's row count crosses a threshold, trimming
// or dropping the in-memory history afterward.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/aerofleet/hivebus/bus"
	"github.com/aerofleet/hivebus/record"
)

// Format is one of the two enabled output encodings a Sink can write.
type Format string

const (
	Columnar Format = "columnar"
	Tabular  Format = "tabular"
)

// Config is the persistence sink's enumerated configuration (spec
// §4.5).
type Config struct {
	OutputRoot  string
	TriggerRows int64
	HistoryRows int64
	Formats     map[Format]bool
	SessionID   string
}

// Sink implements bus.Sink against Config. It is safe to pass a zero
// Sink value's address only via New, which fills in SessionID when
// left blank.
type Sink struct {
	cfg Config
}

// New builds a Sink. If cfg.SessionID is empty it defaults to the
// current local time formatted as YYYYMMDD_HHMMSS (spec §6).
func New(cfg Config) *Sink {
	if cfg.SessionID == "" {
		cfg.SessionID = time.Now().Local().Format("20060102_150405")
	}
	return &Sink{cfg: cfg}
}

// Spill runs one persistence pass (spec §4.5 steps 1-4): every topic
// at or above TriggerRows is written to every enabled format, and
// trimmed or dropped from state once at least one format succeeds.
func (s *Sink) Spill(state *bus.RunnerState) error {
	return s.spill(state, false)
}

// FinalDump writes every non-empty topic once more with a "_final"
// suffix, regardless of TriggerRows, and does not trim state (the
// runner is shutting down).
func (s *Sink) FinalDump(state *bus.RunnerState) error {
	return s.spill(state, true)
}

func (s *Sink) spill(state *bus.RunnerState, final bool) error {
	var firstErr error
	for _, topicName := range state.Topics() {
		rec, ok := state.Get(topicName)
		if !ok {
			continue
		}
		rows := rec.NumRows()
		if rows == 0 {
			continue
		}
		if !final && rows < s.cfg.TriggerRows {
			continue
		}

		wroteAny, err := s.writeTopic(topicName, rec, final)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !wroteAny {
			continue
		}

		if final {
			continue
		}
		if s.cfg.HistoryRows == 0 {
			state.Remove(topicName)
		} else if rows > s.cfg.HistoryRows {
			trimmed, err := rec.Latest(s.cfg.HistoryRows)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("persist: trimming %s: %w", topicName, err)
				}
				continue
			}
			state.Replace(topicName, trimmed)
		}
	}
	return firstErr
}

// writeTopic writes rec in every enabled format under dir/stem.<ext>,
// logging (not aborting on) per-format failures. It reports whether
// at least one format succeeded.
func (s *Sink) writeTopic(topicName string, rec *record.Record, final bool) (bool, error) {
	dir, stem := topicPath(s.cfg.OutputRoot, s.cfg.SessionID, topicName)
	if final {
		stem += "_final"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("persist: creating %s: %w", dir, err)
	}

	var wroteAny bool
	var lastErr error

	if s.cfg.Formats[Columnar] {
		path := filepath.Join(dir, stem+".parquet")
		if err := writeParquet(path, rec); err != nil {
			glog.Warningf("persist: columnar write of %s failed: %v", topicName, err)
			lastErr = err
		} else {
			wroteAny = true
		}
	}
	if s.cfg.Formats[Tabular] {
		path := filepath.Join(dir, stem+".csv")
		if err := writeCSV(path, rec); err != nil {
			glog.Warningf("persist: tabular write of %s failed: %v", topicName, err)
			lastErr = err
		} else {
			wroteAny = true
		}
	}
	if !wroteAny {
		return false, lastErr
	}
	return true, nil
}

// topicPath splits a topic name like "t/a/b" into dir =
// output_root/session_id/t/a and stem = "b" (spec §4.5 step 2).
func topicPath(outputRoot, sessionID, topicName string) (dir, stem string) {
	segments := strings.Split(strings.Trim(topicName, "/"), "/")
	stem = segments[len(segments)-1]
	parents := segments[:len(segments)-1]
	dir = filepath.Join(append([]string{outputRoot, sessionID}, parents...)...)
	return dir, stem
}
