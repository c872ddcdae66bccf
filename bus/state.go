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

package bus

import (
	"sort"
	"sync"

	"github.com/aerofleet/hivebus/internal/errs"
	"github.com/aerofleet/hivebus/record"
	"github.com/aerofleet/hivebus/topic"
)

// RunnerState holds the topic-history store: for every topic, the
// concatenation of every publish since the last trim. It is mutated
// only by the runner thread (spec §5); the mutex exists so a
// persistence sink running at end-of-tick and an inspector reading
// concurrently both see a consistent map, not to admit writer
// concurrency.
type RunnerState struct {
	mu     sync.Mutex
	topics map[string]*record.Record
}

// NewRunnerState returns an empty topic-history store.
func NewRunnerState() *RunnerState {
	return &RunnerState{topics: make(map[string]*record.Record)}
}

// Apply requires flag=PublishPacket and a set topic; it concatenates
// into the existing entry for that topic or inserts fresh.
func (s *RunnerState) Apply(r *record.Record) error {
	flag, err := r.GetFlag()
	if err != nil {
		return err
	}
	if flag != record.FlagPublishPacket {
		return errs.New(errs.KindFlagNotSet, "apply requires a record with flag=PublishPacket")
	}
	t, err := r.TryGetTopic()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.topics[t]
	if !ok {
		s.topics[t] = r
		return nil
	}
	merged, err := existing.Concat(r)
	if err != nil {
		return errs.Wrap(errs.KindIncompatibleAppend, "appending publish to topic "+t, err)
	}
	s.topics[t] = merged
	return nil
}

// QueryLatest returns, for every stored topic matching pattern, a
// one-row Record containing the last row of that topic's history.
func (s *RunnerState) QueryLatest(pattern string) ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*record.Record
	for t, rec := range s.topics {
		if !topic.Matches(pattern, t) {
			continue
		}
		latest, err := rec.Latest(1)
		if err != nil {
			return nil, errs.Wrap(errs.KindDecodeFailed, "slicing latest row of topic "+t, err)
		}
		out = append(out, latest)
	}
	return out, nil
}

// RowCount returns the stored row count for topic, if present.
func (s *RunnerState) RowCount(t string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.topics[t]
	if !ok {
		return 0, false
	}
	return rec.NumRows(), true
}

// Get returns the stored Record for topic, if present.
func (s *RunnerState) Get(t string) (*record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.topics[t]
	return rec, ok
}

// Replace atomically replaces the stored Record for topic.
func (s *RunnerState) Replace(t string, r *record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[t] = r
}

// Remove deletes topic's entry entirely.
func (s *RunnerState) Remove(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, t)
}

// Topics returns every stored topic name, sorted for determinism.
func (s *RunnerState) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
