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
	"testing"

	"github.com/aerofleet/hivebus/record"
)

func mustRecord(t *testing.T, v any) *record.Record {
	t.Helper()
	r, err := record.FromValue(v)
	if err != nil {
		t.Fatalf("record.FromValue: %v", err)
	}
	return r
}

func TestSubscriptionQueuePushDrain(t *testing.T) {
	q := NewSubscriptionQueue(NewTaskInfo("consumer"), "foo/*")
	if !q.IsEmpty() {
		t.Fatalf("new queue should be empty")
	}

	r1 := mustRecord(t, map[string]any{"v": 1.0})
	r2 := mustRecord(t, map[string]any{"v": 2.0})
	q.Push(r1)
	q.Push(r2)

	if got := q.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	drained := q.Drain()
	if len(drained) != 2 || drained[0] != r1 || drained[1] != r2 {
		t.Fatalf("Drain() returned %v, want [r1, r2] in push order", drained)
	}
	if !q.IsEmpty() {
		t.Fatalf("queue should be empty after drain")
	}
	if got := q.Drain(); got != nil {
		t.Fatalf("draining an empty queue should return nil, got %v", got)
	}
}
