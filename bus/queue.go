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
	"sync"

	"github.com/aerofleet/hivebus/record"
)

// SubscriptionQueue is a FIFO of Records for one (task, topic
// pattern) pair. It is logically owned by its task but pushed to by
// the runner's fan-out; a mutex admits background I/O tasks that may
// push concurrently even though the core scheduler is single-threaded
// (spec §5).
type SubscriptionQueue struct {
	info    TaskInfo
	pattern string

	mu    sync.Mutex
	queue []*record.Record
}

// NewSubscriptionQueue creates an empty queue for (info, pattern).
func NewSubscriptionQueue(info TaskInfo, pattern string) *SubscriptionQueue {
	return &SubscriptionQueue{info: info, pattern: pattern}
}

// Push appends a Record. O(1).
func (q *SubscriptionQueue) Push(r *record.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, r)
}

// Drain empties the queue atomically and returns what was in it, in
// push order. O(n).
func (q *SubscriptionQueue) Drain() []*record.Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return nil
	}
	drained := q.queue
	q.queue = nil
	return drained
}

// Len returns the current queue length.
func (q *SubscriptionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// IsEmpty reports whether the queue currently holds no Records.
func (q *SubscriptionQueue) IsEmpty() bool {
	return q.Len() == 0
}

// TaskInfo returns the identity of the task that owns this queue.
func (q *SubscriptionQueue) TaskInfo() TaskInfo {
	return q.info
}

// Pattern returns the topic pattern this queue was registered for.
func (q *SubscriptionQueue) Pattern() string {
	return q.pattern
}
