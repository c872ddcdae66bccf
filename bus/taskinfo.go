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

// Package bus implements the Runner scheduler: task identity and
// contract, per-subscription delivery queues, the topic-history
// store, and the cooperative tick loop that ties them together.
package bus

import (
	"fmt"
	"hash/fnv"
)

// TaskInfo is a task's stable identity. Equality and hashing are by
// ID alone; two TaskInfos sharing a name are indistinguishable, per
// spec §3.
type TaskInfo struct {
	Name       string
	ID         uint64
	InstaSpawn bool
}

// NewTaskInfo builds a TaskInfo with an ID derived from a stable hash
// of name, in the same spirit as the teacher's fnv-hash-based
// subscription id (agent/pubsub/pubsub.go).
func NewTaskInfo(name string) TaskInfo {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return TaskInfo{Name: name, ID: h.Sum64()}
}

// WithInstaSpawn returns a copy of t marked for immediate spawn on
// registration.
func (t TaskInfo) WithInstaSpawn() TaskInfo {
	t.InstaSpawn = true
	return t
}

func (t TaskInfo) String() string {
	return fmt.Sprintf("%s(%d)", t.Name, t.ID)
}
