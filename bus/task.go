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

import "github.com/aerofleet/hivebus/record"

// MetaCommand is a lifecycle instruction a task sends the runner
// through its meta channel.
type MetaCommand int

const (
	MetaSpawnTask MetaCommand = iota
	MetaKillTask
)

// MetaMessage pairs a lifecycle command with the task it targets.
// Referencing an unregistered TaskInfo is not an error; it is
// silently ignored by the runner (spec §7).
type MetaMessage struct {
	Command MetaCommand
	Task    TaskInfo
}

// outputBufferSize bounds how many records or meta commands a task
// may emit from a single Init or Run call. Init/Run are synchronous
// calls made by the runner on its own goroutine and drained
// immediately afterwards; a task that tries to emit more than this
// in one call blocks forever, which is an implementation limitation
// documented here rather than hidden behind an unbounded channel.
const outputBufferSize = 1024

// Outputs bundles the two outbound channels a task uses to talk to
// the runner: one for Records (publish/subscribe), one for
// meta-control (spawn/kill). Tasks hold no back-reference to the
// runner; everything flows through these two channels (spec §9,
// "cyclic ownership").
type Outputs struct {
	Records chan<- *record.Record
	Meta    chan<- MetaMessage
}

// Task is the contract every schedulable unit of work implements.
type Task interface {
	// Init runs once, before the task's first tick. It may publish
	// records and register subscriptions (records sent with
	// flag=SubscribePacket) and may request spawns/kills of other
	// tasks. A non-nil error means the task is not moved to running
	// and its queues are not created (spec §7).
	Init(out Outputs) error

	// ShouldRun is polled once per tick, before Run.
	ShouldRun() bool

	// Run is the cooperative step. inputs are every Record drained
	// from this task's subscription queues since the previous tick.
	Run(inputs []*record.Record, out Outputs) error

	// Cleanup runs once, at runner shutdown. It is not called on
	// Kill (spec §5): a task that holds resources across a kill must
	// release them in Run before it is killed.
	Cleanup() error

	// TaskInfo returns the task's stable identity.
	TaskInfo() TaskInfo
}
