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
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/aerofleet/hivebus/internal/clock"
	"github.com/aerofleet/hivebus/record"
	"github.com/aerofleet/hivebus/topic"
)

// Sink is the persistence hook invoked at end-of-tick and at
// shutdown. persist.Sink implements it; defining the interface here
// (rather than importing persist) keeps bus the lower-level package,
// matching the teacher's helpers.Runner-style dependency-injected
// interface (helpers/runner.go).
type Sink interface {
	Spill(state *RunnerState) error
	FinalDump(state *RunnerState) error
}

type noopSink struct{}

func (noopSink) Spill(*RunnerState) error     { return nil }
func (noopSink) FinalDump(*RunnerState) error { return nil }

// Runner is the cooperative single-threaded scheduler: it owns every
// registered task, the topic-history store, and per-task
// subscription queues, and drives them through the tick loop
// described in spec §4.6.
type Runner struct {
	tasks        map[uint64]Task
	infos        map[uint64]TaskInfo
	order        []uint64 // registration order == deterministic tick order
	running      map[uint64]bool
	pendingSpawn map[uint64]bool
	queues       map[uint64][]*SubscriptionQueue

	state     *RunnerState
	sink      Sink
	tickSleep time.Duration
	shutDown  bool
}

// NewRunner builds a Runner over state, spilling through sink at the
// end of every tick (and once more, with a "_final" suffix, at
// shutdown). sink may be nil to disable persistence.
func NewRunner(state *RunnerState, sink Sink, tickSleep time.Duration) *Runner {
	if sink == nil {
		sink = noopSink{}
	}
	if tickSleep <= 0 {
		tickSleep = 5 * time.Millisecond
	}
	return &Runner{
		tasks:        make(map[uint64]Task),
		infos:        make(map[uint64]TaskInfo),
		running:      make(map[uint64]bool),
		pendingSpawn: make(map[uint64]bool),
		queues:       make(map[uint64][]*SubscriptionQueue),
		state:        state,
		sink:         sink,
		tickSleep:    tickSleep,
	}
}

// AddTask registers t by its TaskInfo. If InstaSpawn is set, t is
// added to pending_spawn immediately.
func (r *Runner) AddTask(t Task) {
	info := t.TaskInfo()
	r.tasks[info.ID] = t
	r.infos[info.ID] = info
	r.order = append(r.order, info.ID)
	if info.InstaSpawn {
		r.pendingSpawn[info.ID] = true
	}
}

// InitTasks runs the one-shot init phase for every registered task,
// in registration order, draining both of its channels synchronously
// (spec §4.6 "Init phase").
func (r *Runner) InitTasks() {
	for _, id := range r.order {
		r.initOne(id)
	}
}

// AddAndInitTask registers t (as AddTask does) and immediately runs
// its init phase, without waiting for a bulk InitTasks call. This is
// how a task can be attached to an already-ticking runner — e.g. a
// late subscriber joining after history already exists (spec §8
// scenario 2): its query_latest snapshot reflects whatever the topic
// history holds at the moment it joins, not what existed at the
// runner's original startup.
func (r *Runner) AddAndInitTask(t Task) {
	r.AddTask(t)
	r.initOne(t.TaskInfo().ID)
}

func (r *Runner) initOne(id uint64) {
	task := r.tasks[id]
	recCh := make(chan *record.Record, outputBufferSize)
	metaCh := make(chan MetaMessage, outputBufferSize)

	err := task.Init(Outputs{Records: recCh, Meta: metaCh})
	close(recCh)
	close(metaCh)

	if err != nil {
		glog.Warningf("task %s init failed, will not be scheduled: %v", r.infos[id].Name, err)
		delete(r.pendingSpawn, id)
		delete(r.running, id)
		return
	}

	var deferredSubs []*record.Record
	for rec := range recCh {
		flag, ferr := rec.GetFlag()
		if ferr != nil {
			glog.Warningf("task %s init emitted a record with no flag: %v", r.infos[id].Name, ferr)
			continue
		}
		switch flag {
		case record.FlagSubscribePacket:
			deferredSubs = append(deferredSubs, rec)
		case record.FlagPublishPacket:
			r.applyAndFanOut(rec)
		}
	}
	for _, rec := range deferredSubs {
		r.registerSubscription(id, rec)
	}
	for m := range metaCh {
		r.applyMeta(m)
	}
}

// Run is the real-time entry point: it ticks every tickSleep interval
// until ctx is cancelled, then shuts down. Grounded on the teacher's
// public/private Run/run split (agent/pulse.go) so tests can drive
// the private variant with a fake ticker instead of sleeping.
func (r *Runner) Run(ctx context.Context) error {
	ticker := clock.NewClockTicker(r.tickSleep)
	defer ticker.Stop()
	return r.run(ctx, ticker)
}

func (r *Runner) run(ctx context.Context, ticker clock.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			return ctx.Err()
		case <-ticker.GetChannel():
			r.tick()
		}
	}
}

type pendingSubscription struct {
	taskID uint64
	record *record.Record
}

// tick executes one pass of the algorithm in spec §4.6. Eligibility
// (running ∪ pending_spawn) is snapshotted at tick start: a task
// spawned by an earlier task's meta command this tick will not run
// until the next tick() call, even if it is later in iteration order,
// but a task killed mid-tick is skipped immediately if it has not run
// yet this tick — both are explicit in spec §4.6 step 7.
func (r *Runner) tick() {
	var deferredSubs []pendingSubscription

	eligibleAtStart := make(map[uint64]bool, len(r.order))
	for _, id := range r.order {
		if r.running[id] || r.pendingSpawn[id] {
			eligibleAtStart[id] = true
		}
	}

	for _, id := range r.order {
		if !eligibleAtStart[id] {
			continue
		}
		if !r.running[id] && !r.pendingSpawn[id] {
			continue // was eligible at tick start, killed earlier this same tick
		}
		if r.pendingSpawn[id] {
			delete(r.pendingSpawn, id)
			r.running[id] = true
		}

		task := r.tasks[id]
		if !task.ShouldRun() {
			continue
		}

		inputs := r.drainQueues(id)
		recCh := make(chan *record.Record, outputBufferSize)
		metaCh := make(chan MetaMessage, outputBufferSize)

		if err := task.Run(inputs, Outputs{Records: recCh, Meta: metaCh}); err != nil {
			glog.Warningf("task %s run failed, will retry next tick: %v", r.infos[id].Name, err)
		}
		close(recCh)
		close(metaCh)

		for rec := range recCh {
			flag, ferr := rec.GetFlag()
			if ferr != nil {
				glog.Warningf("task %s emitted a record with no flag: %v", r.infos[id].Name, ferr)
				continue
			}
			switch flag {
			case record.FlagSubscribePacket:
				deferredSubs = append(deferredSubs, pendingSubscription{taskID: id, record: rec})
			case record.FlagPublishPacket:
				r.applyAndFanOut(rec)
			}
		}
		for m := range metaCh {
			r.applyMeta(m)
		}
	}

	for _, sub := range deferredSubs {
		r.registerSubscription(sub.taskID, sub.record)
	}

	if err := r.sink.Spill(r.state); err != nil {
		glog.Warningf("persistence spill failed: %v", err)
	}
}

func (r *Runner) drainQueues(id uint64) []*record.Record {
	qs := r.queues[id]
	if len(qs) == 0 {
		return nil
	}
	var inputs []*record.Record
	for _, q := range qs {
		inputs = append(inputs, q.Drain()...)
	}
	return inputs
}

func (r *Runner) registerSubscription(id uint64, sub *record.Record) {
	pattern, err := sub.TryGetTopic()
	if err != nil {
		glog.Warningf("task %s subscribe packet missing topic metadata: %v", r.infos[id].Name, err)
		return
	}
	q := NewSubscriptionQueue(r.infos[id], pattern)
	r.queues[id] = append(r.queues[id], q)

	snapshot, err := r.state.QueryLatest(pattern)
	if err != nil {
		glog.Warningf("task %s late-subscribe snapshot for %q failed: %v", r.infos[id].Name, pattern, err)
		return
	}
	for _, rec := range snapshot {
		q.Push(rec)
	}
}

func (r *Runner) applyAndFanOut(rec *record.Record) {
	if err := r.state.Apply(rec); err != nil {
		glog.Warningf("applying publish to state failed: %v", err)
		return
	}
	t, err := rec.TryGetTopic()
	if err != nil {
		return
	}
	for _, qs := range r.queues {
		for _, q := range qs {
			if topic.Matches(q.Pattern(), t) {
				q.Push(rec)
			}
		}
	}
}

func (r *Runner) applyMeta(m MetaMessage) {
	id := m.Task.ID
	if _, known := r.tasks[id]; !known {
		return // unknown task referenced by name before it exists; ignored per spec §7
	}
	switch m.Command {
	case MetaSpawnTask:
		r.pendingSpawn[id] = true
	case MetaKillTask:
		delete(r.running, id)
		delete(r.pendingSpawn, id)
	}
}

// Shutdown final-dumps the sink and invokes Cleanup on every
// registered task. It is idempotent and best-effort (spec §7).
func (r *Runner) Shutdown() {
	if r.shutDown {
		return
	}
	r.shutDown = true
	if err := r.sink.FinalDump(r.state); err != nil {
		glog.Warningf("final persistence dump failed: %v", err)
	}
	for _, id := range r.order {
		if err := r.tasks[id].Cleanup(); err != nil {
			glog.Warningf("task %s cleanup failed: %v", r.infos[id].Name, err)
		}
	}
	r.queues = make(map[uint64][]*SubscriptionQueue)
}

// State returns the runner's topic-history store, for inspection by
// callers such as cmd/hivebus-inspect or tests.
func (r *Runner) State() *RunnerState {
	return r.state
}

// TickForTest runs a single scheduler tick synchronously. Exported
// only so tests in other packages (e.g. stage) can drive the runner
// deterministically without sleeping on a real ticker.
func (r *Runner) TickForTest() {
	r.tick()
}

// IsRunning reports whether the task with the given id is currently
// scheduled to run (used by tests of stage reconciliation).
func (r *Runner) IsRunning(id uint64) bool {
	return r.running[id]
}
