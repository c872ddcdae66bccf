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

package stage_test

import (
	"testing"
	"time"

	"github.com/aerofleet/hivebus/bus"
	"github.com/aerofleet/hivebus/record"
	"github.com/aerofleet/hivebus/stage"
)

// stageSource publishes a fixed sequence of stage updates, one per
// Run call.
type stageSource struct {
	info   bus.TaskInfo
	topic  string
	stages []string
	idx    int
}

func (s *stageSource) Init(bus.Outputs) error { return nil }
func (s *stageSource) ShouldRun() bool        { return s.idx < len(s.stages) }
func (s *stageSource) Run(_ []*record.Record, out bus.Outputs) error {
	rec, err := record.FromValue(map[string]any{"stage": s.stages[s.idx]})
	if err != nil {
		return err
	}
	s.idx++
	out.Records <- rec.SetTopic(s.topic).SetFlag(record.FlagPublishPacket)
	return nil
}
func (s *stageSource) Cleanup() error        { return nil }
func (s *stageSource) TaskInfo() bus.TaskInfo { return s.info }

// dummyTask is a no-op task standing in for a real watchdog/control
// task; it only tracks whether the runner considers it running.
type dummyTask struct {
	info bus.TaskInfo
}

func (d *dummyTask) Init(bus.Outputs) error                      { return nil }
func (d *dummyTask) ShouldRun() bool                             { return true }
func (d *dummyTask) Run(_ []*record.Record, _ bus.Outputs) error { return nil }
func (d *dummyTask) Cleanup() error                              { return nil }
func (d *dummyTask) TaskInfo() bus.TaskInfo                      { return d.info }

// Scenario 5 (spec §8): Stage reconciliation.
//
// The controller is registered before the stage source in tick order,
// so a stage published during tick N is only visible to the
// controller's drain on tick N+1 (drain precedes run within a tick;
// spec §4.6 step 7). The source holds each stage value for two ticks
// so there is an observable window where the controller has already
// reconciled a stage but a later stage hasn't arrived yet.
func TestControllerStageReconciliation(t *testing.T) {
	state := bus.NewRunnerState()
	runner := bus.NewRunner(state, nil, time.Millisecond)

	config := stage.Config{
		stage.AutoShadow: {"T1", "T2"},
		stage.AutoStart:  {"T2", "T3"},
	}
	controller := stage.NewController("autonomy-controller", "auto/stage", stage.AutonomyStages(), config, nil)

	t1 := &dummyTask{info: bus.NewTaskInfo("T1")}
	t2 := &dummyTask{info: bus.NewTaskInfo("T2")}
	t3 := &dummyTask{info: bus.NewTaskInfo("T3")}
	source := &stageSource{
		info:   bus.NewTaskInfo("stage-source").WithInstaSpawn(),
		topic:  "auto/stage",
		stages: []string{"AutoShadow", "AutoShadow", "AutoStart", "AutoStart"},
	}

	runner.AddTask(controller)
	runner.AddTask(source)
	runner.AddTask(t1)
	runner.AddTask(t2)
	runner.AddTask(t3)
	runner.InitTasks()

	mustTick(t, runner) // source publishes AutoShadow #1
	mustTick(t, runner) // controller adopts AutoShadow, spawns T1+T2; source publishes AutoShadow #2
	mustTick(t, runner) // T1, T2 now running; source publishes AutoStart #1

	if !runner.IsRunning(t1.info.ID) || !runner.IsRunning(t2.info.ID) {
		t.Fatalf("expected T1 and T2 running in AutoShadow")
	}
	if runner.IsRunning(t3.info.ID) {
		t.Fatalf("T3 must not be running in AutoShadow")
	}

	mustTick(t, runner) // controller adopts AutoStart: kills T1, spawns T3; source publishes AutoStart #2
	mustTick(t, runner) // T3 now running

	if runner.IsRunning(t1.info.ID) {
		t.Fatalf("T1 must have been killed on transition to AutoStart")
	}
	if !runner.IsRunning(t2.info.ID) {
		t.Fatalf("T2 must remain running across both stages")
	}
	if !runner.IsRunning(t3.info.ID) {
		t.Fatalf("T3 must be running in AutoStart")
	}
}

func mustTick(t *testing.T, runner *bus.Runner) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		runner.TickForTest()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick did not complete in time")
	}
}
