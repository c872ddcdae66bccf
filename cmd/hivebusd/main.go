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

// hivebusd is the hivebus process entrypoint: it wires a bus.Runner
// to a persist.Sink and the two stage controllers (execution and
// autonomy) described in spec.md §4.7, then runs until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/aerofleet/hivebus/adapter"
	"github.com/aerofleet/hivebus/bus"
	"github.com/aerofleet/hivebus/persist"
	"github.com/aerofleet/hivebus/stage"
)

const (
	executionStageTopic = "drone/stage/execution"
	autonomyStageTopic  = "drone/stage/autonomy"
	heartbeatTopic      = "mavlink/reproc/heartbeat_status"
)

var (
	outputRoot   string
	triggerRows  int64
	historyRows  int64
	sessionID    string
	formatsFlag  string
	tickInterval time.Duration
)

func init() {
	flag.StringVar(&outputRoot, "output_root", "/var/lib/hivebus", "Root directory for persisted topic batches.")
	flag.Int64Var(&triggerRows, "trigger_rows", 1000, "Row-count threshold for a persistence spill.")
	flag.Int64Var(&historyRows, "history_rows", 100, "Rows retained in memory after a spill; 0 drops the topic entirely.")
	flag.StringVar(&sessionID, "session_id", "", "Session identifier used in the persisted path; defaults to the current timestamp.")
	flag.StringVar(&formatsFlag, "formats", "columnar,tabular", "Comma-separated persistence formats to enable: columnar, tabular.")
	flag.DurationVar(&tickInterval, "tick_interval", 5*time.Millisecond, "Sleep between scheduler ticks.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	formats, err := parseFormats(formatsFlag)
	if err != nil {
		glog.Fatalf("invalid -formats value: %v", err)
	}

	sink := persist.New(persist.Config{
		OutputRoot:  outputRoot,
		TriggerRows: triggerRows,
		HistoryRows: historyRows,
		Formats:     formats,
		SessionID:   sessionID,
	})

	state := bus.NewRunnerState()
	runner := bus.NewRunner(state, sink, tickInterval)

	// watchdog, geofence-guard, mission-runner, failsafe, and the
	// autonomy sequencers below name tasks this entrypoint does not
	// itself register (flight-control logic is out of scope per
	// spec.md's Non-goals); the controllers' spawn/kill commands for
	// them are harmless no-ops against an unknown TaskInfo (spec §7),
	// and exist here to show the config shape a real deployment fills in.
	execController := stage.NewController("execution-controller", executionStageTopic, stage.ExecutionStages(), stage.Config{
		stage.HealthyUnarmed: {"watchdog"},
		stage.HealthyArmed:   {"watchdog", "geofence-guard"},
		stage.HealthyGuided:  {"watchdog", "geofence-guard", "mission-runner"},
		stage.Unhealthy:      {"watchdog", "failsafe"},
	}, nil)

	autoController := stage.NewController("autonomy-controller", autonomyStageTopic, stage.AutonomyStages(), stage.Config{
		stage.AutoTakeoff: {"takeoff-sequencer"},
		stage.AutoHover:   {"hover-hold"},
		stage.AutoGuided:  {"mission-runner"},
		stage.AutoLand:    {"land-sequencer"},
	}, nil)

	telemetry := adapter.NewTelemetryBridge("telemetry-bridge", heartbeatTopic, nil)

	runner.AddTask(execController)
	runner.AddTask(autoController)
	runner.AddTask(telemetry)
	runner.InitTasks()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	glog.Infof("hivebus starting: output_root=%s trigger_rows=%d history_rows=%d formats=%s", outputRoot, triggerRows, historyRows, formatsFlag)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		glog.Errorf("runner exited with error: %v", err)
		os.Exit(1)
	}
	glog.Infof("hivebus shut down cleanly")
}

func parseFormats(spec string) (map[persist.Format]bool, error) {
	out := make(map[persist.Format]bool)
	start := 0
	for i := 0; i <= len(spec); i++ {
		if i == len(spec) || spec[i] == ',' {
			name := spec[start:i]
			start = i + 1
			if name == "" {
				continue
			}
			switch persist.Format(name) {
			case persist.Columnar, persist.Tabular:
				out[persist.Format(name)] = true
			default:
				return nil, fmt.Errorf("unrecognized format %q", name)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one format must be enabled")
	}
	return out, nil
}
