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

// Package adapter holds sample, non-core bus.Task implementations
// illustrating how an external I/O source (a transport thread, not a
// cooperative task) hands data into the bus. TelemetryBridge is the
// only bus.Task here; PubSubSource is an optional SourceFunc provider
// for it. Neither is part of the scheduler's core guarantees or
// carries spec-level invariants of its own.
package adapter

import (
	"context"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aerofleet/hivebus/bus"
	"github.com/aerofleet/hivebus/record"
)

// Sample is one unit of data read off the external source.
type Sample map[string]any

// SourceFunc produces one Sample, blocking until one is available or
// ctx is done. It stands in for reading one MAVLink frame, one sensor
// packet, or any other externally-paced input.
type SourceFunc func(ctx context.Context) (Sample, error)

const bufferCapacity = 256

// TelemetryBridge is a bus.Task that owns a background goroutine
// (bounded to its own context by errgroup, per spec.md §5's "external
// I/O tasks own their own background threads") reading from source
// and buffering samples; the cooperative Run call drains whatever
// accumulated since the last tick and publishes it as one Record.
// Grounded on agent/workprocessor.go's receive-loop-plus-publish
// shape, adapted from a blocking Pub/Sub Receive to a free-running
// background reader since there is no external broker here.
type TelemetryBridge struct {
	info   bus.TaskInfo
	topic  string
	source SourceFunc

	buffer chan Sample
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewTelemetryBridge builds a bridge that publishes to topic. A nil
// source defaults to a synthetic heartbeat generator paced by
// golang.org/x/time/rate, useful for local runs without real
// telemetry hardware attached.
func NewTelemetryBridge(name, topic string, source SourceFunc) *TelemetryBridge {
	if source == nil {
		source = heartbeatSource(rate.NewLimiter(rate.Every(200*time.Millisecond), 1))
	}
	return &TelemetryBridge{
		info:   bus.NewTaskInfo(name).WithInstaSpawn(),
		topic:  topic,
		source: source,
		buffer: make(chan Sample, bufferCapacity),
	}
}

func (b *TelemetryBridge) TaskInfo() bus.TaskInfo { return b.info }

// Init starts the background reader. It does not use out: a
// background goroutine outlives Init's synchronous call and the
// runner closes out's channels as soon as Init returns, so handing
// data to the bus happens from Run, fed by the internal buffer
// instead.
func (b *TelemetryBridge) Init(bus.Outputs) error {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	b.group = g
	g.Go(func() error {
		for {
			sample, err := b.source(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				glog.Warningf("telemetry bridge %s: source read failed: %v", b.info.Name, err)
				continue
			}
			select {
			case b.buffer <- sample:
			case <-gctx.Done():
				return nil
			}
		}
	})
	return nil
}

func (b *TelemetryBridge) ShouldRun() bool { return len(b.buffer) > 0 }

// Run drains whatever samples accumulated in buffer since the last
// tick and publishes them as a single Record.
func (b *TelemetryBridge) Run(_ []*record.Record, out bus.Outputs) error {
	var rows []Sample
drain:
	for {
		select {
		case s := <-b.buffer:
			rows = append(rows, s)
		default:
			break drain
		}
	}
	if len(rows) == 0 {
		return nil
	}
	rec, err := record.FromValue(rows)
	if err != nil {
		return err
	}
	out.Records <- rec.SetTopic(b.topic).SetFlag(record.FlagPublishPacket)
	return nil
}

// Cleanup stops the background reader and waits for it to exit.
func (b *TelemetryBridge) Cleanup() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.group != nil {
		return b.group.Wait()
	}
	return nil
}

// heartbeatSource returns a SourceFunc producing a synthetic
// mavlink/reproc/heartbeat_status-shaped sample, paced by limiter.
func heartbeatSource(limiter *rate.Limiter) SourceFunc {
	return func(ctx context.Context) (Sample, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return Sample{
			"armed":     true,
			"mode":      "GUIDED",
			"timestamp": time.Now().UnixMilli(),
		}, nil
	}
}
