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

// Package clock abstracts time so the runner's cooperative tick loop
// can be single-stepped in tests instead of sleeping on a wall
// clock. It mirrors the teacher's helpers.Clock interface and the
// helpers.Ticker/GetChannel() usage visible at its call sites in
// dcp/receiver.go and agent/stats/throughput/throughput.go.
package clock

import "time"

// Ticker is something that periodically signals on a channel. The
// real implementation wraps time.Ticker; FakeTicker is advanced
// manually.
type Ticker interface {
	GetChannel() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

// NewClockTicker returns a Ticker backed by a real time.Ticker.
func NewClockTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) GetChannel() <-chan time.Time {
	return r.t.C
}

func (r *realTicker) Stop() {
	r.t.Stop()
}

// FakeTicker is a Ticker a test can advance on demand.
type FakeTicker struct {
	ch chan time.Time
}

// NewFakeTicker returns a Ticker with no automatic firing; call Tick
// to fire it once.
func NewFakeTicker() *FakeTicker {
	return &FakeTicker{ch: make(chan time.Time, 1)}
}

func (f *FakeTicker) GetChannel() <-chan time.Time {
	return f.ch
}

// Tick fires the ticker once, as of the given time.
func (f *FakeTicker) Tick(t time.Time) {
	f.ch <- t
}

func (f *FakeTicker) Stop() {
	close(f.ch)
}
