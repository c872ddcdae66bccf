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

// Package stage implements the generic observed-stage-to-task-set
// reconciler used by both the execution and autonomy supervisors
// (spec §4.7), grounded directly on the Rust original's AutoRunner
// (original_source/quad/src/auto/auto_runner.rs), generalized to a
// single type instantiated twice.
package stage

// Stage is opaque to the core scheduler; only a Controller's config
// gives it meaning. Two disjoint enumerations exist: execution and
// autonomy (spec §3).
type Stage string

// Execution stages.
const (
	AwaitConnection Stage = "AwaitConnection"
	AwaitingData    Stage = "AwaitingData"
	AwaitingHealthy Stage = "AwaitingHealthy"
	AwaitingLock    Stage = "AwaitingLock"
	HealthyUnarmed  Stage = "HealthyUnarmed"
	HealthyArmed    Stage = "HealthyArmed"
	HealthyGuided   Stage = "HealthyGuided"
	Unhealthy       Stage = "Unhealthy"
	Fatal           Stage = "Fatal"
)

// Autonomy stages.
const (
	AutoShadow  Stage = "AutoShadow"
	AutoStart   Stage = "AutoStart"
	AutoTakeoff Stage = "AutoTakeoff"
	AutoHover   Stage = "AutoHover"
	AutoGuided  Stage = "AutoGuided"
	AutoLand    Stage = "AutoLand"
)

// ExecutionStages returns the full execution-stage enumeration.
func ExecutionStages() []Stage {
	return []Stage{AwaitConnection, AwaitingData, AwaitingHealthy, AwaitingLock, HealthyUnarmed, HealthyArmed, HealthyGuided, Unhealthy, Fatal}
}

// AutonomyStages returns the full autonomy-stage enumeration.
func AutonomyStages() []Stage {
	return []Stage{AutoShadow, AutoStart, AutoTakeoff, AutoHover, AutoGuided, AutoLand}
}
