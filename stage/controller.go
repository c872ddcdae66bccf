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

package stage

import (
	"github.com/golang/glog"

	"github.com/aerofleet/hivebus/bus"
	"github.com/aerofleet/hivebus/record"
)

// Config maps a Stage to the set of task names that should be
// running while the controller observes that stage.
type Config map[Stage][]string

type stageUpdate struct {
	Stage string `json:"stage"`
}

// Controller is a bus.Task that reconciles a desired task set against
// an observed Stage. Two independently-configured Controllers (one
// for execution stages, one for autonomy stages) cover spec §4.7;
// neither holds direct references to the tasks it spawns or kills —
// everything flows through meta commands (spec §9).
type Controller struct {
	info       bus.TaskInfo
	stageTopic string
	valid      map[Stage]bool
	config     Config
	alwaysOn   []string

	// OnUnknownStage, if set, is called instead of the default
	// glog.Warningf when a stage update names a value outside this
	// controller's enumeration (grounded on the teacher's
	// log-and-continue idiom, agent/workprocessor.go's
	// processMessage).
	OnUnknownStage func(Stage)

	currentStage Stage
	haveStage    bool
	spawned      map[string]bus.TaskInfo
}

// NewController builds a Controller that subscribes to stageTopic,
// recognizes only the stages in validStages, and reconciles the task
// set per config. alwaysOn tasks are spawned at Init and kept spawned
// regardless of stage.
func NewController(name, stageTopic string, validStages []Stage, config Config, alwaysOn []string) *Controller {
	valid := make(map[Stage]bool, len(validStages))
	for _, s := range validStages {
		valid[s] = true
	}
	return &Controller{
		info:       bus.NewTaskInfo(name).WithInstaSpawn(),
		stageTopic: stageTopic,
		valid:      valid,
		config:     config,
		alwaysOn:   alwaysOn,
		spawned:    make(map[string]bus.TaskInfo),
	}
}

func (c *Controller) TaskInfo() bus.TaskInfo { return c.info }

// Init subscribes to stageTopic and spawns every always-on task.
func (c *Controller) Init(out bus.Outputs) error {
	sub := stageSubscriptionRecord(c.stageTopic)
	out.Records <- sub

	for _, name := range c.alwaysOn {
		info := bus.NewTaskInfo(name).WithInstaSpawn()
		out.Meta <- bus.MetaMessage{Command: bus.MetaSpawnTask, Task: info}
		c.spawned[name] = info
	}
	return nil
}

func (c *Controller) ShouldRun() bool { return true }

// Run adopts the latest recognized stage from inputs, then
// reconciles desired := config[stage] ∪ alwaysOn against the set of
// currently-spawned-by-this-controller tasks.
func (c *Controller) Run(inputs []*record.Record, out bus.Outputs) error {
	for _, rec := range inputs {
		updates, err := record.ToValues[stageUpdate](rec)
		if err != nil {
			glog.Warningf("stage controller %s: undecodable stage update: %v", c.info.Name, err)
			continue
		}
		for _, u := range updates {
			s := Stage(u.Stage)
			if !c.valid[s] {
				if c.OnUnknownStage != nil {
					c.OnUnknownStage(s)
				} else {
					glog.Warningf("stage controller %s: unrecognized stage %q ignored", c.info.Name, u.Stage)
				}
				continue
			}
			c.currentStage = s
			c.haveStage = true
		}
	}

	if !c.haveStage {
		return nil
	}

	desired := make(map[string]bool)
	for _, n := range c.config[c.currentStage] {
		desired[n] = true
	}
	for _, n := range c.alwaysOn {
		desired[n] = true
	}

	for name := range desired {
		if _, have := c.spawned[name]; !have {
			info := bus.NewTaskInfo(name).WithInstaSpawn()
			out.Meta <- bus.MetaMessage{Command: bus.MetaSpawnTask, Task: info}
			c.spawned[name] = info
		}
	}
	for name, info := range c.spawned {
		if !desired[name] {
			out.Meta <- bus.MetaMessage{Command: bus.MetaKillTask, Task: info}
			delete(c.spawned, name)
		}
	}
	return nil
}

func (c *Controller) Cleanup() error { return nil }

func stageSubscriptionRecord(stageTopic string) *record.Record {
	r, err := record.FromValue(map[string]any{"pattern": stageTopic})
	if err != nil {
		// stageTopic is always a plain string; from_value on a
		// one-field map cannot fail.
		panic(err)
	}
	return r.SetTopic(stageTopic).SetFlag(record.FlagSubscribePacket)
}
