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

package adapter

import (
	"bytes"
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	"github.com/golang/glog"
)

// PubSubSource adapts a Cloud Pub/Sub subscription into a
// TelemetryBridge SourceFunc, for deployments where a real transport
// (e.g. a MAVLink-to-Pub/Sub bridge process) publishes telemetry
// externally rather than hivebus generating it locally. Grounded on
// agent/workprocessor.go's WorkProcessor.processMessage (JSON-decode
// the message body, Ack on success or on a non-recoverable decode
// error), adapted from a push-style handler into a pull-one-at-a-time
// SourceFunc since TelemetryBridge drives its own read loop.
type PubSubSource struct {
	sub *pubsub.Subscription
	out chan Sample
}

// NewPubSubSource starts receiving from sub in the background and
// returns a PubSubSource whose Source method yields one decoded Sample
// per call.
func NewPubSubSource(ctx context.Context, sub *pubsub.Subscription) *PubSubSource {
	s := &PubSubSource{sub: sub, out: make(chan Sample, bufferCapacity)}
	go func() {
		err := sub.Receive(ctx, s.handle)
		if err != nil && ctx.Err() == nil {
			glog.Warningf("pubsub source: Receive exited: %v", err)
		}
	}()
	return s
}

func (s *PubSubSource) handle(ctx context.Context, msg *pubsub.Message) {
	var sample Sample
	decoder := json.NewDecoder(bytes.NewReader(msg.Data))
	decoder.UseNumber()
	if err := decoder.Decode(&sample); err != nil {
		glog.Errorf("pubsub source: undecodable message, acking to avoid redelivery: %v", err)
		msg.Ack()
		return
	}
	select {
	case s.out <- sample:
		msg.Ack()
	case <-ctx.Done():
		msg.Nack()
	}
}

// Source returns the SourceFunc a TelemetryBridge can be built with.
func (s *PubSubSource) Source() SourceFunc {
	return func(ctx context.Context) (Sample, error) {
		select {
		case sample := <-s.out:
			return sample, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
