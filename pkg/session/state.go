/** Copyright 2025-2026 The devmem Authors.

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

// Package session drives one cross-process transfer: a producer that
// allocates, exports and publishes device segments, a consumer that
// resolves the published handles into local views, and a coordinator
// that spawns both roles and wires their pipes.
package session

// Role names the two session processes.
type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
)

// State names the phase a role is in.  Each role walks a fixed
// progression; the transfer protocol is the only thing that moves a
// role forward.
type State int32

const (
	StateInit State = iota

	// Producer phases.
	StateAllocating
	StateExporting
	StatePublishing
	StateAllSent
	StateAwaitingConsumerDone

	// Consumer phases.
	StateAwaitingProducerDone
	StateReceivingIndex
	StateReceivingHandle
	StateResolving
	StateViewing
	StateAllReceived
	StateSignalingDone

	StateDone
)

var stateNames = map[State]string{
	StateInit:                 "Init",
	StateAllocating:           "Allocating",
	StateExporting:            "Exporting",
	StatePublishing:           "Publishing",
	StateAllSent:              "AllSent",
	StateAwaitingConsumerDone: "AwaitingConsumerDone",
	StateAwaitingProducerDone: "AwaitingProducerDone",
	StateReceivingIndex:       "ReceivingIndex",
	StateReceivingHandle:      "ReceivingHandle",
	StateResolving:            "Resolving",
	StateViewing:              "Viewing",
	StateAllReceived:          "AllReceived",
	StateSignalingDone:        "SignalingDone",
	StateDone:                 "Done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}
