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

package session

import (
	"os"
	"sync/atomic"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/log"
	"github.com/devmem-io/devmem/pkg/common/types"
	"github.com/devmem-io/devmem/pkg/device"
	"github.com/devmem-io/devmem/pkg/ds/basic/arrow"
	"github.com/devmem-io/devmem/pkg/ipc"
)

// Consumer owns the resolving side of a session.  It waits for the
// producer-done signal, drains the expected number of records from the
// data channel, resolves every handle into a local view, verifies the
// payloads, then retires all views and fires the consumer-done signal.
type Consumer struct {
	profile Profile
	ctx     *device.Context
	data    *ipc.Channel
	barrier *ipc.Barrier
	log     log.Logger

	views    *Registry[*arrow.Int32Array]
	state    atomic.Int32
	received atomic.Int32
}

func NewConsumer(
	profile Profile, ctx *device.Context, data *ipc.Channel, barrier *ipc.Barrier,
) *Consumer {
	return &Consumer{
		profile: profile,
		ctx:     ctx,
		data:    data,
		barrier: barrier,
		log:     log.WithValues("pid", os.Getpid(), "role", RoleConsumer),
		views:   NewRegistry[*arrow.Int32Array](),
	}
}

// State reports the phase the consumer is in.
func (c *Consumer) State() State {
	return State(c.state.Load())
}

// Received reports how many records have been resolved into views so
// far.
func (c *Consumer) Received() int32 {
	return c.received.Load()
}

// Views reports how many resolved views are still held.
func (c *Consumer) Views() int {
	return c.views.Live()
}

func (c *Consumer) setState(s State) {
	c.state.Store(int32(s))
	c.log.V(2).Info("state", "state", s.String())
}

// Run drives the consumer to completion: await the produced phase,
// drain every record, verify the payloads, retire every view, then
// arrive at the consumed phase.
func (c *Consumer) Run() error {
	c.setState(StateAwaitingProducerDone)
	if err := c.profile.armDeadline(c.barrier); err != nil {
		return err
	}
	if err := c.barrier.AwaitProduced(); err != nil {
		c.log.Error(err, "failed waiting for the producer-done signal")
		return err
	}
	c.log.Info("producer finished publishing",
		"records", c.profile.Records,
		"elements", c.profile.Elements)

	for c.received.Load() < int32(c.profile.Records) {
		if err := c.receive(); err != nil {
			c.log.Error(err, "failed to receive record", "index", c.received.Load()+1)
			return err
		}
	}

	c.setState(StateAllReceived)
	if err := c.verify(); err != nil {
		c.log.Error(err, "payload verification failed")
		return err
	}

	// Every view is retired before the consumer-done signal fires; the
	// producer frees the backing segments as soon as it sees it.
	c.setState(StateSignalingDone)
	for _, view := range c.views.Drain() {
		if err := view.Release(); err != nil {
			c.log.Error(err, "failed to release view", "index", view.Record.Index)
			return err
		}
	}
	if err := c.profile.armDeadline(c.barrier); err != nil {
		return err
	}
	if err := c.barrier.ArriveConsumed(); err != nil {
		c.log.Error(err, "failed to fire the consumer-done signal")
		return err
	}

	c.setState(StateDone)
	c.log.Info("transfer complete", "received", c.Received())
	return nil
}

func (c *Consumer) receive() error {
	c.setState(StateReceivingIndex)
	if err := c.profile.armDeadline(c.data); err != nil {
		return err
	}
	index, err := ipc.ReadIndex(c.data)
	if err != nil {
		return err
	}
	if expected := c.received.Load() + 1; index != expected {
		return common.Errorf(common.KBadRecord,
			"received record %d, expected %d", index, expected)
	}

	c.setState(StateReceivingHandle)
	handle, err := ipc.ReadHandle(c.data)
	if err != nil {
		return err
	}
	c.log.V(1).Info("received record", "index", index, "handle", handle.String())

	c.setState(StateResolving)
	view := &arrow.Int32Array{}
	if err := view.Construct(c.ctx, types.TransferRecord{Index: index, Handle: handle}); err != nil {
		return err
	}

	c.setState(StateViewing)
	if err := c.views.Register(index, view); err != nil {
		_ = view.Release()
		return err
	}
	c.received.Add(1)
	c.log.V(1).Info("resolved view", "index", index, "values", view.Int32Values())
	return nil
}

// verify checks every resolved view against the payload the profile
// prescribes for its index, then assembles the columnar summary.
func (c *Consumer) verify() error {
	views := c.views.Items()
	for _, view := range views {
		want := c.profile.PayloadOf(view.Record.Index)
		if int(view.Length) != len(want) {
			return common.Errorf(common.KAssertionFailed,
				"record %d carries %d elements, expected %d",
				view.Record.Index, view.Length, len(want))
		}
		for k, value := range want {
			if got := view.Value(k); got != value {
				return common.Errorf(common.KAssertionFailed,
					"record %d element %d is %d, expected %d",
					view.Record.Index, k, got, value)
			}
		}
	}

	frame, err := arrow.BuildFrame(views, c.profile.Elements)
	if err != nil {
		return err
	}
	defer frame.Release()
	c.log.Info("verified transfer",
		"rows", frame.NumRows(),
		"columns", frame.NumCols())
	return nil
}

// RunConsumer opens a device context for the profile and drives a
// consumer over the given channels.
func RunConsumer(profile Profile, data, produced, consumed *ipc.Channel) error {
	ctx, err := device.Open(device.Options{
		Ordinal:  profile.Ordinal,
		ArenaDir: profile.ArenaDir,
	})
	if err != nil {
		return err
	}
	defer ctx.Close()
	return NewConsumer(profile, ctx, data, ipc.NewBarrier(produced, consumed)).Run()
}
