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

	"github.com/devmem-io/devmem/pkg/common/log"
	"github.com/devmem-io/devmem/pkg/common/types"
	"github.com/devmem-io/devmem/pkg/device"
	"github.com/devmem-io/devmem/pkg/ipc"
)

// Producer owns the allocating side of a session.  For every record it
// allocates a segment, populates the payload, synchronizes, exports the
// handle and publishes it on the data channel.  Every allocation stays
// registered and live until the consumer-done signal arrives; only then
// are they freed.
type Producer struct {
	profile Profile
	ctx     *device.Context
	data    *ipc.Channel
	barrier *ipc.Barrier
	log     log.Logger

	registry  *Registry[*device.Allocation]
	state     atomic.Int32
	published atomic.Int32

	// BeforePublish, when set, runs before each record is written to
	// the data channel; an error aborts the session at that record.
	BeforePublish func(index int32) error
}

func NewProducer(
	profile Profile, ctx *device.Context, data *ipc.Channel, barrier *ipc.Barrier,
) *Producer {
	return &Producer{
		profile:  profile,
		ctx:      ctx,
		data:     data,
		barrier:  barrier,
		log:      log.WithValues("pid", os.Getpid(), "role", RoleProducer),
		registry: NewRegistry[*device.Allocation](),
	}
}

// State reports the phase the producer is in.
func (p *Producer) State() State {
	return State(p.state.Load())
}

// Published reports how many records have been written to the data
// channel so far.
func (p *Producer) Published() int32 {
	return p.published.Load()
}

// Live reports how many published allocations are still held.
func (p *Producer) Live() int {
	return p.registry.Live()
}

func (p *Producer) setState(s State) {
	p.state.Store(int32(s))
	p.log.V(2).Info("state", "state", s.String())
}

// Run drives the producer to completion: publish every record, arrive
// at the produced phase, await the consumed phase, then free every
// allocation.
func (p *Producer) Run() error {
	p.log.Info("starting transfer",
		"records", p.profile.Records,
		"elements", p.profile.Elements,
		"arena", types.ArenaTokenToString(p.ctx.Token()))

	for i := 1; i <= p.profile.Records; i++ {
		if err := p.publish(int32(i)); err != nil {
			p.log.Error(err, "failed to publish record", "index", i)
			return err
		}
	}

	p.setState(StateAllSent)
	if err := p.profile.armDeadline(p.barrier); err != nil {
		return err
	}
	if err := p.barrier.ArriveProduced(); err != nil {
		p.log.Error(err, "failed to fire the producer-done signal")
		return err
	}

	p.setState(StateAwaitingConsumerDone)
	if err := p.profile.armDeadline(p.barrier); err != nil {
		return err
	}
	if err := p.barrier.AwaitConsumed(); err != nil {
		p.log.Error(err, "failed waiting for the consumer-done signal")
		return err
	}

	// The consumer has retired every view; allocations may go now.
	for _, alloc := range p.registry.Drain() {
		if err := p.ctx.Free(alloc); err != nil {
			p.log.Error(err, "failed to free allocation",
				"segment", types.SegmentIDToString(alloc.Segment()))
			return err
		}
	}

	p.setState(StateDone)
	p.log.Info("transfer complete", "published", p.Published())
	return nil
}

func (p *Producer) publish(index int32) error {
	p.setState(StateAllocating)
	alloc, err := p.ctx.Allocate(p.profile.PayloadBytes())
	if err != nil {
		return err
	}
	if err := p.registry.Register(index, alloc); err != nil {
		return err
	}
	if err := device.WriteValues(alloc, 0, p.profile.PayloadOf(index)); err != nil {
		return err
	}
	if err := p.ctx.Synchronize(); err != nil {
		return err
	}

	p.setState(StateExporting)
	handle, err := p.ctx.Export(alloc)
	if err != nil {
		return err
	}

	p.setState(StatePublishing)
	if p.BeforePublish != nil {
		if err := p.BeforePublish(index); err != nil {
			return err
		}
	}
	if err := p.profile.armDeadline(p.data); err != nil {
		return err
	}
	if err := ipc.WriteRecord(p.data, types.TransferRecord{Index: index, Handle: handle}); err != nil {
		return err
	}
	p.published.Add(1)
	p.log.V(1).Info("published record", "index", index, "handle", handle.String())
	return nil
}

// RunProducer opens a device context for the profile and drives a
// producer over the given channels.
func RunProducer(profile Profile, data, produced, consumed *ipc.Channel) error {
	ctx, err := device.Open(device.Options{
		Ordinal:  profile.Ordinal,
		ArenaDir: profile.ArenaDir,
	})
	if err != nil {
		return err
	}
	defer ctx.Close()
	return NewProducer(profile, ctx, data, ipc.NewBarrier(produced, consumed)).Run()
}
