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

package ipc

import (
	"time"

	"github.com/devmem-io/devmem/pkg/common"
)

// The barrier signals are single bytes.  Any received byte completes
// a phase; these are merely the values this end sends.
const (
	producedSignal = 'D'
	consumedSignal = 'A'
)

// Barrier is one endpoint of the two-phase completion protocol that
// rules every allocation's lifetime.  Phase one: the producer arrives
// once all records are published, and the consumer awaits that arrival
// before draining the data channel.  Phase two: the consumer arrives
// once every view is retired, and the producer awaits that arrival
// before freeing any allocation.  Each side arrives exactly once.
type Barrier struct {
	produced *Channel
	consumed *Channel

	producedFired bool
	consumedFired bool
}

// NewBarrier builds the barrier endpoint for one process.  produced
// carries the producer-done signal and consumed the consumer-done
// signal; each process passes the pipe halves its role uses.
func NewBarrier(produced, consumed *Channel) *Barrier {
	return &Barrier{produced: produced, consumed: consumed}
}

// SetDeadline bounds the next blocking operation on either phase
// channel; a zero time removes the bound.
func (b *Barrier) SetDeadline(t time.Time) error {
	if err := b.produced.SetDeadline(t); err != nil {
		return err
	}
	return b.consumed.SetDeadline(t)
}

// ArriveProduced fires the producer-done signal.
func (b *Barrier) ArriveProduced() error {
	if b.producedFired {
		return common.Error(common.KSignalDuplicate,
			"the producer-done signal has already been fired")
	}
	if err := b.produced.Send([]byte{producedSignal}); err != nil {
		return err
	}
	b.producedFired = true
	return nil
}

// AwaitProduced blocks until the producer-done signal arrives.  The
// signal byte's value is not inspected.
func (b *Barrier) AwaitProduced() error {
	var buf [1]byte
	return b.produced.Receive(buf[:])
}

// ArriveConsumed fires the consumer-done signal.
func (b *Barrier) ArriveConsumed() error {
	if b.consumedFired {
		return common.Error(common.KSignalDuplicate,
			"the consumer-done signal has already been fired")
	}
	if err := b.consumed.Send([]byte{consumedSignal}); err != nil {
		return err
	}
	b.consumedFired = true
	return nil
}

// AwaitConsumed blocks until the consumer-done signal arrives.  The
// signal byte's value is not inspected.
func (b *Barrier) AwaitConsumed() error {
	var buf [1]byte
	return b.consumed.Receive(buf[:])
}
