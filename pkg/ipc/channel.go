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

// Package ipc implements the byte channels, the record codec and the
// completion barrier that connect the two session processes.
package ipc

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/devmem-io/devmem/pkg/common"
)

// Channel is one direction of a pipe between the session processes.
// Send and Receive transfer exactly the requested byte count or fail;
// the stream carries no framing, so a short transfer is fatal for the
// channel.
type Channel struct {
	file *os.File
}

func NewChannel(file *os.File) *Channel {
	return &Channel{file: file}
}

// NewPipe returns the receive and send halves of a fresh pipe.
func NewPipe() (*Channel, *Channel, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, common.Errorf(common.KIOError, "failed to create pipe: %v", err)
	}
	return NewChannel(r), NewChannel(w), nil
}

// Name returns the underlying file's name for diagnostics.
func (c *Channel) Name() string {
	return c.file.Name()
}

// File exposes the underlying descriptor for handing the channel to a
// child process.
func (c *Channel) File() *os.File {
	return c.file
}

// SetDeadline bounds every following Send and Receive; a zero time
// removes the bound.  Descriptors that do not support deadlines leave
// the channel unbounded.
func (c *Channel) SetDeadline(t time.Time) error {
	if err := c.file.SetDeadline(t); err != nil {
		if errors.Is(err, os.ErrNoDeadline) {
			return nil
		}
		return common.Errorf(common.KIOError,
			"failed to set a deadline on channel %s: %v", c.Name(), err)
	}
	return nil
}

// Send writes the whole of data to the channel.
func (c *Channel) Send(data []byte) error {
	offset := 0
	for offset < len(data) {
		n, err := c.file.Write(data[offset:])
		offset += n
		if err == nil {
			continue
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return common.Errorf(common.KIOError,
				"timed out sending on channel %s: %v", c.Name(), err)
		}
		if offset > 0 {
			return common.Errorf(common.KShortWrite,
				"wrote %d of %d bytes on channel %s: %v", offset, len(data), c.Name(), err)
		}
		if errors.Is(err, unix.EPIPE) || errors.Is(err, os.ErrClosed) {
			return common.Errorf(common.KChannelClosed,
				"channel %s closed while sending: %v", c.Name(), err)
		}
		return common.Errorf(common.KIOError,
			"failed to send on channel %s: %v", c.Name(), err)
	}
	return nil
}

// Receive fills p, reading exactly len(p) bytes from the channel.
func (c *Channel) Receive(p []byte) error {
	offset := 0
	for offset < len(p) {
		n, err := c.file.Read(p[offset:])
		offset += n
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if offset == 0 {
				return common.Errorf(common.KChannelClosed,
					"channel %s closed by peer", c.Name())
			}
			return common.Errorf(common.KShortRead,
				"read %d of %d bytes on channel %s before it closed",
				offset, len(p), c.Name())
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return common.Errorf(common.KIOError,
				"timed out receiving on channel %s: %v", c.Name(), err)
		}
		return common.Errorf(common.KIOError,
			"failed to receive on channel %s: %v", c.Name(), err)
	}
	return nil
}

// Close closes the underlying descriptor.  Closing twice is tolerated.
func (c *Channel) Close() error {
	if err := c.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return common.Errorf(common.KIOError,
			"failed to close channel %s: %v", c.Name(), err)
	}
	return nil
}
