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
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/log"
	"github.com/devmem-io/devmem/pkg/ipc"
)

// Children receive their channels as inherited descriptors; ExtraFiles
// places them right after stderr, in coordinator order.
const (
	childDataFd     = 3
	childProducedFd = 4
	childConsumedFd = 5
)

// Coordinator spawns one producer and one consumer process, wires the
// data channel and the two signal channels between them, and waits for
// both to exit.
type Coordinator struct {
	profile Profile
	log     log.Logger

	// Binary is the program spawned for each role; it defaults to the
	// coordinator's own executable.  Children are invoked as
	// "<binary> <role> 3 4 5" with the profile document in the
	// environment.
	Binary string
}

func NewCoordinator(profile Profile) *Coordinator {
	return &Coordinator{
		profile: profile,
		log:     log.WithValues("pid", os.Getpid(), "role", "coordinator"),
	}
}

// Run drives one full session and returns the first failure of either
// child.
func (co *Coordinator) Run() error {
	if co.Binary == "" {
		binary, err := os.Executable()
		if err != nil {
			return common.Errorf(common.KUserInputError,
				"failed to locate the session binary: %v", err)
		}
		co.Binary = binary
	}
	doc, err := co.profile.Document()
	if err != nil {
		return err
	}

	dataRecv, dataSend, err := ipc.NewPipe()
	if err != nil {
		return err
	}
	producedRecv, producedSend, err := ipc.NewPipe()
	if err != nil {
		return err
	}
	consumedRecv, consumedSend, err := ipc.NewPipe()
	if err != nil {
		return err
	}
	parentEnds := []*ipc.Channel{
		dataRecv, dataSend, producedRecv, producedSend, consumedRecv, consumedSend,
	}

	producer := co.command(RoleProducer, doc,
		dataSend.File(), producedSend.File(), consumedRecv.File())
	consumer := co.command(RoleConsumer, doc,
		dataRecv.File(), producedRecv.File(), consumedSend.File())

	if err := producer.Start(); err != nil {
		closeAll(parentEnds)
		return common.Errorf(common.KSessionAborted,
			"failed to start the producer process: %v", err)
	}
	if err := consumer.Start(); err != nil {
		closeAll(parentEnds)
		_ = producer.Process.Kill()
		_ = producer.Wait()
		return common.Errorf(common.KSessionAborted,
			"failed to start the consumer process: %v", err)
	}
	co.log.Info("session started",
		"version", common.DEVMEM_VERSION_STRING,
		"records", co.profile.Records,
		"producer_pid", producer.Process.Pid,
		"consumer_pid", consumer.Process.Pid)

	// Each pipe end must live only in the child that uses it, so that a
	// dying child turns into EOF on its peer instead of a deadlock.
	closeAll(parentEnds)

	producerErr := waitRole(producer, RoleProducer)
	consumerErr := waitRole(consumer, RoleConsumer)
	if producerErr != nil {
		return producerErr
	}
	if consumerErr != nil {
		return consumerErr
	}
	co.log.Info("session complete")
	return nil
}

func (co *Coordinator) command(role Role, doc string, files ...*os.File) *exec.Cmd {
	cmd := exec.Command(co.Binary,
		string(role),
		strconv.Itoa(childDataFd),
		strconv.Itoa(childProducedFd),
		strconv.Itoa(childConsumedFd))
	cmd.Env = append(os.Environ(), ProfileEnv+"="+doc)
	cmd.ExtraFiles = files
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func waitRole(cmd *exec.Cmd, role Role) error {
	if err := cmd.Wait(); err != nil {
		return common.Errorf(common.KSessionAborted,
			"%s process failed: %v", role, err)
	}
	return nil
}

func closeAll(channels []*ipc.Channel) {
	for _, ch := range channels {
		_ = ch.Close()
	}
}

// RunRole is the child-side entry point: it loads the profile from the
// environment, adopts the inherited descriptors and drives the named
// role to completion.
func RunRole(role Role, dataFd, producedFd, consumedFd int) error {
	profile, err := LoadProfile("")
	if err != nil {
		return err
	}
	log.SetLogLevel(profile.LogLevel)

	data, err := adoptChannel(dataFd, "data")
	if err != nil {
		return err
	}
	defer data.Close()
	produced, err := adoptChannel(producedFd, "produced")
	if err != nil {
		return err
	}
	defer produced.Close()
	consumed, err := adoptChannel(consumedFd, "consumed")
	if err != nil {
		return err
	}
	defer consumed.Close()

	switch role {
	case RoleProducer:
		return RunProducer(profile, data, produced, consumed)
	case RoleConsumer:
		return RunConsumer(profile, data, produced, consumed)
	default:
		return common.Errorf(common.KUserInputError, "unknown role %q", role)
	}
}

// adoptChannel wraps an inherited descriptor.  Descriptors arrive in
// blocking mode; the runtime poller needs them nonblocking for
// deadlines to take effect.
func adoptChannel(fd int, name string) (*ipc.Channel, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, common.Errorf(common.KIOError,
			"failed to adopt descriptor %d as the %s channel: %v", fd, name, err)
	}
	return ipc.NewChannel(os.NewFile(uintptr(fd), name)), nil
}
