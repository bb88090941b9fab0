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

// Command devmem runs one cross-process device memory transfer.  With
// no role arguments it acts as the coordinator, spawning itself once
// as the producer and once as the consumer.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/devmem-io/devmem/pkg/common/log"
	"github.com/devmem-io/devmem/pkg/session"
)

const usage = `usage:
  devmem [profile.json]
      run a full session: spawn a producer and a consumer and wait
  devmem <role> <data fd> <produced fd> <consumed fd>
      run one role ("producer" or "consumer") over inherited descriptors`

func main() {
	args := os.Args[1:]
	switch len(args) {
	case 0, 1:
		runCoordinator(args)
	case 4:
		runRole(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func runCoordinator(args []string) {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	profile, err := session.LoadProfile(path)
	if err != nil {
		log.Fatal(err, "failed to load the session profile")
	}
	log.SetLogLevel(profile.LogLevel)
	if err := session.NewCoordinator(profile).Run(); err != nil {
		log.Fatal(err, "session failed")
	}
}

func runRole(args []string) {
	role := session.Role(args[0])
	fds := make([]int, 3)
	for i, arg := range args[1:] {
		fd, err := strconv.Atoi(arg)
		if err != nil {
			log.Fatal(err, "invalid descriptor argument", "arg", arg)
		}
		fds[i] = fd
	}
	if err := session.RunRole(role, fds[0], fds[1], fds[2]); err != nil {
		log.Fatal(err, "session role failed", "role", string(role))
	}
}
