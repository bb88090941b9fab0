/*
Copyright 2018 The Kubernetes Authors.
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

package log

import (
	"sync"

	"github.com/go-logr/logr"
)

// DelegatingLogSink is a logr.LogSink that forwards every call to an
// underlying sink which can be swapped at runtime with Fulfill.  Sinks
// derived with WithName or WithValues remember how they were derived,
// so a later Fulfill on the root re-derives them from the new base and
// the swap reaches every logger in the process.
type DelegatingLogSink struct {
	lock sync.RWMutex
	base logr.LogSink
	info logr.RuntimeInfo

	name string
	tags []any

	children []*DelegatingLogSink
}

// Init implements logr.LogSink.
func (l *DelegatingLogSink) Init(info logr.RuntimeInfo) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.info = info
}

// Enabled tests whether this Logger is enabled.  For example, commandline
// flags might be used to set the logging verbosity and disable some info
// logs.
func (l *DelegatingLogSink) Enabled(level int) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.base.Enabled(level)
}

// Info logs a non-error message with the given key/value pairs as context.
func (l *DelegatingLogSink) Info(level int, msg string, keysAndValues ...any) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	l.base.Info(level, msg, keysAndValues...)
}

// Error logs an error, with the given message and key/value pairs as context.
func (l *DelegatingLogSink) Error(err error, msg string, keysAndValues ...any) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	l.base.Error(err, msg, keysAndValues...)
}

// WithName provides a new LogSink with the name appended.
func (l *DelegatingLogSink) WithName(name string) logr.LogSink {
	l.lock.Lock()
	defer l.lock.Unlock()

	child := &DelegatingLogSink{base: l.base.WithName(name), name: name}
	l.children = append(l.children, child)
	return child
}

// WithValues provides a new LogSink with the tags appended.
func (l *DelegatingLogSink) WithValues(tags ...any) logr.LogSink {
	l.lock.Lock()
	defer l.lock.Unlock()

	child := &DelegatingLogSink{base: l.base.WithValues(tags...), tags: tags}
	l.children = append(l.children, child)
	return child
}

// Fulfill switches the sink over to the actual sink provided and
// re-derives every child created before the switch.
func (l *DelegatingLogSink) Fulfill(actual logr.LogSink) {
	l.lock.Lock()
	l.base = actual
	if withDepth, ok := actual.(logr.CallDepthLogSink); ok {
		l.base = withDepth.WithCallDepth(1)
	}
	children := l.children
	l.lock.Unlock()

	for _, child := range children {
		derived := actual
		if child.name != "" {
			derived = derived.WithName(child.name)
		}
		if child.tags != nil {
			derived = derived.WithValues(child.tags...)
		}
		child.Fulfill(derived)
	}
}

// NewDelegatingLogSink constructs a new DelegatingLogSink which uses
// the given sink until Fulfill is called.
func NewDelegatingLogSink(initial logr.LogSink) *DelegatingLogSink {
	sink := &DelegatingLogSink{base: initial}
	if withDepth, ok := initial.(logr.CallDepthLogSink); ok {
		sink.base = withDepth.WithCallDepth(1)
	}
	return sink
}
