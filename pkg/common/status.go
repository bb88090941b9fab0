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

package common

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	KOK              = 0
	KInvalid         = 1
	KTypeError       = 2
	KIOError         = 3
	KAssertionFailed = 4
	KUserInputError  = 5

	KShortRead     = 11
	KShortWrite    = 12
	KChannelClosed = 13
	KBadRecord     = 14

	KAllocationFailed   = 21
	KNotEnoughMemory    = 22
	KAllocationSealed   = 23
	KAllocationNotFound = 24
	KAllocationFreed    = 25

	KHandleExport        = 31
	KHandleResolve       = 32
	KIncompatibleContext = 33
	KStaleHandle         = 34
	KDigestMismatch      = 35
	KSizeMismatch        = 36

	KSessionAborted  = 41
	KSignalDuplicate = 42

	KUnknownError = 255
)

var ErrCodes map[int]string

func init() {
	ErrCodes = make(map[int]string)

	ErrCodes[KOK] = "OK"
	ErrCodes[KInvalid] = "Invalid"
	ErrCodes[KTypeError] = "TypeError"
	ErrCodes[KIOError] = "IOError"
	ErrCodes[KAssertionFailed] = "AssertionFailed"
	ErrCodes[KUserInputError] = "UserInputError"
	ErrCodes[KShortRead] = "ShortRead"
	ErrCodes[KShortWrite] = "ShortWrite"
	ErrCodes[KChannelClosed] = "ChannelClosed"
	ErrCodes[KBadRecord] = "BadRecord"
	ErrCodes[KAllocationFailed] = "AllocationFailed"
	ErrCodes[KNotEnoughMemory] = "NotEnoughMemory"
	ErrCodes[KAllocationSealed] = "AllocationSealed"
	ErrCodes[KAllocationNotFound] = "AllocationNotFound"
	ErrCodes[KAllocationFreed] = "AllocationFreed"
	ErrCodes[KHandleExport] = "HandleExportFailed"
	ErrCodes[KHandleResolve] = "HandleResolveFailed"
	ErrCodes[KIncompatibleContext] = "IncompatibleContext"
	ErrCodes[KStaleHandle] = "StaleHandle"
	ErrCodes[KDigestMismatch] = "DigestMismatch"
	ErrCodes[KSizeMismatch] = "SizeMismatch"
	ErrCodes[KSessionAborted] = "SessionAborted"
	ErrCodes[KSignalDuplicate] = "SignalDuplicate"
	ErrCodes[KUnknownError] = "UnknownError"
}

type Status struct {
	Code    int
	Message string
}

func (r *Status) Error() string {
	m := "UnknownError"
	if k, ok := ErrCodes[r.Code]; ok {
		m = k
	}
	return fmt.Sprintf("code: %v, message: %v: %+v", r.Code, m, r.Message)
}

func (r *Status) Wrap() error {
	return errors.WithStack(r)
}

func Error(code int, message string) error {
	err := &Status{code, message}
	return err.Wrap()
}

func Errorf(code int, format string, args ...any) error {
	return Error(code, fmt.Sprintf(format, args...))
}

// CodeOf unwraps err down to its Status code, or KUnknownError for errors
// minted outside this package.
func CodeOf(err error) int {
	var status *Status
	if errors.As(err, &status) {
		return status.Code
	}
	return KUnknownError
}

// The four predicate groups mirror the session error taxonomy: transport,
// allocation, handle export and handle resolve. A role treats every one of
// them as fatal; the groups exist for diagnostics and tests.

func IsTransportError(err error) bool {
	switch CodeOf(err) {
	case KIOError, KShortRead, KShortWrite, KChannelClosed, KBadRecord:
		return true
	}
	return false
}

func IsAllocationError(err error) bool {
	switch CodeOf(err) {
	case KAllocationFailed, KNotEnoughMemory, KAllocationSealed,
		KAllocationNotFound, KAllocationFreed:
		return true
	}
	return false
}

func IsHandleExportError(err error) bool {
	return CodeOf(err) == KHandleExport
}

func IsHandleResolveError(err error) bool {
	switch CodeOf(err) {
	case KHandleResolve, KIncompatibleContext, KStaleHandle,
		KDigestMismatch, KSizeMismatch:
		return true
	}
	return false
}

func ShortRead(want, got int) error {
	return Errorf(KShortRead, "read %d bytes, want %d", got, want)
}

func ShortWrite(want, got int) error {
	return Errorf(KShortWrite, "wrote %d bytes, want %d", got, want)
}
