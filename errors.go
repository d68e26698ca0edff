// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import "fmt"

// MissingHandlerError is raised when Perform reaches the bottom of the
// handler stack without finding a handler that accepts the operation.
type MissingHandlerError struct {
	Op   Operation
	Site siteInfo
}

func (e *MissingHandlerError) Error() string {
	if e.Site.File == "" {
		return fmt.Sprintf("doeffvm: no handler for operation %T", e.Op)
	}
	return fmt.Sprintf("doeffvm: no handler for operation %T (performed at %s)", e.Op, e.Site)
}

// MissingEnvKeyError is raised by the environment/config effect handlers
// when a requested key has no value and no default was supplied.
type MissingEnvKeyError struct {
	Key string
}

func (e *MissingEnvKeyError) Error() string {
	return fmt.Sprintf("doeffvm: missing environment key %q", e.Key)
}

// HandlerContractError is raised when a handler violates the dispatch
// contract: it reports handled=true but returns a Program with a nil
// Frame, which dispatch cannot continue from (dispatch.go).
type HandlerContractError struct {
	Handler string
	Reason  string
}

func (e *HandlerContractError) Error() string {
	return fmt.Sprintf("doeffvm: handler %s violated its contract: %s", e.Handler, e.Reason)
}

// TaskCancelledError is the error a task's Wait/Gather observes when it was
// cancelled before completing.
type TaskCancelledError struct {
	TaskID string
}

func (e *TaskCancelledError) Error() string {
	return fmt.Sprintf("doeffvm: task %s cancelled", e.TaskID)
}

// SemaphoreReleaseError is raised when Release is called more times than
// Acquire, and when CreateSemaphore is given fewer than one permit.
type SemaphoreReleaseError struct {
	Reason string
}

func (e *SemaphoreReleaseError) Error() string {
	return "doeffvm: semaphore release error: " + e.Reason
}

// CacheMiss reports that a cache key has no stored value. [CacheHandler]
// reports a miss through CacheResult.Found instead, and neither kontcache
// backend returns CacheMiss.
type CacheMiss struct {
	Key string
}

func (e *CacheMiss) Error() string {
	return fmt.Sprintf("doeffvm: cache miss for key %q", e.Key)
}

// CacheCorrupt reports a stored cache value that could not be decoded.
// kontcache's Redis backend reports a decode failure with its own error
// value rather than this type.
type CacheCorrupt struct {
	Key string
	Err error
}

func (e *CacheCorrupt) Error() string {
	return fmt.Sprintf("doeffvm: corrupt cache entry for key %q: %v", e.Key, e.Err)
}

func (e *CacheCorrupt) Unwrap() error { return e.Err }

// Failure wraps a user-supplied error raised via Fail, keeping it distinct
// from errors the runtime itself raises.
type Failure struct {
	Err error
}

func (e *Failure) Error() string { return e.Err.Error() }

func (e *Failure) Unwrap() error { return e.Err }
