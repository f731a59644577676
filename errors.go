package posixmq

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Sentinel errors translated from the facility's errnos.
//
// Every fallible operation in this package returns either one of these, one
// of the typed errors below, or a SyscallError wrapping the raw errno for
// conditions not otherwise distinguished. Raw errnos never escape this
// package in any other form.
var (
	// ErrAlreadyExists is returned by Create when a queue with the given
	// name already exists (EEXIST).
	ErrAlreadyExists = errors.New("posixmq: queue already exists")

	// ErrNotFound is returned by Open and Unlink when no queue with the
	// given name exists (ENOENT).
	ErrNotFound = errors.New("posixmq: queue not found")

	// ErrPermissionDenied is returned when the caller lacks permission on
	// the queue or its name (EACCES).
	ErrPermissionDenied = errors.New("posixmq: permission denied")

	// ErrWouldBlock is returned by Send and Receive on a non-blocking
	// queue that is full or empty, respectively (EAGAIN).
	ErrWouldBlock = errors.New("posixmq: operation would block")

	// ErrInterrupted is returned when a signal aborted a blocking Send or
	// Receive (EINTR). The operation did not happen and may be retried by
	// the caller; this package never retries on its own.
	ErrInterrupted = errors.New("posixmq: interrupted by signal")
)

// InvalidNameError is the error returned by NewName when the raw string
// violates the facility's naming rules. It is produced before any syscall.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("posixmq: invalid queue name %q: %s", e.Name, e.Reason)
}

// InvalidAttributesError is the error returned by the creating open modes
// when the requested attributes are non-positive or exceed the limits the
// system imposes, and by SetNonBlocking when the kernel rejects the change.
//
// On linux systems Cause wraps syscall.EINVAL when the rejection came from
// the kernel; it is nil when this package rejected the values before the
// syscall.
type InvalidAttributesError struct {
	Attributes Attributes
	Reason     string
	Cause      error
}

func (e *InvalidAttributesError) Error() string {
	var sb strings.Builder
	sb.WriteString("posixmq: invalid queue attributes")
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error, if any.
func (e *InvalidAttributesError) Unwrap() error {
	return e.Cause
}

// MessageTooLargeError is the error returned by Send when the payload is
// larger than the queue's max message size.
//
// It is usually produced by the pre-check against the attributes cached at
// open time, in which case Cause is nil; when it comes from the kernel
// instead, Cause wraps syscall.EMSGSIZE.
type MessageTooLargeError struct {
	MessageSize int
	MaxSize     int
	Cause       error
}

func (e *MessageTooLargeError) Error() string {
	var sb strings.Builder
	sb.WriteString("posixmq: message too large")
	if e.MaxSize != 0 {
		sb.WriteString(fmt.Sprintf(" (%d > %d)", e.MessageSize, e.MaxSize))
	} else {
		sb.WriteString(fmt.Sprintf(" (%d)", e.MessageSize))
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error, if any.
func (e *MessageTooLargeError) Unwrap() error {
	return e.Cause
}

// PriorityOutOfRangeError is the error returned by Send when the message
// priority exceeds MaxPriority. It is produced before the syscall, so that
// it is never conflated with the EINVAL the kernel would report.
type PriorityOutOfRangeError struct {
	Priority uint
	Max      uint
}

func (e *PriorityOutOfRangeError) Error() string {
	return fmt.Sprintf("posixmq: priority %d out of range (max %d)", e.Priority, e.Max)
}

// TimedOutError is the error returned by SendContext and ReceiveContext
// when the context deadline expired before the operation could complete.
//
// On linux systems it wraps either syscall.ETIMEDOUT or
// context.DeadlineExceeded; with MockQueue it wraps
// context.DeadlineExceeded.
type TimedOutError struct {
	Cause error
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("posixmq: operation timed out: %v", e.Cause)
}

// Unwrap returns the underlying error.
func (e *TimedOutError) Unwrap() error {
	return e.Cause
}

// SyscallError is the catch-all for kernel failures this package does not
// map to a more specific error. It carries the operation and the raw errno.
type SyscallError struct {
	Op    string
	Errno syscall.Errno
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("posixmq: %s failed: %v", e.Op, e.Errno)
}

// Unwrap returns the raw errno, so errors.Is still matches against
// syscall.Errno values.
func (e *SyscallError) Unwrap() error {
	return e.Errno
}
