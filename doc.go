// Package posixmq is a pure go implementation of posix message queues for
// Linux, using syscalls.
//
// The purpose of this package is to provide a safe, pure go (no cgo) wrapper
// on 64-bit Linux systems around the kernel's named message queue facility
// (see mq_overview(7)): validated queue names, typed errors instead of raw
// errnos, and deterministic, exactly-once release of the queue descriptor.
//
// It does NOT have supports for:
//
// - Non-64-bit systems (e.g. 32-bit Linux)
// - mq_notify
// - Message batching or framing of any kind
//
// On non-Linux systems the package compiles against a channel-backed
// in-memory implementation (MockQueue) so that code depending on it can
// still be developed and tested; it is not an emulation of the kernel
// facility.
package posixmq
