package posixmq

import (
	"context"
	"io"

	"github.com/aprilabank/posixmq/log"
)

// QueueOpenMode is the permission mode used when creating queues (owner
// read/write only).
//
// On Linux the queue shows up under /dev/mqueue, where the owner can adjust
// permissions afterwards if needed.
const QueueOpenMode = 0600

// Queue is an open handle to a posix message queue.
//
// A Queue owns exactly one queue descriptor. It is released by Close, which
// is idempotent; after Close every other operation fails. A Queue must not
// be used for concurrent Send/Receive from multiple goroutines without
// external synchronization: each goroutine should open its own handle to
// the same name instead, and let the kernel serialize them.
type Queue interface {
	io.Closer

	// Send enqueues the message atomically: it is either fully enqueued or
	// not at all.
	//
	// When the queue is full, Send suspends the caller in blocking mode
	// and fails with ErrWouldBlock in non-blocking mode. A signal aborting
	// the wait surfaces as ErrInterrupted; oversized payloads and
	// priorities above MaxPriority fail with MessageTooLargeError and
	// PriorityOutOfRangeError respectively, before the syscall when
	// knowable.
	Send(msg *Message) error

	// Receive dequeues the highest-priority message, oldest first within
	// a priority level, with its original priority intact.
	//
	// When the queue is empty, Receive suspends the caller in blocking
	// mode and fails with ErrWouldBlock in non-blocking mode.
	Receive() (*Message, error)

	// SendContext is Send with a bounded wait: the context deadline is
	// passed to the kernel as the absolute timeout of the operation, and
	// its expiry surfaces as TimedOutError. A context without a deadline
	// makes it equivalent to Send.
	SendContext(ctx context.Context, msg *Message) error

	// ReceiveContext is Receive with a bounded wait, same contract as
	// SendContext.
	ReceiveContext(ctx context.Context) (*Message, error)

	// Attributes reports the live queue limits, current blocking mode
	// included.
	Attributes() (Attributes, error)

	// SetNonBlocking switches the open handle between blocking and
	// non-blocking mode. It is the only attribute that can change after
	// creation.
	SetNonBlocking(nonblocking bool) error

	// Name returns the validated name this queue was opened with.
	Name() Name
}

// Create creates a new queue with the given attributes and fails with
// ErrAlreadyExists if a queue with that name already exists.
//
// By default the queue will be read/writable by the current user with no
// access for other users, see QueueOpenMode.
func Create(name Name, attrs Attributes) (Queue, error) {
	return createQueue(name, attrs, nil)
}

// Open opens an existing queue for sending and receiving, failing with
// ErrNotFound if no queue with that name exists.
func Open(name Name) (Queue, error) {
	return openQueue(name, false, nil)
}

// OpenOrCreate opens the queue if it exists and creates it with the given
// attributes otherwise, in a single syscall. It never fails with
// ErrAlreadyExists.
//
// The attributes only apply when the queue is created; when it already
// exists its original limits stay in effect, and are what the returned
// Queue reports and sizes its receive buffers by.
func OpenOrCreate(name Name, attrs Attributes) (Queue, error) {
	return openOrCreateQueue(name, attrs, nil)
}

// OpenOrCreateWithDefaults is OpenOrCreate with DefaultAttributes.
func OpenOrCreateWithDefaults(name Name) (Queue, error) {
	return openOrCreateQueue(name, DefaultAttributes(), nil)
}

// Unlink removes the name from the system namespace, so no future Open or
// Create can find it. Queues already open on that name remain usable until
// they are individually closed.
//
// It fails with ErrNotFound when no queue with that name exists.
func Unlink(name Name) error {
	return unlinkQueue(name)
}

// QueueConfig is the config used in OpenConfig.
//
// Can be deserialized from YAML. Example:
//
//	queue:
//	  name: /my-queue
//	  maxMessages: 10
//	  maxMessageSize: 8192
//	  create: true
//	  logger: std
type QueueConfig struct {
	// Required. Name of the message queue, must satisfy the rules checked
	// by NewName.
	Name string `yaml:"name"`

	// Optional. Queue limits requested when the queue is created. Zero
	// values mean the system defaults. Ignored when opening an existing
	// queue.
	MaxMessages    int64 `yaml:"maxMessages"`
	MaxMessageSize int64 `yaml:"maxMessageSize"`

	// Optional. Open the queue in non-blocking mode.
	NonBlocking bool `yaml:"nonBlocking"`

	// Optional. Create the queue when it does not exist yet. With
	// Exclusive also set, the open fails with ErrAlreadyExists when the
	// queue exists.
	Create    bool `yaml:"create"`
	Exclusive bool `yaml:"exclusive"`

	// Optional. If non-nil, will be used to log errors that happen where
	// no error can be returned, e.g. failures to release the descriptor
	// while cleaning up after a failed open.
	Logger log.Wrapper `yaml:"logger"`
}

// OpenConfig opens a queue described by the given config.
//
// It is a convenience over NewName plus the matching open constructor, for
// callers that load queue parameters from configuration.
func OpenConfig(cfg QueueConfig) (Queue, error) {
	name, err := NewName(cfg.Name)
	if err != nil {
		return nil, err
	}

	attrs := Attributes{
		MaxMessages:    cfg.MaxMessages,
		MaxMessageSize: cfg.MaxMessageSize,
		NonBlocking:    cfg.NonBlocking,
	}
	if attrs.MaxMessages == 0 || attrs.MaxMessageSize == 0 {
		defaults := defaultAttributes()
		if attrs.MaxMessages == 0 {
			attrs.MaxMessages = defaults.MaxMessages
		}
		if attrs.MaxMessageSize == 0 {
			attrs.MaxMessageSize = defaults.MaxMessageSize
		}
	}

	switch {
	case cfg.Create && cfg.Exclusive:
		return createQueue(name, attrs, cfg.Logger)
	case cfg.Create:
		return openOrCreateQueue(name, attrs, cfg.Logger)
	default:
		return openQueue(name, cfg.NonBlocking, cfg.Logger)
	}
}
