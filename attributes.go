package posixmq

// Default queue limits, matching the documented Linux defaults
// (mq_overview(7)). They are used when the kernel defaults cannot be read
// from /proc, and on non-Linux systems.
const (
	DefaultMaxMessages    = 10
	DefaultMaxMessageSize = 8192
)

// Attributes describes a queue's capacity limits and blocking mode.
//
// Callers build an Attributes value to request creation parameters;
// Queue.Attributes returns one reflecting the live kernel state. The
// capacity fields are immutable after creation, only the blocking mode can
// be changed on an open queue (via Queue.SetNonBlocking).
type Attributes struct {
	// MaxMessages is the maximum number of pending messages in the queue.
	// Must be positive when requesting creation; creation fails with
	// InvalidAttributesError when it exceeds the system limit
	// (/proc/sys/fs/mqueue/msg_max).
	MaxMessages int64

	// MaxMessageSize is the maximum size in bytes of a single message.
	// Same constraints as MaxMessages, against
	// /proc/sys/fs/mqueue/msgsize_max.
	MaxMessageSize int64

	// NonBlocking requests the queue to be opened in non-blocking mode:
	// Send on a full queue and Receive on an empty queue fail with
	// ErrWouldBlock instead of suspending the caller.
	NonBlocking bool
}

// DefaultAttributes returns the system default queue limits, in blocking
// mode.
//
// On linux systems it reads /proc/sys/fs/mqueue/msg_default and
// msgsize_default, falling back to DefaultMaxMessages/DefaultMaxMessageSize
// when those files are unreadable (they only exist since Linux 3.5). On
// other systems it always returns the fallback values.
func DefaultAttributes() Attributes {
	return defaultAttributes()
}
