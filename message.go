package posixmq

// MaxPriority is the highest message priority accepted by the facility.
//
// Linux caps priorities at MQ_PRIO_MAX-1, with MQ_PRIO_MAX being 32768
// (include/uapi/linux/mqueue.h). POSIX only guarantees 32 levels, so
// portable callers should stay within 0-31.
const MaxPriority = 32767

// Message is a single unit of exchange: an opaque payload paired with an
// unsigned priority.
//
// Messages are transient values. The queue never retains a reference to Data
// after Send returns, and every Receive returns a freshly allocated payload.
type Message struct {
	// Data is the payload. Its length must not exceed the destination
	// queue's max message size attribute.
	Data []byte

	// Priority of the message. Higher priorities are received first;
	// messages of equal priority are received in send order.
	Priority uint
}

// checkMessage runs the pre-syscall validations that are knowable without
// asking the kernel: the priority ceiling, and the payload size against the
// max message size cached when the queue was opened.
func checkMessage(msg *Message, maxSize int64) error {
	if msg.Priority > MaxPriority {
		return &PriorityOutOfRangeError{Priority: msg.Priority, Max: MaxPriority}
	}
	if int64(len(msg.Data)) > maxSize {
		return &MessageTooLargeError{MessageSize: len(msg.Data), MaxSize: int(maxSize)}
	}
	return nil
}
