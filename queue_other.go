// +build !linux

package posixmq

import (
	"github.com/aprilabank/posixmq/log"
)

// On systems without the facility the open constructors fall back to the
// in-memory mock, backed by a process-local namespace. This keeps dependent
// code developable and testable anywhere; it is not an emulation of
// kernel-level IPC.

func createQueue(name Name, attrs Attributes, _ log.Wrapper) (Queue, error) {
	q, err := mockCreate(name, attrs)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func openQueue(name Name, nonblocking bool, _ log.Wrapper) (Queue, error) {
	q, err := mockOpen(name, nonblocking)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func openOrCreateQueue(name Name, attrs Attributes, _ log.Wrapper) (Queue, error) {
	q, err := mockOpenOrCreate(name, attrs)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func unlinkQueue(name Name) error {
	return mockUnlink(name)
}

func defaultAttributes() Attributes {
	return Attributes{
		MaxMessages:    DefaultMaxMessages,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}
