package posixmq

import (
	"context"
	"sync"
	"syscall"
)

// mockState is the shared, "kernel side" state of a mock queue: the pending
// messages and the capacity limits. Handles opened on the same name share
// one mockState, so messages flow between them the way they do between
// descriptors on a real queue.
type mockState struct {
	mu   sync.Mutex
	msgs []Message

	// Token channels tracking free slots and pending messages. Both are
	// buffered to maxMessages, so releasing a token never blocks.
	slots chan struct{}
	items chan struct{}

	maxMessages    int64
	maxMessageSize int64
}

func newMockState(attrs Attributes) *mockState {
	s := &mockState{
		slots:          make(chan struct{}, attrs.MaxMessages),
		items:          make(chan struct{}, attrs.MaxMessages),
		maxMessages:    attrs.MaxMessages,
		maxMessageSize: attrs.MaxMessageSize,
	}
	for i := int64(0); i < attrs.MaxMessages; i++ {
		s.slots <- struct{}{}
	}
	return s
}

// MockQueue is an in-memory implementation of Queue.
//
// It is the backing implementation of the open constructors on non-Linux
// systems, and can be used directly (via OpenMockQueue) to test code that
// depends on this package without touching the real facility. It honors
// priority ordering, blocking and non-blocking modes, and idempotent Close.
//
// Close does not unblock Send or Receive calls already suspended on the
// queue.
type MockQueue struct {
	name  Name
	state *mockState

	mu          sync.Mutex
	nonblocking bool
	closed      bool
}

var _ Queue = (*MockQueue)(nil)

// OpenMockQueue creates a standalone MockQueue from the given config.
//
// The name is validated but not registered anywhere: two OpenMockQueue
// calls with the same name return independent queues. Zero limits fall
// back to the defaults.
func OpenMockQueue(cfg QueueConfig) (*MockQueue, error) {
	name, err := NewName(cfg.Name)
	if err != nil {
		return nil, err
	}
	attrs := Attributes{
		MaxMessages:    cfg.MaxMessages,
		MaxMessageSize: cfg.MaxMessageSize,
		NonBlocking:    cfg.NonBlocking,
	}
	if attrs.MaxMessages <= 0 {
		attrs.MaxMessages = DefaultMaxMessages
	}
	if attrs.MaxMessageSize <= 0 {
		attrs.MaxMessageSize = DefaultMaxMessageSize
	}
	return &MockQueue{
		name:        name,
		state:       newMockState(attrs),
		nonblocking: attrs.NonBlocking,
	}, nil
}

// Send enqueues the message, honoring the same contract as the Linux
// implementation.
func (q *MockQueue) Send(msg *Message) error {
	return q.SendContext(context.Background(), msg)
}

// SendContext is Send with a bounded wait.
func (q *MockQueue) SendContext(ctx context.Context, msg *Message) error {
	nonblocking, err := q.checkUsable("send")
	if err != nil {
		return err
	}
	if err := checkMessage(msg, q.state.maxMessageSize); err != nil {
		return err
	}

	if nonblocking {
		select {
		case <-q.state.slots:
		default:
			return ErrWouldBlock
		}
	} else {
		select {
		case <-q.state.slots:
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return &TimedOutError{Cause: ctx.Err()}
			}
			return ctx.Err()
		}
	}

	// The caller may reuse its buffer after Send returns, so the queue
	// keeps its own copy.
	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)

	q.state.mu.Lock()
	idx := len(q.state.msgs)
	for i, m := range q.state.msgs {
		if m.Priority < msg.Priority {
			idx = i
			break
		}
	}
	q.state.msgs = append(q.state.msgs, Message{})
	copy(q.state.msgs[idx+1:], q.state.msgs[idx:])
	q.state.msgs[idx] = Message{Data: data, Priority: msg.Priority}
	q.state.mu.Unlock()

	q.state.items <- struct{}{}
	return nil
}

// Receive dequeues the highest-priority oldest message.
func (q *MockQueue) Receive() (*Message, error) {
	return q.ReceiveContext(context.Background())
}

// ReceiveContext is Receive with a bounded wait.
func (q *MockQueue) ReceiveContext(ctx context.Context) (*Message, error) {
	nonblocking, err := q.checkUsable("receive")
	if err != nil {
		return nil, err
	}

	if nonblocking {
		select {
		case <-q.state.items:
		default:
			return nil, ErrWouldBlock
		}
	} else {
		select {
		case <-q.state.items:
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, &TimedOutError{Cause: ctx.Err()}
			}
			return nil, ctx.Err()
		}
	}

	q.state.mu.Lock()
	msg := q.state.msgs[0]
	q.state.msgs = q.state.msgs[1:]
	q.state.mu.Unlock()

	q.state.slots <- struct{}{}
	return &msg, nil
}

// Attributes reports the queue limits and this handle's blocking mode.
func (q *MockQueue) Attributes() (Attributes, error) {
	nonblocking, err := q.checkUsable("getattr")
	if err != nil {
		return Attributes{}, err
	}
	return Attributes{
		MaxMessages:    q.state.maxMessages,
		MaxMessageSize: q.state.maxMessageSize,
		NonBlocking:    nonblocking,
	}, nil
}

// SetNonBlocking switches this handle between blocking and non-blocking
// mode. Like on a real queue, the mode is per handle, not shared with other
// handles open on the same name.
func (q *MockQueue) SetNonBlocking(nonblocking bool) error {
	if _, err := q.checkUsable("setattr"); err != nil {
		return err
	}
	q.mu.Lock()
	q.nonblocking = nonblocking
	q.mu.Unlock()
	return nil
}

// Name returns the name the queue was opened with.
func (q *MockQueue) Name() Name {
	return q.name
}

// Close marks the handle closed. The first call wins; later calls are
// no-ops returning nil.
func (q *MockQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}

func (q *MockQueue) checkUsable(op string) (nonblocking bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, &SyscallError{Op: op, Errno: syscall.EBADF}
	}
	return q.nonblocking, nil
}

// Mock namespace backing the open constructors on non-Linux systems.
// Unlinking removes the name while handles already open stay usable,
// mirroring the facility's namespace semantics.
var (
	mockQueuesMu sync.Mutex
	mockQueues   = make(map[string]*mockState)
)

func mockCreate(name Name, attrs Attributes) (*MockQueue, error) {
	if attrs.MaxMessages <= 0 || attrs.MaxMessageSize <= 0 {
		return nil, &InvalidAttributesError{Attributes: attrs, Reason: "limits must be positive"}
	}

	mockQueuesMu.Lock()
	defer mockQueuesMu.Unlock()
	if _, ok := mockQueues[name.String()]; ok {
		return nil, ErrAlreadyExists
	}
	state := newMockState(attrs)
	mockQueues[name.String()] = state
	return &MockQueue{name: name, state: state, nonblocking: attrs.NonBlocking}, nil
}

func mockOpen(name Name, nonblocking bool) (*MockQueue, error) {
	mockQueuesMu.Lock()
	defer mockQueuesMu.Unlock()
	state, ok := mockQueues[name.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return &MockQueue{name: name, state: state, nonblocking: nonblocking}, nil
}

func mockOpenOrCreate(name Name, attrs Attributes) (*MockQueue, error) {
	if attrs.MaxMessages <= 0 || attrs.MaxMessageSize <= 0 {
		return nil, &InvalidAttributesError{Attributes: attrs, Reason: "limits must be positive"}
	}

	mockQueuesMu.Lock()
	defer mockQueuesMu.Unlock()
	state, ok := mockQueues[name.String()]
	if !ok {
		state = newMockState(attrs)
		mockQueues[name.String()] = state
	}
	return &MockQueue{name: name, state: state, nonblocking: attrs.NonBlocking}, nil
}

func mockUnlink(name Name) error {
	mockQueuesMu.Lock()
	defer mockQueuesMu.Unlock()
	if _, ok := mockQueues[name.String()]; !ok {
		return ErrNotFound
	}
	delete(mockQueues, name.String())
	return nil
}
