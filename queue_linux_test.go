// +build linux

package posixmq_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/aprilabank/posixmq"
	"github.com/aprilabank/posixmq/log"
)

func requireMQ(t *testing.T) {
	t.Helper()
	if !strings.HasSuffix(runtime.GOARCH, "64") {
		t.Skipf("The syscall implementation only supports 64-bit systems, skipping on %s", runtime.GOARCH)
	}
}

func randomName(t *testing.T) posixmq.Name {
	t.Helper()
	name, err := posixmq.NewName(fmt.Sprintf("/test-mq-%d", rand.Uint64()))
	if err != nil {
		t.Fatal(err)
	}
	return name
}

func TestQueueLinux(t *testing.T) {
	requireMQ(t)

	const (
		payload        = "hello, world!"
		maxMessages    = 2
		maxMessageSize = len(payload)
		timeout        = 10 * time.Millisecond
	)

	name := randomName(t)
	attrs := posixmq.Attributes{
		MaxMessages:    maxMessages,
		MaxMessageSize: int64(maxMessageSize),
	}

	mq, err := posixmq.Create(name, attrs)
	if err != nil {
		t.Fatal(err)
	}
	defer mq.Close()

	// Delete the queue created in this test.
	defer func() {
		if err := posixmq.Unlink(name); err != nil {
			t.Errorf("Failed to unlink queue %q: %v", name, err)
		}
	}()

	t.Run(
		"create-again",
		func(t *testing.T) {
			_, err := posixmq.Create(name, attrs)
			if !errors.Is(err, posixmq.ErrAlreadyExists) {
				t.Errorf("Second create returned %v, want ErrAlreadyExists", err)
			}
		},
	)

	t.Run(
		"attributes",
		func(t *testing.T) {
			got, err := mq.Attributes()
			if err != nil {
				t.Fatalf("Attributes returned error: %v", err)
			}
			if got.MaxMessages != maxMessages || got.MaxMessageSize != int64(maxMessageSize) {
				t.Errorf("Attributes reported %+v, want limits %d/%d", got, maxMessages, maxMessageSize)
			}
			if got.NonBlocking {
				t.Error("Expected a freshly created queue to be in blocking mode")
			}
		},
	)

	t.Run(
		"round-trip",
		func(t *testing.T) {
			want := &posixmq.Message{Data: []byte(payload), Priority: 7}
			if err := mq.Send(want); err != nil {
				t.Fatalf("Send returned error: %v", err)
			}
			got, err := mq.Receive()
			if err != nil {
				t.Fatalf("Receive returned error: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Received message mismatch (-want +got):\n%s", diff)
			}
		},
	)

	t.Run(
		"priority-ordering",
		func(t *testing.T) {
			if err := mq.Send(&posixmq.Message{Data: []byte("low"), Priority: 5}); err != nil {
				t.Fatal(err)
			}
			if err := mq.Send(&posixmq.Message{Data: []byte("high"), Priority: 10}); err != nil {
				t.Fatal(err)
			}
			for i, want := range []string{"high", "low"} {
				msg, err := mq.Receive()
				if err != nil {
					t.Fatalf("Receive #%d returned error: %v", i, err)
				}
				if string(msg.Data) != want {
					t.Errorf("Receive #%d got %q, want %q", i, msg.Data, want)
				}
			}
		},
	)

	t.Run(
		"message-too-large",
		func(t *testing.T) {
			err := mq.Send(&posixmq.Message{Data: make([]byte, maxMessageSize+1)})
			if !errors.As(err, new(*posixmq.MessageTooLargeError)) {
				t.Errorf(
					"Expected MessageTooLargeError when message is larger than the max size, got %v",
					err,
				)
			}
		},
	)

	t.Run(
		"priority-out-of-range",
		func(t *testing.T) {
			err := mq.Send(&posixmq.Message{
				Data:     []byte(payload),
				Priority: posixmq.MaxPriority + 1,
			})
			if !errors.As(err, new(*posixmq.PriorityOutOfRangeError)) {
				t.Errorf(
					"Expected PriorityOutOfRangeError when priority exceeds the ceiling, got %v",
					err,
				)
			}
		},
	)

	t.Run(
		"receive-context-timeout",
		func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			_, err := mq.ReceiveContext(ctx)
			if !errors.As(err, new(*posixmq.TimedOutError)) {
				t.Errorf("Expected TimedOutError when the queue is empty, got %v", err)
			}
			if !errors.Is(err, syscall.ETIMEDOUT) && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf(
					"Expected either ETIMEDOUT or context.DeadlineExceeded when the queue is empty, got %v",
					err,
				)
			}
		},
	)

	t.Run(
		"send-context-timeout",
		func(t *testing.T) {
			for i := 0; i < maxMessages; i++ {
				if err := mq.Send(&posixmq.Message{Data: []byte(payload)}); err != nil {
					t.Fatal(err)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			err := mq.SendContext(ctx, &posixmq.Message{Data: []byte(payload)})
			if !errors.As(err, new(*posixmq.TimedOutError)) {
				t.Errorf("Expected TimedOutError when the queue is full, got %v", err)
			}

			// Drain for the following subtests.
			for i := 0; i < maxMessages; i++ {
				if _, err := mq.Receive(); err != nil {
					t.Fatal(err)
				}
			}
		},
	)

	t.Run(
		"non-blocking",
		func(t *testing.T) {
			if err := mq.SetNonBlocking(true); err != nil {
				t.Fatalf("SetNonBlocking returned error: %v", err)
			}
			defer func() {
				if err := mq.SetNonBlocking(false); err != nil {
					t.Errorf("Failed to restore blocking mode: %v", err)
				}
			}()

			attrs, err := mq.Attributes()
			if err != nil {
				t.Fatal(err)
			}
			if !attrs.NonBlocking {
				t.Error("Attributes does not report non-blocking after SetNonBlocking(true)")
			}

			_, err = mq.Receive()
			if !errors.Is(err, posixmq.ErrWouldBlock) {
				t.Errorf("Receive on an empty non-blocking queue returned %v, want ErrWouldBlock", err)
			}

			for i := 0; i < maxMessages; i++ {
				if err := mq.Send(&posixmq.Message{Data: []byte(payload)}); err != nil {
					t.Fatal(err)
				}
			}
			err = mq.Send(&posixmq.Message{Data: []byte(payload)})
			if !errors.Is(err, posixmq.ErrWouldBlock) {
				t.Errorf("Send on a full non-blocking queue returned %v, want ErrWouldBlock", err)
			}
			for i := 0; i < maxMessages; i++ {
				if _, err := mq.Receive(); err != nil {
					t.Fatal(err)
				}
			}
		},
	)

	t.Run(
		"open-existing",
		func(t *testing.T) {
			other, err := posixmq.Open(name)
			if err != nil {
				t.Fatalf("Open returned error: %v", err)
			}
			defer other.Close()

			if err := mq.Send(&posixmq.Message{Data: []byte(payload), Priority: 1}); err != nil {
				t.Fatal(err)
			}
			msg, err := other.Receive()
			if err != nil {
				t.Fatalf("Receive on the second handle returned error: %v", err)
			}
			if string(msg.Data) != payload {
				t.Errorf("Received %q from the second handle, want %q", msg.Data, payload)
			}
		},
	)

	t.Run(
		"open-or-create-existing",
		func(t *testing.T) {
			other, err := posixmq.OpenOrCreate(name, attrs)
			if err != nil {
				t.Fatalf("OpenOrCreate on an existing queue returned error: %v", err)
			}
			other.Close()
		},
	)
}

func TestQueueLinuxCloseIdempotent(t *testing.T) {
	requireMQ(t)

	name := randomName(t)
	mq, err := posixmq.OpenOrCreateWithDefaults(name)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := posixmq.Unlink(name); err != nil {
			t.Errorf("Failed to unlink queue %q: %v", name, err)
		}
	}()

	if err := mq.Close(); err != nil {
		t.Errorf("First Close returned error: %v", err)
	}
	if err := mq.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}

	err = mq.Send(&posixmq.Message{Data: []byte("x")})
	if !errors.Is(err, syscall.EBADF) {
		t.Errorf("Send on a closed queue returned %v, want an EBADF SyscallError", err)
	}
}

func TestQueueLinuxUnlinkAllowsRecreate(t *testing.T) {
	requireMQ(t)

	name := randomName(t)
	attrs := posixmq.Attributes{MaxMessages: 1, MaxMessageSize: 16}

	mq, err := posixmq.Create(name, attrs)
	if err != nil {
		t.Fatal(err)
	}
	if err := posixmq.Unlink(name); err != nil {
		t.Fatalf("Unlink returned error: %v", err)
	}

	// The old handle survives the unlink.
	if err := mq.Send(&posixmq.Message{Data: []byte("x")}); err != nil {
		t.Errorf("Send on an unlinked queue returned error: %v", err)
	}
	mq.Close()

	recreated, err := posixmq.Create(name, attrs)
	if err != nil {
		t.Fatalf("Recreating after unlink returned error: %v", err)
	}
	recreated.Close()
	if err := posixmq.Unlink(name); err != nil {
		t.Errorf("Cleanup unlink failed: %v", err)
	}
}

func TestQueueLinuxNotFound(t *testing.T) {
	requireMQ(t)

	name := randomName(t)

	if _, err := posixmq.Open(name); !errors.Is(err, posixmq.ErrNotFound) {
		t.Errorf("Opening a nonexistent queue returned %v, want ErrNotFound", err)
	}
	if err := posixmq.Unlink(name); !errors.Is(err, posixmq.ErrNotFound) {
		t.Errorf("Unlinking a nonexistent queue returned %v, want ErrNotFound", err)
	}
}

func TestQueueLinuxInvalidAttributes(t *testing.T) {
	requireMQ(t)

	name := randomName(t)

	t.Run("zero-limit", func(t *testing.T) {
		_, err := posixmq.Create(name, posixmq.Attributes{MaxMessages: 0, MaxMessageSize: 16})
		if !errors.As(err, new(*posixmq.InvalidAttributesError)) {
			t.Errorf("Create with a zero limit returned %v, want InvalidAttributesError", err)
		}
	})

	t.Run("above-system-limit", func(t *testing.T) {
		_, err := posixmq.Create(name, posixmq.Attributes{
			// Far above HARD_MSGMAX, rejected either by the /proc
			// pre-check or by the kernel.
			MaxMessages:    1 << 40,
			MaxMessageSize: 16,
		})
		if !errors.As(err, new(*posixmq.InvalidAttributesError)) {
			t.Errorf("Create above the system limit returned %v, want InvalidAttributesError", err)
		}
	})
}

func TestQueueLinuxOpenConfig(t *testing.T) {
	requireMQ(t)

	name := randomName(t)

	mq, err := posixmq.OpenConfig(posixmq.QueueConfig{
		Name:           name.String(),
		MaxMessages:    1,
		MaxMessageSize: 16,
		Create:         true,
		Logger:         log.TestWrapper(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer mq.Close()
	defer func() {
		if err := posixmq.Unlink(name); err != nil {
			t.Errorf("Failed to unlink queue %q: %v", name, err)
		}
	}()

	if mq.Name() != name {
		t.Errorf("Queue name is %q, want %q", mq.Name(), name)
	}
	if err := mq.Send(&posixmq.Message{Data: []byte("x")}); err != nil {
		t.Errorf("Send returned error: %v", err)
	}
	if _, err := mq.Receive(); err != nil {
		t.Errorf("Receive returned error: %v", err)
	}
}
