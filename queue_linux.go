// +build linux

package posixmq

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/aprilabank/posixmq/log"
)

// Files under /proc/sys/fs/mqueue defining the kernel's defaults and limits
// for queue attributes, see mq_overview(7).
const (
	procMsgDefault     = "/proc/sys/fs/mqueue/msg_default"
	procMsgMax         = "/proc/sys/fs/mqueue/msg_max"
	procMsgsizeDefault = "/proc/sys/fs/mqueue/msgsize_default"
	procMsgsizeMax     = "/proc/sys/fs/mqueue/msgsize_max"
)

// C version:
//
// struct mq_attr {
//     long mq_flags;       /* Flags: 0 or O_NONBLOCK */
//     long mq_maxmsg;      /* Max. # of messages on queue */
//     long mq_msgsize;     /* Max. message size (bytes) */
//     long mq_curmsgs;     /* # of messages currently in queue */
//     long __reserved[4];
// };
//
// Note that this only works on 64-bit systems.
type mqAttr struct {
	Flags          int64
	MaxMessages    int64
	MaxMessageSize int64
	CurMessages    int64
	_              [4]int64
}

// queue is the Linux implementation of Queue, holding exactly one queue
// descriptor.
type queue struct {
	name Name
	mqd  uintptr

	// Limits cached at open time. The capacity fields cannot change for
	// the lifetime of the queue, so they are safe to size receive buffers
	// by and to pre-check payloads against.
	attrs Attributes

	logger log.Wrapper

	// Set to 1 by the first Close.
	closed int64
}

func createQueue(name Name, attrs Attributes, logger log.Wrapper) (Queue, error) {
	if err := checkCreateAttributes(attrs); err != nil {
		incrOp(openCounter, err)
		return nil, err
	}

	flags := unix.O_RDWR | unix.O_CREAT | unix.O_EXCL
	if attrs.NonBlocking {
		flags |= unix.O_NONBLOCK
	}
	mqd, err := mqOpen(name, flags, &mqAttr{
		MaxMessages:    attrs.MaxMessages,
		MaxMessageSize: attrs.MaxMessageSize,
	})
	incrOp(openCounter, err)
	if err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return nil, &InvalidAttributesError{
				Attributes: attrs,
				Reason:     "rejected by kernel",
				Cause:      syscall.EINVAL,
			}
		}
		return nil, err
	}

	return &queue{name: name, mqd: mqd, attrs: attrs, logger: logger}, nil
}

func openQueue(name Name, nonblocking bool, logger log.Wrapper) (Queue, error) {
	flags := unix.O_RDWR
	if nonblocking {
		flags |= unix.O_NONBLOCK
	}
	mqd, err := mqOpen(name, flags, nil)
	incrOp(openCounter, err)
	if err != nil {
		return nil, err
	}

	q := &queue{name: name, mqd: mqd, logger: logger}
	attrs, err := q.Attributes()
	if err != nil {
		q.closeDiscard("cleaning up after failed open")
		return nil, err
	}
	q.attrs = attrs
	return q, nil
}

func openOrCreateQueue(name Name, attrs Attributes, logger log.Wrapper) (Queue, error) {
	if attrs.MaxMessages <= 0 || attrs.MaxMessageSize <= 0 {
		err := &InvalidAttributesError{Attributes: attrs, Reason: "limits must be positive"}
		incrOp(openCounter, err)
		return nil, err
	}

	flags := unix.O_RDWR | unix.O_CREAT
	if attrs.NonBlocking {
		flags |= unix.O_NONBLOCK
	}
	mqd, err := mqOpen(name, flags, &mqAttr{
		MaxMessages:    attrs.MaxMessages,
		MaxMessageSize: attrs.MaxMessageSize,
	})
	incrOp(openCounter, err)
	if err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return nil, &InvalidAttributesError{
				Attributes: attrs,
				Reason:     "rejected by kernel",
				Cause:      syscall.EINVAL,
			}
		}
		return nil, err
	}

	// The queue might have existed already with different limits, so the
	// cached attributes must come from the kernel, not from the request.
	q := &queue{name: name, mqd: mqd, logger: logger}
	live, err := q.Attributes()
	if err != nil {
		q.closeDiscard("cleaning up after failed open")
		return nil, err
	}
	q.attrs = live
	return q, nil
}

func unlinkQueue(name Name) error {
	nameBytes, err := nameBytePtr(name)
	if err != nil {
		return err
	}

	// From MQ_UNLINK(3) manpage:
	// int mq_unlink(const char *name);
	_, _, errno := unix.Syscall(
		unix.SYS_MQ_UNLINK,
		uintptr(unsafe.Pointer(nameBytes)), // name
		0,                                  // unused
		0,                                  // unused
	)
	if errno != 0 {
		err := errnoErr("mq_unlink", errno)
		incrOp(unlinkCounter, err)
		return err
	}
	incrOp(unlinkCounter, nil)
	return nil
}

func (q *queue) Send(msg *Message) error {
	return q.sendTimed(msg, nil)
}

func (q *queue) SendContext(ctx context.Context, msg *Message) error {
	ts, err := contextTimespec(ctx)
	if err != nil {
		return err
	}
	return q.sendTimed(msg, ts)
}

func (q *queue) sendTimed(msg *Message, absTimeout *unix.Timespec) error {
	if err := q.checkOpen("mq_timedsend"); err != nil {
		return err
	}
	if err := checkMessage(msg, q.attrs.MaxMessageSize); err != nil {
		return err
	}

	// mq_send with a zero-length payload is legal, but the kernel still
	// gets handed a valid pointer.
	data := msg.Data
	if len(data) == 0 {
		data = make([]byte, 1)
	}

	// From MQ_SEND(3) manpage:
	// int mq_timedsend(mqd_t mqdes, const char *msg_ptr, size_t msg_len, unsigned int msg_prio, const struct timespec *abs_timeout);
	_, _, errno := unix.Syscall6(
		unix.SYS_MQ_TIMEDSEND,
		q.mqd,                               // mqdes
		uintptr(unsafe.Pointer(&data[0])),   // msg_ptr
		uintptr(len(msg.Data)),              // msg_len
		uintptr(msg.Priority),               // msg_prio
		uintptr(unsafe.Pointer(absTimeout)), // abs_timeout, nil blocks indefinitely
		0,                                   // unused
	)
	switch errno {
	default:
		err := errnoErr("mq_timedsend", errno)
		incrOp(sendCounter, err)
		return err
	case 0:
		incrOp(sendCounter, nil)
		return nil
	case syscall.EMSGSIZE:
		err := &MessageTooLargeError{
			MessageSize: len(msg.Data),
			MaxSize:     int(q.attrs.MaxMessageSize),
			Cause:       errno,
		}
		incrOp(sendCounter, err)
		return err
	}
}

func (q *queue) Receive() (*Message, error) {
	return q.receiveTimed(nil)
}

func (q *queue) ReceiveContext(ctx context.Context) (*Message, error) {
	ts, err := contextTimespec(ctx)
	if err != nil {
		return nil, err
	}
	return q.receiveTimed(ts)
}

func (q *queue) receiveTimed(absTimeout *unix.Timespec) (*Message, error) {
	if err := q.checkOpen("mq_timedreceive"); err != nil {
		return nil, err
	}

	// The buffer must be large enough to hold any message the queue could
	// contain, or the kernel fails the call with EMSGSIZE.
	buf := make([]byte, q.attrs.MaxMessageSize)
	var priority uint32

	// From MQ_RECEIVE(3) manpage:
	// ssize_t mq_timedreceive(mqd_t mqdes, char *msg_ptr, size_t msg_len, unsigned int *msg_prio, const struct timespec *abs_timeout);
	n, _, errno := unix.Syscall6(
		unix.SYS_MQ_TIMEDRECEIVE,
		q.mqd,                               // mqdes
		uintptr(unsafe.Pointer(&buf[0])),    // msg_ptr
		uintptr(len(buf)),                   // msg_len
		uintptr(unsafe.Pointer(&priority)),  // msg_prio
		uintptr(unsafe.Pointer(absTimeout)), // abs_timeout, nil blocks indefinitely
		0,                                   // unused
	)
	if errno != 0 {
		err := errnoErr("mq_timedreceive", errno)
		incrOp(receiveCounter, err)
		return nil, err
	}
	incrOp(receiveCounter, nil)
	return &Message{Data: buf[:n], Priority: uint(priority)}, nil
}

func (q *queue) Attributes() (Attributes, error) {
	if err := q.checkOpen("mq_getattr"); err != nil {
		return Attributes{}, err
	}

	var attr mqAttr
	if err := q.getSetAttr(nil, &attr); err != nil {
		return Attributes{}, err
	}
	return Attributes{
		MaxMessages:    attr.MaxMessages,
		MaxMessageSize: attr.MaxMessageSize,
		NonBlocking:    attr.Flags&unix.O_NONBLOCK != 0,
	}, nil
}

func (q *queue) SetNonBlocking(nonblocking bool) error {
	if err := q.checkOpen("mq_setattr"); err != nil {
		return err
	}

	newAttr := &mqAttr{}
	if nonblocking {
		newAttr.Flags = unix.O_NONBLOCK
	}
	var old mqAttr
	if err := q.getSetAttr(newAttr, &old); err != nil {
		return err
	}
	q.attrs.NonBlocking = nonblocking
	return nil
}

func (q *queue) Name() Name {
	return q.name
}

// Close releases the queue descriptor. The first call does the release;
// every later call is a no-op returning nil.
func (q *queue) Close() error {
	if !atomic.CompareAndSwapInt64(&q.closed, 0, 1) {
		return nil
	}
	return unix.Close(int(q.mqd))
}

// closeDiscard releases the descriptor on paths that have no way to return
// an error. Failures are reported through the configured logger and
// discarded.
func (q *queue) closeDiscard(reason string) {
	if err := q.Close(); err != nil {
		q.logger.Log(fmt.Sprintf(
			"posixmq: %s: failed to close queue %q: %v",
			reason,
			q.name,
			err,
		))
	}
}

func (q *queue) checkOpen(op string) error {
	if atomic.LoadInt64(&q.closed) != 0 {
		return &SyscallError{Op: op, Errno: syscall.EBADF}
	}
	return nil
}

// getSetAttr wraps the combined getattr/setattr syscall. Passing a nil
// newAttr makes it a pure query.
func (q *queue) getSetAttr(newAttr, oldAttr *mqAttr) error {
	// From MQ_GETATTR(3) manpage:
	// int mq_getsetattr(mqd_t mqdes, const struct mq_attr *newattr, struct mq_attr *oldattr);
	_, _, errno := unix.Syscall(
		unix.SYS_MQ_GETSETATTR,
		q.mqd,                             // mqdes
		uintptr(unsafe.Pointer(newAttr)),  // newattr
		uintptr(unsafe.Pointer(oldAttr)),  // oldattr
	)
	if errno != 0 {
		return errnoErr("mq_getsetattr", errno)
	}
	return nil
}

func mqOpen(name Name, flags int, attr *mqAttr) (uintptr, error) {
	nameBytes, err := nameBytePtr(name)
	if err != nil {
		return 0, err
	}

	// From MQ_OPEN(3) manpage:
	// mqd_t mq_open(const char *name, int oflag, mode_t mode, struct mq_attr *attr);
	mqd, _, errno := unix.Syscall6(
		unix.SYS_MQ_OPEN,
		uintptr(unsafe.Pointer(nameBytes)), // name
		uintptr(flags),                     // oflag
		uintptr(QueueOpenMode),             // mode
		uintptr(unsafe.Pointer(attr)),      // attr
		0,                                  // unused
		0,                                  // unused
	)
	if errno != 0 {
		return 0, errnoErr("mq_open", errno)
	}
	return mqd, nil
}

// nameBytePtr prepares a validated name for the raw syscalls, which expect
// it without the leading slash (the slash handling lives in the libc
// wrappers, not in the kernel).
func nameBytePtr(name Name) (*byte, error) {
	return unix.BytePtrFromString(name.String()[1:])
}

// errnoErr translates an errno into this package's error taxonomy.
func errnoErr(op string, errno syscall.Errno) error {
	switch errno {
	default:
		return &SyscallError{Op: op, Errno: errno}
	case syscall.EACCES:
		return ErrPermissionDenied
	case syscall.EEXIST:
		return ErrAlreadyExists
	case syscall.ENOENT:
		return ErrNotFound
	case syscall.EAGAIN:
		return ErrWouldBlock
	case syscall.EINTR:
		return ErrInterrupted
	case syscall.ETIMEDOUT:
		return &TimedOutError{Cause: errno}
	}
}

// contextTimespec converts a context deadline into the absolute timespec
// the timed mq syscalls take. A context without a deadline yields nil,
// which blocks indefinitely.
func contextTimespec(ctx context.Context) (*unix.Timespec, error) {
	// An already expired deadline fails fast. Other causes (e.g. an
	// explicitly canceled parent) still get a chance at the syscall.
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &TimedOutError{Cause: ctx.Err()}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		return nil, nil
	}
	ts, err := unix.TimeToTimespec(deadline)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func checkCreateAttributes(attrs Attributes) error {
	if attrs.MaxMessages <= 0 || attrs.MaxMessageSize <= 0 {
		return &InvalidAttributesError{Attributes: attrs, Reason: "limits must be positive"}
	}
	if limit, err := readProcInt64(procMsgMax); err == nil && attrs.MaxMessages > limit {
		return &InvalidAttributesError{
			Attributes: attrs,
			Reason:     fmt.Sprintf("max messages %d exceeds system limit %d", attrs.MaxMessages, limit),
		}
	}
	if limit, err := readProcInt64(procMsgsizeMax); err == nil && attrs.MaxMessageSize > limit {
		return &InvalidAttributesError{
			Attributes: attrs,
			Reason:     fmt.Sprintf("max message size %d exceeds system limit %d", attrs.MaxMessageSize, limit),
		}
	}
	return nil
}

func defaultAttributes() Attributes {
	attrs := Attributes{
		MaxMessages:    DefaultMaxMessages,
		MaxMessageSize: DefaultMaxMessageSize,
	}
	// The *_default files only exist since Linux 3.5; fall back to the
	// documented defaults when unreadable.
	if v, err := readProcInt64(procMsgDefault); err == nil {
		attrs.MaxMessages = v
	}
	if v, err := readProcInt64(procMsgsizeDefault); err == nil {
		attrs.MaxMessageSize = v
	}
	return attrs
}

func readProcInt64(path string) (int64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(content)), 10, 64)
}
