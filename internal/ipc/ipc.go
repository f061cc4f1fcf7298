// Package ipc is a typed point-to-point message channel over a unix
// socketpair. Each message is one JSON-encoded datagram, so a value is
// delivered whole or not at all.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/revrsefr/sable/internal/common"
	"golang.org/x/sys/unix"
)

// DefaultMaxMessageSize bounds a single encoded message.
const DefaultMaxMessageSize = 1 << 20

// aLongTimeAgo unblocks pending reads when a context ends.
var aLongTimeAgo = time.Unix(1, 0)

// socketpair is replaced in tests.
var socketpair = func() ([2]int, error) {
	return unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
}

// endpoint owns one end of the socketpair. Close is idempotent.
type endpoint struct {
	conn    *net.UnixConn
	maxSize int
	once    sync.Once
	err     error
}

func (e *endpoint) Close() error {
	e.once.Do(func() {
		e.err = e.conn.Close()
	})
	return e.err
}

// File returns a duplicate of the underlying descriptor, for handing the
// endpoint to a child process. The caller owns the returned file.
func (e *endpoint) File() (*os.File, error) {
	return e.conn.File()
}

// Sender writes values of type T.
type Sender[T any] struct {
	endpoint
}

// Receiver reads values of type T.
type Receiver[T any] struct {
	endpoint
	mu  sync.Mutex
	buf []byte
}

// Channel creates a connected Sender and Receiver. maxSize <= 0 selects
// DefaultMaxMessageSize.
func Channel[T any](maxSize int) (*Sender[T], *Receiver[T], error) {
	fds, err := socketpair()
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}

	sc, err := connFromFD(fds[0], "ipc-send")
	if err != nil {
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	rc, err := connFromFD(fds[1], "ipc-recv")
	if err != nil {
		_ = sc.Close()
		return nil, nil, err
	}

	return newSender[T](sc, maxSize), newReceiver[T](rc, maxSize), nil
}

// SenderFromFD takes ownership of fd, an inherited socket, as a Sender.
func SenderFromFD[T any](fd int, maxSize int) (*Sender[T], error) {
	c, err := connFromFD(fd, "ipc-send")
	if err != nil {
		return nil, err
	}
	return newSender[T](c, maxSize), nil
}

// ReceiverFromFD takes ownership of fd, an inherited socket, as a Receiver.
func ReceiverFromFD[T any](fd int, maxSize int) (*Receiver[T], error) {
	c, err := connFromFD(fd, "ipc-recv")
	if err != nil {
		return nil, err
	}
	return newReceiver[T](c, maxSize), nil
}

// connFromFD wraps fd in a UnixConn. fd is closed on every path; the conn
// holds its own duplicate.
func connFromFD(fd int, name string) (*net.UnixConn, error) {
	f := os.NewFile(uintptr(fd), name)
	if f == nil {
		return nil, fmt.Errorf("invalid descriptor %d", fd)
	}
	defer f.Close()

	c, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("wrap descriptor %d: %w", fd, err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		_ = c.Close()
		return nil, fmt.Errorf("descriptor %d is not a unix socket", fd)
	}
	return uc, nil
}

func normalize(maxSize int) int {
	if maxSize <= 0 {
		return DefaultMaxMessageSize
	}
	return maxSize
}

func newSender[T any](c *net.UnixConn, maxSize int) *Sender[T] {
	return &Sender[T]{endpoint: endpoint{conn: c, maxSize: normalize(maxSize)}}
}

func newReceiver[T any](c *net.UnixConn, maxSize int) *Receiver[T] {
	maxSize = normalize(maxSize)
	return &Receiver[T]{
		endpoint: endpoint{conn: c, maxSize: maxSize},
		buf:      make([]byte, maxSize+1),
	}
}

// Send encodes v and writes it as a single message. A value whose encoding
// exceeds the size limit yields common.ErrMessageTooLarge and nothing is
// written. Writing to a channel whose peer has gone yields
// common.ErrChannelClosed.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(data) > s.maxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", common.ErrMessageTooLarge, len(data), s.maxSize)
	}

	_ = s.conn.SetWriteDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetWriteDeadline(aLongTimeAgo)
	})
	defer stop()

	if _, err := s.conn.Write(data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if closedErr(err) {
			return fmt.Errorf("%w: %v", common.ErrChannelClosed, err)
		}
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Receive blocks for the next message and decodes it. It returns
// common.ErrChannelClosed once the peer has closed, ctx.Err() if ctx ends
// first, and common.ErrMessageTooLarge for a message over the limit (the
// message is discarded and the channel stays usable).
func (r *Receiver[T]) Receive(ctx context.Context) (T, error) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = r.conn.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	n, _, flags, _, err := r.conn.ReadMsgUnix(r.buf, nil)
	if err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if closedErr(err) {
			return zero, fmt.Errorf("%w: %v", common.ErrChannelClosed, err)
		}
		return zero, fmt.Errorf("receive message: %w", err)
	}
	if n == 0 {
		return zero, common.ErrChannelClosed
	}
	if n > r.maxSize || flags&unix.MSG_TRUNC != 0 {
		return zero, fmt.Errorf("%w: limit %d", common.ErrMessageTooLarge, r.maxSize)
	}

	var v T
	if err := json.Unmarshal(r.buf[:n], &v); err != nil {
		return zero, fmt.Errorf("decode message: %w", err)
	}
	return v, nil
}

func closedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNRESET)
}
