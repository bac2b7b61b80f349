package net

import (
	stdnet "net"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zephyrrt/zephyr"
	"github.com/zephyrrt/zephyr/internal/iopoll"
	"github.com/zephyrrt/zephyr/internal/sched"
)

// UnixListener accepts connections over a Unix domain socket.
type UnixListener struct {
	fd     int
	path   string
	closed atomic.Bool
}

// ListenUnix creates a non-blocking, listening Unix domain socket bound to
// path. Any pre-existing socket file at path is not removed automatically;
// callers that need socket-file cleanup semantics should remove it
// themselves before calling ListenUnix.
func ListenUnix(path string) (*UnixListener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, 1024); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &UnixListener{fd: fd, path: path}, nil
}

// Accept suspends the calling coroutine until a client connects.
func (l *UnixListener) Accept() (*UnixConn, error) {
	return l.AcceptTimeout(time.Time{})
}

// AcceptTimeout is Accept with an absolute deadline.
func (l *UnixListener) AcceptTimeout(deadline time.Time) (*UnixConn, error) {
	co, err := currentCoroutine()
	if err != nil {
		return nil, err
	}

	var connFD int
	_, err = co.AwaitFD(l.fd, iopoll.EventRead, deadline, wouldBlock, func() (int, error) {
		nfd, _, acceptErr := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if acceptErr != nil {
			return 0, acceptErr
		}
		connFD = nfd
		return 0, nil
	})
	if err == sched.ErrTimeout {
		return nil, zephyr.ErrTimeout
	}
	if err != nil {
		return nil, err
	}
	return &UnixConn{fd: connFD}, nil
}

// Close closes the listener and its underlying socket fd. It does not
// remove the socket file from the filesystem.
func (l *UnixListener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return zephyr.ErrClosed
	}
	return unix.Close(l.fd)
}

// Addr returns the filesystem path the listener is bound to.
func (l *UnixListener) Addr() *stdnet.UnixAddr {
	return &stdnet.UnixAddr{Name: l.path, Net: "unix"}
}

// UnixConn is a connected Unix domain stream socket.
type UnixConn struct {
	fd     int
	closed atomic.Bool
}

// DialUnix connects to the Unix domain socket at path.
func DialUnix(path string) (*UnixConn, error) {
	return DialUnixTimeout(path, time.Time{})
}

// DialUnixTimeout is DialUnix with an absolute deadline.
func DialUnixTimeout(path string, deadline time.Time) (*UnixConn, error) {
	co, err := currentCoroutine()
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	connectErr := unix.Connect(fd, &unix.SockaddrUnix{Name: path})
	if connectErr != nil && !wouldBlock(connectErr) {
		_ = unix.Close(fd)
		return nil, connectErr
	}
	if connectErr != nil {
		_, err = co.AwaitFD(fd, iopoll.EventWrite, deadline, wouldBlock, func() (int, error) {
			errno, soErr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
			if soErr != nil {
				return 0, soErr
			}
			if errno != 0 {
				return 0, unix.Errno(errno)
			}
			return 0, nil
		})
		if err == sched.ErrTimeout {
			_ = unix.Close(fd)
			return nil, zephyr.ErrTimeout
		}
		if err != nil {
			_ = unix.Close(fd)
			return nil, err
		}
	}

	return &UnixConn{fd: fd}, nil
}

// Read reads into b, suspending the calling coroutine while no data is
// available.
func (c *UnixConn) Read(b []byte) (int, error) {
	return c.ReadTimeout(b, time.Time{})
}

// ReadTimeout is Read with an absolute deadline.
func (c *UnixConn) ReadTimeout(b []byte, deadline time.Time) (int, error) {
	co, err := currentCoroutine()
	if err != nil {
		return 0, err
	}
	n, err := co.AwaitFD(c.fd, iopoll.EventRead, deadline, wouldBlock, func() (int, error) {
		return unix.Read(c.fd, b)
	})
	if err == sched.ErrTimeout {
		return n, zephyr.ErrTimeout
	}
	return n, err
}

// Write writes b in full, suspending the calling coroutine whenever the
// socket's send buffer is full.
func (c *UnixConn) Write(b []byte) (int, error) {
	return c.WriteTimeout(b, time.Time{})
}

// WriteTimeout is Write with an absolute deadline.
func (c *UnixConn) WriteTimeout(b []byte, deadline time.Time) (int, error) {
	co, err := currentCoroutine()
	if err != nil {
		return 0, err
	}

	total := 0
	for total < len(b) {
		n, err := co.AwaitFD(c.fd, iopoll.EventWrite, deadline, wouldBlock, func() (int, error) {
			return unix.Write(c.fd, b[total:])
		})
		total += n
		if err == sched.ErrTimeout {
			return total, zephyr.ErrTimeout
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// Close closes the connection.
func (c *UnixConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return zephyr.ErrClosed
	}
	return unix.Close(c.fd)
}
