package net

import (
	"errors"
	stdnet "net"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zephyrrt/zephyr"
	"github.com/zephyrrt/zephyr/internal/iopoll"
	"github.com/zephyrrt/zephyr/internal/sched"
)

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINPROGRESS)
}

func currentCoroutine() (*sched.Coroutine, error) {
	c := sched.CurrentCoroutine()
	if c == nil {
		return nil, zephyr.ErrNotInCoroutine
	}
	return c, nil
}

// TCPListener accepts inbound TCP connections, suspending the calling
// coroutine between an Accept call and a client's arrival.
type TCPListener struct {
	fd     int
	addr   *stdnet.TCPAddr
	closed atomic.Bool
}

// ListenTCP creates a non-blocking, listening TCP socket bound to addr
// (host:port; an empty host binds all interfaces).
func ListenTCP(addr string) (*TCPListener, error) {
	tcpAddr, err := stdnet.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	sa, family, err := sockaddrFromTCP(tcpAddr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, 1024); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	bound := tcpAddr
	if localSA, sockErr := unix.Getsockname(fd); sockErr == nil {
		if a := tcpAddrFromSockaddr(localSA); a != nil {
			bound = a
		}
	}
	return &TCPListener{fd: fd, addr: bound}, nil
}

// Addr returns the address the listener is bound to, including the
// OS-assigned port when the listener was created with port 0.
func (l *TCPListener) Addr() *stdnet.TCPAddr { return l.addr }

// Accept suspends the calling coroutine until a client connects, or
// forever if no deadline is given.
func (l *TCPListener) Accept() (*TCPConn, error) {
	return l.AcceptTimeout(time.Time{})
}

// AcceptTimeout is Accept with an absolute deadline; a zero deadline means
// no timeout.
func (l *TCPListener) AcceptTimeout(deadline time.Time) (*TCPConn, error) {
	co, err := currentCoroutine()
	if err != nil {
		return nil, err
	}

	var connFD int
	var sa unix.Sockaddr
	_, err = co.AwaitFD(l.fd, iopoll.EventRead, deadline, wouldBlock, func() (int, error) {
		nfd, nsa, acceptErr := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if acceptErr != nil {
			return 0, acceptErr
		}
		connFD, sa = nfd, nsa
		return 0, nil
	})
	if err == sched.ErrTimeout {
		return nil, zephyr.ErrTimeout
	}
	if err != nil {
		return nil, err
	}
	return &TCPConn{fd: connFD, remote: tcpAddrFromSockaddr(sa)}, nil
}

// Close closes the listening socket. It does not wake a coroutine already
// suspended in Accept, and Accept does not report zephyr.ErrClosed; only a
// second Close call returns zephyr.ErrClosed.
func (l *TCPListener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return zephyr.ErrClosed
	}
	return unix.Close(l.fd)
}

// TCPConn is a connected TCP stream.
type TCPConn struct {
	fd     int
	remote *stdnet.TCPAddr
	closed atomic.Bool
}

// DialTCP connects to addr (host:port), suspending the calling coroutine
// until the connection completes or fails.
func DialTCP(addr string) (*TCPConn, error) {
	return DialTCPTimeout(addr, time.Time{})
}

// DialTCPTimeout is DialTCP with an absolute deadline.
func DialTCPTimeout(addr string, deadline time.Time) (*TCPConn, error) {
	co, err := currentCoroutine()
	if err != nil {
		return nil, err
	}

	tcpAddr, err := stdnet.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	sa, family, err := sockaddrFromTCP(tcpAddr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	connectErr := unix.Connect(fd, sa)
	if connectErr != nil && !errors.Is(connectErr, unix.EINPROGRESS) {
		_ = unix.Close(fd)
		return nil, connectErr
	}
	if errors.Is(connectErr, unix.EINPROGRESS) {
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

	return &TCPConn{fd: fd, remote: tcpAddr}, nil
}

// Read reads into b, suspending the calling coroutine while no data is
// available.
func (c *TCPConn) Read(b []byte) (int, error) {
	return c.ReadTimeout(b, time.Time{})
}

// ReadTimeout is Read with an absolute deadline.
func (c *TCPConn) ReadTimeout(b []byte, deadline time.Time) (int, error) {
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
func (c *TCPConn) Write(b []byte) (int, error) {
	return c.WriteTimeout(b, time.Time{})
}

// WriteTimeout is Write with an absolute deadline.
func (c *TCPConn) WriteTimeout(b []byte, deadline time.Time) (int, error) {
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

// RemoteAddr returns the address of the connection's peer.
func (c *TCPConn) RemoteAddr() *stdnet.TCPAddr { return c.remote }

// Close closes the connection.
func (c *TCPConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return zephyr.ErrClosed
	}
	return unix.Close(c.fd)
}
