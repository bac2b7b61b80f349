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

// UDPConn is a connectionless UDP socket bound to a local address.
type UDPConn struct {
	fd     int
	closed atomic.Bool
}

// ListenUDP creates a non-blocking UDP socket bound to addr.
func ListenUDP(addr string) (*UDPConn, error) {
	udpAddr, err := stdnet.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	sa, family, err := sockaddrFromUDP(udpAddr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &UDPConn{fd: fd}, nil
}

// ReadFrom reads a single datagram into b, suspending the calling
// coroutine until one arrives.
func (c *UDPConn) ReadFrom(b []byte) (int, *stdnet.UDPAddr, error) {
	return c.ReadFromTimeout(b, time.Time{})
}

// ReadFromTimeout is ReadFrom with an absolute deadline.
func (c *UDPConn) ReadFromTimeout(b []byte, deadline time.Time) (int, *stdnet.UDPAddr, error) {
	co, err := currentCoroutine()
	if err != nil {
		return 0, nil, err
	}

	var from unix.Sockaddr
	n, err := co.AwaitFD(c.fd, iopoll.EventRead, deadline, wouldBlock, func() (int, error) {
		rn, rsa, rerr := unix.Recvfrom(c.fd, b, 0)
		if rerr != nil {
			return 0, rerr
		}
		from = rsa
		return rn, nil
	})
	if err == sched.ErrTimeout {
		return n, nil, zephyr.ErrTimeout
	}
	if err != nil {
		return n, nil, err
	}
	tcpAddr := tcpAddrFromSockaddr(from)
	if tcpAddr == nil {
		return n, nil, nil
	}
	return n, &stdnet.UDPAddr{IP: tcpAddr.IP, Port: tcpAddr.Port}, nil
}

// WriteTo sends a single datagram to addr, suspending the calling
// coroutine if the socket's send buffer is momentarily full.
func (c *UDPConn) WriteTo(b []byte, addr *stdnet.UDPAddr) (int, error) {
	return c.WriteToTimeout(b, addr, time.Time{})
}

// WriteToTimeout is WriteTo with an absolute deadline.
func (c *UDPConn) WriteToTimeout(b []byte, addr *stdnet.UDPAddr, deadline time.Time) (int, error) {
	co, err := currentCoroutine()
	if err != nil {
		return 0, err
	}
	sa, _, err := sockaddrFromUDP(addr)
	if err != nil {
		return 0, err
	}
	n, err := co.AwaitFD(c.fd, iopoll.EventWrite, deadline, wouldBlock, func() (int, error) {
		if sendErr := unix.Sendto(c.fd, b, 0, sa); sendErr != nil {
			return 0, sendErr
		}
		return len(b), nil
	})
	if err == sched.ErrTimeout {
		return n, zephyr.ErrTimeout
	}
	return n, err
}

// Close closes the socket.
func (c *UDPConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return zephyr.ErrClosed
	}
	return unix.Close(c.fd)
}
