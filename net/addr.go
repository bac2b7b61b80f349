// Package net provides coroutine-native TCP, UDP, and Unix-domain socket
// types for the zephyr runtime: every blocking operation here — Dial,
// Accept, Read, Write — suspends the calling coroutine through the
// scheduler's subscribe contract (internal/sched's AwaitFD) instead of
// blocking the worker thread driving it, exactly as §4.11 describes.
//
// Sockets are created non-blocking and driven directly with
// golang.org/x/sys/unix syscalls; only address resolution is delegated to
// the standard library's net package, which is a parsing/DNS concern, not
// an I/O concern this runtime needs to own.
package net

import (
	"fmt"
	stdnet "net"

	"golang.org/x/sys/unix"
)

func sockaddrFromTCP(addr *stdnet.TCPAddr) (unix.Sockaddr, int, error) {
	if addr == nil {
		return &unix.SockaddrInet4{}, unix.AF_INET, nil
	}
	if len(addr.IP) == 0 {
		return &unix.SockaddrInet4{Port: addr.Port}, unix.AF_INET, nil
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	if ip6 := addr.IP.To16(); ip6 != nil {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], ip6)
		return sa, unix.AF_INET6, nil
	}
	return nil, 0, fmt.Errorf("net: unsupported TCP address %v", addr)
}

func sockaddrFromUDP(addr *stdnet.UDPAddr) (unix.Sockaddr, int, error) {
	return sockaddrFromTCP(&stdnet.TCPAddr{IP: addr.IP, Port: addr.Port, Zone: addr.Zone})
}

func sockaddrFromUnix(addr *stdnet.UnixAddr) (unix.Sockaddr, error) {
	return &unix.SockaddrUnix{Name: addr.Name}, nil
}

func tcpAddrFromSockaddr(sa unix.Sockaddr) *stdnet.TCPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &stdnet.TCPAddr{IP: append([]byte(nil), v.Addr[:]...), Port: v.Port}
	case *unix.SockaddrInet6:
		return &stdnet.TCPAddr{IP: append([]byte(nil), v.Addr[:]...), Port: v.Port}
	default:
		return nil
	}
}
