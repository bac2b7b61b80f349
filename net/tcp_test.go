package net_test

import (
	"testing"
	"time"

	"github.com/zephyrrt/zephyr"
	znet "github.com/zephyrrt/zephyr/net"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func init() {
	zephyr.Configure(zephyr.WithWorkers(4))
}

// Scenario 2 from the spec's seed suite, scaled down: a handful of
// concurrent clients each send a line to an echo server and expect it
// back unchanged.
func TestTCPEchoServer(t *testing.T) {
	ln, err := znet.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().String()

	serverDone := zephyr.Spawn(func() struct{} {
		for i := 0; i < 20; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return struct{}{}
			}
			zephyr.Spawn(func() struct{} {
				defer conn.Close()
				buf := make([]byte, 6)
				n, err := conn.Read(buf)
				if err != nil {
					return struct{}{}
				}
				_, _ = conn.Write(buf[:n])
				return struct{}{}
			})
		}
		return struct{}{}
	})

	var wg zsync.WaitGroup
	const clients = 20
	wg.Add(clients)
	for i := 0; i < clients; i++ {
		zephyr.Spawn(func() struct{} {
			defer wg.Done()
			conn, err := znet.DialTCP(addr)
			if err != nil {
				t.Errorf("dial: %v", err)
				return struct{}{}
			}
			defer conn.Close()

			if _, err := conn.Write([]byte("hello\n")); err != nil {
				t.Errorf("write: %v", err)
				return struct{}{}
			}
			buf := make([]byte, 6)
			n, err := conn.Read(buf)
			if err != nil {
				t.Errorf("read: %v", err)
				return struct{}{}
			}
			if string(buf[:n]) != "hello\n" {
				t.Errorf("expected echo of hello, got %q", buf[:n])
			}
			return struct{}{}
		})
	}
	wg.Wait()
	serverDone.Join()
}

// Scenario 3: a read bound by a 50ms timeout against data that arrives
// only at 100ms must observe zephyr.ErrTimeout rather than waiting for
// the late data.
func TestTCPReadTimeoutRace(t *testing.T) {
	ln, err := znet.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	addr := ln.Addr().String()

	accepted := make(chan *znet.TCPConn, 1)
	zephyr.Spawn(func() struct{} {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
		return struct{}{}
	})

	type dialResult struct {
		conn *znet.TCPConn
		err  error
	}
	client, err := func() (*znet.TCPConn, error) {
		h := zephyr.Spawn(func() dialResult {
			conn, err := znet.DialTCP(addr)
			return dialResult{conn: conn, err: err}
		})
		r := h.Join()
		return r.conn, r.err
	}()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	zephyr.Spawn(func() struct{} {
		zephyr.Sleep(100 * time.Millisecond)
		_, _ = server.Write([]byte("late"))
		return struct{}{}
	})

	h := zephyr.Spawn(func() error {
		buf := make([]byte, 4)
		_, err := client.ReadTimeout(buf, time.Now().Add(50*time.Millisecond))
		return err
	})
	if got := h.Join(); got != zephyr.ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", got)
	}
}
