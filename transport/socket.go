// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/gamehub/lib/netutil"
)

var _ Transport = (*SocketBus)(nil)

// socketWriteTimeout bounds one frame write. A destination that stops
// reading fails its own sends after this long; other destinations and
// PollRecv are unaffected.
const socketWriteTimeout = 5 * time.Second

// SocketBus maps every address to a Unix socket "<dir>/<address>.sock".
// Bound addresses accept connections and queue incoming frames; Send
// keeps one connection per destination so frames from this process
// to that destination arrive in order.
type SocketBus struct {
	dir          string
	capacity     int
	logger       *slog.Logger
	writeTimeout time.Duration

	// mu guards the maps and closed. It is never held across I/O.
	mu        sync.Mutex
	endpoints map[Address]*socketEndpoint
	outbound  map[Address]*outboundConn
	closed    bool
}

type socketEndpoint struct {
	listener net.Listener
	inbox    *inbox
}

// outboundConn is the cached connection to one destination. sendMu
// serializes frame writes; connMu guards conn alone so Close can
// interrupt a write in progress.
type outboundConn struct {
	sendMu sync.Mutex

	connMu sync.Mutex
	conn   net.Conn
	closed bool
}

func (o *outboundConn) current() (net.Conn, bool) {
	o.connMu.Lock()
	defer o.connMu.Unlock()
	return o.conn, o.closed
}

func (o *outboundConn) set(conn net.Conn) bool {
	o.connMu.Lock()
	defer o.connMu.Unlock()
	if o.closed {
		return false
	}
	o.conn = conn
	return true
}

// discard closes conn if it is still the cached connection.
func (o *outboundConn) discard(conn net.Conn) {
	o.connMu.Lock()
	defer o.connMu.Unlock()
	if o.conn == conn {
		o.conn = nil
	}
	conn.Close()
}

func (o *outboundConn) close() {
	o.connMu.Lock()
	defer o.connMu.Unlock()
	o.closed = true
	if o.conn != nil {
		o.conn.Close()
		o.conn = nil
	}
}

// NewSocketBus returns a bus rooted at dir. The directory must exist.
func NewSocketBus(dir string, capacity int, logger *slog.Logger) *SocketBus {
	return &SocketBus{
		dir:          dir,
		capacity:     capacity,
		logger:       logger,
		writeTimeout: socketWriteTimeout,
		endpoints:    make(map[Address]*socketEndpoint),
		outbound:     make(map[Address]*outboundConn),
	}
}

// SocketPath returns the socket file for address.
func (b *SocketBus) SocketPath(address Address) string {
	return filepath.Join(b.dir, string(address)+".sock")
}

func (b *SocketBus) Bind(local Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, exists := b.endpoints[local]; exists {
		return nil
	}

	path := b.SocketPath(local)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", path, err)
	}

	endpoint := &socketEndpoint{listener: listener, inbox: newInbox(b.capacity)}
	b.endpoints[local] = endpoint
	go b.accept(local, endpoint)
	return nil
}

func (b *SocketBus) accept(local Address, endpoint *socketEndpoint) {
	for {
		conn, err := endpoint.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				b.logger.Error("transport accept failed", "address", local, "error", err)
			}
			return
		}
		go b.readConnection(local, endpoint, conn)
	}
}

func (b *SocketBus) readConnection(local Address, endpoint *socketEndpoint, conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := readFrame(conn)
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				b.logger.Warn("transport read failed", "address", local, "error", err)
			}
			return
		}
		if err := endpoint.inbox.push(payload); err != nil {
			b.logger.Warn("transport inbox full, dropping message", "address", local)
		}
	}
}

func (b *SocketBus) Send(to Address, data []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	destination, exists := b.outbound[to]
	if !exists {
		destination = &outboundConn{}
		b.outbound[to] = destination
	}
	b.mu.Unlock()

	destination.sendMu.Lock()
	defer destination.sendMu.Unlock()

	conn, closed := destination.current()
	if closed {
		return ErrClosed
	}
	if conn == nil {
		var err error
		conn, err = net.DialTimeout("unix", b.SocketPath(to), b.writeTimeout)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnknownAddress, to, err)
		}
		if !destination.set(conn) {
			conn.Close()
			return ErrClosed
		}
	}

	// At-most-once: a failed or timed-out write discards the connection
	// and the message. The next Send dials again.
	if err := conn.SetWriteDeadline(time.Now().Add(b.writeTimeout)); err != nil {
		destination.discard(conn)
		return fmt.Errorf("%w: %s: setting write deadline: %v", ErrSendFailed, to, err)
	}
	if err := writeFrame(conn, data); err != nil {
		destination.discard(conn)
		return fmt.Errorf("%w: %s: %v", ErrSendFailed, to, err)
	}
	return nil
}

func (b *SocketBus) PollRecv(local Address) ([][]byte, error) {
	b.mu.Lock()
	endpoint, exists := b.endpoints[local]
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if !exists {
		return nil, ErrUnknownAddress
	}
	return endpoint.inbox.drain(), nil
}

func (b *SocketBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	for address, destination := range b.outbound {
		destination.close()
		delete(b.outbound, address)
	}
	for address, endpoint := range b.endpoints {
		endpoint.listener.Close()
		os.Remove(b.SocketPath(address))
		delete(b.endpoints, address)
	}
	return nil
}
