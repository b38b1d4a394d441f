// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "sync"

var _ Transport = (*MemoryBus)(nil)

// MemoryBus is an in-process Transport. Every component sharing one
// MemoryBus can reach every other bound address.
type MemoryBus struct {
	mu       sync.RWMutex
	inboxes  map[Address]*inbox
	capacity int
	closed   bool
}

// NewMemoryBus returns a bus whose inboxes hold up to capacity
// messages each. Zero selects DefaultInboxCapacity.
func NewMemoryBus(capacity int) *MemoryBus {
	return &MemoryBus{
		inboxes:  make(map[Address]*inbox),
		capacity: capacity,
	}
}

func (b *MemoryBus) Bind(local Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, exists := b.inboxes[local]; !exists {
		b.inboxes[local] = newInbox(b.capacity)
	}
	return nil
}

func (b *MemoryBus) Send(to Address, data []byte) error {
	b.mu.RLock()
	destination, exists := b.inboxes[to]
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if !exists {
		return ErrUnknownAddress
	}
	return destination.push(data)
}

func (b *MemoryBus) PollRecv(local Address) ([][]byte, error) {
	b.mu.RLock()
	source, exists := b.inboxes[local]
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !exists {
		return nil, ErrUnknownAddress
	}
	return source.drain(), nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.inboxes = make(map[Address]*inbox)
	return nil
}
