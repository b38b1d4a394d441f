// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "sync"

// DefaultInboxCapacity bounds how many undelivered messages one address
// may hold before new ones are dropped.
const DefaultInboxCapacity = 4096

// inbox is a bounded FIFO of messages for one bound address.
type inbox struct {
	mu       sync.Mutex
	messages [][]byte
	capacity int
}

func newInbox(capacity int) *inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &inbox{capacity: capacity}
}

func (b *inbox) push(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) >= b.capacity {
		return ErrQueueFull
	}
	b.messages = append(b.messages, data)
	return nil
}

func (b *inbox) drain() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return nil
	}
	drained := b.messages
	b.messages = nil
	return drained
}
