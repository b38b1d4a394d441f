// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "errors"

// Address identifies one endpoint on the bus. The zero value is not a
// valid address.
type Address string

// String returns the address as a plain string.
func (a Address) String() string { return string(a) }

// Transport is a non-blocking, addressable message bus.
type Transport interface {
	// Bind claims local for this process. Messages sent to local
	// before Bind may be lost.
	Bind(local Address) error

	// Send delivers data to the address to. The bus takes ownership
	// of data.
	Send(to Address, data []byte) error

	// PollRecv returns every message queued for local, oldest first,
	// or nil when nothing is pending. It never blocks.
	PollRecv(local Address) ([][]byte, error)

	// Close releases every bound address.
	Close() error
}

var (
	// ErrUnknownAddress is returned when sending to, or polling, an
	// address nobody has bound.
	ErrUnknownAddress = errors.New("transport: unknown address")

	// ErrQueueFull is returned when the destination's inbox is at
	// capacity. The message is dropped.
	ErrQueueFull = errors.New("transport: destination queue full")

	// ErrSendFailed is returned when a connected destination could
	// not take the message in time. The message is dropped.
	ErrSendFailed = errors.New("transport: send failed")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport: closed")
)
