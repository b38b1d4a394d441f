// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"testing"
)

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(0)
	if err := bus.Bind("hub"); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	for i := range 5 {
		if err := bus.Send("hub", []byte(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	messages, err := bus.PollRecv("hub")
	if err != nil {
		t.Fatalf("PollRecv: %v", err)
	}
	if len(messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(messages))
	}
	for i, message := range messages {
		if want := fmt.Sprintf("m%d", i); string(message) != want {
			t.Errorf("message %d = %q, want %q", i, message, want)
		}
	}

	again, err := bus.PollRecv("hub")
	if err != nil {
		t.Fatalf("second PollRecv: %v", err)
	}
	if again != nil {
		t.Errorf("second PollRecv returned %d messages, want none", len(again))
	}
}

func TestMemoryBusUnknownAddress(t *testing.T) {
	bus := NewMemoryBus(0)
	if err := bus.Send("nobody", []byte("x")); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("Send to unbound address: err = %v, want ErrUnknownAddress", err)
	}
	if _, err := bus.PollRecv("nobody"); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("PollRecv unbound address: err = %v, want ErrUnknownAddress", err)
	}
}

func TestMemoryBusQueueFull(t *testing.T) {
	bus := NewMemoryBus(2)
	bus.Bind("agent")
	bus.Send("agent", []byte("1"))
	bus.Send("agent", []byte("2"))
	if err := bus.Send("agent", []byte("3")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third Send: err = %v, want ErrQueueFull", err)
	}
	messages, _ := bus.PollRecv("agent")
	if len(messages) != 2 {
		t.Errorf("got %d messages, want 2", len(messages))
	}
}

func TestMemoryBusBindIsIdempotent(t *testing.T) {
	bus := NewMemoryBus(0)
	bus.Bind("ui")
	bus.Send("ui", []byte("kept"))
	bus.Bind("ui")

	messages, _ := bus.PollRecv("ui")
	if len(messages) != 1 {
		t.Errorf("rebinding dropped queued messages: got %d, want 1", len(messages))
	}
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus(0)
	bus.Bind("hub")
	bus.Close()
	if err := bus.Send("hub", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close: err = %v, want ErrClosed", err)
	}
	if err := bus.Bind("hub"); !errors.Is(err, ErrClosed) {
		t.Errorf("Bind after Close: err = %v, want ErrClosed", err)
	}
}
