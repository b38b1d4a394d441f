// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry tracks which peer processes are alive, by service
// kind and transport address, and each peer's init status for the
// current task.
//
// readiness is the condition that every required kind has at least one
// registered address. [Registry.Register] reports the moment readiness
// is gained so that the caller can announce it exactly once per
// transition.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/transport"
)

// ErrNotRegistered is returned when an operation names a (kind,
// address) pair, or an address, that has no live entry.
var ErrNotRegistered = errors.New("registry: peer not registered")

// Entry is one registered peer.
type Entry struct {
	Kind    peer.ServiceKind
	Address transport.Address
	Status  peer.InitStatus
}

type entryKey struct {
	kind    peer.ServiceKind
	address transport.Address
}

// Registry is safe for concurrent use.
type Registry struct {
	required []peer.ServiceKind

	mu      sync.Mutex
	entries map[entryKey]*Entry
	ready   bool
}

// New returns a registry that is ready once every kind in required has
// at least one address.
func New(required []peer.ServiceKind) *Registry {
	return &Registry{
		required: slices.Clone(required),
		entries:  make(map[entryKey]*Entry),
	}
}

// Required returns the kinds readiness waits for.
func (r *Registry) Required() []peer.ServiceKind {
	return slices.Clone(r.required)
}

// Register adds (kind, address), or resets its init status if it is
// already present. It returns true only when this call moved the
// registry from not ready to ready.
func (r *Registry) Register(kind peer.ServiceKind, address transport.Address) (becameReady bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entryKey{kind, address}
	if entry, exists := r.entries[key]; exists {
		entry.Status = peer.InitUnknown
	} else {
		r.entries[key] = &Entry{Kind: kind, Address: address}
	}

	wasReady := r.ready
	r.ready = r.requiredPresentLocked()
	return !wasReady && r.ready
}

// Unregister removes (kind, address). Losing readiness is recorded so
// that the next Register that restores it reports the transition.
func (r *Registry) Unregister(kind peer.ServiceKind, address transport.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entryKey{kind, address}
	if _, exists := r.entries[key]; !exists {
		return fmt.Errorf("%w: %s at %s", ErrNotRegistered, kind, address)
	}
	delete(r.entries, key)
	r.ready = r.requiredPresentLocked()
	return nil
}

// IsRegistered reports whether address has a live entry for kind.
func (r *Registry) IsRegistered(address transport.Address, kind peer.ServiceKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[entryKey{kind, address}]
	return exists
}

// Lookup returns the kind address is registered under. An address
// registered under several kinds reports the first in UI, Agent,
// Recognizer order.
func (r *Registry) Lookup(address transport.Address) (peer.ServiceKind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, kind := range []peer.ServiceKind{peer.ServiceUI, peer.ServiceAgent, peer.ServiceRecognizer} {
		if _, exists := r.entries[entryKey{kind, address}]; exists {
			return kind, true
		}
	}
	return "", false
}

// AllRequiredPresent reports readiness.
func (r *Registry) AllRequiredPresent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requiredPresentLocked()
}

func (r *Registry) requiredPresentLocked() bool {
	for _, kind := range r.required {
		present := false
		for key := range r.entries {
			if key.kind == kind {
				present = true
				break
			}
		}
		if !present {
			return false
		}
	}
	return true
}

// MarkInitStatus records status for every entry at address.
func (r *Registry) MarkInitStatus(address transport.Address, status peer.InitStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	marked := false
	for key, entry := range r.entries {
		if key.address == address {
			entry.Status = status
			marked = true
		}
	}
	if !marked {
		return fmt.Errorf("%w: %s", ErrNotRegistered, address)
	}
	return nil
}

// AllInitSucceeded reports whether the registry is ready and every
// registered entry has reported success. A failed entry keeps this
// false until it re-registers.
func (r *Registry) AllInitSucceeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.requiredPresentLocked() {
		return false
	}
	for _, entry := range r.entries {
		if entry.Status != peer.InitSuccess {
			return false
		}
	}
	return true
}

// AnyInitFailed reports whether some live entry reported failure.
func (r *Registry) AnyInitFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.Status == peer.InitFailure {
			return true
		}
	}
	return false
}

// AnyInitReported reports whether some live entry has a status.
func (r *Registry) AnyInitReported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.Status != peer.InitUnknown {
			return true
		}
	}
	return false
}

// ResetInitStatus clears every entry's status. Entries stay
// registered.
func (r *Registry) ResetInitStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		entry.Status = peer.InitUnknown
	}
}

// Addresses returns the sorted addresses registered under kind.
func (r *Registry) Addresses(kind peer.ServiceKind) []transport.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	var addresses []transport.Address
	for key := range r.entries {
		if key.kind == kind {
			addresses = append(addresses, key.address)
		}
	}
	slices.Sort(addresses)
	return addresses
}

// Entries returns a snapshot of every entry sorted by kind, then
// address.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, *entry)
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Kind != b.Kind {
			if a.Kind < b.Kind {
				return -1
			}
			return 1
		}
		if a.Address < b.Address {
			return -1
		}
		if a.Address > b.Address {
			return 1
		}
		return 0
	})
	return entries
}
