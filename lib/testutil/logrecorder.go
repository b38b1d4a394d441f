// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogRecord is one captured log line with its attributes flattened to
// strings.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder is an slog.Handler that captures every record at or
// above Debug. Handlers derived through WithAttrs and WithGroup share
// the same record store.
type LogRecorder struct {
	store *recordStore
	attrs []slog.Attr
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewLogRecorder returns a recorder and a logger writing to it.
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	recorder := &LogRecorder{store: &recordStore{}}
	return recorder, slog.New(recorder)
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(r.attrs)+record.NumAttrs())
	for _, attr := range r.attrs {
		attrs[attr.Key] = attr.Value.String()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.String()
		return true
	})

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.records = append(r.store.records, LogRecord{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := append(append([]slog.Attr(nil), r.attrs...), attrs...)
	return &LogRecorder{store: r.store, attrs: combined}
}

func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Records returns a copy of everything captured so far.
func (r *LogRecorder) Records() []LogRecord {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]LogRecord(nil), r.store.records...)
}

// Count returns how many records at level contain substring in their
// message.
func (r *LogRecorder) Count(level slog.Level, substring string) int {
	count := 0
	for _, record := range r.Records() {
		if record.Level == level && strings.Contains(record.Message, substring) {
			count++
		}
	}
	return count
}

// CountLevel returns how many records were logged at exactly level.
func (r *LogRecorder) CountLevel(level slog.Level) int {
	count := 0
	for _, record := range r.Records() {
		if record.Level == level {
			count++
		}
	}
	return count
}
