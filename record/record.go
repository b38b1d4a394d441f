// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the hub's downstream sinks for frames,
// recognition results and actions, with no-op and logging
// implementations.
//
// The hub calls these synchronously from its dispatch loop, so an
// implementation must return quickly and must not retain the image
// slice past the call.
package record

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/gamehub/peer"
)

// Recorder receives what should be kept about a test run.
type Recorder interface {
	RecordFrame(frame peer.FramePayload)
	RecordAction(service peer.ServiceKind, action peer.ActionPayload)
	RecordTestID(id peer.TestIDPayload)
}

// FrameConsumer receives every frame and every recognition result as
// they pass through the hub.
type FrameConsumer interface {
	OnFrame(frame peer.FramePayload)
	OnResult(result peer.ResultPayload)
}

// Noop discards everything.
type Noop struct{}

var (
	_ Recorder      = Noop{}
	_ FrameConsumer = Noop{}
)

func (Noop) RecordFrame(peer.FramePayload)                     {}
func (Noop) RecordAction(peer.ServiceKind, peer.ActionPayload) {}
func (Noop) RecordTestID(peer.TestIDPayload)                   {}
func (Noop) OnFrame(peer.FramePayload)                         {}
func (Noop) OnResult(peer.ResultPayload)                       {}

// Lookup returns the recorder configured as kind ("none" or "log").
func Lookup(kind string, logger *slog.Logger) (Recorder, error) {
	switch kind {
	case "none", "":
		return Noop{}, nil
	case "log":
		return NewLogRecorder(logger), nil
	default:
		return nil, fmt.Errorf("unknown recorder kind %q", kind)
	}
}

// Digest is a 32-byte BLAKE3 digest of frame image bytes.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// frameDomainKey separates frame digests from any other BLAKE3 use of
// the same bytes.
var frameDomainKey = [32]byte{
	'g', 'a', 'm', 'e', 'h', 'u', 'b', '.', 'r', 'e', 'c', 'o', 'r', 'd', '.', 'f',
	'r', 'a', 'm', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DigestFrame hashes image with the frame domain key.
func DigestFrame(image []byte) Digest {
	hasher, err := blake3.NewKeyed(frameDomainKey[:])
	if err != nil {
		panic("blake3.NewKeyed with 32-byte key failed: " + err.Error())
	}
	hasher.Write(image)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// LogRecorder writes one structured log line per recorded item. Frame
// images are summarized by their digest so identical screens can be
// spotted in the log without storing pixels.
type LogRecorder struct {
	logger *slog.Logger
}

var (
	_ Recorder      = (*LogRecorder)(nil)
	_ FrameConsumer = (*LogRecorder)(nil)
)

func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) RecordFrame(frame peer.FramePayload) {
	r.logger.Debug("frame",
		"frame_seq", frame.FrameSeq,
		"device_index", frame.DeviceIndex,
		"width", frame.Width,
		"height", frame.Height,
		"bytes", len(frame.Image),
		"digest", DigestFrame(frame.Image).String(),
	)
}

func (r *LogRecorder) RecordAction(service peer.ServiceKind, action peer.ActionPayload) {
	types := make([]string, len(action.Actions))
	for i, step := range action.Actions {
		types[i] = string(step.Type)
	}
	r.logger.Debug("action",
		"service", service,
		"frame_seq", action.FrameSeq,
		"device_index", action.DeviceIndex,
		"state", action.State,
		"actions", types,
	)
}

func (r *LogRecorder) RecordTestID(id peer.TestIDPayload) {
	r.logger.Info("test run identified",
		"test_id", id.TestID,
		"game_id", id.GameID,
		"game_version", id.GameVersion,
	)
}

func (r *LogRecorder) OnFrame(frame peer.FramePayload) {
	r.logger.Debug("frame consumed", "frame_seq", frame.FrameSeq, "device_index", frame.DeviceIndex)
}

func (r *LogRecorder) OnResult(result peer.ResultPayload) {
	r.logger.Debug("recognition result",
		"frame_seq", result.FrameSeq,
		"device_index", result.DeviceIndex,
		"bytes", len(result.Result),
	)
}
