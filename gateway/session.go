// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/task"
)

// Frame is the latest frame a client sent.
type Frame struct {
	Payload    peer.FramePayload
	ReceivedAt time.Time
}

// Session is a snapshot of the gateway's per-task state.
type Session struct {
	Key    string
	TaskID string

	// LatestFrame is nil until the first accepted frame.
	LatestFrame *Frame

	GameState peer.GameState
	TaskState task.State
}

// session guards the live Session. Everything resets on a new task.
type session struct {
	mu    sync.Mutex
	state Session
}

func newSession() *session {
	return &session{state: Session{GameState: peer.GameNone, TaskState: task.StateNone}}
}

func (s *session) snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state
	if s.state.LatestFrame != nil {
		frame := *s.state.LatestFrame
		snapshot.LatestFrame = &frame
	}
	return snapshot
}

func (s *session) reset(key, taskID string, taskState task.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Session{
		Key:       key,
		TaskID:    taskID,
		GameState: peer.GameNone,
		TaskState: taskState,
	}
}

// validKey reports whether key matches a live session. No session
// means no key is valid.
func (s *session) validKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.state.Key)) == 1
}

// storeFrame replaces the latest frame only if key still matches, so a
// new task that raced the frame is not polluted by it.
func (s *session) storeFrame(key string, frame Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.state.Key)) != 1 {
		return false
	}
	s.state.LatestFrame = &frame
	return true
}

func (s *session) setGameState(state peer.GameState) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.GameState = state
	return s.state
}

func (s *session) setTaskState(taskID string, state task.State) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A report for a task the client has since replaced is stale.
	if taskID == "" || taskID == s.state.TaskID {
		s.state.TaskState = state
	}
	return s.state
}

// awaitReports puts a live task back to waiting for peer reports.
func (s *session) awaitReports() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.TaskID != "" {
		s.state.TaskState = task.StateAwaitingReport
	}
}
