// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import "github.com/bureau-foundation/gamehub/lib/codec"

// FramePayload is one captured frame. The hub forwards it and keeps
// nothing.
type FramePayload struct {
	FrameSeq    uint64 `cbor:"frame_seq"`
	Width       int    `cbor:"width"`
	Height      int    `cbor:"height"`
	Image       []byte `cbor:"image"`
	DeviceIndex int    `cbor:"device_index"`
	FrameType   string `cbor:"frame_type,omitempty"`
	Extra       string `cbor:"extra,omitempty"`
}

// ResultPayload is a recognizer's output for one frame. Result is
// opaque to the hub.
type ResultPayload struct {
	FrameSeq    uint64           `cbor:"frame_seq"`
	DeviceIndex int              `cbor:"device_index"`
	Result      codec.RawMessage `cbor:"result,omitempty"`
}

// ActionType names one kind of input action.
type ActionType string

const (
	ActionNone  ActionType = "none"
	ActionClick ActionType = "click"
	ActionDown  ActionType = "down"
	ActionUp    ActionType = "up"
	ActionMove  ActionType = "move"
	ActionSwipe ActionType = "swipe"
	ActionKey   ActionType = "key"
	ActionReset ActionType = "reset"
)

// Point is a screen coordinate.
type Point struct {
	X int `cbor:"x"`
	Y int `cbor:"y"`
}

// Action is one input step. Points holds one point for click, down,
// up, and move, and the full path for swipe.
type Action struct {
	Type           ActionType `cbor:"type"`
	Contact        int        `cbor:"contact,omitempty"`
	Points         []Point    `cbor:"points,omitempty"`
	DurationMillis int        `cbor:"duration_ms,omitempty"`
	WaitMillis     int        `cbor:"wait_ms,omitempty"`
	Key            string     `cbor:"key,omitempty"`
}

// ActionPayload carries the actions a UI or agent peer chose for one
// frame. Signal is what the UI recognizer observed; the hub fills
// State with the state machine's state after applying it.
type ActionPayload struct {
	FrameSeq    uint64     `cbor:"frame_seq"`
	DeviceIndex int        `cbor:"device_index"`
	UIID        int        `cbor:"ui_id,omitempty"`
	Signal      GameSignal `cbor:"signal,omitempty"`
	State       GameState  `cbor:"state,omitempty"`
	Actions     []Action   `cbor:"actions"`
}

// RegisterOp is the operation of a SERVICE_REGISTER envelope.
type RegisterOp string

const (
	RegisterJoin  RegisterOp = "register"
	RegisterLeave RegisterOp = "unregister"

	// RegisterReady marks the hub's readiness notice to the gateway.
	RegisterReady RegisterOp = "ready"
)

// RegisterPayload is a peer joining or leaving. On a readiness notice
// Services lists the kinds present.
type RegisterPayload struct {
	Service  ServiceKind   `cbor:"service,omitempty"`
	Op       RegisterOp    `cbor:"op"`
	Services []ServiceKind `cbor:"services,omitempty"`
}

// TaskReportPayload is an init status, per peer or aggregated.
type TaskReportPayload struct {
	TaskID  string     `cbor:"task_id,omitempty"`
	Status  InitStatus `cbor:"status"`
	Message string     `cbor:"message,omitempty"`
}

// ChangeGameStatePayload asks the state machine to apply Signal.
type ChangeGameStatePayload struct {
	Signal GameSignal `cbor:"signal"`
	Origin Origin     `cbor:"origin,omitempty"`
}

// RestartResultPayload is a peer's answer to RESTART.
type RestartResultPayload struct {
	Service ServiceKind `cbor:"service,omitempty"`
	OK      bool        `cbor:"ok"`
	Message string      `cbor:"message,omitempty"`
}

// AgentStatePayload is free-form agent status for the client.
type AgentStatePayload struct {
	ID    int    `cbor:"id"`
	State string `cbor:"state"`
}

// NewTaskPayload announces a task. SessionKey travels gateway to hub
// only; the hub strips it before forwarding to peers.
type NewTaskPayload struct {
	TaskID     string `cbor:"task_id"`
	SessionKey string `cbor:"session_key,omitempty"`
}

// TestIDPayload identifies the test run to peers and recorders.
type TestIDPayload struct {
	TestID      string `cbor:"test_id"`
	GameID      int    `cbor:"game_id"`
	GameVersion string `cbor:"game_version"`
}

// TrainStatePayload reports imitation-learning progress.
type TrainStatePayload struct {
	Progress float64 `cbor:"progress"`
	Message  string  `cbor:"message,omitempty"`
}

// ServiceStatePayload is a backend status line for the client.
type ServiceStatePayload struct {
	State string `cbor:"state"`
}

// GameNoticePayload tells agents a round started or ended.
type GameNoticePayload struct {
	State GameState `cbor:"state"`
}
