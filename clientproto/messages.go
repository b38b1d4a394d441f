// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clientproto

// ReplyCode is the outcome carried in every reply.
type ReplyCode int

const (
	CodeOK             ReplyCode = 0
	CodeInvalidKey     ReplyCode = 1
	CodeInvalidParam   ReplyCode = 2
	CodeUnknownCommand ReplyCode = 3
	CodeNoTask         ReplyCode = 4
)

func (c ReplyCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInvalidKey:
		return "INVALID_KEY"
	case CodeInvalidParam:
		return "INVALID_PARAM"
	case CodeUnknownCommand:
		return "UNKNOWN_COMMAND"
	case CodeNoTask:
		return "NO_TASK"
	default:
		return "UNKNOWN"
	}
}

// ClientData is one captured frame. When Compression is not none,
// Image holds compressed bytes and RawSize the original length.
type ClientData struct {
	Key         string         `json:"key"`
	FrameSeq    uint64         `json:"frame_seq"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	DeviceIndex int            `json:"device_index"`
	FrameType   string         `json:"frame_type,omitempty"`
	Extra       string         `json:"extra,omitempty"`
	Image       []byte         `json:"image"`
	Compression CompressionTag `json:"compression,omitempty"`
	RawSize     int            `json:"raw_size,omitempty"`
}

// ClientRequest identifies the test run. The identification fields are
// loosely typed on the wire; the gateway checks their types.
type ClientRequest struct {
	Key         string `json:"key"`
	TestID      any    `json:"test_id"`
	GameID      any    `json:"game_id"`
	GameVersion any    `json:"game_version"`
}

type ClientReply struct {
	Code    ReplyCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

// Control commands.
const (
	CommandNewTask  = "new_task"
	CommandStopTask = "stop_task"
)

// ControlRequest starts or stops a task. For new_task, an empty Key
// asks the gateway to generate one.
type ControlRequest struct {
	Command string `json:"command"`
	Key     string `json:"key,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
}

type ControlReply struct {
	Code    ReplyCode `json:"code"`
	Key     string    `json:"key,omitempty"`
	TaskID  string    `json:"task_id,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ChangeGameState asks the hub to apply Signal ("start", "over", ...).
type ChangeGameState struct {
	Key    string `json:"key"`
	Signal string `json:"signal"`
}

// KeyOnly is the body of PAUSE, RESTORE, and RESTART.
type KeyOnly struct {
	Key string `json:"key"`
}

type SourceRequest struct {
	Key          string `json:"key"`
	IncludeImage bool   `json:"include_image,omitempty"`
}

// SourceReply describes the latest stored frame and the mirrored
// session state. Frame fields are zero when HasFrame is false. Image
// is included only when the request set IncludeImage, compressed as
// the gateway is configured to.
type SourceReply struct {
	Code        ReplyCode `json:"code"`
	TaskID      string    `json:"task_id,omitempty"`
	HasFrame    bool      `json:"has_frame"`
	FrameSeq    uint64    `json:"frame_seq"`
	FrameType   string    `json:"frame_type,omitempty"`
	Extra       string    `json:"extra,omitempty"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	DeviceIndex int       `json:"device_index"`
	GameState   string    `json:"game_state"`
	TaskState   string    `json:"task_state"`

	Image       []byte         `json:"image,omitempty"`
	Compression CompressionTag `json:"compression,omitempty"`
	RawSize     int            `json:"raw_size,omitempty"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Action is one client input step. Type is one of none, click, down,
// up, move, swipe, key, reset.
type Action struct {
	Type           string  `json:"type"`
	Contact        int     `json:"contact,omitempty"`
	Points         []Point `json:"points,omitempty"`
	DurationMillis int     `json:"duration_ms,omitempty"`
	WaitMillis     int     `json:"wait_ms,omitempty"`
	Key            string  `json:"key,omitempty"`
}

// Action sources.
const (
	SourceUI = "ui"
	SourceAI = "ai"
)

// UIAction is an action list for the client to perform. Source tells
// whether the UI recognizer or an agent chose it.
type UIAction struct {
	Source      string   `json:"source"`
	FrameSeq    uint64   `json:"frame_seq"`
	DeviceIndex int      `json:"device_index"`
	UIID        int      `json:"ui_id,omitempty"`
	Actions     []Action `json:"actions"`
}

// Report mirrors task and game state to the client.
type Report struct {
	TaskID    string `json:"task_id"`
	TaskState string `json:"task_state"`
	GameState string `json:"game_state"`
}

type AgentState struct {
	ID    int    `json:"id"`
	State string `json:"state"`
}

type RestartResult struct {
	Service string `json:"service,omitempty"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ServiceState is a backend status line. Ready is set on the
// readiness notice, together with the services present.
type ServiceState struct {
	State    string   `json:"state"`
	Ready    bool     `json:"ready,omitempty"`
	Services []string `json:"services,omitempty"`
}

type TrainState struct {
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}
