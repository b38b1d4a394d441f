// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

// Kind tags an envelope and selects its payload type.
type Kind string

const (
	// KindSourceImage carries a captured frame ([FramePayload]).
	// Gateway to hub, then hub to recognizer and UI peers.
	KindSourceImage Kind = "SRC_IMAGE_INFO"

	// KindGameResult carries a recognition result ([ResultPayload]).
	// Recognizer to hub, then hub to agent peers.
	KindGameResult Kind = "GAME_RESULT"

	// KindUIAction carries UI recognizer actions ([ActionPayload]).
	KindUIAction Kind = "UI_ACTION"

	// KindAIAction carries agent actions ([ActionPayload]).
	KindAIAction Kind = "AI_ACTION"

	// KindServiceRegister is a peer joining or leaving
	// ([RegisterPayload]); the hub reuses it, with [RegisterReady], as
	// the readiness notice to the gateway.
	KindServiceRegister Kind = "SERVICE_REGISTER"

	// KindTaskReport is a peer's init status, and the hub's aggregated
	// report to the gateway ([TaskReportPayload]).
	KindTaskReport Kind = "TASK_REPORT"

	// KindChangeGameState asks the state machine to apply a signal
	// ([ChangeGameStatePayload]).
	KindChangeGameState Kind = "CHANGE_GAME_STATE"

	KindPauseAgent    Kind = "PAUSE_AGENT"
	KindRestoreAgent  Kind = "RESTORE_AGENT"
	KindRestart       Kind = "RESTART"
	KindRestartResult Kind = "RESTART_RESULT"

	// KindAgentState carries free-form agent status ([AgentStatePayload]).
	KindAgentState Kind = "AGENT_STATE"

	// KindNewTask announces a new task ([NewTaskPayload]).
	KindNewTask Kind = "NEW_TASK"

	// KindTestID carries the client's test identification ([TestIDPayload]).
	KindTestID Kind = "TEST_ID"

	// KindTrainState carries imitation-learning progress ([TrainStatePayload]).
	KindTrainState Kind = "IM_TRAIN_STATE"

	// KindServiceState carries a backend status string ([ServiceStatePayload]).
	KindServiceState Kind = "SERVICE_STATE"

	// KindGameStart and KindGameOver are the hub's notices to agent
	// peers ([GameNoticePayload]).
	KindGameStart Kind = "UI_GAME_START"
	KindGameOver  Kind = "UI_GAME_OVER"
)

// Kinds lists every kind in wire-protocol order.
var Kinds = []Kind{
	KindSourceImage, KindGameResult, KindUIAction, KindAIAction,
	KindServiceRegister, KindTaskReport, KindChangeGameState,
	KindPauseAgent, KindRestoreAgent, KindRestart, KindRestartResult,
	KindAgentState, KindNewTask, KindTestID, KindTrainState,
	KindServiceState, KindGameStart, KindGameOver,
}

// Known reports whether k is one of [Kinds].
func (k Kind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string { return string(k) }
