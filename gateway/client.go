// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"math"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/lib/metrics"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/task"
)

// rejectKey logs (rate-limited) and counts a message with a bad key.
func (g *Gateway) rejectKey(messageType clientproto.MessageType) {
	g.config.Metrics.Dropped(messageType.String(), metrics.DropInvalidKey)
	g.invalidKeyLog.Do(func() {
		g.logger.Warn("dropping client message with invalid session key", "type", messageType)
	})
}

func (g *Gateway) received(messageType clientproto.MessageType) {
	g.config.Metrics.ClientMessage("in", messageType.String())
}

// Control runs a CONTROL_REQ command.
func (g *Gateway) Control(request clientproto.ControlRequest) clientproto.ControlReply {
	g.received(clientproto.TypeControlRequest)
	switch request.Command {
	case clientproto.CommandNewTask:
		return g.NewTask(request.TaskID, request.Key)
	case clientproto.CommandStopTask:
		return g.StopTask(request.Key)
	default:
		return clientproto.ControlReply{
			Code:    clientproto.CodeUnknownCommand,
			Message: fmt.Sprintf("unknown command %q", request.Command),
		}
	}
}

// NewTask starts a session for taskID, replacing any previous one.
// Empty taskID or key are generated. The hub learns the task and key;
// the client learns both from the reply.
func (g *Gateway) NewTask(taskID, key string) clientproto.ControlReply {
	if taskID == "" {
		taskID = g.config.NewKey()
	}
	if key == "" {
		key = g.config.NewKey()
	}

	g.session.reset(key, taskID, task.StateAwaitingReport)
	g.logger.Info("new task", "task_id", taskID)
	g.toHub(peer.KindNewTask, peer.NewTaskPayload{TaskID: taskID, SessionKey: key})

	return clientproto.ControlReply{Code: clientproto.CodeOK, Key: key, TaskID: taskID}
}

// StopTask ends the session. Later messages with the old key are
// rejected.
func (g *Gateway) StopTask(key string) clientproto.ControlReply {
	if !g.session.validKey(key) {
		g.rejectKey(clientproto.TypeControlRequest)
		return clientproto.ControlReply{Code: clientproto.CodeInvalidKey}
	}
	taskID := g.session.snapshot().TaskID
	g.session.reset("", "", task.StateNone)
	g.logger.Info("task stopped", "task_id", taskID)
	return clientproto.ControlReply{Code: clientproto.CodeOK, TaskID: taskID}
}

// OnClientFrameData stores data as the latest frame and forwards it to
// the hub. It never replies: a bad key or a corrupt image is dropped.
func (g *Gateway) OnClientFrameData(data clientproto.ClientData) error {
	g.received(clientproto.TypeClientData)
	if !g.session.validKey(data.Key) {
		g.rejectKey(clientproto.TypeClientData)
		return ErrInvalidKey
	}

	image, err := clientproto.Decompress(data.Image, data.Compression, data.RawSize)
	if err != nil {
		g.logger.Warn("dropping frame with undecodable image", "frame_seq", data.FrameSeq, "error", err)
		g.config.Metrics.Dropped(clientproto.TypeClientData.String(), metrics.DropDecode)
		return fmt.Errorf("%w: image: %v", ErrInvalidParam, err)
	}

	payload := peer.FramePayload{
		FrameSeq:    data.FrameSeq,
		Width:       data.Width,
		Height:      data.Height,
		Image:       image,
		DeviceIndex: data.DeviceIndex,
		FrameType:   data.FrameType,
		Extra:       data.Extra,
	}
	if !g.session.storeFrame(data.Key, Frame{Payload: payload, ReceivedAt: g.config.Clock.Now()}) {
		// The task changed between the check and the store.
		g.rejectKey(clientproto.TypeClientData)
		return ErrInvalidKey
	}

	g.toHub(peer.KindSourceImage, payload)
	return nil
}

// OnClientRequest checks the test identification and forwards it. It
// always replies.
func (g *Gateway) OnClientRequest(request clientproto.ClientRequest) clientproto.ClientReply {
	g.received(clientproto.TypeClientRequest)
	if !g.session.validKey(request.Key) {
		g.rejectKey(clientproto.TypeClientRequest)
		return clientproto.ClientReply{Code: clientproto.CodeInvalidKey}
	}

	testID, err := parseTestID(request)
	if err != nil {
		g.logger.Warn("rejecting client request", "error", err)
		return clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()}
	}

	g.toHub(peer.KindTestID, testID)
	return clientproto.ClientReply{Code: clientproto.CodeOK}
}

func parseTestID(request clientproto.ClientRequest) (peer.TestIDPayload, error) {
	testID, err := stringField("test_id", request.TestID)
	if err != nil {
		return peer.TestIDPayload{}, err
	}
	gameID, err := intField("game_id", request.GameID)
	if err != nil {
		return peer.TestIDPayload{}, err
	}
	gameVersion, err := stringField("game_version", request.GameVersion)
	if err != nil {
		return peer.TestIDPayload{}, err
	}
	return peer.TestIDPayload{TestID: testID, GameID: gameID, GameVersion: gameVersion}, nil
}

func stringField(name string, value any) (string, error) {
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParam, name, value)
	}
	return text, nil
}

// intField accepts any integer encoding: CBOR gives int64 or uint64,
// JSON gives a float64 that must be integral.
func intField(name string, value any) (int, error) {
	switch number := value.(type) {
	case int:
		return number, nil
	case int64:
		if number >= math.MinInt && number <= math.MaxInt {
			return int(number), nil
		}
	case uint64:
		if number <= math.MaxInt {
			return int(number), nil
		}
	case float64:
		if number == math.Trunc(number) && number >= math.MinInt && number < math.MaxInt {
			return int(number), nil
		}
	}
	return 0, fmt.Errorf("%w: %s must be an integer, got %T %v", ErrInvalidParam, name, value, value)
}

// OnClientChangeGameState forwards a state change request. Whether it
// is allowed is the hub's decision.
func (g *Gateway) OnClientChangeGameState(request clientproto.ChangeGameState) clientproto.ClientReply {
	g.received(clientproto.TypeChangeGameState)
	if !g.session.validKey(request.Key) {
		g.rejectKey(clientproto.TypeChangeGameState)
		return clientproto.ClientReply{Code: clientproto.CodeInvalidKey}
	}
	signal, err := peer.ParseGameSignal(request.Signal)
	if err != nil {
		return clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()}
	}
	g.toHub(peer.KindChangeGameState, peer.ChangeGameStatePayload{Signal: signal, Origin: peer.OriginClient})
	return clientproto.ClientReply{Code: clientproto.CodeOK}
}

func (g *Gateway) OnClientPause(key string) clientproto.ClientReply {
	return g.relayControl(clientproto.TypePause, key, peer.KindPauseAgent)
}

func (g *Gateway) OnClientRestore(key string) clientproto.ClientReply {
	return g.relayControl(clientproto.TypeRestore, key, peer.KindRestoreAgent)
}

// OnClientRestart relays RESTART. The hub clears every peer's init
// status, so the mirrored task state goes back to awaiting reports.
func (g *Gateway) OnClientRestart(key string) clientproto.ClientReply {
	reply := g.relayControl(clientproto.TypeRestart, key, peer.KindRestart)
	if reply.Code == clientproto.CodeOK {
		g.session.awaitReports()
	}
	return reply
}

func (g *Gateway) relayControl(messageType clientproto.MessageType, key string, kind peer.Kind) clientproto.ClientReply {
	g.received(messageType)
	if !g.session.validKey(key) {
		g.rejectKey(messageType)
		return clientproto.ClientReply{Code: clientproto.CodeInvalidKey}
	}
	g.toHub(kind, nil)
	return clientproto.ClientReply{Code: clientproto.CodeOK}
}

// SourceInfo reports the latest frame and mirrored state.
func (g *Gateway) SourceInfo(request clientproto.SourceRequest) clientproto.SourceReply {
	g.received(clientproto.TypeSourceRequest)
	if !g.session.validKey(request.Key) {
		g.rejectKey(clientproto.TypeSourceRequest)
		return clientproto.SourceReply{Code: clientproto.CodeInvalidKey}
	}

	snapshot := g.session.snapshot()
	reply := clientproto.SourceReply{
		Code:      clientproto.CodeOK,
		TaskID:    snapshot.TaskID,
		GameState: string(snapshot.GameState),
		TaskState: string(snapshot.TaskState),
	}
	if snapshot.LatestFrame == nil {
		return reply
	}

	frame := snapshot.LatestFrame.Payload
	reply.HasFrame = true
	reply.FrameSeq = frame.FrameSeq
	reply.FrameType = frame.FrameType
	reply.Extra = frame.Extra
	reply.Width = frame.Width
	reply.Height = frame.Height
	reply.DeviceIndex = frame.DeviceIndex

	if request.IncludeImage {
		image, tag, err := clientproto.Compress(frame.Image, g.config.FrameCompression)
		if err != nil {
			g.logger.Warn("compressing source image failed; sending raw", "error", err)
			image, tag = frame.Image, clientproto.CompressionNone
		}
		reply.Image = image
		reply.Compression = tag
		if tag != clientproto.CompressionNone {
			reply.RawSize = len(frame.Image)
		}
	}
	return reply
}
