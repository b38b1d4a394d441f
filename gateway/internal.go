// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/lib/metrics"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/task"
)

var errUnhandled = errors.New("gateway: unhandled envelope kind")

// HandleMessage decodes and handles one envelope from the hub. Like
// the hub's own loop it never fails; problems are logged and counted.
func (g *Gateway) HandleMessage(data []byte) {
	envelope, err := g.config.Codec.Decode(data)
	if err != nil {
		g.logger.Warn("dropping undecodable envelope", "bytes", len(data), "error", err)
		g.config.Metrics.Dropped("", metrics.DropDecode)
		return
	}
	if envelope.From != g.config.Hub {
		g.logger.Warn("dropping envelope not sent by the hub", "kind", envelope.Kind, "from", envelope.From)
		g.config.Metrics.Dropped(string(envelope.Kind), metrics.DropUnauthorized)
		return
	}

	if err := g.dispatch(envelope); err != nil {
		attrs := []any{"kind", envelope.Kind, "error", err}
		switch {
		case errors.Is(err, ErrNoClient):
			g.logger.Debug("no client for hub message", attrs...)
		case errors.Is(err, errUnhandled):
			g.logger.Warn("unhandled envelope", attrs...)
			g.config.Metrics.Dropped(string(envelope.Kind), metrics.DropUnknownKind)
		case errors.Is(err, peer.ErrDecode):
			g.logger.Warn("dropping envelope with bad payload", attrs...)
			g.config.Metrics.Dropped(string(envelope.Kind), metrics.DropDecode)
		default:
			g.logger.Error("handling hub envelope failed", attrs...)
			g.config.Metrics.Dropped(string(envelope.Kind), metrics.DropHandlerError)
		}
	}
}

func (g *Gateway) dispatch(envelope peer.Envelope) (err error) {
	handler, ok := g.handlers[envelope.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", errUnhandled, envelope.Kind)
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			g.logger.Error("handler panic stack", "kind", envelope.Kind, "stack", string(debug.Stack()))
			err = fmt.Errorf("gateway: %s handler panicked: %v", envelope.Kind, recovered)
		}
	}()
	return handler(envelope)
}

// handleAction sends the client its action list and then a report so
// its view of game state follows the action's.
func (g *Gateway) handleAction(envelope peer.Envelope) error {
	var action peer.ActionPayload
	if err := envelope.DecodePayload(&action); err != nil {
		return err
	}
	source := clientproto.SourceUI
	if envelope.Kind == peer.KindAIAction {
		source = clientproto.SourceAI
	}

	snapshot := g.session.snapshot()
	if action.State != "" {
		snapshot = g.session.setGameState(action.State)
	}

	if err := g.deliver(clientproto.TypeUIAction, translateAction(source, action)); err != nil {
		return err
	}
	return g.deliver(clientproto.TypeReport, report(snapshot))
}

func (g *Gateway) handleTaskReport(envelope peer.Envelope) error {
	var taskReport peer.TaskReportPayload
	if err := envelope.DecodePayload(&taskReport); err != nil {
		return err
	}
	state := task.StateFailed
	if taskReport.Status == peer.InitSuccess {
		state = task.StateReady
	}
	snapshot := g.session.setTaskState(taskReport.TaskID, state)
	g.logger.Info("task report", "task_id", taskReport.TaskID, "status", taskReport.Status)
	return g.deliver(clientproto.TypeReport, report(snapshot))
}

func (g *Gateway) handleReadiness(envelope peer.Envelope) error {
	var notice peer.RegisterPayload
	if err := envelope.DecodePayload(&notice); err != nil {
		return err
	}
	if notice.Op != peer.RegisterReady {
		return fmt.Errorf("%w: register op %q is not a readiness notice", peer.ErrDecode, notice.Op)
	}
	services := make([]string, len(notice.Services))
	for i, service := range notice.Services {
		services[i] = string(service)
	}
	g.logger.Info("backend ready", "services", services)
	return g.deliver(clientproto.TypeServiceState, clientproto.ServiceState{
		State:    "ready",
		Ready:    true,
		Services: services,
	})
}

func (g *Gateway) handleServiceState(envelope peer.Envelope) error {
	var state peer.ServiceStatePayload
	if err := envelope.DecodePayload(&state); err != nil {
		return err
	}
	return g.deliver(clientproto.TypeServiceState, clientproto.ServiceState{State: state.State})
}

// handleGameStateMirror follows the hub's state machine.
func (g *Gateway) handleGameStateMirror(envelope peer.Envelope) error {
	var notice peer.GameNoticePayload
	if err := envelope.DecodePayload(&notice); err != nil {
		return err
	}
	return g.deliver(clientproto.TypeReport, report(g.session.setGameState(notice.State)))
}

func (g *Gateway) handleTrainState(envelope peer.Envelope) error {
	var progress peer.TrainStatePayload
	if err := envelope.DecodePayload(&progress); err != nil {
		return err
	}
	return g.deliver(clientproto.TypeTrainState, clientproto.TrainState{Progress: progress.Progress, Message: progress.Message})
}

func (g *Gateway) handleRestartResult(envelope peer.Envelope) error {
	var result peer.RestartResultPayload
	if err := envelope.DecodePayload(&result); err != nil {
		return err
	}
	return g.deliver(clientproto.TypeRestartResult, clientproto.RestartResult{
		Service: string(result.Service),
		OK:      result.OK,
		Message: result.Message,
	})
}

func (g *Gateway) handleAgentState(envelope peer.Envelope) error {
	var state peer.AgentStatePayload
	if err := envelope.DecodePayload(&state); err != nil {
		return err
	}
	return g.deliver(clientproto.TypeAgentState, clientproto.AgentState{ID: state.ID, State: state.State})
}

func report(snapshot Session) clientproto.Report {
	return clientproto.Report{
		TaskID:    snapshot.TaskID,
		TaskState: string(snapshot.TaskState),
		GameState: string(snapshot.GameState),
	}
}

// translateAction converts a peer action payload to the client's
// action list. When the round has ended a reset leads the list unless
// one already does.
func translateAction(source string, action peer.ActionPayload) clientproto.UIAction {
	actions := make([]clientproto.Action, 0, len(action.Actions)+1)
	if action.State.Finished() && (len(action.Actions) == 0 || action.Actions[0].Type != peer.ActionReset) {
		actions = append(actions, clientproto.Action{Type: string(peer.ActionReset)})
	}
	for _, step := range action.Actions {
		points := make([]clientproto.Point, len(step.Points))
		for i, point := range step.Points {
			points[i] = clientproto.Point{X: point.X, Y: point.Y}
		}
		actions = append(actions, clientproto.Action{
			Type:           string(step.Type),
			Contact:        step.Contact,
			Points:         points,
			DurationMillis: step.DurationMillis,
			WaitMillis:     step.WaitMillis,
			Key:            step.Key,
		})
	}
	return clientproto.UIAction{
		Source:      source,
		FrameSeq:    action.FrameSeq,
		DeviceIndex: action.DeviceIndex,
		UIID:        action.UIID,
		Actions:     actions,
	}
}
