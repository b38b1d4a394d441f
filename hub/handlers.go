// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/gamehub/gamestate"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/task"
)

// requireGateway rejects kinds only the gateway may send.
func (r *Router) requireGateway(envelope peer.Envelope) error {
	if envelope.From != r.config.Gateway {
		return fmt.Errorf("%w: %s is sent by the gateway, not %q", ErrUnauthorized, envelope.Kind, envelope.From)
	}
	return nil
}

// requirePeer rejects senders not registered as kind.
func (r *Router) requirePeer(envelope peer.Envelope, kind peer.ServiceKind) error {
	if !r.config.Registry.IsRegistered(envelope.From, kind) {
		return fmt.Errorf("%w: %s from %q, not a registered %s peer", ErrUnauthorized, envelope.Kind, envelope.From, kind)
	}
	return nil
}

// requireAnyPeer rejects senders with no registration.
func (r *Router) requireAnyPeer(envelope peer.Envelope) (peer.ServiceKind, error) {
	kind, ok := r.config.Registry.Lookup(envelope.From)
	if !ok {
		return "", fmt.Errorf("%w: %s from unregistered %q", ErrUnauthorized, envelope.Kind, envelope.From)
	}
	return kind, nil
}

func (r *Router) requireReady(envelope peer.Envelope) error {
	if !r.config.Tracker.Ready() {
		return fmt.Errorf("%w: %s from %q while task is %s",
			ErrPrematureAction, envelope.Kind, envelope.From, r.config.Tracker.Current().State)
	}
	return nil
}

// broadcast forwards envelope to every peer registered under kinds.
// One failed destination does not stop the others.
func (r *Router) broadcast(envelope peer.Envelope, kinds ...peer.ServiceKind) error {
	var errs []error
	for _, kind := range kinds {
		for _, address := range r.config.Registry.Addresses(kind) {
			errs = append(errs, r.sender.Forward(address, envelope))
		}
	}
	return errors.Join(errs...)
}

// broadcastNew sends a fresh envelope of kind to every peer registered
// under kinds.
func (r *Router) broadcastNew(kind peer.Kind, payload any, kinds ...peer.ServiceKind) error {
	envelope, err := peer.NewEnvelope(kind, r.config.Local, payload)
	if err != nil {
		return err
	}
	return r.broadcast(envelope, kinds...)
}

func (r *Router) toGateway(kind peer.Kind, payload any) error {
	return r.sender.Send(r.config.Gateway, kind, payload)
}

func (r *Router) handleFrame(envelope peer.Envelope) error {
	if err := r.requireGateway(envelope); err != nil {
		return err
	}
	var frame peer.FramePayload
	if err := envelope.DecodePayload(&frame); err != nil {
		return err
	}

	r.config.Frames.OnFrame(frame)
	r.config.Recorder.RecordFrame(frame)
	return r.broadcast(envelope, peer.ServiceRecognizer, peer.ServiceUI)
}

func (r *Router) handleResult(envelope peer.Envelope) error {
	if err := r.requirePeer(envelope, peer.ServiceRecognizer); err != nil {
		return err
	}
	var result peer.ResultPayload
	if err := envelope.DecodePayload(&result); err != nil {
		return err
	}

	r.config.Frames.OnResult(result)
	return r.broadcast(envelope, peer.ServiceAgent)
}

func (r *Router) handleUIAction(envelope peer.Envelope) error {
	if err := r.requirePeer(envelope, peer.ServiceUI); err != nil {
		return err
	}
	var action peer.ActionPayload
	if err := envelope.DecodePayload(&action); err != nil {
		return err
	}

	// The UI peer is the state authority whether or not the task is
	// ready; only forwarding waits for readiness. A rejected signal
	// leaves state alone and the actions are still forwarded.
	if action.Signal != "" {
		if err := r.applySignal(action.Signal, peer.OriginPeer); err != nil {
			r.logger.Warn("ignoring game state signal in UI action",
				"from", envelope.From, "signal", action.Signal, "error", err)
		}
	}
	if err := r.requireReady(envelope); err != nil {
		return err
	}
	action.State = r.config.Machine.State()

	merged, keep := r.config.UIMerger.Merge(action, action.State)
	if !keep {
		r.logger.Debug("UI action vetoed by merge strategy", "frame_seq", action.FrameSeq)
		return nil
	}
	r.config.Recorder.RecordAction(peer.ServiceUI, merged)
	return r.toGateway(peer.KindUIAction, merged)
}

func (r *Router) handleAIAction(envelope peer.Envelope) error {
	if err := r.requirePeer(envelope, peer.ServiceAgent); err != nil {
		return err
	}
	if err := r.requireReady(envelope); err != nil {
		return err
	}
	var action peer.ActionPayload
	if err := envelope.DecodePayload(&action); err != nil {
		return err
	}
	action.State = r.config.Machine.State()

	merged, keep := r.config.AIMerger.Merge(action, action.State)
	if !keep {
		r.logger.Debug("AI action vetoed by merge strategy", "frame_seq", action.FrameSeq)
		return nil
	}
	if err := r.toGateway(peer.KindAIAction, merged); err != nil {
		return err
	}
	r.config.Recorder.RecordAction(peer.ServiceAgent, merged)
	return nil
}

func (r *Router) handleRegister(envelope peer.Envelope) error {
	var registration peer.RegisterPayload
	if err := envelope.DecodePayload(&registration); err != nil {
		return err
	}
	kind, err := peer.ParseServiceKind(string(registration.Service))
	if err != nil {
		return fmt.Errorf("%w: %v", peer.ErrDecode, err)
	}

	switch registration.Op {
	case peer.RegisterJoin:
		becameReady := r.config.Registry.Register(kind, envelope.From)
		r.logger.Info("service registered", "service", kind, "address", envelope.From, "ready", r.config.Registry.AllRequiredPresent())
		if !becameReady {
			return nil
		}
		r.config.Metrics.ReadinessNotice()
		r.logger.Info("all required services registered", "services", r.config.Registry.Required())
		return r.toGateway(peer.KindServiceRegister, peer.RegisterPayload{
			Op:       peer.RegisterReady,
			Services: r.config.Registry.Required(),
		})

	case peer.RegisterLeave:
		if err := r.config.Registry.Unregister(kind, envelope.From); err != nil {
			return err
		}
		r.logger.Info("service unregistered", "service", kind, "address", envelope.From)
		return nil

	default:
		return fmt.Errorf("%w: unknown register op %q", peer.ErrDecode, registration.Op)
	}
}

func (r *Router) handleTaskReport(envelope peer.Envelope) error {
	var report peer.TaskReportPayload
	if err := envelope.DecodePayload(&report); err != nil {
		return err
	}
	if report.Status != peer.InitSuccess && report.Status != peer.InitFailure {
		return fmt.Errorf("%w: task report status %q", peer.ErrDecode, report.Status)
	}

	decision, err := r.config.Tracker.OnTaskReport(envelope.From, report.Status)
	if err != nil {
		return fmt.Errorf("task report from %q: %w", envelope.From, err)
	}
	if report.Status == peer.InitFailure {
		r.logger.Warn("service failed to initialize", "address", envelope.From, "message", report.Message)
	}
	return r.sendDecision(decision)
}

// sendDecision forwards an aggregated readiness report, if any.
func (r *Router) sendDecision(decision task.Decision) error {
	if !decision.Report {
		return nil
	}
	r.config.Metrics.TaskReport(decision.Status)
	r.logger.Info("task decided", "task_id", decision.Task.ID, "status", decision.Status)
	return r.toGateway(peer.KindTaskReport, peer.TaskReportPayload{
		TaskID: decision.Task.ID,
		Status: decision.Status,
	})
}

func (r *Router) handleNewTask(envelope peer.Envelope) error {
	if err := r.requireGateway(envelope); err != nil {
		return err
	}
	var newTask peer.NewTaskPayload
	if err := envelope.DecodePayload(&newTask); err != nil {
		return err
	}
	if newTask.TaskID == "" {
		return fmt.Errorf("%w: new task without id", peer.ErrDecode)
	}

	r.resetGameState()
	current, decision := r.config.Tracker.OnNewTask(newTask.TaskID, newTask.SessionKey)
	r.logger.Info("new task", "task_id", current.ID, "state", current.State)

	// Peers never see the session key.
	errs := []error{
		r.broadcastNew(peer.KindNewTask, peer.NewTaskPayload{TaskID: newTask.TaskID}, peer.ServiceRecognizer),
		r.sendDecision(decision),
	}
	return errors.Join(errs...)
}

func (r *Router) handleChangeGameState(envelope peer.Envelope) error {
	origin := peer.OriginClient
	if envelope.From != r.config.Gateway {
		if _, err := r.requireAnyPeer(envelope); err != nil {
			return err
		}
		origin = peer.OriginPeer
	}

	var change peer.ChangeGameStatePayload
	if err := envelope.DecodePayload(&change); err != nil {
		return err
	}
	signal, err := peer.ParseGameSignal(string(change.Signal))
	if err != nil {
		return fmt.Errorf("%w: %v", peer.ErrDecode, err)
	}
	return r.applySignal(signal, origin)
}

// applySignal runs signal through the state machine and delivers the
// transition's side effects: agent notices and the gateway's state
// mirror.
func (r *Router) applySignal(signal peer.GameSignal, origin peer.Origin) error {
	transition, err := r.config.Machine.Apply(signal, origin)
	if err != nil {
		return err
	}

	if transition.Held {
		r.logger.Info("holding running game state", "signal", signal)
	}

	var errs []error
	switch transition.Notice {
	case gamestate.NoticeStarted:
		errs = append(errs, r.broadcastNew(peer.KindGameStart, peer.GameNoticePayload{State: transition.To}, peer.ServiceAgent))
	case gamestate.NoticeOver:
		errs = append(errs, r.broadcastNew(peer.KindGameOver, peer.GameNoticePayload{State: transition.To}, peer.ServiceAgent))
	}

	if transition.Changed() {
		r.config.Metrics.Transition(transition.From, transition.To)
		r.logger.Info("game state changed", "from", transition.From, "to", transition.To, "signal", signal, "origin", origin)
		errs = append(errs, r.mirrorGameState(transition.To))
	}
	return errors.Join(errs...)
}

// mirrorGameState tells the gateway the current game state.
func (r *Router) mirrorGameState(state peer.GameState) error {
	return r.toGateway(peer.KindChangeGameState, peer.GameNoticePayload{State: state})
}

// resetGameState returns the machine to none and mirrors the change.
func (r *Router) resetGameState() {
	previous := r.config.Machine.Reset()
	if previous == peer.GameNone {
		return
	}
	r.config.Metrics.Transition(previous, peer.GameNone)
	if err := r.mirrorGameState(peer.GameNone); err != nil {
		r.logger.Warn("mirroring game state reset failed", "error", err)
	}
}

func (r *Router) handleAgentControl(envelope peer.Envelope) error {
	if err := r.requireGateway(envelope); err != nil {
		return err
	}
	r.logger.Info("relaying agent control", "kind", envelope.Kind)
	return r.broadcast(envelope, peer.ServiceAgent)
}

func (r *Router) handleRestart(envelope peer.Envelope) error {
	if err := r.requireGateway(envelope); err != nil {
		return err
	}

	r.resetGameState()
	r.config.Registry.ResetInitStatus()
	r.config.Tracker.Restart()
	r.logger.Info("restarting game", "task_id", r.config.Tracker.Current().ID)
	// Every peer whose init status was cleared must hear RESTART, or the
	// task can never become ready again.
	return r.broadcast(envelope, peer.ServiceRecognizer, peer.ServiceAgent, peer.ServiceUI)
}

func (r *Router) handleTestID(envelope peer.Envelope) error {
	if err := r.requireGateway(envelope); err != nil {
		return err
	}
	var testID peer.TestIDPayload
	if err := envelope.DecodePayload(&testID); err != nil {
		return err
	}

	r.config.Recorder.RecordTestID(testID)
	return r.broadcast(envelope, peer.ServiceAgent, peer.ServiceRecognizer)
}

// relayToGateway forwards peer status envelopes unchanged.
func (r *Router) relayToGateway(envelope peer.Envelope) error {
	if _, err := r.requireAnyPeer(envelope); err != nil {
		return err
	}
	return r.sender.Forward(r.config.Gateway, envelope)
}
