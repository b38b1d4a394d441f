// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/gamehub/lib/codec"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/transport"
)

type mockConfig struct {
	Bus      transport.Transport
	Local    transport.Address
	Hub      transport.Address
	Service  peer.ServiceKind
	FailInit bool
	Logger   *slog.Logger
}

// mockPeer answers hub traffic for one role. It is driven by a single
// receive loop.
type mockPeer struct {
	config mockConfig
	sender peer.Sender
	codec  peer.Codec
	logger *slog.Logger

	// startPending makes the UI role send the start signal on the
	// next frame.
	startPending bool
	paused       bool
}

func newMockPeer(config mockConfig) *mockPeer {
	codec := peer.CBORCodec{}
	m := &mockPeer{
		config: config,
		sender: peer.Sender{Bus: config.Bus, Codec: codec, Local: config.Local},
		codec:  codec,
		logger: config.Logger,
	}
	m.startPending = true
	return m
}

// Run binds, registers, and answers hub traffic until ctx is
// cancelled, then unregisters.
func (m *mockPeer) Run(ctx context.Context, receive transport.ReceiveConfig) error {
	if err := m.config.Bus.Bind(m.config.Local); err != nil {
		return fmt.Errorf("binding %s: %w", m.config.Local, err)
	}
	if err := m.join(); err != nil {
		return err
	}
	m.logger.Info("registered with hub", "address", m.config.Local, "hub", m.config.Hub)

	err := transport.Receive(ctx, m.config.Bus, m.config.Local, receive, m.handleMessage)

	if leaveErr := m.send(peer.KindServiceRegister, peer.RegisterPayload{Service: m.config.Service, Op: peer.RegisterLeave}); leaveErr != nil {
		m.logger.Warn("unregistering failed", "error", leaveErr)
	}
	return err
}

// join registers and reports init status. The hub keeps a report that
// arrives before any task.
func (m *mockPeer) join() error {
	if err := m.send(peer.KindServiceRegister, peer.RegisterPayload{Service: m.config.Service, Op: peer.RegisterJoin}); err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	return m.reportInit("")
}

func (m *mockPeer) send(kind peer.Kind, payload any) error {
	return m.sender.Send(m.config.Hub, kind, payload)
}

func (m *mockPeer) reportInit(taskID string) error {
	report := peer.TaskReportPayload{TaskID: taskID, Status: peer.InitSuccess}
	if m.config.FailInit {
		report.Status = peer.InitFailure
		report.Message = "mock configured to fail"
	}
	return m.send(peer.KindTaskReport, report)
}

func (m *mockPeer) handleMessage(data []byte) {
	envelope, err := m.codec.Decode(data)
	if err != nil {
		m.logger.Warn("dropping undecodable envelope", "error", err)
		return
	}
	if err := m.handle(envelope); err != nil {
		m.logger.Warn("handling envelope failed", "kind", envelope.Kind, "error", err)
	}
}

func (m *mockPeer) handle(envelope peer.Envelope) error {
	m.logger.Debug("received", "kind", envelope.Kind)
	switch envelope.Kind {
	case peer.KindNewTask:
		var task peer.NewTaskPayload
		if err := envelope.DecodePayload(&task); err != nil {
			return err
		}
		m.startPending = true
		return m.reportInit(task.TaskID)

	case peer.KindSourceImage:
		var frame peer.FramePayload
		if err := envelope.DecodePayload(&frame); err != nil {
			return err
		}
		return m.onFrame(frame)

	case peer.KindGameResult:
		if m.config.Service != peer.ServiceAgent || m.paused {
			return nil
		}
		var result peer.ResultPayload
		if err := envelope.DecodePayload(&result); err != nil {
			return err
		}
		return m.send(peer.KindAIAction, peer.ActionPayload{
			FrameSeq:    result.FrameSeq,
			DeviceIndex: result.DeviceIndex,
			Actions:     []peer.Action{{Type: peer.ActionClick, Points: []peer.Point{{X: 100, Y: 100}}}},
		})

	case peer.KindPauseAgent:
		m.paused = true
		return nil
	case peer.KindRestoreAgent:
		m.paused = false
		return nil

	case peer.KindRestart:
		m.startPending = true
		if err := m.send(peer.KindRestartResult, peer.RestartResultPayload{Service: m.config.Service, OK: true}); err != nil {
			return err
		}
		return m.reportInit("")

	case peer.KindGameStart, peer.KindGameOver:
		var notice peer.GameNoticePayload
		if err := envelope.DecodePayload(&notice); err != nil {
			return err
		}
		m.logger.Info("game state notice", "state", notice.State)
		return nil

	default:
		return nil
	}
}

func (m *mockPeer) onFrame(frame peer.FramePayload) error {
	switch m.config.Service {
	case peer.ServiceRecognizer:
		result, err := codec.Marshal(map[string]any{"score": frame.FrameSeq, "alive": true})
		if err != nil {
			return err
		}
		return m.send(peer.KindGameResult, peer.ResultPayload{
			FrameSeq:    frame.FrameSeq,
			DeviceIndex: frame.DeviceIndex,
			Result:      result,
		})

	case peer.ServiceUI:
		signal := peer.SignalNone
		if m.startPending {
			signal = peer.SignalStart
			m.startPending = false
		}
		return m.send(peer.KindUIAction, peer.ActionPayload{
			FrameSeq:    frame.FrameSeq,
			DeviceIndex: frame.DeviceIndex,
			Signal:      signal,
			Actions:     []peer.Action{{Type: peer.ActionClick, Points: []peer.Point{{X: frame.Width / 2, Y: frame.Height / 2}}}},
		})

	default:
		return nil
	}
}
