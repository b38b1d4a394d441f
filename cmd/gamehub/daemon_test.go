// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/lib/config"
	"github.com/bureau-foundation/gamehub/lib/testutil"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/transport"
)

// simulatedPeer drives one peer address on the daemon's bus.
type simulatedPeer struct {
	t       *testing.T
	bus     transport.Transport
	address transport.Address
	sender  peer.Sender
}

func newSimulatedPeer(t *testing.T, bus transport.Transport, address transport.Address) *simulatedPeer {
	t.Helper()
	if err := bus.Bind(address); err != nil {
		t.Fatalf("Bind %s: %v", address, err)
	}
	return &simulatedPeer{
		t:       t,
		bus:     bus,
		address: address,
		sender:  peer.Sender{Bus: bus, Codec: peer.CBORCodec{}, Local: address},
	}
}

// send retries until the hub has bound its address.
func (p *simulatedPeer) send(kind peer.Kind, payload any) {
	p.t.Helper()
	testutil.Eventually(p.t, 5*time.Second, func() bool {
		err := p.sender.Send("hub", kind, payload)
		return !errors.Is(err, transport.ErrUnknownAddress)
	}, "hub never bound")
}

// await polls until an envelope of kind arrives, discarding others.
func (p *simulatedPeer) await(kind peer.Kind) peer.Envelope {
	p.t.Helper()
	var found *peer.Envelope
	testutil.Eventually(p.t, 5*time.Second, func() bool {
		messages, _ := p.bus.PollRecv(p.address)
		for _, message := range messages {
			envelope, err := peer.CBORCodec{}.Decode(message)
			if err == nil && envelope.Kind == kind && found == nil {
				found = &envelope
			}
		}
		return found != nil
	}, "%s never received %s", p.address, kind)
	return *found
}

type client struct {
	t    *testing.T
	conn net.Conn
}

func (c *client) write(messageType clientproto.MessageType, body any) {
	c.t.Helper()
	message, err := clientproto.Encode(messageType, body)
	if err != nil {
		c.t.Fatal(err)
	}
	if err := clientproto.WriteMessage(c.conn, message); err != nil {
		c.t.Fatal(err)
	}
}

// readUntil skips messages until one of messageType arrives and
// decodes it into target.
func (c *client) readUntil(messageType clientproto.MessageType, target any) {
	c.t.Helper()
	for {
		message, err := clientproto.ReadMessage(c.conn)
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", messageType, err)
		}
		if message.Type == messageType {
			if err := message.Decode(target); err != nil {
				c.t.Fatal(err)
			}
			return
		}
	}
}

func TestDaemonEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Recorder.Kind = "none"
	cfg.Merge.UI = "reset_on_finish"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	_, logger := testutil.NewLogRecorder()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	t.Cleanup(d.close)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, listeners{Client: listener}) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "daemon did not stop"); err != nil {
			t.Errorf("run: %v", err)
		}
	})

	conn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	c := &client{t: t, conn: conn}

	c.write(clientproto.TypeControlRequest, clientproto.ControlRequest{Command: clientproto.CommandNewTask, TaskID: "e2e"})
	var control clientproto.ControlReply
	c.readUntil(clientproto.TypeControlReply, &control)
	if control.Code != clientproto.CodeOK {
		t.Fatalf("control reply = %+v", control)
	}

	ui := newSimulatedPeer(t, d.bus, "ui-0")
	agent := newSimulatedPeer(t, d.bus, "agent-0")
	recognizer := newSimulatedPeer(t, d.bus, "recognizer-0")
	for service, p := range map[peer.ServiceKind]*simulatedPeer{
		peer.ServiceUI: ui, peer.ServiceAgent: agent, peer.ServiceRecognizer: recognizer,
	} {
		p.send(peer.KindServiceRegister, peer.RegisterPayload{Service: service, Op: peer.RegisterJoin})
	}

	var services clientproto.ServiceState
	c.readUntil(clientproto.TypeServiceState, &services)
	if !services.Ready {
		t.Fatalf("service state = %+v", services)
	}

	for _, p := range []*simulatedPeer{ui, agent, recognizer} {
		p.send(peer.KindTaskReport, peer.TaskReportPayload{TaskID: "e2e", Status: peer.InitSuccess})
	}
	var report clientproto.Report
	for report.TaskState != "ready" {
		c.readUntil(clientproto.TypeReport, &report)
	}

	c.write(clientproto.TypeClientData, clientproto.ClientData{Key: control.Key, FrameSeq: 1, Image: []byte{5}})
	frame := recognizer.await(peer.KindSourceImage)
	if frame.From != "hub" {
		t.Errorf("frame from %q", frame.From)
	}

	agent.send(peer.KindAIAction, peer.ActionPayload{FrameSeq: 1, Actions: []peer.Action{{Type: peer.ActionClick, Points: []peer.Point{{X: 3, Y: 4}}}}})
	var action clientproto.UIAction
	c.readUntil(clientproto.TypeUIAction, &action)
	if action.Source != clientproto.SourceAI || len(action.Actions) != 1 || action.Actions[0].Type != "click" {
		t.Errorf("action = %+v", action)
	}

	ui.send(peer.KindUIAction, peer.ActionPayload{FrameSeq: 1, Signal: peer.SignalStart, Actions: []peer.Action{{Type: peer.ActionNone}}})
	c.readUntil(clientproto.TypeUIAction, &action)
	c.readUntil(clientproto.TypeReport, &report)
	if report.GameState != string(peer.GameRunning) {
		t.Errorf("report after start = %+v", report)
	}
	agent.await(peer.KindGameStart)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gamehub.yaml")
	if err := os.WriteFile(path, []byte("run_mode: ai\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.EnvironmentVariable, "")
	cfg, err := loadConfig("")
	if err != nil || cfg.RunMode != config.Default().RunMode {
		t.Fatalf("defaults: %v %v", cfg, err)
	}

	t.Setenv(config.EnvironmentVariable, path)
	if cfg, err = loadConfig(""); err != nil || cfg.RunMode != "ai" {
		t.Fatalf("environment: %v %v", cfg, err)
	}

	if _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing --config file accepted")
	}
}

func TestRunFlags(t *testing.T) {
	if err := run([]string{"--version"}); err != nil {
		t.Errorf("--version: %v", err)
	}
	if err := run([]string{"extra"}); err == nil {
		t.Error("positional argument accepted")
	}
	if err := run([]string{"--no-such-flag"}); err == nil {
		t.Error("unknown flag accepted")
	}
}
