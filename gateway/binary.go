// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/lib/netutil"
)

// writeTimeout bounds one outbound frame. A client that stops reading
// for this long is disconnected rather than stalling the gateway loop.
const writeTimeout = 10 * time.Second

// BinaryServer serves the framed binary client protocol over TCP. One
// client is active at a time; a new connection replaces the old one.
type BinaryServer struct {
	gateway *Gateway
	logger  *slog.Logger

	mu      sync.Mutex
	current net.Conn
}

func NewBinaryServer(gateway *Gateway, logger *slog.Logger) *BinaryServer {
	return &BinaryServer{gateway: gateway, logger: logger.With("channel", "binary")}
}

// Serve accepts connections on listener until ctx is cancelled. The
// listener is closed on return.
func (s *BinaryServer) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
		s.mu.Lock()
		if s.current != nil {
			s.current.Close()
		}
		s.mu.Unlock()
	}()

	s.logger.Info("binary client channel listening", "address", listener.Addr().String())

	var connections sync.WaitGroup
	defer connections.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.replace(conn)
		connections.Add(1)
		go func() {
			defer connections.Done()
			s.serveConnection(conn)
		}()
	}
}

func (s *BinaryServer) replace(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.logger.Info("closing previous client connection", "remote", s.current.RemoteAddr().String())
		s.current.Close()
	}
	s.current = conn
}

func (s *BinaryServer) serveConnection(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	client := &binaryClient{conn: conn}
	detach := s.gateway.Attach(client)
	defer func() {
		detach()
		conn.Close()
		s.mu.Lock()
		if s.current == conn {
			s.current = nil
		}
		s.mu.Unlock()
		s.logger.Info("client disconnected", "remote", remote)
	}()
	s.logger.Info("client connected", "remote", remote)

	for {
		message, err := clientproto.ReadMessage(conn)
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				s.logger.Warn("reading client message failed", "remote", remote, "error", err)
			}
			return
		}

		reply, err := s.gateway.HandleClientMessage(message)
		if err != nil {
			s.logger.Debug("client message not handled", "type", message.Type, "error", err)
		}
		if reply == nil {
			continue
		}
		if err := client.Deliver(*reply); err != nil {
			s.logger.Warn("writing reply failed", "remote", remote, "error", err)
			return
		}
	}
}

// binaryClient is the Sink for one TCP connection.
type binaryClient struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *binaryClient) Deliver(outbound Outbound) error {
	message, err := clientproto.Encode(outbound.Type, outbound.Body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	return clientproto.WriteMessage(c.conn, message)
}

// HandleClientMessage decodes one binary client message and runs it.
// The returned reply, if any, goes back to the same client. Messages
// that never reply (CLIENT_DATA, and anything with an unknown type)
// return nil.
func (g *Gateway) HandleClientMessage(message clientproto.Message) (*Outbound, error) {
	switch message.Type {
	case clientproto.TypeClientData:
		var data clientproto.ClientData
		if err := message.Decode(&data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		return nil, g.OnClientFrameData(data)

	case clientproto.TypeClientRequest:
		var request clientproto.ClientRequest
		if err := message.Decode(&request); err != nil {
			return reply(clientproto.TypeClientReply, invalidParam(err)), err
		}
		return reply(clientproto.TypeClientReply, g.OnClientRequest(request)), nil

	case clientproto.TypeControlRequest:
		var request clientproto.ControlRequest
		if err := message.Decode(&request); err != nil {
			return reply(clientproto.TypeControlReply, clientproto.ControlReply{
				Code:    clientproto.CodeInvalidParam,
				Message: err.Error(),
			}), err
		}
		return reply(clientproto.TypeControlReply, g.Control(request)), nil

	case clientproto.TypeChangeGameState:
		var request clientproto.ChangeGameState
		if err := message.Decode(&request); err != nil {
			return reply(clientproto.TypeClientReply, invalidParam(err)), err
		}
		return reply(clientproto.TypeClientReply, g.OnClientChangeGameState(request)), nil

	case clientproto.TypePause, clientproto.TypeRestore, clientproto.TypeRestart:
		var request clientproto.KeyOnly
		if err := message.Decode(&request); err != nil {
			return reply(clientproto.TypeClientReply, invalidParam(err)), err
		}
		var result clientproto.ClientReply
		switch message.Type {
		case clientproto.TypePause:
			result = g.OnClientPause(request.Key)
		case clientproto.TypeRestore:
			result = g.OnClientRestore(request.Key)
		default:
			result = g.OnClientRestart(request.Key)
		}
		return reply(clientproto.TypeClientReply, result), nil

	case clientproto.TypeSourceRequest:
		var request clientproto.SourceRequest
		if err := message.Decode(&request); err != nil {
			return reply(clientproto.TypeSourceReply, clientproto.SourceReply{Code: clientproto.CodeInvalidParam}), err
		}
		return reply(clientproto.TypeSourceReply, g.SourceInfo(request)), nil

	default:
		g.logger.Warn("unknown client message type", "type", message.Type)
		return nil, fmt.Errorf("%w: message type %s", ErrInvalidParam, message.Type)
	}
}

func reply(messageType clientproto.MessageType, body any) *Outbound {
	return &Outbound{Type: messageType, Body: body}
}

func invalidParam(err error) clientproto.ClientReply {
	return clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()}
}
