// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpchannel

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/gamehub/gateway"
)

const writeTimeout = 10 * time.Second

// StreamMessage is one outbound message on /v1/stream.
type StreamMessage struct {
	Type string `json:"type"`
	Body any    `json:"body,omitempty"`
}

// streamSink is the gateway Sink for one websocket.
type streamSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *streamSink) Deliver(outbound gateway.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	return s.conn.WriteJSON(StreamMessage{Type: outbound.Type.String(), Body: outbound.Body})
}

func (s *Server) getStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	remote := conn.RemoteAddr().String()

	detach := s.gateway.Attach(&streamSink{conn: conn})
	s.replaceStream(conn)
	defer func() {
		detach()
		conn.Close()
		s.mu.Lock()
		if s.stream == conn {
			s.stream = nil
		}
		s.mu.Unlock()
		s.logger.Info("stream client disconnected", "remote", remote)
	}()
	s.logger.Info("stream client connected", "remote", remote)

	// The stream is push-only. Reading drives ping/pong and close
	// handling; anything the client sends is discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("stream read ended", "remote", remote, "error", err)
			}
			return
		}
	}
}

func (s *Server) replaceStream(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.logger.Info("closing previous stream client", "remote", s.stream.RemoteAddr().String())
		s.stream.Close()
	}
	s.stream = conn
}

func (s *Server) closeStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
}
