// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpchannel

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/gateway"
	"github.com/bureau-foundation/gamehub/lib/metrics"
)

// Config holds a Server's collaborators. Gateway and Logger are
// required.
type Config struct {
	Gateway *gateway.Gateway

	// Gatherer, when set, is served at GET /metrics.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the HTTP client channel.
type Server struct {
	gateway  *gateway.Gateway
	logger   *slog.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu     sync.Mutex
	stream *websocket.Conn
}

func New(config Config) (*Server, error) {
	if config.Gateway == nil {
		return nil, errors.New("httpchannel: Gateway is required")
	}
	if config.Logger == nil {
		return nil, errors.New("httpchannel: Logger is required")
	}

	s := &Server{
		gateway: config.Gateway,
		logger:  config.Logger.With("channel", "http"),
		upgrader: websocket.Upgrader{
			// The client is a local test driver, not a browser page.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.logRequests)

	v1 := engine.Group("/v1")
	v1.POST("/frames", s.postFrame)
	v1.POST("/requests", s.postRequest)
	v1.POST("/control", s.postControl)
	v1.POST("/game-state", s.postGameState)
	v1.POST("/pause", s.postKeyOnly(s.gateway.OnClientPause))
	v1.POST("/restore", s.postKeyOnly(s.gateway.OnClientRestore))
	v1.POST("/restart", s.postKeyOnly(s.gateway.OnClientRestart))
	v1.POST("/source", s.postSource)
	v1.GET("/stream", s.getStream)

	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if config.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler(config.Gatherer)))
	}

	s.engine = engine
	return s, nil
}

// Handler returns the routes, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve answers requests on listener until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(listener)
	}()
	s.logger.Info("http client channel listening", "address", listener.Addr().String())

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	s.closeStream()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("http request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

// status maps a reply code to the HTTP status the reply is sent with.
// The body always carries the code itself.
func status(code clientproto.ReplyCode) int {
	switch code {
	case clientproto.CodeOK:
		return http.StatusOK
	case clientproto.CodeInvalidKey:
		return http.StatusForbidden
	case clientproto.CodeNoTask:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// badBody answers a request whose JSON did not decode.
func (s *Server) badBody(c *gin.Context, err error, body any) {
	s.logger.Debug("rejecting malformed request body", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, body)
}

func (s *Server) postFrame(c *gin.Context) {
	var data clientproto.ClientData
	if err := c.ShouldBindJSON(&data); err != nil {
		s.badBody(c, err, clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()})
		return
	}
	err := s.gateway.OnClientFrameData(data)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, clientproto.ClientReply{Code: clientproto.CodeOK})
	case errors.Is(err, gateway.ErrInvalidKey):
		c.JSON(http.StatusForbidden, clientproto.ClientReply{Code: clientproto.CodeInvalidKey})
	default:
		c.JSON(http.StatusBadRequest, clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()})
	}
}

func (s *Server) postRequest(c *gin.Context) {
	var request clientproto.ClientRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.badBody(c, err, clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()})
		return
	}
	reply := s.gateway.OnClientRequest(request)
	c.JSON(status(reply.Code), reply)
}

func (s *Server) postControl(c *gin.Context) {
	var request clientproto.ControlRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.badBody(c, err, clientproto.ControlReply{Code: clientproto.CodeInvalidParam, Message: err.Error()})
		return
	}
	reply := s.gateway.Control(request)
	c.JSON(status(reply.Code), reply)
}

func (s *Server) postGameState(c *gin.Context) {
	var request clientproto.ChangeGameState
	if err := c.ShouldBindJSON(&request); err != nil {
		s.badBody(c, err, clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()})
		return
	}
	reply := s.gateway.OnClientChangeGameState(request)
	c.JSON(status(reply.Code), reply)
}

func (s *Server) postKeyOnly(operation func(key string) clientproto.ClientReply) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request clientproto.KeyOnly
		if err := c.ShouldBindJSON(&request); err != nil {
			s.badBody(c, err, clientproto.ClientReply{Code: clientproto.CodeInvalidParam, Message: err.Error()})
			return
		}
		reply := operation(request.Key)
		c.JSON(status(reply.Code), reply)
	}
}

func (s *Server) postSource(c *gin.Context) {
	var request clientproto.SourceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.badBody(c, err, clientproto.SourceReply{Code: clientproto.CodeInvalidParam})
		return
	}
	reply := s.gateway.SourceInfo(request)
	c.JSON(status(reply.Code), reply)
}
