// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/xelfe/geekcraft/internal/auth"
)

// wsWriteTimeout bounds each outbound frame write.
const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bearer token, not the origin, is the authentication boundary.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsMessage is the envelope for every client frame.
type wsMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// wsGate guards a single websocket connection. It starts unauthenticated
// and flips to authenticated exactly once, on a successful auth message;
// the bound username then holds for the socket's lifetime.
type wsGate struct {
	server        *Server
	conn          *websocket.Conn
	authenticated bool
	username      string
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.metrics.WebsocketOpened()
	defer s.metrics.WebsocketClosed()
	defer conn.Close() //nolint:errcheck

	gate := &wsGate{server: s, conn: conn}
	gate.run(c)
}

func (g *wsGate) run(c *gin.Context) {
	g.send(map[string]any{
		"type":    "welcome",
		"message": "Welcome to GeekCraft. Authenticate to play.",
	})

	for {
		_, data, err := g.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.server.logger.Debug("websocket closed", "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Fail-soft: the connection survives a malformed frame.
			g.send(map[string]any{"type": "error", "message": "Invalid message"})
			continue
		}

		g.dispatch(c, msg)
	}
}

func (g *wsGate) dispatch(c *gin.Context, msg wsMessage) {
	if msg.Type == "auth" {
		g.handleAuth(c, msg.Token)
		return
	}

	if !g.authenticated {
		g.send(map[string]any{"type": "error", "message": "Authentication required"})
		return
	}

	switch msg.Type {
	case "getPlayers":
		g.send(map[string]any{
			"type":    "playersResponse",
			"players": g.server.sandbox.Players(),
		})
	case "getGameState":
		g.send(map[string]any{
			"type":    "gameStateResponse",
			"tick":    g.server.world.Tick(),
			"players": g.server.sandbox.Players(),
		})
	default:
		// Unknown command types are logged and ignored rather than fatal.
		g.server.logger.Debug("unknown websocket command", "type", msg.Type, "username", g.username)
	}
}

// handleAuth validates the token once. Failure keeps the connection open
// and the state unauthenticated so the client can retry.
func (g *wsGate) handleAuth(c *gin.Context, token string) {
	if g.authenticated {
		g.send(map[string]any{
			"type":     "authResponse",
			"success":  true,
			"username": g.username,
		})
		return
	}

	username, err := g.server.authService.Validate(c.Request.Context(), token)
	if err != nil {
		message := "Invalid or expired session"
		if errors.Is(err, auth.ErrUnavailable) {
			g.server.logger.Error("websocket auth failed", "error", err)
			g.server.metrics.RecordStoreError("validate")
			message = "Internal server error"
		} else {
			g.server.metrics.RecordAuthAttempt("validate", "failure")
		}
		g.send(map[string]any{
			"type":    "authResponse",
			"success": false,
			"message": message,
		})
		return
	}

	g.authenticated = true
	g.username = username
	g.server.metrics.RecordAuthAttempt("validate", "success")
	g.server.logger.Info("websocket authenticated", "username", username)

	g.send(map[string]any{
		"type":     "authResponse",
		"success":  true,
		"username": username,
	})
}

func (g *wsGate) send(payload map[string]any) {
	_ = g.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := g.conn.WriteJSON(payload); err != nil {
		g.server.logger.Debug("websocket write failed", "error", err)
	}
}
