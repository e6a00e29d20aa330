package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vancomm/minefield/internal/commands"
	"github.com/vancomm/minefield/internal/mines"
)

// WSReply answers one batch of commands. Lines before a rejected one stay
// applied, so the view is sent along with the error.
type WSReply struct {
	Error string `json:"error,omitempty"`
	*GameView
}

// ConnectWS plays a session over a WebSocket. Every text message is a batch
// of command lines and is answered with a [WSReply].
func (h GameHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	c, err := h.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("unable to upgrade", slog.Any("error", err))
		return
	}
	defer c.Close()

	c.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.ping(c, done)

	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("abnormal ws break", slog.Any("error", err))
			}
			return
		}
		if mt != websocket.TextMessage {
			return
		}
		text := strings.TrimSpace(string(message))
		h.logger.Debug("ws command", slog.String("session", session.ID), slog.String("text", text))

		view, err := h.play(r.Context(), session, func(g *mines.Game) error {
			return commands.ExecuteAll(g, text)
		})

		reply := WSReply{GameView: view}
		if err != nil {
			reply.Error = err.Error()
		}

		c.SetWriteDeadline(time.Now().Add(h.ws.WriteWait))
		if err := c.WriteJSON(reply); err != nil {
			h.logger.Error("unable to write json", slog.Any("error", err))
			return
		}
	}
}

func (h GameHandler) ping(c *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.ws.PongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(h.ws.WriteWait)
			if err := c.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
