package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/storage"
)

const (
	wsReadTimeout  = 90 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// checkOrigin admits upgrades without an Origin header (non-browser
// clients) and browser upgrades from an allowed origin. CORS does not apply
// to websocket handshakes, so this is the only origin check they get.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		slog.Warn("websocket origin rejected", "origin", origin)
		return false
	}
}

// wsInbound is a client frame.
type wsInbound struct {
	Message string `json:"message"`
}

// wsOutbound is a server frame: a reply, the transcript on connect, or an
// error.
type wsOutbound struct {
	Type    string            `json:"type"`
	Reply   *pipeline.Reply   `json:"reply,omitempty"`
	History []storage.Message `json:"history,omitempty"`
	Error   *apiError         `json:"error,omitempty"`
}

// handleChatSocket runs a chat session over a websocket. Each inbound frame
// is one turn; turns are handled in order.
func handleChatSocket(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		view, err := deps.Service.Session(r.Context(), id)
		if err != nil {
			serviceError(w, err)
			return
		}

		upgrader := websocket.Upgrader{CheckOrigin: checkOrigin(deps.AllowedOrigins)}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "session_id", id, "error", err)
			return
		}
		defer conn.Close()

		logger := slog.With("session_id", id, "remote", r.RemoteAddr)
		logger.Debug("websocket connected")

		conn.SetReadLimit(maxRequestBodySize)
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
						return
					}
				}
			}
		}()

		if err := send(conn, wsOutbound{Type: "history", History: view.ConversationHistory}); err != nil {
			return
		}

		ctx := r.Context()
		for {
			var in wsInbound
			if err := conn.ReadJSON(&in); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn("websocket read failed", "error", err)
				}
				return
			}

			reply, err := deps.Service.Chat(ctx, id, in.Message)
			out := wsOutbound{Type: "reply", Reply: &reply}
			if err != nil {
				logger.Error("websocket chat turn failed", "error", err)
				out = wsOutbound{Type: "error", Error: &apiError{Message: "failed to process message", Type: "api_error"}}
			}
			if err := send(conn, out); err != nil {
				return
			}
		}
	}
}

func send(conn *websocket.Conn, v wsOutbound) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
