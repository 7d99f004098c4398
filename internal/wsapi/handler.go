// Package wsapi mounts the WebSocket endpoint and a liveness probe.
package wsapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/relaychat/server/internal/auth"
	"github.com/relaychat/server/internal/chatserver"
	"github.com/relaychat/server/internal/session"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is handled by the chi middleware in front of this handler.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler serves GET /ws/{token}.
type Handler struct {
	authenticator auth.Authenticator
	chatServer    *chatserver.Handle
	sessionCfg    session.Config
	log           zerolog.Logger
}

func NewHandler(authenticator auth.Authenticator, chatServer *chatserver.Handle, sessionCfg session.Config, log zerolog.Logger) *Handler {
	return &Handler{
		authenticator: authenticator,
		chatServer:    chatServer,
		sessionCfg:    sessionCfg,
		log:           log,
	}
}

// ServeWS upgrades the connection first, then authenticates the token; on
// failure the connection is closed immediately without spawning a session
// loop (Open Question (b): matches the original's post-upgrade ordering).
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	user, err := h.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		h.log.Warn().Err(err).Msg("authentication failed, closing connection")
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	h.log.Info().Str("session_id", user.ID).Msg("session connected")
	session.Serve(context.Background(), conn, user.ID, user.DisplayName, h.chatServer, h.sessionCfg, h.log)
}
