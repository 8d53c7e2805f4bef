package relay

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/voxpipe/voice-relay/internal/config"
	"github.com/voxpipe/voice-relay/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from arbitrary origins during development.
		// Lock this down before exposing the relay publicly.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// HandleClientWS upgrades a browser connection and runs its relay session
// until the client disconnects or the transcription stream fails.
func HandleClientWS(cfg *config.Config, providers Providers) http.HandlerFunc {
	logger := observability.WithComponent("relay")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		session := NewSession(conn, providers, cfg)
		defer session.Teardown()

		session.logger.Info().Str("remote", r.RemoteAddr).Msg("Client connected")

		for {
			msgType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					session.logger.Warn().Err(err).Msg("WebSocket read error")
				}
				return
			}

			switch msgType {
			case websocket.BinaryMessage:
				if err := session.HandleFrame(r.Context(), message); err != nil {
					if errors.Is(err, ErrSessionClosed) {
						return
					}
					// The session reports stream failures to the client
					// and tears itself down; keep reading until the closed
					// connection surfaces in ReadMessage.
					session.logger.Error().Err(err).Msg("Failed to process audio frame")
				}
			case websocket.TextMessage:
				session.HandleText(message)
			default:
				session.logger.Debug().Int("message_type", msgType).Msg("Ignoring client control message")
			}
		}
	}
}
