// apps/go-server/internal/httpserver/ws.go
//
// The /ws game socket. One read pump and one write pump per connection:
//   - the read pump decodes frames and hands them to the engine; any read
//     error (close, timeout, network) is a disconnect.
//   - the write pump drains the client's send buffer and keeps the socket
//     alive with pings.

package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/cardduel/apps/go-server/internal/auth"
	"github.com/robalobadob/cardduel/apps/go-server/internal/protocol"
	"github.com/robalobadob/cardduel/apps/go-server/internal/session"
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	profile := s.wsProfile(r)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Msg("ws upgrade")
		return
	}
	c := s.opts.Hub.register(uuid.NewString(), ws)
	log.Info().Str("conn", c.id).Str("user", profile.UserID).Msg("socket connected")

	s.opts.Game.Connect(c.id, profile)
	go writePump(c)
	s.readPump(c)
}

// wsProfile resolves the optional identity of a socket. Browsers cannot
// set headers on a WebSocket, so the token may also come from the cookie
// or ?token=.
func (s *Server) wsProfile(r *http.Request) session.Profile {
	if s.opts.Auth == nil {
		return session.Profile{}
	}
	tok := auth.TokenFromRequest(r, s.opts.CookieName)
	if tok == "" {
		return session.Profile{}
	}
	claims, err := s.opts.Auth.Verify(r.Context(), tok)
	if err != nil {
		log.Debug().Err(err).Msg("ws token rejected, playing as guest")
		return session.Profile{}
	}
	return session.Profile{UserID: claims.ID, Name: claims.Username}
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.opts.Hub.unregister(c)
		s.opts.Game.Disconnect(c.id)
		s.opts.Hub.release()
		_ = c.ws.Close()
		log.Info().Str("conn", c.id).Msg("socket disconnected")
	}()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", c.id).Msg("ws read")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		in, err := protocol.Decode(data)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("rejected frame")
			s.opts.Hub.Send(c.id, protocol.ErrorMessage{Message: err.Error()})
			continue
		}
		s.opts.Game.Handle(c.id, in)
	}
}

func writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
