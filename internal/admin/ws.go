package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Diagnostics-only endpoint, not a public API: allow any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStreamEnvironment upgrades to a WebSocket and relays every effect
// broadcast by the named environment as it is delivered, by taking its own
// tap on the environment's fan-out — the same mechanism a joined Entity
// uses, just a diagnostics-only subscriber.
func (s *Server) handleStreamEnvironment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	env, ok := s.sv.Environment(name)
	if !ok {
		http.Error(w, "unknown environment", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := env.Subscribe()
	defer env.Unsubscribe(ch)

	for eff := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(eff.String())); err != nil {
			return
		}
	}
}
