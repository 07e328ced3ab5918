package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebsocket is the publish path: resolve one game by id or access
// code, send its current snapshot, then stream a fresh snapshot on
// every change until the client goes away.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.FindByIDOrCode(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.log.Info("ws connected",
		zap.String("game_id", g.ID),
		zap.String("remote", r.RemoteAddr))

	sub := s.store.Watch(g.ID)
	if err := conn.WriteJSON(g); err != nil {
		sub.Cancel()
		_ = conn.Close()
		return
	}

	go func() {
		defer func() {
			sub.Cancel()
			_ = conn.Close()
		}()
		for snapshot := range sub.C {
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
		}
	}()

	go func() {
		defer sub.Cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.log.Info("ws disconnected",
					zap.String("game_id", g.ID),
					zap.Error(err))
				return
			}
		}
	}()
}
