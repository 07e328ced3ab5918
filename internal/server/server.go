package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/pmulch/gamekit/internal/config"
	"github.com/pmulch/gamekit/internal/game"
	"github.com/pmulch/gamekit/internal/store"
)

// Server exposes the game framework's server-authority surface: game
// creation, the join workflow, access-code generation, host lifecycle
// operations, and the live-document publish endpoint.
type Server struct {
	store *store.Store
	ctrl  *game.Controller
	codes *Codes
	cfg   config.Config
	log   *zap.Logger
}

func New(docs *store.Store, cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	codes := NewCodes(docs)
	return &Server{
		store: docs,
		ctrl:  game.NewController(docs, codes),
		cfg:   cfg,
		codes: codes,
		log:   log,
	}
}

// Controller returns the server's controller so embedding games can
// register their own state handlers.
func (s *Server) Controller() *game.Controller {
	return s.ctrl
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("POST /api/games/join", s.handleJoin)
	mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	mux.HandleFunc("POST /api/games/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /api/games/{id}/end", s.handleEnd)
	mux.HandleFunc("POST /api/games/{id}/players/{playerID}/ready", s.handleReady)
	mux.HandleFunc("DELETE /api/games/{id}/players/{playerID}", s.handleRemovePlayer)
	mux.HandleFunc("GET /api/access-code", s.handleAccessCode)
	mux.HandleFunc("GET /ws/games/{id}", s.handleWebsocket)
	mux.HandleFunc("GET /games/{id}/qr", s.handleQR)
	return mux
}
