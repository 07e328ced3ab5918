package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pmulch/gamekit/internal/game"
)

type createRequest struct {
	Name string `json:"name"`
}

type joinRequest struct {
	AccessCode string `json:"access_code"`
	Name       string `json:"name"`
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := readJSON(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidParameters, "malformed request body")
			return
		}
	}

	overrides := map[string]any{}
	if req.Name != "" {
		overrides["name"] = req.Name
	}
	g := s.ctrl.Create(overrides)
	if err := g.Save(); err != nil {
		s.log.Error("game create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create game")
		return
	}
	if err := s.ctrl.GenerateAccessCode(r.Context(), g); err != nil {
		if errors.Is(err, game.ErrTooManyAttempts) {
			writeError(w, http.StatusServiceUnavailable, codeTooManyAttempts, err.Error())
			return
		}
		s.log.Error("access code generation failed", zap.String("game_id", g.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to generate access code")
		return
	}
	s.log.Info("game created",
		zap.String("game_id", g.ID),
		zap.String("access_code", g.AccessCode))
	writeJSON(w, http.StatusCreated, map[string]string{
		"game_id":     g.ID,
		"host_id":     g.Host.ID,
		"access_code": g.AccessCode,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParameters, "malformed request body")
		return
	}
	g, ok := s.store.FindJoinable(req.AccessCode)
	if !ok {
		writeError(w, http.StatusNotFound, codeGameNotFound,
			"no active game in the lobby state was found with the specified access code")
		return
	}
	player, err := g.AddPlayer(game.Player{Name: req.Name})
	if err != nil {
		s.log.Error("join failed", zap.String("game_id", g.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to add player")
		return
	}
	s.log.Info("player joined",
		zap.String("game_id", g.ID),
		zap.String("player_id", player.ID))
	writeJSON(w, http.StatusOK, map[string]string{
		"game_id":   g.ID,
		"player_id": player.ID,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.FindByIDOrCode(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, codeGameNotFound, "no such game")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, codeGameNotFound, "no such game")
		return
	}
	if err := s.ctrl.Reset(g); err != nil {
		s.log.Error("reset failed", zap.String("game_id", g.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to reset game")
		return
	}
	s.log.Info("game reset", zap.String("game_id", g.ID))
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, codeGameNotFound, "no such game")
		return
	}
	if err := s.ctrl.End(g); err != nil {
		s.log.Error("end failed", zap.String("game_id", g.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to end game")
		return
	}
	s.log.Info("game ended", zap.String("game_id", g.ID))
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParameters, "malformed request body")
		return
	}
	g, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, codeGameNotFound, "no such game")
		return
	}
	player := g.FindPlayer(r.PathValue("playerID"))
	if player == nil {
		writeError(w, http.StatusNotFound, codePlayerNotFound, "no such player in this game")
		return
	}
	if err := g.UpdatePlayer(*player, map[string]any{"isReady": req.Ready}); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update player")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"player_id":  player.ID,
		"is_ready":   req.Ready,
		"game_ready": s.ctrl.IsReady(g),
	})
}

func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, codeGameNotFound, "no such game")
		return
	}
	player := g.FindPlayer(r.PathValue("playerID"))
	if player == nil {
		writeError(w, http.StatusNotFound, codePlayerNotFound, "no such player in this game")
		return
	}
	playerID := player.ID
	removed, err := g.RemovePlayer(*player)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to remove player")
		return
	}
	s.log.Info("player removed",
		zap.String("game_id", g.ID),
		zap.String("player_id", playerID))
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
	})
}

func (s *Server) handleAccessCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.codes.Unique(r.Context())
	if err != nil {
		if errors.Is(err, game.ErrTooManyAttempts) {
			writeError(w, http.StatusServiceUnavailable, codeTooManyAttempts, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to generate access code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_code": code,
	})
}
