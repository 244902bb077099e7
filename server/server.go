// Package server exposes games, searches and the learned-move table over a
// JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chess-ai/engine"
	"chess-ai/game"
	"chess-ai/learn"
	"chess-ai/position"
	"chess-ai/worker"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Games    *game.Manager
	Profiles game.Profiles
	Store    learn.Store
	Selector *learn.Selector
	Recorder *learn.Recorder
	Logger   zerolog.Logger
}

type Server struct {
	cfg Config
	log zerolog.Logger
	mux *http.ServeMux
}

func New(cfg Config) *Server {
	if cfg.Profiles == nil {
		cfg.Profiles = game.DefaultProfiles()
	}
	s := &Server{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "http").Logger(),
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /v1/games", s.handleNewGame)
	s.mux.HandleFunc("GET /v1/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("DELETE /v1/games/{id}", s.handleDeleteGame)
	s.mux.HandleFunc("POST /v1/games/{id}/move", s.handlePlayerMove)
	s.mux.HandleFunc("POST /v1/games/{id}/ai", s.handleAIMove)
	s.mux.HandleFunc("POST /v1/games/{id}/resign", s.handleResign)
	s.mux.HandleFunc("GET /v1/learned", s.handleLearned)
	s.mux.HandleFunc("POST /v1/bestmove", s.handleBestMove)
	s.mux.HandleFunc("POST /v1/outcome", s.handleOutcome)
}

// Handler returns the API wrapped in request-id and access-log middleware.
func (s *Server) Handler() http.Handler {
	return RequestID(AccessLog(s.log, s.mux))
}

// ListenAndServe serves on addr until ctx is done, then shuts down,
// giving in-flight requests a few seconds to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req NewGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	color := game.Black
	if req.AIColor != "" {
		c, err := game.ParseColor(req.AIColor)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		color = c
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	st, err := s.cfg.Games.New(r.Context(), color, req.Difficulty)
	if err != nil && st.ID == "" {
		s.writeError(w, r, err)
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("game", st.ID).Msg("engine opening move interrupted")
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	st, err := s.cfg.Games.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Games.Remove(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.cfg.Games.PlayerMove(r.Context(), r.PathValue("id"), req.UCI)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAIMove(w http.ResponseWriter, r *http.Request) {
	st, err := s.cfg.Games.AIMove(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	st, err := s.cfg.Games.Resign(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleLearned answers {"move": null} for a missing fen, like an empty table.
func (s *Server) handleLearned(w http.ResponseWriter, r *http.Request) {
	fen := r.URL.Query().Get("fen")
	resp := LearnedResponse{Moves: []learn.MoveStat{}}
	if fen == "" {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	key, err := position.ReducedKey(fen)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.cfg.Store.Rows(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows != nil {
		resp.Moves = rows
	}
	if move, ok, err := s.cfg.Selector.Recommend(r.Context(), fen); err == nil && ok {
		resp.Move = &move
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBestMove(w http.ResponseWriter, r *http.Request) {
	var req BestMoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := position.Parse(req.FEN); err != nil {
		s.writeError(w, r, err)
		return
	}
	limits, err := s.limitsFor(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.cfg.Games.BestMove(r.Context(), req.FEN, limits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := BestMoveResponse{DepthReached: res.DepthReached, TimedOut: res.TimedOut}
	if res.HasMove {
		resp.UCI = &res.Move
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) limitsFor(req BestMoveRequest) (worker.Limits, error) {
	name := req.Difficulty
	if name == "" {
		name = "medium"
	}
	p, err := s.cfg.Profiles.ByName(name)
	if err != nil {
		return worker.Limits{}, err
	}
	limits := worker.Limits{TimeMs: p.TimeMs, MaxDepth: p.MaxDepth, BookMove: req.BookUCI}
	if req.TimeMs != nil {
		limits.TimeMs = *req.TimeMs
	}
	if req.MaxDepth != nil {
		limits.MaxDepth = *req.MaxDepth
	}
	if limits.TimeMs < 0 || limits.MaxDepth < 1 || limits.MaxDepth > engine.MaxPly {
		return worker.Limits{}, fmt.Errorf("%w: time_ms must not be negative and max_depth must be within 1..%d", errBadRequest, engine.MaxPly)
	}
	return limits, nil
}

// handleOutcome records a game played elsewhere. The outcome is the
// player's; the engine's moves are recorded with the inverted result.
func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.cfg.Recorder.Record(r.Context(), req.Moves, req.Outcome.Invert()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

var errBadRequest = errors.New("bad request")

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrGameOver), errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, position.ErrInvalidFEN),
		errors.Is(err, position.ErrIllegalMove),
		errors.Is(err, learn.ErrInvalidResult),
		errors.Is(err, game.ErrUnknownProfile),
		errors.Is(err, game.ErrInvalidColor):
		return http.StatusBadRequest
	case errors.Is(err, worker.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, worker.ErrSearch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Msg("request failed")
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error(), RequestID: GetRequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
