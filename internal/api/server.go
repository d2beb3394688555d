// Package api exposes the game over HTTP. Session validation happens once at
// the router boundary; room-scoped handlers take their room context from the
// validated session only, never from client-supplied room identifiers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"bidquiz-server/internal/auth"
	"bidquiz-server/internal/catalog"
	"bidquiz-server/internal/engine"
	"bidquiz-server/internal/game"
	"bidquiz-server/internal/hub"
	"bidquiz-server/internal/store"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	engine  *engine.Engine
	auth    *auth.Authority
	hub     *hub.Hub
	store   store.Store
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// New builds the API server.
func New(eng *engine.Engine, authority *auth.Authority, h *hub.Hub, st store.Store, cat *catalog.Catalog, logger *zap.Logger) *Server {
	return &Server{
		engine:  eng,
		auth:    authority,
		hub:     h,
		store:   st,
		catalog: cat,
		logger:  logger,
	}
}

// Router assembles all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/game/bonus-cards", s.handleBonusCards).Methods(http.MethodGet)

	// Everything below requires a validated session.
	authed := r.PathPrefix("/").Subrouter()
	authed.Use(s.sessionMiddleware)

	authed.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	authed.HandleFunc("/api/admin/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/api/admin/me", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/api/admin/enter-room", s.handleEnterRoom).Methods(http.MethodPost)
	authed.HandleFunc("/api/admin/admins", s.handleCreateAdmin).Methods(http.MethodPost)
	authed.HandleFunc("/api/admin/admins", s.handleListAdmins).Methods(http.MethodGet)
	authed.HandleFunc("/api/admin/resources", s.handleGrantResource).Methods(http.MethodPost)
	authed.HandleFunc("/api/admin/lifeline", s.handleSetLifeline).Methods(http.MethodPost)
	authed.HandleFunc("/api/admin/house", s.handleHouseBalance).Methods(http.MethodGet)

	authed.HandleFunc("/api/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	authed.HandleFunc("/api/rooms", s.handleListRooms).Methods(http.MethodGet)
	authed.HandleFunc("/api/teams", s.handleCreateTeam).Methods(http.MethodPost)
	authed.HandleFunc("/api/teams", s.handleListTeams).Methods(http.MethodGet)

	authed.HandleFunc("/api/game/state", s.handleRoomState).Methods(http.MethodGet)
	authed.HandleFunc("/api/game/questions", s.handleListQuestions).Methods(http.MethodGet)
	authed.HandleFunc("/api/game/questions/{number:[0-9]+}", s.handleGetQuestion).Methods(http.MethodGet)
	authed.HandleFunc("/api/game/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	authed.HandleFunc("/api/game/answer", s.handleSubmitAnswer).Methods(http.MethodPost)
	authed.HandleFunc("/api/game/lifeline", s.handleApplyLifeline).Methods(http.MethodPost)
	authed.HandleFunc("/api/game/bonus", s.handleApplyBonus).Methods(http.MethodPost)

	return r
}

type sessionContextKey struct{}

// sessionMiddleware validates the token once per request and stashes the
// session in the request context.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.auth.Validate(r.Context(), bearerToken(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) auth.Session {
	session, _ := r.Context().Value(sessionContextKey{}).(auth.Session)
	return session
}

// bearerToken pulls the session token from the Authorization header, the
// token cookie, or (for websocket clients) the query string.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// roomFrom resolves the caller's room context from the session only.
func (s *Server) roomFrom(session auth.Session) (string, error) {
	if session.RoomID == "" {
		return "", game.NewError(game.CodeUnauthorized, "no room context; enter a room first")
	}
	return session.RoomID, nil
}

// teamInRoom loads a team and rejects callers whose session is bound to a
// different room.
func (s *Server) teamInRoom(r *http.Request, teamID string) (game.Team, error) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		return game.Team{}, err
	}
	team, err := s.store.GetTeam(r.Context(), teamID)
	if err != nil {
		return game.Team{}, err
	}
	if team.RoomID != roomID {
		return game.Team{}, game.NewError(game.CodeUnauthorized, "team is not in your room")
	}
	return team, nil
}

func requireRoot(session auth.Session) error {
	if session.Role != game.RoleRoot {
		return game.NewError(game.CodeUnauthorized, "root role required")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string    `json:"error"`
	Code  game.Code `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *game.Error
	if errors.As(err, &de) {
		s.writeJSON(w, de.Code.HTTPStatus(), errorResponse{Error: de.Message, Code: de.Code})
		return
	}
	s.logger.Error("internal error",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: game.CodeUnknown})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return game.NewError(game.CodeValidation, "invalid request body")
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.ServeWS(w, r, roomID)
}
