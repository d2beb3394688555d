package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"bidquiz-server/internal/auth"
	"bidquiz-server/internal/game"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, admin, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(24 * time.Hour / time.Second),
	})
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token":  token,
		"admin":  admin,
		"roomId": admin.RoomID,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), sessionFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	admin, err := s.store.GetAdmin(r.Context(), session.AdminID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"admin":  admin,
		"roomId": session.RoomID,
	})
}

func (s *Server) handleEnterRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.auth.EnterRoom(r.Context(), sessionFrom(r), req.RoomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "token", Value: token, Path: "/", HttpOnly: true})
	s.writeJSON(w, http.StatusOK, map[string]any{"token": token, "roomId": req.RoomID})
}

func (s *Server) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	if err := requireRoot(sessionFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		RoomID   string `json:"roomId"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		s.writeError(w, r, game.NewError(game.CodeValidation, "username and password are required"))
		return
	}
	role := game.Role(req.Role)
	if role != game.RoleRoot && role != game.RoleAdmin {
		role = game.RoleAdmin
	}
	if role == game.RoleAdmin {
		if req.RoomID == "" {
			s.writeError(w, r, game.NewError(game.CodeValidation, "regular admins must be assigned to a room"))
			return
		}
		if _, err := s.store.GetRoom(r.Context(), req.RoomID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	admin := game.Admin{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: auth.HashPassword(req.Password),
		Role:         role,
		RoomID:       req.RoomID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateAdmin(r.Context(), admin); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, admin)
}

func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	if err := requireRoot(sessionFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	admins, err := s.store.ListAdmins(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, admins)
}

func (s *Server) handleGrantResource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID       string `json:"teamId"`
		ResourceType string `json:"resourceType"`
		Amount       int    `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resource, ok := game.ParseResource(req.ResourceType)
	if !ok {
		s.writeError(w, r, game.NewError(game.CodeValidation, "invalid resource type %q", req.ResourceType))
		return
	}
	if _, err := s.teamInRoom(r, req.TeamID); err != nil {
		s.writeError(w, r, err)
		return
	}

	team, err := s.engine.GrantResource(r.Context(), req.TeamID, resource, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (s *Server) handleSetLifeline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID   string `json:"teamId"`
		Lifeline string `json:"lifeline"`
		Action   string `json:"action"` // "reset" or "consume"
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	lifeline, ok := game.ParseLifeline(req.Lifeline)
	if !ok {
		s.writeError(w, r, game.NewError(game.CodeValidation, "invalid lifeline %q", req.Lifeline))
		return
	}
	var used bool
	switch req.Action {
	case "reset":
		used = false
	case "consume":
		used = true
	default:
		s.writeError(w, r, game.NewError(game.CodeValidation, "invalid action %q", req.Action))
		return
	}
	if _, err := s.teamInRoom(r, req.TeamID); err != nil {
		s.writeError(w, r, err)
		return
	}

	team, err := s.engine.SetLifeline(r.Context(), req.TeamID, lifeline, used)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (s *Server) handleHouseBalance(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.store.HouseBalance(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}
