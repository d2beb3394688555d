// Package auth is the session authority: it binds one active credential
// session to one admin identity and one room context. Issuing a new token
// supersedes the previous one, and room-scoped operations take their room
// exclusively from a validated session.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bidquiz-server/internal/game"
	"bidquiz-server/internal/store"
)

// Session is a validated admin session.
type Session struct {
	AdminID   string
	Username  string
	Role      game.Role
	RoomID    string
	SessionID string
}

// claims is the JWT claim set carried by session tokens.
type claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	RoomID    string `json:"room_id,omitempty"`
	SessionID string `json:"session_id"`
}

// Authority issues and validates session tokens.
type Authority struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// New builds a session authority.
func New(st store.Store, secret string, ttl time.Duration, logger *zap.Logger) *Authority {
	return &Authority{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// HashPassword derives the stored credential digest.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login verifies credentials and issues a fresh token. The new session ID is
// stored as the admin's only active session, superseding any earlier token.
func (a *Authority) Login(ctx context.Context, username, password string) (string, game.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", game.Admin{}, game.NewError(game.CodeValidation, "missing credentials")
	}

	admin, err := a.store.GetAdminByUsername(ctx, username)
	if err != nil {
		if game.IsCode(err, game.CodeNotFound) {
			return "", game.Admin{}, game.NewError(game.CodeUnauthorized, "invalid credentials")
		}
		return "", game.Admin{}, err
	}
	if admin.PasswordHash != HashPassword(password) {
		return "", game.Admin{}, game.NewError(game.CodeUnauthorized, "invalid credentials")
	}
	if admin.Role == game.RoleAdmin && admin.RoomID == "" {
		return "", game.Admin{}, game.NewError(game.CodeValidation, "admin %s has no assigned room", admin.Username)
	}

	sessionID := uuid.NewString()
	if err := a.store.SetAdminActiveSession(ctx, admin.ID, sessionID); err != nil {
		return "", game.Admin{}, err
	}
	admin.ActiveSessionID = sessionID

	token, err := a.sign(admin, sessionID)
	if err != nil {
		return "", game.Admin{}, err
	}

	a.logger.Info("admin logged in",
		zap.String("admin_id", admin.ID),
		zap.String("username", admin.Username),
		zap.String("role", string(admin.Role)),
	)
	return token, admin, nil
}

// Validate parses a token and checks it is the admin's current session.
func (a *Authority) Validate(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, game.NewError(game.CodeUnauthorized, "no token provided")
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Session{}, game.NewError(game.CodeUnauthorized, "invalid token")
	}

	admin, err := a.store.GetAdmin(ctx, parsed.Subject)
	if err != nil {
		return Session{}, game.NewError(game.CodeUnauthorized, "invalid token")
	}
	if admin.ActiveSessionID == "" || admin.ActiveSessionID != parsed.SessionID {
		return Session{}, game.NewError(game.CodeUnauthorized, "session expired: logged in elsewhere")
	}

	return Session{
		AdminID:   admin.ID,
		Username:  admin.Username,
		Role:      game.Role(parsed.Role),
		RoomID:    parsed.RoomID,
		SessionID: parsed.SessionID,
	}, nil
}

// Logout clears the admin's active session; the token is dead afterwards.
func (a *Authority) Logout(ctx context.Context, session Session) error {
	if err := a.store.SetAdminActiveSession(ctx, session.AdminID, ""); err != nil {
		return err
	}
	a.logger.Info("admin logged out", zap.String("admin_id", session.AdminID))
	return nil
}

// EnterRoom re-issues the root admin's token bound to a new room context.
// Only root may switch rooms; regular admins are fixed to their room.
func (a *Authority) EnterRoom(ctx context.Context, session Session, roomID string) (string, error) {
	if session.Role != game.RoleRoot {
		return "", game.NewError(game.CodeUnauthorized, "only root can switch rooms")
	}
	if _, err := a.store.GetRoom(ctx, roomID); err != nil {
		return "", err
	}
	if err := a.store.SetAdminRoom(ctx, session.AdminID, roomID); err != nil {
		return "", err
	}

	admin, err := a.store.GetAdmin(ctx, session.AdminID)
	if err != nil {
		return "", err
	}
	return a.sign(admin, session.SessionID)
}

func (a *Authority) sign(admin game.Admin, sessionID string) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Role:      string(admin.Role),
		RoomID:    admin.RoomID,
		SessionID: sessionID,
	})
	return token.SignedString(a.secret)
}

// EnsureRootAdmin seeds the root identity on first start.
func EnsureRootAdmin(ctx context.Context, st store.Store, password string, logger *zap.Logger) error {
	if _, err := st.GetAdminByUsername(ctx, "root"); err == nil {
		return nil
	} else if !game.IsCode(err, game.CodeNotFound) {
		return err
	}

	admin := game.Admin{
		ID:           uuid.NewString(),
		Username:     "root",
		PasswordHash: HashPassword(password),
		Role:         game.RoleRoot,
		CreatedAt:    time.Now().UTC(),
	}
	if err := st.CreateAdmin(ctx, admin); err != nil {
		return err
	}
	logger.Info("seeded root admin", zap.String("admin_id", admin.ID))
	return nil
}
