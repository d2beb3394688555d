// Package store persists rooms, teams, house accounts, settlements, and
// admin identities. The settlement table's (room, question) uniqueness is the
// engine's compare-and-swap: the losing writer of a race observes
// ALREADY_LOCKED and nothing else changes.
package store

import (
	"context"

	"bidquiz-server/internal/game"
)

// Store is the persistence boundary for the settlement engine.
type Store interface {
	// Rooms. CreateRoom also opens the room's house account at balance 0.
	CreateRoom(ctx context.Context, room game.Room) error
	GetRoom(ctx context.Context, id string) (game.Room, error)
	ListRooms(ctx context.Context) ([]game.Room, error)

	// Teams.
	CreateTeam(ctx context.Context, team game.Team) error
	GetTeam(ctx context.Context, id string) (game.Team, error)
	ListTeams(ctx context.Context, roomID string) ([]game.Team, error)
	UpdateTeam(ctx context.Context, team game.Team) error

	// HouseBalance reads the room bank's balance.
	HouseBalance(ctx context.Context, roomID string) (int64, error)

	// Settlements. CreateSettlement fails with ALREADY_LOCKED when a record
	// for (room, question) already exists; it never overwrites.
	CreateSettlement(ctx context.Context, rec game.SettlementRecord) error
	GetSettlement(ctx context.Context, roomID string, questionNumber int) (game.SettlementRecord, error)
	ListSettlements(ctx context.Context, roomID string) ([]game.SettlementRecord, error)

	// ApplySettlement writes the settlement record and moves balances in one
	// transaction: teamDelta is applied to the settling team, houseDelta to
	// the room's house account. Returns the updated team and house balance.
	ApplySettlement(ctx context.Context, rec game.SettlementRecord, teamDelta, houseDelta int64) (game.Team, int64, error)

	// ApplyBonus runs the percentage-stake transaction: the usage counter is
	// incremented whether or not the bonus is approved; when approved,
	// floor(percentage/100 x house balance) moves from the house to the team,
	// all-or-nothing. Fails with RESOURCE_LIMIT_EXCEEDED before any change
	// once the team has used its quota.
	ApplyBonus(ctx context.Context, teamID string, percentage int, approved bool) (game.Team, int64, error)

	// Admin identities and the single-active-session marker.
	CreateAdmin(ctx context.Context, admin game.Admin) error
	GetAdmin(ctx context.Context, id string) (game.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (game.Admin, error)
	ListAdmins(ctx context.Context) ([]game.Admin, error)
	SetAdminActiveSession(ctx context.Context, adminID, sessionID string) error
	SetAdminRoom(ctx context.Context, adminID, roomID string) error

	Close() error
}
