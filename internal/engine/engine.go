// Package engine is the room-scoped session/settlement core: it guarantees a
// question settles at most once per room, moves currency atomically between a
// team and its room's house account, and enforces lifeline and bonus caps.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bidquiz-server/internal/catalog"
	"bidquiz-server/internal/game"
	"bidquiz-server/internal/store"
)

// Publisher receives room-scoped state-change events. Delivery is
// best-effort and never part of the consistency boundary.
type Publisher interface {
	Publish(roomID, event string, payload any)
}

// Engine validates and applies submissions, lifelines, bonuses, and grants.
// Every mutation for a room is serialized behind that room's lock; the
// store's (room, question) uniqueness is the backstop for settlement races.
type Engine struct {
	store     store.Store
	catalog   *catalog.Catalog
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

// New wires an engine.
func New(st store.Store, cat *catalog.Catalog, pub Publisher, logger *zap.Logger) *Engine {
	return &Engine{
		store:     st,
		catalog:   cat,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
		roomLocks: map[string]*sync.Mutex{},
	}
}

// lockRoom serializes mutations per room. Returns the unlock func.
func (e *Engine) lockRoom(roomID string) func() {
	e.mu.Lock()
	lock, ok := e.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		e.roomLocks[roomID] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (e *Engine) publish(roomID, event string, payload any) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(roomID, event, payload)
}

// CreateRoom registers a new game instance with an empty house account.
func (e *Engine) CreateRoom(ctx context.Context, name string) (game.Room, error) {
	if name == "" {
		return game.Room{}, game.NewError(game.CodeValidation, "room name is required")
	}
	room := game.Room{ID: uuid.NewString(), Name: name, CreatedAt: e.now().UTC()}
	if err := e.store.CreateRoom(ctx, room); err != nil {
		return game.Room{}, err
	}
	e.logger.Info("room created", zap.String("room_id", room.ID), zap.String("name", room.Name))
	return room, nil
}

// CreateTeam registers a team in a room with its starting balance.
func (e *Engine) CreateTeam(ctx context.Context, roomID, name string, initialBalance int64) (game.Team, error) {
	if name == "" {
		return game.Team{}, game.NewError(game.CodeValidation, "team name is required")
	}
	if initialBalance < 0 {
		return game.Team{}, game.NewError(game.CodeValidation, "initial balance must not be negative")
	}
	team := game.Team{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Name:      name,
		Balance:   initialBalance,
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.CreateTeam(ctx, team); err != nil {
		return game.Team{}, err
	}
	e.logger.Info("team created",
		zap.String("room_id", roomID),
		zap.String("team_id", team.ID),
		zap.String("name", team.Name),
		zap.Int64("balance", team.Balance),
	)
	e.publish(roomID, game.EventTeamUpdated, game.TeamUpdatedPayload{Team: team})
	return team, nil
}

// StateSnapshot is a full-state resync payload for one room.
type StateSnapshot struct {
	Room         game.Room               `json:"room"`
	Teams        []game.Team             `json:"teams"`
	HouseBalance int64                   `json:"houseBalance"`
	Settlements  []game.SettlementRecord `json:"settlements"`
}

// RoomState assembles the resync snapshot clients use to recover from missed
// broadcasts.
func (e *Engine) RoomState(ctx context.Context, roomID string) (StateSnapshot, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return StateSnapshot{}, err
	}
	teams, err := e.store.ListTeams(ctx, roomID)
	if err != nil {
		return StateSnapshot{}, err
	}
	house, err := e.store.HouseBalance(ctx, roomID)
	if err != nil {
		return StateSnapshot{}, err
	}
	settlements, err := e.store.ListSettlements(ctx, roomID)
	if err != nil {
		return StateSnapshot{}, err
	}
	return StateSnapshot{Room: room, Teams: teams, HouseBalance: house, Settlements: settlements}, nil
}
