package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bidquiz-server/internal/game"
)

// settlementKey identifies one (room, question) pair.
type settlementKey struct {
	roomID         string
	questionNumber int
}

// Memory is an in-memory Store used in tests and dev mode. A single mutex
// guards all state; settlement exclusivity holds under concurrent callers.
type Memory struct {
	mu          sync.Mutex
	rooms       map[string]game.Room
	teams       map[string]game.Team
	house       map[string]int64
	settlements map[settlementKey]game.SettlementRecord
	admins      map[string]game.Admin
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rooms:       map[string]game.Room{},
		teams:       map[string]game.Team{},
		house:       map[string]int64{},
		settlements: map[settlementKey]game.SettlementRecord{},
		admins:      map[string]game.Admin{},
	}
}

func (m *Memory) CreateRoom(ctx context.Context, room game.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return game.NewError(game.CodeValidation, "room %s already exists", room.ID)
	}
	m.rooms[room.ID] = room
	m.house[room.ID] = 0
	return nil
}

func (m *Memory) GetRoom(ctx context.Context, id string) (game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return game.Room{}, game.NewError(game.CodeNotFound, "room %s not found", id)
	}
	return room, nil
}

func (m *Memory) ListRooms(ctx context.Context) ([]game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateTeam(ctx context.Context, team game.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[team.RoomID]; !ok {
		return game.NewError(game.CodeNotFound, "room %s not found", team.RoomID)
	}
	if _, ok := m.teams[team.ID]; ok {
		return game.NewError(game.CodeValidation, "team %s already exists", team.ID)
	}
	m.teams[team.ID] = team
	return nil
}

func (m *Memory) GetTeam(ctx context.Context, id string) (game.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[id]
	if !ok {
		return game.Team{}, game.NewError(game.CodeNotFound, "team %s not found", id)
	}
	return team, nil
}

func (m *Memory) ListTeams(ctx context.Context, roomID string) ([]game.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []game.Team{}
	for _, t := range m.teams {
		if t.RoomID == roomID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateTeam(ctx context.Context, team game.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[team.ID]; !ok {
		return game.NewError(game.CodeNotFound, "team %s not found", team.ID)
	}
	m.teams[team.ID] = team
	return nil
}

func (m *Memory) HouseBalance(ctx context.Context, roomID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return 0, game.NewError(game.CodeNotFound, "room %s not found", roomID)
	}
	return m.house[roomID], nil
}

func (m *Memory) CreateSettlement(ctx context.Context, rec game.SettlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSettlementLocked(rec)
}

func (m *Memory) createSettlementLocked(rec game.SettlementRecord) error {
	key := settlementKey{rec.RoomID, rec.QuestionNumber}
	if _, ok := m.settlements[key]; ok {
		return game.NewError(game.CodeAlreadyLocked, "question %d already settled in room %s", rec.QuestionNumber, rec.RoomID)
	}
	m.settlements[key] = rec
	return nil
}

func (m *Memory) GetSettlement(ctx context.Context, roomID string, questionNumber int) (game.SettlementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.settlements[settlementKey{roomID, questionNumber}]
	if !ok {
		return game.SettlementRecord{}, game.NewError(game.CodeNotFound, "question %d not settled in room %s", questionNumber, roomID)
	}
	return rec, nil
}

func (m *Memory) ListSettlements(ctx context.Context, roomID string) ([]game.SettlementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []game.SettlementRecord{}
	for key, rec := range m.settlements {
		if key.roomID == roomID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionNumber < out[j].QuestionNumber })
	return out, nil
}

func (m *Memory) ApplySettlement(ctx context.Context, rec game.SettlementRecord, teamDelta, houseDelta int64) (game.Team, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[rec.SettledByTeamID]
	if !ok {
		return game.Team{}, 0, game.NewError(game.CodeNotFound, "team %s not found", rec.SettledByTeamID)
	}
	if err := m.createSettlementLocked(rec); err != nil {
		return game.Team{}, 0, err
	}
	team.Balance += teamDelta
	m.teams[team.ID] = team
	m.house[rec.RoomID] += houseDelta
	return team, m.house[rec.RoomID], nil
}

func (m *Memory) ApplyBonus(ctx context.Context, teamID string, percentage int, approved bool) (game.Team, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[teamID]
	if !ok {
		return game.Team{}, 0, game.NewError(game.CodeNotFound, "team %s not found", teamID)
	}
	if team.BonusCandyUses >= game.MaxBonusCandyUses {
		return game.Team{}, 0, game.NewError(game.CodeResourceLimitExceeded, "bonus usage limit reached (%d/%d)", team.BonusCandyUses, game.MaxBonusCandyUses)
	}
	team.BonusCandyUses++
	if approved {
		amount := m.house[team.RoomID] * int64(percentage) / 100
		m.house[team.RoomID] -= amount
		team.Balance += amount
	}
	m.teams[team.ID] = team
	return team, m.house[team.RoomID], nil
}

func (m *Memory) CreateAdmin(ctx context.Context, admin game.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if strings.EqualFold(a.Username, admin.Username) {
			return game.NewError(game.CodeValidation, "username %s already exists", admin.Username)
		}
	}
	m.admins[admin.ID] = admin
	return nil
}

func (m *Memory) GetAdmin(ctx context.Context, id string) (game.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[id]
	if !ok {
		return game.Admin{}, game.NewError(game.CodeNotFound, "admin %s not found", id)
	}
	return admin, nil
}

func (m *Memory) GetAdminByUsername(ctx context.Context, username string) (game.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if strings.EqualFold(a.Username, username) {
			return a, nil
		}
	}
	return game.Admin{}, game.NewError(game.CodeNotFound, "admin %s not found", username)
}

func (m *Memory) ListAdmins(ctx context.Context) ([]game.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Admin, 0, len(m.admins))
	for _, a := range m.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *Memory) SetAdminActiveSession(ctx context.Context, adminID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[adminID]
	if !ok {
		return game.NewError(game.CodeNotFound, "admin %s not found", adminID)
	}
	admin.ActiveSessionID = sessionID
	m.admins[adminID] = admin
	return nil
}

func (m *Memory) SetAdminRoom(ctx context.Context, adminID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[adminID]
	if !ok {
		return game.NewError(game.CodeNotFound, "admin %s not found", adminID)
	}
	admin.RoomID = roomID
	m.admins[adminID] = admin
	return nil
}

func (m *Memory) Close() error { return nil }
