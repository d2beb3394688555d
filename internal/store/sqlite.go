package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"bidquiz-server/internal/game"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS house_accounts (
	room_id TEXT PRIMARY KEY REFERENCES rooms(id),
	balance INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS teams (
	id                 TEXT PRIMARY KEY,
	room_id            TEXT NOT NULL REFERENCES rooms(id),
	name               TEXT NOT NULL,
	balance            INTEGER NOT NULL,
	fifty_fifty_used   INTEGER NOT NULL DEFAULT 0,
	question_swap_used INTEGER NOT NULL DEFAULT 0,
	extra_time_used    INTEGER NOT NULL DEFAULT 0,
	bonus_tokens       INTEGER NOT NULL DEFAULT 0,
	bonus_candy        INTEGER NOT NULL DEFAULT 0,
	bonus_candy_uses   INTEGER NOT NULL DEFAULT 0,
	created_at         INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS settlements (
	room_id            TEXT NOT NULL,
	question_number    INTEGER NOT NULL,
	result             TEXT NOT NULL,
	settled_by_team_id TEXT,
	settled_at         INTEGER NOT NULL,
	PRIMARY KEY (room_id, question_number)
);
CREATE TABLE IF NOT EXISTS admins (
	id                TEXT PRIMARY KEY,
	username          TEXT NOT NULL COLLATE NOCASE UNIQUE,
	password_hash     TEXT NOT NULL,
	role              TEXT NOT NULL,
	room_id           TEXT NOT NULL DEFAULT '',
	active_session_id TEXT NOT NULL DEFAULT '',
	created_at        INTEGER NOT NULL
);
`

// SQLite is the durable Store. The settlements primary key doubles as the
// settlement compare-and-swap: the second writer of a (room, question) pair
// hits the constraint and maps to ALREADY_LOCKED.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer connection: concurrent transactions queue on the pool
	// instead of surfacing SQLITE_BUSY, so the losing settlement writer
	// observes the constraint (ALREADY_LOCKED), never a lock error.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// isConstraintViolation reports whether err is a unique/primary-key breach.
func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (s *SQLite) CreateRoom(ctx context.Context, room game.Room) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (id, name, created_at) VALUES (?, ?, ?)`,
		room.ID, room.Name, room.CreatedAt.UTC().UnixMilli(),
	); err != nil {
		if isConstraintViolation(err) {
			return game.NewError(game.CodeValidation, "room %s already exists", room.ID)
		}
		return fmt.Errorf("insert room: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO house_accounts (room_id, balance) VALUES (?, 0)`, room.ID,
	); err != nil {
		return fmt.Errorf("insert house account: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) GetRoom(ctx context.Context, id string) (game.Room, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM rooms WHERE id = ?`, id)
	return scanRoom(row, id)
}

func scanRoom(row *sql.Row, id string) (game.Room, error) {
	var room game.Room
	var createdAt int64
	if err := row.Scan(&room.ID, &room.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Room{}, game.NewError(game.CodeNotFound, "room %s not found", id)
		}
		return game.Room{}, fmt.Errorf("scan room: %w", err)
	}
	room.CreatedAt = time.UnixMilli(createdAt).UTC()
	return room, nil
}

func (s *SQLite) ListRooms(ctx context.Context) ([]game.Room, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()
	var out []game.Room
	for rows.Next() {
		var room game.Room
		var createdAt int64
		if err := rows.Scan(&room.ID, &room.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		room.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, room)
	}
	return out, rows.Err()
}

const teamColumns = `id, room_id, name, balance, fifty_fifty_used, question_swap_used, extra_time_used,
	bonus_tokens, bonus_candy, bonus_candy_uses, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner) (game.Team, error) {
	var t game.Team
	var createdAt int64
	err := row.Scan(&t.ID, &t.RoomID, &t.Name, &t.Balance,
		&t.Lifelines.FiftyFifty, &t.Lifelines.QuestionSwap, &t.Lifelines.ExtraTime,
		&t.BonusTokens, &t.BonusCandy, &t.BonusCandyUses, &createdAt)
	if err != nil {
		return game.Team{}, err
	}
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	return t, nil
}

func (s *SQLite) CreateTeam(ctx context.Context, team game.Team) error {
	if _, err := s.GetRoom(ctx, team.RoomID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO teams (`+teamColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		team.ID, team.RoomID, team.Name, team.Balance,
		team.Lifelines.FiftyFifty, team.Lifelines.QuestionSwap, team.Lifelines.ExtraTime,
		team.BonusTokens, team.BonusCandy, team.BonusCandyUses,
		team.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return game.NewError(game.CodeValidation, "team %s already exists", team.ID)
		}
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

func (s *SQLite) GetTeam(ctx context.Context, id string) (game.Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Team{}, game.NewError(game.CodeNotFound, "team %s not found", id)
		}
		return game.Team{}, fmt.Errorf("scan team: %w", err)
	}
	return team, nil
}

func (s *SQLite) ListTeams(ctx context.Context, roomID string) ([]game.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE room_id = ? ORDER BY name, id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()
	out := []game.Team{}
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, team)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateTeam(ctx context.Context, team game.Team) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE teams SET
	name = ?, balance = ?,
	fifty_fifty_used = ?, question_swap_used = ?, extra_time_used = ?,
	bonus_tokens = ?, bonus_candy = ?, bonus_candy_uses = ?
WHERE id = ?`,
		team.Name, team.Balance,
		team.Lifelines.FiftyFifty, team.Lifelines.QuestionSwap, team.Lifelines.ExtraTime,
		team.BonusTokens, team.BonusCandy, team.BonusCandyUses,
		team.ID,
	)
	if err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	if n == 0 {
		return game.NewError(game.CodeNotFound, "team %s not found", team.ID)
	}
	return nil
}

func (s *SQLite) HouseBalance(ctx context.Context, roomID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM house_accounts WHERE room_id = ?`, roomID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, game.NewError(game.CodeNotFound, "room %s not found", roomID)
	}
	if err != nil {
		return 0, fmt.Errorf("house balance: %w", err)
	}
	return balance, nil
}

func insertSettlement(ctx context.Context, execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, rec game.SettlementRecord) error {
	_, err := execer.ExecContext(ctx, `
INSERT INTO settlements (room_id, question_number, result, settled_by_team_id, settled_at)
VALUES (?, ?, ?, ?, ?)`,
		rec.RoomID, rec.QuestionNumber, string(rec.Result), rec.SettledByTeamID,
		rec.SettledAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return game.NewError(game.CodeAlreadyLocked, "question %d already settled in room %s", rec.QuestionNumber, rec.RoomID)
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (s *SQLite) CreateSettlement(ctx context.Context, rec game.SettlementRecord) error {
	return insertSettlement(ctx, s.db, rec)
}

func (s *SQLite) GetSettlement(ctx context.Context, roomID string, questionNumber int) (game.SettlementRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT room_id, question_number, result, settled_by_team_id, settled_at
FROM settlements WHERE room_id = ? AND question_number = ?`, roomID, questionNumber)
	var rec game.SettlementRecord
	var result string
	var settledAt int64
	if err := row.Scan(&rec.RoomID, &rec.QuestionNumber, &result, &rec.SettledByTeamID, &settledAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.SettlementRecord{}, game.NewError(game.CodeNotFound, "question %d not settled in room %s", questionNumber, roomID)
		}
		return game.SettlementRecord{}, fmt.Errorf("scan settlement: %w", err)
	}
	rec.Result = game.Result(result)
	rec.SettledAt = time.UnixMilli(settledAt).UTC()
	return rec, nil
}

func (s *SQLite) ListSettlements(ctx context.Context, roomID string) ([]game.SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT room_id, question_number, result, settled_by_team_id, settled_at
FROM settlements WHERE room_id = ? ORDER BY question_number`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()
	out := []game.SettlementRecord{}
	for rows.Next() {
		var rec game.SettlementRecord
		var result string
		var settledAt int64
		if err := rows.Scan(&rec.RoomID, &rec.QuestionNumber, &result, &rec.SettledByTeamID, &settledAt); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		rec.Result = game.Result(result)
		rec.SettledAt = time.UnixMilli(settledAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) ApplySettlement(ctx context.Context, rec game.SettlementRecord, teamDelta, houseDelta int64) (game.Team, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return game.Team{}, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertSettlement(ctx, tx, rec); err != nil {
		return game.Team{}, 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE teams SET balance = balance + ? WHERE id = ?`, teamDelta, rec.SettledByTeamID,
	); err != nil {
		return game.Team{}, 0, fmt.Errorf("update team balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE house_accounts SET balance = balance + ? WHERE room_id = ?`, houseDelta, rec.RoomID,
	); err != nil {
		return game.Team{}, 0, fmt.Errorf("update house balance: %w", err)
	}

	team, err := scanTeam(tx.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, rec.SettledByTeamID))
	if err != nil {
		return game.Team{}, 0, fmt.Errorf("reload team: %w", err)
	}
	var house int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM house_accounts WHERE room_id = ?`, rec.RoomID).Scan(&house); err != nil {
		return game.Team{}, 0, fmt.Errorf("reload house balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return game.Team{}, 0, fmt.Errorf("commit settlement: %w", err)
	}
	return team, house, nil
}

func (s *SQLite) ApplyBonus(ctx context.Context, teamID string, percentage int, approved bool) (game.Team, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return game.Team{}, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	team, err := scanTeam(tx.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Team{}, 0, game.NewError(game.CodeNotFound, "team %s not found", teamID)
		}
		return game.Team{}, 0, fmt.Errorf("scan team: %w", err)
	}
	if team.BonusCandyUses >= game.MaxBonusCandyUses {
		return game.Team{}, 0, game.NewError(game.CodeResourceLimitExceeded, "bonus usage limit reached (%d/%d)", team.BonusCandyUses, game.MaxBonusCandyUses)
	}

	var house int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM house_accounts WHERE room_id = ?`, team.RoomID).Scan(&house); err != nil {
		return game.Team{}, 0, fmt.Errorf("house balance: %w", err)
	}

	team.BonusCandyUses++
	if approved {
		amount := house * int64(percentage) / 100
		house -= amount
		team.Balance += amount
		if _, err := tx.ExecContext(ctx,
			`UPDATE house_accounts SET balance = ? WHERE room_id = ?`, house, team.RoomID,
		); err != nil {
			return game.Team{}, 0, fmt.Errorf("update house balance: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE teams SET balance = ?, bonus_candy_uses = ? WHERE id = ?`,
		team.Balance, team.BonusCandyUses, team.ID,
	); err != nil {
		return game.Team{}, 0, fmt.Errorf("update team: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return game.Team{}, 0, fmt.Errorf("commit bonus: %w", err)
	}
	return team, house, nil
}

func (s *SQLite) CreateAdmin(ctx context.Context, admin game.Admin) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO admins (id, username, password_hash, role, room_id, active_session_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		admin.ID, admin.Username, admin.PasswordHash, string(admin.Role),
		admin.RoomID, admin.ActiveSessionID, admin.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return game.NewError(game.CodeValidation, "username %s already exists", admin.Username)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

const adminColumns = `id, username, password_hash, role, room_id, active_session_id, created_at`

func scanAdmin(row rowScanner) (game.Admin, error) {
	var a game.Admin
	var role string
	var createdAt int64
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, &a.RoomID, &a.ActiveSessionID, &createdAt); err != nil {
		return game.Admin{}, err
	}
	a.Role = game.Role(role)
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	return a, nil
}

func (s *SQLite) GetAdmin(ctx context.Context, id string) (game.Admin, error) {
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return game.Admin{}, game.NewError(game.CodeNotFound, "admin %s not found", id)
	}
	if err != nil {
		return game.Admin{}, fmt.Errorf("scan admin: %w", err)
	}
	return admin, nil
}

func (s *SQLite) GetAdminByUsername(ctx context.Context, username string) (game.Admin, error) {
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return game.Admin{}, game.NewError(game.CodeNotFound, "admin %s not found", username)
	}
	if err != nil {
		return game.Admin{}, fmt.Errorf("scan admin: %w", err)
	}
	return admin, nil
}

func (s *SQLite) ListAdmins(ctx context.Context) ([]game.Admin, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()
	out := []game.Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		out = append(out, admin)
	}
	return out, rows.Err()
}

func (s *SQLite) SetAdminActiveSession(ctx context.Context, adminID, sessionID string) error {
	return s.updateAdminField(ctx, `UPDATE admins SET active_session_id = ? WHERE id = ?`, sessionID, adminID)
}

func (s *SQLite) SetAdminRoom(ctx context.Context, adminID, roomID string) error {
	return s.updateAdminField(ctx, `UPDATE admins SET room_id = ? WHERE id = ?`, roomID, adminID)
}

func (s *SQLite) updateAdminField(ctx context.Context, query, value, adminID string) error {
	res, err := s.db.ExecContext(ctx, query, value, adminID)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	if n == 0 {
		return game.NewError(game.CodeNotFound, "admin %s not found", adminID)
	}
	return nil
}
