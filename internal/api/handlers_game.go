package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"bidquiz-server/internal/engine"
	"bidquiz-server/internal/game"
)

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if err := requireRoot(sessionFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	room, err := s.engine.CreateRoom(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListRooms(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rooms)
}

// defaultTeamBalance matches the original game's starting bank.
const defaultTeamBalance = 10000

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Name           string `json:"name"`
		InitialBalance *int64 `json:"initialBalance"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	balance := int64(defaultTeamBalance)
	if req.InitialBalance != nil {
		balance = *req.InitialBalance
	}

	team, err := s.engine.CreateTeam(r.Context(), roomID, req.Name, balance)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	teams, err := s.store.ListTeams(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, teams)
}

func (s *Server) handleRoomState(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snapshot, err := s.engine.RoomState(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

// questionView is a catalog entry merged with the caller's room settlement
// state. The correct answer never leaves the server.
type questionView struct {
	Number    int          `json:"number"`
	Text      string       `json:"text,omitempty"`
	Options   []string     `json:"options,omitempty"`
	Category  string       `json:"category,omitempty"`
	TimeLimit int          `json:"timeLimit,omitempty"`
	Locked    bool         `json:"locked"`
	Result    *game.Result `json:"result,omitempty"`
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	settlements, err := s.store.ListSettlements(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	settled := make(map[int]game.Result, len(settlements))
	for _, rec := range settlements {
		settled[rec.QuestionNumber] = rec.Result
	}

	questions := s.catalog.List()
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		// The board listing hides question text and options until reveal.
		view := questionView{
			Number:    q.Number,
			Category:  q.Category,
			TimeLimit: q.TimeLimit,
		}
		if result, ok := settled[q.Number]; ok {
			view.Locked = true
			res := result
			view.Result = &res
		}
		views = append(views, view)
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		s.writeError(w, r, game.NewError(game.CodeValidation, "invalid question number"))
		return
	}
	q, ok := s.catalog.Get(number)
	if !ok {
		s.writeError(w, r, game.NewError(game.CodeNotFound, "question %d not found", number))
		return
	}

	view := questionView{
		Number:    q.Number,
		Text:      q.Text,
		Options:   q.Options,
		Category:  q.Category,
		TimeLimit: q.TimeLimit,
	}
	if rec, err := s.store.GetSettlement(r.Context(), roomID, number); err == nil {
		view.Locked = true
		res := rec.Result
		view.Result = &res
	} else if !game.IsCode(err, game.CodeNotFound) {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.roomFrom(sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	teams, err := s.store.ListTeams(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sort.SliceStable(teams, func(i, j int) bool { return teams[i].Balance > teams[j].Balance })
	s.writeJSON(w, http.StatusOK, teams)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID         string `json:"teamId"`
		QuestionNumber int    `json:"questionNumber"`
		Answer         string `json:"answer"`
		Wager          int64  `json:"wager"`
		IsTimeout      bool   `json:"isTimeout"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.teamInRoom(r, req.TeamID); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.SubmitAnswer(r.Context(), engine.SubmitAnswerInput{
		TeamID:         req.TeamID,
		QuestionNumber: req.QuestionNumber,
		Answer:         req.Answer,
		Wager:          req.Wager,
		IsTimeout:      req.IsTimeout,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApplyLifeline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID         string `json:"teamId"`
		QuestionNumber int    `json:"questionNumber"`
		Type           string `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	lifeline, ok := game.ParseLifeline(req.Type)
	if !ok {
		s.writeError(w, r, game.NewError(game.CodeValidation, "invalid lifeline type %q", req.Type))
		return
	}
	if _, err := s.teamInRoom(r, req.TeamID); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.ApplyLifeline(r.Context(), lifeline, req.TeamID, req.QuestionNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApplyBonus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID     string `json:"teamId"`
		Percentage int    `json:"percentage"`
		Approved   bool   `json:"approved"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.teamInRoom(r, req.TeamID); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.ApplyBonus(r.Context(), req.TeamID, req.Percentage, req.Approved)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBonusCards(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, game.BonusCards())
}
