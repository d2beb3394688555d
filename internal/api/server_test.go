package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bidquiz-server/internal/api"
	"bidquiz-server/internal/auth"
	"bidquiz-server/internal/catalog"
	"bidquiz-server/internal/engine"
	"bidquiz-server/internal/game"
	"bidquiz-server/internal/hub"
	"bidquiz-server/internal/store"
)

type testServer struct {
	srv   *httptest.Server
	store *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	st := store.NewMemory()

	questions := make([]catalog.Question, 0, 5)
	for n := 1; n <= 5; n++ {
		questions = append(questions, catalog.Question{
			Number:  n,
			Text:    "question",
			Options: []string{"Paris", "London"},
			Correct: "Paris",
		})
	}
	cat, err := catalog.New(questions)
	require.NoError(t, err)

	h := hub.New(logger)
	eng := engine.New(st, cat, h, logger)
	authority := auth.New(st, "test-secret", time.Hour, logger)
	require.NoError(t, auth.EnsureRootAdmin(context.Background(), st, "rootpass", logger))

	server := api.New(eng, authority, h, st, cat, logger)
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: st}
}

// do issues a JSON request and decodes the response into out when non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// loginRoot logs in as root, creates a room and enters it, returning the
// room-scoped token and the room ID.
func (ts *testServer) loginRoot(t *testing.T) (string, string) {
	t.Helper()
	var login struct {
		Token string `json:"token"`
	}
	status := ts.do(t, http.MethodPost, "/api/admin/login", "",
		map[string]string{"username": "root", "password": "rootpass"}, &login)
	require.Equal(t, http.StatusOK, status)

	var room game.Room
	status = ts.do(t, http.MethodPost, "/api/rooms", login.Token,
		map[string]string{"name": "Main Hall"}, &room)
	require.Equal(t, http.StatusCreated, status)

	var entered struct {
		Token string `json:"token"`
	}
	status = ts.do(t, http.MethodPost, "/api/admin/enter-room", login.Token,
		map[string]string{"roomId": room.ID}, &entered)
	require.Equal(t, http.StatusOK, status)

	return entered.Token, room.ID
}

func TestHealthzIsPublic(t *testing.T) {
	ts := newTestServer(t)
	status := ts.do(t, http.MethodGet, "/api/healthz", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestAuthedRoutesRejectMissingToken(t *testing.T) {
	ts := newTestServer(t)
	status := ts.do(t, http.MethodGet, "/api/game/state", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status = ts.do(t, http.MethodPost, "/api/rooms", "bogus-token", map[string]string{"name": "x"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	status := ts.do(t, http.MethodPost, "/api/admin/login", "",
		map[string]string{"username": "root", "password": "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRoomContextComesFromSessionOnly(t *testing.T) {
	ts := newTestServer(t)
	var login struct {
		Token string `json:"token"`
	}
	status := ts.do(t, http.MethodPost, "/api/admin/login", "",
		map[string]string{"username": "root", "password": "rootpass"}, &login)
	require.Equal(t, http.StatusOK, status)

	// Root has no room until enter-room; room-scoped routes refuse.
	status = ts.do(t, http.MethodPost, "/api/teams", login.Token,
		map[string]string{"name": "Alpha"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status = ts.do(t, http.MethodGet, "/api/game/state", login.Token, nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAnswerFlow(t *testing.T) {
	ts := newTestServer(t)
	token, roomID := ts.loginRoot(t)

	var team game.Team
	status := ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "Alpha"}, &team)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, roomID, team.RoomID)
	require.Equal(t, int64(10000), team.Balance)

	var result engine.SubmitAnswerResult
	status = ts.do(t, http.MethodPost, "/api/game/answer", token, map[string]any{
		"teamId":         team.ID,
		"questionNumber": 1,
		"answer":         "Paris",
		"wager":          2000,
	}, &result)
	require.Equal(t, http.StatusOK, status)
	require.True(t, result.IsCorrect)
	require.Equal(t, int64(12000), result.Team.Balance)

	// The question is locked for everyone afterwards.
	var errResp struct {
		Code game.Code `json:"code"`
	}
	status = ts.do(t, http.MethodPost, "/api/game/answer", token, map[string]any{
		"teamId":         team.ID,
		"questionNumber": 1,
		"answer":         "London",
		"wager":          100,
	}, &errResp)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, game.CodeAlreadyLocked, errResp.Code)

	var questions []struct {
		Number int    `json:"number"`
		Text   string `json:"text"`
		Locked bool   `json:"locked"`
	}
	status = ts.do(t, http.MethodGet, "/api/game/questions", token, nil, &questions)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, questions, 5)
	require.True(t, questions[0].Locked)
	require.False(t, questions[1].Locked)
	// The listing never carries question text.
	require.Empty(t, questions[0].Text)
}

func TestQuestionViewHidesCorrectAnswer(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.loginRoot(t)

	var view map[string]any
	status := ts.do(t, http.MethodGet, "/api/game/questions/2", token, nil, &view)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "question", view["text"])
	require.NotContains(t, view, "correct")
}

func TestTimeoutForfeitAndHouseBalance(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.loginRoot(t)

	var team game.Team
	status := ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "Alpha", "initialBalance": 5000}, &team)
	require.Equal(t, http.StatusCreated, status)

	var result engine.SubmitAnswerResult
	status = ts.do(t, http.MethodPost, "/api/game/answer", token, map[string]any{
		"teamId":         team.ID,
		"questionNumber": 3,
		"wager":          1000,
		"isTimeout":      true,
	}, &result)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(4000), result.Team.Balance)

	var house struct {
		Balance int64 `json:"balance"`
	}
	status = ts.do(t, http.MethodGet, "/api/admin/house", token, nil, &house)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(1000), house.Balance)
}

func TestTeamFromAnotherRoomIsRejected(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.loginRoot(t)

	var team game.Team
	status := ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "Alpha"}, &team)
	require.Equal(t, http.StatusCreated, status)

	// Move root into a second room; the first room's team is out of scope.
	var room2 game.Room
	status = ts.do(t, http.MethodPost, "/api/rooms", token, map[string]string{"name": "Side Hall"}, &room2)
	require.Equal(t, http.StatusCreated, status)
	var entered struct {
		Token string `json:"token"`
	}
	status = ts.do(t, http.MethodPost, "/api/admin/enter-room", token,
		map[string]string{"roomId": room2.ID}, &entered)
	require.Equal(t, http.StatusOK, status)

	status = ts.do(t, http.MethodPost, "/api/game/answer", entered.Token, map[string]any{
		"teamId":         team.ID,
		"questionNumber": 1,
		"answer":         "Paris",
		"wager":          100,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestLifelineEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.loginRoot(t)

	var team game.Team
	status := ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "Alpha"}, &team)
	require.Equal(t, http.StatusCreated, status)

	var result engine.ApplyLifelineResult
	status = ts.do(t, http.MethodPost, "/api/game/lifeline", token, map[string]any{
		"teamId":         team.ID,
		"questionNumber": 4,
		"type":           "questionSwap",
	}, &result)
	require.Equal(t, http.StatusOK, status)
	require.True(t, result.Team.Lifelines.QuestionSwap)
	require.NotNil(t, result.QuestionState)
	require.Equal(t, game.ResultSwapped, result.QuestionState.Result)

	status = ts.do(t, http.MethodPost, "/api/game/lifeline", token, map[string]any{
		"teamId": team.ID,
		"type":   "not-a-lifeline",
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestBonusEndpointAndCards(t *testing.T) {
	ts := newTestServer(t)

	var cards []game.BonusCard
	status := ts.do(t, http.MethodGet, "/api/game/bonus-cards", "", nil, &cards)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, cards, 5)
	require.Equal(t, 10, cards[0].Percentage)

	token, _ := ts.loginRoot(t)
	var team game.Team
	status = ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "Alpha"}, &team)
	require.Equal(t, http.StatusCreated, status)

	var result engine.ApplyBonusResult
	status = ts.do(t, http.MethodPost, "/api/game/bonus", token, map[string]any{
		"teamId":     team.ID,
		"percentage": 20,
		"approved":   false,
	}, &result)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, result.Team.BonusCandyUses)
}

func TestGrantResourceEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.loginRoot(t)

	var team game.Team
	status := ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "Alpha"}, &team)
	require.Equal(t, http.StatusCreated, status)

	var granted struct {
		Team game.Team `json:"team"`
	}
	status = ts.do(t, http.MethodPost, "/api/admin/resources", token, map[string]any{
		"teamId":       team.ID,
		"resourceType": "bonusToken",
		"amount":       2,
	}, &granted)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, granted.Team.BonusTokens)

	status = ts.do(t, http.MethodPost, "/api/admin/resources", token, map[string]any{
		"teamId":       team.ID,
		"resourceType": "bonusToken",
		"amount":       1,
	}, nil)
	require.Equal(t, http.StatusConflict, status)
}

func TestCreateAdminRequiresRoot(t *testing.T) {
	ts := newTestServer(t)
	token, roomID := ts.loginRoot(t)

	var created game.Admin
	status := ts.do(t, http.MethodPost, "/api/admin/admins", token, map[string]any{
		"username": "Host",
		"password": "hostpass",
		"role":     "admin",
		"roomId":   roomID,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "host", created.Username)

	var hostLogin struct {
		Token string `json:"token"`
	}
	status = ts.do(t, http.MethodPost, "/api/admin/login", "",
		map[string]string{"username": "host", "password": "hostpass"}, &hostLogin)
	require.Equal(t, http.StatusOK, status)

	// A regular admin cannot mint admins or rooms.
	status = ts.do(t, http.MethodPost, "/api/admin/admins", hostLogin.Token, map[string]any{
		"username": "other", "password": "x", "role": "admin", "roomId": roomID,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status = ts.do(t, http.MethodPost, "/api/rooms", hostLogin.Token,
		map[string]string{"name": "Another"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	ts := newTestServer(t)
	token1, _ := ts.loginRoot(t)

	var login struct {
		Token string `json:"token"`
	}
	status := ts.do(t, http.MethodPost, "/api/admin/login", "",
		map[string]string{"username": "root", "password": "rootpass"}, &login)
	require.Equal(t, http.StatusOK, status)

	status = ts.do(t, http.MethodGet, "/api/admin/me", token1, nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status = ts.do(t, http.MethodGet, "/api/admin/me", login.Token, nil, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestLeaderboardOrdering(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.loginRoot(t)

	var low, high game.Team
	status := ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "Low", "initialBalance": 5000}, &low)
	require.Equal(t, http.StatusCreated, status)
	status = ts.do(t, http.MethodPost, "/api/teams", token,
		map[string]any{"name": "High", "initialBalance": 20000}, &high)
	require.Equal(t, http.StatusCreated, status)

	var board []game.Team
	status = ts.do(t, http.MethodGet, "/api/game/leaderboard", token, nil, &board)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, board, 2)
	require.Equal(t, high.ID, board[0].ID)
	require.Equal(t, low.ID, board[1].ID)
}
