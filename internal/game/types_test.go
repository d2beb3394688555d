package game_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"bidquiz-server/internal/game"
)

func TestParseLifeline(t *testing.T) {
	cases := map[string]game.LifelineType{
		"fifty-fifty":   game.LifelineFiftyFifty,
		"fiftyFifty":    game.LifelineFiftyFifty,
		"50-50":         game.LifelineFiftyFifty,
		"question-swap": game.LifelineQuestionSwap,
		"questionSwap":  game.LifelineQuestionSwap,
		"extra-time":    game.LifelineExtraTime,
		"extraTime":     game.LifelineExtraTime,
	}
	for in, want := range cases {
		got, ok := game.ParseLifeline(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}

	_, ok := game.ParseLifeline("phone-a-friend")
	require.False(t, ok)
}

func TestParseResource(t *testing.T) {
	got, ok := game.ParseResource("unityTokens")
	require.True(t, ok)
	require.Equal(t, game.ResourceBonusToken, got)

	got, ok = game.ParseResource("sugarCandy")
	require.True(t, ok)
	require.Equal(t, game.ResourceBonusCandy, got)

	_, ok = game.ParseResource("gold")
	require.False(t, ok)
}

func TestLifelinesUsedCount(t *testing.T) {
	var l game.Lifelines
	require.Equal(t, 0, l.UsedCount())
	require.False(t, l.Used(game.LifelineFiftyFifty))

	l.FiftyFifty = true
	l.ExtraTime = true
	require.Equal(t, 2, l.UsedCount())
	require.True(t, l.Used(game.LifelineFiftyFifty))
	require.True(t, l.Used(game.LifelineExtraTime))
	require.False(t, l.Used(game.LifelineQuestionSwap))
}

func TestValidBonusPercentage(t *testing.T) {
	for _, pct := range []int{10, 20, 30, 40, 50} {
		require.True(t, game.ValidBonusPercentage(pct), pct)
	}
	for _, pct := range []int{0, 5, 15, 55, 100, -10} {
		require.False(t, game.ValidBonusPercentage(pct), pct)
	}
}

func TestErrorCodes(t *testing.T) {
	err := game.NewError(game.CodeAlreadyLocked, "question %d already settled", 5)
	require.True(t, game.IsCode(err, game.CodeAlreadyLocked))
	require.Equal(t, game.CodeAlreadyLocked, game.CodeOf(err))
	require.Contains(t, err.Error(), "question 5 already settled")

	require.Equal(t, game.CodeUnknown, game.CodeOf(errors.New("plain")))
	require.False(t, game.IsCode(nil, game.CodeAlreadyLocked))
}

func TestCodeHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusNotFound, game.CodeNotFound.HTTPStatus())
	require.Equal(t, http.StatusConflict, game.CodeAlreadyLocked.HTTPStatus())
	require.Equal(t, http.StatusConflict, game.CodeLifelineExhausted.HTTPStatus())
	require.Equal(t, http.StatusUnauthorized, game.CodeUnauthorized.HTTPStatus())
	require.Equal(t, http.StatusBadRequest, game.CodeValidation.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, game.CodeUnknown.HTTPStatus())
}
