package engine

import (
	"context"

	"go.uber.org/zap"

	"bidquiz-server/internal/game"
)

// SubmitAnswerInput is one answer submission or timeout for a question.
type SubmitAnswerInput struct {
	TeamID         string
	QuestionNumber int
	Answer         string
	Wager          int64
	IsTimeout      bool
}

// SubmitAnswerResult reports the settled outcome.
type SubmitAnswerResult struct {
	IsCorrect bool        `json:"isCorrect"`
	Result    game.Result `json:"result"`
	Team      game.Team   `json:"team"`
}

// SubmitAnswer settles a question for the submitting team's room. Only the
// first settlement of a (room, question) pair wins; every later caller gets
// ALREADY_LOCKED and no balances move. A timeout is an ordinary submission
// that forces a wrong result, so a late real answer loses the same race.
//
// On success the wager is escrowed from the team first; a correct answer pays
// back double (net +wager), a wrong one forfeits the escrow to the room's
// house account. Record and balances commit together.
func (e *Engine) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (SubmitAnswerResult, error) {
	if in.Wager <= 0 {
		return SubmitAnswerResult{}, game.NewError(game.CodeValidation, "wager must be a positive amount")
	}

	team, err := e.store.GetTeam(ctx, in.TeamID)
	if err != nil {
		return SubmitAnswerResult{}, err
	}
	question, ok := e.catalog.Get(in.QuestionNumber)
	if !ok {
		return SubmitAnswerResult{}, game.NewError(game.CodeNotFound, "question %d not found", in.QuestionNumber)
	}

	unlock := e.lockRoom(team.RoomID)
	defer unlock()

	// Re-read under the room lock; the balance may have moved.
	team, err = e.store.GetTeam(ctx, in.TeamID)
	if err != nil {
		return SubmitAnswerResult{}, err
	}
	if in.Wager > team.Balance {
		return SubmitAnswerResult{}, game.NewError(game.CodeValidation, "wager %d exceeds team balance %d", in.Wager, team.Balance)
	}

	isCorrect := !in.IsTimeout && question.IsCorrect(in.Answer)
	result := game.ResultWrong
	if isCorrect {
		result = game.ResultCorrect
	}

	// Escrow the wager, then pay out 2x on a correct answer (net +wager) or
	// forfeit it to the house on a wrong/timeout one (net -wager).
	teamDelta := -in.Wager
	var houseDelta int64
	if isCorrect {
		teamDelta += 2 * in.Wager
	} else {
		houseDelta = in.Wager
	}

	rec := game.SettlementRecord{
		RoomID:          team.RoomID,
		QuestionNumber:  in.QuestionNumber,
		Result:          result,
		SettledByTeamID: team.ID,
		SettledAt:       e.now().UTC(),
	}
	team, house, err := e.store.ApplySettlement(ctx, rec, teamDelta, houseDelta)
	if err != nil {
		return SubmitAnswerResult{}, err
	}

	e.logger.Info("question settled",
		zap.String("room_id", team.RoomID),
		zap.Int("question", in.QuestionNumber),
		zap.String("result", string(result)),
		zap.String("team_id", team.ID),
		zap.Int64("wager", in.Wager),
		zap.Bool("timeout", in.IsTimeout),
	)

	e.publish(team.RoomID, game.EventQuestionLocked, game.QuestionLockedPayload{
		QuestionNumber: in.QuestionNumber,
		Result:         result,
		TeamID:         team.ID,
	})
	e.publish(team.RoomID, game.EventTeamBalanceUpdated, game.TeamBalanceUpdatedPayload{
		TeamID:  team.ID,
		Balance: team.Balance,
	})
	if houseDelta != 0 {
		e.publish(team.RoomID, game.EventHouseBalanceUpdated, game.HouseBalanceUpdatedPayload{Balance: house})
	}

	return SubmitAnswerResult{IsCorrect: isCorrect, Result: result, Team: team}, nil
}
