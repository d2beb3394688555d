package engine

import (
	"context"

	"go.uber.org/zap"

	"bidquiz-server/internal/game"
)

// ApplyLifelineResult reports the team after the lifeline and, for a
// question swap, the settlement it created.
type ApplyLifelineResult struct {
	Team          game.Team              `json:"team"`
	QuestionState *game.SettlementRecord `json:"questionState,omitempty"`
}

// ApplyLifeline consumes one of the team's lifelines. At most two lifelines
// may be used per team in total and each lifeline only once.
//
// A question swap settles the question with result "swapped" under the same
// exclusive-creation rule as answers; when that loses the race the lifeline
// is not consumed. Extra time and fifty-fifty have no ledger effect.
func (e *Engine) ApplyLifeline(ctx context.Context, lifeline game.LifelineType, teamID string, questionNumber int) (ApplyLifelineResult, error) {
	team, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return ApplyLifelineResult{}, err
	}

	unlock := e.lockRoom(team.RoomID)
	defer unlock()

	team, err = e.store.GetTeam(ctx, teamID)
	if err != nil {
		return ApplyLifelineResult{}, err
	}
	if team.Lifelines.UsedCount() >= game.MaxLifelineUses {
		return ApplyLifelineResult{}, game.NewError(game.CodeLifelineExhausted, "maximum %d lifelines allowed per game", game.MaxLifelineUses)
	}
	if team.Lifelines.Used(lifeline) {
		return ApplyLifelineResult{}, game.NewError(game.CodeLifelineAlreadyUsed, "lifeline %s already used", lifeline)
	}

	var questionState *game.SettlementRecord
	if lifeline == game.LifelineQuestionSwap {
		if _, ok := e.catalog.Get(questionNumber); !ok {
			return ApplyLifelineResult{}, game.NewError(game.CodeNotFound, "question %d not found", questionNumber)
		}
		rec := game.SettlementRecord{
			RoomID:          team.RoomID,
			QuestionNumber:  questionNumber,
			Result:          game.ResultSwapped,
			SettledByTeamID: team.ID,
			SettledAt:       e.now().UTC(),
		}
		// Settle first; if the question is already locked the lifeline
		// stays unused.
		if err := e.store.CreateSettlement(ctx, rec); err != nil {
			return ApplyLifelineResult{}, err
		}
		questionState = &rec
	}

	setLifeline(&team.Lifelines, lifeline, true)
	if err := e.store.UpdateTeam(ctx, team); err != nil {
		return ApplyLifelineResult{}, err
	}

	e.logger.Info("lifeline applied",
		zap.String("room_id", team.RoomID),
		zap.String("team_id", team.ID),
		zap.String("lifeline", string(lifeline)),
		zap.Int("question", questionNumber),
	)

	if questionState != nil {
		e.publish(team.RoomID, game.EventQuestionLocked, game.QuestionLockedPayload{
			QuestionNumber: questionNumber,
			Result:         game.ResultSwapped,
			TeamID:         team.ID,
		})
	}
	e.publish(team.RoomID, game.EventTeamUpdated, game.TeamUpdatedPayload{Team: team})

	return ApplyLifelineResult{Team: team, QuestionState: questionState}, nil
}

// SetLifeline is the operator override: reset restores a lifeline to unused,
// consume marks it used. Consuming still honors the global cap.
func (e *Engine) SetLifeline(ctx context.Context, teamID string, lifeline game.LifelineType, used bool) (game.Team, error) {
	team, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return game.Team{}, err
	}

	unlock := e.lockRoom(team.RoomID)
	defer unlock()

	team, err = e.store.GetTeam(ctx, teamID)
	if err != nil {
		return game.Team{}, err
	}
	if used && !team.Lifelines.Used(lifeline) && team.Lifelines.UsedCount() >= game.MaxLifelineUses {
		return game.Team{}, game.NewError(game.CodeLifelineExhausted, "maximum %d lifelines allowed per game", game.MaxLifelineUses)
	}

	setLifeline(&team.Lifelines, lifeline, used)
	if err := e.store.UpdateTeam(ctx, team); err != nil {
		return game.Team{}, err
	}

	e.logger.Info("lifeline overridden",
		zap.String("team_id", team.ID),
		zap.String("lifeline", string(lifeline)),
		zap.Bool("used", used),
	)
	e.publish(team.RoomID, game.EventTeamUpdated, game.TeamUpdatedPayload{Team: team})
	return team, nil
}

func setLifeline(l *game.Lifelines, t game.LifelineType, used bool) {
	switch t {
	case game.LifelineFiftyFifty:
		l.FiftyFifty = used
	case game.LifelineQuestionSwap:
		l.QuestionSwap = used
	case game.LifelineExtraTime:
		l.ExtraTime = used
	}
}
