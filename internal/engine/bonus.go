package engine

import (
	"context"

	"go.uber.org/zap"

	"bidquiz-server/internal/game"
)

// ApplyBonusResult reports the team and house after a bonus transaction.
type ApplyBonusResult struct {
	Team         game.Team `json:"team"`
	HouseBalance int64     `json:"houseBalance"`
}

// ApplyBonus runs a percentage-stake (sugar-candy) transaction. The usage
// counter advances on every call, approved or not; an approved bonus moves
// floor(percentage/100 x house balance) from the house to the team in one
// all-or-nothing transaction. A third use is rejected before any change.
func (e *Engine) ApplyBonus(ctx context.Context, teamID string, percentage int, approved bool) (ApplyBonusResult, error) {
	if !game.ValidBonusPercentage(percentage) {
		return ApplyBonusResult{}, game.NewError(game.CodeValidation, "invalid bonus percentage %d", percentage)
	}

	team, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return ApplyBonusResult{}, err
	}

	unlock := e.lockRoom(team.RoomID)
	defer unlock()

	team, house, err := e.store.ApplyBonus(ctx, teamID, percentage, approved)
	if err != nil {
		return ApplyBonusResult{}, err
	}

	e.logger.Info("bonus applied",
		zap.String("room_id", team.RoomID),
		zap.String("team_id", team.ID),
		zap.Int("percentage", percentage),
		zap.Bool("approved", approved),
		zap.Int("uses", team.BonusCandyUses),
	)

	e.publish(team.RoomID, game.EventTeamUpdated, game.TeamUpdatedPayload{Team: team})
	if approved {
		e.publish(team.RoomID, game.EventTeamBalanceUpdated, game.TeamBalanceUpdatedPayload{
			TeamID:  team.ID,
			Balance: team.Balance,
		})
		e.publish(team.RoomID, game.EventHouseBalanceUpdated, game.HouseBalanceUpdatedPayload{Balance: house})
	}

	return ApplyBonusResult{Team: team, HouseBalance: house}, nil
}

// GrantResource adds bonus tokens or candy to a team. The resulting count per
// resource type may never exceed the grant cap.
func (e *Engine) GrantResource(ctx context.Context, teamID string, resource game.ResourceType, amount int) (game.Team, error) {
	if amount <= 0 {
		return game.Team{}, game.NewError(game.CodeValidation, "amount must be positive")
	}

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

	switch resource {
	case game.ResourceBonusToken:
		if team.BonusTokens+amount > game.MaxResourceGrants {
			return game.Team{}, game.NewError(game.CodeResourceLimitExceeded, "max %d bonus tokens allowed", game.MaxResourceGrants)
		}
		team.BonusTokens += amount
	case game.ResourceBonusCandy:
		if team.BonusCandy+amount > game.MaxResourceGrants {
			return game.Team{}, game.NewError(game.CodeResourceLimitExceeded, "max %d bonus candies allowed", game.MaxResourceGrants)
		}
		team.BonusCandy += amount
	default:
		return game.Team{}, game.NewError(game.CodeValidation, "invalid resource type %q", resource)
	}

	if err := e.store.UpdateTeam(ctx, team); err != nil {
		return game.Team{}, err
	}

	e.logger.Info("resource granted",
		zap.String("team_id", team.ID),
		zap.String("resource", string(resource)),
		zap.Int("amount", amount),
	)
	e.publish(team.RoomID, game.EventTeamUpdated, game.TeamUpdatedPayload{Team: team})
	return team, nil
}
