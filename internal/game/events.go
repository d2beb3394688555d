package game

// Broadcast event names. Every event is published inside a room-scoped
// envelope so receivers can discard events for rooms they are not watching.
const (
	EventQuestionLocked      = "question-locked"
	EventTeamBalanceUpdated  = "team-balance-updated"
	EventHouseBalanceUpdated = "house-balance-updated"
	EventTeamUpdated         = "team-updated"
)

// QuestionLockedPayload announces a settled question.
type QuestionLockedPayload struct {
	QuestionNumber int    `json:"questionNumber"`
	Result         Result `json:"result"`
	TeamID         string `json:"teamId,omitempty"`
}

// TeamBalanceUpdatedPayload announces a team's new balance.
type TeamBalanceUpdatedPayload struct {
	TeamID  string `json:"teamId"`
	Balance int64  `json:"balance"`
}

// HouseBalanceUpdatedPayload announces the room bank's new balance.
type HouseBalanceUpdatedPayload struct {
	Balance int64 `json:"balance"`
}

// TeamUpdatedPayload carries a full team snapshot.
type TeamUpdatedPayload struct {
	Team Team `json:"team"`
}
