package game

import "time"

// Result is the terminal outcome recorded for a question within a room.
type Result string

const (
	ResultCorrect     Result = "correct"
	ResultWrong       Result = "wrong"
	ResultSwapped     Result = "swapped"
	ResultApproved    Result = "approved"
	ResultNotApproved Result = "not_approved"
)

// Room is an isolated game instance. All teams, question state, and house
// funds are scoped to one room.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lifelines is the fixed set of per-team power-ups. true means used.
type Lifelines struct {
	FiftyFifty   bool `json:"fiftyFifty"`
	QuestionSwap bool `json:"questionSwap"`
	ExtraTime    bool `json:"extraTime"`
}

// UsedCount reports how many lifelines the team has burned.
func (l Lifelines) UsedCount() int {
	n := 0
	if l.FiftyFifty {
		n++
	}
	if l.QuestionSwap {
		n++
	}
	if l.ExtraTime {
		n++
	}
	return n
}

// Used reports whether the given lifeline has been consumed.
func (l Lifelines) Used(t LifelineType) bool {
	switch t {
	case LifelineFiftyFifty:
		return l.FiftyFifty
	case LifelineQuestionSwap:
		return l.QuestionSwap
	case LifelineExtraTime:
		return l.ExtraTime
	}
	return false
}

// Team is a playing team. Owned by exactly one room. Balance is mutated only
// by the settlement engine, an operator grant, or a bonus approval.
type Team struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"roomId"`
	Name           string    `json:"name"`
	Balance        int64     `json:"balance"`
	Lifelines      Lifelines `json:"lifelines"`
	BonusTokens    int       `json:"bonusTokens"`
	BonusCandy     int       `json:"bonusCandy"`
	BonusCandyUses int       `json:"bonusCandyUses"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SettlementRecord is the one-time, exclusive record of a question's outcome
// within a room. Unique per (RoomID, QuestionNumber); never updated after
// creation.
type SettlementRecord struct {
	RoomID          string    `json:"roomId"`
	QuestionNumber  int       `json:"questionNumber"`
	Result          Result    `json:"result"`
	SettledByTeamID string    `json:"settledByTeamId,omitempty"`
	SettledAt       time.Time `json:"settledAt"`
}

// LifelineType identifies one of the three lifelines.
type LifelineType string

const (
	LifelineFiftyFifty   LifelineType = "fifty-fifty"
	LifelineQuestionSwap LifelineType = "question-swap"
	LifelineExtraTime    LifelineType = "extra-time"
)

// ParseLifeline normalizes the client spellings seen in the wild.
func ParseLifeline(s string) (LifelineType, bool) {
	switch s {
	case "fifty-fifty", "fiftyFifty", "50-50":
		return LifelineFiftyFifty, true
	case "question-swap", "questionSwap", "QUESTION-SWAP", "Question Swap":
		return LifelineQuestionSwap, true
	case "extra-time", "extraTime", "EXTRA-TIME", "Extra Time":
		return LifelineExtraTime, true
	}
	return "", false
}

// MaxLifelineUses caps total lifelines per team regardless of type.
const MaxLifelineUses = 2

// MaxResourceGrants caps operator grants per bonus resource type.
const MaxResourceGrants = 2

// MaxBonusCandyUses caps bonus (sugar-candy) transactions per team.
const MaxBonusCandyUses = 2

// ResourceType names an operator-grantable bonus resource.
type ResourceType string

const (
	ResourceBonusToken ResourceType = "bonus-token"
	ResourceBonusCandy ResourceType = "bonus-candy"
)

// ParseResource normalizes resource-type spellings.
func ParseResource(s string) (ResourceType, bool) {
	switch s {
	case "bonus-token", "bonusToken", "unityTokens":
		return ResourceBonusToken, true
	case "bonus-candy", "bonusCandy", "sugarCandy":
		return ResourceBonusCandy, true
	}
	return "", false
}

// Role is an admin privilege level.
type Role string

const (
	RoleRoot  Role = "root"
	RoleAdmin Role = "admin"
)

// Admin is an operator identity. Regular admins are bound to one room; root
// may switch rooms. ActiveSessionID enforces the single-active-session policy.
type Admin struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	Role            Role      `json:"role"`
	RoomID          string    `json:"roomId,omitempty"`
	ActiveSessionID string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

// BonusCard is one of the fixed percentage-stake cards a team can play.
type BonusCard struct {
	Percentage int      `json:"percentage"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
}

// BonusCards returns the fixed card set, ordered by percentage.
func BonusCards() []BonusCard {
	opts := []string{"Approved", "Disapproved"}
	return []BonusCard{
		{Percentage: 10, Prompt: "Grant 10% Bonus?", Options: opts},
		{Percentage: 20, Prompt: "Grant 20% Bonus?", Options: opts},
		{Percentage: 30, Prompt: "Grant 30% Bonus?", Options: opts},
		{Percentage: 40, Prompt: "Grant 40% Bonus?", Options: opts},
		{Percentage: 50, Prompt: "Grant 50% Bonus?", Options: opts},
	}
}

// ValidBonusPercentage reports whether pct matches one of the fixed cards.
func ValidBonusPercentage(pct int) bool {
	switch pct {
	case 10, 20, 30, 40, 50:
		return true
	}
	return false
}
