package conversation

import (
	"github.com/m3rciful/funnelbot/bot/membership"
	"github.com/m3rciful/funnelbot/bot/users"
)

// Stage is where a user stands in the funnel. It is never stored; it is
// derived from registry presence and the latest membership check.
type Stage string

const (
	StageNew     Stage = "new"
	StageGuided  Stage = "guided"
	StagePlanned Stage = "planned"
)

// DeriveStage returns planned after a successful check, guided for any
// registered user and new otherwise.
func DeriveStage(u *users.User, lastCheck membership.Result) Stage {
	switch {
	case lastCheck == membership.Subscribed:
		return StagePlanned
	case u != nil:
		return StageGuided
	default:
		return StageNew
	}
}
