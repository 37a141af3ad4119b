// Package membership answers whether a user is subscribed to the gated channel.
package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/funnelbot/core/logger"
)

const component = "service.membership"

// Result classifies one subscription check.
type Result int

const (
	// Unchecked is the zero value: no check has been made.
	Unchecked Result = iota
	// Subscribed means the oracle reported a privileged or member status.
	Subscribed
	// NotSubscribed means the oracle answered with any other status.
	NotSubscribed
	// CheckFailed means the oracle could not answer.
	CheckFailed
)

func (r Result) String() string {
	switch r {
	case Subscribed:
		return "subscribed"
	case NotSubscribed:
		return "not_subscribed"
	case CheckFailed:
		return "check_failed"
	default:
		return "unchecked"
	}
}

// Oracle reports the raw membership status of userID in channelID,
// e.g. "member", "left" or "kicked".
type Oracle interface {
	MemberStatus(ctx context.Context, channelID string, userID int64) (string, error)
}

// Verifier wraps an Oracle. It never caches: every call asks the oracle once.
type Verifier struct {
	oracle Oracle
}

// NewVerifier returns a verifier backed by oracle.
func NewVerifier(oracle Oracle) *Verifier {
	return &Verifier{oracle: oracle}
}

// Classify maps a raw status string to a Result. Matching is exact.
func Classify(status string) Result {
	switch status {
	case "creator", "administrator", "member":
		return Subscribed
	default:
		return NotSubscribed
	}
}

// Check asks the oracle once. Errors and panics from the oracle are logged
// and reported as CheckFailed.
func (v *Verifier) Check(ctx context.Context, channelID string, userID int64) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, component, "check.panic",
				slog.String("channel_id", channelID),
				slog.Int64("user_id", userID),
				slog.String("err", fmt.Sprint(r)),
			)
			res = CheckFailed
		}
	}()

	status, err := v.oracle.MemberStatus(ctx, channelID, userID)
	if err != nil {
		logger.Error(ctx, component, "check.failed",
			slog.String("status", "fail"),
			slog.String("channel_id", channelID),
			slog.Int64("user_id", userID),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return CheckFailed
	}

	res = Classify(status)
	logger.Info(ctx, component, "check.done",
		slog.String("status", "ok"),
		slog.String("channel_id", channelID),
		slog.Int64("user_id", userID),
		slog.String("membership", res.String()),
		slog.String("payload", status),
		slog.Duration("duration", logger.Took(start)),
	)
	return res
}
