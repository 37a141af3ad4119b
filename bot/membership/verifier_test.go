package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type oracleFunc func(ctx context.Context, channelID string, userID int64) (string, error)

func (f oracleFunc) MemberStatus(ctx context.Context, channelID string, userID int64) (string, error) {
	return f(ctx, channelID, userID)
}

func staticOracle(status string, err error) oracleFunc {
	return func(context.Context, string, int64) (string, error) { return status, err }
}

func TestCheckClassifiesStatuses(t *testing.T) {
	tests := []struct {
		status string
		want   Result
	}{
		{"creator", Subscribed},
		{"administrator", Subscribed},
		{"member", Subscribed},
		{"left", NotSubscribed},
		{"kicked", NotSubscribed},
		{"restricted", NotSubscribed},
		{"Member", NotSubscribed},
		{"", NotSubscribed},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := NewVerifier(staticOracle(tt.status, nil)).Check(context.Background(), "@channel", 1)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckMapsOracleErrorToFailed(t *testing.T) {
	v := NewVerifier(staticOracle("member", errors.New("Too Many Requests: retry after 5 (429)")))
	assert.Equal(t, CheckFailed, v.Check(context.Background(), "@channel", 1))
}

func TestCheckRecoversOraclePanic(t *testing.T) {
	v := NewVerifier(oracleFunc(func(context.Context, string, int64) (string, error) {
		panic("nil bot")
	}))
	var got Result
	assert.NotPanics(t, func() { got = v.Check(context.Background(), "@channel", 1) })
	assert.Equal(t, CheckFailed, got)
}

func TestCheckAsksOracleEveryTime(t *testing.T) {
	calls := 0
	v := NewVerifier(oracleFunc(func(_ context.Context, channelID string, userID int64) (string, error) {
		calls++
		assert.Equal(t, "-1001", channelID)
		assert.Equal(t, int64(77), userID)
		return "member", nil
	}))
	for i := 0; i < 3; i++ {
		v.Check(context.Background(), "-1001", 77)
	}
	assert.Equal(t, 3, calls)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "subscribed", Subscribed.String())
	assert.Equal(t, "not_subscribed", NotSubscribed.String())
	assert.Equal(t, "check_failed", CheckFailed.String())
	assert.Equal(t, "unchecked", Unchecked.String())
}
