package domain

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signedCredential = "user=%7B%22id%22%3A7216382990%2C%22first_name%22%3A%22Agent%22%7D&chat_instance=42&auth_date=1724767000&hash=deadbeef"

func TestCredentialAccountID(t *testing.T) {
	t.Parallel()

	id, err := Credential(signedCredential).AccountID()
	require.NoError(t, err)
	assert.Equal(t, "7216382990", id)
}

func TestCredentialAccountIDErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "no user field", payload: "auth_date=1&hash=ff"},
		{name: "user field not json", payload: "user=banana&hash=ff"},
		{name: "user field without id", payload: "user=%7B%22first_name%22%3A%22x%22%7D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Credential(tt.payload).AccountID()
			assert.Error(t, err)
		})
	}
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": "7216382990",
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenExpiredAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	assert.False(t, TokenExpiredAt(signToken(t, now.Add(time.Hour)), now))
	assert.True(t, TokenExpiredAt(signToken(t, now.Add(-time.Minute)), now))
}

func TestTokenExpiredAtMalformed(t *testing.T) {
	t.Parallel()

	now := time.Now()

	assert.True(t, TokenExpiredAt("", now))
	assert.True(t, TokenExpiredAt("not-a-jwt", now))

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})
	signed, err := noExp.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	assert.True(t, TokenExpiredAt(signed, now))
}

func TestEnergyEffectiveUsesServerValueAboveFloor(t *testing.T) {
	t.Parallel()

	now := time.Now()
	info := EnergyInfo{Energy: 18, ChangedEnergyTime: now.Add(-10 * time.Hour).UnixMilli()}

	assert.Equal(t, 18, info.Effective(now))
}

func TestEnergyEffectiveRegeneratesBelowFloor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{name: "nothing elapsed", elapsed: 0, want: 0},
		{name: "one cycle", elapsed: 12 * time.Minute, want: 1},
		{name: "partial cycle rounds down", elapsed: 23 * time.Minute, want: 1},
		{name: "five cycles", elapsed: time.Hour, want: 5},
		{name: "capped", elapsed: 10 * time.Hour, want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := EnergyInfo{Energy: 3, ChangedEnergyTime: now.Add(-tt.elapsed).UnixMilli()}
			assert.Equal(t, tt.want, info.Effective(now))
		})
	}
}

func TestSparkCoreClaimable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	interval := 24 * time.Hour

	assert.True(t, SparkCore{}.Claimable(now, interval), "never claimed")
	assert.True(t, SparkCore{LastClaim: now.Add(-25 * time.Hour).UnixMilli()}.Claimable(now, interval))
	assert.False(t, SparkCore{LastClaim: now.Add(-23 * time.Hour).UnixMilli()}.Claimable(now, interval))
}

func TestSparkCoreNextClaimIn(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	interval := 24 * time.Hour

	core := SparkCore{LastClaim: now.Add(-20 * time.Hour).UnixMilli()}
	assert.Equal(t, 4*time.Hour, core.NextClaimIn(now, interval))

	overdue := SparkCore{LastClaim: now.Add(-30 * time.Hour).UnixMilli()}
	assert.Equal(t, time.Duration(0), overdue.NextClaimIn(now, interval))
}

func TestReferredAgentHasClaimableTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		agent ReferredAgent
		want  bool
	}{
		{name: "tier between reached and claimed", agent: ReferredAgent{StageLv: 12, ClaimedStageLv: 5}, want: true},
		{name: "everything reached already claimed", agent: ReferredAgent{StageLv: 12, ClaimedStageLv: 10}, want: false},
		{name: "nothing reached yet", agent: ReferredAgent{StageLv: 1, ClaimedStageLv: 0}, want: false},
		{name: "level equal to tier does not count", agent: ReferredAgent{StageLv: 5, ClaimedStageLv: 1}, want: false},
		{name: "high level fresh claims", agent: ReferredAgent{StageLv: 55, ClaimedStageLv: 0}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.agent.HasClaimableTier())
		})
	}
}
