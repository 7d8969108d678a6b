package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayTimeAlwaysWithinBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	for stage := 1; stage <= 80; stage++ {
		for i := 0; i < 50; i++ {
			d := PlayTime(stage, rng)
			require.GreaterOrEqual(t, d, MinPlayTime, "stage %d", stage)
			require.LessOrEqual(t, d, MaxPlayTime, "stage %d", stage)
		}
	}
}

func TestPlayTimeGrowsWithStage(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))

	early := PlayTime(1, rng)
	mid := PlayTime(20, rng)
	assert.Greater(t, mid, early)

	// The linear ramp saturates at the ceiling well before stage 50.
	assert.Equal(t, MaxPlayTime, PlayTime(50, rng))
}

func TestPlayTimeBeyondTabulatedStages(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	assert.Equal(t, time.Minute, PlayTime(51, rng))
}

func TestKillCountTabulatedStagesCappedAtReference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(11))

	for stage := 1; stage <= 20; stage++ {
		playTime := PlayTime(stage, rng)
		for i := 0; i < 20; i++ {
			kills := KillCount(stage, playTime, rng)
			assert.Greater(t, kills, 0, "stage %d", stage)
			assert.LessOrEqual(t, kills, referenceKills[stage], "stage %d", stage)
		}
	}
}

func TestKillCountExtrapolatedStagesCapped(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(13))
	playTime := 20 * time.Minute
	base := int(playTime.Milliseconds() / 200)

	for i := 0; i < 50; i++ {
		kills := KillCount(35, playTime, rng)
		assert.Greater(t, kills, 0)
		assert.LessOrEqual(t, kills, base*3/2)
	}
}

func TestAttemptCountBrackets(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(17))

	tests := []struct {
		stage    int
		min, max int
	}{
		{stage: 5, min: 1, max: 2},
		{stage: 15, min: 1, max: 5},
		{stage: 25, min: 2, max: 6},
		{stage: 35, min: 3, max: 8},
		{stage: 45, min: 5, max: 10},
	}

	for _, tt := range tests {
		for i := 0; i < 100; i++ {
			n := AttemptCount(tt.stage, rng)
			require.GreaterOrEqual(t, n, tt.min, "stage %d", tt.stage)
			require.LessOrEqual(t, n, tt.max, "stage %d", tt.stage)
		}
	}
}

func TestStageStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", StageIdle.String())
	assert.Equal(t, "aborted", StageAborted.String())
	assert.Equal(t, "unknown", StageState(99).String())
}
