package domain

import (
	"encoding/json"
	"math/rand"
	"time"
)

// StageState enumerates the per-attempt progression of one stage run.
type StageState int

const (
	StageIdle StageState = iota
	StageStarting
	StagePlaying
	StageEnding
	StageClaiming
	StageCleared
	StageAborted
)

func (s StageState) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageStarting:
		return "starting"
	case StagePlaying:
		return "playing"
	case StageEnding:
		return "ending"
	case StageClaiming:
		return "claiming"
	case StageCleared:
		return "cleared"
	case StageAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

const (
	// MinPlayTime and MaxPlayTime bound the simulated play duration the
	// server accepts; values outside are never submitted.
	MinPlayTime = 60 * time.Second
	MaxPlayTime = 2280 * time.Second
)

// StartStageResult is the server response to startStage. A response without
// a stage session id or loot metadata is a failed attempt.
type StartStageResult struct {
	StageUID     string      `json:"stageUid"`
	StageID      json.Number `json:"stageId"`
	LootItemInfo *LootInfo   `json:"lootItemInfo"`
}

type LootInfo struct {
	LootItems json.RawMessage `json:"lootItems"`
	Gold      int64           `json:"gold"`
}

// EndStagePayload is sent exactly once per attempt to endStage.
type EndStagePayload struct {
	StageUID       string      `json:"stageUid"`
	LootedItemInfo LootedItems `json:"lootedItemInfo"`
	StageState     int         `json:"stageState"`
	PlayTime       int64       `json:"playTime"`
	KillCount      int         `json:"killCount"`
	AbilityGold    int         `json:"abilityGold"`
}

type LootedItems struct {
	LootedItems json.RawMessage `json:"lootedItems"`
	Gold        int64           `json:"gold"`
}

// StageStateCleared is the stageState value endStage expects for a finished
// run.
const StageStateCleared = 3

// PlayTime picks a simulated play duration for a stage. Early stages have
// tabulated base ranges, stages six through fifty grow linearly, and anything
// beyond falls back to a minute. The result is capped at MaxPlayTime.
func PlayTime(stage int, rng *rand.Rand) time.Duration {
	var base, spread int
	switch {
	case stage <= 0:
		return MinPlayTime
	case stage == 1:
		base, spread = 150, 30
	case stage == 2:
		base, spread = 170, 30
	case stage == 3:
		base, spread = 190, 30
	case stage == 4:
		base, spread = 250, 30
	case stage == 5:
		base, spread = 300, 30
	case stage <= 50:
		base, spread = 300+(stage-5)*60, 60
	default:
		return time.Minute
	}

	d := time.Duration(base+rng.Intn(spread)) * time.Second
	if d > MaxPlayTime {
		d = MaxPlayTime
	}
	return d
}

// referenceKills are observed kill totals per tabulated stage, used to scale
// the simulated count so it tracks real play.
var referenceKills = map[int]int{
	1: 819, 2: 889, 3: 1126, 4: 1402, 5: 1622,
	6: 2081, 7: 2120, 8: 2639, 9: 3076, 10: 3225,
	11: 3627, 12: 3699, 13: 4265, 14: 4357, 15: 4708,
	16: 4908, 17: 5209, 18: 5544, 19: 6014, 20: 6240,
}

const (
	lastTabulatedStage = 20
	firstReferenceKill = 819
	lastReferenceKill  = 6240
)

// KillCount simulates a kill total for a stage as a function of play
// duration, scaled against the stage's reference value with ±20% jitter.
// Stages past the tabulated set extrapolate linearly and are capped at 1.5x
// the duration-derived base.
func KillCount(stage int, playTime time.Duration, rng *rand.Rand) int {
	base := int(playTime.Milliseconds() / 200)
	jitter := 0.8 + rng.Float64()*0.4

	if ref, ok := referenceKills[stage]; ok {
		kills := base + int(float64(ref)*jitter)
		if kills > ref {
			kills = ref
		}
		return kills
	}

	increment := float64(lastReferenceKill-firstReferenceKill) / float64(lastTabulatedStage-1)
	estimate := float64(lastReferenceKill) + float64(stage-lastTabulatedStage)*increment
	kills := base + int(estimate*jitter)
	if limit := base * 3 / 2; kills > limit {
		kills = limit
	}
	return kills
}

// AttemptCount picks how many times a stage is replayed before advancing in
// progressive mode. Higher stages draw from wider, larger ranges to emulate
// irregular human retry behavior.
func AttemptCount(stage int, rng *rand.Rand) int {
	switch {
	case stage > 40:
		return randBetween(rng, 5, 10)
	case stage > 30:
		return randBetween(rng, 3, 8)
	case stage > 20:
		return randBetween(rng, 2, 6)
	case stage > 10:
		return randBetween(rng, 1, 5)
	default:
		return randBetween(rng, 1, 2)
	}
}

func randBetween(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}
