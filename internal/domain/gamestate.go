package domain

import "time"

// Server-side reward progression for a stage; 3 means every reward tier has
// been collected.
const RewardFullyClaimed = 3

const (
	// EnergyFloor is the threshold below which the server-reported energy is
	// considered stale and recomputed from elapsed time. It doubles as the
	// minimum energy required before a stage attempt is worth making.
	EnergyFloor = 5
	// EnergyPerStage is the cost of one stage attempt.
	EnergyPerStage = 5
	// EnergyCap bounds locally regenerated energy.
	EnergyCap = 30

	energyRegenInterval = 12 * time.Minute
)

// UserData is the account game state as reported by getUserData. The remote
// server is authoritative; this is a read-only input to each run.
type UserData struct {
	UserInfo  UserInfo  `json:"userInfo"`
	Stages    Stages    `json:"stages"`
	Currency  Currency  `json:"currency"`
	SparkCore SparkCore `json:"sparkCore"`
	SparkLink SparkLink `json:"sparkLink"`
}

type UserInfo struct {
	Name   string `json:"name"`
	UserLv int    `json:"userLv"`
}

type Stages struct {
	StageLv int                  `json:"stageLv"`
	Infos   map[string]StageInfo `json:"infos"`
}

type StageInfo struct {
	StageID     int `json:"stageId"`
	RewardState int `json:"rewardState"`
}

type Currency struct {
	Gold       int64      `json:"gold"`
	Diamond    int64      `json:"diamond"`
	Sparks     int64      `json:"sparks"`
	EnergyInfo EnergyInfo `json:"energyInfo"`
}

type EnergyInfo struct {
	Energy int `json:"energy"`
	// ChangedEnergyTime is a unix-millisecond timestamp of the last energy
	// change, used to regenerate energy locally when the reported value is at
	// or below the floor.
	ChangedEnergyTime int64 `json:"changedEnergyTime"`
}

// Effective returns the energy budget for a run. The server value wins when
// it is above the floor; otherwise energy is regenerated at one unit per
// regen interval since the last change, capped.
func (e EnergyInfo) Effective(now time.Time) int {
	if e.Energy > EnergyFloor {
		return e.Energy
	}

	elapsed := now.Sub(time.UnixMilli(e.ChangedEnergyTime))
	if elapsed < 0 {
		elapsed = 0
	}

	regen := int(elapsed / energyRegenInterval)
	if regen > EnergyCap {
		regen = EnergyCap
	}
	return regen
}

type SparkCore struct {
	// LastClaim is a unix-millisecond timestamp; zero means never claimed.
	LastClaim int64 `json:"lastClaim"`
}

// Claimable reports whether the periodic core claim is due.
func (s SparkCore) Claimable(now time.Time, interval time.Duration) bool {
	if s.LastClaim == 0 {
		return true
	}
	return now.Sub(time.UnixMilli(s.LastClaim)) >= interval
}

// NextClaimIn returns how long until the core claim is due again, zero when
// already due.
func (s SparkCore) NextClaimIn(now time.Time, interval time.Duration) time.Duration {
	remaining := interval - now.Sub(time.UnixMilli(s.LastClaim))
	if remaining < 0 {
		return 0
	}
	return remaining
}

type SparkLink struct {
	Links []ReferredAgent `json:"links"`
}

type ReferredAgent struct {
	UID            string `json:"uid"`
	StageLv        int    `json:"stageLv"`
	ClaimedStageLv int    `json:"claimedStageLv"`
}

// SparkLinkTiers are the referral stage levels that grant a claimable reward.
var SparkLinkTiers = []int{1, 5, 10, 15, 20, 30, 40, 50}

// HasClaimableTier reports whether any tier sits strictly between the levels
// the referred agent has reached and already claimed.
func (a ReferredAgent) HasClaimableTier() bool {
	for _, tier := range SparkLinkTiers {
		if a.StageLv > tier && tier > a.ClaimedStageLv {
			return true
		}
	}
	return false
}
