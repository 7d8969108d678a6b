package application

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/zccoffin/Spekter/internal/domain"
	"go.uber.org/zap"
)

// stageStartTries bounds how often one attempt may re-issue startStage after
// a malformed response or an out-of-range simulated play time.
const stageStartTries = 2

// playStages drives the stage progression for one run. Mode precedence: loop
// mode replays a single fixed stage without claiming, the ceiling sweep
// collects outstanding rewards once the configured maximum is reached, and
// progressive mode advances stage by stage otherwise.
func (s *Session) playStages(ctx context.Context, data domain.UserData) error {
	energy := data.Currency.EnergyInfo.Effective(s.clock.Now())
	level := data.Stages.StageLv

	switch {
	case s.cfg.LoopMode && level >= s.cfg.LoopStage:
		return s.loopStage(ctx, &energy)
	case level >= s.cfg.MaxStage:
		return s.sweepUnclaimed(ctx, data.Stages, &energy)
	default:
		return s.progress(ctx, level, &energy)
	}
}

func (s *Session) loopStage(ctx context.Context, energy *int) error {
	s.log.Info("looping stage", zap.Int("stage", s.cfg.LoopStage))

	for *energy > domain.EnergyFloor {
		*energy -= domain.EnergyPerStage
		cleared, err := s.attemptStage(ctx, s.cfg.LoopStage, false)
		if err != nil {
			return err
		}
		if !cleared {
			return nil
		}
	}

	s.log.Info("energy exhausted")
	return nil
}

func (s *Session) sweepUnclaimed(ctx context.Context, stages domain.Stages, energy *int) error {
	var pending []domain.StageInfo
	for _, info := range stages.Infos {
		if info.RewardState < domain.RewardFullyClaimed {
			pending = append(pending, info)
		}
	}
	if len(pending) == 0 {
		s.log.Info("all stage rewards claimed")
		return nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].StageID < pending[j].StageID })

	for _, info := range pending {
		if *energy <= domain.EnergyFloor {
			s.log.Warn("not enough energy", zap.Int("stage", info.StageID))
			continue
		}
		*energy -= domain.EnergyPerStage

		cleared, err := s.attemptStage(ctx, info.StageID, true)
		if err != nil {
			return err
		}
		if !cleared {
			return nil
		}
	}

	return nil
}

func (s *Session) progress(ctx context.Context, level int, energy *int) error {
	for level < s.cfg.MaxStage && *energy > domain.EnergyFloor {
		attempts := domain.AttemptCount(level, s.rng)
		s.log.Info("stage play count", zap.Int("stage", level), zap.Int("count", attempts))

		for i := 0; i < attempts; i++ {
			if *energy <= domain.EnergyFloor {
				s.log.Warn("not enough energy", zap.Int("stage", level))
				break
			}
			*energy -= domain.EnergyPerStage

			cleared, err := s.attemptStage(ctx, level, true)
			if err != nil {
				return err
			}
			if !cleared {
				s.log.Warn("stage attempt failed, aborting run", zap.Int("stage", level))
				return nil
			}
		}

		level++
	}

	return nil
}

// attemptStage walks one attempt through the stage state machine. The caller
// decides what a false (aborted) result means for the rest of the run; a
// non-nil error is account-fatal.
func (s *Session) attemptStage(ctx context.Context, stage int, claim bool) (bool, error) {
	state := domain.StageIdle
	tries := stageStartTries

	var run domain.StartStageResult
	var playTime time.Duration
	ended := false

	retryOrAbort := func() domain.StageState {
		if tries > 0 {
			return domain.StageStarting
		}
		return domain.StageAborted
	}

	for {
		switch state {
		case domain.StageIdle:
			delay := s.randDelay(s.cfg.RequestDelay)
			s.log.Info("starting stage", zap.Int("stage", stage), zap.Duration("delay", delay))
			if err := s.sleep(ctx, delay); err != nil {
				return false, err
			}
			state = domain.StageStarting

		case domain.StageStarting:
			tries--
			res, err := s.api.StartStage(ctx, stage)
			if err != nil {
				return false, err
			}
			if !res.Success {
				s.log.Warn("start stage failed", zap.Int("stage", stage), zap.String("error", res.Err))
				state = retryOrAbort()
				continue
			}

			run = domain.StartStageResult{}
			if err := json.Unmarshal(res.Data, &run); err != nil || run.StageUID == "" || run.LootItemInfo == nil {
				s.log.Warn("start stage response incomplete", zap.Int("stage", stage))
				state = retryOrAbort()
				continue
			}
			state = domain.StagePlaying

		case domain.StagePlaying:
			playTime = domain.PlayTime(s.responseStage(run, stage), s.rng)
			if playTime < domain.MinPlayTime || playTime > domain.MaxPlayTime {
				s.log.Warn("simulated play time out of bounds",
					zap.Int("stage", stage),
					zap.Duration("playTime", playTime))
				state = retryOrAbort()
				continue
			}

			s.log.Info("playing stage",
				zap.Int("stage", stage),
				zap.Duration("playTime", playTime))
			if err := s.sleep(ctx, playTime); err != nil {
				return false, err
			}
			state = domain.StageEnding

		case domain.StageEnding:
			respStage := s.responseStage(run, stage)
			payload := domain.EndStagePayload{
				StageUID: run.StageUID,
				LootedItemInfo: domain.LootedItems{
					LootedItems: run.LootItemInfo.LootItems,
					Gold:        run.LootItemInfo.Gold,
				},
				StageState:  domain.StageStateCleared,
				PlayTime:    playTime.Milliseconds(),
				KillCount:   domain.KillCount(respStage, playTime, s.rng),
				AbilityGold: 0,
			}

			res, err := s.api.EndStage(ctx, payload)
			if err != nil {
				return false, err
			}
			if !res.Success {
				s.log.Warn("end stage failed", zap.Int("stage", stage), zap.String("error", res.Err))
				return false, nil
			}
			ended = true

			s.log.Info("stage ended", zap.Int("stage", stage), zap.Int("kills", payload.KillCount))
			if claim {
				state = domain.StageClaiming
			} else {
				state = domain.StageCleared
			}

		case domain.StageClaiming:
			// A failed claim never rolls back the successful end.
			res, err := s.api.ClaimStageReward(ctx, stage)
			if err != nil {
				return false, err
			}
			if res.Success {
				s.log.Info("stage reward claimed", zap.Int("stage", stage))
			} else {
				s.log.Warn("stage reward claim failed", zap.Int("stage", stage), zap.String("error", res.Err))
			}
			state = domain.StageCleared

		case domain.StageCleared:
			return ended, nil

		case domain.StageAborted:
			return false, nil
		}
	}
}

// responseStage prefers the stage id echoed by startStage over the requested
// one; the two disagree when the server remaps stages.
func (s *Session) responseStage(run domain.StartStageResult, requested int) int {
	if n, err := run.StageID.Int64(); err == nil && n > 0 {
		return int(n)
	}
	return requested
}
