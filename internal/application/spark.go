package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zccoffin/Spekter/internal/domain"
	"go.uber.org/zap"
)

const sparkLinkClaimPause = 3 * time.Second

// claimSparkCore fires the periodic core claim when the configured interval
// has elapsed since the last one; a claim failure is logged, never fatal.
func (s *Session) claimSparkCore(ctx context.Context, core domain.SparkCore) error {
	now := s.clock.Now()
	if !core.Claimable(now, s.cfg.SparkCoreInterval) {
		remaining := core.NextClaimIn(now, s.cfg.SparkCoreInterval)
		s.log.Info("spark core not due",
			zap.Int("hours", int(remaining.Hours())),
			zap.Int("minutes", int(remaining.Minutes())%60))
		return nil
	}

	res, err := s.api.HarvestSparkCore(ctx)
	if err != nil {
		return err
	}
	if res.Success {
		s.log.Info("spark core claimed")
	} else {
		s.log.Warn("spark core claim failed", zap.String("error", res.Err))
	}
	return nil
}

// claimSparkLinks claims every referral tier reward that has become
// available. Per-agent failures are logged and skipped; only account-fatal
// request errors propagate.
func (s *Session) claimSparkLinks(ctx context.Context) error {
	res, err := s.api.GetSparkLink(ctx)
	if err != nil {
		return err
	}
	if !res.Success {
		s.log.Warn("fetch spark links failed", zap.String("error", res.Err))
		return nil
	}

	var payload struct {
		SparkLink domain.SparkLink `json:"sparkLink"`
	}
	if err := json.Unmarshal(res.Data, &payload); err != nil {
		return fmt.Errorf("decode spark link response: %w", err)
	}

	var claimable []domain.ReferredAgent
	for _, agent := range payload.SparkLink.Links {
		if agent.HasClaimableTier() {
			claimable = append(claimable, agent)
		}
	}
	if len(claimable) == 0 {
		s.log.Info("no referral rewards available")
		return nil
	}

	for _, agent := range claimable {
		if err := s.sleep(ctx, sparkLinkClaimPause); err != nil {
			return err
		}

		claim, err := s.api.ClaimSparkLinkQuest(ctx, agent.UID)
		if err != nil {
			return err
		}
		if claim.Success {
			s.log.Info("referral reward claimed", zap.String("invitee", agent.UID))
		} else {
			s.log.Warn("referral reward claim failed",
				zap.String("invitee", agent.UID),
				zap.String("error", claim.Err))
		}
	}

	return nil
}
