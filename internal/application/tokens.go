package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zccoffin/Spekter/internal/domain"
	"go.uber.org/zap"
)

// ValidToken returns a usable bearer token for the session. A held token that
// is neither forced out nor expired is returned without any network call;
// otherwise the three-step acquisition runs: credential exchange, identity
// provider verification, account-info probe. The fresh token is persisted
// under the account identity before it is returned.
func (s *Session) ValidToken(ctx context.Context, force bool) (string, error) {
	if s.token != "" && !force && !domain.TokenExpiredAt(s.token, s.clock.Now()) {
		s.log.Debug("using stored token")
		return s.token, nil
	}

	s.log.Info("acquiring new token")

	exchange, err := s.api.AuthExchange(ctx, string(s.credential))
	if err != nil {
		return "", err
	}
	if !exchange.Success {
		return "", fmt.Errorf("exchange credential: %s", exchange.Err)
	}

	var custom struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(exchange.Data, &custom); err != nil || custom.Token == "" {
		return "", errors.New("exchange response has no token")
	}

	verified, err := s.api.VerifyCustomToken(ctx, custom.Token)
	if err != nil {
		return "", err
	}
	if !verified.Success {
		if strings.Contains(verified.Err, "USER_DISABLED") {
			return "", domain.ErrAccountDisabled
		}
		return "", fmt.Errorf("verify custom token: %s", verified.Err)
	}

	var identity struct {
		IDToken string `json:"idToken"`
	}
	if err := json.Unmarshal(verified.Data, &identity); err != nil || identity.IDToken == "" {
		return "", errors.New("verify response has no id token")
	}

	// Validity probe; the payload itself is unused.
	if info, err := s.api.FetchAccountInfo(ctx, identity.IDToken); err != nil {
		return "", err
	} else if !info.Success {
		s.log.Debug("account info probe failed", zap.String("error", info.Err))
	}

	s.token = identity.IDToken
	if err := s.tokens.Put(s.identity, s.token); err != nil {
		s.log.Warn("persist token failed", zap.Error(err))
	}

	return s.token, nil
}
