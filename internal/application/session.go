package application

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	browser "github.com/itzngga/fake-useragent"
	"github.com/zccoffin/Spekter/internal/adapters/api"
	"github.com/zccoffin/Spekter/internal/domain"
	"github.com/zccoffin/Spekter/internal/ports"
	"go.uber.org/zap"
)

const userDataTries = 2

// Session is the mutable per-account runtime: one is created at the start of
// an account's execution unit and discarded at its end. Only the bearer token
// outlives it, through the token store.
type Session struct {
	cfg        Config
	index      int
	credential domain.Credential
	identity   string
	proxy      string
	ip         string
	token      string

	api    *api.Client
	tokens ports.KeyValue
	clock  ports.Clock
	rng    *rand.Rand
	sleep  func(ctx context.Context, d time.Duration) error
	log    *zap.Logger
}

var _ api.TokenSource = (*Session)(nil)

// NewSession builds the runtime for one account. The device fingerprint is
// sticky: the first run assigns a random one and persists it, every later run
// presents the same fingerprint.
func NewSession(cfg Config, baseURL string, index int, credential domain.Credential, proxy string, tokens, agents ports.KeyValue, clock ports.Clock, logger *zap.Logger) (*Session, error) {
	identity, err := credential.AccountID()
	if err != nil {
		return nil, fmt.Errorf("extract account identity: %w", err)
	}

	agent, ok := agents.Get(identity)
	if !ok {
		agent = browser.Chrome()
		if err := agents.Put(identity, agent); err != nil {
			return nil, fmt.Errorf("persist user agent: %w", err)
		}
	}

	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.Int("account", index+1), zap.String("identity", identity))

	clientProxy := ""
	if cfg.UseProxy {
		clientProxy = proxy
	}

	s := &Session{
		cfg:        cfg,
		index:      index,
		credential: credential,
		identity:   identity,
		proxy:      proxy,
		tokens:     tokens,
		clock:      clock,
		rng:        rand.New(rand.NewSource(clock.Now().UnixNano() + int64(index))),
		sleep:      wait,
		log:        log,
	}

	s.api = api.NewClient(api.ClientOptions{
		BaseURL:   baseURL,
		Proxy:     clientProxy,
		UserAgent: agent,
		RetryWait: time.Duration(cfg.RequestDelay.Min) * time.Second,
		Logger:    log,
	})
	s.api.SetTokenSource(s)

	if stored, ok := tokens.Get(identity); ok {
		s.token = stored
	}

	return s, nil
}

func (s *Session) Identity() string { return s.identity }

func (s *Session) IP() string { return s.ip }

// Token returns the session's active bearer token.
func (s *Session) Token() string { return s.token }

// Refresh forces a new token acquisition; the request layer calls this on
// auth expiry so every later call carries the fresh token.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	return s.ValidToken(ctx, true)
}

// Run drives the account through one full pass: token, state fetch, periodic
// claims, then stage progression.
func (s *Session) Run(ctx context.Context) error {
	if s.cfg.UseProxy {
		ip, err := s.api.CheckProxyIP(ctx)
		if err != nil {
			return fmt.Errorf("resolve proxy ip: %w", err)
		}
		s.ip = ip
		s.log = s.log.With(zap.String("ip", ip))

		delay := s.randDelay(s.cfg.StartDelay)
		s.log.Info("starting after delay", zap.Duration("delay", delay))
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}

	if _, err := s.ValidToken(ctx, false); err != nil {
		return err
	}

	data, err := s.fetchUserData(ctx)
	if err != nil {
		return err
	}

	s.log.Info("account state",
		zap.String("name", data.UserInfo.Name),
		zap.Int("level", data.UserInfo.UserLv),
		zap.Int("stage", data.Stages.StageLv),
		zap.Int64("gold", data.Currency.Gold),
		zap.Int64("diamond", data.Currency.Diamond),
		zap.Int64("sparks", data.Currency.Sparks),
		zap.Int("energy", data.Currency.EnergyInfo.Energy))

	if err := s.claimSparkCore(ctx, data.SparkCore); err != nil {
		return err
	}
	if err := s.sleep(ctx, time.Second); err != nil {
		return err
	}

	if s.cfg.AutoClaimReferrals {
		if err := s.claimSparkLinks(ctx); err != nil {
			return err
		}
		if err := s.sleep(ctx, time.Second); err != nil {
			return err
		}
	}

	return s.playStages(ctx, data)
}

func (s *Session) fetchUserData(ctx context.Context) (domain.UserData, error) {
	var lastErr string
	for attempt := 0; attempt < userDataTries; attempt++ {
		res, err := s.api.GetUserData(ctx, s.cfg.Inviter)
		if err != nil {
			return domain.UserData{}, err
		}
		if res.Success {
			var data domain.UserData
			if err := json.Unmarshal(res.Data, &data); err != nil {
				return domain.UserData{}, fmt.Errorf("decode user data: %w", err)
			}
			return data, nil
		}
		lastErr = res.Err
	}

	return domain.UserData{}, fmt.Errorf("get user data: %s", lastErr)
}

func (s *Session) randDelay(r Range) time.Duration {
	if r.Max <= r.Min {
		return time.Duration(r.Min) * time.Second
	}
	return time.Duration(r.Min+s.rng.Intn(r.Max-r.Min+1)) * time.Second
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
