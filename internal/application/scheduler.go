package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/zccoffin/Spekter/internal/adapters/api"
	"github.com/zccoffin/Spekter/internal/adapters/render/summary"
	"github.com/zccoffin/Spekter/internal/domain"
	"github.com/zccoffin/Spekter/internal/ports"
	"go.uber.org/zap"
)

const (
	discoveryAttempts = 3
	discoveryBackoff  = 2 * time.Second
)

// Scheduler fans the account list out to bounded concurrent execution units,
// isolates their failures, and repeats the whole pass forever.
type Scheduler struct {
	cfg     Config
	creds   []domain.Credential
	proxies []string
	tokens  ports.KeyValue
	agents  ports.KeyValue
	clock   ports.Clock
	log     *zap.Logger
	out     io.Writer

	discover func(ctx context.Context) (string, error)
	runUnit  func(ctx context.Context, baseURL string, index int) unitOutcome
}

type unitOutcome struct {
	identity string
	ip       string
	err      error
}

type unitReport struct {
	index    int
	identity string
	ip       string
	took     time.Duration
	err      error
}

func NewScheduler(cfg Config, creds []domain.Credential, proxies []string, tokens, agents ports.KeyValue, clock ports.Clock, logger *zap.Logger, out io.Writer) (*Scheduler, error) {
	if len(creds) == 0 {
		return nil, domain.ErrNoCredentials
	}
	if cfg.UseProxy && len(proxies) != len(creds) {
		return nil, fmt.Errorf("%w: %d proxies for %d credentials", domain.ErrProxyMismatch, len(proxies), len(creds))
	}

	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}

	sch := &Scheduler{
		cfg:     cfg,
		creds:   creds,
		proxies: proxies,
		tokens:  tokens,
		agents:  agents,
		clock:   clock,
		log:     logger,
		out:     out,
	}
	sch.discover = func(ctx context.Context) (string, error) {
		return api.DiscoverWithRetry(ctx, cfg.DiscoveryURL, discoveryAttempts, discoveryBackoff)
	}
	sch.runUnit = sch.runAccount

	return sch, nil
}

// Run resolves the shared base endpoint once, then loops passes over the full
// account list until the context is canceled. Only a disabled account with
// exit_on_disabled_account set stops it early.
func (sch *Scheduler) Run(ctx context.Context) error {
	base, err := sch.discover(ctx)
	if err != nil {
		return fmt.Errorf("discover base endpoint: %w", err)
	}
	sch.log.Info("api endpoint resolved", zap.String("endpoint", base))

	for pass := 1; ; pass++ {
		if err := sch.runPass(ctx, base, pass); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		sch.log.Info("pass complete",
			zap.Int("pass", pass),
			zap.Duration("sleep", sch.cfg.PassSleep))
		if err := wait(ctx, sch.cfg.PassSleep); err != nil {
			return nil
		}
	}
}

func (sch *Scheduler) runPass(ctx context.Context, base string, pass int) error {
	workers := sch.cfg.Workers()
	report := summary.Report{Pass: pass, Started: sch.clock.Now()}
	var fatal error

	for start := 0; start < len(sch.creds); start += workers {
		end := start + workers
		if end > len(sch.creds) {
			end = len(sch.creds)
		}

		results := make(chan unitReport, end-start)
		for i := start; i < end; i++ {
			go func(i int) {
				rep := unitReport{index: i}
				began := time.Now()
				defer func() {
					if r := recover(); r != nil {
						rep.err = fmt.Errorf("panic in account unit: %v", r)
					}
					rep.took = time.Since(began)
					results <- rep
				}()

				unitCtx, cancel := context.WithTimeout(ctx, sch.cfg.AccountTimeout)
				defer cancel()

				outcome := sch.runUnit(unitCtx, base, i)
				rep.identity, rep.ip, rep.err = outcome.identity, outcome.ip, outcome.err
			}(i)
		}

		for i := start; i < end; i++ {
			rep := <-results
			if rep.err != nil {
				sch.log.Error("account run failed",
					zap.Int("account", rep.index+1),
					zap.String("identity", rep.identity),
					zap.String("ip", rep.ip),
					zap.Error(rep.err))
				if sch.cfg.ExitOnDisabledAccount && errors.Is(rep.err, domain.ErrAccountDisabled) {
					fatal = fmt.Errorf("account %d: %w", rep.index+1, rep.err)
				}
			}
			report.Rows = append(report.Rows, summary.Row{
				Account:  rep.index + 1,
				Identity: rep.identity,
				IP:       rep.ip,
				Took:     rep.took,
				Err:      errText(rep.err),
			})
		}

		if fatal != nil {
			return fatal
		}
		if end < len(sch.creds) {
			if err := wait(ctx, sch.cfg.BatchPause); err != nil {
				return nil
			}
		}
	}

	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Account < report.Rows[j].Account })
	fmt.Fprintln(sch.out, summary.Render(report))
	return nil
}

func (sch *Scheduler) runAccount(ctx context.Context, base string, index int) unitOutcome {
	proxy := ""
	if index < len(sch.proxies) {
		proxy = sch.proxies[index]
	}

	session, err := NewSession(sch.cfg, base, index, sch.creds[index], proxy, sch.tokens, sch.agents, sch.clock, sch.log)
	if err != nil {
		return unitOutcome{err: err}
	}

	// The session resolves its public IP during Run; read it only after.
	err = session.Run(ctx)
	return accountOutcome(session, err)
}

func accountOutcome(session *Session, err error) unitOutcome {
	return unitOutcome{
		identity: session.Identity(),
		ip:       session.IP(),
		err:      err,
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
