package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Range is an inclusive delay window in seconds.
type Range struct {
	Min int
	Max int
}

func (r Range) valid() bool { return r.Min >= 0 && r.Max >= r.Min }

// Config is built once at startup and passed by value to every component; no
// ambient global.
type Config struct {
	DiscoveryURL string
	Inviter      string

	UseProxy          bool
	MaxWorkers        int
	MaxWorkersNoProxy int

	RequestDelay Range
	StartDelay   Range

	LoopMode  bool
	LoopStage int
	MaxStage  int

	SparkCoreInterval  time.Duration
	AutoClaimReferrals bool

	PassSleep      time.Duration
	BatchPause     time.Duration
	AccountTimeout time.Duration

	ExitOnDisabledAccount bool
	Debug                 bool

	AccountsFile string
	ProxiesFile  string
	TokensFile   string
	AgentsFile   string
}

const (
	keyDiscoveryURL       = "discovery_url"
	keyInviter            = "inviter"
	keyUseProxy           = "use_proxy"
	keyMaxWorkers         = "max_workers"
	keyMaxWorkersNoProxy  = "max_workers_no_proxy"
	keyRequestDelay       = "request_delay_seconds"
	keyStartDelay         = "start_delay_seconds"
	keyLoopMode           = "loop_mode"
	keyLoopStage          = "loop_stage"
	keyMaxStage           = "max_stage"
	keySparkCoreHours     = "spark_core_claim_hours"
	keyAutoClaimReferrals = "auto_claim_referrals"
	keyPassSleepMinutes   = "pass_sleep_minutes"
	keyBatchPauseSeconds  = "batch_pause_seconds"
	keyAccountTimeoutHrs  = "account_timeout_hours"
	keyExitOnDisabled     = "exit_on_disabled_account"
	keyDebug              = "debug"
	keyAccountsFile       = "accounts_file"
	keyProxiesFile        = "proxies_file"
	keyTokensFile         = "tokens_file"
	keyAgentsFile         = "agents_file"
)

// LoadConfig reads config.toml (or the file at path when given) into an
// explicit Config.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetDefault(keyInviter, "Agent_179391")
	v.SetDefault(keyUseProxy, false)
	v.SetDefault(keyMaxWorkers, 10)
	v.SetDefault(keyMaxWorkersNoProxy, 5)
	v.SetDefault(keyRequestDelay, []int{1, 3})
	v.SetDefault(keyStartDelay, []int{1, 15})
	v.SetDefault(keyLoopMode, false)
	v.SetDefault(keyLoopStage, 30)
	v.SetDefault(keyMaxStage, 50)
	v.SetDefault(keySparkCoreHours, 24)
	v.SetDefault(keyAutoClaimReferrals, true)
	v.SetDefault(keyPassSleepMinutes, 30)
	v.SetDefault(keyBatchPauseSeconds, 3)
	v.SetDefault(keyAccountTimeoutHrs, 24)
	v.SetDefault(keyExitOnDisabled, false)
	v.SetDefault(keyDebug, false)
	v.SetDefault(keyAccountsFile, "accounts.txt")
	v.SetDefault(keyProxiesFile, "proxies.txt")
	v.SetDefault(keyTokensFile, "tokens.toml")
	v.SetDefault(keyAgentsFile, "agents.toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		DiscoveryURL:          v.GetString(keyDiscoveryURL),
		Inviter:               v.GetString(keyInviter),
		UseProxy:              v.GetBool(keyUseProxy),
		MaxWorkers:            v.GetInt(keyMaxWorkers),
		MaxWorkersNoProxy:     v.GetInt(keyMaxWorkersNoProxy),
		RequestDelay:          rangeOf(v.GetIntSlice(keyRequestDelay)),
		StartDelay:            rangeOf(v.GetIntSlice(keyStartDelay)),
		LoopMode:              v.GetBool(keyLoopMode),
		LoopStage:             v.GetInt(keyLoopStage),
		MaxStage:              v.GetInt(keyMaxStage),
		SparkCoreInterval:     time.Duration(v.GetInt(keySparkCoreHours)) * time.Hour,
		AutoClaimReferrals:    v.GetBool(keyAutoClaimReferrals),
		PassSleep:             time.Duration(v.GetInt(keyPassSleepMinutes)) * time.Minute,
		BatchPause:            time.Duration(v.GetInt(keyBatchPauseSeconds)) * time.Second,
		AccountTimeout:        time.Duration(v.GetInt(keyAccountTimeoutHrs)) * time.Hour,
		ExitOnDisabledAccount: v.GetBool(keyExitOnDisabled),
		Debug:                 v.GetBool(keyDebug),
		AccountsFile:          v.GetString(keyAccountsFile),
		ProxiesFile:           v.GetString(keyProxiesFile),
		TokensFile:            v.GetString(keyTokensFile),
		AgentsFile:            v.GetString(keyAgentsFile),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DiscoveryURL == "" {
		return errors.New("discovery_url is required")
	}
	if c.MaxWorkers <= 0 || c.MaxWorkersNoProxy <= 0 {
		return errors.New("worker limits must be positive")
	}
	if !c.RequestDelay.valid() || !c.StartDelay.valid() {
		return errors.New("delay ranges must satisfy 0 <= min <= max")
	}
	if c.LoopStage <= 0 || c.MaxStage <= 0 {
		return errors.New("stage targets must be positive")
	}
	if c.AccountTimeout <= 0 {
		return errors.New("account timeout must be positive")
	}
	return nil
}

// Workers returns the concurrency bound for the active proxy mode.
func (c Config) Workers() int {
	if c.UseProxy {
		return c.MaxWorkers
	}
	return c.MaxWorkersNoProxy
}

func rangeOf(bounds []int) Range {
	switch len(bounds) {
	case 0:
		return Range{}
	case 1:
		return Range{Min: bounds[0], Max: bounds[0]}
	default:
		return Range{Min: bounds[0], Max: bounds[1]}
	}
}
