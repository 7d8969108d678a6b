package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/spf13/viper"
	tomlrepo "github.com/zccoffin/Spekter/internal/adapters/repo/toml"
	"github.com/zccoffin/Spekter/internal/application"
	"github.com/zccoffin/Spekter/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	cfg     application.Config
	logger  *zap.Logger
	creds   []domain.Credential
	proxies []string
	tokens  *tomlrepo.Store
	agents  *tomlrepo.Store
}

func wireApp(configPath string) (*app, error) {
	cfg, err := application.LoadConfig(viper.New(), configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	creds, err := readCredentials(cfg.AccountsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var proxies []string
	if cfg.UseProxy {
		proxies, err = readLines(cfg.ProxiesFile)
		if err != nil {
			return nil, fmt.Errorf("read proxies: %w", err)
		}
	}

	tokens, err := tomlrepo.NewStore(cfg.TokensFile)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	agents, err := tomlrepo.NewStore(cfg.AgentsFile)
	if err != nil {
		return nil, fmt.Errorf("open agent store: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  newLogger(cfg.Debug),
		creds:   creds,
		proxies: proxies,
		tokens:  tokens,
		agents:  agents,
	}, nil
}

func newLogger(debug bool) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(colorable.NewColorableStdout()),
		level,
	)
	return zap.New(core)
}

func readCredentials(path string) ([]domain.Credential, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	creds := make([]domain.Credential, 0, len(lines))
	for _, line := range lines {
		creds = append(creds, domain.Credential(line))
	}
	return creds, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
