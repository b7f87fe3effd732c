package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-mc/motion/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logLevelEnv = "MOTION_LOG"

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", server.DefaultConfigPath, "path to the config file (.yml, .yaml or .toml)")
	flag.StringVar(&configPath, "config", server.DefaultConfigPath, "path to the config file (.yml, .yaml or .toml)")
	flag.Parse()

	log, err := newLogger(os.Getenv(logLevelEnv))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	config, created, err := server.LoadConfig(configPath)
	if err != nil {
		log.Fatal("error loading config", zap.Error(err))
	}
	if created {
		log.Info("default configuration has been created", zap.String("path", configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.NewServer(config, log).Start(ctx); err != nil {
		log.Fatal("error running server", zap.Error(err))
	}
	log.Info("stopped")
}

// newLogger builds the console logger. Unknown levels fall back to info.
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	lvl := zapcore.InfoLevel
	var parseErr error
	if level != "" {
		lvl, parseErr = zapcore.ParseLevel(level)
		if parseErr != nil {
			lvl = zapcore.InfoLevel
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		log.Warn("invalid log level, using info", zap.String(logLevelEnv, level), zap.Error(parseErr))
	}
	return log, nil
}
