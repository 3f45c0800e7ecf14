// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ManuGH/inqwatch/internal/config"
	"github.com/ManuGH/inqwatch/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the daemon starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr(logger, cfg.API.ListenAddr); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}
	if err := checkTokenFile(logger, cfg.Token.File); err != nil {
		return fmt.Errorf("token file check failed: %w", err)
	}
	if err := checkSoundCommand(logger, cfg.Notify); err != nil {
		return fmt.Errorf("sound command check failed: %w", err)
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" {
		logger.Info().Msg("admin API disabled")
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid API listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid API listen port %q in %q", port, addr)
	}
	return nil
}

// checkTokenFile tolerates a missing file, which another process may
// create later, but not an unreadable one.
func checkTokenFile(logger zerolog.Logger, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str(log.FieldPath, path).Msg("token file does not exist yet; stream will wait for it")
		return nil
	}
	if err != nil {
		return err
	}
	info, err := f.Stat()
	_ = f.Close()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func checkSoundCommand(logger zerolog.Logger, cfg config.NotifyConfig) error {
	if cfg.Sound != config.SoundCommand {
		return nil
	}
	fields := strings.Fields(cfg.SoundCommand)
	if len(fields) == 0 {
		return errors.New("sound command is empty")
	}
	bin, err := exec.LookPath(fields[0])
	if err != nil {
		return fmt.Errorf("sound player %q not found: %w", fields[0], err)
	}
	logger.Info().Str("player", bin).Msg("sound player available")
	return nil
}
