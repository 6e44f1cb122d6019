package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/config"
	"github.com/rs/zerolog/log"
)

// loadServiceConfig loads path and resolves index_file relative to the
// config file's directory.
func loadServiceConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load kmlsync config: %w", err)
	}
	cfg.IndexFile = resolveRelative(path, cfg.IndexFile)
	if _, err := os.Stat(cfg.IndexFile); err != nil {
		log.Warn().Err(err).Str("index_file", cfg.IndexFile).Msg("index file unavailable; index route will answer 500")
	}
	return cfg, nil
}

func resolveRelative(configPath, target string) string {
	target = strings.TrimSpace(target)
	if target == "" || filepath.IsAbs(target) || strings.TrimSpace(configPath) == "" {
		return target
	}
	return filepath.Join(filepath.Dir(configPath), target)
}
