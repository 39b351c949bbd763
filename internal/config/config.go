// Package config reads the CLI's environment, after loading an optional .env
// file from the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kernel/walletcache/pkg/cache"
)

const (
	EnvSetupDir = "WALLET_SETUP_DIR"
	EnvHeadless = "HEADLESS"
	EnvLogFile  = "WALLET_LOG_FILE"

	DefaultSetupDir = "test/wallet-setup"
)

// Config is the resolved environment. Command line flags override it.
type Config struct {
	CacheDir string
	SetupDir string
	Headless bool
	LogFile  string
}

// LoadDotEnv loads the given env files (".env" when none are given) without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config from the environment.
func FromEnv() (Config, error) {
	var cfg Config
	root, err := cache.Root()
	if err != nil {
		return cfg, err
	}
	cfg.CacheDir = root

	cfg.SetupDir = DefaultSetupDir
	if v := strings.TrimSpace(os.Getenv(EnvSetupDir)); v != "" {
		cfg.SetupDir = v
	}

	if v := strings.TrimSpace(os.Getenv(EnvHeadless)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s value %q: %w", EnvHeadless, v, err)
		}
		cfg.Headless = b
	}

	cfg.LogFile = strings.TrimSpace(os.Getenv(EnvLogFile))
	return cfg, nil
}
