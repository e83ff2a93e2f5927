// chatsphere - workspace-based chat for OpenRouter models in the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/morganforge/chatsphere/internal/chat"
	"github.com/morganforge/chatsphere/internal/cli"
	"github.com/morganforge/chatsphere/internal/config"
	"github.com/morganforge/chatsphere/internal/openrouter"
	"github.com/morganforge/chatsphere/internal/state"
	"github.com/morganforge/chatsphere/internal/storage"
	"github.com/morganforge/chatsphere/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		tuiMode     = flag.Bool("tui", false, "start the full-screen terminal interface")
		configPath  = flag.String("config", "", "path to a config file (default ~/.chatsphere/config.toml)")
		dbPath      = flag.String("db", "", "path to the conversation store (overrides config)")
		quiet       = flag.Bool("quiet", false, "suppress banners and stats")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatsphere %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*tuiMode, *configPath, *dbPath, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(tuiMode bool, configPath, dbPath string, quiet bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	storePath, err := cfg.Storage.ResolvePath()
	if err != nil {
		return err
	}
	store, err := storage.OpenSQLite(storePath)
	if err != nil {
		return fmt.Errorf("opening conversation store: %w", err)
	}

	manager := state.NewManager(store)
	defer func() {
		if err := manager.Close(); err != nil {
			log.Printf("closing store: %v", err)
		}
	}()

	client := openrouter.NewClient().
		WithBaseURL(cfg.API.BaseURL).
		WithTimeout(cfg.API.Timeout()).
		WithSiteURL(cfg.API.SiteURL).
		WithSiteName(cfg.API.SiteName).
		WithRateLimit(rate.NewLimiter(rate.Limit(cfg.API.RatePerSec), cfg.API.RateBurst))

	flow := chat.NewFlow(manager, client)

	// Pick up config edits made while the app is running.
	watcher, err := config.NewWatcher(500*time.Millisecond, nil)
	if err == nil {
		if err := watcher.Watch(); err != nil {
			log.Printf("config watcher: %v", err)
		}
		defer watcher.Close()
	}

	if tuiMode {
		return ui.Run(manager, flow, cfg)
	}
	return cli.NewRepl(manager, flow, client, cfg, quiet).Run()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		config.SetGlobal(cfg)
		return cfg, nil
	}

	cfg, err := config.Load()
	if err != nil {
		// Defaults are still usable; report and continue.
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	config.SetGlobal(cfg)
	return cfg, nil
}
