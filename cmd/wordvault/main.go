// Copyright 2026 The WordVault Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the dictionary server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

WordVault maintains persistent, mutable word dictionaries with probability
ranking for predictive text input. It can operate as a MessagePack IPC
server for integration with input methods and editors, or as a CLI
application for testing and debugging.

The server mode opens one dictionary session and serves edits and queries
over stdin/stdout. Words carry probabilities from 0 to 255, optional
shortcuts and usage history; bigram and trigram associations model which
words follow which. Everything mutates in memory and persists through
atomic whole-file flushes.

# Usage

Start the server with default settings:

	wvault

Use a custom data directory and enable debug mode:

	wvault -data /path/to/dicts -d

Run in CLI mode for interactive testing:

	wvault -c -dict scratch.wvlt

The data directory holds dictionary files named *.wvlt. A missing
dictionary file is created on startup with the capacities from the config,
so a bare `wvault` gets an empty working dictionary on first run.

# Configuration

Runtime configuration is managed through a TOML file that supports
dictionary capacities, server parameters and logging:

	[dict]
	max_unigram_count = 12288
	max_bigram_count = 24576
	gc_blocking_window = 64
	locale = "en"

	[server]
	respect_gc_window = true
	auto_flush_ops = 128

	[log]
	level = "info"

The config file is automatically created with defaults if it doesn't exist.
Server mode reloads configuration on change without restart.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Requests are
processed synchronously with microsecond timing information included in
responses.

Send an edit request:

	{"id": "req1", "op": "add_word", "w": "hello", "p": 180}

Query a probability:

	{"id": "req2", "op": "freq", "w": "hello"}
	{"id": "req2", "status": "ok", "p": 180, "t": 21}

Ngram requests carry their context words most recent first:

	{"id": "req3", "op": "add_ngram", "ctx": ["hello"], "w": "world", "p": 140}

Maintenance ops (flush, flush_gc, needs_gc, stat, migrate) keep long
sessions healthy without restarting the host process.

# Server Mode

The default mode starts a MessagePack IPC server that processes dictionary
requests from stdin and writes responses to stdout. This design enables
integration with input methods and other applications through process
communication.

	srv := server.NewServer(session, config, configPath)
	err := srv.Start()

The server automatically handles request parsing, validation and response
formatting. It includes mutation-triggered auto-flushing, garbage
collection between requests and configuration reloading for long-running
sessions.

# CLI Mode

CLI mode provides an interactive interface for testing and debugging
dictionary functionality. It reads commands from stdin and displays
entries with probability information.

	inputHandler := cli.NewInputHandler(session)
	err := inputHandler.Start()

This mode is primarily intended for development and testing new features
before deploying to server mode. It edits the same dictionary files as the
server but with human-readable output.

# Command Line Flags

The following flags control application behavior:

	-data string
	    Directory containing dictionary files (default "data/")
	-dict string
	    Dictionary file to open, relative to the data directory (default "user.wvlt")
	-config string
	    Custom config file path
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-ro Open the dictionary read-only
	-locale string
	    Locale recorded when creating a fresh dictionary

The application automatically resolves data and config paths relative to
the executable location, supporting both development and production
deployments.

# Maintenance

Mutations accumulate in memory and reach disk through flushes. The server
flushes automatically every auto_flush_ops successful edits and compacts
the file whenever the session reports that garbage collection would pay
off. Compaction evicts the lowest-probability entries once capacity limits
are crossed, so long-running sessions stay bounded.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/bastiangx/wordvault/internal/cli"
	"github.com/bastiangx/wordvault/internal/logger"
	"github.com/bastiangx/wordvault/internal/utils"
	"github.com/bastiangx/wordvault/pkg/config"
	"github.com/bastiangx/wordvault/pkg/dict"
	"github.com/bastiangx/wordvault/pkg/server"
)

const (
	Version = "0.1.0-beta"
	AppName = "wordvault"
	gh      = "https://github.com/bastiangx/wordvault"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	// custom Flags
	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", "data/", "Directory containing dictionary files")
	dictFile := flag.String("dict", "user.wvlt", "Dictionary file to open, relative to the data directory")
	configPath := flag.String("config", "", "Custom config file path")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	readOnly := flag.Bool("ro", false, "Open the dictionary read-only")
	locale := flag.String("locale", defaultConfig.Dict.Locale, "Locale recorded when creating a fresh dictionary")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded .env file")
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	// Initialize path resolver for robust path handling
	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	resolvedDataDir, err := pathResolver.DataDir(*dataDir)
	if err != nil {
		log.Fatalf("Failed to resolve data dir: (%v)", err)
	}
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	appConfig, activeConfigPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !*debugMode && appConfig.Log.Level != "" {
		if level, err := log.ParseLevel(appConfig.Log.Level); err == nil {
			log.SetLevel(level)
		}
	}
	logger.ApplyEnvLevel()

	dictPath := *dictFile
	if !filepath.IsAbs(dictPath) {
		dictPath = filepath.Join(resolvedDataDir, dictPath)
	}

	session, err := openSession(dictPath, appConfig, *readOnly, *locale)
	if err != nil {
		log.Fatalf("Failed to open dictionary %s: %v", dictPath, err)
	}

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(session)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		shutdown(session)
		return
	}

	log.Debug("spawning IPC")
	log.Debugf("Using config file: (%s)", activeConfigPath)

	srv := server.NewServer(session, appConfig, activeConfigPath)

	showStartupInfo(session)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	shutdown(session)
}

// openSession opens the dictionary file, creating it first when it does not
// exist yet
func openSession(path string, cfg *config.Config, readOnly bool, locale string) (*dict.Dictionary, error) {
	if utils.FileExists(path) {
		return dict.OpenWith(path, dict.SessionOptions{
			ReadOnly:         readOnly,
			GCBlockingWindow: cfg.Dict.GCBlockingWindow,
		})
	}
	if readOnly {
		return nil, fmt.Errorf("dictionary %s does not exist", path)
	}
	log.Debugf("Creating new dictionary at %s", path)
	return dict.Create(path, dict.CreateOptions{
		Locale:           locale,
		MaxUnigrams:      cfg.Dict.MaxUnigramCount,
		MaxNgrams:        cfg.Dict.MaxBigramCount,
		GCBlockingWindow: cfg.Dict.GCBlockingWindow,
	})
}

// shutdown flushes pending mutations and releases the session.
func shutdown(session *dict.Dictionary) {
	if session.Updatable() {
		if err := session.Flush(); err != nil {
			log.Warnf("Final flush failed: %v", err)
		}
	}
	if err := session.Close(); err != nil {
		log.Warnf("Close failed: %v", err)
	}
}

func printVersion() {
	vlog := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()

	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["version"] = lipgloss.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})

	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

	vlog.SetStyles(styles)

	vlog.Print("")
	vlog.Print("[ WordVault ] Keeps your words, ranked and remembered!")
	vlog.Print("", "version", Version)
	vlog.Print("")
	vlog.Print("use -h or --help to see available options")
	vlog.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(session *dict.Dictionary) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" WordVault ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("dictionary: ( %s )", session.Path())
	log.Infof("format: v%d, words: %s", session.FormatVersion(), session.Stat(dict.StatUnigramCount))
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
