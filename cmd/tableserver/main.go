package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/riverline/holdem-table/internal/wsserver"
)

var cli struct {
	Config   string `short:"c" default:"tableserver.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Address to bind to (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Tables   int    `short:"t" default:"1" help:"Number of tables to create on startup"`
}

func main() {
	kctx := kong.Parse(&cli)

	cfg, err := wsserver.LoadServerConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		kctx.Exit(1)
	}

	if cli.Addr != "" {
		host, port, splitErr := splitAddr(cli.Addr)
		if splitErr == nil {
			cfg.Server.Address = host
			cfg.Server.Port = port
		}
	}
	if cli.LogLevel != "" {
		cfg.Server.LogLevel = cli.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	clock := quartz.NewReal()
	registry := wsserver.NewRegistry(clock, cfg.ReapInterval(), logger)
	registry.StartReaper()

	tableCfg := cfg.TableConfig()
	for i := 0; i < cli.Tables; i++ {
		id := uuid.NewString()
		registry.Create(id, tableCfg)
		logger.Info("created table", "id", id, "small_blind", tableCfg.SmallBlind, "big_blind", tableCfg.BigBlind)
	}

	server := wsserver.NewServer(cfg.Address(), registry, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("starting table server", "addr", cfg.Address(), "tables", cli.Tables)
	if err := server.Start(); err != nil {
		logger.Error("server failed", "error", err)
		kctx.Exit(1)
	}
}

func splitAddr(addr string) (host string, port int, err error) {
	h, p, ok := strings.Cut(addr, ":")
	if !ok {
		return "", 0, fmt.Errorf("tableserver: address %q must be host:port", addr)
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("tableserver: invalid port in %q: %w", addr, err)
	}
	return h, port, nil
}
