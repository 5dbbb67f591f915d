// Command relayd hosts the websocket signaling relay used by peer calls.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/config"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay/wsrelay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		addr       string
		logLevel   string
		statsEvery time.Duration
	)
	flag.StringVar(&configPath, "config", "", "path to a yaml config file")
	flag.StringVar(&addr, "addr", "", "listen address, overrides relay.addr")
	flag.StringVar(&logLevel, "log-level", "", "log level, overrides log_level")
	flag.DurationVar(&statsEvery, "stats", 30*time.Second, "interval of the stats log line, 0 disables it")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Relay.Addr = addr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	lvl, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
	log := slog.Default().With(slog.String("component", "relayd"))

	srv := wsrelay.NewServer(wsrelay.ServerConfig{
		Addr:    cfg.Relay.Addr,
		Path:    cfg.Relay.Path,
		Metrics: metrics.New("lovecall"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("failed to start relay: %w", err)
	}

	if statsEvery > 0 {
		go func() {
			ticker := time.NewTicker(statsEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					log.Info("relay stats", slog.Any("stats", srv.Stats()))
				}
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
