// Command lovecall places voice calls with the virtual partner or with another
// person over the signaling relay.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/config"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store/postgres"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/tools"
)

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// app holds the process-wide dependencies shared by every call.
type app struct {
	args    *cliArgs
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	store   store.Store
	outbox  *tools.Outbox

	closeOnce sync.Once
	closers   []func()
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
	})
}

func newApp(ctx context.Context, args *cliArgs, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{
		args:    args,
		cfg:     cfg,
		log:     log,
		metrics: metrics.New("lovecall"),
	}

	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.store = pg
		a.closers = append(a.closers, pg.Close)
	} else {
		log.Warn("no database configured, records are kept in memory")
		a.store = store.NewMemory()
	}

	a.outbox = tools.NewOutbox(a.store, tools.OutboxConfig{Metrics: a.metrics})
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.outbox.Close(ctx); err != nil {
			log.Warn("outbox not drained", slog.Any("err", err))
		}
	})

	if cfg.MetricsAddr != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", a.metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: r}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", slog.Any("err", err))
			}
		}()
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}

	return a, nil
}

func main() {
	args, cfg, log := initCLI()

	// SIGINT is left to the commands, it hangs up the current call.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, args, cfg, log)
	must(err)
	defer a.close()

	switch args.command {
	case "partner":
		err = a.runPartner(ctx)
	case "peer":
		err = a.runPeer(ctx)
	default:
		err = fmt.Errorf("unknown command [%s]", args.command)
	}
	if err != nil {
		log.Error("failed", slog.Any("err", err))
		a.close()
		os.Exit(1)
	}
}
