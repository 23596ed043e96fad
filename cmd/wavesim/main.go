package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/wavecore/internal/config"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/feed"
	"github.com/zeusync/wavecore/internal/injector"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "wavesim:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		levelPath  = flag.String("level", "", "path to a level file, overrides the config")
		maxTicks   = flag.Int("max-ticks", 0, "tick budget, overrides the config")
		realtime   = flag.Bool("realtime", false, "pace ticks on the wall clock")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *levelPath != "" {
		cfg.Level = *levelPath
	}
	if *maxTicks > 0 {
		cfg.Sim.MaxTicks = *maxTicks
	}
	if *realtime {
		cfg.Sim.Realtime = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(ctx)
	runCtx, finish := context.WithCancel(ctx)
	defer finish()

	for _, srv := range servers(app) {
		g.Go(func() error {
			app.Logger.Info("http listener started", log.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer finish()
		result, err := app.Run.RunUntilDone(runCtx, cfg.Sim.MaxTicks)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	})

	return g.Wait()
}

// servers returns one HTTP server per distinct configured address.
func servers(app *injector.App) []*http.Server {
	routes := map[string]*chi.Mux{}
	router := func(addr string) *chi.Mux {
		if r, ok := routes[addr]; ok {
			return r
		}
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(middleware.RequestID)
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		routes[addr] = r
		return r
	}

	if addr := app.Config.Metrics.Addr; addr != "" {
		router(addr).Handle("/metrics", app.Metrics.Handler())
	}
	if addr := app.Config.Feed.Addr; addr != "" {
		router(addr).With(httprate.LimitByIP(30, time.Minute)).Handle(feed.Path, app.Feed)
	}

	out := make([]*http.Server, 0, len(routes))
	for addr, r := range routes {
		out = append(out, &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}
	return out
}
