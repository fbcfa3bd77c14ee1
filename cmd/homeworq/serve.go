package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/homeworq/internal/config"
	"github.com/nextlevelbuilder/homeworq/internal/engine"
	"github.com/nextlevelbuilder/homeworq/internal/httpapi"
	"github.com/nextlevelbuilder/homeworq/internal/store"
	"github.com/nextlevelbuilder/homeworq/internal/task"
	"github.com/nextlevelbuilder/homeworq/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

// serveCmd runs the engine and, if enabled, the control-plane HTTP API,
// until SIGINT. Grounded on cron.Service.Start/Stop's lifecycle. The
// engine runs its own dispatcher beat from e.Start and is stopped on
// return; an errgroup coordinates the HTTP listener and the goroutine
// that shuts it down once the context is cancelled.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and control-plane API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(baseCtx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.DBURI)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	registry := task.NewRegistry()
	if err := registry.Register(tasks.Ping()); err != nil {
		return err
	}
	if err := registry.Register(tasks.CleanupLogs(st)); err != nil {
		return err
	}

	defaults, err := cfg.DefaultJobs()
	if err != nil {
		return fmt.Errorf("invalid default job declarations: %w", err)
	}

	e := engine.New(registry, st, defaults)

	ctx, cancel := signal.NotifyContext(baseCtx, os.Interrupt)
	defer cancel()

	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer e.Stop()

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath)
		if err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		watcher.OnChange(func(c *config.Config) {
			defs, err := c.DefaultJobs()
			if err != nil {
				return
			}
			_ = engine.NewReconciler(st).Reconcile(defs)
		})
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.APIOn {
		username, password := config.AdminCredentials()
		srv = httpapi.NewServer(e, cfg.APIAuth, username, password)
		addr := net.JoinHostPort(cfg.APIHost, strconv.Itoa(cfg.APIPort))
		srv.Addr = addr

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if srv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}
