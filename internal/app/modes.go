package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fixedmarket/internal/cache/redis"
	"github.com/alanyoungcy/fixedmarket/internal/clock"
	"github.com/alanyoungcy/fixedmarket/internal/server"
	"github.com/alanyoungcy/fixedmarket/internal/server/handler"
	"github.com/alanyoungcy/fixedmarket/internal/server/ws"
	"github.com/alanyoungcy/fixedmarket/internal/service"
)

// ServeMode runs the HTTP + WebSocket API until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "serve mode starting")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode snapshots every terminal item to blob storage once and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "archive mode starting")

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: blob storage not configured")
	}

	n, err := deps.Archiver.ArchiveTerminalItems(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}
	a.logger.InfoContext(ctx, "archive complete", slog.Int64("items", n))
	return nil
}

// FullMode runs the API server together with a periodic archive loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "full mode starting")

	g, ctx := errgroup.WithContext(ctx)

	a.startHTTPServer(ctx, g, deps)

	if deps.Archiver != nil && a.cfg.Archive.IntervalMinutes > 0 {
		interval := time.Duration(a.cfg.Archive.IntervalMinutes) * time.Minute
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					n, err := deps.Archiver.ArchiveTerminalItems(ctx, time.Now().UTC())
					if err != nil {
						a.logger.ErrorContext(ctx, "periodic archive failed",
							slog.String("error", err.Error()),
						)
						continue
					}
					a.logger.InfoContext(ctx, "periodic archive complete",
						slog.Int64("items", n),
					)
				}
			}
		})
	}

	return g.Wait()
}

// startHTTPServer adds the API server goroutines to the given errgroup: the
// WebSocket hub, the listener, and a watcher that shuts the server down
// gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	retention := service.DefaultRetention
	if a.cfg.Market.RetentionDays > 0 {
		retention = time.Duration(a.cfg.Market.RetentionDays) * 24 * time.Hour
	}

	lifecycle := service.NewItemLifecycle(
		deps.Store,
		clock.System{},
		deps.Gate,
		a.logger,
		service.WithItemCache(deps.ItemCache),
		service.WithEventBus(deps.EventBus),
		service.WithRetention(retention),
	)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Items:  handler.NewItemHandler(lifecycle, a.logger),
	}

	// WebSocket hub fans lifecycle events out to browser clients.
	var hub *ws.Hub
	if deps.EventBus != nil {
		hub = ws.NewHub(deps.EventBus, []string{redis.ChannelItems}, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		MaxAuthSkew: time.Duration(a.cfg.Server.MaxAuthSkewSeconds) * time.Second,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Second,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
