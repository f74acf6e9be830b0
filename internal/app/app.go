// Package app wires the livechat services together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/livechat/internal/auth"
	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/config"
	"github.com/nfrund/livechat/internal/events"
	"github.com/nfrund/livechat/internal/presence"
	"github.com/nfrund/livechat/internal/pubsub"
	"github.com/nfrund/livechat/internal/rendering"
	"github.com/nfrund/livechat/internal/server"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
)

// The injector calls Shutdown on services in reverse dependency order; these
// wrappers give the services that only have Close a Shutdown method.

type tracingService struct {
	tracer  trace.Tracer
	cleanup func()
}

func (t *tracingService) Shutdown() { t.cleanup() }

type busService struct {
	*pubsub.Bridge
	cancel context.CancelFunc
}

func (b *busService) Shutdown() error {
	b.cancel()
	return b.Close()
}

type chatService struct {
	*chat.Service
}

func (c *chatService) Shutdown() { c.Close() }

type directoryService struct {
	*auth.Directory
	cancel context.CancelFunc
}

func (d *directoryService) Shutdown() { d.cancel() }

// App owns the injector and every service it builds.
type App struct {
	injector *do.RootScope
}

// New registers all providers. Nothing is built until Server is called.
// fs is used for the optional users file.
func New(cfg *config.Config, fs afero.Fs) *App {
	i := do.New()
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, fs)

	do.Provide(i, newTracing)
	do.Provide(i, newBus)
	do.Provide(i, newDirectory)
	do.Provide(i, newChat)
	do.Provide(i, newRoster)
	do.Provide(i, func(do.Injector) (*rendering.UniversalRenderer, error) {
		return rendering.NewUniversalRenderer(), nil
	})
	do.Provide(i, newServer)

	return &App{injector: i}
}

// Server builds the dependency graph and returns the HTTP server with its
// routes registered.
func (a *App) Server() (*server.Server, error) {
	return do.Invoke[*server.Server](a.injector)
}

const shutdownTimeout = 10 * time.Second

// Run builds the server and serves on addr until ctx is cancelled, then shuts
// every service down.
func (a *App) Run(ctx context.Context, addr string) error {
	s, err := a.Server()
	if err != nil {
		return err
	}
	runErr := s.Run(ctx, addr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops every built service, dependents first.
func (a *App) Shutdown(ctx context.Context) error {
	report := a.injector.ShutdownWithContext(ctx)
	if report != nil && !report.Succeed {
		return report
	}
	return nil
}

func newTracing(i do.Injector) (*tracingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tracer, cleanup, err := pubsub.SetupOTel(context.Background(), pubsub.TracingConfigFrom(cfg))
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	return &tracingService{tracer: tracer, cleanup: cleanup}, nil
}

func newBus(i do.Injector) (*busService, error) {
	cfg := do.MustInvoke[*config.Config](i)

	var bridge *pubsub.Bridge
	if cfg.TracingEnabled {
		t, err := do.Invoke[*tracingService](i)
		if err != nil {
			return nil, err
		}
		bridge = pubsub.NewBridgeWithTracer(t.tracer)
	} else {
		bridge = pubsub.NewBridge()
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := events.Audit(ctx, bridge, slog.Default()); err != nil {
		cancel()
		_ = bridge.Close()
		return nil, fmt.Errorf("start audit log: %w", err)
	}
	return &busService{Bridge: bridge, cancel: cancel}, nil
}

func newDirectory(i do.Injector) (*directoryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	fs := do.MustInvoke[afero.Fs](i)

	dir, err := auth.NewDirectory(auth.DefaultUsers())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.UsersFile != "" {
		if err := dir.LoadFile(fs, cfg.UsersFile); err != nil {
			cancel()
			return nil, fmt.Errorf("load users: %w", err)
		}
		if err := dir.Watch(ctx, fs, cfg.UsersFile); err != nil {
			slog.Warn("Users file will not be reloaded", "path", cfg.UsersFile, "error", err)
		}
	}
	return &directoryService{Directory: dir, cancel: cancel}, nil
}

func newChat(i do.Injector) (*chatService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	bus, err := do.Invoke[*busService](i)
	if err != nil {
		return nil, err
	}

	svc := chat.NewService(
		chat.ServiceConfig{
			Buffer:           cfg.ChatBuffer,
			MaxSubscribers:   cfg.ChatMaxSubscribers,
			MaxMessageLength: cfg.ChatMaxMessageLength,
		},
		chat.WithPostObserver(events.PostObserver(bus, nil)),
	)
	return &chatService{Service: svc}, nil
}

func newRoster(i do.Injector) (*presence.Roster, error) {
	bus, err := do.Invoke[*busService](i)
	if err != nil {
		return nil, err
	}
	roster := presence.NewRoster(nil)
	// The bus subscription ends when the bus is closed.
	if err := roster.Start(context.Background(), bus); err != nil {
		return nil, fmt.Errorf("start presence: %w", err)
	}
	return roster, nil
}

func newServer(i do.Injector) (*server.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	dir, err := do.Invoke[*directoryService](i)
	if err != nil {
		return nil, err
	}
	svc, err := do.Invoke[*chatService](i)
	if err != nil {
		return nil, err
	}
	roster, err := do.Invoke[*presence.Roster](i)
	if err != nil {
		return nil, err
	}
	bus, err := do.Invoke[*busService](i)
	if err != nil {
		return nil, err
	}

	s, err := server.New(server.Dependencies{
		Config:    cfg,
		Directory: dir.Directory,
		Chat:      svc.Service,
		Roster:    roster,
		Bus:       bus,
		Renderer:  do.MustInvoke[*rendering.UniversalRenderer](i),
	})
	if err != nil {
		return nil, err
	}
	s.RegisterRoutes()
	return s, nil
}
