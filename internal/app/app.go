// Package app wires all diarist subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API, and Shutdown tears everything down
// in order.
//
// For testing, inject mock implementations via functional options
// (WithConversationStore, WithCalendarClient, etc.). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pcurran/diarist/internal/chat"
	"github.com/pcurran/diarist/internal/config"
	"github.com/pcurran/diarist/internal/health"
	"github.com/pcurran/diarist/internal/observe"
	"github.com/pcurran/diarist/internal/resilience"
	"github.com/pcurran/diarist/internal/server"
	"github.com/pcurran/diarist/pkg/calendar"
	googlecal "github.com/pcurran/diarist/pkg/calendar/google"
	"github.com/pcurran/diarist/pkg/provider/llm"
	"github.com/pcurran/diarist/pkg/store"
	"github.com/pcurran/diarist/pkg/store/postgres"
)

// App owns all subsystem lifetimes and serves the diarist chat API.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// Subsystems — initialised in New, torn down in Shutdown.
	provider      llm.Provider
	cal           calendar.Client
	conversations store.ConversationStore
	appointments  store.AppointmentStore
	manager       *chat.Manager
	srv           *server.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithConversationStore injects a turn log instead of creating one from config.
func WithConversationStore(s store.ConversationStore) Option {
	return func(a *App) { a.conversations = s }
}

// WithAppointmentStore injects an appointment mirror instead of creating one
// from config.
func WithAppointmentStore(s store.AppointmentStore) Option {
	return func(a *App) { a.appointments = s }
}

// WithCalendarClient injects a calendar client instead of creating one from config.
func WithCalendarClient(c calendar.Client) Option {
	return func(a *App) { a.cal = c }
}

// WithLLMProvider injects a model provider instead of creating one from config.
func WithLLMProvider(p llm.Provider) Option {
	return func(a *App) { a.provider = p }
}

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any collaborator.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(a)
	}

	metrics := observe.DefaultMetrics()

	var checkers []health.Checker

	// ── 1. Storage ───────────────────────────────────────────────────────
	if a.conversations == nil || a.appointments == nil {
		dsn := cfg.Storage.PostgresDSN
		if dsn == "" {
			return nil, fmt.Errorf("app: storage.postgres_dsn is required when stores are not injected")
		}
		st, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("app: init storage: %w", err)
		}
		if a.conversations == nil {
			a.conversations = st.Conversations()
		}
		if a.appointments == nil {
			a.appointments = st.Appointments()
		}
		a.closers = append(a.closers, func() error {
			st.Close()
			return nil
		})
		checkers = append(checkers, health.Checker{Name: "database", Check: st.Ping})
	}

	// ── 2. Calendar client ───────────────────────────────────────────────
	if a.cal == nil {
		cal, err := a.buildCalendar(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: init calendar: %w", err)
		}
		a.cal = cal
	}

	// ── 3. Model provider ────────────────────────────────────────────────
	if a.provider == nil {
		p, err := buildLLM(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("app: init llm: %w", err)
		}
		a.provider = p
	}

	// ── 4. Orchestration ─────────────────────────────────────────────────
	registry := chat.DefaultRegistry()

	executorOpts := []chat.ExecutorOption{
		chat.WithAppointmentMirror(a.appointments),
	}
	if d := cfg.Assistant.ToolTimeout.Std(); d > 0 {
		executorOpts = append(executorOpts, chat.WithToolTimeout(d))
	}
	executor := chat.NewExecutor(a.cal, logger, executorOpts...)

	loopOpts := []chat.LoopOption{
		chat.WithMetrics(metrics),
		chat.WithProviderName(cfg.LLM.Name),
		chat.WithSampling(cfg.Assistant.Temperature, cfg.Assistant.MaxTokens),
	}
	if cfg.Assistant.CycleBudget > 0 {
		loopOpts = append(loopOpts, chat.WithCycleBudget(cfg.Assistant.CycleBudget))
	}
	if d := cfg.Assistant.ModelTimeout.Std(); d > 0 {
		loopOpts = append(loopOpts, chat.WithModelTimeout(d))
	}
	loop := chat.NewLoop(a.provider, registry, executor, logger, loopOpts...)

	a.manager = chat.NewManager(loop, a.conversations, logger,
		chat.WithManagerMetrics(metrics),
		chat.WithManagerAppointments(a.appointments),
	)

	// ── 5. HTTP server ───────────────────────────────────────────────────
	probes := health.New(checkers...)
	a.srv = server.New(cfg.Server, a.manager, probes, metrics, logger)

	return a, nil
}

// Manager returns the chat manager. Exposed for tests that drive cycles
// without going through HTTP.
func (a *App) Manager() *chat.Manager { return a.manager }

// buildCalendar constructs the configured calendar backend.
func (a *App) buildCalendar(ctx context.Context) (calendar.Client, error) {
	c := a.cfg.Calendar
	switch c.Provider {
	case "google":
		ts, err := googleTokenSource(ctx, c.CredentialsFile, c.TokenFile)
		if err != nil {
			return nil, err
		}
		var opts []googlecal.Option
		if c.CalendarID != "" {
			opts = append(opts, googlecal.WithCalendarID(c.CalendarID))
		}
		if c.ListLimit > 0 {
			opts = append(opts, googlecal.WithListLimit(int64(c.ListLimit)))
		}
		return googlecal.New(ctx, ts, opts...)
	case "":
		return nil, fmt.Errorf("calendar.provider is required when no calendar client is injected")
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", c.Provider)
	}
}

// buildLLM constructs the primary model provider and wraps it with the
// configured fallbacks, each behind its own circuit breaker.
func buildLLM(cfg config.LLMConfig) (llm.Provider, error) {
	primary, err := newProvider(cfg.ProviderEntry)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Name, err)
	}
	if len(cfg.Fallbacks) == 0 {
		return primary, nil
	}

	group := resilience.NewLLMFallback(primary, cfg.Name, resilience.FallbackConfig{})
	for _, fb := range cfg.Fallbacks {
		p, err := newProvider(fb)
		if err != nil {
			return nil, fmt.Errorf("create fallback llm provider %q: %w", fb.Name, err)
		}
		group.AddFallback(fb.Name, p)
		slog.Info("registered llm fallback", "name", fb.Name, "model", fb.Model)
	}
	return group, nil
}

// Run serves the HTTP API and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app running",
		"llm", a.cfg.LLM.Name,
		"model", a.cfg.LLM.Model,
		"calendar", a.cfg.Calendar.Provider,
	)
	return a.srv.Run(ctx)
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.logger.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.logger.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.logger.Warn("closer error", "index", i, "err", err)
			}
		}

		a.logger.Info("shutdown complete")
	})
	return shutdownErr
}
