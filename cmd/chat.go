package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/vibecheck-ai/vibecheck/internal/client"
	"github.com/vibecheck-ai/vibecheck/internal/config"
	"github.com/vibecheck-ai/vibecheck/internal/conversation"
	"github.com/vibecheck-ai/vibecheck/internal/export"
	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/observability"
	"github.com/vibecheck-ai/vibecheck/internal/session"
	"github.com/vibecheck-ai/vibecheck/internal/tui"
)

// runChat initializes and starts the interactive chat with Bubble Tea TUI.
func runChat(logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	sessionID := fs.String("session", "", "resume an existing session id")
	prompt := fs.String("prompt", "", "seed the opening message of a new session")
	showThinking := fs.Bool("show-thinking", false, "show intermediate reasoning text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Telemetry.Endpoint,
			Environment: cfg.Telemetry.Environment,
			ServiceName: cfg.Telemetry.ServiceName,
		}, logger)
		if err != nil {
			return fmt.Errorf("set up telemetry: %w", err)
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	api, err := client.New(client.Config{
		BaseURL:        cfg.APIBaseURL,
		Token:          cfg.APIToken,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	cache := conversation.NewCache()
	sess, err := loadOrCreateSession(ctx, api, cache, *sessionID)
	if err != nil {
		return err
	}

	conv := conversation.New(sess, logger)
	model, err := tui.New(ctx, api, conv, tui.Options{
		Logger:        logger,
		StreamTimeout: cfg.StreamTimeout,
		SeedPrompt:    *prompt,
		ShowThinking:  *showThinking,
		Cache:         cache,
		Exporter:      export.New("", logger),
	})
	if err != nil {
		return fmt.Errorf("create TUI: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}

// loadOrCreateSession resumes the requested session or creates a fresh one.
func loadOrCreateSession(ctx context.Context, api *client.Client, cache *conversation.Cache, id string) (*session.ChatSession, error) {
	if id != "" {
		if cached, ok := cache.Get(id); ok {
			return cached, nil
		}
		sess, err := api.GetSession(ctx, id)
		if err != nil {
			if errors.Is(err, client.ErrSessionNotFound) {
				return nil, fmt.Errorf("session %s not found", id)
			}
			return nil, fmt.Errorf("load session: %w", err)
		}
		cache.Put(sess)
		return sess, nil
	}

	sess, err := api.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	cache.Put(sess)
	return sess, nil
}
