// Package cli is the terminal front end: cobra commands and an interactive REPL over the
// conversation orchestrator.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/trio/internal/config"
	"github.com/p-blackswan/trio/internal/conversation"
	perrors "github.com/p-blackswan/trio/internal/errors"
	"github.com/p-blackswan/trio/internal/llm"
	"github.com/p-blackswan/trio/internal/metrics"
	"github.com/p-blackswan/trio/internal/store"
)

// Options configures the command tree.
type Options struct {
	Env    *config.Env
	Logger zerolog.Logger
	// Provider replaces the Anthropic provider built from settings.
	Provider llm.Provider
}

// App is the explicit context shared by every command: it owns the store, the provider
// and the orchestrator, and closes them together.
type App struct {
	Env          *config.Env
	Settings     *config.Settings
	Store        *store.Store
	Provider     llm.Provider
	Orchestrator *conversation.Orchestrator
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger

	out *printer
}

// Open loads settings and builds the store, provider and orchestrator.
func Open(opts Options, out io.Writer) (*App, error) {
	env := opts.Env
	settings, err := config.LoadSettings(env.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(env.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	st, err := store.New(env.DBPath, opts.Logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Env:      env,
		Settings: settings,
		Store:    st,
		Metrics:  metrics.New(),
		Logger:   opts.Logger,
		out:      newPrinter(out, NewStyles(settings.Theme)),
	}

	a.Provider = opts.Provider
	if a.Provider == nil {
		key := env.APIKey
		if key == "" {
			key = settings.ResolvedAPIKey()
		}
		if key != "" {
			a.Provider = llm.NewAnthropicProvider(key,
				llm.WithModel(settings.Model),
				llm.WithMaxTokens(settings.MaxOutputTokens),
				llm.WithLogger(opts.Logger),
			)
		}
	}

	orch, err := conversation.New(conversation.Deps{
		Store:        st,
		Provider:     a.Provider,
		Model:        llm.ModelConfig{Model: settings.Model, MaxTokens: settings.MaxOutputTokens},
		Observer:     conversation.ObserverFunc(a.onEvent),
		Metrics:      a.Metrics,
		Logger:       opts.Logger,
		TurnTimeout:  env.TurnTimeout,
		HistoryLimit: env.HistoryLimit,
		LaneDepth:    env.LaneDepth,
		ExtractTasks: settings.ExtractTasks,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	a.Orchestrator = orch
	return a, nil
}

// Close stops in-flight turns and closes the database.
func (a *App) Close() error {
	a.Orchestrator.Close()
	return a.Store.Close()
}

// onEvent prints replies as soon as each persona answers.
func (a *App) onEvent(e conversation.Event) {
	switch e.Type {
	case conversation.EventReply:
		a.out.reply(*e.Reply, e.Kind == conversation.KindTeam)
	case conversation.EventTurnFailed:
		a.out.failure(e.Err)
	}
}

// await blocks until the turn ends. Turn failures were already printed by onEvent.
func (a *App) await(ctx context.Context, t *conversation.Turn) error {
	if t == nil {
		return nil
	}
	res, err := t.Wait(ctx)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return errTurnFailed
	}
	return nil
}

// project resolves the --project flag, falling back to the most recently active project.
func (a *App) project(id int64) (*store.Project, error) {
	if id > 0 {
		p, err := a.Store.GetProject(id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, perrors.NotFoundf("project %d", id)
		}
		return p, nil
	}
	p, err := a.Orchestrator.LatestProject()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, perrors.Validationf("no project yet; create one with `trio project new <title>`")
	}
	return p, nil
}
