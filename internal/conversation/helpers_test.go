package conversation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/trio/internal/llm"
	"github.com/p-blackswan/trio/internal/persona"
	"github.com/p-blackswan/trio/internal/store"
)

// fakeProvider records every request and answers through respond.
type fakeProvider struct {
	mu       sync.Mutex
	requests []llm.CompletionRequest
	respond  func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return &llm.CompletionResponse{Text: "reply from " + personaOf(req).String()}, nil
	}
	return f.respond(ctx, req)
}

func (f *fakeProvider) calls(p persona.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if personaOf(r) == p {
			n++
		}
	}
	return n
}

func (f *fakeProvider) request(i int) llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func personaOf(req llm.CompletionRequest) persona.ID {
	for _, p := range persona.All() {
		if p.Profile().Instructions == req.SystemPrompt {
			return p
		}
	}
	return 0
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingObserver) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "trio.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, opts ...func(*Deps)) (*Orchestrator, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	d := Deps{
		Store:    s,
		Provider: provider,
		Model:    llm.ModelConfig{Model: "test-model", MaxTokens: 256},
		Logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	o, err := New(d)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o, s
}

func mustProject(t *testing.T, s *store.Store, title string) int64 {
	t.Helper()
	p, err := s.CreateProject(store.CreateProjectInput{Title: title, InitialEnthusiasm: 8})
	require.NoError(t, err)
	return p.ID
}

func waitTurn(t *testing.T, turn *Turn) TurnResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := turn.Wait(ctx)
	require.NoError(t, err, "turn did not finish")
	return res
}

func appendEntry(t *testing.T, s *store.Store, projectID int64, speaker, thread, msg string) *store.Entry {
	t.Helper()
	e := &store.Entry{ProjectID: projectID, Speaker: speaker, Thread: thread, Message: msg}
	require.NoError(t, s.AppendEntry(e))
	return e
}
