// Package health runs the local diagnostics behind `trio doctor`.
package health

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/trio/internal/llm"
)

// Status represents the health status of a dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Result is the outcome of one named check.
type Result struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// CheckFunc checks one dependency and explains its status.
type CheckFunc func(ctx context.Context) (Status, string)

// Checker manages health checks for all dependencies.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChecker creates a new health checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: 15 * time.Second,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named health check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// RunAll executes all health checks concurrently and returns results sorted by name.
func (c *Checker) RunAll(ctx context.Context) []Result {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	results := make([]Result, 0, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, fn := range checks {
		wg.Add(1)
		go func(n string, f CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			s, detail := f(checkCtx)
			c.logger.Debug().Str("check", n).Str("status", string(s)).Msg(detail)
			mu.Lock()
			results = append(results, Result{Name: n, Status: s, Detail: detail})
			mu.Unlock()
		}(name, fn)
	}

	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Ready reports whether no result is down.
func Ready(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusDown {
			return false
		}
	}
	return true
}

// Pinger is implemented by the store.
type Pinger interface {
	Ping() error
}

// StoreCheck reports whether the database answers.
func StoreCheck(p Pinger) CheckFunc {
	return func(context.Context) (Status, string) {
		if err := p.Ping(); err != nil {
			return StatusDown, err.Error()
		}
		return StatusOK, "database reachable"
	}
}

// SettingsFileCheck reports whether the settings file exists and is private to its owner.
func SettingsFileCheck(path string) CheckFunc {
	return func(context.Context) (Status, string) {
		info, err := os.Stat(path)
		if err != nil {
			return StatusDown, err.Error()
		}
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			return StatusDegraded, fmt.Sprintf("%s is readable by others (%#o); run chmod 600", path, perm)
		}
		return StatusOK, path
	}
}

// GatewayConfiguredCheck reports whether an API key is available.
func GatewayConfiguredCheck(enabled bool) CheckFunc {
	return func(context.Context) (Status, string) {
		if !enabled {
			return StatusDown, "no API key; set api_key or ANTHROPIC_API_KEY"
		}
		return StatusOK, "API key present"
	}
}

// GatewayLiveCheck sends a one-token completion to verify the key and endpoint.
func GatewayLiveCheck(p llm.Provider) CheckFunc {
	return func(ctx context.Context) (Status, string) {
		if p == nil {
			return StatusDown, "gateway not configured"
		}
		start := time.Now()
		_, err := p.Complete(ctx, llm.CompletionRequest{
			Messages:  []llm.Message{llm.UserMessage("ping")},
			MaxTokens: 1,
		})
		if err != nil {
			return StatusDown, err.Error()
		}
		return StatusOK, fmt.Sprintf("responded in %s", time.Since(start).Round(time.Millisecond))
	}
}
