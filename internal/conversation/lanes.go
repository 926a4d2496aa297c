package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

// lane serializes the turns of one project.
type lane struct {
	projectID int64
	queue     chan *Turn

	mu    sync.Mutex
	state State
}

func (l *lane) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *lane) getState() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// runFunc executes one turn on its lane.
type runFunc func(ctx context.Context, l *lane, t *Turn)

// lanes owns one worker goroutine per project that has had a turn.
type lanes struct {
	mu     sync.Mutex
	byID   map[int64]*lane
	depth  int
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	run    runFunc
	logger zerolog.Logger
}

func newLanes(depth int, run runFunc, logger zerolog.Logger) *lanes {
	ctx, cancel := context.WithCancel(context.Background())
	return &lanes{
		byID:   make(map[int64]*lane),
		depth:  depth,
		ctx:    ctx,
		cancel: cancel,
		run:    run,
		logger: logger,
	}
}

// submit enqueues t on its project's lane, starting the lane if needed.
func (ls *lanes) submit(t *Turn) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.closed {
		return perrors.NotReadyf("orchestrator is closed")
	}

	l, ok := ls.byID[t.ProjectID]
	if !ok {
		l = &lane{
			projectID: t.ProjectID,
			queue:     make(chan *Turn, ls.depth),
			state:     StateIdle,
		}
		ls.byID[t.ProjectID] = l
		ls.wg.Add(1)
		go ls.worker(l)
		ls.logger.Debug().Int64("project_id", t.ProjectID).Msg("lane started")
	}

	select {
	case l.queue <- t:
		ls.logger.Debug().
			Str("turn_id", t.ID).
			Int64("project_id", t.ProjectID).
			Str("kind", string(t.Kind)).
			Msg("turn enqueued")
		return nil
	default:
		return fmt.Errorf("%w: project %d already has %d turns queued", perrors.ErrBusy, t.ProjectID, ls.depth)
	}
}

func (ls *lanes) worker(l *lane) {
	defer ls.wg.Done()
	for {
		select {
		case <-ls.ctx.Done():
			ls.drain(l)
			return
		case t := <-l.queue:
			if ls.ctx.Err() != nil {
				t.finish(TurnResult{Err: perrors.NotReadyf("orchestrator closed before turn %s ran", t.ID)})
				continue
			}
			ls.run(ls.ctx, l, t)
		}
	}
}

func (ls *lanes) drain(l *lane) {
	for {
		select {
		case t := <-l.queue:
			t.finish(TurnResult{Err: perrors.NotReadyf("orchestrator closed before turn %s ran", t.ID)})
		default:
			return
		}
	}
}

// state reports the lane state for a project; projects without a lane are idle.
func (ls *lanes) state(projectID int64) State {
	ls.mu.Lock()
	l, ok := ls.byID[projectID]
	ls.mu.Unlock()
	if !ok {
		return StateIdle
	}
	return l.getState()
}

// close cancels running turns, fails queued ones and waits for every worker to exit.
func (ls *lanes) close() {
	ls.mu.Lock()
	if ls.closed {
		ls.mu.Unlock()
		return
	}
	ls.closed = true
	n := len(ls.byID)
	ls.mu.Unlock()

	ls.cancel()
	ls.wg.Wait()
	ls.logger.Debug().Int("lanes", n).Msg("lanes stopped")
}
