// Package conversation coordinates persona turns against the store and the completion
// gateway. Every project has a lane that runs its turns one at a time, in request order.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/trio/internal/errors"
	"github.com/p-blackswan/trio/internal/llm"
	"github.com/p-blackswan/trio/internal/metrics"
	"github.com/p-blackswan/trio/internal/persona"
	"github.com/p-blackswan/trio/internal/store"
)

// Defaults applied by New for zero-valued Deps fields.
const (
	DefaultTurnTimeout = 120 * time.Second
	DefaultLaneDepth   = 4
)

// Deps holds the orchestrator's collaborators.
type Deps struct {
	Store *store.Store
	// Provider is nil when no API key is configured; turns then fail with ErrNotReady.
	Provider     llm.Provider
	Model        llm.ModelConfig
	Observer     Observer
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
	TurnTimeout  time.Duration
	HistoryLimit int
	LaneDepth    int
	ExtractTasks bool
}

// Orchestrator exposes the conversation operations used by the presentation layer.
type Orchestrator struct {
	store        *store.Store
	provider     llm.Provider
	model        llm.ModelConfig
	observer     Observer
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	assembler    *Assembler
	lanes        *lanes
	turnTimeout  time.Duration
	extractTasks bool
}

// New creates an orchestrator. Close must be called to stop its lanes.
func New(d Deps) (*Orchestrator, error) {
	if d.Store == nil {
		return nil, errors.New("conversation: store is required")
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.TurnTimeout <= 0 {
		d.TurnTimeout = DefaultTurnTimeout
	}
	if d.LaneDepth <= 0 {
		d.LaneDepth = DefaultLaneDepth
	}

	o := &Orchestrator{
		store:        d.Store,
		provider:     d.Provider,
		model:        d.Model,
		observer:     d.Observer,
		metrics:      d.Metrics,
		logger:       d.Logger.With().Str("component", "orchestrator").Logger(),
		assembler:    NewAssembler(d.Store, d.HistoryLimit),
		turnTimeout:  d.TurnTimeout,
		extractTasks: d.ExtractTasks,
	}
	o.lanes = newLanes(d.LaneDepth, o.execute, o.logger)
	return o, nil
}

// GatewayEnabled reports whether turns can be sent.
func (o *Orchestrator) GatewayEnabled() bool {
	return o.provider != nil
}

// Close cancels in-flight calls, fails queued turns and waits for all lanes to stop.
func (o *Orchestrator) Close() {
	o.lanes.close()
}

// State reports where the project's lane is in the turn state machine.
func (o *Orchestrator) State(projectID int64) State {
	return o.lanes.state(projectID)
}

// CreateProject creates a project and returns its id. See StartProject.
func (o *Orchestrator) CreateProject(title, description string, enthusiasm int) (int64, error) {
	p, _, err := o.StartProject(title, description, enthusiasm)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// StartProject creates a project and records a system note. When the gateway is
// configured it also queues an intro turn asking both personas to greet the project.
func (o *Orchestrator) StartProject(title, description string, enthusiasm int) (*store.Project, *Turn, error) {
	p, err := o.store.CreateProject(store.CreateProjectInput{
		Title:             title,
		Description:       description,
		InitialEnthusiasm: enthusiasm,
	})
	if err != nil {
		return nil, nil, err
	}
	note := &store.Entry{ProjectID: p.ID, Speaker: store.SpeakerSystem, Message: projectStartedNote(p.Title)}
	if err := o.store.AppendEntry(note); err != nil {
		return nil, nil, err
	}
	o.logger.Info().Int64("project_id", p.ID).Str("title", p.Title).Msg("project created")

	if !o.GatewayEnabled() {
		return p, nil, nil
	}
	t := o.newTurn(p.ID, KindPrompt, sparkIntroPrompt(p))
	t.steps = []step{
		{persona: persona.Spark, prompt: sparkIntroPrompt(p), history: true},
		{persona: persona.Proto, prompt: protoIntroPrompt(p), history: true},
	}
	if err := o.lanes.submit(t); err != nil {
		o.logger.Warn().Err(err).Int64("project_id", p.ID).Msg("intro turn not queued")
		return p, nil, nil
	}
	return p, t, nil
}

// SendPersonaTurn records text as a user message and queues a reply from p.
func (o *Orchestrator) SendPersonaTurn(projectID int64, p persona.ID, text string) (*Turn, error) {
	if !p.Valid() {
		return nil, perrors.Validationf("unknown persona %d", int(p))
	}
	text = strings.TrimSpace(text)
	if err := o.checkTurn(projectID, text); err != nil {
		return nil, err
	}
	t := o.newTurn(projectID, KindPersona, text)
	t.record = true
	t.touch = true
	t.steps = []step{{persona: p, prompt: text, history: true}}
	if err := o.submit(t); err != nil {
		return nil, err
	}
	return t, nil
}

// SendTeamTurn records text in the team thread and queues a relay: Spark answers first,
// then Proto answers with Spark's reply in its prompt.
func (o *Orchestrator) SendTeamTurn(projectID int64, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if err := o.checkTurn(projectID, text); err != nil {
		return nil, err
	}
	t := o.newTurn(projectID, KindTeam, text)
	t.record = true
	t.touch = true
	t.thread = store.ThreadTeam
	t.steps = []step{
		{persona: persona.Spark, prompt: teamOpeningPrompt(text)},
		{persona: persona.Proto, relay: func(prev Reply) string { return teamRelayPrompt(text, prev.Text) }},
	}
	if err := o.submit(t); err != nil {
		return nil, err
	}
	return t, nil
}

// RecoverContext asks Proto for a summary of the project and the next action.
func (o *Orchestrator) RecoverContext(projectID int64) (*Turn, error) {
	if err := o.checkTurn(projectID, recoverPrompt); err != nil {
		return nil, err
	}
	t := o.newTurn(projectID, KindPrompt, recoverPrompt)
	t.touch = true
	t.steps = []step{{persona: persona.Proto, prompt: recoverPrompt, history: true}}
	if err := o.submit(t); err != nil {
		return nil, err
	}
	return t, nil
}

// CaptureInsight stores a quick capture and returns its id. See Capture.
func (o *Orchestrator) CaptureInsight(projectID int64, text string) (int64, error) {
	in, _, err := o.Capture(projectID, text)
	if err != nil {
		return 0, err
	}
	return in.ID, nil
}

// Capture stores text as a capture insight. When the gateway is configured Spark is
// asked to respond to it; the returned turn is nil otherwise.
func (o *Orchestrator) Capture(projectID int64, text string) (*store.Insight, *Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, perrors.Validationf("capture text must not be empty")
	}
	if _, err := o.project(projectID); err != nil {
		return nil, nil, err
	}
	in, err := o.store.AddInsight(projectID, store.InsightCapture, text)
	if err != nil {
		return nil, nil, err
	}
	t := o.followUp(projectID, persona.Spark, capturePrompt(text))
	return in, t, nil
}

// CompleteTask marks a task complete. See FinishTask.
func (o *Orchestrator) CompleteTask(taskID int64, dopamineScore int) error {
	_, err := o.FinishTask(taskID, dopamineScore)
	return err
}

// FinishTask marks a task complete with the given dopamine score and, when the gateway
// is configured, asks Spark to celebrate it.
func (o *Orchestrator) FinishTask(taskID int64, dopamineScore int) (*Turn, error) {
	if dopamineScore < 1 || dopamineScore > 10 {
		return nil, perrors.Validationf("dopamine score must be between 1 and 10, got %d", dopamineScore)
	}
	task, err := o.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, perrors.NotFoundf("task %d", taskID)
	}
	if err := o.store.CompleteTask(taskID, dopamineScore); err != nil {
		return nil, err
	}
	o.logger.Info().Int64("task_id", taskID).Int("dopamine", dopamineScore).Msg("task completed")
	return o.followUp(task.ProjectID, persona.Spark, celebrationPrompt(task.Description, dopamineScore)), nil
}

// AddTask adds an open task to a project. An empty size means tiny.
func (o *Orchestrator) AddTask(projectID int64, description, size string) (*store.Task, error) {
	if _, err := o.project(projectID); err != nil {
		return nil, err
	}
	return o.store.AddTask(projectID, description, size)
}

// OpenTasks lists a project's incomplete tasks, oldest first.
func (o *Orchestrator) OpenTasks(projectID int64) ([]*store.Task, error) {
	return o.store.ListTasks(projectID, false)
}

// RecentInsights lists the newest insights; projectID 0 means every project.
func (o *Orchestrator) RecentInsights(projectID int64, limit int) ([]*store.Insight, error) {
	return o.store.RecentInsights(projectID, limit)
}

// History returns the context window p would see for its next message.
func (o *Orchestrator) History(projectID int64, p persona.ID, limit int) ([]llm.Message, error) {
	if !p.Valid() {
		return nil, perrors.Validationf("unknown persona %d", int(p))
	}
	if _, err := o.project(projectID); err != nil {
		return nil, err
	}
	return o.assembler.Window(projectID, p, limit, 0)
}

// Transcript returns up to limit entries spoken by p or the user, oldest first, for
// display. Unlike History the team thread is left in Entry.Thread rather than the text.
func (o *Orchestrator) Transcript(projectID int64, p persona.ID, limit int) ([]*store.Entry, error) {
	if !p.Valid() {
		return nil, perrors.Validationf("unknown persona %d", int(p))
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := o.store.RecentEntries(store.EntryFilter{
		ProjectID: projectID,
		Speakers:  []string{p.String(), store.SpeakerUser},
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Stats returns counters for a project.
func (o *Orchestrator) Stats(projectID int64) (store.Stats, error) {
	if _, err := o.project(projectID); err != nil {
		return store.Stats{}, err
	}
	st, err := o.store.GetStats(projectID)
	if err != nil {
		return store.Stats{}, err
	}
	return *st, nil
}

// Projects lists projects by most recent activity.
func (o *Orchestrator) Projects(limit int) ([]*store.Project, error) {
	return o.store.ListProjects(limit)
}

// LatestProject returns the most recently active project, or nil when there is none.
func (o *Orchestrator) LatestProject() (*store.Project, error) {
	return o.store.LatestActiveProject()
}

// checkTurn validates a turn request without writing anything.
func (o *Orchestrator) checkTurn(projectID int64, text string) error {
	if projectID <= 0 {
		return perrors.Validationf("no project selected")
	}
	if !o.GatewayEnabled() {
		return perrors.NotReadyf("completion gateway is not configured; set an API key")
	}
	if text == "" {
		return perrors.Validationf("message must not be empty")
	}
	_, err := o.project(projectID)
	return err
}

func (o *Orchestrator) project(projectID int64) (*store.Project, error) {
	if projectID <= 0 {
		return nil, perrors.Validationf("no project selected")
	}
	p, err := o.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, perrors.NotFoundf("project %d", projectID)
	}
	return p, nil
}

// followUp queues a prompt turn when the gateway is configured. Queueing failures are
// logged; the operation that triggered the follow-up has already succeeded.
func (o *Orchestrator) followUp(projectID int64, p persona.ID, prompt string) *Turn {
	if !o.GatewayEnabled() {
		return nil
	}
	t := o.newTurn(projectID, KindPrompt, prompt)
	t.steps = []step{{persona: p, prompt: prompt, history: true}}
	if err := o.lanes.submit(t); err != nil {
		o.logger.Warn().Err(err).Int64("project_id", projectID).Str("persona", p.String()).Msg("follow-up not queued")
		return nil
	}
	return t
}

func (o *Orchestrator) newTurn(projectID int64, kind Kind, text string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Kind:      kind,
		Text:      text,
		thread:    store.ThreadRegular,
		done:      make(chan struct{}),
	}
}

func (o *Orchestrator) submit(t *Turn) error {
	if err := o.lanes.submit(t); err != nil {
		o.metrics.RecordError("orchestrator", perrors.Classify(err))
		return err
	}
	return nil
}

// execute runs on the project's lane goroutine.
func (o *Orchestrator) execute(ctx context.Context, l *lane, t *Turn) {
	log := o.logger.With().
		Str("turn_id", t.ID).
		Int64("project_id", t.ProjectID).
		Str("kind", string(t.Kind)).
		Logger()

	o.metrics.TurnStarted()
	defer o.metrics.TurnFinished()
	o.notify(Event{Type: EventTurnStarted, TurnID: t.ID, ProjectID: t.ProjectID, Kind: t.Kind})

	res := o.runSteps(ctx, l, t, log)
	l.setState(StateIdle)

	status := "ok"
	if res.Err != nil {
		status = perrors.Classify(res.Err)
		o.metrics.RecordError("orchestrator", status)
		log.Warn().Err(res.Err).Int("replies", len(res.Replies)).Msg("turn failed")
		o.notify(Event{Type: EventTurnFailed, TurnID: t.ID, ProjectID: t.ProjectID, Kind: t.Kind, Err: res.Err})
	} else {
		log.Debug().Int("replies", len(res.Replies)).Msg("turn finished")
	}
	o.metrics.RecordTurn(string(t.Kind), status)
	o.notify(Event{Type: EventTurnFinished, TurnID: t.ID, ProjectID: t.ProjectID, Kind: t.Kind, Err: res.Err})
	t.finish(res)
}

func (o *Orchestrator) runSteps(ctx context.Context, l *lane, t *Turn, log zerolog.Logger) TurnResult {
	var res TurnResult
	var beforeID int64

	if t.record {
		l.setState(o.stepState(t, t.steps[0]))
		e := &store.Entry{ProjectID: t.ProjectID, Speaker: store.SpeakerUser, Thread: t.thread, Message: t.Text}
		if err := o.store.AppendEntry(e); err != nil {
			res.Err = err
			return res
		}
		beforeID = e.ID
	}
	if t.touch {
		if err := o.store.TouchProject(t.ProjectID); err != nil {
			res.Err = err
			return res
		}
	}

	var errs []error
	var prev *Reply
	for _, s := range t.steps {
		prompt := s.prompt
		if s.relay != nil {
			if prev == nil {
				break
			}
			prompt = s.relay(*prev)
		}
		l.setState(o.stepState(t, s))

		reply, err := o.ask(ctx, t, s, prompt, beforeID, log)
		if err != nil {
			if errors.Is(err, perrors.ErrPersistence) {
				res.Err = err
				if len(errs) > 0 {
					res.Err = errors.Join(append(errs, err)...)
				}
				return res
			}
			errs = append(errs, err)
			prev = nil
			continue
		}
		res.Replies = append(res.Replies, *reply)
		prev = reply
		o.notify(Event{Type: EventReply, TurnID: t.ID, ProjectID: t.ProjectID, Kind: t.Kind, Reply: reply})
	}

	switch len(errs) {
	case 0:
	case 1:
		res.Err = errs[0]
	default:
		res.Err = errors.Join(errs...)
	}
	return res
}

// ask makes one completion call and persists the reply.
func (o *Orchestrator) ask(ctx context.Context, t *Turn, s step, prompt string, beforeID int64, log zerolog.Logger) (*Reply, error) {
	msgs := []llm.Message{llm.UserMessage(prompt)}
	if s.history {
		var err error
		msgs, err = o.assembler.Assemble(t.ProjectID, s.persona, prompt, 0, beforeID)
		if err != nil {
			return nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	start := time.Now()
	resp, err := o.provider.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: s.persona.Profile().Instructions,
		Messages:     msgs,
		Model:        o.model.Model,
		MaxTokens:    o.model.MaxTokens,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		ge := perrors.AsGatewayError(s.persona.String(), err)
		o.metrics.ObserveGateway(s.persona.String(), perrors.Classify(ge), elapsed)
		return nil, ge
	}
	o.metrics.ObserveGateway(s.persona.String(), "ok", elapsed)

	e := &store.Entry{ProjectID: t.ProjectID, Speaker: s.persona.String(), Thread: t.thread, Message: resp.Text}
	if err := o.store.AppendEntry(e); err != nil {
		return nil, fmt.Errorf("storing %s reply: %w", s.persona, err)
	}
	log.Debug().
		Str("persona", s.persona.String()).
		Int64("entry_id", e.ID).
		Int("in_tokens", resp.InputTokens).
		Int("out_tokens", resp.OutputTokens).
		Msg("reply stored")
	if resp.StopReason == llm.StopReasonMaxTokens {
		log.Warn().Str("persona", s.persona.String()).Int("max_tokens", o.model.MaxTokens).Msg("reply truncated at token limit")
	}

	if o.extractTasks && s.persona == persona.Proto && t.thread == store.ThreadRegular {
		o.extractSteps(t.ProjectID, resp.Text, log)
	}
	return &Reply{Persona: s.persona, EntryID: e.ID, Text: resp.Text}, nil
}

func (o *Orchestrator) extractSteps(projectID int64, text string, log zerolog.Logger) {
	for _, desc := range ExtractSteps(text, MaxExtractedTasks) {
		if _, err := o.store.AddTask(projectID, desc, store.SizeTiny); err != nil {
			log.Warn().Err(err).Msg("extracted task not stored")
			return
		}
	}
}

func (o *Orchestrator) stepState(t *Turn, s step) State {
	if t.Kind != KindTeam {
		return StateAwaitingResponse
	}
	if s.persona == persona.Spark {
		return StateAwaitingSpark
	}
	return StateAwaitingProto
}

func (o *Orchestrator) notify(e Event) {
	o.observer.OnEvent(e)
}
