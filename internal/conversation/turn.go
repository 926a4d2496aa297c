package conversation

import (
	"context"

	"github.com/p-blackswan/trio/internal/persona"
)

// Kind identifies how a turn was requested.
type Kind string

const (
	KindPersona Kind = "persona" // user message to one persona
	KindTeam    Kind = "team"    // user message relayed Spark then Proto
	KindPrompt  Kind = "prompt"  // system-generated prompt; only replies are stored
)

// State is a lane's position in the turn state machine.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateAwaitingSpark    State = "awaiting_spark"
	StateAwaitingProto    State = "awaiting_proto"
)

// Reply is one persisted persona response.
type Reply struct {
	Persona persona.ID
	EntryID int64
	Text    string
}

// TurnResult is the outcome of a finished turn. Replies holds every response that was
// persisted, even when Err reports a later step's failure.
type TurnResult struct {
	Replies []Reply
	Err     error
}

// step is one completion call within a turn.
type step struct {
	persona persona.ID
	prompt  string
	// relay builds the prompt from the previous step's reply. A relay step is skipped when
	// the previous step failed.
	relay   func(prev Reply) string
	history bool
}

// Turn is a handle to a queued or running turn.
type Turn struct {
	ID        string
	ProjectID int64
	Kind      Kind
	// Text is the user's message, or the first prompt for prompt turns.
	Text string

	record bool // persist Text as a user entry before the first step
	touch  bool // update the project's last_activity
	thread string
	steps  []step

	done   chan struct{}
	result TurnResult
}

// Done is closed when the turn has finished.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn finishes or ctx is done.
func (t *Turn) Wait(ctx context.Context) (TurnResult, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return TurnResult{}, ctx.Err()
	}
}

// Result returns the outcome. Only valid after Done is closed.
func (t *Turn) Result() TurnResult {
	<-t.done
	return t.result
}

func (t *Turn) finish(res TurnResult) {
	t.result = res
	close(t.done)
}

// EventType names an observer notification.
type EventType string

const (
	EventTurnStarted  EventType = "turn_started"
	EventReply        EventType = "reply"
	EventTurnFailed   EventType = "turn_failed"
	EventTurnFinished EventType = "turn_finished"
)

// Event is delivered to the Observer from the project's lane goroutine.
type Event struct {
	Type      EventType
	TurnID    string
	ProjectID int64
	Kind      Kind
	Reply     *Reply
	Err       error
}

// Observer receives turn progress. Implementations must not block for long; they run on
// the lane goroutine.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) OnEvent(Event) {}
