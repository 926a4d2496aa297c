package conversation

import (
	"github.com/p-blackswan/trio/internal/llm"
	"github.com/p-blackswan/trio/internal/persona"
	"github.com/p-blackswan/trio/internal/store"
)

// DefaultHistoryLimit is the number of prior entries sent with each persona call.
const DefaultHistoryLimit = 10

// Assembler builds bounded per-persona message windows from stored entries.
type Assembler struct {
	store *store.Store
	limit int
}

// NewAssembler creates an assembler. A non-positive limit uses DefaultHistoryLimit.
func NewAssembler(s *store.Store, limit int) *Assembler {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Assembler{store: s, limit: limit}
}

// Window returns up to limit entries spoken by p or the user, oldest first. When beforeID
// is non-zero only entries older than that entry are considered.
func (a *Assembler) Window(projectID int64, p persona.ID, limit int, beforeID int64) ([]llm.Message, error) {
	if limit <= 0 {
		limit = a.limit
	}
	entries, err := a.store.RecentEntries(store.EntryFilter{
		ProjectID: projectID,
		Speakers:  []string{p.String(), store.SpeakerUser},
		BeforeID:  beforeID,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}

	// The store returns newest first.
	msgs := make([]llm.Message, 0, len(entries)+1)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Speaker == store.SpeakerUser {
			msgs = append(msgs, llm.UserMessage(modelText(e)))
		} else {
			msgs = append(msgs, llm.AssistantMessage(modelText(e)))
		}
	}
	return msgs, nil
}

// Assemble returns the window followed by outbound as the final user message.
func (a *Assembler) Assemble(projectID int64, p persona.ID, outbound string, limit int, beforeID int64) ([]llm.Message, error) {
	msgs, err := a.Window(projectID, p, limit, beforeID)
	if err != nil {
		return nil, err
	}
	return append(msgs, llm.UserMessage(outbound)), nil
}

// modelText is the entry text as the model sees it; team entries carry the marker.
func modelText(e *store.Entry) string {
	if e.IsTeam() {
		return store.TeamMarker + e.Message
	}
	return e.Message
}
