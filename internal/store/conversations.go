package store

import (
	"database/sql"
	"strings"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

// Speakers that are not personas.
const (
	SpeakerUser   = "user"
	SpeakerSystem = "system"
)

// Conversation threads. Team entries belong to the two-persona relay.
const (
	ThreadRegular = "regular"
	ThreadTeam    = "team"
)

// TeamMarker is the prefix team entries carried inside the message text before the
// thread column existed. It is still rendered into model-facing history.
const TeamMarker = "[TEAM] "

// Entry is one immutable turn of a project's dialogue.
type Entry struct {
	ID              int64  `json:"id"`
	ProjectID       int64  `json:"project_id"`
	Speaker         string `json:"speaker"`
	Thread          string `json:"thread"`
	Message         string `json:"message"`
	CreatedAt       int64  `json:"created_at"` // unix ms
	ContextSnapshot string `json:"context_snapshot,omitempty"`
}

// IsTeam reports whether the entry belongs to the team thread.
func (e *Entry) IsTeam() bool {
	return e.Thread == ThreadTeam
}

// EntryFilter selects the most recent entries of a project.
type EntryFilter struct {
	ProjectID int64
	Speakers  []string // empty means any speaker
	BeforeID  int64    // only entries with a smaller id; 0 means no bound
	Limit     int
}

// AppendEntry writes a new conversation entry and fills in its ID and timestamp.
func (s *Store) AppendEntry(e *Entry) error {
	if strings.TrimSpace(e.Message) == "" {
		return perrors.Validationf("conversation message is empty")
	}
	if e.Speaker == "" {
		return perrors.Validationf("conversation speaker is empty")
	}
	if e.Thread == "" {
		e.Thread = ThreadRegular
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.CreatedAt = s.nowMillis()
	res, err := s.db.Exec(`
	INSERT INTO conversations (project_id, speaker, thread, message, created_at, context_snapshot)
	VALUES (?, ?, ?, ?, ?, ?)
	`, e.ProjectID, e.Speaker, e.Thread, e.Message, e.CreatedAt, nullString(e.ContextSnapshot))
	if err != nil {
		return perrors.NewPersistenceError("append entry", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return perrors.NewPersistenceError("append entry", err)
	}
	return nil
}

// RecentEntries returns the newest entries matching f, newest first.
func (s *Store) RecentEntries(f EntryFilter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, project_id, speaker, thread, message, created_at, context_snapshot
	FROM conversations
	WHERE project_id = ?
	`
	args := []interface{}{f.ProjectID}

	if len(f.Speakers) > 0 {
		query += ` AND speaker IN (?` + strings.Repeat(`, ?`, len(f.Speakers)-1) + `)`
		for _, sp := range f.Speakers {
			args = append(args, sp)
		}
	}
	if f.BeforeID > 0 {
		query += ` AND id < ?`
		args = append(args, f.BeforeID)
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, perrors.NewPersistenceError("recent entries", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var snapshot sql.NullString
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Speaker, &e.Thread, &e.Message, &e.CreatedAt, &snapshot); err != nil {
			return nil, perrors.NewPersistenceError("scan entry", err)
		}
		if snapshot.Valid {
			e.ContextSnapshot = snapshot.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("recent entries", err)
	}
	return entries, nil
}
