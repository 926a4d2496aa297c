package store

import (
	perrors "github.com/p-blackswan/trio/internal/errors"
)

// Stats holds aggregate counts shown next to a project.
type Stats struct {
	ProjectCount  int `json:"project_count"`
	MessageCount  int `json:"message_count"`
	OpenTaskCount int `json:"open_task_count"`
	DoneTaskCount int `json:"done_task_count"`
	InsightCount  int `json:"insight_count"`
}

// GetStats returns the global project count and the per-project message, task and
// insight counts.
func (s *Store) GetStats(projectID int64) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{}
	err := s.db.QueryRow(`
	SELECT
		(SELECT COUNT(*) FROM projects),
		(SELECT COUNT(*) FROM conversations WHERE project_id = ?),
		(SELECT COUNT(*) FROM tasks WHERE project_id = ? AND completed = 0),
		(SELECT COUNT(*) FROM tasks WHERE project_id = ? AND completed = 1),
		(SELECT COUNT(*) FROM insights WHERE project_id = ?)
	`, projectID, projectID, projectID, projectID).Scan(
		&st.ProjectCount, &st.MessageCount, &st.OpenTaskCount, &st.DoneTaskCount, &st.InsightCount,
	)
	if err != nil {
		return nil, perrors.NewPersistenceError("stats", err)
	}
	return st, nil
}
