package store

import (
	"strings"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

// InsightCapture is the type assigned by quick capture.
const InsightCapture = "capture"

// Insight is a captured fragment of context, outside the turn-taking dialogue.
type Insight struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // unix ms
}

// AddInsight appends an insight.
func (s *Store) AddInsight(projectID int64, insightType, content string) (*Insight, error) {
	if strings.TrimSpace(content) == "" {
		return nil, perrors.Validationf("insight content is empty")
	}
	if insightType == "" {
		insightType = InsightCapture
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in := &Insight{
		ProjectID: projectID,
		Type:      insightType,
		Content:   content,
		CreatedAt: s.nowMillis(),
	}
	res, err := s.db.Exec(`INSERT INTO insights (project_id, insight_type, content, created_at) VALUES (?, ?, ?, ?)`,
		in.ProjectID, in.Type, in.Content, in.CreatedAt)
	if err != nil {
		return nil, perrors.NewPersistenceError("add insight", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return nil, perrors.NewPersistenceError("add insight", err)
	}
	return in, nil
}

// RecentInsights returns the newest insights, newest first. projectID 0 spans all projects.
func (s *Store) RecentInsights(projectID int64, limit int) ([]*Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, project_id, insight_type, content, created_at FROM insights`
	var args []interface{}
	if projectID != 0 {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, perrors.NewPersistenceError("recent insights", err)
	}
	defer rows.Close()

	var out []*Insight
	for rows.Next() {
		in := &Insight{}
		if err := rows.Scan(&in.ID, &in.ProjectID, &in.Type, &in.Content, &in.CreatedAt); err != nil {
			return nil, perrors.NewPersistenceError("scan insight", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("recent insights", err)
	}
	return out, nil
}
