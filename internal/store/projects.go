package store

import (
	"database/sql"
	"strings"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

// Project statuses. Only active is assigned by the core today.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Project is a unit of work the user is pursuing.
type Project struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	CreatedAt         int64  `json:"created_at"`    // unix ms
	LastActivity      int64  `json:"last_activity"` // unix ms
	Status            string `json:"status"`
	InitialEnthusiasm int    `json:"initial_enthusiasm"`
	AbandonmentCount  int    `json:"abandonment_count"`
}

// CreateProjectInput holds the parameters for creating a new project.
type CreateProjectInput struct {
	Title             string
	Description       string
	InitialEnthusiasm int
}

const projectColumns = `id, title, description, created_at, last_activity, status, initial_enthusiasm, abandonment_count`

// CreateProject inserts a new active project.
func (s *Store) CreateProject(input CreateProjectInput) (*Project, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, perrors.Validationf("project title is empty")
	}
	if input.InitialEnthusiasm < 1 || input.InitialEnthusiasm > 10 {
		return nil, perrors.Validationf("initial enthusiasm %d is outside 1-10", input.InitialEnthusiasm)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMillis()
	p := &Project{
		Title:             title,
		Description:       strings.TrimSpace(input.Description),
		CreatedAt:         now,
		LastActivity:      now,
		Status:            StatusActive,
		InitialEnthusiasm: input.InitialEnthusiasm,
	}

	res, err := s.db.Exec(`
	INSERT INTO projects (title, description, created_at, last_activity, status, initial_enthusiasm)
	VALUES (?, ?, ?, ?, ?, ?)
	`, p.Title, p.Description, p.CreatedAt, p.LastActivity, p.Status, p.InitialEnthusiasm)
	if err != nil {
		return nil, perrors.NewPersistenceError("create project", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, perrors.NewPersistenceError("create project", err)
	}

	s.logger.Debug().Int64("project_id", p.ID).Str("title", p.Title).Msg("project created")
	return p, nil
}

// GetProject retrieves a project by ID. Returns nil, nil if it does not exist.
func (s *Store) GetProject(id int64) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Project{}
	err := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.CreatedAt, &p.LastActivity,
		&p.Status, &p.InitialEnthusiasm, &p.AbandonmentCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("get project", err)
	}
	return p, nil
}

// ListProjects returns projects ordered by most recent activity. limit <= 0 means all.
func (s *Store) ListProjects(limit int) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY last_activity DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, perrors.NewPersistenceError("list projects", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.CreatedAt, &p.LastActivity,
			&p.Status, &p.InitialEnthusiasm, &p.AbandonmentCount,
		); err != nil {
			return nil, perrors.NewPersistenceError("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list projects", err)
	}
	return projects, nil
}

// LatestActiveProject returns the active project with the most recent activity, or nil.
func (s *Store) LatestActiveProject() (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Project{}
	err := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects
		WHERE status = ? ORDER BY last_activity DESC, id DESC LIMIT 1`, StatusActive).Scan(
		&p.ID, &p.Title, &p.Description, &p.CreatedAt, &p.LastActivity,
		&p.Status, &p.InitialEnthusiasm, &p.AbandonmentCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("latest project", err)
	}
	return p, nil
}

// TouchProject advances last_activity to now. It never moves the timestamp backwards.
func (s *Store) TouchProject(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE projects SET last_activity = MAX(last_activity, ?) WHERE id = ?`,
		s.nowMillis(), id)
	if err != nil {
		return perrors.NewPersistenceError("touch project", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return perrors.NewPersistenceError("touch project", err)
	}
	if rows == 0 {
		return perrors.NotFoundf("project %d", id)
	}
	return nil
}
