package store

import (
	"database/sql"
	"strings"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

// Task sizes.
const (
	SizeTiny   = "tiny"
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// ValidSize reports whether size is a known task size.
func ValidSize(size string) bool {
	switch size {
	case SizeTiny, SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Task is a completable unit of work scoped to a project.
type Task struct {
	ID            int64  `json:"id"`
	ProjectID     int64  `json:"project_id"`
	Description   string `json:"description"`
	Size          string `json:"size"`
	Completed     bool   `json:"completed"`
	CompletedAt   int64  `json:"completed_at,omitempty"` // unix ms, 0 = not completed
	DopamineScore int    `json:"dopamine_score,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

const taskColumns = `id, project_id, description, size, completed, completed_at, dopamine_score, created_at`

// AddTask inserts an incomplete task.
func (s *Store) AddTask(projectID int64, description, size string) (*Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, perrors.Validationf("task description is empty")
	}
	if size == "" {
		size = SizeTiny
	}
	if !ValidSize(size) {
		return nil, perrors.Validationf("unknown task size %q", size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Task{
		ProjectID:   projectID,
		Description: description,
		Size:        size,
		CreatedAt:   s.nowMillis(),
	}
	res, err := s.db.Exec(`INSERT INTO tasks (project_id, description, size, created_at) VALUES (?, ?, ?, ?)`,
		t.ProjectID, t.Description, t.Size, t.CreatedAt)
	if err != nil {
		return nil, perrors.NewPersistenceError("add task", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return nil, perrors.NewPersistenceError("add task", err)
	}
	return t, nil
}

// GetTask retrieves a task by ID. Returns nil, nil if it does not exist.
func (s *Store) GetTask(id int64) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewPersistenceError("get task", err)
	}
	return t, nil
}

// CompleteTask marks an incomplete task as completed. A task transitions exactly once:
// unknown or already completed tasks yield ErrNotFound.
func (s *Store) CompleteTask(id int64, dopamineScore int) error {
	if dopamineScore < 1 || dopamineScore > 10 {
		return perrors.Validationf("dopamine score %d is outside 1-10", dopamineScore)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
	UPDATE tasks
	SET completed = 1, completed_at = ?, dopamine_score = ?
	WHERE id = ? AND completed = 0
	`, s.nowMillis(), dopamineScore, id)
	if err != nil {
		return perrors.NewPersistenceError("complete task", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return perrors.NewPersistenceError("complete task", err)
	}
	if rows == 0 {
		return perrors.NotFoundf("open task %d", id)
	}
	return nil
}

// ListTasks returns a project's tasks, oldest first. Completed tasks are included only when
// includeCompleted is set.
func (s *Store) ListTasks(projectID int64, includeCompleted bool) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = ?`
	if !includeCompleted {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.Query(query, projectID)
	if err != nil {
		return nil, perrors.NewPersistenceError("list tasks", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, perrors.NewPersistenceError("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.NewPersistenceError("list tasks", err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(r rowScanner) (*Task, error) {
	t := &Task{}
	var completedAt, score sql.NullInt64
	if err := r.Scan(&t.ID, &t.ProjectID, &t.Description, &t.Size, &t.Completed,
		&completedAt, &score, &t.CreatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t.CompletedAt = completedAt.Int64
	}
	if score.Valid {
		t.DopamineScore = int(score.Int64)
	}
	return t, nil
}
