package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (r *Repository) CreateTask(task *domain.Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO tasks (project_id, assignee_id, name, description, priority, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_deleted, created_at, version
	`

	args := []any{task.ProjectID, task.AssigneeID, task.Name, task.Description, task.Priority, task.Status, task.DueDate}
	dst := []any{&task.ID, &task.IsDeleted, &task.CreatedAt, &task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetTaskByID(id int64) (*domain.Task, error) {
	// 任务本身或所属项目被软删除时都视为不存在
	query := `
		SELECT t.project_id, t.assignee_id, t.name, t.description, t.priority, t.status, t.due_date, t.is_deleted, t.created_at, t.version
		FROM tasks t
		JOIN projects p ON t.project_id = p.id
		WHERE t.id = $1 AND t.is_deleted = FALSE AND p.is_deleted = FALSE
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	task := &domain.Task{
		ID: id,
	}

	dst := []any{&task.ProjectID, &task.AssigneeID, &task.Name, &task.Description, &task.Priority, &task.Status, &task.DueDate, &task.IsDeleted, &task.CreatedAt, &task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *Repository) scanTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task := &domain.Task{}
		dst := []any{&task.ID, &task.ProjectID, &task.AssigneeID, &task.Name, &task.Description, &task.Priority, &task.Status, &task.DueDate, &task.IsDeleted, &task.CreatedAt, &task.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *Repository) GetTasksByProject(projectID int64) ([]*domain.Task, error) {
	query := `
		SELECT id, project_id, assignee_id, name, description, priority, status, due_date, is_deleted, created_at, version
		FROM tasks WHERE project_id = $1 AND is_deleted = FALSE
		ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return r.scanTasks(ctx, query, projectID)
}

// GetTasksDueBetween 给截止日期提醒任务用，只查未完成且未删除的任务
func (r *Repository) GetTasksDueBetween(from time.Time, to time.Time) ([]*domain.Task, error) {
	query := `
		SELECT t.id, t.project_id, t.assignee_id, t.name, t.description, t.priority, t.status, t.due_date, t.is_deleted, t.created_at, t.version
		FROM tasks t
		JOIN projects p ON t.project_id = p.id
		WHERE t.due_date >= $1 AND t.due_date < $2
			AND t.status <> $3
			AND t.is_deleted = FALSE AND p.is_deleted = FALSE
		ORDER BY t.assignee_id, t.due_date
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return r.scanTasks(ctx, query, from, to, domain.TaskStatusCompleted)
}

func (r *Repository) UpdateTask(task *domain.Task) error {
	query := `
		UPDATE tasks
		SET
		    project_id = $1,
			assignee_id = $2,
			name = $3,
			description = $4,
			priority = $5,
			status = $6,
			due_date = $7,
			version = version + 1
		WHERE id = $8 AND version = $9 AND is_deleted = FALSE
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{task.ProjectID, task.AssigneeID, task.Name, task.Description, task.Priority, task.Status, task.DueDate, task.ID, task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&task.CreatedAt, &task.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) SoftDeleteTask(id int64) error {
	query := `
		UPDATE tasks SET is_deleted = TRUE, version = version + 1 WHERE id = $1 AND is_deleted = FALSE
		RETURNING id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var deletedID int64
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&deletedID); err != nil {
		return err
	}

	return nil
}
