package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (r *Repository) CreateComment(comment *domain.Comment) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO comments (task_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	args := []any{comment.TaskID, comment.AuthorID, comment.Content}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt, &comment.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetCommentByID(id int64) (*domain.Comment, error) {
	query := `
		SELECT task_id, author_id, content, created_at, version
		FROM comments WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	comment := &domain.Comment{
		ID: id,
	}

	dst := []any{&comment.TaskID, &comment.AuthorID, &comment.Content, &comment.CreatedAt, &comment.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return comment, nil
}

func (r *Repository) GetCommentsByTask(taskID int64) ([]*domain.Comment, error) {
	query := `
		SELECT id, task_id, author_id, content, created_at, version
		FROM comments WHERE task_id = $1
		ORDER BY created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		comment := &domain.Comment{}
		dst := []any{&comment.ID, &comment.TaskID, &comment.AuthorID, &comment.Content, &comment.CreatedAt, &comment.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}

func (r *Repository) UpdateComment(comment *domain.Comment) error {
	query := `
		UPDATE comments
		SET content = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{comment.Content, comment.ID, comment.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&comment.CreatedAt, &comment.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteComment(id int64) error {
	query := `
		DELETE FROM comments WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
