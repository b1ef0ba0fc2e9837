package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (r *Repository) CreateLabel(label *domain.Label) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO labels (owner_id, name, color)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	args := []any{label.OwnerID, label.Name, label.Color}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&label.ID, &label.CreatedAt, &label.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetLabelByID(id int64) (*domain.Label, error) {
	query := `
		SELECT owner_id, name, color, created_at, version
		FROM labels WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	label := &domain.Label{
		ID: id,
	}

	dst := []any{&label.OwnerID, &label.Name, &label.Color, &label.CreatedAt, &label.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return label, nil
}

func (r *Repository) scanLabels(ctx context.Context, query string, args ...any) ([]*domain.Label, error) {
	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := make([]*domain.Label, 0)
	for rows.Next() {
		label := &domain.Label{}
		dst := []any{&label.ID, &label.OwnerID, &label.Name, &label.Color, &label.CreatedAt, &label.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return labels, nil
}

func (r *Repository) GetLabelsByOwner(ownerID int64) ([]*domain.Label, error) {
	query := `
		SELECT id, owner_id, name, color, created_at, version
		FROM labels WHERE owner_id = $1
		ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return r.scanLabels(ctx, query, ownerID)
}

func (r *Repository) GetLabelsByTask(taskID int64) ([]*domain.Label, error) {
	query := `
		SELECT l.id, l.owner_id, l.name, l.color, l.created_at, l.version
		FROM labels l
		JOIN task_labels tl ON l.id = tl.label_id
		WHERE tl.task_id = $1
		ORDER BY l.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return r.scanLabels(ctx, query, taskID)
}

func (r *Repository) UpdateLabel(label *domain.Label) error {
	query := `
		UPDATE labels
		SET name = $1, color = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{label.Name, label.Color, label.ID, label.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&label.CreatedAt, &label.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteLabel(id int64) error {
	query := `
		DELETE FROM labels WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) AttachLabel(taskID int64, labelID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `INSERT INTO task_labels (task_id, label_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.dbpool.ExecContext(ctx, query, taskID, labelID)
	return err
}

func (r *Repository) DetachLabel(taskID int64, labelID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `DELETE FROM task_labels WHERE task_id = $1 AND label_id = $2`
	_, err := r.dbpool.ExecContext(ctx, query, taskID, labelID)
	return err
}
