package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (r *Repository) CreateAttachment(attachment *domain.Attachment) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO attachments (task_id, uploader_id, file_id, file_name, path, shared_link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at
	`

	args := []any{attachment.TaskID, attachment.UploaderID, attachment.FileID, attachment.FileName, attachment.Path, attachment.SharedLink}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&attachment.ID, &attachment.UploadedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAttachmentByID(id int64) (*domain.Attachment, error) {
	query := `
		SELECT task_id, uploader_id, file_id, file_name, path, shared_link, uploaded_at
		FROM attachments WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	attachment := &domain.Attachment{
		ID: id,
	}

	dst := []any{&attachment.TaskID, &attachment.UploaderID, &attachment.FileID, &attachment.FileName, &attachment.Path, &attachment.SharedLink, &attachment.UploadedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return attachment, nil
}

func (r *Repository) GetAttachmentsByTask(taskID int64) ([]*domain.Attachment, error) {
	query := `
		SELECT id, task_id, uploader_id, file_id, file_name, path, shared_link, uploaded_at
		FROM attachments WHERE task_id = $1
		ORDER BY uploaded_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := make([]*domain.Attachment, 0)
	for rows.Next() {
		attachment := &domain.Attachment{}
		dst := []any{&attachment.ID, &attachment.TaskID, &attachment.UploaderID, &attachment.FileID, &attachment.FileName, &attachment.Path, &attachment.SharedLink, &attachment.UploadedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *Repository) DeleteAttachment(id int64) error {
	query := `
		DELETE FROM attachments WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
