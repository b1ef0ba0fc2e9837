package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// 上传的附件先写入外部文件托管，再落库元数据
const maxAttachmentSize = 10 << 20

func (h *Handler) GetTaskAttachments(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	attachments, err := h.store.GetAttachmentsByTask(task.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取附件列表成功", attachments)
}

func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		h.badRequest(w, r, errors.New("解析上传表单失败"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.badRequest(w, r, errors.New("请求中缺少文件"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	fileID := uuid.New().String()
	path := fmt.Sprintf("/task-manager/tasks/%d/%s_%s", task.ID, fileID, header.Filename)

	if err := h.fileHost.Upload(r.Context(), path, data); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	sharedLink, err := h.fileHost.CreateOrGetSharedLink(r.Context(), path)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	attachment := &domain.Attachment{
		TaskID:     task.ID,
		UploaderID: myInfo.ID,
		FileID:     fileID,
		FileName:   header.Filename,
		Path:       path,
		SharedLink: sharedLink,
	}

	if err := h.store.CreateAttachment(attachment); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "附件上传成功", attachment)
}

func (h *Handler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	attachment := r.Context().Value(AttachmentCtx).(*domain.Attachment)

	task, err := h.store.GetTaskByID(attachment.TaskID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "附件所属任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	h.successResponse(w, r, "获取附件成功", attachment)
}

func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	attachment := r.Context().Value(AttachmentCtx).(*domain.Attachment)

	task, err := h.store.GetTaskByID(attachment.TaskID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "附件所属任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 上传者本人可以删除自己的附件，其他人需要管理权限
	if attachment.UploaderID != myInfo.ID {
		if !h.requireManagerialAuthority(w, r, task.ProjectID, myInfo) {
			return
		}
	} else if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	// 托管端删除失败只记日志，元数据照常清理
	if err := h.fileHost.Delete(r.Context(), attachment.Path); err != nil {
		slog.Error("删除托管文件失败", "path", attachment.Path, "error", err)
	}

	if err := h.store.DeleteAttachment(attachment.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "附件已删除", nil)
}
