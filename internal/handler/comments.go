package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (h *Handler) GetTaskComments(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	comments, err := h.store.GetCommentsByTask(task.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取评论列表成功", comments)
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	var req struct {
		Content string `json:"content" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	comment := &domain.Comment{
		TaskID:   task.ID,
		AuthorID: myInfo.ID,
		Content:  req.Content,
	}

	if err := h.store.CreateComment(comment); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "评论创建成功", comment)
}

func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	comment := r.Context().Value(CommentCtx).(*domain.Comment)

	// 评论只能由作者本人修改
	if comment.AuthorID != myInfo.ID {
		h.forbidden(w, r, "只有评论作者才能修改评论")
		return
	}

	var req struct {
		Content string `json:"content" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	comment.Content = req.Content

	if err := h.store.UpdateComment(comment); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, errors.New("更新评论失败，请重试"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新评论成功", comment)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	comment := r.Context().Value(CommentCtx).(*domain.Comment)

	if comment.AuthorID != myInfo.ID {
		h.forbidden(w, r, "只有评论作者才能删除评论")
		return
	}

	if err := h.store.DeleteComment(comment.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "评论已删除", nil)
}
