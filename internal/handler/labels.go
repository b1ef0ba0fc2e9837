package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (h *Handler) CreateLabel(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Name  string `json:"name" validate:"required"`
		Color string `json:"color" validate:"required,oneof=红 橙 黄 绿"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	label := &domain.Label{
		OwnerID: myInfo.ID,
		Name:    req.Name,
		Color:   domain.LabelColor(req.Color),
	}

	if err := h.store.CreateLabel(label); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "标签创建成功", label)
}

func (h *Handler) GetMyLabels(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	labels, err := h.store.GetLabelsByOwner(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取标签列表成功", labels)
}

func (h *Handler) GetLabel(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	label := r.Context().Value(LabelCtx).(*domain.Label)

	// 标签是私有的，非所有者不暴露其存在
	if label.OwnerID != myInfo.ID {
		h.notFound(w, r, "标签不存在")
		return
	}

	h.successResponse(w, r, "获取标签成功", label)
}

func (h *Handler) UpdateLabel(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	label := r.Context().Value(LabelCtx).(*domain.Label)

	if label.OwnerID != myInfo.ID {
		h.notFound(w, r, "标签不存在")
		return
	}

	var req struct {
		Name  *string `json:"name"`
		Color *string `json:"color" validate:"omitempty,oneof=红 橙 黄 绿"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		label.Name = *req.Name
	}
	if req.Color != nil {
		label.Color = domain.LabelColor(*req.Color)
	}

	if err := h.store.UpdateLabel(label); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, errors.New("更新标签失败，请重试"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新标签成功", label)
}

func (h *Handler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	label := r.Context().Value(LabelCtx).(*domain.Label)

	if label.OwnerID != myInfo.ID {
		h.notFound(w, r, "标签不存在")
		return
	}

	if err := h.store.DeleteLabel(label.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "标签已删除", nil)
}

func (h *Handler) GetTaskLabels(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	labels, err := h.store.GetLabelsByTask(task.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务标签成功", labels)
}

// resolveTaskLabel 解析 URL 中的标签并校验贴标签的前提条件：
// 操作者必须是标签所有者，同时是任务的被指派人
func (h *Handler) resolveTaskLabel(w http.ResponseWriter, r *http.Request) (*domain.Task, *domain.Label, bool) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return nil, nil, false
	}

	labelIDParam := chi.URLParam(r, "labelID")
	labelID, err := strconv.ParseInt(labelIDParam, 10, 64)
	if err != nil {
		h.badRequest(w, r, errors.New("标签ID无效"))
		return nil, nil, false
	}

	label, err := h.store.GetLabelByID(labelID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "标签不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return nil, nil, false
	}

	if label.OwnerID != myInfo.ID {
		h.notFound(w, r, "标签不存在")
		return nil, nil, false
	}
	if task.AssigneeID != myInfo.ID {
		h.forbidden(w, r, "只有任务的被指派人才能管理任务标签")
		return nil, nil, false
	}

	return task, label, true
}

func (h *Handler) AttachLabel(w http.ResponseWriter, r *http.Request) {
	task, label, ok := h.resolveTaskLabel(w, r)
	if !ok {
		return
	}

	if err := h.store.AttachLabel(task.ID, label.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "标签已添加到任务", nil)
}

func (h *Handler) DetachLabel(w http.ResponseWriter, r *http.Request) {
	task, label, ok := h.resolveTaskLabel(w, r)
	if !ok {
		return
	}

	if err := h.store.DetachLabel(task.ID, label.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "标签已从任务移除", nil)
}
