package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Name        string    `json:"name" validate:"required"`
		Description string    `json:"description"`
		StartDate   time.Time `json:"startDate" validate:"required"`
		EndDate     time.Time `json:"endDate" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.EndDate.Before(req.StartDate) {
		h.badRequest(w, r, errors.New("结束日期不能早于开始日期"))
		return
	}

	// 创建者即 owner，建行时会被一并写入员工和经理关系表
	project := &domain.Project{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      domain.ProjectStatusInitiated,
		OwnerID:     myInfo.ID,
	}

	if err := h.store.CreateProject(project); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "项目创建成功", project)
}

func (h *Handler) GetMyProjects(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	// 总监可以看到全部项目，其他人只能看到自己参与的
	if myInfo.Role == domain.RoleSupervisor {
		projects, err := h.store.GetAllProjects(false)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		h.successResponse(w, r, "获取项目列表成功", projects)
		return
	}

	projects, err := h.store.GetProjectsByUser(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取项目列表成功", projects)
}

func (h *Handler) GetDeletedProjects(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.GetAllProjects(true)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	deleted := make([]*domain.Project, 0)
	for _, project := range all {
		if project.IsDeleted {
			deleted = append(deleted, project)
		}
	}

	h.successResponse(w, r, "获取已删除项目列表成功", deleted)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireAnyAuthority(w, r, project.ID, myInfo) {
		return
	}

	h.successResponse(w, r, "获取项目成功", project)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireManagerialAuthority(w, r, project.ID, myInfo) {
		return
	}

	var req struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"startDate"`
		EndDate     *time.Time `json:"endDate"`
		Status      *string    `json:"status" validate:"omitempty,oneof=未启动 进行中 已完成"`
		OwnerID     *int64     `json:"ownerId"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 部分更新语义：请求里没给的字段保持原样
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.StartDate != nil {
		project.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = *req.EndDate
	}
	if req.Status != nil {
		project.Status = domain.ProjectStatus(*req.Status)
	}

	if project.EndDate.Before(project.StartDate) {
		h.badRequest(w, r, errors.New("结束日期不能早于开始日期"))
		return
	}

	if req.OwnerID != nil && *req.OwnerID != project.OwnerID {
		// 移交 owner 前确认新 owner 存在，并保证其进入员工和经理集合
		if _, err := h.store.GetUserByID(*req.OwnerID); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "指定的新 owner 不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		if err := h.store.AddProjectEmployee(project.ID, *req.OwnerID); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if err := h.store.AddProjectManager(project.ID, *req.OwnerID); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		project.OwnerID = *req.OwnerID
	}

	if err := h.store.UpdateProject(project); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, errors.New("更新项目失败，请重试"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新项目成功", project)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireManagerialAuthority(w, r, project.ID, myInfo) {
		return
	}

	if err := h.store.SoftDeleteProject(project.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "项目不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "项目已删除", nil)
}

func (h *Handler) GetProjectEmployees(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireAnyAuthority(w, r, project.ID, myInfo) {
		return
	}

	employees, err := h.store.GetProjectEmployees(project.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取项目成员成功", employees)
}

func (h *Handler) modifyProjectMember(w http.ResponseWriter, r *http.Request, modify func(projectID int64, userID int64) error, successMsg string) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireManagerialAuthority(w, r, project.ID, myInfo) {
		return
	}

	var req struct {
		UserID int64 `json:"userId" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if _, err := h.store.GetUserByID(req.UserID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "用户不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := modify(project.ID, req.UserID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, successMsg, nil)
}

func (h *Handler) AddProjectEmployee(w http.ResponseWriter, r *http.Request) {
	h.modifyProjectMember(w, r, h.store.AddProjectEmployee, "添加项目成员成功")
}

func (h *Handler) AddProjectManager(w http.ResponseWriter, r *http.Request) {
	h.modifyProjectMember(w, r, h.store.AddProjectManager, "添加项目经理成功")
}

func (h *Handler) removeProjectMember(w http.ResponseWriter, r *http.Request, remove func(projectID int64, userID int64) error, successMsg string) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireManagerialAuthority(w, r, project.ID, myInfo) {
		return
	}

	userIDParam := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDParam, 10, 64)
	if err != nil {
		h.badRequest(w, r, errors.New("用户ID无效"))
		return
	}

	// owner 隐含属于两个集合，不允许被移出
	if userID == project.OwnerID {
		h.forbidden(w, r, "不能移除项目 owner")
		return
	}

	if err := remove(project.ID, userID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, successMsg, nil)
}

func (h *Handler) RemoveProjectEmployee(w http.ResponseWriter, r *http.Request) {
	h.removeProjectMember(w, r, h.store.RemoveProjectEmployee, "移除项目成员成功")
}

func (h *Handler) RemoveProjectManager(w http.ResponseWriter, r *http.Request) {
	h.removeProjectMember(w, r, h.store.RemoveProjectManager, "移除项目经理成功")
}
