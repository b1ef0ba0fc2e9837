package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// checkAssignee 确认被指派人是目标项目的员工，否则拒绝写入
func (h *Handler) checkAssignee(w http.ResponseWriter, r *http.Request, projectID int64, assigneeID int64) bool {
	isEmployee, err := h.store.IsUserEmployee(projectID, assigneeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return false
	}
	if !isEmployee {
		h.forbidden(w, r, "被指派人不是该项目的员工")
		return false
	}
	return true
}

func (h *Handler) notifyAssignee(r *http.Request, task *domain.Task, projectName string) {
	assignee, err := h.store.GetUserByID(task.AssigneeID)
	if err != nil {
		slog.Error("获取被指派人信息失败", "error", err, "user_id", task.AssigneeID)
		return
	}

	h.enqueueMailAsync(r, domain.MailMessage{
		Type: "task_assigned",
		To:   assignee.Email,
		Data: domain.TaskAssignedMailData{
			FullName:    assignee.FullName,
			TaskName:    task.Name,
			ProjectName: projectName,
			DueDate:     task.DueDate.Format("2006-01-02"),
		},
	})
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireManagerialAuthority(w, r, project.ID, myInfo) {
		return
	}

	var req struct {
		Name        string    `json:"name" validate:"required"`
		Description string    `json:"description"`
		Priority    string    `json:"priority" validate:"required,oneof=低 中 高"`
		DueDate     time.Time `json:"dueDate" validate:"required"`
		AssigneeID  int64     `json:"assigneeId" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if !h.checkAssignee(w, r, project.ID, req.AssigneeID) {
		return
	}

	task := &domain.Task{
		ProjectID:   project.ID,
		AssigneeID:  req.AssigneeID,
		Name:        req.Name,
		Description: req.Description,
		Priority:    domain.TaskPriority(req.Priority),
		Status:      domain.TaskStatusNotStarted,
		DueDate:     req.DueDate,
	}

	if err := h.store.CreateTask(task); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.notifyAssignee(r, task, project.Name)

	h.successResponse(w, r, "任务创建成功", task)
}

func (h *Handler) GetProjectTasks(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	project := r.Context().Value(ProjectCtx).(*domain.Project)

	if !h.requireAnyAuthority(w, r, project.ID, myInfo) {
		return
	}

	tasks, err := h.store.GetTasksByProject(project.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务列表成功", tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	h.successResponse(w, r, "获取任务成功", task)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	var req struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		Priority    *string    `json:"priority" validate:"omitempty,oneof=低 中 高"`
		Status      *string    `json:"status" validate:"omitempty,oneof=未开始 进行中 已完成"`
		DueDate     *time.Time `json:"dueDate"`
		ProjectID   *int64     `json:"projectId"`
		AssigneeID  *int64     `json:"assigneeId"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 仅修改状态时，被指派人自己也可以操作；
	// 其余字段的修改需要管理权限
	statusOnly := req.Status != nil &&
		req.Name == nil && req.Description == nil && req.Priority == nil &&
		req.DueDate == nil && req.ProjectID == nil && req.AssigneeID == nil

	if statusOnly && task.AssigneeID == myInfo.ID {
		if !h.requireAnyAuthority(w, r, task.ProjectID, myInfo) {
			return
		}
	} else {
		if !h.requireManagerialAuthority(w, r, task.ProjectID, myInfo) {
			return
		}
	}

	targetProject, err := h.store.GetProjectByID(task.ProjectID, false)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if req.ProjectID != nil && *req.ProjectID != task.ProjectID {
		// 跨项目移动：目标项目也要有管理权限
		targetProject, err = h.store.GetProjectByID(*req.ProjectID, false)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "目标项目不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		if !h.requireManagerialAuthority(w, r, targetProject.ID, myInfo) {
			return
		}
		task.ProjectID = targetProject.ID
	}

	reassigned := false
	if req.AssigneeID != nil && *req.AssigneeID != task.AssigneeID {
		task.AssigneeID = *req.AssigneeID
		reassigned = true
	}

	// 项目或指派人变动后，指派人必须仍是所属项目的员工
	if req.ProjectID != nil || req.AssigneeID != nil {
		if !h.checkAssignee(w, r, task.ProjectID, task.AssigneeID) {
			return
		}
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = domain.TaskPriority(*req.Priority)
	}
	if req.Status != nil {
		task.Status = domain.TaskStatus(*req.Status)
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}

	if err := h.store.UpdateTask(task); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, errors.New("更新任务失败，请重试"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if reassigned {
		h.notifyAssignee(r, task, targetProject.Name)
	}

	h.successResponse(w, r, "更新任务成功", task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	task := r.Context().Value(TaskCtx).(*domain.Task)

	if !h.requireManagerialAuthority(w, r, task.ProjectID, myInfo) {
		return
	}

	if err := h.store.SoftDeleteTask(task.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "任务已删除", nil)
}
