package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/authz"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// requireAnyAuthority 校验操作者对项目至少持有任意权限（owner/员工/经理），
// 不满足时负责写出响应并返回 false
func (h *Handler) requireAnyAuthority(w http.ResponseWriter, r *http.Request, projectID int64, user *domain.User) bool {
	ok, err := h.authorizer.HasAnyAuthority(projectID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrProjectNotFound):
			h.notFound(w, r, "项目不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return false
	}
	if !ok {
		h.forbidden(w, r, fmt.Sprintf("用户 %s 不是项目 %d 的成员，无权执行该操作", user.Username, projectID))
		return false
	}
	return true
}

// requireManagerialAuthority 校验操作者对项目持有管理权限（owner/经理）
func (h *Handler) requireManagerialAuthority(w http.ResponseWriter, r *http.Request, projectID int64, user *domain.User) bool {
	ok, err := h.authorizer.HasManagerialAuthority(projectID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrProjectNotFound):
			h.notFound(w, r, "项目不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return false
	}
	if !ok {
		h.forbidden(w, r, fmt.Sprintf("用户 %s 不具有项目 %d 的管理权限", user.Username, projectID))
		return false
	}
	return true
}
