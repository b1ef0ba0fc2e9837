package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword    string `json:"oldPassword" validate:"required"`
		NewPassword    string `json:"newPassword" validate:"required,min=8"`
		RepeatPassword string `json:"repeatPassword" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.NewPassword != req.RepeatPassword {
		h.badRequest(w, r, errors.New("两次输入的新密码不一致"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.badRequest(w, r, errors.New("旧密码错误"))
		return
	}

	// 新旧密码相同视为冲突，防止“改了等于没改”
	if req.NewPassword == req.OldPassword {
		h.conflict(w, r, "新密码不能与旧密码相同")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	myInfo.PasswordHash = string(hashedPassword)

	if err := h.store.UpdateUser(myInfo); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, errors.New("更新密码失败，请重试"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新密码成功", nil)
}

func (h *Handler) RequireUpdateEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		NewEmail string `json:"newEmail" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 检测新邮箱是否已被占用
	isExists, err := h.store.CheckEmailIfExists(req.NewEmail)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if isExists {
		h.conflict(w, r, "邮箱已被占用")
		return
	}

	// 链接里额外携带 newEmail 参数，消费时会跳过这个保留键
	link, err := h.issueActionLink(r.Context(), "/auth/update-email/confirm", myInfo.Email, url.Values{
		"newEmail": []string{req.NewEmail},
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 确认邮件发往新邮箱，证明新邮箱确实归本人所有
	h.enqueueMailAsync(r, domain.MailMessage{
		Type: "change_email",
		To:   req.NewEmail,
		Data: domain.ChangeEmailMailData{
			FullName:   myInfo.FullName,
			Link:       link,
			Expiration: h.actionExpirationMinutes(),
		},
	})

	h.successResponse(w, r, "确认链接已发送到新邮箱", nil)
}

func (h *Handler) ConfirmUpdateEmail(w http.ResponseWriter, r *http.Request) {
	newEmail := r.URL.Query().Get("newEmail")
	if newEmail == "" {
		h.badRequest(w, r, errors.New("缺少 newEmail 参数"))
		return
	}

	oldEmail, err := h.links.Consume(r.Context(), r.URL.Query())
	if err != nil {
		h.actionLinkError(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(oldEmail)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "链接不存在或已失效")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	user.Email = newEmail

	if err := h.store.UpdateUser(user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "邮箱修改成功", nil)
}
