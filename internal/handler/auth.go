package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/actionlink"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required,min=3,max=32"`
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 新用户默认是员工，邮箱确认之前不允许登录
	user := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         domain.RoleEmployee,
		Enabled:      false,
	}

	if err := h.store.CreateUser(user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "users_username_key":
				h.conflict(w, r, "用户名已存在")
			case pgErr.ConstraintName == "users_email_key":
				h.conflict(w, r, "邮箱已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	link, err := h.issueActionLink(r.Context(), "/auth/confirm", user.Email, nil)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.enqueueMailAsync(r, domain.MailMessage{
		Type: "confirm_registration",
		To:   user.Email,
		Data: domain.ConfirmRegistrationMailData{
			FullName:   user.FullName,
			Link:       link,
			Expiration: h.actionExpirationMinutes(),
		},
	})

	h.successResponse(w, r, "注册成功，请查收确认邮件激活账户", user)
}

func (h *Handler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	email, err := h.links.Consume(r.Context(), r.URL.Query())
	if err != nil {
		h.actionLinkError(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(email)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "链接不存在或已失效")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	user.Enabled = true

	if err := h.store.UpdateUser(user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "账户激活成功，现在可以登录了", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 验证用户名和密码，两类失败都返回同一条消息，不泄露失败的是哪一项
	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.unauthorized(w, r, "用户名不存在或密码错误")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.unauthorized(w, r, "用户名不存在或密码错误")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if user.IsLocked {
		h.forbidden(w, r, "账户已被锁定")
		return
	}

	// 凭据正确但还没确认邮箱的，顺手补发一封确认邮件
	if !user.Enabled {
		link, err := h.issueActionLink(r.Context(), "/auth/confirm", user.Email, nil)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		h.enqueueMailAsync(r, domain.MailMessage{
			Type: "confirm_registration",
			To:   user.Email,
			Data: domain.ConfirmRegistrationMailData{
				FullName:   user.FullName,
				Link:       link,
				Expiration: h.actionExpirationMinutes(),
			},
		})
		h.forbidden(w, r, "账户已注册但尚未激活，确认邮件已重新发送")
		return
	}

	accessToken, err := h.tokens.Generate(token.KindAccess, strconv.FormatInt(user.ID, 10))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	refreshToken, err := h.tokens.Generate(token.KindRefresh, strconv.FormatInt(user.ID, 10))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.setTokenCookie(w, accessTokenCookieName, accessToken, h.tokens.Expiration(token.KindAccess))
	h.setTokenCookie(w, refreshTokenCookieName, refreshToken, h.tokens.Expiration(token.KindRefresh))

	h.successResponse(w, r, "登录成功", user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{accessTokenCookieName, refreshTokenCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:    name,
			Value:   "",
			Expires: time.Now().Add(-time.Hour),
			Path:    "/",
		})
	}

	h.successResponse(w, r, "登出成功", nil)
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// 这里虽然已经知道了用户不存在，但是为了安全起见，还是告诉客户端邮件已发送，以防止接口被滥用
			h.successResponse(w, r, "重置密码链接已通过邮件发送", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 锁定的账户不允许走重置密码流程，也不发任何邮件
	if user.IsLocked {
		h.forbidden(w, r, "账户已被锁定")
		return
	}

	link, err := h.issueActionLink(r.Context(), "/auth/reset-password/confirm", user.Email, nil)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.enqueueMailAsync(r, domain.MailMessage{
		Type: "reset_password",
		To:   user.Email,
		Data: domain.ResetPasswordMailData{
			FullName:   user.FullName,
			Link:       link,
			Expiration: h.actionExpirationMinutes(),
		},
	})

	h.successResponse(w, r, "重置密码链接已通过邮件发送", nil)
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	email, err := h.links.Consume(r.Context(), r.URL.Query())
	if err != nil {
		h.actionLinkError(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(email)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "链接不存在或已失效")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 生成随机新密码，明文只通过邮件发出去一次，库里只存哈希
	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user.PasswordHash = string(hashedPassword)

	if err := h.store.UpdateUser(user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.enqueueMailAsync(r, domain.MailMessage{
		Type: "temp_password",
		To:   user.Email,
		Data: domain.TempPasswordMailData{
			FullName: user.FullName,
			Username: user.Username,
			Password: password,
		},
	})

	h.successResponse(w, r, "新密码已通过邮件发送", nil)
}

// actionLinkError 统一翻译确认链接的两类失败：
// 不存在/已消费/被篡改 → 404，令牌本身过期 → 410
func (h *Handler) actionLinkError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, actionlink.ErrLinkNotFound):
		h.notFound(w, r, "链接不存在或已失效")
	case errors.Is(err, token.ErrTokenExpired):
		h.gone(w, r, "链接已过期，请重新发起操作")
	case errors.Is(err, token.ErrTokenInvalid):
		h.notFound(w, r, "链接不存在或已失效")
	default:
		h.internalServerError(w, r, err)
	}
}
