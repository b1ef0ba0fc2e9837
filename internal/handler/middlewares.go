package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
)

const (
	accessTokenCookieName  = "__task_manager_access_token"
	refreshTokenCookieName = "__task_manager_refresh_token"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, name string, value string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   int(maxAge.Seconds()),
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)
}

// auth 先验 access cookie；access 缺失或失效而 refresh 仍有效时，
// 透明地补发一个新的 access cookie，不强迫客户端重新登录
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var subject string

		if cookie, err := r.Cookie(accessTokenCookieName); err == nil {
			if sub, err := h.tokens.Validate(token.KindAccess, cookie.Value); err == nil {
				subject = sub
			}
		}

		if subject == "" {
			cookie, err := r.Cookie(refreshTokenCookieName)
			if err != nil {
				h.unauthorized(w, r, "用户未登录")
				return
			}

			sub, err := h.tokens.Validate(token.KindRefresh, cookie.Value)
			if err != nil {
				h.unauthorized(w, r, "登录已失效，请重新登录")
				return
			}

			accessToken, err := h.tokens.Generate(token.KindAccess, sub)
			if err != nil {
				h.internalServerError(w, r, err)
				return
			}
			h.setTokenCookie(w, accessTokenCookieName, accessToken, h.tokens.Expiration(token.KindAccess))

			subject = sub
		}

		ctx := context.WithValue(r.Context(), SubCtxKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) myInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subString := r.Context().Value(SubCtxKey).(string)

		sub, err := strconv.ParseInt(subString, 10, 64)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		myInfo, err := h.store.GetUserByID(sub)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.unauthorized(w, r, "个人信息不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		// 锁定的账户即使持有尚未过期的令牌也不放行
		if myInfo.IsLocked {
			h.forbidden(w, r, "账户已被锁定")
			return
		}

		ctx := context.WithValue(r.Context(), MyInfoCtx, myInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequiredRole(roles []domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
			if !slices.Contains(roles, myInfo.Role) {
				h.forbidden(w, r, "权限不足")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) userInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDParam := chi.URLParam(r, "id")
		userID, err := strconv.ParseInt(userIDParam, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("用户ID无效"))
			return
		}

		user, err := h.store.GetUserByID(userID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "用户不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserInfoCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) project(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectIDParam := chi.URLParam(r, "id")
		projectID, err := strconv.ParseInt(projectIDParam, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("项目ID无效"))
			return
		}

		// 软删除的项目对常规请求视为不存在
		project, err := h.store.GetProjectByID(projectID, false)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "项目不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ProjectCtx, project)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) task(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		taskIDParam := chi.URLParam(r, "id")
		taskID, err := strconv.ParseInt(taskIDParam, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("任务ID无效"))
			return
		}

		task, err := h.store.GetTaskByID(taskID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "任务不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), TaskCtx, task)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) comment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentIDParam := chi.URLParam(r, "id")
		commentID, err := strconv.ParseInt(commentIDParam, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("评论ID无效"))
			return
		}

		comment, err := h.store.GetCommentByID(commentID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "评论不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), CommentCtx, comment)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) label(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		labelIDParam := chi.URLParam(r, "id")
		labelID, err := strconv.ParseInt(labelIDParam, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("标签ID无效"))
			return
		}

		label, err := h.store.GetLabelByID(labelID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "标签不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), LabelCtx, label)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) attachment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attachmentIDParam := chi.URLParam(r, "id")
		attachmentID, err := strconv.ParseInt(attachmentIDParam, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("附件ID无效"))
			return
		}

		attachment, err := h.store.GetAttachmentByID(attachmentID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "附件不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), AttachmentCtx, attachment)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
