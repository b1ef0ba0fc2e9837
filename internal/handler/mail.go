package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
)

// issueActionLink 签发一条一次性确认链接，返回可以直接放进邮件的完整 URL
func (h *Handler) issueActionLink(ctx context.Context, path string, subject string, extra url.Values) (string, error) {
	param, tok, err := h.links.Issue(ctx, subject)
	if err != nil {
		return "", err
	}

	return h.links.BuildLink(h.config.Server.FrontendBaseURL, path, param, tok, extra), nil
}

// actionExpirationMinutes 是邮件模板里展示的链接有效期（分钟）
func (h *Handler) actionExpirationMinutes() int {
	return int(h.tokens.Expiration(token.KindAction).Minutes())
}

// enqueueMailAsync 在数据变更已经完成之后才被调用，
// 入队失败只记日志，绝不让邮件问题回滚或拖垮业务请求
func (h *Handler) enqueueMailAsync(r *http.Request, msg domain.MailMessage) {
	if err := h.mailQueue.Enqueue(r.Context(), msg); err != nil {
		slog.Error("邮件入队失败", "type", msg.Type, "to", msg.To, "error", err)
	}
}
