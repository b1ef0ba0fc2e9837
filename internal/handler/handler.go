package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/actionlink"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/authz"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/filehost"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/mailqueue"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	store      Store
	translator ut.Translator
	tokens     *token.Manager
	links      *actionlink.Store
	mailQueue  mailqueue.Queue
	authorizer *authz.Authorizer
	fileHost   filehost.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store Store, tokens *token.Manager, links *actionlink.Store, mailQueue mailqueue.Queue, fileHost filehost.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		store:      store,
		translator: trans,
		tokens:     tokens,
		links:      links,
		mailQueue:  mailQueue,
		authorizer: authz.NewAuthorizer(store),
		fileHost:   fileHost,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证和邮件链接确认相关，不需要登录
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Get("/confirm", h.ConfirmRegistration)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Get("/confirm", h.ConfirmResetPassword)
		})
		// 改邮箱的确认链接是从邮件里点进来的，不要求登录态
		r.Get("/update-email/confirm", h.ConfirmUpdateEmail)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Post("/update-email/require", h.RequireUpdateEmail)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleSupervisor})).Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.RequiredRole([]domain.Role{domain.RoleSupervisor})).Patch("/", h.UpdateUser)
				r.With(h.RequiredRole([]domain.Role{domain.RoleSupervisor})).Delete("/", h.DeleteUser)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleSupervisor})).Post("/", h.CreateProject)
			r.Get("/", h.GetMyProjects)
			r.With(h.RequiredRole([]domain.Role{domain.RoleSupervisor})).Get("/deleted", h.GetDeletedProjects)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.project)
				r.Get("/", h.GetProject)
				r.Patch("/", h.UpdateProject)
				r.Delete("/", h.DeleteProject)
				r.Get("/employees", h.GetProjectEmployees)
				r.Post("/employees", h.AddProjectEmployee)
				r.Delete("/employees/{userID}", h.RemoveProjectEmployee)
				r.Post("/managers", h.AddProjectManager)
				r.Delete("/managers/{userID}", h.RemoveProjectManager)
				r.Get("/tasks", h.GetProjectTasks)
				r.Post("/tasks", h.CreateTask)
			})
		})

		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Use(h.task)
			r.Get("/", h.GetTask)
			r.Patch("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
			r.Get("/comments", h.GetTaskComments)
			r.Post("/comments", h.CreateComment)
			r.Get("/attachments", h.GetTaskAttachments)
			r.Post("/attachments", h.UploadAttachment)
			r.Get("/labels", h.GetTaskLabels)
			r.Post("/labels/{labelID}", h.AttachLabel)
			r.Delete("/labels/{labelID}", h.DetachLabel)
		})

		r.Route("/comments/{id}", func(r chi.Router) {
			r.Use(h.comment)
			r.Patch("/", h.UpdateComment)
			r.Delete("/", h.DeleteComment)
		})

		r.Route("/labels", func(r chi.Router) {
			r.Post("/", h.CreateLabel)
			r.Get("/", h.GetMyLabels)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.label)
				r.Get("/", h.GetLabel)
				r.Patch("/", h.UpdateLabel)
				r.Delete("/", h.DeleteLabel)
			})
		})

		r.Route("/attachments/{id}", func(r chi.Router) {
			r.Use(h.attachment)
			r.Get("/", h.GetAttachment)
			r.Delete("/", h.DeleteAttachment)
		})
	})
}
