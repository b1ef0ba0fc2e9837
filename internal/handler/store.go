package handler

import (
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/repository"
)

// Store 是 handler 用到的持久层接口，由 repository.Repository 实现，
// 测试中用内存假实现代替
type Store interface {
	CreateUser(user *domain.User) error
	GetUserByID(id int64) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetAllUsers() ([]*domain.User, error)
	UpdateUser(user *domain.User) error
	DeleteUser(id int64) error
	CheckEmailIfExists(email string) (bool, error)

	CreateProject(project *domain.Project) error
	GetProjectByID(id int64, includeDeleted bool) (*domain.Project, error)
	GetAllProjects(includeDeleted bool) ([]*domain.Project, error)
	GetProjectsByUser(userID int64) ([]*domain.Project, error)
	UpdateProject(project *domain.Project) error
	SoftDeleteProject(id int64) error
	ProjectExists(projectID int64) (bool, error)
	IsUserOwner(projectID int64, userID int64) (bool, error)
	IsUserEmployee(projectID int64, userID int64) (bool, error)
	IsUserManager(projectID int64, userID int64) (bool, error)
	AddProjectEmployee(projectID int64, userID int64) error
	RemoveProjectEmployee(projectID int64, userID int64) error
	AddProjectManager(projectID int64, userID int64) error
	RemoveProjectManager(projectID int64, userID int64) error
	GetProjectEmployees(projectID int64) ([]*domain.User, error)

	CreateTask(task *domain.Task) error
	GetTaskByID(id int64) (*domain.Task, error)
	GetTasksByProject(projectID int64) ([]*domain.Task, error)
	GetTasksDueBetween(from time.Time, to time.Time) ([]*domain.Task, error)
	UpdateTask(task *domain.Task) error
	SoftDeleteTask(id int64) error

	CreateComment(comment *domain.Comment) error
	GetCommentByID(id int64) (*domain.Comment, error)
	GetCommentsByTask(taskID int64) ([]*domain.Comment, error)
	UpdateComment(comment *domain.Comment) error
	DeleteComment(id int64) error

	CreateLabel(label *domain.Label) error
	GetLabelByID(id int64) (*domain.Label, error)
	GetLabelsByOwner(ownerID int64) ([]*domain.Label, error)
	GetLabelsByTask(taskID int64) ([]*domain.Label, error)
	UpdateLabel(label *domain.Label) error
	DeleteLabel(id int64) error
	AttachLabel(taskID int64, labelID int64) error
	DetachLabel(taskID int64, labelID int64) error

	CreateAttachment(attachment *domain.Attachment) error
	GetAttachmentByID(id int64) (*domain.Attachment, error)
	GetAttachmentsByTask(taskID int64) ([]*domain.Attachment, error)
	DeleteAttachment(id int64) error
}

var _ Store = (*repository.Repository)(nil)
