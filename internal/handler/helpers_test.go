package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/actionlink"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore 是 Store 接口的内存实现，行为和 repository 对齐：
// 软删除的项目和任务对查询不可见，唯一约束冲突返回 pgconn.PgError
type fakeStore struct {
	nextID int64

	users       map[int64]*domain.User
	projects    map[int64]*domain.Project
	tasks       map[int64]*domain.Task
	comments    map[int64]*domain.Comment
	labels      map[int64]*domain.Label
	attachments map[int64]*domain.Attachment

	employees  map[string]bool // "projectID:userID"
	managers   map[string]bool
	taskLabels map[string]bool // "taskID:labelID"
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*domain.User),
		projects:    make(map[int64]*domain.Project),
		tasks:       make(map[int64]*domain.Task),
		comments:    make(map[int64]*domain.Comment),
		labels:      make(map[int64]*domain.Label),
		attachments: make(map[int64]*domain.Attachment),
		employees:   make(map[string]bool),
		managers:    make(map[string]bool),
		taskLabels:  make(map[string]bool),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func relKey(a int64, b int64) string {
	return fmt.Sprintf("%d:%d", a, b)
}

func (s *fakeStore) CreateUser(user *domain.User) error {
	for _, u := range s.users {
		if u.Username == user.Username {
			return &pgconn.PgError{ConstraintName: "users_username_key"}
		}
		if u.Email == user.Email {
			return &pgconn.PgError{ConstraintName: "users_email_key"}
		}
	}
	user.ID = s.id()
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *fakeStore) GetUserByUsername(username string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetUserByEmail(email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetAllUsers() ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	return users, nil
}

func (s *fakeStore) UpdateUser(user *domain.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeStore) DeleteUser(id int64) error {
	delete(s.users, id)
	return nil
}

func (s *fakeStore) CheckEmailIfExists(email string) (bool, error) {
	for _, user := range s.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateProject(project *domain.Project) error {
	project.ID = s.id()
	project.CreatedAt = time.Now()
	s.projects[project.ID] = project
	// owner 建项目时同时进入员工和经理集合
	s.employees[relKey(project.ID, project.OwnerID)] = true
	s.managers[relKey(project.ID, project.OwnerID)] = true
	return nil
}

func (s *fakeStore) GetProjectByID(id int64, includeDeleted bool) (*domain.Project, error) {
	project, ok := s.projects[id]
	if !ok || (project.IsDeleted && !includeDeleted) {
		return nil, sql.ErrNoRows
	}
	copied := *project
	return &copied, nil
}

func (s *fakeStore) GetAllProjects(includeDeleted bool) ([]*domain.Project, error) {
	projects := make([]*domain.Project, 0)
	for _, project := range s.projects {
		if project.IsDeleted && !includeDeleted {
			continue
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (s *fakeStore) GetProjectsByUser(userID int64) ([]*domain.Project, error) {
	projects := make([]*domain.Project, 0)
	for _, project := range s.projects {
		if project.IsDeleted {
			continue
		}
		if project.OwnerID == userID || s.employees[relKey(project.ID, userID)] || s.managers[relKey(project.ID, userID)] {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (s *fakeStore) UpdateProject(project *domain.Project) error {
	if _, ok := s.projects[project.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

func (s *fakeStore) SoftDeleteProject(id int64) error {
	project, ok := s.projects[id]
	if !ok || project.IsDeleted {
		return sql.ErrNoRows
	}
	project.IsDeleted = true
	return nil
}

func (s *fakeStore) ProjectExists(projectID int64) (bool, error) {
	project, ok := s.projects[projectID]
	return ok && !project.IsDeleted, nil
}

func (s *fakeStore) IsUserOwner(projectID int64, userID int64) (bool, error) {
	project, ok := s.projects[projectID]
	return ok && project.OwnerID == userID, nil
}

func (s *fakeStore) IsUserEmployee(projectID int64, userID int64) (bool, error) {
	return s.employees[relKey(projectID, userID)], nil
}

func (s *fakeStore) IsUserManager(projectID int64, userID int64) (bool, error) {
	return s.managers[relKey(projectID, userID)], nil
}

func (s *fakeStore) AddProjectEmployee(projectID int64, userID int64) error {
	s.employees[relKey(projectID, userID)] = true
	return nil
}

func (s *fakeStore) RemoveProjectEmployee(projectID int64, userID int64) error {
	delete(s.employees, relKey(projectID, userID))
	return nil
}

func (s *fakeStore) AddProjectManager(projectID int64, userID int64) error {
	s.managers[relKey(projectID, userID)] = true
	return nil
}

func (s *fakeStore) RemoveProjectManager(projectID int64, userID int64) error {
	delete(s.managers, relKey(projectID, userID))
	return nil
}

func (s *fakeStore) GetProjectEmployees(projectID int64) ([]*domain.User, error) {
	users := make([]*domain.User, 0)
	for _, user := range s.users {
		if s.employees[relKey(projectID, user.ID)] {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *fakeStore) CreateTask(task *domain.Task) error {
	task.ID = s.id()
	task.CreatedAt = time.Now()
	s.tasks[task.ID] = task
	return nil
}

func (s *fakeStore) GetTaskByID(id int64) (*domain.Task, error) {
	task, ok := s.tasks[id]
	if !ok || task.IsDeleted {
		return nil, sql.ErrNoRows
	}
	// 所属项目被软删除时任务同样不可见
	if project, ok := s.projects[task.ProjectID]; !ok || project.IsDeleted {
		return nil, sql.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (s *fakeStore) GetTasksByProject(projectID int64) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.ProjectID == projectID && !task.IsDeleted {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *fakeStore) GetTasksDueBetween(from time.Time, to time.Time) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.IsDeleted || task.Status == domain.TaskStatusCompleted {
			continue
		}
		if !task.DueDate.Before(from) && task.DueDate.Before(to) {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *fakeStore) UpdateTask(task *domain.Task) error {
	if _, ok := s.tasks[task.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeStore) SoftDeleteTask(id int64) error {
	task, ok := s.tasks[id]
	if !ok || task.IsDeleted {
		return sql.ErrNoRows
	}
	task.IsDeleted = true
	return nil
}

func (s *fakeStore) CreateComment(comment *domain.Comment) error {
	comment.ID = s.id()
	comment.CreatedAt = time.Now()
	s.comments[comment.ID] = comment
	return nil
}

func (s *fakeStore) GetCommentByID(id int64) (*domain.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *comment
	return &copied, nil
}

func (s *fakeStore) GetCommentsByTask(taskID int64) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	for _, comment := range s.comments {
		if comment.TaskID == taskID {
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

func (s *fakeStore) UpdateComment(comment *domain.Comment) error {
	if _, ok := s.comments[comment.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *comment
	s.comments[comment.ID] = &copied
	return nil
}

func (s *fakeStore) DeleteComment(id int64) error {
	delete(s.comments, id)
	return nil
}

func (s *fakeStore) CreateLabel(label *domain.Label) error {
	label.ID = s.id()
	label.CreatedAt = time.Now()
	s.labels[label.ID] = label
	return nil
}

func (s *fakeStore) GetLabelByID(id int64) (*domain.Label, error) {
	label, ok := s.labels[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *label
	return &copied, nil
}

func (s *fakeStore) GetLabelsByOwner(ownerID int64) ([]*domain.Label, error) {
	labels := make([]*domain.Label, 0)
	for _, label := range s.labels {
		if label.OwnerID == ownerID {
			labels = append(labels, label)
		}
	}
	return labels, nil
}

func (s *fakeStore) GetLabelsByTask(taskID int64) ([]*domain.Label, error) {
	labels := make([]*domain.Label, 0)
	for _, label := range s.labels {
		if s.taskLabels[relKey(taskID, label.ID)] {
			labels = append(labels, label)
		}
	}
	return labels, nil
}

func (s *fakeStore) UpdateLabel(label *domain.Label) error {
	if _, ok := s.labels[label.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *label
	s.labels[label.ID] = &copied
	return nil
}

func (s *fakeStore) DeleteLabel(id int64) error {
	delete(s.labels, id)
	return nil
}

func (s *fakeStore) AttachLabel(taskID int64, labelID int64) error {
	s.taskLabels[relKey(taskID, labelID)] = true
	return nil
}

func (s *fakeStore) DetachLabel(taskID int64, labelID int64) error {
	delete(s.taskLabels, relKey(taskID, labelID))
	return nil
}

func (s *fakeStore) CreateAttachment(attachment *domain.Attachment) error {
	attachment.ID = s.id()
	attachment.UploadedAt = time.Now()
	s.attachments[attachment.ID] = attachment
	return nil
}

func (s *fakeStore) GetAttachmentByID(id int64) (*domain.Attachment, error) {
	attachment, ok := s.attachments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *attachment
	return &copied, nil
}

func (s *fakeStore) GetAttachmentsByTask(taskID int64) ([]*domain.Attachment, error) {
	attachments := make([]*domain.Attachment, 0)
	for _, attachment := range s.attachments {
		if attachment.TaskID == taskID {
			attachments = append(attachments, attachment)
		}
	}
	return attachments, nil
}

func (s *fakeStore) DeleteAttachment(id int64) error {
	delete(s.attachments, id)
	return nil
}

// captureQueue 把入队的邮件留在内存里供断言
type captureQueue struct {
	messages []domain.MailMessage
}

func (q *captureQueue) Enqueue(_ context.Context, msg domain.MailMessage) error {
	q.messages = append(q.messages, msg)
	return nil
}

func (q *captureQueue) last(t *testing.T) domain.MailMessage {
	t.Helper()
	require.NotEmpty(t, q.messages)
	return q.messages[len(q.messages)-1]
}

// memoryKV 和 redis 的 GETDEL 语义对齐
type memoryKV struct {
	data map[string]string
}

func (kv *memoryKV) Set(_ context.Context, key string, value string, _ time.Duration) error {
	kv.data[key] = value
	return nil
}

func (kv *memoryKV) GetDel(_ context.Context, key string) (string, error) {
	value, ok := kv.data[key]
	if !ok {
		return "", actionlink.ErrLinkNotFound
	}
	delete(kv.data, key)
	return value, nil
}

type fakeFileHost struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeFileHost() *fakeFileHost {
	return &fakeFileHost{uploaded: make(map[string][]byte)}
}

func (f *fakeFileHost) Upload(_ context.Context, path string, data []byte) error {
	f.uploaded[path] = data
	return nil
}

func (f *fakeFileHost) CreateOrGetSharedLink(_ context.Context, path string) (string, error) {
	return "https://files.example.com/s" + path, nil
}

func (f *fakeFileHost) Delete(_ context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

type testEnv struct {
	handler  *Handler
	store    *fakeStore
	queue    *captureQueue
	fileHost *fakeFileHost
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Environment = "development"
	cfg.Server.FrontendBaseURL = "https://tasks.example.com"
	cfg.JWT.AccessSecret = "access-secret-for-test"
	cfg.JWT.AccessExpiration = 900
	cfg.JWT.RefreshSecret = "refresh-secret-for-test"
	cfg.JWT.RefreshExpiration = 1209600
	cfg.JWT.ActionSecret = "action-secret-for-test"
	cfg.JWT.ActionExpiration = 1800
	cfg.NewUser.PasswordLength = 12
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	store := newFakeStore()
	queue := &captureQueue{}
	fileHost := newFakeFileHost()

	tokens := token.NewManager(cfg)
	links := actionlink.NewStore(&memoryKV{data: make(map[string]string)}, tokens)

	h, err := NewHandler(cfg, store, tokens, links, queue, fileHost)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{handler: h, store: store, queue: queue, fileHost: fileHost}
}

// addUser 直接往 fake store 里塞一个已激活用户，返回其 ID
func (e *testEnv) addUser(t *testing.T, username string, role domain.Role, password string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     username,
		Email:        username + "@example.com",
		Role:         role,
		Enabled:      true,
	}
	require.NoError(t, e.store.CreateUser(user))
	return user
}

func (e *testEnv) addProject(t *testing.T, ownerID int64) *domain.Project {
	t.Helper()

	project := &domain.Project{
		Name:      "测试项目",
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 3, 0),
		Status:    domain.ProjectStatusInProgress,
		OwnerID:   ownerID,
	}
	require.NoError(t, e.store.CreateProject(project))
	return project
}

func (e *testEnv) addTask(t *testing.T, projectID int64, assigneeID int64) *domain.Task {
	t.Helper()

	task := &domain.Task{
		ProjectID:  projectID,
		AssigneeID: assigneeID,
		Name:       "测试任务",
		Priority:   domain.TaskPriorityMedium,
		Status:     domain.TaskStatusNotStarted,
		DueDate:    time.Now().AddDate(0, 0, 7),
	}
	require.NoError(t, e.store.CreateTask(task))
	return task
}

// do 以 userID 的身份发一个请求；userID 为 0 表示未登录
func (e *testEnv) do(t *testing.T, userID int64, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != 0 {
		accessToken, err := e.handler.tokens.Generate(token.KindAccess, strconv.FormatInt(userID, 10))
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: accessTokenCookieName, Value: accessToken})
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
