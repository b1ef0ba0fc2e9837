package notifier

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

type fakeStore struct {
	tasks    []*domain.Task
	users    map[int64]*domain.User
	projects map[int64]*domain.Project

	scannedFrom time.Time
	scannedTo   time.Time
}

func (s *fakeStore) GetTasksDueBetween(from time.Time, to time.Time) ([]*domain.Task, error) {
	s.scannedFrom, s.scannedTo = from, to
	return s.tasks, nil
}

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d not found", id)
	}
	return user, nil
}

func (s *fakeStore) GetProjectByID(id int64, _ bool) (*domain.Project, error) {
	project, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d not found", id)
	}
	return project, nil
}

type captureQueue struct {
	messages []domain.MailMessage
}

func (q *captureQueue) Enqueue(_ context.Context, msg domain.MailMessage) error {
	q.messages = append(q.messages, msg)
	return nil
}

func TestGroupByAssignee(t *testing.T) {
	tasks := []*domain.Task{
		{ID: 1, AssigneeID: 7},
		{ID: 2, AssigneeID: 8},
		{ID: 3, AssigneeID: 7},
	}

	grouped := GroupByAssignee(tasks)
	require.Len(t, grouped, 2)
	assert.Equal(t, []int64{1, 3}, []int64{grouped[7][0].ID, grouped[7][1].ID})
	assert.Len(t, grouped[8], 1)
}

func TestNotifyOnce(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.Local)
	due := time.Date(2025, 3, 11, 18, 0, 0, 0, time.Local)

	store := &fakeStore{
		tasks: []*domain.Task{
			{ID: 1, ProjectID: 100, AssigneeID: 7, Name: "写周报", DueDate: due},
			{ID: 2, ProjectID: 100, AssigneeID: 7, Name: "整理文档", DueDate: due},
			{ID: 3, ProjectID: 101, AssigneeID: 8, Name: "部署测试环境", DueDate: due},
		},
		users: map[int64]*domain.User{
			7: {ID: 7, FullName: "张三", Email: "zhangsan@example.com"},
			8: {ID: 8, FullName: "李四", Email: "lisi@example.com"},
		},
		projects: map[int64]*domain.Project{
			100: {ID: 100, Name: "迎新网站"},
			101: {ID: 101, Name: "报修平台"},
		},
	}
	queue := &captureQueue{}

	n := New(store, queue, time.Hour)
	n.now = func() time.Time { return now }

	n.notifyOnce(context.Background())

	// 扫描窗口是「明天」一整天
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local), store.scannedFrom)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local), store.scannedTo)

	// 每个被指派人收到一封聚合邮件，而不是每个任务一封
	require.Len(t, queue.messages, 2)

	byRecipient := make(map[string]domain.MailMessage)
	for _, msg := range queue.messages {
		assert.Equal(t, "deadline_reminder", msg.Type)
		byRecipient[msg.To] = msg
	}

	data := byRecipient["zhangsan@example.com"].Data.(domain.DeadlineReminderMailData)
	assert.Equal(t, "张三", data.FullName)
	assert.Equal(t, "2025-03-11", data.DueDate)
	require.Len(t, data.Tasks, 2)
	assert.Contains(t, data.Tasks[0], "写周报")
	assert.Contains(t, data.Tasks[0], "迎新网站")

	data = byRecipient["lisi@example.com"].Data.(domain.DeadlineReminderMailData)
	require.Len(t, data.Tasks, 1)
	assert.Contains(t, data.Tasks[0], "部署测试环境")
}

func TestNotifyOnce_SkipsUnknownAssignee(t *testing.T) {
	store := &fakeStore{
		tasks: []*domain.Task{
			{ID: 1, ProjectID: 100, AssigneeID: 7, Name: "写周报"},
			{ID: 2, ProjectID: 100, AssigneeID: 999, Name: "幽灵任务"},
		},
		users: map[int64]*domain.User{
			7: {ID: 7, FullName: "张三", Email: "zhangsan@example.com"},
		},
		projects: map[int64]*domain.Project{
			100: {ID: 100, Name: "迎新网站"},
		},
	}
	queue := &captureQueue{}

	n := New(store, queue, time.Hour)
	n.notifyOnce(context.Background())

	// 查不到的被指派人跳过，不影响其他人的提醒
	require.Len(t, queue.messages, 1)
	assert.Equal(t, "zhangsan@example.com", queue.messages[0].To)
}
