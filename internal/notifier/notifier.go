package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/mailqueue"
)

// Store 是提醒扫描所需的最小数据访问集合
type Store interface {
	GetTasksDueBetween(from time.Time, to time.Time) ([]*domain.Task, error)
	GetUserByID(id int64) (*domain.User, error)
	GetProjectByID(id int64, includeDeleted bool) (*domain.Project, error)
}

// Notifier 周期性扫描第二天到期的任务，
// 给每个被指派人聚合成一封提醒邮件后入队
type Notifier struct {
	store    Store
	queue    mailqueue.Queue
	interval time.Duration
	now      func() time.Time
}

func New(store Store, queue mailqueue.Queue, interval time.Duration) *Notifier {
	return &Notifier{
		store:    store,
		queue:    queue,
		interval: interval,
		now:      time.Now,
	}
}

func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	// 启动时先跑一轮，避免错过当天窗口
	n.notifyOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.notifyOnce(ctx)
		}
	}
}

// GroupByAssignee 按被指派人聚合任务，保持每个人名下任务的原有顺序
func GroupByAssignee(tasks []*domain.Task) map[int64][]*domain.Task {
	grouped := make(map[int64][]*domain.Task)
	for _, task := range tasks {
		grouped[task.AssigneeID] = append(grouped[task.AssigneeID], task)
	}
	return grouped
}

func (n *Notifier) notifyOnce(ctx context.Context) {
	// 提醒窗口是本地时间的「明天」一整天
	today := n.now()
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, 1)

	tasks, err := n.store.GetTasksDueBetween(from, to)
	if err != nil {
		slog.Error("扫描到期任务失败", "error", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	for assigneeID, assignedTasks := range GroupByAssignee(tasks) {
		assignee, err := n.store.GetUserByID(assigneeID)
		if err != nil {
			slog.Error("获取被指派人信息失败", "error", err, "user_id", assigneeID)
			continue
		}

		lines := make([]string, 0, len(assignedTasks))
		for _, task := range assignedTasks {
			line := task.Name
			if project, err := n.store.GetProjectByID(task.ProjectID, false); err == nil {
				line = fmt.Sprintf("%s（项目：%s）", task.Name, project.Name)
			}
			lines = append(lines, line)
		}

		msg := domain.MailMessage{
			Type: "deadline_reminder",
			To:   assignee.Email,
			Data: domain.DeadlineReminderMailData{
				FullName: assignee.FullName,
				DueDate:  from.Format("2006-01-02"),
				Tasks:    lines,
			},
		}

		if err := n.queue.Enqueue(ctx, msg); err != nil {
			slog.Error("到期提醒邮件入队失败", "error", err, "to", assignee.Email)
			continue
		}

		slog.Info("到期提醒已入队", "to", assignee.Email, "tasks", len(assignedTasks))
	}
}
