package domain

import (
	"time"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "低"
	TaskPriorityMedium TaskPriority = "中"
	TaskPriorityHigh   TaskPriority = "高"
)

type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "未开始"
	TaskStatusInProgress TaskStatus = "进行中"
	TaskStatusCompleted  TaskStatus = "已完成"
)

type Task struct {
	ID          int64        `json:"id"`
	ProjectID   int64        `json:"projectId"`
	AssigneeID  int64        `json:"assigneeId"` // 必须是所属项目的员工
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	DueDate     time.Time    `json:"dueDate"`
	IsDeleted   bool         `json:"isDeleted"`
	CreatedAt   time.Time    `json:"createdAt"`
	Version     int32        `json:"-"`
}
