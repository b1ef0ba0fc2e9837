package domain

import (
	"time"
)

type ProjectStatus string

const (
	ProjectStatusInitiated  ProjectStatus = "未启动"
	ProjectStatusInProgress ProjectStatus = "进行中"
	ProjectStatusCompleted  ProjectStatus = "已完成"
)

type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	StartDate   time.Time     `json:"startDate"`
	EndDate     time.Time     `json:"endDate"`
	Status      ProjectStatus `json:"status"`
	OwnerID     int64         `json:"ownerId"`
	IsDeleted   bool          `json:"isDeleted"`
	CreatedAt   time.Time     `json:"createdAt"`
	Version     int32         `json:"-"`
}
