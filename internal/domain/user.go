package domain

import (
	"time"
)

type Role string

const (
	RoleEmployee   Role = "员工"
	RoleManager    Role = "经理"
	RoleSupervisor Role = "总监"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Enabled      bool      `json:"enabled"`  // 邮箱确认后才为 true
	IsLocked     bool      `json:"isLocked"` // 被管理员锁定的账户无法登录
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}
