package authz

// 项目权限判定：所有触及 Project/Task 的读写都要先经过这里。
// “任意权限”指 owner、员工或经理之一，“管理权限”只认 owner 和经理。

import (
	"errors"
)

// 项目不存在或已被软删除时返回该错误，调用方应当返回 404 而不是 403
var ErrProjectNotFound = errors.New("项目不存在")

// MembershipStore 是权限判定需要的最小关系查询接口，由 repository 实现
type MembershipStore interface {
	ProjectExists(projectID int64) (bool, error) // 软删除的项目视为不存在
	IsUserOwner(projectID int64, userID int64) (bool, error)
	IsUserEmployee(projectID int64, userID int64) (bool, error)
	IsUserManager(projectID int64, userID int64) (bool, error)
}

type Authorizer struct {
	store MembershipStore
}

func NewAuthorizer(store MembershipStore) *Authorizer {
	return &Authorizer{store: store}
}

// HasAnyAuthority 判定 userID 是否为未删除项目的 owner、员工或经理
func (a *Authorizer) HasAnyAuthority(projectID int64, userID int64) (bool, error) {
	if err := a.checkProject(projectID); err != nil {
		return false, err
	}

	for _, check := range []func(int64, int64) (bool, error){
		a.store.IsUserOwner,
		a.store.IsUserManager,
		a.store.IsUserEmployee,
	} {
		ok, err := check(projectID, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// HasManagerialAuthority 判定 userID 是否为未删除项目的 owner 或经理
func (a *Authorizer) HasManagerialAuthority(projectID int64, userID int64) (bool, error) {
	if err := a.checkProject(projectID); err != nil {
		return false, err
	}

	for _, check := range []func(int64, int64) (bool, error){
		a.store.IsUserOwner,
		a.store.IsUserManager,
	} {
		ok, err := check(projectID, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (a *Authorizer) checkProject(projectID int64) error {
	exists, err := a.store.ProjectExists(projectID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrProjectNotFound
	}
	return nil
}
