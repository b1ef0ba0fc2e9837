package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func TestCreateProject_RoleGate(t *testing.T) {
	env := newTestEnv(t)
	employee := env.addUser(t, "employee", domain.RoleEmployee, "password123")
	manager := env.addUser(t, "manager", domain.RoleManager, "password123")

	body := map[string]any{
		"name":      "迎新网站",
		"startDate": time.Now().Format(time.RFC3339),
		"endDate":   time.Now().AddDate(0, 3, 0).Format(time.RFC3339),
	}

	// 普通员工不能创建项目
	rec := env.do(t, employee.ID, http.MethodPost, "/projects/", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 经理可以，创建者成为 owner 并获得管理权限
	rec = env.do(t, manager.ID, http.MethodPost, "/projects/", body)
	require.Equal(t, http.StatusOK, rec.Code)

	projects, err := env.store.GetAllProjects(false)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, manager.ID, projects[0].OwnerID)

	ok, err := env.store.IsUserManager(projects[0].ID, manager.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.store.IsUserEmployee(projects[0].ID, manager.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetProject_Authority(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	member := env.addUser(t, "member", domain.RoleEmployee, "password123")
	outsider := env.addUser(t, "outsider", domain.RoleEmployee, "password123")

	project := env.addProject(t, owner.ID)
	require.NoError(t, env.store.AddProjectEmployee(project.ID, member.ID))

	path := fmt.Sprintf("/projects/%d/", project.ID)

	// 成员和 owner 都能读
	assert.Equal(t, http.StatusOK, env.do(t, owner.ID, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, member.ID, http.MethodGet, path, nil).Code)

	// 局外人读是 403，项目不存在是 404，两者要分开
	assert.Equal(t, http.StatusForbidden, env.do(t, outsider.ID, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, outsider.ID, http.MethodGet, "/projects/9999/", nil).Code)
}

func TestUpdateProject_PartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	member := env.addUser(t, "member", domain.RoleEmployee, "password123")

	project := env.addProject(t, owner.ID)
	require.NoError(t, env.store.AddProjectEmployee(project.ID, member.ID))
	originalName := project.Name

	path := fmt.Sprintf("/projects/%d/", project.ID)

	// 普通成员没有管理权限
	rec := env.do(t, member.ID, http.MethodPatch, path, map[string]any{"status": "已完成"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 只传 status，其他字段保持不变
	rec = env.do(t, owner.ID, http.MethodPatch, path, map[string]any{"status": "已完成"})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := env.store.GetProjectByID(project.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusCompleted, updated.Status)
	assert.Equal(t, originalName, updated.Name)

	// 空请求体不改变任何字段，但仍然返回 200
	rec = env.do(t, owner.ID, http.MethodPatch, path, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	unchanged, err := env.store.GetProjectByID(project.ID, false)
	require.NoError(t, err)
	assert.Equal(t, *updated, *unchanged)
}

func TestDeleteProject_SoftDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	supervisor := env.addUser(t, "supervisor", domain.RoleSupervisor, "password123")

	project := env.addProject(t, owner.ID)
	path := fmt.Sprintf("/projects/%d/", project.ID)

	rec := env.do(t, owner.ID, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// 删除后常规路由一律 404
	assert.Equal(t, http.StatusNotFound, env.do(t, owner.ID, http.MethodGet, path, nil).Code)

	// 只有总监能看到已删除项目列表
	rec = env.do(t, supervisor.ID, http.MethodGet, "/projects/deleted", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	deleted, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, deleted, 1)

	assert.Equal(t, http.StatusForbidden, env.do(t, owner.ID, http.MethodGet, "/projects/deleted", nil).Code)
}

func TestGetMyProjects(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	member := env.addUser(t, "member", domain.RoleEmployee, "password123")
	supervisor := env.addUser(t, "supervisor", domain.RoleSupervisor, "password123")

	mine := env.addProject(t, owner.ID)
	require.NoError(t, env.store.AddProjectEmployee(mine.ID, member.ID))
	env.addProject(t, supervisor.ID) // member 不参与的项目

	rec := env.do(t, member.ID, http.MethodGet, "/projects/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse(t, rec).Data.([]any), 1)

	// 总监看到全部
	rec = env.do(t, supervisor.ID, http.MethodGet, "/projects/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse(t, rec).Data.([]any), 2)
}

func TestProjectMembers(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	member := env.addUser(t, "member", domain.RoleEmployee, "password123")

	project := env.addProject(t, owner.ID)
	base := fmt.Sprintf("/projects/%d", project.ID)

	// 添加成员
	rec := env.do(t, owner.ID, http.MethodPost, base+"/employees", map[string]any{"userId": member.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	ok, err := env.store.IsUserEmployee(project.ID, member.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// 不存在的用户
	rec = env.do(t, owner.ID, http.MethodPost, base+"/employees", map[string]any{"userId": 9999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 提拔为经理再撤掉
	rec = env.do(t, owner.ID, http.MethodPost, base+"/managers", map[string]any{"userId": member.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, owner.ID, http.MethodDelete, fmt.Sprintf("%s/managers/%d", base, member.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	ok, err = env.store.IsUserManager(project.ID, member.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// owner 不允许被移出
	rec = env.do(t, owner.ID, http.MethodDelete, fmt.Sprintf("%s/employees/%d", base, owner.ID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
