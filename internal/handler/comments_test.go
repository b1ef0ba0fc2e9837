package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	member := env.addUser(t, "member", domain.RoleEmployee, "password123")
	outsider := env.addUser(t, "outsider", domain.RoleEmployee, "password123")

	project := env.addProject(t, owner.ID)
	require.NoError(t, env.store.AddProjectEmployee(project.ID, member.ID))
	task := env.addTask(t, project.ID, member.ID)

	commentsPath := fmt.Sprintf("/tasks/%d/comments", task.ID)

	// 局外人既不能评论也不能看评论
	assert.Equal(t, http.StatusForbidden, env.do(t, outsider.ID, http.MethodPost, commentsPath, map[string]any{"content": "??"}).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, outsider.ID, http.MethodGet, commentsPath, nil).Code)

	// 成员发表评论
	rec := env.do(t, member.ID, http.MethodPost, commentsPath, map[string]any{"content": "收到，我来跟进。"})
	require.Equal(t, http.StatusOK, rec.Code)

	comments, err := env.store.GetCommentsByTask(task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	comment := comments[0]
	assert.Equal(t, member.ID, comment.AuthorID)

	// owner 也能看
	rec = env.do(t, owner.ID, http.MethodGet, commentsPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse(t, rec).Data.([]any), 1)

	commentPath := fmt.Sprintf("/comments/%d/", comment.ID)

	// 评论只能由作者本人修改和删除，owner 也不行
	assert.Equal(t, http.StatusForbidden, env.do(t, owner.ID, http.MethodPatch, commentPath, map[string]any{"content": "改掉"}).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, owner.ID, http.MethodDelete, commentPath, nil).Code)

	rec = env.do(t, member.ID, http.MethodPatch, commentPath, map[string]any{"content": "已经完成初版，等待评审。"})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := env.store.GetCommentByID(comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "已经完成初版，等待评审。", updated.Content)

	require.Equal(t, http.StatusOK, env.do(t, member.ID, http.MethodDelete, commentPath, nil).Code)

	comments, err = env.store.GetCommentsByTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
