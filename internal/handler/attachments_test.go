package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
)

func uploadFile(t *testing.T, env *testEnv, userID int64, taskID int64, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/tasks/%d/attachments", taskID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	accessToken, err := env.handler.tokens.Generate(token.KindAccess, strconv.FormatInt(userID, 10))
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: accessTokenCookieName, Value: accessToken})

	rec := httptest.NewRecorder()
	env.handler.Mux.ServeHTTP(rec, req)
	return rec
}

func TestUploadAttachment(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	member := env.addUser(t, "member", domain.RoleEmployee, "password123")
	outsider := env.addUser(t, "outsider", domain.RoleEmployee, "password123")

	project := env.addProject(t, owner.ID)
	require.NoError(t, env.store.AddProjectEmployee(project.ID, member.ID))
	task := env.addTask(t, project.ID, member.ID)

	// 局外人不能上传
	rec := uploadFile(t, env, outsider.ID, task.ID, "report.pdf", []byte("pdf-bytes"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = uploadFile(t, env, member.ID, task.ID, "report.pdf", []byte("pdf-bytes"))
	require.Equal(t, http.StatusOK, rec.Code)

	attachments, err := env.store.GetAttachmentsByTask(task.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	attachment := attachments[0]

	assert.Equal(t, "report.pdf", attachment.FileName)
	assert.Equal(t, member.ID, attachment.UploaderID)
	assert.NotEmpty(t, attachment.SharedLink)

	// 文件确实写到了托管端，路径带任务前缀
	require.Len(t, env.fileHost.uploaded, 1)
	assert.Equal(t, []byte("pdf-bytes"), env.fileHost.uploaded[attachment.Path])
	assert.Contains(t, attachment.Path, fmt.Sprintf("/task-manager/tasks/%d/", task.ID))
}

func TestDeleteAttachment(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", domain.RoleManager, "password123")
	member := env.addUser(t, "member", domain.RoleEmployee, "password123")
	another := env.addUser(t, "another", domain.RoleEmployee, "password123")

	project := env.addProject(t, owner.ID)
	require.NoError(t, env.store.AddProjectEmployee(project.ID, member.ID))
	require.NoError(t, env.store.AddProjectEmployee(project.ID, another.ID))
	task := env.addTask(t, project.ID, member.ID)

	require.Equal(t, http.StatusOK, uploadFile(t, env, member.ID, task.ID, "a.txt", []byte("a")).Code)
	attachments, err := env.store.GetAttachmentsByTask(task.ID)
	require.NoError(t, err)
	attachment := attachments[0]

	path := fmt.Sprintf("/attachments/%d/", attachment.ID)

	// 既不是上传者也没有管理权限的成员删不了
	assert.Equal(t, http.StatusForbidden, env.do(t, another.ID, http.MethodDelete, path, nil).Code)

	// 上传者本人可以删，托管端文件一并清理
	require.Equal(t, http.StatusOK, env.do(t, member.ID, http.MethodDelete, path, nil).Code)
	assert.Contains(t, env.fileHost.deleted, attachment.Path)

	attachments, err = env.store.GetAttachmentsByTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, attachments)

	// 管理权限也可以删别人的附件
	require.Equal(t, http.StatusOK, uploadFile(t, env, member.ID, task.ID, "b.txt", []byte("b")).Code)
	attachments, err = env.store.GetAttachmentsByTask(task.ID)
	require.NoError(t, err)
	path = fmt.Sprintf("/attachments/%d/", attachments[0].ID)
	assert.Equal(t, http.StatusOK, env.do(t, owner.ID, http.MethodDelete, path, nil).Code)
}
