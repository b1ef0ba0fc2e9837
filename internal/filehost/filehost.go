package filehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
)

// Client 是外部文件托管的最小接口。上传是请求线程内的同步调用，
// 接口化之后以后要挪到后台任务不需要动 handler 逻辑
type Client interface {
	Upload(ctx context.Context, path string, data []byte) error
	// CreateOrGetSharedLink 在链接已存在时直接返回已有链接，不视为错误
	CreateOrGetSharedLink(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// HTTPClient 对接 Dropbox 风格的 HTTP 文件托管 API
type HTTPClient struct {
	cfg    *config.Config
	client *http.Client
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.FileHost.RequestTimeout) * time.Second,
		},
	}
}

func (c *HTTPClient) do(ctx context.Context, endpoint string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FileHost.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.FileHost.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	return c.client.Do(req)
}

func (c *HTTPClient) Upload(ctx context.Context, path string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FileHost.BaseURL+"/files/upload", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.FileHost.AccessToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-File-Path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("上传文件失败: %s", string(msg))
	}

	return nil
}

func (c *HTTPClient) CreateOrGetSharedLink(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, "/sharing/create_shared_link", map[string]string{"path": path})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// 409 表示链接已存在，改为获取已有链接
	if resp.StatusCode == http.StatusConflict {
		resp2, err := c.do(ctx, "/sharing/get_shared_link", map[string]string{"path": path})
		if err != nil {
			return "", err
		}
		defer resp2.Body.Close()
		resp = resp2
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("获取分享链接失败: %s", string(msg))
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", errors.New("文件托管返回了空的分享链接")
	}

	return result.URL, nil
}

func (c *HTTPClient) Delete(ctx context.Context, path string) error {
	resp, err := c.do(ctx, "/files/delete", map[string]string{"path": path})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("删除文件失败: %s", string(msg))
	}

	return nil
}
