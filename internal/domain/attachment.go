package domain

import (
	"time"
)

type Attachment struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"taskId"`
	UploaderID int64     `json:"uploaderId"`
	FileID     string    `json:"fileId"`
	FileName   string    `json:"fileName"`
	// 文件字节存在外部文件托管，这里只记录路径和分享链接
	Path       string    `json:"-"`
	SharedLink string    `json:"sharedLink"`
	UploadedAt time.Time `json:"uploadedAt"`
}
