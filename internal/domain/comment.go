package domain

import (
	"time"
)

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	AuthorID  int64     `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}
