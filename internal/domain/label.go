package domain

import (
	"time"
)

type LabelColor string

const (
	LabelColorRed    LabelColor = "红"
	LabelColorOrange LabelColor = "橙"
	LabelColorYellow LabelColor = "黄"
	LabelColorGreen  LabelColor = "绿"
)

type Label struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"ownerId"`
	Name      string     `json:"name"`
	Color     LabelColor `json:"color"`
	CreatedAt time.Time  `json:"createdAt"`
	Version   int32      `json:"-"`
}
