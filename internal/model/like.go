package model

import "time"

// Like 点赞：同一用户对同一消息只保留一条
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_likes_user_message"`
	MessageID uint      `json:"message_id" gorm:"not null;uniqueIndex:idx_likes_user_message;index"`
	CreatedAt time.Time `json:"created_at"`

	User    *User    `json:"-" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Message *Message `json:"-" gorm:"foreignKey:MessageID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Like) TableName() string { return "likes" }
