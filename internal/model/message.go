package model

import (
	"time"

	"gorm.io/gorm"
)

const MaxMessageLength = 140

// Message 短消息，随作者级联删除
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"type:varchar(140);not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_messages_user_ts,priority:2"`
	UserID    uint      `json:"user_id" gorm:"not null;index:idx_messages_user_ts,priority:1"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Message) TableName() string { return "messages" }

// BeforeCreate stamps the message with the current UTC time when none was set.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
