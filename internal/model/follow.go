package model

import (
	"time"
)

// Follow 关注关系（UserFollowingID 关注 UserBeingFollowedID）
// 复合主键 (user_being_followed_id, user_following_id) 同时避免重复关注；
// idx_follows_following 服务"我关注了谁"的查询。
type Follow struct {
	UserBeingFollowedID uint      `json:"user_being_followed_id" gorm:"primaryKey;autoIncrement:false"`
	UserFollowingID     uint      `json:"user_following_id" gorm:"primaryKey;autoIncrement:false;index:idx_follows_following"`
	CreatedAt           time.Time `json:"created_at"`

	UserBeingFollowed *User `json:"-" gorm:"foreignKey:UserBeingFollowedID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	UserFollowing     *User `json:"-" gorm:"foreignKey:UserFollowingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Follow) TableName() string { return "follows" }
