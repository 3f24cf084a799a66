package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合所有仓储，并提供事务边界：一个请求对应一个事务
type Store struct {
	db *gorm.DB

	Users    UserRepository
	Messages MessageRepository
	Follows  FollowRepository
	Likes    LikeRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Messages: NewMessageRepository(db),
		Follows:  NewFollowRepository(db),
		Likes:    NewLikeRepository(db),
	}
}

// Transaction runs fn against repositories bound to a single transaction.
// Any error returned by fn rolls the transaction back, leaving the connection ready for reuse.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB 返回底层连接（健康检查用）
func (s *Store) DB() *gorm.DB { return s.db }
