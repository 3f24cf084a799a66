package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/warbler/internal/model"
)

type LikeRepository interface {
	Create(ctx context.Context, userID, messageID uint) error
	Delete(ctx context.Context, userID, messageID uint) error
	Exists(ctx context.Context, userID, messageID uint) (bool, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	CountByMessage(ctx context.Context, messageID uint) (int64, error)
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

// Create 对 (user_id, message_id) 幂等
func (r *likeRepository) Create(ctx context.Context, userID, messageID uint) error {
	l := &model.Like{UserID: userID, MessageID: messageID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "message_id"}}, DoNothing: true}).
		Create(l).Error
}

func (r *likeRepository) Delete(ctx context.Context, userID, messageID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&model.Like{}).Error
}

func (r *likeRepository) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *likeRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt, err
}

func (r *likeRepository) CountByMessage(ctx context.Context, messageID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("message_id = ?", messageID).Count(&cnt).Error
	return cnt, err
}
