package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/internal/model"
)

// MessageRepository 消息仓储接口；列表均按时间倒序
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id uint) (*model.Message, error)
	Delete(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]*model.Message, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	// ListLikedBy 返回用户点赞过的消息
	ListLikedBy(ctx context.Context, userID uint, limit int) ([]*model.Message, error)
	// Timeline 返回用户自己及其关注对象的消息
	Timeline(ctx context.Context, userID uint, limit int) ([]*model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

const recentFirst = "messages.timestamp DESC, messages.id DESC"

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Omit("User").Create(msg).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Message{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *messageRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]*model.Message, error) {
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(recentFirst).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *messageRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt, err
}

func (r *messageRepository) ListLikedBy(ctx context.Context, userID uint, limit int) ([]*model.Message, error) {
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order(recentFirst).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *messageRepository) Timeline(ctx context.Context, userID uint, limit int) ([]*model.Message, error) {
	followed := r.db.Model(&model.Follow{}).
		Select("user_being_followed_id").
		Where("user_following_id = ?", userID)

	var res []*model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN (?) OR user_id = ?", followed, userID).
		Order(recentFirst).
		Limit(limit).
		Find(&res).Error
	return res, err
}
