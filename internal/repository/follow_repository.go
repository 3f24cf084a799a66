package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/warbler/internal/model"
)

type FollowRepository interface {
	Create(ctx context.Context, followerID, followedID uint) error
	Delete(ctx context.Context, followerID, followedID uint) error
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	ListFollowing(ctx context.Context, followerID uint, offset, limit int) ([]*model.User, error)
	ListFollowers(ctx context.Context, followedID uint, offset, limit int) ([]*model.User, error)
	CountFollowing(ctx context.Context, followerID uint) (int64, error)
	CountFollowers(ctx context.Context, followedID uint) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, followerID, followedID uint) error {
	f := &model.Follow{UserBeingFollowedID: followedID, UserFollowingID: followerID}
	// 幂等：重复关注不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uint) error {
	return r.db.WithContext(ctx).
		Where("user_being_followed_id = ? AND user_following_id = ?", followedID, followerID).
		Delete(&model.Follow{}).Error
}

// Exists 命中复合主键，不做全表扫描
func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("user_being_followed_id = ? AND user_following_id = ?", followedID, followerID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *followRepository) ListFollowing(ctx context.Context, followerID uint, offset, limit int) ([]*model.User, error) {
	var res []*model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.user_being_followed_id = users.id").
		Where("follows.user_following_id = ?", followerID).
		Order("users.id").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *followRepository) ListFollowers(ctx context.Context, followedID uint, offset, limit int) ([]*model.User, error) {
	var res []*model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.user_following_id = users.id").
		Where("follows.user_being_followed_id = ?", followedID).
		Order("users.id").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *followRepository) CountFollowing(ctx context.Context, followerID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("user_following_id = ?", followerID).Count(&cnt).Error
	return cnt, err
}

func (r *followRepository) CountFollowers(ctx context.Context, followedID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("user_being_followed_id = ?", followedID).Count(&cnt).Error
	return cnt, err
}
