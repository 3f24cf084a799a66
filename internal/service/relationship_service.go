package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/pkg/logger"
)

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, who authz.Identity, targetID uint) error
	Unfollow(ctx context.Context, who authz.Identity, targetID uint) error
	ListFollowing(ctx context.Context, userID uint, page, pageSize int) ([]*model.User, error)
	ListFollowers(ctx context.Context, userID uint, page, pageSize int) ([]*model.User, error)
	// IsFollowing reports whether userID follows otherID.
	IsFollowing(ctx context.Context, userID, otherID uint) (bool, error)
	// IsFollowedBy reports whether otherID follows userID.
	IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error)
}

type relationshipService struct {
	store *repository.Store
}

func NewRelationshipService(store *repository.Store) RelationshipService {
	return &relationshipService{store: store}
}

func (s *relationshipService) Follow(ctx context.Context, who authz.Identity, targetID uint) error {
	if _, err := authz.Require(who); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		me, err := actor(ctx, tx, who)
		if err != nil {
			return err
		}
		if me.ID == targetID {
			return ErrFollowSelf
		}
		if err := mustExist(ctx, tx, targetID); err != nil {
			return err
		}
		if err := tx.Follows.Create(ctx, me.ID, targetID); err != nil {
			return err
		}
		logger.Debug("follow", zap.Uint("follower", me.ID), zap.Uint("followed", targetID))
		return nil
	})
}

func (s *relationshipService) Unfollow(ctx context.Context, who authz.Identity, targetID uint) error {
	if _, err := authz.Require(who); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		me, err := actor(ctx, tx, who)
		if err != nil {
			return err
		}
		if err := mustExist(ctx, tx, targetID); err != nil {
			return err
		}
		return tx.Follows.Delete(ctx, me.ID, targetID)
	})
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID uint, page, pageSize int) ([]*model.User, error) {
	if err := mustExist(ctx, s.store, userID); err != nil {
		return nil, err
	}
	offset, limit := paginate(page, pageSize)
	return s.store.Follows.ListFollowing(ctx, userID, offset, limit)
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID uint, page, pageSize int) ([]*model.User, error) {
	if err := mustExist(ctx, s.store, userID); err != nil {
		return nil, err
	}
	offset, limit := paginate(page, pageSize)
	return s.store.Follows.ListFollowers(ctx, userID, offset, limit)
}

func (s *relationshipService) IsFollowing(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.store.Follows.Exists(ctx, userID, otherID)
}

func (s *relationshipService) IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.store.Follows.Exists(ctx, otherID, userID)
}

// actor 校验身份并加载对应用户；身份指向不存在的用户同样视为未授权
func actor(ctx context.Context, st *repository.Store, who authz.Identity) (*model.User, error) {
	id, err := authz.Require(who)
	if err != nil {
		return nil, err
	}
	u, err := st.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

func mustExist(ctx context.Context, st *repository.Store, userID uint) error {
	if _, err := st.Users.GetByID(ctx, userID); err != nil {
		return notFound(err)
	}
	return nil
}

// notFound 将 gorm 的 ErrRecordNotFound 转换为 ErrNotFound，其他错误原样返回
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return (page - 1) * pageSize, pageSize
}
