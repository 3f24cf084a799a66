package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/pkg/credential"
	"github.com/d60-Lab/warbler/pkg/database"
	"github.com/d60-Lab/warbler/pkg/logger"
)

// UserDetail 用户主页聚合数据
type UserDetail struct {
	User           *model.User      `json:"user"`
	MessageCount   int64            `json:"message_count"`
	FollowerCount  int64            `json:"follower_count"`
	FollowingCount int64            `json:"following_count"`
	LikeCount      int64            `json:"like_count"`
	Messages       []*model.Message `json:"messages"`
}

// ProfileUpdate 资料修改；nil 字段保持不变
type ProfileUpdate struct {
	Username       *string
	Email          *string
	ImageURL       *string
	HeaderImageURL *string
	Bio            *string
	Location       *string
}

type profileFields struct {
	Username string `validate:"required,max=255"`
	Email    string `validate:"required,email,max=255"`
}

// UserService 用户列表、主页与资料管理
type UserService interface {
	List(ctx context.Context, q string, page, pageSize int) ([]*model.User, error)
	Get(ctx context.Context, id uint) (*model.User, error)
	Detail(ctx context.Context, id uint) (*UserDetail, error)
	// UpdateProfile re-checks the password before applying changes.
	UpdateProfile(ctx context.Context, who authz.Identity, password string, upd ProfileUpdate) (*model.User, error)
	// Delete removes the caller's account; messages, follows and likes cascade.
	Delete(ctx context.Context, who authz.Identity) error
}

type userService struct {
	store  *repository.Store
	hasher *credential.Hasher
	cfg    config.WarblerConfig
}

func NewUserService(store *repository.Store, hasher *credential.Hasher, cfg config.WarblerConfig) UserService {
	return &userService{store: store, hasher: hasher, cfg: cfg}
}

func (s *userService) List(ctx context.Context, q string, page, pageSize int) ([]*model.User, error) {
	if pageSize < 1 {
		pageSize = s.cfg.UsersPageSize
	}
	offset, limit := paginate(page, pageSize)
	return s.store.Users.List(ctx, q, offset, limit)
}

func (s *userService) Get(ctx context.Context, id uint) (*model.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *userService) Detail(ctx context.Context, id uint) (*UserDetail, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &UserDetail{User: u}
	if d.MessageCount, err = s.store.Messages.CountByUser(ctx, id); err != nil {
		return nil, err
	}
	if d.FollowerCount, err = s.store.Follows.CountFollowers(ctx, id); err != nil {
		return nil, err
	}
	if d.FollowingCount, err = s.store.Follows.CountFollowing(ctx, id); err != nil {
		return nil, err
	}
	if d.LikeCount, err = s.store.Likes.CountByUser(ctx, id); err != nil {
		return nil, err
	}
	limit := s.cfg.ProfileMessageLimit
	if limit <= 0 {
		limit = 100
	}
	if d.Messages, err = s.store.Messages.ListByUser(ctx, id, limit); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *userService) UpdateProfile(ctx context.Context, who authz.Identity, password string, upd ProfileUpdate) (*model.User, error) {
	if _, err := authz.Require(who); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		me, err := actor(ctx, tx, who)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(password, me.Password) {
			return ErrUnauthorized
		}

		apply(&me.Username, upd.Username)
		apply(&me.Email, upd.Email)
		apply(&me.ImageURL, upd.ImageURL)
		apply(&me.HeaderImageURL, upd.HeaderImageURL)
		apply(&me.Bio, upd.Bio)
		apply(&me.Location, upd.Location)
		me.ImageURL = orDefault(me.ImageURL, s.cfg.DefaultImageURL, model.DefaultImageURL)
		me.HeaderImageURL = orDefault(me.HeaderImageURL, s.cfg.DefaultHeaderImageURL, model.DefaultHeaderImageURL)

		if err := check(profileFields{Username: me.Username, Email: me.Email}); err != nil {
			return err
		}
		if err := ensureAvailable(ctx, tx.Users, me, me.ID); err != nil {
			return err
		}
		if err := tx.Users.Update(ctx, me); err != nil {
			return err
		}
		user = me
		return nil
	})
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, &IntegrityError{Reason: "already taken"}
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, who authz.Identity) error {
	id, err := authz.Require(who)
	if err != nil {
		return err
	}
	if err := s.store.Users.Delete(ctx, id); err != nil {
		// 身份指向的用户已不存在
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	logger.Info("user deleted", zap.Uint("user_id", id))
	return nil
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
