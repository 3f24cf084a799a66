package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/pkg/credential"
	"github.com/d60-Lab/warbler/pkg/database"
	"github.com/d60-Lab/warbler/pkg/logger"
)

// SignupInput 注册参数
type SignupInput struct {
	Username string `validate:"required,max=255"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"max=72"`
	ImageURL string `validate:"omitempty,max=2048"`
}

// AuthService 注册与登录校验
type AuthService interface {
	// Signup creates the user in one transaction. Uniqueness and required-field
	// violations fail with an *IntegrityError before anything is committed.
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	// Authenticate returns ok=false both for an unknown username and a wrong
	// password; err is only set for storage failures.
	Authenticate(ctx context.Context, username, password string) (user *model.User, ok bool, err error)
}

type authService struct {
	store  *repository.Store
	hasher *credential.Hasher
	cfg    config.WarblerConfig
}

func NewAuthService(store *repository.Store, hasher *credential.Hasher, cfg config.WarblerConfig) AuthService {
	return &authService{store: store, hasher: hasher, cfg: cfg}
}

func (s *authService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	if in.Password == "" {
		return nil, ErrInvalidCredential
	}
	if err := check(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, credential.ErrTooLong) {
		// 多字节字符可能通过 max=72 的字符数校验但超过 72 字节
		return nil, &ValidationError{Field: "password", Msg: fmt.Sprintf("must be at most %d bytes", credential.MaxLength)}
	}
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       hash,
		ImageURL:       orDefault(in.ImageURL, s.cfg.DefaultImageURL, model.DefaultImageURL),
		HeaderImageURL: orDefault("", s.cfg.DefaultHeaderImageURL, model.DefaultHeaderImageURL),
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := ensureAvailable(ctx, tx.Users, user, 0); err != nil {
			return err
		}
		return tx.Users.Create(ctx, user)
	})
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, &IntegrityError{Reason: "already taken"}
		}
		return nil, err
	}

	logger.Info("user signed up", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (*model.User, bool, error) {
	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, false, nil
	}
	return user, true, nil
}

// ensureAvailable 在事务内预检查用户名与邮箱，便于返回具体冲突字段
func ensureAvailable(ctx context.Context, users repository.UserRepository, u *model.User, selfID uint) error {
	if ok, err := users.Taken(ctx, repository.ColumnUsername, u.Username, selfID); err != nil {
		return err
	} else if ok {
		return taken("username")
	}
	if ok, err := users.Taken(ctx, repository.ColumnEmail, u.Email, selfID); err != nil {
		return err
	} else if ok {
		return taken("email")
	}
	return nil
}

func orDefault(v string, defaults ...string) string {
	if v != "" {
		return v
	}
	for _, d := range defaults {
		if d != "" {
			return d
		}
	}
	return ""
}
