package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/pkg/logger"
)

type messageInput struct {
	Text string `validate:"required,max=140"`
}

// MessageService 消息发布、删除、点赞与时间线
type MessageService interface {
	Create(ctx context.Context, who authz.Identity, text string) (*model.Message, error)
	Get(ctx context.Context, id uint) (*model.Message, error)
	// Delete removes the message; only its author may do so.
	Delete(ctx context.Context, who authz.Identity, id uint) error
	// ListByUser 用户发布的消息，最新在前
	ListByUser(ctx context.Context, userID uint, limit int) ([]*model.Message, error)
	LikedMessages(ctx context.Context, userID uint, limit int) ([]*model.Message, error)
	Timeline(ctx context.Context, who authz.Identity) ([]*model.Message, error)
	Like(ctx context.Context, who authz.Identity, messageID uint) error
	Unlike(ctx context.Context, who authz.Identity, messageID uint) error
	// ToggleLike likes the message, or removes an existing like; liked reports the final state.
	ToggleLike(ctx context.Context, who authz.Identity, messageID uint) (liked bool, err error)
}

type messageService struct {
	store *repository.Store
	cfg   config.WarblerConfig
}

func NewMessageService(store *repository.Store, cfg config.WarblerConfig) MessageService {
	return &messageService{store: store, cfg: cfg}
}

func (s *messageService) Create(ctx context.Context, who authz.Identity, text string) (*model.Message, error) {
	if _, err := authz.Require(who); err != nil {
		return nil, err
	}
	if err := check(messageInput{Text: text}); err != nil {
		return nil, err
	}

	var msg *model.Message
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		me, err := actor(ctx, tx, who)
		if err != nil {
			return err
		}
		msg = &model.Message{Text: text, UserID: me.ID, Timestamp: time.Now().UTC()}
		if err := tx.Messages.Create(ctx, msg); err != nil {
			return err
		}
		msg.User = me
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("message posted", zap.Uint("message_id", msg.ID), zap.Uint("user_id", msg.UserID))
	return msg, nil
}

func (s *messageService) Get(ctx context.Context, id uint) (*model.Message, error) {
	msg, err := s.store.Messages.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return msg, nil
}

func (s *messageService) Delete(ctx context.Context, who authz.Identity, id uint) error {
	if _, err := authz.Require(who); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := actor(ctx, tx, who); err != nil {
			return err
		}
		msg, err := tx.Messages.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if err := authz.RequireOwner(who, msg.UserID); err != nil {
			return err
		}
		return notFound(tx.Messages.Delete(ctx, id))
	})
}

func (s *messageService) ListByUser(ctx context.Context, userID uint, limit int) ([]*model.Message, error) {
	if err := mustExist(ctx, s.store, userID); err != nil {
		return nil, err
	}
	return s.store.Messages.ListByUser(ctx, userID, s.limit(limit, s.cfg.ProfileMessageLimit))
}

func (s *messageService) LikedMessages(ctx context.Context, userID uint, limit int) ([]*model.Message, error) {
	if err := mustExist(ctx, s.store, userID); err != nil {
		return nil, err
	}
	return s.store.Messages.ListLikedBy(ctx, userID, s.limit(limit, s.cfg.ProfileMessageLimit))
}

func (s *messageService) Timeline(ctx context.Context, who authz.Identity) ([]*model.Message, error) {
	if _, err := authz.Require(who); err != nil {
		return nil, err
	}
	me, err := actor(ctx, s.store, who)
	if err != nil {
		return nil, err
	}
	return s.store.Messages.Timeline(ctx, me.ID, s.limit(0, s.cfg.TimelineLimit))
}

func (s *messageService) Like(ctx context.Context, who authz.Identity, messageID uint) error {
	return s.withLikeTarget(ctx, who, messageID, func(tx *repository.Store, userID uint, _ bool) error {
		return tx.Likes.Create(ctx, userID, messageID)
	})
}

func (s *messageService) Unlike(ctx context.Context, who authz.Identity, messageID uint) error {
	return s.withLikeTarget(ctx, who, messageID, func(tx *repository.Store, userID uint, _ bool) error {
		return tx.Likes.Delete(ctx, userID, messageID)
	})
}

func (s *messageService) ToggleLike(ctx context.Context, who authz.Identity, messageID uint) (bool, error) {
	var liked bool
	err := s.withLikeTarget(ctx, who, messageID, func(tx *repository.Store, userID uint, exists bool) error {
		if exists {
			return tx.Likes.Delete(ctx, userID, messageID)
		}
		liked = true
		return tx.Likes.Create(ctx, userID, messageID)
	})
	return liked, err
}

// withLikeTarget 校验身份与消息后执行点赞变更；不能给自己的消息点赞
func (s *messageService) withLikeTarget(ctx context.Context, who authz.Identity, messageID uint,
	fn func(tx *repository.Store, userID uint, exists bool) error) error {
	if _, err := authz.Require(who); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		me, err := actor(ctx, tx, who)
		if err != nil {
			return err
		}
		msg, err := tx.Messages.GetByID(ctx, messageID)
		if err != nil {
			return notFound(err)
		}
		if msg.UserID == me.ID {
			return ErrUnauthorized
		}
		exists, err := tx.Likes.Exists(ctx, me.ID, messageID)
		if err != nil {
			return err
		}
		return fn(tx, me.ID, exists)
	})
}

func (s *messageService) limit(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	if fallback > 0 {
		return fallback
	}
	return 100
}
