package service

import (
	"context"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/util"
	"ttrac_backend/pkg/logger"
	"ttrac_backend/pkg/tracing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventPublisher 通知变更的下游，一般是 NotificationHub；维护脚本中为 nil
type EventPublisher interface {
	Publish(ev NotificationEvent)
}

type NotificationService struct {
	Repo       *repository.NotificationRepository
	Classifier *Classifier
	Publisher  EventPublisher
}

func NewNotificationService(repo *repository.NotificationRepository, classifier *Classifier, publisher EventPublisher) *NotificationService {
	return &NotificationService{Repo: repo, Classifier: classifier, Publisher: publisher}
}

type ListOptions struct {
	IncludeSynthetic bool
}

type CreateNotificationRequest struct {
	UserID    uint                     `json:"userId" validate:"required"`
	Title     string                   `json:"title" validate:"required,max=255"`
	Message   string                   `json:"message"`
	Type      model.NotificationType   `json:"type" validate:"required,oneof=assignment grade announcement quiz enrollment"`
	Origin    model.NotificationOrigin `json:"origin" validate:"omitempty,oneof=system manual seed test"`
	SourceKey *string                  `json:"sourceKey,omitempty" validate:"omitempty,max=128"`
	CourseID  *uint                    `json:"courseId,omitempty"`
}

func (s *NotificationService) publish(op NotificationOp, userID uint, n *model.Notification) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(NotificationEvent{Op: op, UserID: userID, Notification: n})
}

// List 返回去掉测试数据并去重后的通知，按创建时间倒序
func (s *NotificationService) List(ctx context.Context, userID uint, opts ListOptions) ([]model.Notification, error) {
	ctx, span := tracing.StartSpan(ctx, "NotificationService.List", userID)
	defer span.End()

	list, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !opts.IncludeSynthetic {
		list = s.Classifier.Filter(list)
	}
	return Deduplicate(list), nil
}

// UnreadCount 基于过滤后的列表计数，结果缓存在 Redis
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int, error) {
	if n, ok := s.Repo.CachedUnread(ctx, userID); ok {
		return n, nil
	}
	gen := s.Repo.UnreadGeneration(ctx, userID)
	list, err := s.List(ctx, userID, ListOptions{})
	if err != nil {
		return 0, err
	}
	count := UnreadCount(list)
	s.Repo.CacheUnread(ctx, userID, count, gen)
	return count, nil
}

func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*model.Notification, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	n := &model.Notification{
		UserID:    req.UserID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		Origin:    req.Origin,
		SourceKey: req.SourceKey,
		CourseID:  req.CourseID,
	}
	if n.Origin == "" {
		n.Origin = model.OriginSystem
	}
	if _, err := s.Notify(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Notify 写入一条通知并广播。带 SourceKey 的通知按 (user_id, source_key) 幂等写入，返回是否新建
func (s *NotificationService) Notify(ctx context.Context, n *model.Notification) (bool, error) {
	if n.Origin == "" {
		n.Origin = model.OriginSystem
	}
	if n.SourceKey == nil {
		if err := s.Repo.Create(ctx, n); err != nil {
			return false, errors.Wrap(err, "create notification")
		}
		s.publish(OpInsert, n.UserID, n)
		return true, nil
	}
	created, err := s.Repo.CreateIfAbsent(ctx, n)
	if err != nil {
		return false, errors.Wrapf(err, "create notification %s", *n.SourceKey)
	}
	if created {
		s.publish(OpInsert, n.UserID, n)
	}
	return created, nil
}

// NotifyQuietly 用于业务流程中的附带通知，失败只记录日志
func (s *NotificationService) NotifyQuietly(ctx context.Context, n *model.Notification) {
	if _, err := s.Notify(ctx, n); err != nil {
		logger.Log.Warn("Notify failed", zap.Error(err), zap.Uint("userId", n.UserID), zap.String("title", n.Title))
	}
}

func (s *NotificationService) MarkRead(ctx context.Context, userID uint, id string) (*model.Notification, error) {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return nil, err
	}
	changed, err := s.Repo.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	n, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(OpUpdate, userID, n)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	count, err := s.Repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publish(OpReadAll, userID, nil)
	}
	return count, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID uint, id string) error {
	n, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	deleted, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if deleted {
		s.publish(OpDelete, userID, n)
	}
	return nil
}

func (s *NotificationService) Clear(ctx context.Context, userID uint) (int64, error) {
	count, err := s.Repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publish(OpClear, userID, nil)
	}
	return count, nil
}

func (s *NotificationService) findOwned(ctx context.Context, userID uint, id string) (*model.Notification, error) {
	n, err := s.Repo.FindForUser(ctx, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotificationNotFound
	}
	return n, err
}
