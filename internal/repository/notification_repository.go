package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"ttrac_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	DB       *gorm.DB
	Redis    *redis.Client
	cacheTTL time.Duration
}

func NewNotificationRepository(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) *NotificationRepository {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &NotificationRepository{DB: db, Redis: rdb, cacheTTL: cacheTTL}
}

func unreadKey(userID uint) string {
	return fmt.Sprintf("notif:unread:%d", userID)
}

func unreadGenKey(userID uint) string {
	return fmt.Sprintf("notif:unread-gen:%d", userID)
}

var errStaleUnread = errors.New("unread count invalidated while computing")

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if err := r.DB.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}
	r.InvalidateUnread(ctx, n.UserID)
	return nil
}

// CreateIfAbsent 依赖 (user_id, source_key) 唯一索引实现原子的"不存在则插入"，返回是否新建
func (r *NotificationRepository) CreateIfAbsent(ctx context.Context, n *model.Notification) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		r.InvalidateUnread(ctx, n.UserID)
	}
	return res.RowsAffected > 0, nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).First(&n, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) FindForUser(ctx context.Context, userID uint, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser 按创建时间倒序，即通知中心的展示顺序
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint) ([]model.Notification, error) {
	var list []model.Notification
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *NotificationRepository) ListUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// MarkRead 只更新未读记录，已读状态不会被回退
func (r *NotificationRepository) MarkRead(ctx context.Context, userID uint, id string) (bool, error) {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	r.InvalidateUnread(ctx, userID)
	return res.RowsAffected > 0, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})
	r.InvalidateUnread(ctx, userID)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, userID uint, id string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Notification{})
	r.InvalidateUnread(ctx, userID)
	return res.RowsAffected > 0, res.Error
}

func (r *NotificationRepository) DeleteAllForUser(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Notification{})
	r.InvalidateUnread(ctx, userID)
	return res.RowsAffected, res.Error
}

// DeleteByIDs 批量删除（一条 SQL），维护任务使用
func (r *NotificationRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var userIDs []uint
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id IN ?", ids).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return 0, errors.Wrap(err, "load owners")
	}

	res := r.DB.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Notification{})
	for _, uid := range userIDs {
		r.InvalidateUnread(ctx, uid)
	}
	return res.RowsAffected, res.Error
}

// PurgeReadBefore 物理删除早于 cutoff 的已读通知
func (r *NotificationRepository) PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Unscoped().
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}

// CachedUnread 读取未读数缓存，未命中或 Redis 不可用时 ok=false
func (r *NotificationRepository) CachedUnread(ctx context.Context, userID uint) (int, bool) {
	if r.Redis == nil {
		return 0, false
	}
	val, err := r.Redis.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// UnreadGeneration 每次失效都会递增。先取代数再计算未读数，写缓存时用它判断计数是否过期
func (r *NotificationRepository) UnreadGeneration(ctx context.Context, userID uint) int64 {
	if r.Redis == nil {
		return 0
	}
	gen, err := r.Redis.Get(ctx, unreadGenKey(userID)).Int64()
	if err != nil {
		return 0
	}
	return gen
}

// CacheUnread 仅当 gen 之后没有发生失效时写入缓存，返回是否写入
func (r *NotificationRepository) CacheUnread(ctx context.Context, userID uint, count int, gen int64) bool {
	if r.Redis == nil {
		return false
	}
	genKey := unreadGenKey(userID)
	err := r.Redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStaleUnread
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, unreadKey(userID), count, r.cacheTTL)
			return nil
		})
		return err
	}, genKey)
	return err == nil
}

func (r *NotificationRepository) InvalidateUnread(ctx context.Context, userID uint) {
	if r.Redis == nil {
		return
	}
	genKey := unreadGenKey(userID)
	pipe := r.Redis.TxPipeline()
	pipe.Del(ctx, unreadKey(userID))
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, 24*time.Hour)
	pipe.Exec(ctx)
}

func (r *NotificationRepository) CountReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Unscoped().Model(&model.Notification{}).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Count(&count).Error
	return count, err
}
