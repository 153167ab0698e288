package service

import (
	"sort"
	"sync"
	"ttrac_backend/internal/model"
)

type NotificationOp string

const (
	OpInsert  NotificationOp = "INSERT"
	OpUpdate  NotificationOp = "UPDATE"
	OpDelete  NotificationOp = "DELETE"
	OpReadAll NotificationOp = "READ_ALL"
	OpClear   NotificationOp = "CLEAR"
)

// NotificationEvent 一次通知变更，经 Redis 频道在实例间广播
type NotificationEvent struct {
	Op           NotificationOp      `json:"op"`
	UserID       uint                `json:"userId"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// NotificationStore 单个用户的通知视图，同一用户的所有连接共享。
// items 保存过滤掉测试数据后的全部记录（按创建时间倒序），对外的视图是其去重结果，
// 与 NotificationService.List 一致：每个 (title, message) 展示最新的一条
type NotificationStore struct {
	mu         sync.RWMutex
	userID     uint
	classifier *Classifier
	items      []model.Notification
	loaded     bool
}

func NewNotificationStore(userID uint, classifier *Classifier) *NotificationStore {
	return &NotificationStore{userID: userID, classifier: classifier}
}

func (s *NotificationStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Replace 用重新拉取的列表覆盖本地视图。本地已读的记录保持已读
func (s *NotificationStore) Replace(list []model.Notification) {
	view := s.classifier.Filter(list)
	sortNewestFirst(view)

	s.mu.Lock()
	defer s.mu.Unlock()
	read := make(map[string]bool, len(s.items))
	for _, n := range s.items {
		if n.Read {
			read[n.ID] = true
		}
	}
	for i := range view {
		if read[view[i].ID] && !view[i].Read {
			view[i].Read = true
		}
	}
	s.items = view
	s.loaded = true
}

// Apply 应用一次变更，返回视图是否发生变化。未加载的视图忽略事件，加载时会读到最新数据
func (s *NotificationStore) Apply(ev NotificationEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false
	}

	switch ev.Op {
	case OpInsert:
		if ev.Notification == nil || s.classifier.IsSynthetic(ev.Notification) {
			return false
		}
		if s.indexOf(ev.Notification.ID) >= 0 {
			return s.update(*ev.Notification)
		}
		s.items = append(s.items, *ev.Notification)
		sortNewestFirst(s.items)
		// 比已有副本旧的记录不会出现在视图里
		return s.visible(ev.Notification.ID)
	case OpUpdate:
		if ev.Notification == nil {
			return false
		}
		return s.update(*ev.Notification)
	case OpDelete:
		if ev.Notification == nil {
			return false
		}
		i := s.indexOf(ev.Notification.ID)
		if i < 0 {
			return false
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		return true
	case OpReadAll:
		changed := false
		for i := range s.items {
			if !s.items[i].Read {
				s.items[i].Read = true
				changed = true
			}
		}
		return changed
	case OpClear:
		changed := len(s.items) > 0
		s.items = nil
		return changed
	}
	return false
}

func (s *NotificationStore) update(n model.Notification) bool {
	i := s.indexOf(n.ID)
	if i < 0 {
		return false
	}
	cur := s.items[i]
	if n.UpdatedAt.Before(cur.UpdatedAt) {
		return false
	}
	if cur.Read && !n.Read {
		n.Read = true
		n.ReadAt = cur.ReadAt
	}
	s.items[i] = n
	return true
}

func (s *NotificationStore) visible(id string) bool {
	for _, n := range Deduplicate(s.items) {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (s *NotificationStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return UnreadCount(Deduplicate(s.items))
}

func (s *NotificationStore) Snapshot() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Deduplicate(s.items)
}

func sortNewestFirst(list []model.Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
