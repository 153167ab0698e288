package service

import (
	"context"
	"testing"
	"time"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stamped(id, title string, read bool, created time.Time) model.Notification {
	x := notif(id, title, "", read)
	x.Origin = model.OriginSystem
	x.CreatedAt = created
	x.UpdatedAt = created
	return x
}

func loadedStore(t *testing.T, list ...model.Notification) *NotificationStore {
	t.Helper()
	s := NewNotificationStore(1, NewClassifier(config.DefaultDummyKeywords))
	s.Replace(list)
	require.True(t, s.Loaded())
	return s
}

func TestNotificationStore_ReplaceFiltersDedupesAndSorts(t *testing.T) {
	base := time.Now()
	seed := stamped("s", "Welcome", false, base.Add(3*time.Minute))
	seed.Origin = model.OriginSeed

	s := loadedStore(t,
		stamped("a", "Old", false, base),
		stamped("b", "New", false, base.Add(2*time.Minute)),
		stamped("c", "New", true, base.Add(time.Minute)),
		seed,
	)
	assert.Equal(t, []string{"New", "Old"}, titles(s.Snapshot()))
	assert.Equal(t, 2, s.UnreadCount())
}

func TestNotificationStore_IgnoresEventsUntilLoaded(t *testing.T) {
	s := NewNotificationStore(1, NewClassifier(nil))
	x := stamped("a", "Graded", false, time.Now())
	assert.False(t, s.Apply(NotificationEvent{Op: OpInsert, Notification: &x}))
	assert.Empty(t, s.Snapshot())
}

func TestNotificationStore_Insert(t *testing.T) {
	base := time.Now()
	s := loadedStore(t, stamped("a", "First", false, base))

	second := stamped("b", "Second", false, base.Add(time.Minute))
	assert.True(t, s.Apply(NotificationEvent{Op: OpInsert, Notification: &second}))
	assert.Equal(t, []string{"Second", "First"}, titles(s.Snapshot()))

	// 同内容的新记录替换旧副本，视图里仍只有一条
	dup := stamped("c", "Second", false, base.Add(2*time.Minute))
	assert.True(t, s.Apply(NotificationEvent{Op: OpInsert, Notification: &dup}))
	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "c", snap[0].ID)

	// 比现有副本旧的记录不可见
	older := stamped("e", "Second", false, base.Add(30*time.Second))
	assert.False(t, s.Apply(NotificationEvent{Op: OpInsert, Notification: &older}))

	dummy := stamped("d", "Test Notification", false, base)
	dummy.Origin = ""
	assert.False(t, s.Apply(NotificationEvent{Op: OpInsert, Notification: &dummy}))

	assert.Equal(t, 2, s.UnreadCount())
}

func TestNotificationStore_UpdateIsMonotonic(t *testing.T) {
	base := time.Now()
	s := loadedStore(t, stamped("a", "Graded", false, base))

	read := stamped("a", "Graded", true, base)
	read.UpdatedAt = base.Add(time.Minute)
	assert.True(t, s.Apply(NotificationEvent{Op: OpUpdate, Notification: &read}))
	assert.Equal(t, 0, s.UnreadCount())

	// 过期的事件被丢弃
	stale := stamped("a", "Graded", false, base)
	assert.False(t, s.Apply(NotificationEvent{Op: OpUpdate, Notification: &stale}))

	// 即使时间戳更新，已读也不会回退
	newer := stamped("a", "Graded (edited)", false, base)
	newer.UpdatedAt = base.Add(2 * time.Minute)
	assert.True(t, s.Apply(NotificationEvent{Op: OpUpdate, Notification: &newer}))
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Read)
	assert.Equal(t, "Graded (edited)", snap[0].Title)
}

func TestNotificationStore_ReplaceKeepsLocalReads(t *testing.T) {
	base := time.Now()
	s := loadedStore(t, stamped("a", "Graded", true, base))
	s.Replace([]model.Notification{stamped("a", "Graded", false, base)})
	assert.Equal(t, 0, s.UnreadCount())
}

func TestNotificationStore_UnreadNeverIncreasesOnRead(t *testing.T) {
	base := time.Now()
	var list []model.Notification
	for i := 0; i < 5; i++ {
		list = append(list, stamped(string(rune('a'+i)), string(rune('A'+i)), false, base.Add(time.Duration(i)*time.Second)))
	}
	s := loadedStore(t, list...)

	prev := s.UnreadCount()
	assert.Equal(t, 5, prev)
	for i, x := range list {
		x.Read = true
		x.UpdatedAt = base.Add(time.Hour)
		s.Apply(NotificationEvent{Op: OpUpdate, Notification: &x})
		// 重复的已读事件不影响计数
		s.Apply(NotificationEvent{Op: OpUpdate, Notification: &x})
		cur := s.UnreadCount()
		assert.LessOrEqual(t, cur, prev)
		assert.Equal(t, len(list)-i-1, cur)
		prev = cur
	}
}

func TestNotificationStore_DeleteReadAllClear(t *testing.T) {
	base := time.Now()
	a := stamped("a", "A", false, base)
	s := loadedStore(t, a, stamped("b", "B", false, base.Add(time.Second)), stamped("c", "C", false, base.Add(2*time.Second)))

	assert.True(t, s.Apply(NotificationEvent{Op: OpDelete, Notification: &a}))
	assert.False(t, s.Apply(NotificationEvent{Op: OpDelete, Notification: &a}))
	assert.Equal(t, []string{"C", "B"}, titles(s.Snapshot()))

	assert.True(t, s.Apply(NotificationEvent{Op: OpReadAll}))
	assert.Equal(t, 0, s.UnreadCount())
	assert.False(t, s.Apply(NotificationEvent{Op: OpReadAll}))

	assert.True(t, s.Apply(NotificationEvent{Op: OpClear}))
	assert.Empty(t, s.Snapshot())
	assert.False(t, s.Apply(NotificationEvent{Op: OpClear}))
}

func TestNotificationStore_MatchesListAfterDuplicateInsert(t *testing.T) {
	f := newFixture(t)
	user := f.user("Alan", model.Student)
	base := time.Now().Add(-time.Hour)

	first := &model.Notification{UserID: user.ID, Title: "Quiz graded", Message: "9/10", Type: model.NotificationGrade, Origin: model.OriginSystem}
	first.CreatedAt = base
	_, err := f.notify.Notify(f.ctx, first)
	require.NoError(t, err)
	_, err = f.notify.MarkRead(f.ctx, user.ID, first.ID)
	require.NoError(t, err)

	store := NewNotificationStore(user.ID, f.classifier)
	store.Replace(f.notifications(user.ID))
	require.Zero(t, store.UnreadCount())

	again := &model.Notification{UserID: user.ID, Title: "Quiz graded", Message: "9/10", Type: model.NotificationGrade, Origin: model.OriginSystem}
	again.CreatedAt = base.Add(time.Minute)
	_, err = f.notify.Notify(f.ctx, again)
	require.NoError(t, err)
	store.Apply(NotificationEvent{Op: OpInsert, UserID: user.ID, Notification: again})

	assertSameView := func() {
		t.Helper()
		list, err := f.notify.List(context.Background(), user.ID, ListOptions{})
		require.NoError(t, err)
		unread, err := f.notify.UnreadCount(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, ids(list), ids(store.Snapshot()))
		assert.Equal(t, unread, store.UnreadCount())
	}
	assertSameView()
	assert.Equal(t, 1, store.UnreadCount())

	// 删除可见副本后，旧副本重新出现
	require.NoError(t, f.notify.Delete(f.ctx, user.ID, again.ID))
	store.Apply(NotificationEvent{Op: OpDelete, UserID: user.ID, Notification: again})
	assertSameView()
	assert.Equal(t, first.ID, store.Snapshot()[0].ID)
}

func ids(list []model.Notification) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}
