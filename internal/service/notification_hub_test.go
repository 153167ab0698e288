package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"ttrac_backend/internal/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type snapshotData struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unreadCount"`
}

type changeData struct {
	Op           NotificationOp      `json:"op"`
	Notification *model.Notification `json:"notification"`
	UnreadCount  int                 `json:"unreadCount"`
}

// startHub 启动不带 Redis 的 hub，并把 websocket 挂到测试服务器上
func startHub(t *testing.T, f *fixture, userID uint) (*NotificationHub, func() *websocket.Conn) {
	t.Helper()
	hub := NewNotificationHub(nil, f.notifRepo, f.classifier)
	go hub.Run()
	t.Cleanup(hub.Stop)
	f.notify.Publisher = hub

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeNotificationWs(hub, w, r, userID)
	}))
	t.Cleanup(srv.Close)

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	return hub, dial
}

func readMessage(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env wsEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestNotificationHub_SnapshotThenChanges(t *testing.T) {
	f := newFixture(t)
	user := f.user("Alan", model.Student)
	_, err := f.notify.Create(f.ctx, CreateNotificationRequest{UserID: user.ID, Title: "Welcome back", Type: model.NotificationAnnouncement})
	require.NoError(t, err)
	_, err = f.notify.Create(f.ctx, CreateNotificationRequest{UserID: user.ID, Title: "Test Notification", Type: model.NotificationAnnouncement, Origin: model.OriginTest})
	require.NoError(t, err)

	hub, dial := startHub(t, f, user.ID)
	conn := dial()

	env := readMessage(t, conn)
	require.Equal(t, "SNAPSHOT", env.Type)
	var snap snapshotData
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, []string{"Welcome back"}, titles(snap.Notifications))
	assert.Equal(t, 1, snap.UnreadCount)

	created, err := f.notify.Create(f.ctx, CreateNotificationRequest{UserID: user.ID, Title: "Quiz Graded", Message: "9/10", Type: model.NotificationGrade})
	require.NoError(t, err)

	env = readMessage(t, conn)
	require.Equal(t, "NOTIFICATION_CHANGED", env.Type)
	var change changeData
	require.NoError(t, json.Unmarshal(env.Data, &change))
	assert.Equal(t, OpInsert, change.Op)
	require.NotNil(t, change.Notification)
	assert.Equal(t, created.ID, change.Notification.ID)
	assert.Equal(t, 2, change.UnreadCount)

	_, err = f.notify.MarkAllRead(f.ctx, user.ID)
	require.NoError(t, err)
	env = readMessage(t, conn)
	require.NoError(t, json.Unmarshal(env.Data, &change))
	assert.Equal(t, OpReadAll, change.Op)
	assert.Zero(t, change.UnreadCount)

	store, ok := hub.Store(user.ID)
	require.True(t, ok)
	assert.Zero(t, store.UnreadCount())
	assert.Len(t, store.Snapshot(), 2)
}

func TestNotificationHub_ConnectionsShareOneStore(t *testing.T) {
	f := newFixture(t)
	user := f.user("Alan", model.Student)
	hub, dial := startHub(t, f, user.ID)

	first := dial()
	assert.Equal(t, "SNAPSHOT", readMessage(t, first).Type)
	storeA, ok := hub.Store(user.ID)
	require.True(t, ok)

	second := dial()
	assert.Equal(t, "SNAPSHOT", readMessage(t, second).Type)
	storeB, ok := hub.Store(user.ID)
	require.True(t, ok)
	assert.Same(t, storeA, storeB)

	_, err := f.notify.Create(f.ctx, CreateNotificationRequest{UserID: user.ID, Title: "Office hours moved", Type: model.NotificationAnnouncement})
	require.NoError(t, err)
	for _, conn := range []*websocket.Conn{first, second} {
		env := readMessage(t, conn)
		assert.Equal(t, "NOTIFICATION_CHANGED", env.Type)
	}
	assert.Equal(t, 1, storeA.UnreadCount())

	// 客户端主动刷新
	require.NoError(t, first.WriteJSON(WSMessage{Type: "REFRESH"}))
	for _, conn := range []*websocket.Conn{first, second} {
		assert.Equal(t, "SNAPSHOT", readMessage(t, conn).Type)
	}
}

func TestNotificationHub_EventsForOtherUsersAreNotDelivered(t *testing.T) {
	f := newFixture(t)
	user := f.user("Alan", model.Student)
	other := f.user("Kurt", model.Student)
	hub, dial := startHub(t, f, user.ID)
	conn := dial()
	readMessage(t, conn)

	_, err := f.notify.Create(f.ctx, CreateNotificationRequest{UserID: other.ID, Title: "Not for Alan", Type: model.NotificationAnnouncement})
	require.NoError(t, err)
	_, ok := hub.Store(other.ID)
	assert.False(t, ok)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "no message expected")
}
