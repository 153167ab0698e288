package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
	"ttrac_backend/internal/repository"
	"ttrac_backend/pkg/logger"
	"ttrac_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32

	NotificationChannel = "notification_channel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ChangePayload NOTIFICATION_CHANGED 消息体
type ChangePayload struct {
	Op           NotificationOp `json:"op"`
	Notification interface{}    `json:"notification,omitempty"`
	UnreadCount  int            `json:"unreadCount"`
}

type NotificationClient struct {
	Hub     *NotificationHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter
}

func (c *NotificationClient) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.ctx.Done():
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		// 客户端只能请求重新拉取，已读/删除走 REST 接口
		if msg.Type == "REFRESH" {
			c.Hub.refresh(c.UserID)
		}
	}
}

func (c *NotificationClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// userSession 同一用户在本实例上的所有连接共享一个 store
type userSession struct {
	store   *NotificationStore
	clients map[*NotificationClient]struct{}
}

type hubShard struct {
	sessions map[uint]*userSession
	mu       sync.RWMutex
}

type NotificationHub struct {
	shards     [shardCount]*hubShard
	register   chan *NotificationClient
	unregister chan *NotificationClient
	Redis      *redis.Client
	Repo       *repository.NotificationRepository
	Classifier *Classifier
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewNotificationHub(rdb *redis.Client, repo *repository.NotificationRepository, classifier *Classifier) *NotificationHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &NotificationHub{
		register:   make(chan *NotificationClient),
		unregister: make(chan *NotificationClient),
		Redis:      rdb,
		Repo:       repo,
		Classifier: classifier,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &hubShard{sessions: make(map[uint]*userSession)}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *hubShard {
	return h.shards[userID%shardCount]
}

func (h *NotificationHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, NotificationChannel)
		go func() {
			defer pubsub.Close()
			ch := pubsub.Channel()
			for {
				select {
				case <-h.ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					var ev NotificationEvent
					if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
						logger.Log.Error("PubSub unmarshal error", zap.Error(err))
						continue
					}
					h.deliver(ev)
				}
			}
		}()
	}

	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			sess, ok := s.sessions[client.UserID]
			if !ok {
				sess = &userSession{
					store:   NewNotificationStore(client.UserID, h.Classifier),
					clients: make(map[*NotificationClient]struct{}),
				}
				s.sessions[client.UserID] = sess
			}
			sess.clients[client] = struct{}{}
			s.mu.Unlock()
			monitoring.WSConnections.Inc()
			go h.sendSnapshot(client, sess.store)

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if sess, ok := s.sessions[client.UserID]; ok {
				if _, ok := sess.clients[client]; ok {
					delete(sess.clients, client)
					close(client.Send)
					monitoring.WSConnections.Dec()
				}
				if len(sess.clients) == 0 {
					delete(s.sessions, client.UserID)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Stop 关闭所有连接并停止订阅
func (h *NotificationHub) Stop() {
	logger.Log.Info("NotificationHub stopping: closing connections...")
	h.cancel()

	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, sess := range s.sessions {
			for client := range sess.clients {
				close(client.Send)
				closed++
			}
			delete(s.sessions, userID)
		}
		s.mu.Unlock()
	}

	monitoring.WSConnections.Set(0)
	logger.Log.Info("NotificationHub stopped", zap.Int("closedConnections", closed))
}

// Publish 广播一次变更。Redis 不可用时仅投递到本实例
func (h *NotificationHub) Publish(ev NotificationEvent) {
	monitoring.NotificationEvents.WithLabelValues(string(ev.Op)).Inc()
	if h.Redis == nil {
		h.deliver(ev)
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Error("Marshal notification event failed", zap.Error(err))
		return
	}
	if err := h.Redis.Publish(h.ctx, NotificationChannel, payload).Err(); err != nil {
		logger.Log.Warn("Redis publish failed, delivering locally", zap.Error(err), zap.Uint("userId", ev.UserID))
		h.deliver(ev)
	}
}

func (h *NotificationHub) deliver(ev NotificationEvent) {
	s := h.getShard(ev.UserID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[ev.UserID]
	if !ok || !sess.store.Apply(ev) {
		return
	}
	var changed interface{}
	if ev.Notification != nil {
		changed = ev.Notification
	}
	payload, err := json.Marshal(WSMessage{
		Type: "NOTIFICATION_CHANGED",
		Data: ChangePayload{Op: ev.Op, Notification: changed, UnreadCount: sess.store.UnreadCount()},
	})
	if err != nil {
		return
	}
	for client := range sess.clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// Store 返回用户在本实例上的共享视图，用户没有在线连接时 ok=false
func (h *NotificationHub) Store(userID uint) (*NotificationStore, bool) {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	return sess.store, true
}

func (h *NotificationHub) load(store *NotificationStore, userID uint) error {
	list, err := h.Repo.ListByUser(h.ctx, userID)
	if err != nil {
		return err
	}
	store.Replace(list)
	return nil
}

func (h *NotificationHub) sendSnapshot(client *NotificationClient, store *NotificationStore) {
	if !store.Loaded() {
		if err := h.load(store, client.UserID); err != nil {
			logger.Log.Error("Load notifications failed", zap.Error(err), zap.Uint("userId", client.UserID))
			return
		}
	}
	h.sendTo(client, snapshotMessage(store))
}

func (h *NotificationHub) refresh(userID uint) {
	store, ok := h.Store(userID)
	if !ok {
		return
	}
	if err := h.load(store, userID); err != nil {
		logger.Log.Error("Refresh notifications failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	payload := snapshotMessage(store)

	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		for client := range sess.clients {
			select {
			case client.Send <- payload:
			default:
			}
		}
	}
}

// sendTo 只向仍在注册表中的连接发送，避免写入已关闭的 channel
func (h *NotificationHub) sendTo(client *NotificationClient, payload []byte) {
	s := h.getShard(client.UserID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[client.UserID]
	if !ok {
		return
	}
	if _, ok := sess.clients[client]; !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}

func snapshotMessage(store *NotificationStore) []byte {
	payload, _ := json.Marshal(WSMessage{
		Type: "SNAPSHOT",
		Data: map[string]interface{}{
			"notifications": store.Snapshot(),
			"unreadCount":   store.UnreadCount(),
		},
	})
	return payload
}

func ServeNotificationWs(hub *NotificationHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &NotificationClient{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 64),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	select {
	case client.Hub.register <- client:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
