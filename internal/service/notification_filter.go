package service

import (
	"strings"
	"sync"
	"ttrac_backend/internal/model"
)

// Classifier 判断通知是否为测试/演示数据。关键字可在配置热更新时替换
type Classifier struct {
	mu       sync.RWMutex
	keywords []string
}

func NewClassifier(keywords []string) *Classifier {
	c := &Classifier{}
	c.SetKeywords(keywords)
	return c
}

func (c *Classifier) SetKeywords(keywords []string) {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	c.mu.Lock()
	c.keywords = normalized
	c.mu.Unlock()
}

func (c *Classifier) Keywords() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

// IsDummy 标题或正文包含任一关键字（不区分大小写）即视为测试数据
func (c *Classifier) IsDummy(title, message string) bool {
	t := strings.ToLower(title)
	m := strings.ToLower(message)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.keywords {
		if strings.Contains(t, k) || strings.Contains(m, k) {
			return true
		}
	}
	return false
}

// IsSynthetic 优先看写入时记录的来源，历史数据没有来源时退回关键字匹配
func (c *Classifier) IsSynthetic(n *model.Notification) bool {
	switch n.Origin {
	case model.OriginSeed, model.OriginTest:
		return true
	case model.OriginSystem, model.OriginManual:
		return false
	}
	return c.IsDummy(n.Title, n.Message)
}

// Filter 去掉测试数据，返回新切片
func (c *Classifier) Filter(list []model.Notification) []model.Notification {
	out := make([]model.Notification, 0, len(list))
	for i := range list {
		if !c.IsSynthetic(&list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}

type dedupKey struct {
	title   string
	message string
}

// Deduplicate 保留每个 (title, message) 第一次出现的记录，顺序不变
func Deduplicate(list []model.Notification) []model.Notification {
	kept, _ := splitDuplicates(list)
	return kept
}

// Duplicates 返回 Deduplicate 会丢弃的记录
func Duplicates(list []model.Notification) []model.Notification {
	_, dropped := splitDuplicates(list)
	return dropped
}

func splitDuplicates(list []model.Notification) (kept, dropped []model.Notification) {
	seen := make(map[dedupKey]struct{}, len(list))
	kept = make([]model.Notification, 0, len(list))
	for _, n := range list {
		k := dedupKey{n.Title, n.Message}
		if _, ok := seen[k]; ok {
			dropped = append(dropped, n)
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, n)
	}
	return kept, dropped
}

func UnreadCount(list []model.Notification) int {
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count
}
