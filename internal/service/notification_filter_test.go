package service

import (
	"math/rand"
	"testing"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notif(id, title, message string, read bool) model.Notification {
	return model.Notification{
		UUIDBase: model.UUIDBase{ID: id},
		Title:    title,
		Message:  message,
		Read:     read,
	}
}

func TestClassifier_IsDummy(t *testing.T) {
	c := NewClassifier(config.DefaultDummyKeywords)

	cases := []struct {
		title, message string
		want           bool
	}{
		{"Test Notification", "hello", true},
		{"Quiz Graded", "You scored 9/10", false},
		{"New submission", "John Doe submitted Lab 1", true},
		{"Assignment due", "LOREM IPSUM dolor", true},
		{"Midterm grades posted", "Check the course page", false},
		{"Sample announcement", "", true},
		{"Enrollment request", "Alice requested to join CS101", false},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsDummy(tc.title, tc.message))
		})
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(config.DefaultDummyKeywords)
	r := rand.New(rand.NewSource(42))
	// 字母表里拼不出任何关键字
	const alphabet = "0123456789 qwvzQWVZ"
	randomText := func() string {
		b := make([]byte, r.Intn(40))
		for i := range b {
			b[i] = alphabet[r.Intn(len(alphabet))]
		}
		return string(b)
	}

	for i := 0; i < 500; i++ {
		title, message := randomText(), randomText()
		first := c.IsDummy(title, message)
		assert.False(t, first, "%q / %q", title, message)
		assert.Equal(t, first, c.IsDummy(title, message))

		keyword := config.DefaultDummyKeywords[r.Intn(len(config.DefaultDummyKeywords))]
		if r.Intn(2) == 0 {
			title = title + keyword + title
		} else {
			message = message + keyword
		}
		assert.True(t, c.IsDummy(title, message), "%q / %q", title, message)
		assert.True(t, c.IsDummy(title, message))
	}
}

func TestClassifier_SetKeywords(t *testing.T) {
	c := NewClassifier([]string{"  Draft ", "", "WIP"})
	assert.Equal(t, []string{"draft", "wip"}, c.Keywords())
	assert.True(t, c.IsDummy("wip: grading", ""))
	assert.False(t, c.IsDummy("Test Notification", ""))

	c.SetKeywords(config.DefaultDummyKeywords)
	assert.True(t, c.IsDummy("Test Notification", ""))
	assert.False(t, c.IsDummy("wip: grading", ""))
}

func TestClassifier_IsSyntheticPrefersOrigin(t *testing.T) {
	c := NewClassifier(config.DefaultDummyKeywords)

	system := notif("1", "Test results are in", "", false)
	system.Origin = model.OriginSystem
	assert.False(t, c.IsSynthetic(&system))

	manual := notif("2", "Sample schedule", "", false)
	manual.Origin = model.OriginManual
	assert.False(t, c.IsSynthetic(&manual))

	seeded := notif("3", "Quiz Graded", "You scored 9/10", false)
	seeded.Origin = model.OriginSeed
	assert.True(t, c.IsSynthetic(&seeded))

	legacy := notif("4", "Test Notification", "hello", false)
	assert.True(t, c.IsSynthetic(&legacy))
	legacyClean := notif("5", "Quiz Graded", "You scored 9/10", false)
	assert.False(t, c.IsSynthetic(&legacyClean))

	kept := c.Filter([]model.Notification{system, seeded, legacy, legacyClean})
	assert.Equal(t, []string{"Test results are in", "Quiz Graded"}, titles(kept))
}

func TestDeduplicate_KeepsFirstUnread(t *testing.T) {
	list := []model.Notification{
		notif("1", "A", "B", false),
		notif("2", "A", "B", true),
	}
	out := Deduplicate(list)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, 1, UnreadCount(out))
	assert.Len(t, list, 2, "input must not be modified")
}

func TestDeduplicate_PreservesOrderAndIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	titlesPool := []string{"A", "B", "C"}
	messagesPool := []string{"x", "y"}

	for round := 0; round < 100; round++ {
		list := make([]model.Notification, r.Intn(20))
		for i := range list {
			list[i] = notif(
				string(rune('a'+i)),
				titlesPool[r.Intn(len(titlesPool))],
				messagesPool[r.Intn(len(messagesPool))],
				r.Intn(2) == 0,
			)
		}
		out := Deduplicate(list)

		seen := map[[2]string]bool{}
		last := -1
		for _, item := range out {
			key := [2]string{item.Title, item.Message}
			assert.False(t, seen[key], "duplicate key %v", key)
			seen[key] = true

			idx := -1
			for i := range list {
				if list[i].ID == item.ID {
					idx = i
					break
				}
			}
			require.GreaterOrEqual(t, idx, 0)
			assert.Greater(t, idx, last, "order must be preserved")
			last = idx
		}
		assert.Equal(t, out, Deduplicate(out))
		assert.Equal(t, len(list), len(out)+len(Duplicates(list)))
	}
}

func TestUnreadCount(t *testing.T) {
	list := []model.Notification{
		notif("1", "A", "", false),
		notif("2", "B", "", true),
		notif("3", "C", "", false),
	}
	assert.Equal(t, 2, UnreadCount(list))
	assert.Equal(t, 0, UnreadCount(nil))
}
