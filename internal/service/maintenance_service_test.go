package service

import (
	"testing"
	"time"
	"ttrac_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedInbox 按给定顺序写入，created_at 递增
func seedInbox(t *testing.T, f *fixture, userID uint, items ...model.Notification) []model.Notification {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	out := make([]model.Notification, 0, len(items))
	for i, x := range items {
		x.UserID = userID
		x.Type = model.NotificationAnnouncement
		x.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, f.notifRepo.Create(f.ctx, &x))
		out = append(out, x)
	}
	return out
}

func TestMaintenance_CleanupDummy(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alan", model.Student)
	b := f.user("Kurt", model.Student)

	seedInbox(t, f, a.ID,
		model.Notification{Title: "Test Notification", Message: "hello"},
		model.Notification{Title: "Quiz Graded", Message: "You scored 9/10"},
		model.Notification{Title: "Welcome", Origin: model.OriginSeed},
	)
	seedInbox(t, f, b.ID,
		model.Notification{Title: "John Doe submitted", Origin: model.OriginSystem},
		model.Notification{Title: "Sample data", Origin: model.OriginTest},
	)

	report, err := f.maintenance.CleanupDummy(f.ctx, MaintenanceOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 3, report.Matched)
	assert.Zero(t, report.Removed)
	assert.Len(t, f.notifications(a.ID), 3)

	report, err = f.maintenance.CleanupDummy(f.ctx, MaintenanceOptions{UserID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Users)
	assert.EqualValues(t, 2, report.Removed)
	assert.Equal(t, []string{"Quiz Graded"}, titles(f.notifications(a.ID)))
	assert.Len(t, f.notifications(b.ID), 2)

	assert.Equal(t, []NotificationOp{OpDelete, OpDelete}, f.publisher.Ops())
}

func TestMaintenance_DedupeKeepsVisibleCopy(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alan", model.Student)

	seeded := seedInbox(t, f, a.ID,
		model.Notification{Title: "Graded", Message: "Lab 1"},
		model.Notification{Title: "Graded", Message: "Lab 1", Read: true},
		model.Notification{Title: "Graded", Message: "Lab 2"},
		model.Notification{Title: "Graded", Message: "Lab 1"},
	)
	visible, err := f.notify.List(f.ctx, a.ID, ListOptions{})
	require.NoError(t, err)

	report, err := f.maintenance.Dedupe(f.ctx, MaintenanceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Matched)
	assert.EqualValues(t, 2, report.Removed)

	left := f.notifications(a.ID)
	require.Len(t, left, 2)
	assert.Equal(t, []string{seeded[3].ID, seeded[2].ID}, []string{left[0].ID, left[1].ID})
	after, err := f.notify.List(f.ctx, a.ID, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, ids(visible), ids(after), "the user sees the same notifications")

	report, err = f.maintenance.Dedupe(f.ctx, MaintenanceOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Matched)
}

func TestMaintenance_DedupeKeepsUnreadCount(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alan", model.Student)
	seedInbox(t, f, a.ID,
		model.Notification{Title: "Quiz graded", Message: "9/10"},
		model.Notification{Title: "Quiz graded", Message: "9/10", Read: true},
	)

	before, err := f.notify.UnreadCount(f.ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, before)

	_, err = f.maintenance.Dedupe(f.ctx, MaintenanceOptions{})
	require.NoError(t, err)

	after, err := f.notify.UnreadCount(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMaintenance_DedupeLeavesSyntheticToCleanup(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alan", model.Student)
	seeded := seedInbox(t, f, a.ID,
		model.Notification{Title: "Office hours", Message: "Room 4", Origin: model.OriginSystem},
		model.Notification{Title: "Office hours", Message: "Room 4", Origin: model.OriginSeed},
	)

	report, err := f.maintenance.Dedupe(f.ctx, MaintenanceOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Matched)

	report, err = f.maintenance.CleanupDummy(f.ctx, MaintenanceOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.Removed)
	left := f.notifications(a.ID)
	require.Len(t, left, 1)
	assert.Equal(t, seeded[0].ID, left[0].ID)
}

func TestMaintenance_PurgeRead(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alan", model.Student)
	seedInbox(t, f, a.ID,
		model.Notification{Title: "Old read", Read: true},
		model.Notification{Title: "Old unread"},
	)

	_, err := f.maintenance.PurgeRead(f.ctx, MaintenanceOptions{})
	assert.Error(t, err)

	report, err := f.maintenance.PurgeRead(f.ctx, MaintenanceOptions{OlderThan: time.Minute, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Zero(t, report.Removed)

	report, err = f.maintenance.PurgeRead(f.ctx, MaintenanceOptions{OlderThan: time.Minute})
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.Removed)
	assert.Equal(t, []string{"Old unread"}, titles(f.notifications(a.ID)))

	report, err = f.maintenance.PurgeRead(f.ctx, MaintenanceOptions{OlderThan: 24 * time.Hour})
	require.NoError(t, err)
	assert.Zero(t, report.Matched)
}

func TestMaintenance_GenerateRejectsDryRun(t *testing.T) {
	f := newFixture(t)
	_, err := f.maintenance.Generate(f.ctx, MaintenanceOptions{DryRun: true})
	assert.Error(t, err)

	report, err := f.maintenance.Generate(f.ctx, MaintenanceOptions{})
	require.NoError(t, err)
	require.NotNil(t, report.Generated)
	assert.Zero(t, report.Generated.Total())
}

func TestMaintenance_RecomputeScoresReportsDrift(t *testing.T) {
	f := newFixture(t)
	report, err := f.maintenance.RecomputeScores(f.ctx, MaintenanceOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "recompute-scores", report.Task)
	assert.Zero(t, report.Scanned)
}
