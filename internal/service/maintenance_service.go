package service

import (
	"context"
	"time"
	"ttrac_backend/internal/model"
	"ttrac_backend/pkg/logger"
	"ttrac_backend/pkg/monitoring"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaintenanceReport 维护任务的执行结果，CLI 以文本或 YAML 输出
type MaintenanceReport struct {
	Task      string          `json:"task" yaml:"task"`
	DryRun    bool            `json:"dryRun" yaml:"dry_run"`
	Users     int             `json:"users" yaml:"users"`
	Scanned   int             `json:"scanned" yaml:"scanned"`
	Matched   int             `json:"matched" yaml:"matched"`
	Removed   int64           `json:"removed" yaml:"removed"`
	Generated *GenerateResult `json:"generated,omitempty" yaml:"generated,omitempty"`
	Elapsed   string          `json:"elapsed" yaml:"elapsed"`
}

type MaintenanceOptions struct {
	DryRun    bool
	UserID    uint
	OlderThan time.Duration
}

type MaintenanceService struct {
	Notifications *NotificationService
	Generator     *ActivityGenerator
	Quizzes       *QuizService
}

func NewMaintenanceService(notifications *NotificationService, generator *ActivityGenerator, quizzes *QuizService) *MaintenanceService {
	return &MaintenanceService{Notifications: notifications, Generator: generator, Quizzes: quizzes}
}

func (s *MaintenanceService) userIDs(ctx context.Context, opts MaintenanceOptions) ([]uint, error) {
	if opts.UserID != 0 {
		return []uint{opts.UserID}, nil
	}
	return s.Notifications.Repo.ListUserIDs(ctx)
}

// sweep 按通知中心的展示顺序（创建时间倒序）扫描每个用户，删除 pick 选中的记录（每个用户一次批量删除）
func (s *MaintenanceService) sweep(ctx context.Context, task, reason string, opts MaintenanceOptions, pick func([]model.Notification) []model.Notification) (*MaintenanceReport, error) {
	start := time.Now()
	report := &MaintenanceReport{Task: task, DryRun: opts.DryRun}

	users, err := s.userIDs(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	repo := s.Notifications.Repo
	for _, uid := range users {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		list, err := repo.ListByUser(ctx, uid)
		if err != nil {
			return report, errors.Wrapf(err, "list notifications for user %d", uid)
		}
		report.Users++
		report.Scanned += len(list)

		victims := pick(list)
		report.Matched += len(victims)
		if len(victims) == 0 || opts.DryRun {
			continue
		}
		ids := make([]string, 0, len(victims))
		for _, n := range victims {
			ids = append(ids, n.ID)
		}
		removed, err := repo.DeleteByIDs(ctx, ids)
		if err != nil {
			return report, errors.Wrapf(err, "delete notifications for user %d", uid)
		}
		report.Removed += removed
		if s.Notifications.Publisher != nil {
			for i := range victims {
				s.Notifications.publish(OpDelete, uid, &victims[i])
			}
		}
	}

	monitoring.NotificationsPurged.WithLabelValues(reason).Add(float64(report.Removed))
	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	logger.Log.Info("Maintenance finished",
		zap.String("task", task),
		zap.Bool("dryRun", opts.DryRun),
		zap.Int("users", report.Users),
		zap.Int("matched", report.Matched),
		zap.Int64("removed", report.Removed),
	)
	return report, nil
}

// CleanupDummy 删除测试/种子通知
func (s *MaintenanceService) CleanupDummy(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	classifier := s.Notifications.Classifier
	return s.sweep(ctx, "cleanup-dummy", "dummy", opts, func(list []model.Notification) []model.Notification {
		var out []model.Notification
		for i := range list {
			if classifier.IsSynthetic(&list[i]) {
				out = append(out, list[i])
			}
		}
		return out
	})
}

// Dedupe 删除列表里被去重隐藏的副本：每个 (title, message) 保留用户看到的最新一条。
// 测试数据不参与，交给 CleanupDummy
func (s *MaintenanceService) Dedupe(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	classifier := s.Notifications.Classifier
	return s.sweep(ctx, "dedupe", "duplicate", opts, func(list []model.Notification) []model.Notification {
		return Duplicates(classifier.Filter(list))
	})
}

func (s *MaintenanceService) Generate(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	if opts.DryRun {
		return nil, errors.New("generate does not support --dry-run")
	}
	start := time.Now()
	report := &MaintenanceReport{Task: "generate"}

	var res GenerateResult
	var err error
	if opts.UserID != 0 {
		report.Users = 1
		res, err = s.Generator.GenerateForFaculty(ctx, opts.UserID)
	} else {
		res, err = s.Generator.GenerateAll(ctx)
	}
	report.Generated = &res
	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	return report, err
}

func (s *MaintenanceService) RecomputeScores(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	start := time.Now()
	checked, drifted, err := s.Quizzes.RecomputeAll(ctx, opts.DryRun)
	report := &MaintenanceReport{
		Task:    "recompute-scores",
		DryRun:  opts.DryRun,
		Scanned: checked,
		Matched: drifted,
		Elapsed: time.Since(start).Round(time.Millisecond).String(),
	}
	return report, err
}

// PurgeRead 物理删除超过保留期的已读通知
func (s *MaintenanceService) PurgeRead(ctx context.Context, opts MaintenanceOptions) (*MaintenanceReport, error) {
	if opts.OlderThan <= 0 {
		return nil, errors.New("purge-read requires a positive retention period")
	}
	start := time.Now()
	cutoff := time.Now().Add(-opts.OlderThan)
	report := &MaintenanceReport{Task: "purge-read", DryRun: opts.DryRun}
	repo := s.Notifications.Repo

	count, err := repo.CountReadBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	report.Matched = int(count)
	if !opts.DryRun && count > 0 {
		removed, err := repo.PurgeReadBefore(ctx, cutoff)
		if err != nil {
			return report, err
		}
		report.Removed = removed
		monitoring.NotificationsPurged.WithLabelValues("expired").Add(float64(removed))
	}
	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	return report, nil
}
