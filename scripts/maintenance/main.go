// 通知中心维护脚本
//
// 子命令：
//
//	cleanup-dummy     删除测试/种子通知
//	dedupe            每个用户相同 (title, message) 的通知只保留最新的一条（即列表中展示的那条）
//	generate          为所有教师（或 --user 指定的教师）根据课程动态生成通知
//	recompute-scores  重算所有已提交测验的得分
//	purge-read        物理删除超过保留期的已读通知
//
// 用法: go run ./scripts/maintenance dedupe --dry-run --output yaml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/service"
	"ttrac_backend/pkg/database"
	"ttrac_backend/pkg/logger"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type options struct {
	configPath string
	dryRun     bool
	userID     uint
	olderThan  time.Duration
	output     string
}

type task func(m *service.MaintenanceService, ctx context.Context, opts service.MaintenanceOptions) (*service.MaintenanceReport, error)

var tasks = map[string]task{
	"cleanup-dummy":    (*service.MaintenanceService).CleanupDummy,
	"dedupe":           (*service.MaintenanceService).Dedupe,
	"generate":         (*service.MaintenanceService).Generate,
	"recompute-scores": (*service.MaintenanceService).RecomputeScores,
	"purge-read":       (*service.MaintenanceService).PurgeRead,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	flagSet := pflag.NewFlagSet("maintenance", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "configs/config.yaml", "path to config.yaml")
	flagSet.BoolVar(&opts.dryRun, "dry-run", false, "report what would change without writing")
	flagSet.UintVar(&opts.userID, "user", 0, "limit to one user id (faculty id for generate)")
	flagSet.DurationVar(&opts.olderThan, "older-than", 0, "purge-read retention (default: notifications.purge_after)")
	flagSet.StringVar(&opts.output, "output", "text", "report format: text|yaml")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(stderr, err)
		printUsage(stderr, flagSet)
		return 1
	}
	rest := flagSet.Args()
	if len(rest) != 1 {
		printUsage(stderr, flagSet)
		return 1
	}
	fn, ok := tasks[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		printUsage(stderr, flagSet)
		return 1
	}
	if opts.output != "text" && opts.output != "yaml" {
		fmt.Fprintf(stderr, "unsupported --output %q\n", opts.output)
		return 1
	}

	report, err := execute(fn, opts)
	if report != nil {
		if werr := writeReport(stdout, report, opts.output); werr != nil {
			fmt.Fprintf(stderr, "write report: %v\n", werr)
			return 1
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s failed: %v\n", rest[0], err)
		return 1
	}
	return 0
}

func execute(fn task, opts options) (*service.MaintenanceReport, error) {
	cfg, err := config.LoadConfig(filepath.Dir(opts.configPath))
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, err
	}
	// Redis 可选：用于让缓存失效并把删除事件推给在线用户
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}

	classifier := service.NewClassifier(cfg.Notifications.DummyKeywords)
	notificationRepo := repository.NewNotificationRepository(db, rdb, cfg.Notifications.UnreadCacheTTL)
	hub := service.NewNotificationHub(rdb, notificationRepo, classifier)
	notifications := service.NewNotificationService(notificationRepo, classifier, hub)

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	access := service.NewCourseAccess(courseRepo, enrollmentRepo)
	generator := service.NewActivityGenerator(
		courseRepo,
		repository.NewAssignmentRepository(db),
		quizRepo,
		enrollmentRepo,
		repository.NewProfileRepository(db),
		notifications,
		cfg.Notifications.GenerateLimit,
	)
	quizzes := service.NewQuizService(quizRepo, access, notifications)
	maintenance := service.NewMaintenanceService(notifications, generator, quizzes)

	olderThan := opts.olderThan
	if olderThan == 0 {
		olderThan = cfg.Notifications.PurgeAfter
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return fn(maintenance, ctx, service.MaintenanceOptions{
		DryRun:    opts.dryRun,
		UserID:    opts.userID,
		OlderThan: olderThan,
	})
}

func writeReport(w io.Writer, r *service.MaintenanceReport, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "%s%s\n", r.Task, mode)
	if r.Generated != nil {
		fmt.Fprintf(w, "  submissions: %d\n  attempts:    %d\n  enrollments: %d\n",
			r.Generated.Submissions, r.Generated.Attempts, r.Generated.Enrollments)
	} else {
		fmt.Fprintf(w, "  users:   %d\n  scanned: %d\n  matched: %d\n  removed: %d\n",
			r.Users, r.Scanned, r.Matched, r.Removed)
	}
	_, err := fmt.Fprintf(w, "  elapsed: %s\n", r.Elapsed)
	return err
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: maintenance <command> [flags]

Commands:
  cleanup-dummy      delete test/seed notifications
  dedupe             keep only the visible (newest) copy of each (title, message) per user
  generate           create notifications from recent course activity
  recompute-scores   recompute every submitted quiz attempt
  purge-read         hard-delete read notifications past retention

Flags:
`)
	flagSet.PrintDefaults()
}
