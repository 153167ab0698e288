package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 内存 sqlite，单连接保证所有查询看到同一个库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []NotificationEvent
}

func (p *recordingPublisher) Publish(ev NotificationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NotificationEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *recordingPublisher) Ops() []NotificationOp {
	var ops []NotificationOp
	for _, ev := range p.Events() {
		ops = append(ops, ev.Op)
	}
	return ops
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB

	profiles    *repository.ProfileRepository
	courses     *repository.CourseRepository
	enrollRepo  *repository.EnrollmentRepository
	assignRepo  *repository.AssignmentRepository
	quizRepo    *repository.QuizRepository
	notifRepo   *repository.NotificationRepository
	publisher   *recordingPublisher
	classifier  *Classifier
	access      *CourseAccess
	notify      *NotificationService
	enrollments *EnrollmentService
	assignments *AssignmentService
	quizzes     *QuizService
	generator   *ActivityGenerator
	maintenance *MaintenanceService

	seq int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{t: t, ctx: context.Background(), db: db}

	f.profiles = repository.NewProfileRepository(db)
	f.courses = repository.NewCourseRepository(db)
	f.enrollRepo = repository.NewEnrollmentRepository(db)
	f.assignRepo = repository.NewAssignmentRepository(db)
	f.quizRepo = repository.NewQuizRepository(db)
	f.notifRepo = repository.NewNotificationRepository(db, nil, 0)

	f.publisher = &recordingPublisher{}
	f.classifier = NewClassifier(config.DefaultDummyKeywords)
	f.access = NewCourseAccess(f.courses, f.enrollRepo)
	f.notify = NewNotificationService(f.notifRepo, f.classifier, f.publisher)
	f.enrollments = NewEnrollmentService(f.enrollRepo, f.access, f.profiles, f.notify)
	f.assignments = NewAssignmentService(f.assignRepo, f.access, f.notify)
	f.quizzes = NewQuizService(f.quizRepo, f.access, f.notify)
	f.generator = NewActivityGenerator(f.courses, f.assignRepo, f.quizRepo, f.enrollRepo, f.profiles, f.notify, 0)
	f.maintenance = NewMaintenanceService(f.notify, f.generator, f.quizzes)
	return f
}

func (f *fixture) user(name string, role model.UserRole) Actor {
	f.t.Helper()
	f.seq++
	p := &model.Profile{
		Name:     name,
		Email:    fmt.Sprintf("user%d@ttrac.edu", f.seq),
		Password: "x",
		Role:     role,
	}
	require.NoError(f.t, f.profiles.Create(p))
	return Actor{ID: p.ID, Role: role}
}

func (f *fixture) course(faculty Actor, title string) *model.Course {
	f.t.Helper()
	f.seq++
	c := &model.Course{Code: fmt.Sprintf("CS%03d", f.seq), Title: title, FacultyID: faculty.ID}
	require.NoError(f.t, f.courses.Create(c))
	return c
}

// enroll 申请并通过选课
func (f *fixture) enroll(student, faculty Actor, courseID uint) *model.Enrollment {
	f.t.Helper()
	e, err := f.enrollments.Request(f.ctx, student.ID, courseID)
	require.NoError(f.t, err)
	e, err = f.enrollments.Approve(f.ctx, faculty, e.ID)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) notifications(userID uint) []model.Notification {
	f.t.Helper()
	list, err := f.notifRepo.ListByUser(f.ctx, userID)
	require.NoError(f.t, err)
	return list
}

func titles(list []model.Notification) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Title)
	}
	return out
}
