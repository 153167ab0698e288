package service

import (
	"context"
	"fmt"
	"time"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	Repo          *repository.EnrollmentRepository
	Access        *CourseAccess
	ProfileRepo   *repository.ProfileRepository
	Notifications *NotificationService
}

func NewEnrollmentService(repo *repository.EnrollmentRepository, access *CourseAccess, profileRepo *repository.ProfileRepository, notifications *NotificationService) *EnrollmentService {
	return &EnrollmentService{Repo: repo, Access: access, ProfileRepo: profileRepo, Notifications: notifications}
}

// Request 学生申请选课。被拒绝后再次申请会复用原记录并回到 pending
func (s *EnrollmentService) Request(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	course, err := s.Access.Course(courseID)
	if err != nil {
		return nil, err
	}

	existing, err := s.Repo.FindByStudentAndCourse(studentID, courseID)
	switch {
	case err == nil:
		if !existing.Status.CanTransition(model.EnrollmentPending) {
			return nil, util.ErrEnrollmentExists
		}
		existing.Status = model.EnrollmentPending
		existing.RequestedAt = nextRequestTime(existing.RequestedAt)
		existing.DecidedBy = nil
		existing.DecidedAt = nil
		if err := s.Repo.Save(existing); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = &model.Enrollment{
			StudentID:   studentID,
			CourseID:    courseID,
			Status:      model.EnrollmentPending,
			RequestedAt: nextRequestTime(time.Time{}),
		}
		if err := s.Repo.Create(existing); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	studentName := "A student"
	if p, err := s.ProfileRepo.FindByID(studentID); err == nil {
		studentName = p.Name
	}
	courseRef, enrollmentID := course.ID, existing.ID
	s.Notifications.NotifyQuietly(ctx, &model.Notification{
		UserID:       course.FacultyID,
		Title:        "Enrollment request",
		Message:      fmt.Sprintf("%s requested to join %s", studentName, course.Title),
		Type:         model.NotificationEnrollment,
		Origin:       model.OriginSystem,
		SourceKey:    model.EnrollmentRequestKey(existing.ID, existing.RequestedAt),
		CourseID:     &courseRef,
		EnrollmentID: &enrollmentID,
	})
	return existing, nil
}

// nextRequestTime 取毫秒精度（与数据库一致），并保证严格晚于上一次申请
func nextRequestTime(prev time.Time) time.Time {
	now := time.Now().Truncate(time.Millisecond)
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

func (s *EnrollmentService) Approve(ctx context.Context, actor Actor, enrollmentID uint) (*model.Enrollment, error) {
	return s.decide(ctx, actor, enrollmentID, model.EnrollmentApproved)
}

func (s *EnrollmentService) Decline(ctx context.Context, actor Actor, enrollmentID uint) (*model.Enrollment, error) {
	return s.decide(ctx, actor, enrollmentID, model.EnrollmentDeclined)
}

func (s *EnrollmentService) decide(ctx context.Context, actor Actor, enrollmentID uint, to model.EnrollmentStatus) (*model.Enrollment, error) {
	e, err := s.Repo.FindByID(enrollmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	course, err := s.Access.Owned(e.CourseID, actor)
	if err != nil {
		return nil, err
	}
	if !e.Status.CanTransition(to) {
		return nil, util.ErrInvalidTransition
	}

	now := time.Now()
	decider := actor.ID
	e.Status = to
	e.DecidedBy = &decider
	e.DecidedAt = &now
	if err := s.Repo.Save(e); err != nil {
		return nil, err
	}

	verb := "approved"
	if to == model.EnrollmentDeclined {
		verb = "declined"
	}
	courseID, id := course.ID, e.ID
	s.Notifications.NotifyQuietly(ctx, &model.Notification{
		UserID:       e.StudentID,
		Title:        "Enrollment " + verb,
		Message:      fmt.Sprintf("Your request to join %s was %s", course.Title, verb),
		Type:         model.NotificationEnrollment,
		Origin:       model.OriginSystem,
		CourseID:     &courseID,
		EnrollmentID: &id,
	})
	return e, nil
}

func (s *EnrollmentService) ListForCourse(actor Actor, courseID uint, status string) ([]model.Enrollment, error) {
	if _, err := s.Access.Owned(courseID, actor); err != nil {
		return nil, err
	}
	return s.Repo.ListByCourse(courseID, status)
}

func (s *EnrollmentService) ListMine(studentID uint) ([]model.Enrollment, error) {
	return s.Repo.ListByStudent(studentID)
}
