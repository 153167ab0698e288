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

type AssignmentService struct {
	Repo          *repository.AssignmentRepository
	Access        *CourseAccess
	Notifications *NotificationService
}

func NewAssignmentService(repo *repository.AssignmentRepository, access *CourseAccess, notifications *NotificationService) *AssignmentService {
	return &AssignmentService{Repo: repo, Access: access, Notifications: notifications}
}

type CreateAssignmentReq struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"dueAt"`
	MaxPoints   int        `json:"maxPoints" validate:"min=0"`
	IsPublished bool       `json:"isPublished"`
}

func (s *AssignmentService) Create(ctx context.Context, actor Actor, courseID uint, req CreateAssignmentReq) (*model.Assignment, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	course, err := s.Access.Owned(courseID, actor)
	if err != nil {
		return nil, err
	}
	a := &model.Assignment{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		MaxPoints:   req.MaxPoints,
		IsPublished: req.IsPublished,
	}
	if a.MaxPoints == 0 {
		a.MaxPoints = 100
	}
	if err := s.Repo.Create(a); err != nil {
		return nil, err
	}

	if a.IsPublished {
		studentIDs, err := s.Access.Enrollments.ApprovedStudentIDs(courseID)
		if err == nil {
			for _, id := range studentIDs {
				courseRef, assignmentID := course.ID, a.ID
				s.Notifications.NotifyQuietly(ctx, &model.Notification{
					UserID:       id,
					Title:        "New assignment",
					Message:      fmt.Sprintf("%s: %s", course.Title, a.Title),
					Type:         model.NotificationAssignment,
					Origin:       model.OriginSystem,
					SourceKey:    model.SourceKey("assignment", a.ID),
					CourseID:     &courseRef,
					AssignmentID: &assignmentID,
				})
			}
		}
	}
	return a, nil
}

func (s *AssignmentService) ListForCourse(actor Actor, courseID uint) ([]model.Assignment, error) {
	course, err := s.Access.Member(courseID, actor)
	if err != nil {
		return nil, err
	}
	publishedOnly := !actor.IsAdmin() && course.FacultyID != actor.ID
	return s.Repo.ListByCourse(courseID, publishedOnly)
}

type SubmissionReq struct {
	Content string `json:"content"`
	FileURL string `json:"fileUrl" validate:"omitempty,url"`
}

// SaveDraft 保存草稿，已提交的作业不能再回到草稿
func (s *AssignmentService) SaveDraft(actor Actor, assignmentID uint, req SubmissionReq) (*model.AssignmentSubmission, error) {
	return s.write(actor, assignmentID, req, model.SubmissionDraft)
}

func (s *AssignmentService) Submit(actor Actor, assignmentID uint, req SubmissionReq) (*model.AssignmentSubmission, error) {
	return s.write(actor, assignmentID, req, model.SubmissionSubmitted)
}

func (s *AssignmentService) write(actor Actor, assignmentID uint, req SubmissionReq, status model.SubmissionStatus) (*model.AssignmentSubmission, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	assignment, err := s.findAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.IsPublished {
		return nil, util.ErrAssignmentNotFound
	}
	if _, err := s.Access.Member(assignment.CourseID, actor); err != nil {
		return nil, err
	}

	sub, err := s.Repo.FindSubmissionByStudent(assignmentID, actor.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub = &model.AssignmentSubmission{
			AssignmentID: assignmentID,
			StudentID:    actor.ID,
			Status:       model.SubmissionDraft,
		}
	} else if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionDraft {
		return nil, util.ErrAlreadyGraded
	}

	sub.Content = req.Content
	sub.FileURL = req.FileURL
	sub.Status = status
	if status == model.SubmissionSubmitted {
		now := time.Now()
		sub.SubmittedAt = &now
	}
	if err := s.Repo.SaveSubmission(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

type GradeSubmissionReq struct {
	Grade    int    `json:"grade" validate:"min=0"`
	Feedback string `json:"feedback"`
}

// Grade 评分或重新评分，分数不超过作业满分
func (s *AssignmentService) Grade(ctx context.Context, actor Actor, submissionID uint, req GradeSubmissionReq) (*model.AssignmentSubmission, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	sub, err := s.Repo.FindSubmission(submissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub.Assignment == nil {
		return nil, util.ErrAssignmentNotFound
	}
	course, err := s.Access.Owned(sub.Assignment.CourseID, actor)
	if err != nil {
		return nil, err
	}
	if sub.Status == model.SubmissionDraft {
		return nil, util.ErrInvalidTransition
	}

	grade := req.Grade
	if grade > sub.Assignment.MaxPoints {
		grade = sub.Assignment.MaxPoints
	}
	now := time.Now()
	sub.Grade = &grade
	sub.Feedback = req.Feedback
	sub.Status = model.SubmissionGraded
	sub.GradedAt = &now
	if err := s.Repo.SaveSubmission(sub); err != nil {
		return nil, err
	}

	courseID, assignmentID, id := course.ID, sub.AssignmentID, sub.ID
	s.Notifications.NotifyQuietly(ctx, &model.Notification{
		UserID:       sub.StudentID,
		Title:        "Assignment graded",
		Message:      fmt.Sprintf("%s: %d/%d", sub.Assignment.Title, grade, sub.Assignment.MaxPoints),
		Type:         model.NotificationGrade,
		Origin:       model.OriginSystem,
		CourseID:     &courseID,
		AssignmentID: &assignmentID,
		SubmissionID: &id,
	})
	return sub, nil
}

func (s *AssignmentService) findAssignment(id uint) (*model.Assignment, error) {
	a, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssignmentNotFound
	}
	return a, err
}
