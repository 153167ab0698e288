package service

import (
	"context"
	"fmt"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/pkg/logger"
	"ttrac_backend/pkg/monitoring"
	"ttrac_backend/pkg/tracing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// GenerateResult 各来源新建的通知数量
type GenerateResult struct {
	Submissions int `json:"submissions" yaml:"submissions"`
	Attempts    int `json:"attempts" yaml:"attempts"`
	Enrollments int `json:"enrollments" yaml:"enrollments"`
}

func (r GenerateResult) Total() int {
	return r.Submissions + r.Attempts + r.Enrollments
}

func (r *GenerateResult) add(o GenerateResult) {
	r.Submissions += o.Submissions
	r.Attempts += o.Attempts
	r.Enrollments += o.Enrollments
}

// ActivityGenerator 把教师课程下的近期活动转换成教师的通知
type ActivityGenerator struct {
	CourseRepo     *repository.CourseRepository
	AssignmentRepo *repository.AssignmentRepository
	QuizRepo       *repository.QuizRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProfileRepo    *repository.ProfileRepository
	Notifications  *NotificationService
	Limit          int
}

func NewActivityGenerator(
	courseRepo *repository.CourseRepository,
	assignmentRepo *repository.AssignmentRepository,
	quizRepo *repository.QuizRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	profileRepo *repository.ProfileRepository,
	notifications *NotificationService,
	limit int,
) *ActivityGenerator {
	if limit <= 0 {
		limit = 50
	}
	return &ActivityGenerator{
		CourseRepo:     courseRepo,
		AssignmentRepo: assignmentRepo,
		QuizRepo:       quizRepo,
		EnrollmentRepo: enrollmentRepo,
		ProfileRepo:    profileRepo,
		Notifications:  notifications,
		Limit:          limit,
	}
}

// GenerateForFaculty 重复执行是幂等的：每个活动对应唯一的 source_key
func (g *ActivityGenerator) GenerateForFaculty(ctx context.Context, facultyID uint) (GenerateResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ActivityGenerator.GenerateForFaculty", facultyID)
	defer span.End()

	var res GenerateResult
	courses, err := g.CourseRepo.ListByFaculty(facultyID)
	if err != nil {
		return res, errors.Wrap(err, "list faculty courses")
	}
	if len(courses) == 0 {
		return res, nil
	}
	courseIDs := make([]uint, 0, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
	}

	submissions, err := g.AssignmentRepo.RecentSubmissionsForCourses(courseIDs, g.Limit)
	if err != nil {
		return res, errors.Wrap(err, "list recent submissions")
	}
	for _, row := range submissions {
		courseID, assignmentID, submissionID := row.CourseID, row.AssignmentID, row.SubmissionID
		created, err := g.Notifications.Notify(ctx, &model.Notification{
			UserID:       facultyID,
			Title:        "New submission",
			Message:      fmt.Sprintf("%s submitted %s", row.StudentName, row.AssignmentTitle),
			Type:         model.NotificationAssignment,
			Origin:       model.OriginSystem,
			SourceKey:    model.SourceKey("submission", row.SubmissionID),
			CourseID:     &courseID,
			AssignmentID: &assignmentID,
			SubmissionID: &submissionID,
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Submissions++
		}
	}

	attempts, err := g.QuizRepo.RecentAttemptsForCourses(courseIDs, g.Limit)
	if err != nil {
		return res, errors.Wrap(err, "list recent quiz attempts")
	}
	for _, row := range attempts {
		courseID, quizID, attemptID := row.CourseID, row.QuizID, row.AttemptID
		created, err := g.Notifications.Notify(ctx, &model.Notification{
			UserID:    facultyID,
			Title:     "Quiz attempt submitted",
			Message:   fmt.Sprintf("%s completed %s", row.StudentName, row.QuizTitle),
			Type:      model.NotificationQuiz,
			Origin:    model.OriginSystem,
			SourceKey: model.SourceKey("attempt", row.AttemptID),
			CourseID:  &courseID,
			QuizID:    &quizID,
			AttemptID: &attemptID,
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Attempts++
		}
	}

	pending, err := g.EnrollmentRepo.RecentPendingForCourses(courseIDs, g.Limit)
	if err != nil {
		return res, errors.Wrap(err, "list pending enrollments")
	}
	for _, row := range pending {
		courseID, enrollmentID := row.CourseID, row.EnrollmentID
		created, err := g.Notifications.Notify(ctx, &model.Notification{
			UserID:       facultyID,
			Title:        "Enrollment request",
			Message:      fmt.Sprintf("%s requested to join %s", row.StudentName, row.CourseTitle),
			Type:         model.NotificationEnrollment,
			Origin:       model.OriginSystem,
			SourceKey:    model.EnrollmentRequestKey(row.EnrollmentID, row.RequestedAt),
			CourseID:     &courseID,
			EnrollmentID: &enrollmentID,
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Enrollments++
		}
	}

	monitoring.NotificationsGenerated.WithLabelValues("submission").Add(float64(res.Submissions))
	monitoring.NotificationsGenerated.WithLabelValues("attempt").Add(float64(res.Attempts))
	monitoring.NotificationsGenerated.WithLabelValues("enrollment").Add(float64(res.Enrollments))
	return res, nil
}

// GenerateAll 为所有教师生成通知，单个教师失败不影响其他教师
func (g *ActivityGenerator) GenerateAll(ctx context.Context) (GenerateResult, error) {
	var total GenerateResult
	ids, err := g.ProfileRepo.ListFacultyIDs()
	if err != nil {
		return total, errors.Wrap(err, "list faculty")
	}
	var failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		res, err := g.GenerateForFaculty(ctx, id)
		total.add(res)
		if err != nil {
			failed++
			logger.Log.Error("Generate notifications failed", zap.Error(err), zap.Uint("facultyId", id))
		}
	}
	if failed > 0 {
		return total, errors.Errorf("generation failed for %d of %d faculty", failed, len(ids))
	}
	return total, nil
}
