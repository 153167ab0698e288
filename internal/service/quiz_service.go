package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/util"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizService struct {
	Repo          *repository.QuizRepository
	Access        *CourseAccess
	Notifications *NotificationService
}

func NewQuizService(repo *repository.QuizRepository, access *CourseAccess, notifications *NotificationService) *QuizService {
	return &QuizService{Repo: repo, Access: access, Notifications: notifications}
}

type QuizQuestionReq struct {
	QuestionType model.QuestionType `json:"questionType" validate:"required,oneof=multiple_choice true_false short_answer essay"`
	Content      string             `json:"content" validate:"required"`
	Options      json.RawMessage    `json:"options"`
	Answer       string             `json:"answer"`
	Points       int                `json:"points" validate:"min=0"`
	Order        int                `json:"order"`
}

type CreateQuizReq struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description"`
	TimeLimit   int               `json:"timeLimit" validate:"min=0"`
	IsPublished bool              `json:"isPublished"`
	Questions   []QuizQuestionReq `json:"questions" validate:"dive"`
}

func (s *QuizService) CreateQuiz(ctx context.Context, actor Actor, courseID uint, req CreateQuizReq) (*model.Quiz, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	course, err := s.Access.Owned(courseID, actor)
	if err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
		IsPublished: req.IsPublished,
		CreatorID:   actor.ID,
	}
	if quiz.IsPublished {
		now := time.Now()
		quiz.PublishedAt = &now
	}

	err = s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(quiz).Error; err != nil {
			return err
		}
		questions := make([]model.QuizQuestion, 0, len(req.Questions))
		for i, q := range req.Questions {
			order := q.Order
			if order == 0 {
				order = i + 1
			}
			questions = append(questions, model.QuizQuestion{
				QuizID:       quiz.ID,
				QuestionType: q.QuestionType,
				Content:      q.Content,
				Options:      datatypes.JSON(q.Options),
				Answer:       q.Answer,
				Points:       q.Points,
				Order:        order,
			})
		}
		return repository.NewQuizRepository(tx).CreateQuestions(questions)
	})
	if err != nil {
		return nil, err
	}

	if quiz.IsPublished {
		s.notifyPublished(ctx, course, quiz)
	}
	return quiz, nil
}

func (s *QuizService) Publish(ctx context.Context, actor Actor, quizID string) (*model.Quiz, error) {
	quiz, err := s.findQuiz(quizID)
	if err != nil {
		return nil, err
	}
	course, err := s.Access.Owned(quiz.CourseID, actor)
	if err != nil {
		return nil, err
	}
	if quiz.IsPublished {
		return quiz, nil
	}
	if err := s.Repo.Publish(quizID); err != nil {
		return nil, err
	}
	quiz, err = s.findQuiz(quizID)
	if err != nil {
		return nil, err
	}
	s.notifyPublished(ctx, course, quiz)
	return quiz, nil
}

func (s *QuizService) notifyPublished(ctx context.Context, course *model.Course, quiz *model.Quiz) {
	studentIDs, err := s.Access.Enrollments.ApprovedStudentIDs(course.ID)
	if err != nil {
		return
	}
	for _, id := range studentIDs {
		courseID, quizID := course.ID, quiz.ID
		s.Notifications.NotifyQuietly(ctx, &model.Notification{
			UserID:    id,
			Title:     "New quiz available",
			Message:   fmt.Sprintf("%s: %s", course.Title, quiz.Title),
			Type:      model.NotificationQuiz,
			Origin:    model.OriginSystem,
			SourceKey: model.SourceKey("quiz-published", quiz.ID),
			CourseID:  &courseID,
			QuizID:    &quizID,
		})
	}
}

// ListForCourse 学生只能看到已发布的测验
func (s *QuizService) ListForCourse(actor Actor, courseID uint) ([]model.Quiz, error) {
	course, err := s.Access.Member(courseID, actor)
	if err != nil {
		return nil, err
	}
	publishedOnly := !actor.IsAdmin() && course.FacultyID != actor.ID
	return s.Repo.ListByCourse(courseID, publishedOnly)
}

func (s *QuizService) StartAttempt(ctx context.Context, actor Actor, quizID string) (*model.QuizAttempt, error) {
	quiz, err := s.findQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotPublished
	}
	if _, err := s.Access.Member(quiz.CourseID, actor); err != nil {
		return nil, err
	}

	open, err := s.Repo.FindOpenAttempt(quizID, actor.ID)
	if err == nil {
		return open, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	questions, err := s.Repo.ListQuestions(quizID)
	if err != nil {
		return nil, err
	}
	maxScore := 0
	for _, q := range questions {
		maxScore += q.Points
	}
	attempt := &model.QuizAttempt{
		QuizID:    quizID,
		StudentID: actor.ID,
		Answers:   datatypes.JSON("{}"),
		MaxScore:  maxScore,
		Status:    model.AttemptInProgress,
		StartedAt: time.Now(),
	}
	if err := s.Repo.CreateAttempt(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// SubmitAttempt 保存答案并在同一事务中计算得分
func (s *QuizService) SubmitAttempt(ctx context.Context, actor Actor, attemptID string, answers map[string]string) (*model.QuizAttempt, error) {
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	var attempt *model.QuizAttempt
	var graded bool
	err = s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.Repo.FindAttemptForUpdate(tx, attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		if a.StudentID != actor.ID {
			return util.ErrAttemptNotFound
		}
		if a.Status != model.AttemptInProgress {
			return util.ErrAttemptSubmitted
		}
		now := time.Now()
		a.Answers = datatypes.JSON(raw)
		a.Status = model.AttemptSubmitted
		a.SubmittedAt = &now
		if err := s.Repo.SaveAttempt(tx, a); err != nil {
			return err
		}
		attempt, graded, err = s.Recompute(tx, attemptID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if graded {
		s.notifyGraded(ctx, attempt)
	}
	return attempt, nil
}

type GradeQuestionReq struct {
	Points  int    `json:"points" validate:"min=0"`
	Comment string `json:"comment"`
}

// GradeQuestion 教师为主观题打分，分数截断到 [0, 题目分值]，随后重算总分
func (s *QuizService) GradeQuestion(ctx context.Context, actor Actor, attemptID, questionID string, req GradeQuestionReq) (*model.QuizAttempt, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	a, err := s.Repo.FindAttempt(attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	quiz, err := s.findQuiz(a.QuizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.Owned(quiz.CourseID, actor); err != nil {
		return nil, err
	}
	if a.Status == model.AttemptInProgress {
		return nil, util.ErrAttemptInProgress
	}
	question, err := s.Repo.FindQuestion(questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && question.QuizID != a.QuizID) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	if question.QuestionType.AutoGraded() {
		return nil, util.ErrQuestionAutoGraded
	}

	points := req.Points
	if points > question.Points {
		points = question.Points
	}

	var attempt *model.QuizAttempt
	var graded bool
	err = s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.FindAttemptForUpdate(tx, attemptID); err != nil {
			return err
		}
		now := time.Now()
		if err := s.Repo.UpsertGrade(tx, &model.QuizQuestionGrade{
			AttemptID:  attemptID,
			QuestionID: questionID,
			Points:     points,
			GraderID:   actor.ID,
			Comment:    req.Comment,
			GradedAt:   &now,
		}); err != nil {
			return err
		}
		attempt, graded, err = s.Recompute(tx, attemptID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if graded {
		s.notifyGraded(ctx, attempt)
	}
	return attempt, nil
}

// Recompute 是作答得分的唯一计算入口，必须在写入评分的同一事务中调用。
// score = 客观题自动得分 + 主观题人工得分；所有主观题都有评分时状态为 graded。
// 第二个返回值表示本次调用使作答变为 graded。
func (s *QuizService) Recompute(tx *gorm.DB, attemptID string) (*model.QuizAttempt, bool, error) {
	attempt, err := s.Repo.FindAttemptForUpdate(tx, attemptID)
	if err != nil {
		return nil, false, errors.Wrapf(err, "load attempt %s", attemptID)
	}
	questions, err := s.Repo.ListQuestionsTx(tx, attempt.QuizID)
	if err != nil {
		return nil, false, errors.Wrap(err, "load questions")
	}
	grades, err := s.Repo.ListGrades(tx, attemptID)
	if err != nil {
		return nil, false, errors.Wrap(err, "load grades")
	}

	score, maxScore, complete := ScoreAttempt(questions, attempt.AnswerMap(), grades)

	before := attempt.Status
	attempt.Score = score
	attempt.MaxScore = maxScore
	if attempt.Status != model.AttemptInProgress {
		if complete {
			attempt.Status = model.AttemptGraded
			if attempt.GradedAt == nil {
				now := time.Now()
				attempt.GradedAt = &now
			}
		} else {
			attempt.Status = model.AttemptSubmitted
			attempt.GradedAt = nil
		}
	}
	if err := s.Repo.SaveAttempt(tx, attempt); err != nil {
		return nil, false, errors.Wrap(err, "save attempt")
	}
	return attempt, before != model.AttemptGraded && attempt.Status == model.AttemptGraded, nil
}

// ScoreAttempt 纯计算：返回得分、满分以及主观题是否全部评分
func ScoreAttempt(questions []model.QuizQuestion, answers map[string]string, grades []model.QuizQuestionGrade) (score, maxScore int, complete bool) {
	manual := make(map[string]int, len(grades))
	for _, g := range grades {
		manual[g.QuestionID] = g.Points
	}
	complete = true
	for _, q := range questions {
		maxScore += q.Points
		if q.QuestionType.AutoGraded() {
			if answerMatches(answers[q.ID], q.Answer) {
				score += q.Points
			}
			continue
		}
		points, ok := manual[q.ID]
		if !ok {
			complete = false
			continue
		}
		if points > q.Points {
			points = q.Points
		}
		score += points
	}
	return score, maxScore, complete
}

func answerMatches(given, expected string) bool {
	given = strings.TrimSpace(given)
	return given != "" && strings.EqualFold(given, strings.TrimSpace(expected))
}

func (s *QuizService) notifyGraded(ctx context.Context, attempt *model.QuizAttempt) {
	quiz, err := s.findQuiz(attempt.QuizID)
	if err != nil {
		return
	}
	courseID, quizID, attemptID := quiz.CourseID, quiz.ID, attempt.ID
	s.Notifications.NotifyQuietly(ctx, &model.Notification{
		UserID:    attempt.StudentID,
		Title:     "Quiz graded",
		Message:   fmt.Sprintf("%s: %d/%d", quiz.Title, attempt.Score, attempt.MaxScore),
		Type:      model.NotificationGrade,
		Origin:    model.OriginSystem,
		SourceKey: model.SourceKey("attempt-graded", attempt.ID),
		CourseID:  &courseID,
		QuizID:    &quizID,
		AttemptID: &attemptID,
	})
}

// RecomputeAll 维护任务：重算所有已提交作答，返回处理数和分数发生变化的数量
func (s *QuizService) RecomputeAll(ctx context.Context, dryRun bool) (checked, drifted int, err error) {
	ids, err := s.Repo.ListAttemptIDsForRecompute()
	if err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return checked, drifted, ctx.Err()
		}
		changed, err := s.recomputeOne(ctx, id, dryRun)
		if err != nil {
			return checked, drifted, errors.Wrapf(err, "recompute attempt %s", id)
		}
		checked++
		if changed {
			drifted++
		}
	}
	return checked, drifted, nil
}

func (s *QuizService) recomputeOne(ctx context.Context, id string, dryRun bool) (bool, error) {
	var changed bool
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.Repo.FindAttemptForUpdate(tx, id)
		if err != nil {
			return err
		}
		if dryRun {
			questions, err := s.Repo.ListQuestionsTx(tx, before.QuizID)
			if err != nil {
				return err
			}
			grades, err := s.Repo.ListGrades(tx, id)
			if err != nil {
				return err
			}
			score, maxScore, complete := ScoreAttempt(questions, before.AnswerMap(), grades)
			changed = score != before.Score || maxScore != before.MaxScore ||
				complete != (before.Status == model.AttemptGraded)
			return nil
		}
		after, _, err := s.Recompute(tx, id)
		if err != nil {
			return err
		}
		changed = after.Score != before.Score || after.MaxScore != before.MaxScore || after.Status != before.Status
		return nil
	})
	return changed, err
}

func (s *QuizService) findQuiz(id string) (*model.Quiz, error) {
	quiz, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}
