package repository

import (
	"time"
	"ttrac_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(q *model.Quiz) error {
	return r.DB.Create(q).Error
}

func (r *QuizRepository) FindByID(id string) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.DB.Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) ListByCourse(courseID uint, publishedOnly bool) ([]model.Quiz, error) {
	var list []model.Quiz
	q := r.DB.Where("course_id = ?", courseID)
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	err := q.Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *QuizRepository) Publish(id string) error {
	now := time.Now()
	return r.DB.Model(&model.Quiz{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_published": true, "published_at": &now}).Error
}

func (r *QuizRepository) CreateQuestions(questions []model.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.Create(&questions).Error
}

func (r *QuizRepository) ListQuestions(quizID string) ([]model.QuizQuestion, error) {
	return listQuestions(r.DB, quizID)
}

func listQuestions(db *gorm.DB, quizID string) ([]model.QuizQuestion, error) {
	var list []model.QuizQuestion
	err := db.Where("quiz_id = ?", quizID).Order("sort_order ASC, created_at ASC").Find(&list).Error
	return list, err
}

func (r *QuizRepository) FindQuestion(id string) (*model.QuizQuestion, error) {
	var q model.QuizQuestion
	if err := r.DB.Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) CreateAttempt(a *model.QuizAttempt) error {
	return r.DB.Create(a).Error
}

func (r *QuizRepository) FindAttempt(id string) (*model.QuizAttempt, error) {
	return findAttempt(r.DB, id)
}

func findAttempt(db *gorm.DB, id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindAttemptForUpdate 在事务中锁定作答记录，防止评分和重算交错
func (r *QuizRepository) FindAttemptForUpdate(tx *gorm.DB, id string) (*model.QuizAttempt, error) {
	return findAttempt(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *QuizRepository) FindOpenAttempt(quizID string, studentID uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, model.AttemptInProgress).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *QuizRepository) SaveAttempt(tx *gorm.DB, a *model.QuizAttempt) error {
	return tx.Save(a).Error
}

func (r *QuizRepository) ListAttempts(quizID string) ([]model.QuizAttempt, error) {
	var list []model.QuizAttempt
	err := r.DB.Where("quiz_id = ?", quizID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// ListAttemptIDsForRecompute 返回所有已提交或已评分的作答
func (r *QuizRepository) ListAttemptIDsForRecompute() ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("status IN ?", []model.AttemptStatus{model.AttemptSubmitted, model.AttemptGraded}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// UpsertGrade 同一作答同一题只保留一条人工评分
func (r *QuizRepository) UpsertGrade(tx *gorm.DB, g *model.QuizQuestionGrade) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "grader_id", "comment", "graded_at", "updated_at"}),
	}).Create(g).Error
}

func (r *QuizRepository) ListGrades(tx *gorm.DB, attemptID string) ([]model.QuizQuestionGrade, error) {
	var list []model.QuizQuestionGrade
	err := tx.Where("attempt_id = ?", attemptID).Find(&list).Error
	return list, err
}

func (r *QuizRepository) ListQuestionsTx(tx *gorm.DB, quizID string) ([]model.QuizQuestion, error) {
	return listQuestions(tx, quizID)
}

// AttemptActivity 最近提交的测验，通知生成器使用
type AttemptActivity struct {
	AttemptID   string
	QuizID      string
	CourseID    uint
	QuizTitle   string
	StudentName string
}

func (r *QuizRepository) RecentAttemptsForCourses(courseIDs []uint, limit int) ([]AttemptActivity, error) {
	var rows []AttemptActivity
	if len(courseIDs) == 0 {
		return rows, nil
	}
	err := r.DB.Table("quiz_attempts a").
		Select("a.id AS attempt_id, q.id AS quiz_id, q.course_id, q.title AS quiz_title, p.name AS student_name").
		Joins("JOIN quizzes q ON q.id = a.quiz_id").
		Joins("JOIN profiles p ON p.id = a.student_id").
		Where("q.course_id IN ? AND a.status = ? AND a.deleted_at IS NULL", courseIDs, model.AttemptSubmitted).
		Order("a.submitted_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
