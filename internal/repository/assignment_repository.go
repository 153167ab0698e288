package repository

import (
	"ttrac_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(a *model.Assignment) error {
	return r.DB.Create(a).Error
}

func (r *AssignmentRepository) FindByID(id uint) (*model.Assignment, error) {
	var a model.Assignment
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) ListByCourse(courseID uint, publishedOnly bool) ([]model.Assignment, error) {
	var list []model.Assignment
	q := r.DB.Where("course_id = ?", courseID)
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	err := q.Order("due_at IS NULL, due_at ASC, created_at DESC").Find(&list).Error
	return list, err
}

func (r *AssignmentRepository) FindSubmission(id uint) (*model.AssignmentSubmission, error) {
	var s model.AssignmentSubmission
	if err := r.DB.Preload("Assignment").First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AssignmentRepository) FindSubmissionByStudent(assignmentID, studentID uint) (*model.AssignmentSubmission, error) {
	var s model.AssignmentSubmission
	err := r.DB.Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AssignmentRepository) SaveSubmission(s *model.AssignmentSubmission) error {
	return r.DB.Omit(clause.Associations).Save(s).Error
}

// SubmissionActivity 最近提交的作业，通知生成器使用
type SubmissionActivity struct {
	SubmissionID    uint
	AssignmentID    uint
	CourseID        uint
	AssignmentTitle string
	StudentName     string
}

func (r *AssignmentRepository) RecentSubmissionsForCourses(courseIDs []uint, limit int) ([]SubmissionActivity, error) {
	var rows []SubmissionActivity
	if len(courseIDs) == 0 {
		return rows, nil
	}
	err := r.DB.Table("assignment_submissions s").
		Select("s.id AS submission_id, a.id AS assignment_id, a.course_id, a.title AS assignment_title, p.name AS student_name").
		Joins("JOIN assignments a ON a.id = s.assignment_id").
		Joins("JOIN profiles p ON p.id = s.student_id").
		Where("a.course_id IN ? AND s.status = ? AND s.deleted_at IS NULL", courseIDs, model.SubmissionSubmitted).
		Order("s.submitted_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
