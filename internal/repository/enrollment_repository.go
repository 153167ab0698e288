package repository

import (
	"time"
	"ttrac_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(e *model.Enrollment) error {
	return r.DB.Create(e).Error
}

func (r *EnrollmentRepository) Save(e *model.Enrollment) error {
	return r.DB.Omit(clause.Associations).Save(e).Error
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := r.DB.Preload("Course").First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByStudentAndCourse(studentID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.Where("student_id = ? AND course_id = ?", studentID, courseID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) IsApproved(studentID, courseID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND status = ?", studentID, courseID, model.EnrollmentApproved).
		Count(&count).Error
	return count > 0, err
}

func (r *EnrollmentRepository) ListByStudent(studentID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.Preload("Course").Where("student_id = ?", studentID).Order("updated_at DESC").Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) ListByCourse(courseID uint, status string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	q := r.DB.Preload("Student").Where("course_id = ?", courseID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) ApprovedStudentIDs(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, model.EnrollmentApproved).
		Pluck("student_id", &ids).Error
	return ids, err
}

// EnrollmentActivity 待审核的选课申请，通知生成器使用
type EnrollmentActivity struct {
	EnrollmentID uint
	RequestedAt  time.Time
	CourseID     uint
	CourseTitle  string
	StudentName  string
}

func (r *EnrollmentRepository) RecentPendingForCourses(courseIDs []uint, limit int) ([]EnrollmentActivity, error) {
	var rows []EnrollmentActivity
	if len(courseIDs) == 0 {
		return rows, nil
	}
	err := r.DB.Table("enrollments e").
		Select("e.id AS enrollment_id, e.requested_at, e.course_id, c.title AS course_title, p.name AS student_name").
		Joins("JOIN courses c ON c.id = e.course_id").
		Joins("JOIN profiles p ON p.id = e.student_id").
		Where("e.course_id IN ? AND e.status = ? AND e.deleted_at IS NULL", courseIDs, model.EnrollmentPending).
		Order("e.requested_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
