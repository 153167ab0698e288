package repository

import (
	"ttrac_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(c *model.Course) error {
	return r.DB.Create(c).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var c model.Course
	if err := r.DB.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepository) ListByFaculty(facultyID uint) ([]model.Course, error) {
	var list []model.Course
	err := r.DB.Where("faculty_id = ?", facultyID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// ListApprovedForStudent 学生已通过审核的课程
func (r *CourseRepository) ListApprovedForStudent(studentID uint) ([]model.Course, error) {
	var list []model.Course
	err := r.DB.Joins("JOIN enrollments e ON e.course_id = courses.id AND e.deleted_at IS NULL").
		Where("e.student_id = ? AND e.status = ?", studentID, model.EnrollmentApproved).
		Order("courses.title").
		Find(&list).Error
	return list, err
}

func (r *CourseRepository) CreateMaterial(m *model.CourseMaterial) error {
	return r.DB.Create(m).Error
}

func (r *CourseRepository) FindMaterial(id uint) (*model.CourseMaterial, error) {
	var m model.CourseMaterial
	if err := r.DB.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *CourseRepository) ListMaterials(courseID uint) ([]model.CourseMaterial, error) {
	var list []model.CourseMaterial
	err := r.DB.Where("course_id = ?", courseID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *CourseRepository) DeleteMaterial(id uint) error {
	return r.DB.Delete(&model.CourseMaterial{}, id).Error
}
