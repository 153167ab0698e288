package service

import (
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Actor 当前操作人，来自 JWT
type Actor struct {
	ID   uint
	Role model.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.Admin
}

// CourseAccess 课程级权限校验：教师只能操作自己的课程，学生只能访问已通过审核的课程
type CourseAccess struct {
	Courses     *repository.CourseRepository
	Enrollments *repository.EnrollmentRepository
}

func NewCourseAccess(courses *repository.CourseRepository, enrollments *repository.EnrollmentRepository) *CourseAccess {
	return &CourseAccess{Courses: courses, Enrollments: enrollments}
}

func (a *CourseAccess) Course(courseID uint) (*model.Course, error) {
	course, err := a.Courses.FindByID(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

func (a *CourseAccess) Owned(courseID uint, actor Actor) (*model.Course, error) {
	course, err := a.Course(courseID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || course.FacultyID == actor.ID {
		return course, nil
	}
	return nil, util.ErrNotCourseOwner
}

func (a *CourseAccess) Member(courseID uint, actor Actor) (*model.Course, error) {
	course, err := a.Course(courseID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || course.FacultyID == actor.ID {
		return course, nil
	}
	ok, err := a.Enrollments.IsApproved(actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotEnrolled
	}
	return course, nil
}
