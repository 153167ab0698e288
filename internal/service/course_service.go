package service

import (
	"context"
	"fmt"
	"io"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/util"
	"ttrac_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	Repo          *repository.CourseRepository
	Access        *CourseAccess
	Storage       *StorageService
	Notifications *NotificationService
}

func NewCourseService(repo *repository.CourseRepository, access *CourseAccess, storage *StorageService, notifications *NotificationService) *CourseService {
	return &CourseService{Repo: repo, Access: access, Storage: storage, Notifications: notifications}
}

type CreateCourseReq struct {
	Code        string `json:"code" validate:"required,max=32"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
}

func (s *CourseService) Create(actor Actor, req CreateCourseReq) (*model.Course, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	c := &model.Course{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		FacultyID:   actor.ID,
	}
	if err := s.Repo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListMine 教师返回自己开设的课程，学生返回已通过审核的课程
func (s *CourseService) ListMine(actor Actor) ([]model.Course, error) {
	if actor.Role == model.Student {
		return s.Repo.ListApprovedForStudent(actor.ID)
	}
	return s.Repo.ListByFaculty(actor.ID)
}

type MaterialUpload struct {
	Title       string `validate:"required,max=255"`
	Filename    string `validate:"required"`
	ContentType string
	Size        int64 `validate:"gt=0"`
	Reader      io.Reader
}

func (s *CourseService) UploadMaterial(ctx context.Context, actor Actor, courseID uint, up MaterialUpload) (*model.CourseMaterial, error) {
	if err := util.ValidateStruct(up); err != nil {
		return nil, err
	}
	course, err := s.Access.Owned(courseID, actor)
	if err != nil {
		return nil, err
	}

	key := util.MaterialObjectKey(courseID, up.Filename)
	url, err := s.Storage.Put(ctx, key, up.Reader, up.Size, up.ContentType)
	if err != nil {
		return nil, errors.Wrap(err, "store material")
	}

	m := &model.CourseMaterial{
		CourseID:    courseID,
		Title:       up.Title,
		FileURL:     url,
		ObjectKey:   key,
		ContentType: up.ContentType,
		Size:        up.Size,
		UploadedBy:  actor.ID,
	}
	if err := s.Repo.CreateMaterial(m); err != nil {
		if rmErr := s.Storage.Remove(ctx, key); rmErr != nil {
			logger.Log.Warn("Remove orphan object failed", zap.Error(rmErr), zap.String("key", key))
		}
		return nil, err
	}

	studentIDs, err := s.Access.Enrollments.ApprovedStudentIDs(courseID)
	if err == nil {
		for _, id := range studentIDs {
			courseRef := course.ID
			s.Notifications.NotifyQuietly(ctx, &model.Notification{
				UserID:    id,
				Title:     "New course material",
				Message:   fmt.Sprintf("%s: %s", course.Title, m.Title),
				Type:      model.NotificationAnnouncement,
				Origin:    model.OriginSystem,
				SourceKey: model.SourceKey("material", m.ID),
				CourseID:  &courseRef,
			})
		}
	}
	return m, nil
}

func (s *CourseService) ListMaterials(actor Actor, courseID uint) ([]model.CourseMaterial, error) {
	if _, err := s.Access.Member(courseID, actor); err != nil {
		return nil, err
	}
	return s.Repo.ListMaterials(courseID)
}

// DeleteMaterial 先删对象再删记录，对象删除失败时保留记录以便重试
func (s *CourseService) DeleteMaterial(ctx context.Context, actor Actor, materialID uint) error {
	m, err := s.Repo.FindMaterial(materialID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrMaterialNotFound
	}
	if err != nil {
		return err
	}
	if _, err := s.Access.Owned(m.CourseID, actor); err != nil {
		return err
	}
	if err := s.Storage.Remove(ctx, m.ObjectKey); err != nil {
		return errors.Wrap(err, "remove material object")
	}
	return s.Repo.DeleteMaterial(m.ID)
}
