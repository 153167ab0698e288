package repository

import (
	"time"
	"ttrac_backend/internal/model"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) Create(p *model.Profile) error {
	return r.DB.Create(p).Error
}

func (r *ProfileRepository) FindByID(id uint) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) FindByEmail(email string) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.Where("email = ?", email).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) FindByIDs(ids []uint) ([]model.Profile, error) {
	var list []model.Profile
	if len(ids) == 0 {
		return list, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *ProfileRepository) ListFacultyIDs() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Profile{}).
		Where("role = ? AND disabled = ?", model.Faculty, false).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *ProfileRepository) UpdateLastLogin(id uint) error {
	return r.DB.Model(&model.Profile{}).Where("id = ?", id).Update("last_login", time.Now()).Error
}

// UpdateLastSeen 实现 middleware.UserActivityRepo
func (r *ProfileRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.Profile{}).Where("id = ?", userID).Update("last_seen", time.Now()).Error
}
