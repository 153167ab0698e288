package model

import "time"

type UserRole string

const (
	Student UserRole = "student"
	Faculty UserRole = "faculty"
	Admin   UserRole = "admin"
)

// swagger:model Profile
type Profile struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Avatar    string    `gorm:"size:255" json:"avatar"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `json:"lastLogin"`
	LastSeen  time.Time `json:"lastSeen"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) IsFaculty() bool {
	return p.Role == Faculty || p.Role == Admin
}
