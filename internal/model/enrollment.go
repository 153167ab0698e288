package model

import (
	"fmt"
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentApproved EnrollmentStatus = "approved"
	EnrollmentDeclined EnrollmentStatus = "declined"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	StudentID   uint             `gorm:"uniqueIndex:idx_enrollment_student_course;not null" json:"studentId"`
	CourseID    uint             `gorm:"uniqueIndex:idx_enrollment_student_course;not null" json:"courseId"`
	Status      EnrollmentStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	RequestedAt time.Time        `gorm:"index" json:"requestedAt"`
	DecidedBy   *uint            `json:"decidedBy,omitempty"`
	DecidedAt   *time.Time       `json:"decidedAt,omitempty"`

	Student *Profile `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Course  *Course  `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// EnrollmentRequestKey 选课申请通知的 source_key，申请本身和通知生成器共用。
// 带上申请时间，被拒绝后重新申请会得到新的通知
func EnrollmentRequestKey(enrollmentID uint, requestedAt time.Time) *string {
	return SourceKey("enrollment", fmt.Sprintf("%d:%d", enrollmentID, requestedAt.UnixMilli()))
}

// CanTransition 允许的状态流转：pending→approved/declined，declined→pending（重新申请）
func (s EnrollmentStatus) CanTransition(to EnrollmentStatus) bool {
	switch s {
	case EnrollmentPending:
		return to == EnrollmentApproved || to == EnrollmentDeclined
	case EnrollmentDeclined:
		return to == EnrollmentPending
	}
	return false
}
