package model

import "time"

type NotificationType string

const (
	NotificationAssignment   NotificationType = "assignment"
	NotificationGrade        NotificationType = "grade"
	NotificationAnnouncement NotificationType = "announcement"
	NotificationQuiz         NotificationType = "quiz"
	NotificationEnrollment   NotificationType = "enrollment"
)

// NotificationOrigin 记录创建来源，用来区分真实通知和测试/种子数据
type NotificationOrigin string

const (
	OriginSystem NotificationOrigin = "system"
	OriginManual NotificationOrigin = "manual"
	OriginSeed   NotificationOrigin = "seed"
	OriginTest   NotificationOrigin = "test"
)

// Synthetic 种子和测试数据不展示给用户；空值表示历史数据，来源未知
func (o NotificationOrigin) Synthetic() bool {
	return o == OriginSeed || o == OriginTest
}

// swagger:model Notification
type Notification struct {
	UUIDBase
	UserID  uint               `gorm:"not null;index;uniqueIndex:idx_notification_user_source" json:"userId"`
	Title   string             `gorm:"size:255;not null" json:"title"`
	Message string             `gorm:"type:text" json:"message"`
	Type    NotificationType   `gorm:"size:20;index" json:"type"`
	Read    bool               `gorm:"column:is_read;default:false;index" json:"read"`
	ReadAt  *time.Time         `json:"readAt,omitempty"`
	Origin  NotificationOrigin `gorm:"size:20" json:"origin"`
	// SourceKey 标识生成通知的业务事件，(user_id, source_key) 唯一
	SourceKey *string `gorm:"size:128;uniqueIndex:idx_notification_user_source" json:"sourceKey,omitempty"`

	CourseID     *uint   `gorm:"index" json:"courseId,omitempty"`
	AssignmentID *uint   `json:"assignmentId,omitempty"`
	QuizID       *string `gorm:"type:varchar(36)" json:"quizId,omitempty"`
	EnrollmentID *uint   `json:"enrollmentId,omitempty"`
	SubmissionID *uint   `json:"submissionId,omitempty"`
	AttemptID    *string `gorm:"type:varchar(36)" json:"attemptId,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

func SourceKey(kind string, id interface{}) *string {
	key := kind + ":" + toString(id)
	return &key
}
