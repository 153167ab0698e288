package model

import "time"

type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// swagger:model Assignment
type Assignment struct {
	BaseModel
	CourseID    uint       `gorm:"index;not null" json:"courseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	MaxPoints   int        `gorm:"default:100" json:"maxPoints"`
	IsPublished bool       `gorm:"default:false" json:"isPublished"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// swagger:model AssignmentSubmission
type AssignmentSubmission struct {
	BaseModel
	AssignmentID uint             `gorm:"uniqueIndex:idx_submission_assignment_student;not null" json:"assignmentId"`
	StudentID    uint             `gorm:"uniqueIndex:idx_submission_assignment_student;not null" json:"studentId"`
	Content      string           `gorm:"type:text" json:"content"`
	FileURL      string           `gorm:"size:512" json:"fileUrl"`
	Status       SubmissionStatus `gorm:"size:20;index;default:'draft'" json:"status"`
	Grade        *int             `json:"grade,omitempty"`
	Feedback     string           `gorm:"type:text" json:"feedback"`
	SubmittedAt  *time.Time       `json:"submittedAt,omitempty"`
	GradedAt     *time.Time       `json:"gradedAt,omitempty"`

	Assignment *Assignment `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}
