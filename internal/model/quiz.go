package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
)

// AutoGraded 选择题和判断题自动评分，其余需要教师人工评分
func (t QuestionType) AutoGraded() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
)

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	CourseID    uint       `gorm:"index;not null" json:"courseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	TimeLimit   int        `gorm:"default:0" json:"timeLimit"` // Minutes
	IsPublished bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatorID   uint       `gorm:"index" json:"creatorId"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	UUIDBase
	QuizID       string         `gorm:"index;type:varchar(36)" json:"quizId"`
	QuestionType QuestionType   `gorm:"size:50;not null" json:"questionType"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	Options      datatypes.JSON `json:"options,omitempty"`
	Answer       string         `gorm:"type:text" json:"-"`
	Points       int            `gorm:"default:0" json:"points"`
	Order        int            `gorm:"column:sort_order;default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	QuizID      string         `gorm:"index;type:varchar(36)" json:"quizId"`
	StudentID   uint           `gorm:"index" json:"studentId"`
	Answers     datatypes.JSON `json:"answers"`
	Score       int            `gorm:"default:0" json:"score"`
	MaxScore    int            `gorm:"default:0" json:"maxScore"`
	Status      AttemptStatus  `gorm:"size:20;index;default:'in_progress'" json:"status"`
	StartedAt   time.Time      `json:"startedAt"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
	GradedAt    *time.Time     `json:"gradedAt,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// AnswerMap 解析作答记录（question_id -> answer），格式错误时返回空 map
func (a *QuizAttempt) AnswerMap() map[string]string {
	answers := make(map[string]string)
	if len(a.Answers) == 0 {
		return answers
	}
	_ = json.Unmarshal(a.Answers, &answers)
	return answers
}

// QuizQuestionGrade 教师对主观题的人工评分
type QuizQuestionGrade struct {
	BaseModel
	AttemptID  string     `gorm:"uniqueIndex:idx_grade_attempt_question;type:varchar(36)" json:"attemptId"`
	QuestionID string     `gorm:"uniqueIndex:idx_grade_attempt_question;type:varchar(36)" json:"questionId"`
	Points     int        `json:"points"`
	GraderID   uint       `gorm:"index" json:"graderId"`
	Comment    string     `gorm:"type:text" json:"comment"`
	GradedAt   *time.Time `json:"gradedAt,omitempty"`
}

func (QuizQuestionGrade) TableName() string {
	return "quiz_question_grades"
}
