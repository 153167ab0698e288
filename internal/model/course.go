package model

// swagger:model Course
type Course struct {
	BaseModel
	Code        string `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	FacultyID   uint   `gorm:"index;not null" json:"facultyId"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model CourseMaterial
type CourseMaterial struct {
	BaseModel
	CourseID    uint   `gorm:"index;not null" json:"courseId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	FileURL     string `gorm:"size:512" json:"fileUrl"`
	ObjectKey   string `gorm:"size:512" json:"-"`
	ContentType string `gorm:"size:100" json:"contentType"`
	Size        int64  `json:"size"`
	UploadedBy  uint   `gorm:"index" json:"uploadedBy"`
}

func (CourseMaterial) TableName() string {
	return "course_materials"
}
