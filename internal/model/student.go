package model

// Student 学生表 — 对应 students
type Student struct {
	StudentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	CenterID  string `gorm:"type:uuid;not null;index"                       json:"center_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// Enrollment 报名表 — 对应 enrollments，(student_id, group_id) 唯一
// 考勤记录挂在报名上而不是学生上
type Enrollment struct {
	EnrollmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"  json:"enrollment_id"`
	StudentID    string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollments_student_group" json:"student_id"`
	GroupID      string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollments_student_group" json:"group_id"`
	IsActive     bool   `gorm:"not null;default:true"                           json:"is_active"`
	BaseModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
	Group   *Group   `gorm:"foreignKey:GroupID;references:GroupID"     json:"group,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
