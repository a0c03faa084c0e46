package model

// Group 班级表 — 对应 class_groups
// 班级、学生、报名与课表均由名册管理维护，考勤模块只读
type Group struct {
	GroupID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"group_id"`
	CenterID string `gorm:"type:uuid;not null;index"                       json:"center_id"`
	Name     string `gorm:"type:varchar(100);not null"                     json:"name"`
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联
	Schedules []GroupSchedule `gorm:"foreignKey:GroupID;references:GroupID" json:"schedules,omitempty"`
}

// TableName 指定表名
func (Group) TableName() string { return "class_groups" }

// GroupSchedule 班级每周课表 — 对应 group_schedules
type GroupSchedule struct {
	ScheduleID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	GroupID    string `gorm:"type:uuid;not null;index"                       json:"group_id"`
	Weekday    string `gorm:"type:varchar(10);not null"                      json:"weekday"` // Monday … Sunday
	StartTime  string `gorm:"type:time;not null"                             json:"start_time"`
	EndTime    string `gorm:"type:time;not null"                             json:"end_time"`
	SortOrder  int    `gorm:"not null;default:0"                             json:"sort_order"`
	BaseModel
}

// TableName 指定表名
func (GroupSchedule) TableName() string { return "group_schedules" }
