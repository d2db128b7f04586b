package dto

// ── 课表导入模块 DTO ──

// SheetRow 代表性周模式的一行（已解析的电子表格行）
// 结构性缺字段（科目/星期/时间为空）的行在导入时静默跳过；
// 教师邮箱无法解析则收集为告警
type SheetRow struct {
	Subject      string `json:"subject"`
	TeacherEmail string `json:"teacher_email"`
	Day          string `json:"day"`
	StartTime    string `json:"start_time"` // HH:MM
	EndTime      string `json:"end_time"`   // HH:MM
}

// Sheet 一个命名工作表（表名携带周范围，如 "Week 6" / "Weeks 1-5"）
type Sheet struct {
	Name string     `json:"name" binding:"required"`
	Rows []SheetRow `json:"rows"`
}

// ImportTermRequest 学期课表导入请求
type ImportTermRequest struct {
	Department string  `json:"department" binding:"required,min=1,max=100"`
	Term       string  `json:"term"       binding:"required,min=1,max=50"`
	TermStart  string  `json:"term_start" binding:"required,datetime=2006-01-02"`
	TermEnd    string  `json:"term_end"   binding:"required,datetime=2006-01-02"`
	Sheets     []Sheet `json:"sheets"     binding:"required,min=1"`
}

// ImportTermResponse 导入结果
type ImportTermResponse struct {
	EntriesCreated int      `json:"entries_created"`
	ClassesUpserted int     `json:"classes_upserted"`
	Warnings       []string `json:"warnings,omitempty"`
}

// PreviewImportRequest 导入预检请求（不落库）
type PreviewImportRequest struct {
	Sheets []Sheet `json:"sheets" binding:"required,min=1"`
}

// SheetPreview 单工作表预检结果
type SheetPreview struct {
	Name      string `json:"name"`
	WeekStart int    `json:"week_start"`
	WeekEnd   int    `json:"week_end"`
	RowCount  int    `json:"row_count"`
}

// PreviewImportResponse 导入预检响应
type PreviewImportResponse struct {
	Sheets   []SheetPreview `json:"sheets"`
	Warnings []string       `json:"warnings,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
}

// EntryListRequest 课表条目查询参数
type EntryListRequest struct {
	Department string `form:"department" binding:"required"`
	Term       string `form:"term"       binding:"omitempty"`
	Week       *int   `form:"week"       binding:"omitempty,min=1"`
	TeacherID  string `form:"teacher_id" binding:"omitempty,uuid"`
	PaginationRequest
}

// ReplacementBrief 代课简要信息
type ReplacementBrief struct {
	TeacherID  *string `json:"teacher_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	AssignedBy *string `json:"assigned_by,omitempty"`
	AssignedAt string  `json:"assigned_at,omitempty"`
}

// EntryResponse 课表条目响应
type EntryResponse struct {
	ID          string            `json:"id"`
	Subject     string            `json:"subject"`
	Teacher     *UserBrief        `json:"teacher,omitempty"`
	Department  string            `json:"department"`
	DayOfWeek   string            `json:"day_of_week"`
	StartTime   string            `json:"start_time"`
	EndTime     string            `json:"end_time"`
	Venue       *VenueBrief       `json:"venue,omitempty"`
	Term        string            `json:"term,omitempty"`
	WeekNumber  *int              `json:"week_number,omitempty"`
	StartDate   string            `json:"start_date,omitempty"`
	EndDate     string            `json:"end_date,omitempty"`
	Replacement *ReplacementBrief `json:"replacement,omitempty"`
	Archived    bool              `json:"archived"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// ClassResponse 自动派生课程响应
type ClassResponse struct {
	ID            string     `json:"id"`
	Subject       string     `json:"subject"`
	Teacher       *UserBrief `json:"teacher,omitempty"`
	Department    string     `json:"department"`
	CreditWeight  int        `json:"credit_weight"`
	PatternDays   []string   `json:"pattern_days"`
	EnrolledCount int        `json:"enrolled_count"`
	AutoGenerated bool       `json:"auto_generated"`
}

// AssignReplacementRequest 安排代课请求
// 三个字段全部为空等价于清除代课（整体覆盖，非字段级合并）
type AssignReplacementRequest struct {
	SubstituteID *string `json:"substitute_id" binding:"omitempty,uuid"`
	Name         string  `json:"name"          binding:"omitempty,max=100"`
	Reason       string  `json:"reason"        binding:"omitempty,max=500"`
}
