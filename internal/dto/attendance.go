package dto

// ── 考勤模块 DTO ──

// MarkAttendanceRequest 考勤提交请求
type MarkAttendanceRequest struct {
	ClassID   string `json:"class_id"   binding:"required,uuid"`
	StudentID string `json:"student_id" binding:"required,uuid"`
	Status    string `json:"status"     binding:"required,oneof=present absent late"`
}

// CanMarkAttendanceRequest 考勤窗口查询参数
type CanMarkAttendanceRequest struct {
	TeacherID string `form:"teacher_id" binding:"required,uuid"`
	ClassID   string `form:"class_id"   binding:"required,uuid"`
}

// CanMarkAttendanceResponse 考勤窗口查询响应
type CanMarkAttendanceResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// AttendanceResponse 考勤记录响应
type AttendanceResponse struct {
	ID          string `json:"id"`
	ClassID     string `json:"class_id"`
	StudentID   string `json:"student_id"`
	SessionDate string `json:"session_date"`
	Status      string `json:"status"`
	MarkedBy    string `json:"marked_by,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
