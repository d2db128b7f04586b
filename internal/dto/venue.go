package dto

// ── 场地模块 DTO ──

// CreateVenueRequest 创建场地请求
type CreateVenueRequest struct {
	Name        string `json:"name"         binding:"required,min=1,max=100"`
	Location    string `json:"location"     binding:"omitempty,max=200"`
	Capacity    int    `json:"capacity"     binding:"omitempty,min=0"`
	IsAvailable *bool  `json:"is_available"`
}

// UpdateVenueRequest 更新场地请求
type UpdateVenueRequest struct {
	Name        *string `json:"name"         binding:"omitempty,min=1,max=100"`
	Location    *string `json:"location"     binding:"omitempty,max=200"`
	Capacity    *int    `json:"capacity"     binding:"omitempty,min=0"`
	IsAvailable *bool   `json:"is_available"`
}

// AssignVenueRequest 为课表条目分配场地请求
type AssignVenueRequest struct {
	VenueID string `json:"venue_id" binding:"required,uuid"`
}

// AvailableVenuesRequest 空闲场地查询参数
type AvailableVenuesRequest struct {
	Day       string `form:"day"        binding:"required"`
	StartTime string `form:"start_time" binding:"required"`
	EndTime   string `form:"end_time"   binding:"required"`
	Term      string `form:"term"       binding:"omitempty"`
	Week      *int   `form:"week"       binding:"omitempty,min=1"`
	ClassID   string `form:"class_id"   binding:"omitempty,uuid"`
}

// VenueBrief 场地简要信息
type VenueBrief struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// VenueResponse 场地信息响应
type VenueResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Capacity    int    `json:"capacity"`
	IsAvailable bool   `json:"is_available"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// VenueConflictResponse 场地冲突响应（供调用方自行纠正）
type VenueConflictResponse struct {
	ConflictingEntry *EntryResponse `json:"conflicting_entry,omitempty"`
	Suggestions      []VenueBrief   `json:"suggestions,omitempty"`
}
