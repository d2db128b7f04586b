package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrImportInProgress 同一（院系, 学期）已有导入在执行中
var ErrImportInProgress = errors.New("该院系学期的课表导入正在进行中，请稍后重试")

// ErrVenueSlotTaken 场地时段已被占用（数据库排除约束兜底）
var ErrVenueSlotTaken = errors.New("场地在该时段已被占用")
