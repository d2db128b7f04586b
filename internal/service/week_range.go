package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
)

// WeekRange 闭区间周范围 [Start, End]
// End < Start 合法，表示空范围（一周都不展开）
type WeekRange struct {
	Start int
	End   int
}

// IsEmpty 是否为空范围
func (r WeekRange) IsEmpty() bool { return r.End < r.Start }

// Contains 周数是否落在范围内
func (r WeekRange) Contains(week int) bool { return week >= r.Start && week <= r.End }

var weekRangePattern = regexp.MustCompile(`^(?i)weeks?\s+(\d+)(?:\s*-\s*(\d+))?$`)

// ParseWeekRange 解析工作表名中的周范围标签。
// 识别两种形态："Week 6" → {6,6}；"Weeks 1-5" → {1,5}。大小写不敏感。
// 其余形态返回 ok=false（非错误，调用方记告警后跳过该表）。
func ParseWeekRange(label string) (WeekRange, bool) {
	m := weekRangePattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return WeekRange{}, false
	}
	start, err := strconv.Atoi(m[1])
	if err != nil || start <= 0 {
		return WeekRange{}, false
	}
	end := start
	if m[2] != "" {
		end, err = strconv.Atoi(m[2])
		if err != nil || end <= 0 {
			return WeekRange{}, false
		}
	}
	return WeekRange{Start: start, End: end}, true
}

// canonicalDays 七个规范星期键（存储与比较的唯一形态）
var canonicalDays = []string{
	model.DaySunday,
	model.DayMonday,
	model.DayTuesday,
	model.DayWednesday,
	model.DayThursday,
	model.DayFriday,
	model.DaySaturday,
}

// NormalizeDay 将任意写法的星期标签规范化为七个小写键之一。
// 大小写不敏感；3 个及以上字母的前缀匹配可接受（"Mon" → "monday"）。
// 规范化是强制步骤：冲突检测与考勤窗口只比较规范键，不看原始输入。
func NormalizeDay(raw string) (string, bool) {
	in := strings.ToLower(strings.TrimSpace(raw))
	if in == "" {
		return "", false
	}
	for _, day := range canonicalDays {
		if in == day {
			return day, true
		}
		if len(in) >= 3 && strings.HasPrefix(day, in) {
			return day, true
		}
	}
	return "", false
}

// NormalizeClock 将挂钟时间规范化为零填充 "HH:MM"。
// 规范形态保证字符串字典序与时间序一致，后续区间比较直接用 < 。
func NormalizeClock(raw string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 3)
	if len(parts) < 2 {
		return "", false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// overlaps 半开区间 [s1,e1) 与 [s2,e2) 是否重叠。
// 边界相接（10:00 结束 + 10:00 开始）不算重叠。
func overlaps(s1, e1, s2, e2 string) bool {
	return s1 < e2 && s2 < e1
}
