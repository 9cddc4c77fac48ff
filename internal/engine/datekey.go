package engine

import "time"

// DateKey 标识事件/提醒归属的"应用日"，格式固定为 YYYY-MM-DD。
// 应用日不以午夜切换，而是以设置中的重置时刻切换。
type DateKey string

const dateKeyLayout = "2006-01-02"

// DateKeyAt 根据重置时刻计算 instant 所属的应用日。
// 当天墙钟时间早于重置时刻时归入前一日历日，跨月/跨年由 AddDate 正确回退。
func DateKeyAt(instant time.Time, resetHour, resetMinute int) DateKey {
	minutesOfDay := instant.Hour()*60 + instant.Minute()
	resetMinutes := resetHour*60 + resetMinute

	if minutesOfDay < resetMinutes {
		instant = instant.AddDate(0, 0, -1)
	}

	return DateKey(instant.Format(dateKeyLayout))
}

// Time 返回日期键对应的日历日零点，解析失败时返回 false。
func (k DateKey) Time(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateKeyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PrevReset 返回 instant 之前（含当下）最近一次重置边界。
func PrevReset(instant time.Time, resetHour, resetMinute int) time.Time {
	boundary := time.Date(instant.Year(), instant.Month(), instant.Day(), resetHour, resetMinute, 0, 0, instant.Location())
	if instant.Before(boundary) {
		boundary = boundary.AddDate(0, 0, -1)
	}
	return boundary
}

// NextReset 返回 instant 之后的下一次重置边界。
func NextReset(instant time.Time, resetHour, resetMinute int) time.Time {
	return PrevReset(instant, resetHour, resetMinute).AddDate(0, 0, 1)
}
