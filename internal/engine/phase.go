package engine

import (
	"math"
	"time"
)

// PhaseName 是一天中四个阶段的名称。
type PhaseName string

const (
	PhaseMorning   PhaseName = "morning"
	PhaseAfternoon PhaseName = "afternoon"
	PhaseEvening   PhaseName = "evening"
	PhaseNight     PhaseName = "night"
)

// PhaseOrder 按声明顺序列出四个阶段，夜晚跨入次日。
var PhaseOrder = [4]PhaseName{PhaseMorning, PhaseAfternoon, PhaseEvening, PhaseNight}

// ValidPhase 检查名称是否属于封闭集合。
func ValidPhase(name PhaseName) bool {
	for _, p := range PhaseOrder {
		if p == name {
			return true
		}
	}
	return false
}

// PhaseInterval 是半开区间 [Start, End)。
type PhaseInterval struct {
	Name  PhaseName
	Start time.Time
	End   time.Time
}

// Contains 判断 t 是否落在区间内。
func (p PhaseInterval) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// DayPhases 是某个应用日的四个阶段区间，计算后不再修改。
type DayPhases struct {
	DateKey   DateKey
	Intervals [4]PhaseInterval
}

// Interval 按名称查找阶段区间。
func (d DayPhases) Interval(name PhaseName) (PhaseInterval, bool) {
	for _, interval := range d.Intervals {
		if interval.Name == name {
			return interval, true
		}
	}
	return PhaseInterval{}, false
}

// 手动模式的默认阶段起点（自当日 00:00 的分钟数）。
const (
	defaultMorningStart   = 6 * 60
	defaultAfternoonStart = 12 * 60
	defaultEveningStart   = 18 * 60
	defaultNightStart     = 22 * 60
)

// ComputePhases 为给定日历日计算四个连续不重叠的阶段区间。
// loc 为 nil 或定位未启用时一律走手动/默认路径——这是约定的回退，不是错误。
func ComputePhases(date time.Time, settings Settings, loc *Location) DayPhases {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	key := DateKey(day.Format(dateKeyLayout))

	if settings.PhaseMode == PhaseModeAutoSolar && settings.LocationEnabled && loc != nil {
		return solarPhases(day, key, settings, *loc)
	}
	return manualPhases(day, key, settings)
}

func manualPhases(day time.Time, key DateKey, settings Settings) DayPhases {
	morning := minutesOr(settings.MorningStartMinutes, defaultMorningStart)
	afternoon := minutesOr(settings.AfternoonStartMinutes, defaultAfternoonStart)
	evening := minutesOr(settings.EveningStartMinutes, defaultEveningStart)
	night := minutesOr(settings.NightStartMinutes, defaultNightStart)

	starts := [4]time.Time{
		day.Add(time.Duration(morning) * time.Minute),
		day.Add(time.Duration(afternoon) * time.Minute),
		day.Add(time.Duration(evening) * time.Minute),
		day.Add(time.Duration(night) * time.Minute),
	}
	// 夜晚延伸到次日的早晨起点，保证四个区间正好覆盖 24 小时
	nightEnd := starts[0].AddDate(0, 0, 1)

	return DayPhases{
		DateKey: key,
		Intervals: [4]PhaseInterval{
			{Name: PhaseMorning, Start: starts[0], End: starts[1]},
			{Name: PhaseAfternoon, Start: starts[1], End: starts[2]},
			{Name: PhaseEvening, Start: starts[2], End: starts[3]},
			{Name: PhaseNight, Start: starts[3], End: nightEnd},
		},
	}
}

func minutesOr(value, fallback int) int {
	if value < 0 || value >= 24*60 {
		return fallback
	}
	return value
}

// PhaseStartsAscending 检查手动起点（含默认回退）是否严格递增。
// 不递增的起点会产生倒置或重叠的区间，设置更新时必须据此拒绝。
func PhaseStartsAscending(morning, afternoon, evening, night int) bool {
	m := minutesOr(morning, defaultMorningStart)
	a := minutesOr(afternoon, defaultAfternoonStart)
	e := minutesOr(evening, defaultEveningStart)
	n := minutesOr(night, defaultNightStart)
	return m < a && a < e && e < n
}

// 极地等退化纬度下的默认昼长占比：06:00 日出、18:00 日落。
const (
	fallbackSunriseMinutes = 6 * 60
	fallbackSunsetMinutes  = 18 * 60
)

func solarPhases(day time.Time, key DateKey, settings Settings, loc Location) DayPhases {
	sunrise, sunset := approximateSunTimes(day, loc.Latitude)
	noon := day.Add(12 * time.Hour)
	eveningEnd := sunset.Add(2 * time.Hour)

	// 夜晚在次日日出与次日重置边界中较早者结束
	nextSunrise, _ := approximateSunTimes(day.AddDate(0, 0, 1), loc.Latitude)
	nextReset := NextReset(eveningEnd, settings.ResetHour, settings.ResetMinute)
	nightEnd := nextReset
	if nextSunrise.Before(nightEnd) {
		nightEnd = nextSunrise
	}

	return DayPhases{
		DateKey: key,
		Intervals: [4]PhaseInterval{
			{Name: PhaseMorning, Start: sunrise, End: noon},
			{Name: PhaseAfternoon, Start: noon, End: sunset},
			{Name: PhaseEvening, Start: sunset, End: eveningEnd},
			{Name: PhaseNight, Start: eveningEnd, End: nightEnd},
		},
	}
}

// approximateSunTimes 用太阳赤纬近似计算当日日出/日落。
// arccos 自变量超出 [-1,1]（极昼/极夜纬度）时退回默认昼长占比，绝不产生 NaN。
func approximateSunTimes(day time.Time, latitude float64) (sunrise, sunset time.Time) {
	const degToRad = math.Pi / 180

	declination := 23.44 * math.Sin(degToRad*360.0*(284.0+float64(day.YearDay()))/365.0)
	cosHourAngle := -math.Tan(latitude*degToRad) * math.Tan(declination*degToRad)

	if cosHourAngle < -1 || cosHourAngle > 1 {
		sunrise = day.Add(time.Duration(fallbackSunriseMinutes) * time.Minute)
		sunset = day.Add(time.Duration(fallbackSunsetMinutes) * time.Minute)
		return sunrise, sunset
	}

	hourAngle := math.Acos(cosHourAngle) / degToRad
	halfDaylight := time.Duration(hourAngle / 15.0 * float64(time.Hour))

	noon := day.Add(12 * time.Hour)
	sunrise = noon.Add(-halfDaylight)
	sunset = noon.Add(halfDaylight)
	return sunrise, sunset
}
