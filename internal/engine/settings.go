package engine

// PhaseModeAutoSolar / PhaseModeManual 是阶段计算的两种模式。
const (
	PhaseModeAutoSolar = "auto_solar"
	PhaseModeManual    = "manual"
)

// ToneGentleCoach 是当前唯一支持的提醒语气。
const ToneGentleCoach = "gentle_coach"

// Settings 是引擎求值所需的用户设置快照。
// 字段与持久化层的 UserSettings 对应，但引擎只读取值，不关心存储。
type Settings struct {
	ResetHour       int
	ResetMinute     int
	DailyCap        int
	CooldownMinutes int
	PhaseMode       string
	// 手动模式下各阶段起始时刻（分钟数，自当日 00:00 起），-1 表示使用默认值。
	MorningStartMinutes   int
	AfternoonStartMinutes int
	EveningStartMinutes   int
	NightStartMinutes     int
	Tone                  string
	LocationEnabled       bool
}

// DefaultSettings 返回与产品默认一致的设置：02:00 重置、每日 8 条、冷却 45 分钟。
func DefaultSettings() Settings {
	return Settings{
		ResetHour:             2,
		ResetMinute:           0,
		DailyCap:              8,
		CooldownMinutes:       45,
		PhaseMode:             PhaseModeManual,
		MorningStartMinutes:   -1,
		AfternoonStartMinutes: -1,
		EveningStartMinutes:   -1,
		NightStartMinutes:     -1,
		Tone:                  ToneGentleCoach,
	}
}

// Location 是可选的地理坐标，用于日出日落近似。
type Location struct {
	Latitude  float64
	Longitude float64
}
