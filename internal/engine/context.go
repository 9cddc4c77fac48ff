package engine

import "time"

// ReminderState 是提醒的生命周期状态，转移是单调的：
// 离开 scheduled 后不再回到 scheduled，小睡通过新建实体表达。
type ReminderState string

const (
	ReminderScheduled ReminderState = "scheduled"
	ReminderFired     ReminderState = "fired"
	ReminderCanceled  ReminderState = "canceled"
	ReminderExpired   ReminderState = "expired"
	ReminderCompleted ReminderState = "completed"
	ReminderSkipped   ReminderState = "skipped"
	ReminderSnoozed   ReminderState = "snoozed"
)

// Completion 是引擎视角下的一次习惯完成事件。
type Completion struct {
	ID             uint
	HabitID        uint
	At             time.Time
	DateKey        DateKey
	LateCorrection bool
}

// Reminder 是引擎视角下的一条提醒。
type Reminder struct {
	ID         uint
	HabitID    uint
	RuleID     uint
	DateKey    DateKey
	FireAt     time.Time
	ExpiresAt  time.Time
	Handle     string
	State      ReminderState
	Priority   int
	TemplateID string
}

// ReturnHook 是引擎视角下的一条回访钩子。
type ReturnHook struct {
	ID        uint
	Prompt    string
	DateKey   DateKey
	Responded bool
}

// Context 是一次求值的不可变快照。派生查询都是纯投影，不做缓存。
type Context struct {
	DateKey     DateKey
	Now         time.Time
	Phases      DayPhases
	Completions []Completion
	Reminders   []Reminder
	ReturnHooks []ReturnHook
	Settings    Settings
}

// BuildContext 由"现在"与设置推出日期键和阶段区间，组装求值快照。
// loc 为 nil 表示定位不可用，阶段计算回退到手动模式。
func BuildContext(now time.Time, settings Settings, loc *Location, completions []Completion, reminders []Reminder, hooks []ReturnHook) Context {
	key := DateKeyAt(now, settings.ResetHour, settings.ResetMinute)
	day, ok := key.Time(now.Location())
	if !ok {
		day = now
	}

	return Context{
		DateKey:     key,
		Now:         now,
		Phases:      ComputePhases(day, settings, loc),
		Completions: completions,
		Reminders:   reminders,
		ReturnHooks: hooks,
		Settings:    settings,
	}
}

// DateKeyFor 用快照中的设置为任意时刻计算日期键，供跨午夜的同日判断使用。
func (c Context) DateKeyFor(t time.Time) DateKey {
	return DateKeyAt(t, c.Settings.ResetHour, c.Settings.ResetMinute)
}

// CompletionsFor 返回指定习惯今天的完成事件。
func (c Context) CompletionsFor(habitID uint) []Completion {
	var out []Completion
	for _, completion := range c.Completions {
		if completion.HabitID == habitID {
			out = append(out, completion)
		}
	}
	return out
}

// IsCompleted 判断习惯今天是否完成过。
func (c Context) IsCompleted(habitID uint) bool {
	for _, completion := range c.Completions {
		if completion.HabitID == habitID {
			return true
		}
	}
	return false
}

// CompletionCount 返回习惯今天的完成次数。
func (c Context) CompletionCount(habitID uint) int {
	count := 0
	for _, completion := range c.Completions {
		if completion.HabitID == habitID {
			count++
		}
	}
	return count
}

// MostRecentCompletion 返回习惯最近一次完成事件。
func (c Context) MostRecentCompletion(habitID uint) (Completion, bool) {
	var latest Completion
	found := false
	for _, completion := range c.Completions {
		if completion.HabitID != habitID {
			continue
		}
		if !found || completion.At.After(latest.At) {
			latest = completion
			found = true
		}
	}
	return latest, found
}

// CompletedWithin 判断习惯是否在最近 minutes 分钟内完成过，恰好 N 分钟视为满足。
func (c Context) CompletedWithin(habitID uint, minutes int) bool {
	latest, found := c.MostRecentCompletion(habitID)
	if !found {
		return false
	}
	cutoff := c.Now.Add(-time.Duration(minutes) * time.Minute)
	return !latest.At.Before(cutoff)
}

// CompletedInPhase 判断习惯是否在指定阶段区间内完成过。
func (c Context) CompletedInPhase(habitID uint, phase PhaseName) bool {
	interval, ok := c.Phases.Interval(phase)
	if !ok {
		return false
	}
	for _, completion := range c.Completions {
		if completion.HabitID == habitID && interval.Contains(completion.At) {
			return true
		}
	}
	return false
}

// CurrentPhase 返回包含"现在"的阶段区间。
// 区间连续覆盖全天时总能命中；快照与时刻不一致时按"无匹配"处理。
func (c Context) CurrentPhase() (PhaseInterval, bool) {
	for _, interval := range c.Phases.Intervals {
		if interval.Contains(c.Now) {
			return interval, true
		}
	}
	return PhaseInterval{}, false
}

// ScheduledReminderCount 返回当前仍处于 scheduled 状态的提醒数。
func (c Context) ScheduledReminderCount() int {
	count := 0
	for _, reminder := range c.Reminders {
		if reminder.State == ReminderScheduled {
			count++
		}
	}
	return count
}

// PendingReturnHooks 返回尚未响应的回访钩子。
func (c Context) PendingReturnHooks() []ReturnHook {
	var out []ReturnHook
	for _, hook := range c.ReturnHooks {
		if !hook.Responded {
			out = append(out, hook)
		}
	}
	return out
}
