package main

import (
	"fmt"
	"log"

	"github.com/habitloop/internal/config"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"github.com/habitloop/internal/service"
)

// 演示数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成演示数据...")

	habits := createDemoHabits()
	createDemoRules(habits)

	fmt.Println("演示数据生成完成")
}

func createDemoHabits() map[string]db.Habit {
	habitService := service.NewHabitService(db.DB)
	inputs := []struct {
		key   string
		habit db.Habit
	}{
		{key: "water", habit: db.Habit{Title: "喝水", Category: db.CategoryHealth, DefaultPhase: string(engine.PhaseMorning), Active: true}},
		{key: "meal", habit: db.Habit{Title: "按时吃饭", Category: db.CategoryHealth, DefaultPhase: string(engine.PhaseAfternoon), Active: true}},
		{key: "supplements", habit: db.Habit{Title: "吃补剂", Category: db.CategoryHealth, DefaultPhase: string(engine.PhaseAfternoon), Active: true}},
		{key: "journal", habit: db.Habit{Title: "写日记", Category: db.CategoryMind, DefaultPhase: string(engine.PhaseNight), Active: true}},
	}

	created := make(map[string]db.Habit, len(inputs))
	for _, item := range inputs {
		var existing db.Habit
		if err := db.DB.Where("title = ?", item.habit.Title).First(&existing).Error; err == nil {
			created[item.key] = existing
			continue
		}

		habit, err := habitService.Create(serviceHabitInput(item.habit))
		if err != nil {
			log.Fatalf("创建习惯 %s 失败: %v", item.habit.Title, err)
		}
		created[item.key] = *habit
		fmt.Printf("创建习惯: %s\n", habit.Title)
	}
	return created
}

func serviceHabitInput(habit db.Habit) service.HabitInput {
	return service.HabitInput{
		Title:        habit.Title,
		Category:     habit.Category,
		DefaultPhase: habit.DefaultPhase,
		Active:       habit.Active,
	}
}

func createDemoRules(habits map[string]db.Habit) {
	rules := service.NewRuleService(db.DB)

	// 早段开始提醒喝水
	mustCreateRule(rules, service.RuleInput{
		HabitID: habits["water"].ID,
		Enabled: true,
		Trigger: engine.PhaseStartTrigger{Phase: engine.PhaseMorning},
		Conditions: []engine.Condition{
			engine.NotCompletedTodayCondition{HabitID: habits["water"].ID},
		},
		Actions: []engine.Action{
			engine.NotifyAction{HabitID: habits["water"].ID, TemplateID: "water_morning", Priority: 3},
		},
	})

	// 吃饭完成 30 分钟后提醒吃补剂（仅限同一应用日）
	mustCreateRule(rules, service.RuleInput{
		HabitID: habits["supplements"].ID,
		Enabled: true,
		Trigger: engine.AfterCompletionTrigger{
			HabitID:       habits["meal"].ID,
			OffsetMinutes: 30,
			SameDayOnly:   true,
		},
		Conditions: []engine.Condition{
			engine.NotCompletedTodayCondition{HabitID: habits["supplements"].ID},
		},
		Actions: []engine.Action{
			engine.NotifyAction{HabitID: habits["supplements"].ID, TemplateID: "supplements_after_meal", Priority: 5},
		},
	})

	// 晚段进入 60 分钟仍未写日记则提醒
	mustCreateRule(rules, service.RuleInput{
		HabitID: habits["journal"].ID,
		Enabled: true,
		Trigger: engine.MinutesIntoPhaseTrigger{Phase: engine.PhaseNight, Minutes: 60},
		Conditions: []engine.Condition{
			engine.NotCompletedTodayCondition{HabitID: habits["journal"].ID},
		},
		Actions: []engine.Action{
			engine.NotifyAction{HabitID: habits["journal"].ID, TemplateID: "journal_night", Priority: 2},
		},
	})
}

func mustCreateRule(rules *service.RuleService, input service.RuleInput) {
	rule, err := rules.Create(input)
	if err != nil {
		log.Fatalf("创建规则失败: %v", err)
	}
	fmt.Printf("创建规则: #%d (habit %d)\n", rule.ID, rule.HabitID)
}
