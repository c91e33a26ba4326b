// Package constraints 约束库：描述求解器支持的全部约束模块及其可配置项
package constraints

import (
	"strconv"

	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, bool, string
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        constraint.Type     `json:"name"`
	DisplayName string              `json:"display_name"`
	Category    constraint.Category `json:"category"`
	Description string              `json:"description"`
	// KeyPattern 软约束惩罚项键的格式，硬约束为约束标签
	KeyPattern string `json:"key_pattern"`
	// WeightKey 配置文件中的权重项，硬约束为空
	WeightKey string `json:"weight_key,omitempty"`
	Weight    int    `json:"weight"`
	Enabled   bool   `json:"enabled"`
	// Records 可调整该约束的输入约束记录
	Records []string          `json:"records,omitempty"`
	Params  []ConstraintParam `json:"params,omitempty"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

type docs struct {
	description string
	keyPattern  string
	weightKey   string
	records     []string
	params      []ConstraintParam
}

func weightParam(def int) []ConstraintParam {
	return []ConstraintParam{{Name: "weight", Type: "int", Description: "每单位违反的惩罚", Default: strconv.Itoa(def), Min: "0", Max: "1000"}}
}

var library = map[constraint.Type]docs{
	constraint.TypeExactlyOne: {
		description: "每个课程实例必须恰好安排在一个(节次, 教室)组合上。",
		keyPattern:  "exactly_one",
	},
	constraint.TypeNoTeacherOverlap: {
		description: "同一教师在任一时间点最多上一节课，时间重叠的节次视为冲突。",
		keyPattern:  "no_overlap_teacher",
		records:     []string{"availability"},
	},
	constraint.TypeNoClassOverlap: {
		description: "同一教学班在任一时间点最多上一节课。",
		keyPattern:  "no_overlap_class",
		records:     []string{"availability"},
	},
	constraint.TypeNoRoomOverlap: {
		description: "同一教室在任一时间点最多容纳一节课。",
		keyPattern:  "no_overlap_room",
		records:     []string{"roomType", "roomCapacity"},
	},
	constraint.TypeFixedSlot: {
		description: "课程的固定时段与固定教室必须被遵守。",
		keyPattern:  "fixed_slot",
	},
	constraint.TypeTeacherCapacity: {
		description: "教师每日与每周课时不得超过硬上限（教师字段与 weight=0 的课时记录取较小值）。",
		keyPattern:  "teacher_capacity",
		records:     []string{"teacherMaxPeriods"},
	},
	constraint.TypeTeacherGap: {
		description: "教师同一天首末节课之间的空闲节次越少越好。",
		keyPattern:  "teacher_gap_<teacher>_day<d>",
		weightKey:   "solver.weights.teacher_gap",
	},
	constraint.TypeClassGap: {
		description: "教学班同一天首末节课之间的空闲节次越少越好。",
		keyPattern:  "class_gap_<class>_day<d>",
		weightKey:   "solver.weights.class_gap",
	},
	constraint.TypeDailyBalance: {
		description: "教师每天的课时偏离目标（周课时 / 教学日数，向下取整）时按相差节数计罚。",
		keyPattern:  "workload_imbalance_<teacher>_day<d>",
		weightKey:   "solver.weights.daily_balance",
	},
	constraint.TypeTeacherOverload: {
		description: "教师超过软性每日或每周课时目标时按超出节数计罚。",
		keyPattern:  "teacher_overload_<teacher>_day<d> / teacher_weekly_overload_<teacher>",
		weightKey:   "solver.weights.teacher_overload",
		records:     []string{"teacherMaxPeriods"},
	},
	constraint.TypeLessonSpread: {
		description: "同一课程的多个实例应分散在不同天，并满足最小间隔天数。",
		keyPattern:  "same_day_<lesson>_<i>_<j> / day_gap_<lesson>_<i>_<j>",
		weightKey:   "solver.weights.lesson_spread",
		records:     []string{"lessonSpread"},
		params: []ConstraintParam{
			{Name: "minDaysBetween", Type: "int", Description: "同一课程两个实例间的最小间隔天数", Default: "1", Min: "0", Max: "6"},
		},
	},
	constraint.TypeMaxConsecutive: {
		description: "同一课程在一天内连续上课的节数不超过上限，按记录自身权重计罚。",
		keyPattern:  "consecutive_<lesson>_day<d>_p<k>",
		weightKey:   "solver.weights.max_consecutive",
		records:     []string{"consecutiveLessons"},
		params: []ConstraintParam{
			{Name: "maxConsecutive", Type: "int", Description: "最多连续节数", Default: "2", Min: "1", Max: "8"},
		},
	},
	constraint.TypePreferredRoom: {
		description: "课程或教师有偏好教室时，安排在其他教室计罚。",
		keyPattern:  "not_preferred_room_<lesson>_<i>",
		weightKey:   "solver.weights.preferred_room",
		records:     []string{"roomType"},
	},
	constraint.TypeAvoidedPeriod: {
		description: "教师希望回避的节次被安排课程时按偏好记录的权重计罚。",
		keyPattern:  "avoided_period_<teacher>_<period>",
		weightKey:   "solver.weights.avoided_period",
		records:     []string{"teacherPreference"},
	},
	constraint.TypeFragmentation: {
		description: "周课时不少于 2 节的教师某天只有 1 节课时计罚。",
		keyPattern:  "fragmentation_<teacher>_day<d>",
		weightKey:   "solver.weights.fragmentation",
	},
	constraint.TypeLateFinish: {
		description: "教师当天最后一节课晚于 15:00 结束时按超出分钟数计罚。",
		keyPattern:  "late_finish_<teacher>_day<d>",
		weightKey:   "solver.weights.late_finish",
	},
	constraint.TypeRoomConsistency: {
		description: "同一课程的两次实例安排在不同教室时计罚。",
		keyPattern:  "room_change_<lesson>_<i>_<j>",
		weightKey:   "solver.weights.room_consistency",
	},
	constraint.TypeEvenDistribution: {
		description: "同一课程实例的间隔天数偏离理想间隔（教学日数 / 每周课时）时按偏差天数计罚。",
		keyPattern:  "even_dist_<lesson>_<i>_<j>",
		weightKey:   "solver.weights.even_distribution",
	},
	constraint.TypeClassOverload: {
		description: "教学班每天的节数超过上限时按超出节数计罚，上限为 0 时关闭。",
		keyPattern:  "class_overload_<class>_day<d>",
		weightKey:   "solver.weights.class_overload",
		params: []ConstraintParam{
			{Name: "classDailyMax", Type: "int", Description: "教学班每日节数上限（solver.weights.class_daily_max）", Default: "0", Min: "0", Max: "12"},
		},
	},
}

// GetLibrary 按给定权重返回全部约束定义，顺序与建模顺序一致
// 权重为 0 的软约束标记为未启用
func GetLibrary(w builtin.Weights) []ConstraintDefinition {
	enabled := make(map[constraint.Type]constraint.Module)
	for _, m := range builtin.SoftModules(w) {
		enabled[m.Type()] = m
	}

	all := append(builtin.HardModules(), builtin.AllSoftModules()...)
	out := make([]ConstraintDefinition, 0, len(all))
	for _, m := range all {
		d := library[m.Type()]
		def := ConstraintDefinition{
			Name:        m.Type(),
			DisplayName: m.Name(),
			Category:    m.Category(),
			Description: d.description,
			KeyPattern:  d.keyPattern,
			WeightKey:   d.weightKey,
			Enabled:     true,
			Records:     d.records,
			Params:      d.params,
		}
		if m.Category() == constraint.CategorySoft {
			active, ok := enabled[m.Type()]
			def.Enabled = ok
			if ok {
				def.Weight = active.Weight()
			}
			def.Params = append(weightParam(m.Weight()), d.params...)
		}
		out = append(out, def)
	}
	return out
}
