package builtin

import (
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// Weights 软约束权重，0 表示关闭该模块
type Weights struct {
	TeacherGap       int `json:"teacherGap" yaml:"teacherGap" mapstructure:"teacher_gap"`
	ClassGap         int `json:"classGap" yaml:"classGap" mapstructure:"class_gap"`
	DailyBalance     int `json:"dailyBalance" yaml:"dailyBalance" mapstructure:"daily_balance"`
	TeacherOverload  int `json:"teacherOverload" yaml:"teacherOverload" mapstructure:"teacher_overload"`
	LessonSpread     int `json:"lessonSpread" yaml:"lessonSpread" mapstructure:"lesson_spread"`
	MaxConsecutive   int `json:"maxConsecutive" yaml:"maxConsecutive" mapstructure:"max_consecutive"`
	PreferredRoom    int `json:"preferredRoom" yaml:"preferredRoom" mapstructure:"preferred_room"`
	AvoidedPeriod    int `json:"avoidedPeriod" yaml:"avoidedPeriod" mapstructure:"avoided_period"`
	Fragmentation    int `json:"fragmentation" yaml:"fragmentation" mapstructure:"fragmentation"`
	LateFinish       int `json:"lateFinish" yaml:"lateFinish" mapstructure:"late_finish"` // 每晚一分钟
	RoomConsistency  int `json:"roomConsistency" yaml:"roomConsistency" mapstructure:"room_consistency"`
	EvenDistribution int `json:"evenDistribution" yaml:"evenDistribution" mapstructure:"even_distribution"`
	ClassOverload    int `json:"classOverload" yaml:"classOverload" mapstructure:"class_overload"`
	ClassDailyMax    int `json:"classDailyMax" yaml:"classDailyMax" mapstructure:"class_daily_max"` // 教学班每日节数上限，0 表示不限制
}

// DefaultWeights 默认软约束权重
// 连堂上限与回避节次按约束记录自身的权重计罚，此处仅作开关
func DefaultWeights() Weights {
	return Weights{
		TeacherGap:       10,
		ClassGap:         5,
		DailyBalance:     5,
		TeacherOverload:  50,
		LessonSpread:     20,
		MaxConsecutive:   10,
		PreferredRoom:    5,
		AvoidedPeriod:    10,
		Fragmentation:    10,
		LateFinish:       1,
		RoomConsistency:  5,
		EvenDistribution: 5,
		ClassOverload:    100,
	}
}

// HardModules 全部硬约束模块（固定顺序）
func HardModules() []constraint.Module {
	return []constraint.Module{
		NewExactlyOneModule(),
		NewNoOverlapModule(slot.KindTeacher),
		NewNoOverlapModule(slot.KindClass),
		NewNoOverlapModule(slot.KindRoom),
		NewFixedSlotModule(),
		NewTeacherCapacityModule(),
	}
}

// SoftModules 权重为正的软约束模块
func SoftModules(w Weights) []constraint.Module {
	var out []constraint.Module
	if w.TeacherGap > 0 {
		out = append(out, NewTeacherGapModule(w.TeacherGap))
	}
	if w.ClassGap > 0 {
		out = append(out, NewClassGapModule(w.ClassGap))
	}
	if w.DailyBalance > 0 {
		out = append(out, NewDailyBalanceModule(w.DailyBalance))
	}
	if w.TeacherOverload > 0 {
		out = append(out, NewTeacherOverloadModule(w.TeacherOverload))
	}
	if w.LessonSpread > 0 {
		out = append(out, NewLessonSpreadModule(w.LessonSpread))
	}
	if w.MaxConsecutive > 0 {
		out = append(out, NewMaxConsecutiveModule(w.MaxConsecutive))
	}
	if w.PreferredRoom > 0 {
		out = append(out, NewPreferredRoomModule(w.PreferredRoom))
	}
	if w.AvoidedPeriod > 0 {
		out = append(out, NewAvoidedPeriodModule(w.AvoidedPeriod))
	}
	if w.Fragmentation > 0 {
		out = append(out, NewFragmentationModule(w.Fragmentation))
	}
	if w.LateFinish > 0 {
		out = append(out, NewLateFinishModule(w.LateFinish))
	}
	if w.RoomConsistency > 0 {
		out = append(out, NewRoomConsistencyModule(w.RoomConsistency))
	}
	if w.EvenDistribution > 0 {
		out = append(out, NewEvenDistributionModule(w.EvenDistribution))
	}
	if w.ClassOverload > 0 && w.ClassDailyMax > 0 {
		out = append(out, NewClassOverloadModule(w.ClassOverload, w.ClassDailyMax))
	}
	return out
}

// AllSoftModules 全部软约束模块，默认关闭的模块也以默认权重列出
func AllSoftModules() []constraint.Module {
	w := DefaultWeights()
	mods := SoftModules(w)
	if w.ClassDailyMax <= 0 {
		mods = append(mods, NewClassOverloadModule(w.ClassOverload, 0))
	}
	return mods
}

// DefaultModules 硬约束加上按权重启用的软约束
func DefaultModules(w Weights) []constraint.Module {
	return append(HardModules(), SoftModules(w)...)
}

// NewDefaultManager 以默认模块创建约束管理器
func NewDefaultManager(w Weights) *constraint.Manager {
	return constraint.NewManager(DefaultModules(w)...)
}
