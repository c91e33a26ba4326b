package builtin

import (
	"fmt"
	"sort"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// DailyBalanceModule 教师每日课时偏离目标的惩罚
// 目标 = 周课时 / 教学日数（向下取整），每天按 |课时 - 目标| 计单位，目标为 0 的教师不计
type DailyBalanceModule struct {
	*BaseModule
}

// NewDailyBalanceModule 创建每日均衡约束
func NewDailyBalanceModule(weight int) *DailyBalanceModule {
	return &DailyBalanceModule{
		BaseModule: NewBaseModule("每日课时均衡", constraint.TypeDailyBalance, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *DailyBalanceModule) Key(teacherID string, day int) string {
	return fmt.Sprintf("workload_imbalance_%s_day%d", teacherID, day)
}

// DailyTarget 教师每日课时目标
func DailyTarget(load, numDays int) int {
	if numDays <= 0 {
		return 0
	}
	return load / numDays
}

// Contribute 超出部分用 count ≥ k (k > 目标) 指示，不足部分用 ¬(count ≥ k) (k ≤ 目标) 指示
func (c *DailyBalanceModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	numDays := ctx.Catalog.Config.NumDays
	for _, t := range teachers(ctx.Catalog) {
		target := DailyTarget(ctx.Catalog.TeacherLoad(t.ID), numDays)
		if target == 0 {
			continue
		}
		for day := 0; day < numDays; day++ {
			lits := dayLits(ctx, slot.KindTeacher, t.ID, day)
			key := c.Key(t.ID, day)
			for k := target + 1; k <= daySlotCount(ctx, slot.KindTeacher, t.ID, day); k++ {
				over := atLeastLit(m, fmt.Sprintf("over[%s@d%d>=%d]", t.ID, day, k), lits, k)
				c.penalize(m, over, key)
			}
			for k := 1; k <= target; k++ {
				reach := atLeastLit(m, fmt.Sprintf("reach[%s@d%d>=%d]", t.ID, day, k), lits, k)
				c.penalize(m, reach.Not(), key)
			}
		}
	}
}

// Evaluate 统计每日课时与目标之差
func (c *DailyBalanceModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	numDays := ectx.Catalog.Config.NumDays
	for _, t := range teachers(ectx.Catalog) {
		target := DailyTarget(ectx.Catalog.TeacherLoad(t.ID), numDays)
		if target == 0 {
			continue
		}
		for day := 0; day < numDays; day++ {
			n := ectx.DayCount(t.ID, day)
			units := max0(n-target) + max0(target-n)
			if units > 0 {
				out = append(out, c.SoftViolation(c.Key(t.ID, day), t.ID, units, int64(c.Weight()),
					"教师 %s 在%s有 %d 节，目标 %d 节", t.ID, model.DayName(day), n, target))
			}
		}
	}
	return out
}

// FragmentationModule 教师某天只有一节课时计罚，周课时不足 2 节的教师不计
type FragmentationModule struct {
	*BaseModule
}

// NewFragmentationModule 创建碎片化约束
func NewFragmentationModule(weight int) *FragmentationModule {
	return &FragmentationModule{
		BaseModule: NewBaseModule("教师单节日", constraint.TypeFragmentation, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *FragmentationModule) Key(teacherID string, day int) string {
	return fmt.Sprintf("fragmentation_%s_day%d", teacherID, day)
}

// Contribute 单节指示 ⇔ 有课 ∧ ¬(count ≥ 2)
func (c *FragmentationModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	for _, t := range teachers(ctx.Catalog) {
		if ctx.Catalog.TeacherLoad(t.ID) < 2 {
			continue
		}
		for _, day := range ctx.Slots.Days() {
			lits := dayLits(ctx, slot.KindTeacher, t.ID, day)
			if len(lits) == 0 {
				continue
			}
			busy := orLit(m, fmt.Sprintf("busy[%s@d%d]", t.ID, day), lits)
			single := busy
			if daySlotCount(ctx, slot.KindTeacher, t.ID, day) >= 2 {
				two := atLeastLit(m, fmt.Sprintf("busy[%s@d%d>=2]", t.ID, day), lits, 2)
				single = andLit(m, fmt.Sprintf("single[%s@d%d]", t.ID, day), []engine.Lit{busy, two.Not()})
			}
			c.penalize(m, single, c.Key(t.ID, day))
		}
	}
}

// Evaluate 统计只有一节课的天
func (c *FragmentationModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, t := range teachers(ectx.Catalog) {
		if ectx.Catalog.TeacherLoad(t.ID) < 2 {
			continue
		}
		for _, day := range ectx.Slots.Days() {
			if ectx.DayCount(t.ID, day) == 1 {
				out = append(out, c.SoftViolation(c.Key(t.ID, day), t.ID, 1, int64(c.Weight()),
					"教师 %s 在%s只有 1 节课", t.ID, model.DayName(day)))
			}
		}
	}
	return out
}

// LateFinishThreshold 晚于此时刻（分钟）结束的课按分钟计罚
const LateFinishThreshold = 900

// LateFinishModule 教师当天最后一节课晚于 15:00 结束时按超出分钟数计罚
type LateFinishModule struct {
	*BaseModule
}

// NewLateFinishModule 创建晚结束约束，weight 为每分钟权重
func NewLateFinishModule(weight int) *LateFinishModule {
	return &LateFinishModule{
		BaseModule: NewBaseModule("教师晚结束", constraint.TypeLateFinish, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *LateFinishModule) Key(teacherID string, day int) string {
	return fmt.Sprintf("late_finish_%s_day%d", teacherID, day)
}

// Contribute 按超出分钟数分层：当天存在超出 ≥ v_i 的课时，计 (v_i - v_{i-1}) 分钟
func (c *LateFinishModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	w := int64(c.Weight())
	for _, t := range teachers(ctx.Catalog) {
		for _, day := range ctx.Slots.Days() {
			late := make(map[int][]engine.Lit)
			var levels []int
			for _, s := range ctx.Slots.SlotsForDay(day) {
				v := s.End() - LateFinishThreshold
				lits := slotLits(ctx, slot.KindTeacher, t.ID, s.Index)
				if v <= 0 || len(lits) == 0 {
					continue
				}
				if _, ok := late[v]; !ok {
					levels = append(levels, v)
				}
				late[v] = append(late[v], lits...)
			}
			sort.Ints(levels)
			key := c.Key(t.ID, day)
			prev := 0
			for i, v := range levels {
				var atOrAbove []engine.Lit
				for _, u := range levels[i:] {
					atOrAbove = append(atOrAbove, late[u]...)
				}
				busy := orLit(m, fmt.Sprintf("late[%s@d%d>=%d]", t.ID, day, v), atOrAbove)
				m.AddPenalty(busy, int64(v-prev)*w, key)
				prev = v
			}
		}
	}
}

// Evaluate 取当天最晚结束时刻
func (c *LateFinishModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, t := range teachers(ectx.Catalog) {
		for _, day := range ectx.Slots.Days() {
			latest := 0
			for _, s := range ectx.Slots.SlotsForDay(day) {
				if ectx.Occupied(slot.KindTeacher, t.ID, s.Index) && s.End() > latest {
					latest = s.End()
				}
			}
			if minutes := latest - LateFinishThreshold; minutes > 0 {
				out = append(out, c.SoftViolation(c.Key(t.ID, day), t.ID, minutes, int64(c.Weight()),
					"教师 %s 在%s %s 才结束", t.ID, model.DayName(day), model.MinutesToTime(latest)))
			}
		}
	}
	return out
}

// ClassOverloadModule 教学班每日节数超过上限的惩罚，上限为 0 时关闭
type ClassOverloadModule struct {
	*BaseModule
	limit int
}

// NewClassOverloadModule 创建教学班每日上限约束
func NewClassOverloadModule(weight, limit int) *ClassOverloadModule {
	return &ClassOverloadModule{
		BaseModule: NewBaseModule("教学班每日上限", constraint.TypeClassOverload, constraint.CategorySoft, weight),
		limit:      limit,
	}
}

// Key 惩罚键
func (c *ClassOverloadModule) Key(classID string, day int) string {
	return fmt.Sprintf("class_overload_%s_day%d", classID, day)
}

// Contribute 每超出上限一节计一个单位
func (c *ClassOverloadModule) Contribute(ctx *constraint.Context) {
	if c.limit <= 0 {
		return
	}
	m := ctx.Model
	for _, id := range entityIDs(ctx.Catalog, slot.KindClass) {
		for _, day := range ctx.Slots.Days() {
			n := daySlotCount(ctx, slot.KindClass, id, day)
			if n <= c.limit {
				continue
			}
			lits := dayLits(ctx, slot.KindClass, id, day)
			key := c.Key(id, day)
			for k := c.limit + 1; k <= n; k++ {
				c.penalize(m, atLeastLit(m, fmt.Sprintf("class_daily[%s@d%d>=%d]", id, day, k), lits, k), key)
			}
		}
	}
}

// Evaluate 统计超出上限的节数
func (c *ClassOverloadModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	if c.limit <= 0 {
		return nil
	}
	var out []constraint.Violation
	for _, id := range entityIDs(ectx.Catalog, slot.KindClass) {
		for _, day := range ectx.Slots.Days() {
			if n := ectx.ResourceDayCount(slot.KindClass, id, day); n > c.limit {
				out = append(out, c.SoftViolation(c.Key(id, day), id, n-c.limit, int64(c.Weight()),
					"教学班 %s 在%s有 %d 节，超过上限 %d", id, model.DayName(day), n, c.limit))
			}
		}
	}
	return out
}

// TeacherOverloadModule 教师超出软性每日/每周节数目标的惩罚
type TeacherOverloadModule struct {
	*BaseModule
}

// NewTeacherOverloadModule 创建教师超量约束
func NewTeacherOverloadModule(weight int) *TeacherOverloadModule {
	return &TeacherOverloadModule{
		BaseModule: NewBaseModule("教师课时偏好上限", constraint.TypeTeacherOverload, constraint.CategorySoft, weight),
	}
}

// DayKey 每日超量惩罚键
func (c *TeacherOverloadModule) DayKey(teacherID string, day int) string {
	return fmt.Sprintf("teacher_overload_%s_day%d", teacherID, day)
}

// WeekKey 每周超量惩罚键
func (c *TeacherOverloadModule) WeekKey(teacherID string) string {
	return "teacher_weekly_overload_" + teacherID
}

// Contribute 每超出目标一节计一个单位
func (c *TeacherOverloadModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	for _, t := range teachers(ctx.Catalog) {
		if target := ctx.Catalog.SoftDailyTarget(t.ID); target > 0 {
			for _, day := range ctx.Slots.Days() {
				lits := dayLits(ctx, slot.KindTeacher, t.ID, day)
				key := c.DayKey(t.ID, day)
				for k := target + 1; k <= daySlotCount(ctx, slot.KindTeacher, t.ID, day); k++ {
					c.penalize(m, atLeastLit(m, fmt.Sprintf("daily[%s@d%d>=%d]", t.ID, day, k), lits, k), key)
				}
			}
		}
		if target := ctx.Catalog.SoftWeeklyTarget(t.ID); target > 0 {
			lits := ctx.Vars.TeacherLits(t.ID)
			limit := len(ctx.Vars.ResourceSlots(slot.KindTeacher, t.ID))
			key := c.WeekKey(t.ID)
			for k := target + 1; k <= limit; k++ {
				c.penalize(m, atLeastLit(m, fmt.Sprintf("weekly[%s>=%d]", t.ID, k), lits, k), key)
			}
		}
	}
}

// Evaluate 统计超出目标的节数
func (c *TeacherOverloadModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	w := int64(c.Weight())
	for _, t := range teachers(ectx.Catalog) {
		if target := ectx.Catalog.SoftDailyTarget(t.ID); target > 0 {
			for _, day := range ectx.Slots.Days() {
				n := ectx.DayCount(t.ID, day)
				if n > target {
					out = append(out, c.SoftViolation(c.DayKey(t.ID, day), t.ID, n-target, w,
						"教师 %s 在%s有 %d 节，超过偏好 %d", t.ID, model.DayName(day), n, target))
				}
			}
		}
		if target := ectx.Catalog.SoftWeeklyTarget(t.ID); target > 0 {
			if n := ectx.WeekCount(t.ID); n > target {
				out = append(out, c.SoftViolation(c.WeekKey(t.ID), t.ID, n-target, w,
					"教师 %s 每周 %d 节，超过偏好 %d", t.ID, n, target))
			}
		}
	}
	return out
}
