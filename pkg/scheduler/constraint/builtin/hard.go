package builtin

import (
	"fmt"
	"sort"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// ExactlyOneModule 每个课程实例恰好安排一次
type ExactlyOneModule struct {
	*BaseModule
}

// NewExactlyOneModule 创建实例唯一性约束
func NewExactlyOneModule() *ExactlyOneModule {
	return &ExactlyOneModule{
		BaseModule: NewBaseModule("每实例恰好一次", constraint.TypeExactlyOne, constraint.CategoryHard, 0),
	}
}

// Contribute 每个实例的候选变量之和等于 1
func (c *ExactlyOneModule) Contribute(ctx *constraint.Context) {
	for _, occ := range ctx.Vars.Occurrences() {
		ctx.Model.AddExactlyOne(ctx.Vars.OccurrenceLits(occ), "exactly_one:"+occ.String())
	}
}

// Evaluate 检查缺失、重复与多余的实例
func (c *ExactlyOneModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	expected := make(map[model.Occurrence]bool)
	for _, l := range lessons(ectx.Catalog) {
		for i := 0; i < l.LessonsPerWeek; i++ {
			occ := model.Occurrence{LessonID: l.ID, Instance: i}
			expected[occ] = true
			if n := len(ectx.ForOccurrence(occ)); n != 1 {
				out = append(out, c.HardViolation("exactly_one_"+occ.String(), l.ID,
					"课程实例 %s 被安排 %d 次", occ, n))
			}
		}
	}
	seen := make(map[model.Occurrence]bool)
	for _, a := range ectx.Assignments {
		occ := model.Occurrence{LessonID: a.LessonID, Instance: a.Instance}
		if !expected[occ] && !seen[occ] {
			seen[occ] = true
			out = append(out, c.HardViolation("exactly_one_"+occ.String(), a.LessonID,
				"课程实例 %s 不存在", occ))
		}
	}
	for _, a := range ectx.Unplaced() {
		out = append(out, c.HardViolation("unplaced_"+a.LessonID, a.LessonID,
			"课程 %s 第 %d 次安排在不可排课节次 %s", a.LessonID, a.Instance, a.PeriodID))
	}
	return out
}

// NoOverlapModule 同一资源在相交时段至多一节课
type NoOverlapModule struct {
	*BaseModule
	kind slot.Kind
}

// NewNoOverlapModule 创建资源不冲突约束
func NewNoOverlapModule(kind slot.Kind) *NoOverlapModule {
	var typ constraint.Type
	var name string
	switch kind {
	case slot.KindTeacher:
		typ, name = constraint.TypeNoTeacherOverlap, "教师不冲突"
	case slot.KindClass:
		typ, name = constraint.TypeNoClassOverlap, "教学班不冲突"
	default:
		kind = slot.KindRoom
		typ, name = constraint.TypeNoRoomOverlap, "教室不冲突"
	}
	return &NoOverlapModule{
		BaseModule: NewBaseModule(name, typ, constraint.CategoryHard, 0),
		kind:       kind,
	}
}

// Contribute 对每个时段开始时刻的覆盖集添加至多一约束
func (c *NoOverlapModule) Contribute(ctx *constraint.Context) {
	for _, id := range entityIDs(ctx.Catalog, c.kind) {
		for _, si := range ctx.Vars.ResourceSlots(c.kind, id) {
			s := ctx.Slots.Slot(si)
			var lits []engine.Lit
			for _, t := range ctx.Slots.Covering(s) {
				lits = append(lits, slotLits(ctx, c.kind, id, t.Index)...)
			}
			ctx.Model.AddAtMostOne(lits, fmt.Sprintf("no_%s_overlap:%s@%s", c.kind, id, s.Period.ID))
		}
	}
}

// Evaluate 检查同一资源在同一天时间相交的排课
func (c *NoOverlapModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	groups := make(map[string][]*model.Assignment)
	var order []string
	for i := range ectx.Assignments {
		a := &ectx.Assignments[i]
		id := resourceOf(a, c.kind)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], a)
	}

	var out []constraint.Violation
	for _, id := range order {
		as := groups[id]
		sort.SliceStable(as, func(i, j int) bool {
			if as[i].Day != as[j].Day {
				return as[i].Day < as[j].Day
			}
			return as[i].StartMinutes < as[j].StartMinutes
		})
		for i := 0; i < len(as); i++ {
			for j := i + 1; j < len(as) && as[j].Day == as[i].Day; j++ {
				if as[i].Overlaps(as[j]) {
					out = append(out, c.HardViolation(
						fmt.Sprintf("%s_overlap_%s_day%d", c.kind, id, as[i].Day), id,
						"%s %s 在 %s %s 同时安排 %s#%d 与 %s#%d", c.kind, id, model.DayName(as[i].Day),
						model.MinutesToTime(as[j].StartMinutes), as[i].LessonID, as[i].Instance, as[j].LessonID, as[j].Instance))
				}
			}
		}
	}
	return out
}

// FixedSlotModule 固定时段的实例必须安排在指定节次
type FixedSlotModule struct {
	*BaseModule
}

// NewFixedSlotModule 创建固定时段约束
func NewFixedSlotModule() *FixedSlotModule {
	return &FixedSlotModule{
		BaseModule: NewBaseModule("固定时段", constraint.TypeFixedSlot, constraint.CategoryHard, 0),
	}
}

// Contribute 固定实例只有一个候选变量时直接赋值为真
func (c *FixedSlotModule) Contribute(ctx *constraint.Context) {
	for _, occ := range ctx.Vars.Occurrences() {
		if _, ok := ctx.Vars.Pinned(occ); !ok {
			continue
		}
		lits := ctx.Vars.OccurrenceLits(occ)
		if len(lits) == 1 {
			ctx.Model.Fix(lits[0])
			continue
		}
		ctx.Model.AddLinear(lits, engine.GE, 1, "fixed_slot:"+occ.String())
	}
}

// Evaluate 检查固定实例的实际节次
func (c *FixedSlotModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, l := range lessons(ectx.Catalog) {
		for i, fs := range l.FixedSlots {
			if i >= l.LessonsPerWeek {
				break
			}
			occ := model.Occurrence{LessonID: l.ID, Instance: i}
			for _, a := range ectx.ForOccurrence(occ) {
				if a.Day != fs.Day || a.PeriodID != fs.PeriodID {
					out = append(out, c.HardViolation("fixed_slot_"+occ.String(), l.ID,
						"课程实例 %s 应固定在 %s/%s，实际 %s/%s", occ, model.DayName(fs.Day), fs.PeriodID,
						model.DayName(a.Day), a.PeriodID))
				}
			}
		}
	}
	return out
}

// TeacherCapacityModule 教师每周（及硬性每日）节数上限
type TeacherCapacityModule struct {
	*BaseModule
}

// NewTeacherCapacityModule 创建教师容量约束
func NewTeacherCapacityModule() *TeacherCapacityModule {
	return &TeacherCapacityModule{
		BaseModule: NewBaseModule("教师课时上限", constraint.TypeTeacherCapacity, constraint.CategoryHard, 0),
	}
}

// Contribute 周上限约束全部决策变量，日上限约束当天决策变量
func (c *TeacherCapacityModule) Contribute(ctx *constraint.Context) {
	for _, t := range teachers(ctx.Catalog) {
		if limit := ctx.Catalog.HardWeeklyCap(t.ID); limit > 0 {
			ctx.Model.AddLinear(ctx.Vars.TeacherLits(t.ID), engine.LE, limit, "teacher_capacity:"+t.ID)
		}
		if limit := ctx.Catalog.HardDailyCap(t.ID); limit > 0 {
			for _, day := range ctx.Slots.Days() {
				lits := dayLits(ctx, slot.KindTeacher, t.ID, day)
				ctx.Model.AddLinear(lits, engine.LE, limit, fmt.Sprintf("teacher_capacity:%s@day%d", t.ID, day))
			}
		}
	}
}

// Evaluate 检查教师周/日节数
func (c *TeacherCapacityModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, t := range teachers(ectx.Catalog) {
		if limit := ectx.Catalog.HardWeeklyCap(t.ID); limit > 0 {
			if n := ectx.WeekCount(t.ID); n > limit {
				out = append(out, c.HardViolation("teacher_capacity_"+t.ID, t.ID,
					"教师 %s 每周 %d 节，超过上限 %d", t.ID, n, limit))
			}
		}
		if limit := ectx.Catalog.HardDailyCap(t.ID); limit > 0 {
			for _, day := range ectx.Slots.Days() {
				if n := ectx.DayCount(t.ID, day); n > limit {
					out = append(out, c.HardViolation(fmt.Sprintf("teacher_capacity_%s_day%d", t.ID, day), t.ID,
						"教师 %s 在%s %d 节，超过上限 %d", t.ID, model.DayName(day), n, limit))
				}
			}
		}
	}
	return out
}
