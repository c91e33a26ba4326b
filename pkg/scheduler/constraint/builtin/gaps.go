package builtin

import (
	"fmt"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// GapModule 空堂惩罚：同一天首末两节课之间每个可用的空闲时段计一个单位
type GapModule struct {
	*BaseModule
	kind   slot.Kind
	prefix string
}

// NewTeacherGapModule 创建教师空堂约束
func NewTeacherGapModule(weight int) *GapModule {
	return &GapModule{
		BaseModule: NewBaseModule("教师空堂", constraint.TypeTeacherGap, constraint.CategorySoft, weight),
		kind:       slot.KindTeacher,
		prefix:     "teacher_gap",
	}
}

// NewClassGapModule 创建教学班空堂约束
func NewClassGapModule(weight int) *GapModule {
	return &GapModule{
		BaseModule: NewBaseModule("教学班空堂", constraint.TypeClassGap, constraint.CategorySoft, weight),
		kind:       slot.KindClass,
		prefix:     "class_gap",
	}
}

// Key 惩罚键
func (c *GapModule) Key(id string, day int) string {
	return fmt.Sprintf("%s_%s_day%d", c.prefix, id, day)
}

type occupancy struct {
	pos int
	lit engine.Lit
}

// Contribute 为每个资源每天建立占用指示、前缀/后缀析取与空堂指示
//
//	occ_s    ⇔ ∨ x(s)
//	before_s ⇔ ∨ occ_t, t < s
//	after_s  ⇔ ∨ occ_t, t > s
//	gap_s    ⇔ ¬occ_s ∧ before_s ∧ after_s
func (c *GapModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	for _, id := range entityIDs(ctx.Catalog, c.kind) {
		for _, day := range ctx.Slots.Days() {
			daySlots := ctx.Slots.SlotsForDay(day)

			var occ []occupancy
			occAt := make(map[int]engine.Lit)
			for _, s := range daySlots {
				lits := slotLits(ctx, c.kind, id, s.Index)
				if len(lits) == 0 {
					continue
				}
				o := orLit(m, fmt.Sprintf("occ[%s:%s@%s]", c.kind, id, s.Period.ID), lits)
				occ = append(occ, occupancy{pos: s.Pos, lit: o})
				occAt[s.Pos] = o
			}
			if len(occ) < 2 {
				continue
			}

			prefix := make([]engine.Lit, len(occ))
			prefix[0] = occ[0].lit
			for i := 1; i < len(occ); i++ {
				prefix[i] = orLit(m, fmt.Sprintf("before[%s:%s@d%dp%d]", c.kind, id, day, occ[i].pos),
					[]engine.Lit{prefix[i-1], occ[i].lit})
			}
			suffix := make([]engine.Lit, len(occ))
			suffix[len(occ)-1] = occ[len(occ)-1].lit
			for i := len(occ) - 2; i >= 0; i-- {
				suffix[i] = orLit(m, fmt.Sprintf("after[%s:%s@d%dp%d]", c.kind, id, day, occ[i].pos),
					[]engine.Lit{suffix[i+1], occ[i].lit})
			}

			key := c.Key(id, day)
			for _, s := range daySlots {
				if !ctx.Slots.IsAvailable(c.kind, id, s) {
					continue
				}
				b, a := -1, -1
				for i, o := range occ {
					if o.pos < s.Pos {
						b = i
					}
					if o.pos > s.Pos && a < 0 {
						a = i
					}
				}
				if b < 0 || a < 0 {
					continue
				}
				parts := []engine.Lit{prefix[b], suffix[a]}
				if o, ok := occAt[s.Pos]; ok {
					parts = append(parts, o.Not())
				}
				g := andLit(m, fmt.Sprintf("gap[%s:%s@%s]", c.kind, id, s.Period.ID), parts)
				c.penalize(m, g, key)
			}
		}
	}
}

// Evaluate 由排课结果直接统计空堂
func (c *GapModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, id := range entityIDs(ectx.Catalog, c.kind) {
		for _, day := range ectx.Slots.Days() {
			units := CountGaps(ectx, c.kind, id, day)
			if units > 0 {
				out = append(out, c.SoftViolation(c.Key(id, day), id, units, int64(c.Weight()),
					"%s %s 在%s有 %d 个空堂", c.kind, id, model.DayName(day), units))
			}
		}
	}
	return out
}

// CountGaps 资源某天首末课之间可用且空闲的时段数
func CountGaps(ectx *constraint.EvalContext, kind slot.Kind, id string, day int) int {
	daySlots := ectx.Slots.SlotsForDay(day)
	first, last := -1, -1
	for _, s := range daySlots {
		if ectx.Occupied(kind, id, s.Index) {
			if first < 0 {
				first = s.Pos
			}
			last = s.Pos
		}
	}
	if first < 0 || first == last {
		return 0
	}
	units := 0
	for _, s := range daySlots[first+1 : last] {
		if ectx.Slots.IsAvailable(kind, id, s) && !ectx.Occupied(kind, id, s.Index) {
			units++
		}
	}
	return units
}
