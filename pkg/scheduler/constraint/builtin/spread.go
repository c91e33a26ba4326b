package builtin

import (
	"fmt"
	"sort"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// LessonSpreadModule 同一课程的实例分散到不同天
// 同天计 same_day，不同天但间隔小于 minDaysBetween 计 day_gap
type LessonSpreadModule struct {
	*BaseModule
}

// NewLessonSpreadModule 创建课程分散约束
func NewLessonSpreadModule(weight int) *LessonSpreadModule {
	return &LessonSpreadModule{
		BaseModule: NewBaseModule("课程分散", constraint.TypeLessonSpread, constraint.CategorySoft, weight),
	}
}

// SameDayKey 同天惩罚键
func (c *LessonSpreadModule) SameDayKey(lessonID string, i, j int) string {
	return fmt.Sprintf("same_day_%s_%d_%d", lessonID, i, j)
}

// DayGapKey 间隔不足惩罚键
func (c *LessonSpreadModule) DayGapKey(lessonID string, i, j int) string {
	return fmt.Sprintf("day_gap_%s_%d_%d", lessonID, i, j)
}

// Contribute 对每对实例建立 onDay 指示并逐对计罚
func (c *LessonSpreadModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	days := ctx.Slots.Days()
	for _, l := range lessons(ctx.Catalog) {
		if l.LessonsPerWeek < 2 {
			continue
		}
		minDays := ctx.Catalog.MinDaysBetween(l.ID)

		onDay := make([]map[int]engine.Lit, l.LessonsPerWeek)
		for i := range onDay {
			onDay[i] = make(map[int]engine.Lit)
			occ := model.Occurrence{LessonID: l.ID, Instance: i}
			for _, d := range days {
				if lits := ctx.Vars.OccurrenceDayLits(occ, d); len(lits) > 0 {
					onDay[i][d] = orLit(m, fmt.Sprintf("on[%s@d%d]", occ, d), lits)
				}
			}
		}

		for i := 0; i < l.LessonsPerWeek; i++ {
			for j := i + 1; j < l.LessonsPerWeek; j++ {
				var same, near []engine.Lit
				for _, d1 := range days {
					a, ok := onDay[i][d1]
					if !ok {
						continue
					}
					for _, d2 := range days {
						b, ok := onDay[j][d2]
						if !ok {
							continue
						}
						diff := d1 - d2
						if diff < 0 {
							diff = -diff
						}
						switch {
						case diff == 0:
							same = append(same, andLit(m, fmt.Sprintf("both[%s#%d#%d@d%d]", l.ID, i, j, d1), []engine.Lit{a, b}))
						case diff < minDays:
							near = append(near, andLit(m, fmt.Sprintf("near[%s#%d@d%d#%d@d%d]", l.ID, i, d1, j, d2), []engine.Lit{a, b}))
						}
					}
				}
				if len(same) > 0 {
					c.penalize(m, orLit(m, fmt.Sprintf("same_day[%s#%d#%d]", l.ID, i, j), same), c.SameDayKey(l.ID, i, j))
				}
				if len(near) > 0 {
					c.penalize(m, orLit(m, fmt.Sprintf("day_gap[%s#%d#%d]", l.ID, i, j), near), c.DayGapKey(l.ID, i, j))
				}
			}
		}
	}
}

// Evaluate 逐对比较实例所在天
func (c *LessonSpreadModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	w := int64(c.Weight())
	for _, l := range lessons(ectx.Catalog) {
		if l.LessonsPerWeek < 2 {
			continue
		}
		minDays := ectx.Catalog.MinDaysBetween(l.ID)
		day := make([]int, l.LessonsPerWeek)
		for i := range day {
			as := ectx.ForOccurrence(model.Occurrence{LessonID: l.ID, Instance: i})
			day[i] = -1
			if len(as) == 1 {
				day[i] = as[0].Day
			}
		}
		for i := 0; i < l.LessonsPerWeek; i++ {
			for j := i + 1; j < l.LessonsPerWeek; j++ {
				if day[i] < 0 || day[j] < 0 {
					continue
				}
				diff := day[i] - day[j]
				if diff < 0 {
					diff = -diff
				}
				switch {
				case diff == 0:
					out = append(out, c.SoftViolation(c.SameDayKey(l.ID, i, j), l.ID, 1, w,
						"课程 %s 第 %d、%d 次同在%s", l.ID, i, j, model.DayName(day[i])))
				case diff < minDays:
					out = append(out, c.SoftViolation(c.DayGapKey(l.ID, i, j), l.ID, 1, w,
						"课程 %s 第 %d、%d 次仅间隔 %d 天，要求 %d 天", l.ID, i, j, diff, minDays))
				}
			}
		}
	}
	return out
}

// EvenDistributionModule 同一课程实例间隔接近理想天数
// 理想间隔 = 教学日数 / 每周课时（向下取整），每对实例按 ||Δ天| - 理想间隔| 计单位
type EvenDistributionModule struct {
	*BaseModule
}

// NewEvenDistributionModule 创建均匀分布约束
func NewEvenDistributionModule(weight int) *EvenDistributionModule {
	return &EvenDistributionModule{
		BaseModule: NewBaseModule("课程均匀分布", constraint.TypeEvenDistribution, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *EvenDistributionModule) Key(lessonID string, i, j int) string {
	return fmt.Sprintf("even_dist_%s_%d_%d", lessonID, i, j)
}

// IdealGap 理想间隔天数
func IdealGap(numDays, perWeek int) int {
	if perWeek <= 0 {
		return 0
	}
	return numDays / perWeek
}

func deviation(d1, d2, ideal int) int {
	return abs(abs(d1-d2) - ideal)
}

// Contribute 每对实例按偏差值分组，组内 (i 在 d1 ∧ j 在 d2) 的析取以 偏差 × 权重 计罚
func (c *EvenDistributionModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	days := ctx.Slots.Days()
	w := int64(c.Weight())
	for _, l := range lessons(ctx.Catalog) {
		if l.LessonsPerWeek < 2 {
			continue
		}
		ideal := IdealGap(ctx.Catalog.Config.NumDays, l.LessonsPerWeek)
		if ideal < 1 {
			continue
		}

		onDay := make([]map[int]engine.Lit, l.LessonsPerWeek)
		for i := range onDay {
			onDay[i] = make(map[int]engine.Lit)
			occ := model.Occurrence{LessonID: l.ID, Instance: i}
			for _, d := range days {
				if lits := ctx.Vars.OccurrenceDayLits(occ, d); len(lits) > 0 {
					onDay[i][d] = orLit(m, fmt.Sprintf("on[%s@d%d]", occ, d), lits)
				}
			}
		}

		for i := 0; i < l.LessonsPerWeek; i++ {
			for j := i + 1; j < l.LessonsPerWeek; j++ {
				byDev := make(map[int][]engine.Lit)
				var devs []int
				for _, d1 := range days {
					a, ok := onDay[i][d1]
					if !ok {
						continue
					}
					for _, d2 := range days {
						b, ok := onDay[j][d2]
						if !ok {
							continue
						}
						dev := deviation(d1, d2, ideal)
						if dev == 0 {
							continue
						}
						if _, seen := byDev[dev]; !seen {
							devs = append(devs, dev)
						}
						byDev[dev] = append(byDev[dev], andLit(m, fmt.Sprintf("pair[%s#%d@d%d#%d@d%d]", l.ID, i, d1, j, d2), []engine.Lit{a, b}))
					}
				}
				sort.Ints(devs)
				key := c.Key(l.ID, i, j)
				for _, dev := range devs {
					hit := orLit(m, fmt.Sprintf("uneven[%s#%d#%d=%d]", l.ID, i, j, dev), byDev[dev])
					m.AddPenalty(hit, int64(dev)*w, key)
				}
			}
		}
	}
}

// Evaluate 逐对计算间隔偏差
func (c *EvenDistributionModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, l := range lessons(ectx.Catalog) {
		if l.LessonsPerWeek < 2 {
			continue
		}
		ideal := IdealGap(ectx.Catalog.Config.NumDays, l.LessonsPerWeek)
		if ideal < 1 {
			continue
		}
		day := make([]int, l.LessonsPerWeek)
		for i := range day {
			day[i] = -1
			if as := ectx.ForOccurrence(model.Occurrence{LessonID: l.ID, Instance: i}); len(as) == 1 {
				day[i] = as[0].Day
			}
		}
		for i := 0; i < l.LessonsPerWeek; i++ {
			for j := i + 1; j < l.LessonsPerWeek; j++ {
				if day[i] < 0 || day[j] < 0 {
					continue
				}
				if dev := deviation(day[i], day[j], ideal); dev > 0 {
					out = append(out, c.SoftViolation(c.Key(l.ID, i, j), l.ID, dev, int64(c.Weight()),
						"课程 %s 第 %d、%d 次相隔 %d 天，理想 %d 天", l.ID, i, j, abs(day[i]-day[j]), ideal))
				}
			}
		}
	}
	return out
}

// MaxConsecutiveModule 同一课程同天连续节数上限
// 每个长度为 max+1 的连续时段窗口全部被该课程占用时计一个单位，
// 单位权重取约束记录的权重，权重为 0 的记录按硬约束处理
type MaxConsecutiveModule struct {
	*BaseModule
}

// NewMaxConsecutiveModule 创建连堂上限约束
func NewMaxConsecutiveModule(weight int) *MaxConsecutiveModule {
	return &MaxConsecutiveModule{
		BaseModule: NewBaseModule("连堂上限", constraint.TypeMaxConsecutive, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *MaxConsecutiveModule) Key(lessonID string, day, pos int) string {
	return fmt.Sprintf("consecutive_%s_day%d_p%d", lessonID, day, pos)
}

// Contribute 窗口指示 ⇔ 窗口内每个时段都有该课程
func (c *MaxConsecutiveModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	for _, l := range lessons(ctx.Catalog) {
		limit, recWeight := ctx.Catalog.MaxConsecutive(l.ID)
		if limit <= 0 {
			continue
		}
		at := make(map[int][]engine.Lit)
		for i := 0; i < l.LessonsPerWeek; i++ {
			for _, v := range ctx.Vars.ForOccurrence(model.Occurrence{LessonID: l.ID, Instance: i}) {
				at[v.Slot.Index] = append(at[v.Slot.Index], v.Lit)
			}
		}
		present := make(map[int]engine.Lit)
		weight := int64(recWeight)
		for _, day := range ctx.Slots.Days() {
			daySlots := ctx.Slots.SlotsForDay(day)
			for k := 0; k+limit < len(daySlots); k++ {
				var window []engine.Lit
				for _, s := range daySlots[k : k+limit+1] {
					lits := at[s.Index]
					if len(lits) == 0 {
						window = nil
						break
					}
					p, ok := present[s.Index]
					if !ok {
						p = orLit(m, fmt.Sprintf("lesson[%s@%s]", l.ID, s.Period.ID), lits)
						present[s.Index] = p
					}
					window = append(window, p)
				}
				if window == nil {
					continue
				}
				run := andLit(m, fmt.Sprintf("run[%s@d%dp%d]", l.ID, day, k), window)
				if weight == 0 {
					ctx.Model.AddLinear([]engine.Lit{run}, engine.LE, 0, fmt.Sprintf("max_consecutive:%s@d%dp%d", l.ID, day, k))
					continue
				}
				m.AddPenalty(run, weight, c.Key(l.ID, day, k))
			}
		}
	}
}

// Evaluate 统计超限的连续窗口
func (c *MaxConsecutiveModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, l := range lessons(ectx.Catalog) {
		limit, recWeight := ectx.Catalog.MaxConsecutive(l.ID)
		if limit <= 0 {
			continue
		}
		weight := int64(recWeight)
		for _, day := range ectx.Slots.Days() {
			daySlots := ectx.Slots.SlotsForDay(day)
			for k := 0; k+limit < len(daySlots); k++ {
				full := true
				for _, s := range daySlots[k : k+limit+1] {
					if !ectx.LessonAt(l.ID, s.Index) {
						full = false
						break
					}
				}
				if !full {
					continue
				}
				key := c.Key(l.ID, day, k)
				if weight == 0 {
					out = append(out, c.HardViolation(key, l.ID, "课程 %s 在%s连续超过 %d 节", l.ID, model.DayName(day), limit))
					continue
				}
				out = append(out, c.SoftViolation(key, l.ID, 1, weight,
					"课程 %s 在%s第 %d 节起连续超过 %d 节", l.ID, model.DayName(day), k+1, limit))
			}
		}
	}
	return out
}
