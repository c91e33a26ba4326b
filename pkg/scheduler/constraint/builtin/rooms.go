package builtin

import (
	"fmt"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// PreferredRoomModule 实例未安排在偏好教室时计罚
type PreferredRoomModule struct {
	*BaseModule
}

// NewPreferredRoomModule 创建偏好教室约束
func NewPreferredRoomModule(weight int) *PreferredRoomModule {
	return &PreferredRoomModule{
		BaseModule: NewBaseModule("偏好教室", constraint.TypePreferredRoom, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *PreferredRoomModule) Key(occ model.Occurrence) string {
	return fmt.Sprintf("not_preferred_room_%s_%d", occ.LessonID, occ.Instance)
}

// Contribute 非偏好教室的变量析取即为惩罚指示
func (c *PreferredRoomModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	for _, l := range lessons(ctx.Catalog) {
		preferred := PreferredRooms(ctx.Catalog, l)
		if len(preferred) == 0 {
			continue
		}
		for i := 0; i < l.LessonsPerWeek; i++ {
			occ := model.Occurrence{LessonID: l.ID, Instance: i}
			var other []engine.Lit
			for _, v := range ctx.Vars.ForOccurrence(occ) {
				if !preferred[v.Room.ID] {
					other = append(other, v.Lit)
				}
			}
			if len(other) == 0 {
				continue
			}
			c.penalize(m, orLit(m, fmt.Sprintf("not_preferred[%s]", occ), other), c.Key(occ))
		}
	}
}

// Evaluate 检查实例所在教室
func (c *PreferredRoomModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, l := range lessons(ectx.Catalog) {
		preferred := PreferredRooms(ectx.Catalog, l)
		if len(preferred) == 0 {
			continue
		}
		for i := 0; i < l.LessonsPerWeek; i++ {
			occ := model.Occurrence{LessonID: l.ID, Instance: i}
			for _, a := range ectx.ForOccurrence(occ) {
				if !preferred[a.RoomID] {
					out = append(out, c.SoftViolation(c.Key(occ), l.ID, 1, int64(c.Weight()),
						"课程实例 %s 安排在非偏好教室 %s", occ, a.RoomID))
				}
			}
		}
	}
	return out
}

// RoomConsistencyModule 同一课程的两次实例不在同一教室时计罚
type RoomConsistencyModule struct {
	*BaseModule
}

// NewRoomConsistencyModule 创建教室一致性约束
func NewRoomConsistencyModule(weight int) *RoomConsistencyModule {
	return &RoomConsistencyModule{
		BaseModule: NewBaseModule("教室一致", constraint.TypeRoomConsistency, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *RoomConsistencyModule) Key(lessonID string, i, j int) string {
	return fmt.Sprintf("room_change_%s_%d_%d", lessonID, i, j)
}

// Contribute 同室指示 ⇔ ∨_r (实例 i 在 r ∧ 实例 j 在 r)，其否定计罚
func (c *RoomConsistencyModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	for _, l := range lessons(ctx.Catalog) {
		if l.LessonsPerWeek < 2 || len(ctx.Vars.Rooms(l.ID)) < 2 {
			continue
		}
		inRoom := make([]map[string]engine.Lit, l.LessonsPerWeek)
		var order [][]string
		for i := range inRoom {
			occ := model.Occurrence{LessonID: l.ID, Instance: i}
			byRoom := make(map[string][]engine.Lit)
			var ids []string
			for _, v := range ctx.Vars.ForOccurrence(occ) {
				if _, ok := byRoom[v.Room.ID]; !ok {
					ids = append(ids, v.Room.ID)
				}
				byRoom[v.Room.ID] = append(byRoom[v.Room.ID], v.Lit)
			}
			inRoom[i] = make(map[string]engine.Lit, len(ids))
			for _, id := range ids {
				inRoom[i][id] = orLit(m, fmt.Sprintf("in[%s/%s]", occ, id), byRoom[id])
			}
			order = append(order, ids)
		}

		for i := 0; i < l.LessonsPerWeek; i++ {
			for j := i + 1; j < l.LessonsPerWeek; j++ {
				var same []engine.Lit
				for _, id := range order[i] {
					b, ok := inRoom[j][id]
					if !ok {
						continue
					}
					same = append(same, andLit(m, fmt.Sprintf("same_room[%s#%d#%d/%s]", l.ID, i, j, id), []engine.Lit{inRoom[i][id], b}))
				}
				key := c.Key(l.ID, i, j)
				if len(same) == 0 {
					// 两个实例没有共同候选教室
					moved := m.NewBool(fmt.Sprintf("room_change[%s#%d#%d]", l.ID, i, j))
					m.Fix(moved)
					c.penalize(m, moved, key)
					continue
				}
				c.penalize(m, orLit(m, fmt.Sprintf("same_room[%s#%d#%d]", l.ID, i, j), same).Not(), key)
			}
		}
	}
}

// Evaluate 逐对比较实例所在教室
func (c *RoomConsistencyModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, l := range lessons(ectx.Catalog) {
		if l.LessonsPerWeek < 2 {
			continue
		}
		room := make([]string, l.LessonsPerWeek)
		for i := range room {
			if as := ectx.ForOccurrence(model.Occurrence{LessonID: l.ID, Instance: i}); len(as) == 1 {
				room[i] = as[0].RoomID
			}
		}
		for i := 0; i < l.LessonsPerWeek; i++ {
			for j := i + 1; j < l.LessonsPerWeek; j++ {
				if room[i] == "" || room[j] == "" || room[i] == room[j] {
					continue
				}
				out = append(out, c.SoftViolation(c.Key(l.ID, i, j), l.ID, 1, int64(c.Weight()),
					"课程 %s 第 %d、%d 次分别在 %s 与 %s", l.ID, i, j, room[i], room[j]))
			}
		}
	}
	return out
}

// AvoidedPeriodModule 教师回避节次
// 单位权重取偏好记录的权重，权重为 0 的记录禁止在该节次排课
type AvoidedPeriodModule struct {
	*BaseModule
}

// NewAvoidedPeriodModule 创建回避节次约束
func NewAvoidedPeriodModule(weight int) *AvoidedPeriodModule {
	return &AvoidedPeriodModule{
		BaseModule: NewBaseModule("教师回避节次", constraint.TypeAvoidedPeriod, constraint.CategorySoft, weight),
	}
}

// Key 惩罚键
func (c *AvoidedPeriodModule) Key(teacherID, periodID string) string {
	return fmt.Sprintf("avoided_period_%s_%s", teacherID, periodID)
}

// Contribute 教师在回避节次有课即计罚
func (c *AvoidedPeriodModule) Contribute(ctx *constraint.Context) {
	m := ctx.Model
	for _, pref := range ctx.Catalog.Input.Constraints.TeacherPreference {
		if !pref.IsEnabled() {
			continue
		}
		for _, pid := range pref.AvoidedPeriods {
			s, ok := ctx.Slots.SlotByPeriod(pid)
			if !ok {
				continue
			}
			lits := slotLits(ctx, slot.KindTeacher, pref.TeacherID, s.Index)
			if len(lits) == 0 {
				continue
			}
			if pref.IsHard() {
				m.AddLinear(lits, engine.LE, 0, fmt.Sprintf("avoided_period:%s@%s", pref.TeacherID, pid))
				continue
			}
			busy := orLit(m, fmt.Sprintf("avoid[%s@%s]", pref.TeacherID, pid), lits)
			m.AddPenalty(busy, int64(pref.Weight), c.Key(pref.TeacherID, pid))
		}
	}
}

// Evaluate 检查教师在回避节次的排课
func (c *AvoidedPeriodModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation {
	var out []constraint.Violation
	for _, pref := range ectx.Catalog.Input.Constraints.TeacherPreference {
		if !pref.IsEnabled() {
			continue
		}
		for _, pid := range pref.AvoidedPeriods {
			s, ok := ectx.Slots.SlotByPeriod(pid)
			if !ok || !ectx.Occupied(slot.KindTeacher, pref.TeacherID, s.Index) {
				continue
			}
			key := c.Key(pref.TeacherID, pid)
			if pref.IsHard() {
				out = append(out, c.HardViolation(key, pref.TeacherID, "教师 %s 在回避节次 %s 有课", pref.TeacherID, pid))
				continue
			}
			out = append(out, c.SoftViolation(key, pref.TeacherID, 1, int64(pref.Weight),
				"教师 %s 在回避节次 %s 有课", pref.TeacherID, pid))
		}
	}
	return out
}
