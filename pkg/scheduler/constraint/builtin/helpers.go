package builtin

import (
	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// lessons 去重后的课程（输入顺序）
func lessons(cat *model.Catalog) []*model.Lesson {
	out := make([]*model.Lesson, 0, len(cat.Input.Lessons))
	for i := range cat.Input.Lessons {
		if l := &cat.Input.Lessons[i]; cat.Lesson(l.ID) == l {
			out = append(out, l)
		}
	}
	return out
}

// teachers 去重后的教师（输入顺序）
func teachers(cat *model.Catalog) []*model.Teacher {
	out := make([]*model.Teacher, 0, len(cat.Input.Teachers))
	for i := range cat.Input.Teachers {
		if t := &cat.Input.Teachers[i]; cat.Teacher(t.ID) == t {
			out = append(out, t)
		}
	}
	return out
}

func entityIDs(cat *model.Catalog, kind slot.Kind) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	switch kind {
	case slot.KindTeacher:
		for _, t := range cat.Input.Teachers {
			add(t.ID)
		}
	case slot.KindClass:
		for _, c := range cat.Input.Classes {
			add(c.ID)
		}
	case slot.KindRoom:
		for _, r := range cat.Input.Rooms {
			add(r.ID)
		}
	}
	return out
}

func slotLits(ctx *constraint.Context, kind slot.Kind, id string, slotIdx int) []engine.Lit {
	switch kind {
	case slot.KindTeacher:
		return ctx.Vars.TeacherSlotLits(id, slotIdx)
	case slot.KindClass:
		return ctx.Vars.ClassSlotLits(id, slotIdx)
	case slot.KindRoom:
		return ctx.Vars.RoomSlotLits(id, slotIdx)
	}
	return nil
}

// dayLits 资源某天的全部决策文字
func dayLits(ctx *constraint.Context, kind slot.Kind, id string, day int) []engine.Lit {
	var out []engine.Lit
	for _, s := range ctx.Slots.SlotsForDay(day) {
		out = append(out, slotLits(ctx, kind, id, s.Index)...)
	}
	return out
}

// daySlotCount 资源某天存在决策变量的时段数
func daySlotCount(ctx *constraint.Context, kind slot.Kind, id string, day int) int {
	n := 0
	for _, s := range ctx.Slots.SlotsForDay(day) {
		if len(slotLits(ctx, kind, id, s.Index)) > 0 {
			n++
		}
	}
	return n
}

func resourceOf(a *model.Assignment, kind slot.Kind) string {
	switch kind {
	case slot.KindTeacher:
		return a.TeacherID
	case slot.KindClass:
		return a.ClassID
	}
	return a.RoomID
}

// orLit 返回 ⇔ ∨lits 的文字；单个文字直接复用
func orLit(m *engine.Model, name string, lits []engine.Lit) engine.Lit {
	if len(lits) == 1 {
		return lits[0]
	}
	l := m.NewBool(name)
	m.AddOrIff(l, lits)
	return l
}

// atLeastLit 返回 ⇔ Σlits ≥ k 的文字
func atLeastLit(m *engine.Model, name string, lits []engine.Lit, k int) engine.Lit {
	if k == 1 {
		return orLit(m, name, lits)
	}
	l := m.NewBool(name)
	m.AddAtLeastIff(l, lits, k)
	return l
}

// andLit 返回 ⇔ ∧lits 的文字
func andLit(m *engine.Model, name string, lits []engine.Lit) engine.Lit {
	if len(lits) == 1 {
		return lits[0]
	}
	l := m.NewBool(name)
	m.AddAndIff(l, lits)
	return l
}

// PreferredRooms 课程的偏好教室集合：课程声明、教师偏好与软性教室类型偏好的并集
func PreferredRooms(cat *model.Catalog, l *model.Lesson) map[string]bool {
	out := make(map[string]bool)
	if l.RoomRequirement != nil {
		for _, id := range l.RoomRequirement.PreferredRooms {
			out[id] = true
		}
	}
	if t := cat.Teacher(l.TeacherID); t != nil {
		for _, id := range t.PreferredRooms {
			out[id] = true
		}
	}
	if rt, _, ok := cat.PreferredRoomType(l.SubjectID); ok {
		for _, r := range cat.Input.Rooms {
			if r.Type == rt {
				out[r.ID] = true
			}
		}
	}
	return out
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
