// Package constraint 定义约束模块契约与约束评估结果
package constraint

import (
	"sort"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
	"github.com/paiban/kebiao/pkg/scheduler/variable"
)

// Type 约束类型（封闭集合）
type Type string

const (
	// 硬约束
	TypeExactlyOne       Type = "exactly_one_per_occurrence"
	TypeNoTeacherOverlap Type = "no_teacher_overlap"
	TypeNoClassOverlap   Type = "no_class_overlap"
	TypeNoRoomOverlap    Type = "no_room_overlap"
	TypeFixedSlot        Type = "fixed_slot"
	TypeTeacherCapacity  Type = "teacher_capacity"

	// 软约束
	TypeTeacherGap       Type = "teacher_gap"
	TypeClassGap         Type = "class_gap"
	TypeDailyBalance     Type = "daily_balance"
	TypeTeacherOverload  Type = "teacher_overload"
	TypeLessonSpread     Type = "lesson_spread"
	TypeMaxConsecutive   Type = "max_consecutive"
	TypePreferredRoom    Type = "preferred_room"
	TypeAvoidedPeriod    Type = "avoided_period"
	TypeFragmentation    Type = "fragmentation"
	TypeLateFinish       Type = "late_finish"
	TypeRoomConsistency  Type = "room_consistency"
	TypeEvenDistribution Type = "even_distribution"
	TypeClassOverload    Type = "class_overload"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard"
	CategorySoft Category = "soft"
)

// Module 约束模块：向模型贡献约束或目标项，并能对解码结果重新计算同一惩罚
type Module interface {
	Name() string
	Type() Type
	Category() Category
	Weight() int

	// Contribute 向模型写入约束与目标项
	Contribute(ctx *Context)

	// Evaluate 基于排课结果重新计算违反情况，软约束的键与权重须与 Contribute 一致
	Evaluate(ectx *EvalContext) []Violation
}

// Context 模型构建上下文
type Context struct {
	Catalog *model.Catalog
	Slots   *slot.Index
	Vars    *variable.Index
	Model   *engine.Model
}

// Contribution 单个模块贡献的模型规模
type Contribution struct {
	Module      string `json:"module" yaml:"module"`
	Type        Type   `json:"type" yaml:"type"`
	Constraints int    `json:"constraints" yaml:"constraints"`
	Penalties   int    `json:"penalties" yaml:"penalties"`
	Variables   int    `json:"variables" yaml:"variables"`
}

// Violation 约束违反明细
type Violation struct {
	Key      string   `json:"key"`
	Type     Type     `json:"type"`
	Category Category `json:"category"`
	Penalty  int64    `json:"penalty"`
	Units    int      `json:"units"`
	EntityID string   `json:"entityId,omitempty"`
	Message  string   `json:"message"`
}

// Result 约束评估结果
type Result struct {
	IsValid        bool             `json:"isValid"`
	TotalPenalty   int64            `json:"totalPenalty"`
	HardViolations []Violation      `json:"hardViolations"`
	SoftViolations []Violation      `json:"softViolations"`
	Scores         map[string]int64 `json:"scores"`
}

// ScoreKeys 返回排序后的惩罚键
func (r *Result) ScoreKeys() []string {
	keys := make([]string, 0, len(r.Scores))
	for k := range r.Scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EvalContext 评估上下文：排课结果按教师、教学班、教室、实例索引
type EvalContext struct {
	Catalog     *model.Catalog
	Slots       *slot.Index
	Assignments []model.Assignment

	teacherSlot map[string]map[int][]*model.Assignment
	classSlot   map[string]map[int][]*model.Assignment
	roomSlot    map[string]map[int][]*model.Assignment
	lessonSlot  map[string]map[int]bool
	byOcc       map[model.Occurrence][]*model.Assignment
	slotOf      map[*model.Assignment]slot.Slot
	unknown     []*model.Assignment
}

// NewEvalContext 为一组排课结果建立索引
func NewEvalContext(cat *model.Catalog, slots *slot.Index, assignments []model.Assignment) *EvalContext {
	e := &EvalContext{
		Catalog:     cat,
		Slots:       slots,
		Assignments: assignments,
		teacherSlot: make(map[string]map[int][]*model.Assignment),
		classSlot:   make(map[string]map[int][]*model.Assignment),
		roomSlot:    make(map[string]map[int][]*model.Assignment),
		lessonSlot:  make(map[string]map[int]bool),
		byOcc:       make(map[model.Occurrence][]*model.Assignment),
		slotOf:      make(map[*model.Assignment]slot.Slot),
	}
	for i := range assignments {
		a := &assignments[i]
		occ := model.Occurrence{LessonID: a.LessonID, Instance: a.Instance}
		e.byOcc[occ] = append(e.byOcc[occ], a)

		s, ok := slots.SlotByPeriod(a.PeriodID)
		if !ok || s.Day != a.Day {
			e.unknown = append(e.unknown, a)
			continue
		}
		e.slotOf[a] = s
		index(e.teacherSlot, a.TeacherID, s.Index, a)
		index(e.classSlot, a.ClassID, s.Index, a)
		index(e.roomSlot, a.RoomID, s.Index, a)
		if e.lessonSlot[a.LessonID] == nil {
			e.lessonSlot[a.LessonID] = make(map[int]bool)
		}
		e.lessonSlot[a.LessonID][s.Index] = true
	}
	return e
}

func index(m map[string]map[int][]*model.Assignment, id string, s int, a *model.Assignment) {
	inner, ok := m[id]
	if !ok {
		inner = make(map[int][]*model.Assignment)
		m[id] = inner
	}
	inner[s] = append(inner[s], a)
}

// ForOccurrence 实例的排课记录
func (e *EvalContext) ForOccurrence(occ model.Occurrence) []*model.Assignment { return e.byOcc[occ] }

// SlotOf 排课记录所在时段
func (e *EvalContext) SlotOf(a *model.Assignment) (slot.Slot, bool) {
	s, ok := e.slotOf[a]
	return s, ok
}

// Unplaced 无法映射到可排课时段的记录
func (e *EvalContext) Unplaced() []*model.Assignment { return e.unknown }

// At 资源在时段上的排课记录
func (e *EvalContext) At(kind slot.Kind, id string, slotIdx int) []*model.Assignment {
	switch kind {
	case slot.KindTeacher:
		return e.teacherSlot[id][slotIdx]
	case slot.KindClass:
		return e.classSlot[id][slotIdx]
	case slot.KindRoom:
		return e.roomSlot[id][slotIdx]
	}
	return nil
}

// Occupied 资源在时段上是否有课
func (e *EvalContext) Occupied(kind slot.Kind, id string, slotIdx int) bool {
	return len(e.At(kind, id, slotIdx)) > 0
}

// LessonAt 课程在时段上是否有实例
func (e *EvalContext) LessonAt(lessonID string, slotIdx int) bool {
	return e.lessonSlot[lessonID][slotIdx]
}

// DayCount 教师某天的课时数
func (e *EvalContext) DayCount(teacherID string, day int) int {
	return e.ResourceDayCount(slot.KindTeacher, teacherID, day)
}

// ResourceDayCount 资源某天的课时数
func (e *EvalContext) ResourceDayCount(kind slot.Kind, id string, day int) int {
	n := 0
	for _, s := range e.Slots.SlotsForDay(day) {
		n += len(e.At(kind, id, s.Index))
	}
	return n
}

// WeekCount 教师一周的课时数
func (e *EvalContext) WeekCount(teacherID string) int {
	n := 0
	for _, as := range e.teacherSlot[teacherID] {
		n += len(as)
	}
	return n
}
