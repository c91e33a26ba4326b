// Package variable 为每个合格的 (课程实例, 时段, 教室) 组合创建决策变量，并维护双向索引
package variable

import (
	"fmt"
	"sort"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// Key 决策变量对应的领域组合
type Key struct {
	LessonID  string
	Instance  int
	SlotIndex int
	RoomID    string
}

// Var 决策变量：“该实例安排在此时段此教室”
type Var struct {
	Lit    engine.Lit
	Key    Key
	Lesson *model.Lesson
	Slot   slot.Slot
	Room   *model.Room
}

// Occurrence 返回变量所属实例
func (v *Var) Occurrence() model.Occurrence {
	return model.Occurrence{LessonID: v.Key.LessonID, Instance: v.Key.Instance}
}

// Rejection 实例候选被过滤的统计
type Rejection struct {
	SlotsConsidered   int
	TeacherBlocked    int
	ClassBlocked      int
	NoRoom            int
	PinnedSlotMissing bool
}

// Index 变量与领域组合的双向索引，构建后只读
type Index struct {
	vars        []Var
	byKey       map[Key]int
	byLit       map[engine.Lit]int
	byOcc       map[model.Occurrence][]int
	teacherSlot map[string]map[int][]int
	classSlot   map[string]map[int][]int
	roomSlot    map[string]map[int][]int
	occurrences []model.Occurrence
	pinned      map[model.Occurrence]slot.Slot
	rooms       map[string][]*model.Room
	rejections  map[model.Occurrence]*Rejection
}

// Build 按输入顺序遍历课程、实例、时段、教室，创建全部合格变量
func Build(cat *model.Catalog, slots *slot.Index, m *engine.Model) *Index {
	idx := &Index{
		byKey:       make(map[Key]int),
		byLit:       make(map[engine.Lit]int),
		byOcc:       make(map[model.Occurrence][]int),
		teacherSlot: make(map[string]map[int][]int),
		classSlot:   make(map[string]map[int][]int),
		roomSlot:    make(map[string]map[int][]int),
		pinned:      make(map[model.Occurrence]slot.Slot),
		rooms:       make(map[string][]*model.Room),
		rejections:  make(map[model.Occurrence]*Rejection),
	}

	for li := range cat.Input.Lessons {
		lesson := &cat.Input.Lessons[li]
		if cat.Lesson(lesson.ID) != lesson {
			continue // 重复ID
		}
		rooms := CandidateRooms(cat, lesson)
		idx.rooms[lesson.ID] = rooms

		for inst := 0; inst < lesson.LessonsPerWeek; inst++ {
			occ := model.Occurrence{LessonID: lesson.ID, Instance: inst}
			idx.occurrences = append(idx.occurrences, occ)
			rej := &Rejection{}
			idx.rejections[occ] = rej

			candidates := slots.AllSlots()
			if inst < len(lesson.FixedSlots) {
				s, ok := slots.SlotByPeriod(lesson.FixedSlots[inst].PeriodID)
				if !ok || s.Day != lesson.FixedSlots[inst].Day {
					rej.PinnedSlotMissing = true
					continue
				}
				idx.pinned[occ] = s
				candidates = []slot.Slot{s}
			}

			for _, s := range candidates {
				rej.SlotsConsidered++
				if !slots.IsAvailable(slot.KindTeacher, lesson.TeacherID, s) {
					rej.TeacherBlocked++
					continue
				}
				if !slots.IsAvailable(slot.KindClass, lesson.ClassID, s) {
					rej.ClassBlocked++
					continue
				}
				placed := false
				for _, room := range rooms {
					if !slots.IsAvailable(slot.KindRoom, room.ID, s) {
						continue
					}
					idx.add(m, lesson, inst, s, room)
					placed = true
				}
				if !placed {
					rej.NoRoom++
				}
			}
		}
	}
	return idx
}

func (idx *Index) add(m *engine.Model, lesson *model.Lesson, inst int, s slot.Slot, room *model.Room) {
	key := Key{LessonID: lesson.ID, Instance: inst, SlotIndex: s.Index, RoomID: room.ID}
	lit := m.NewBool(fmt.Sprintf("x[%s#%d@%s/%s]", lesson.ID, inst, s.Period.ID, room.ID))
	i := len(idx.vars)
	idx.vars = append(idx.vars, Var{Lit: lit, Key: key, Lesson: lesson, Slot: s, Room: room})
	idx.byKey[key] = i
	idx.byLit[lit] = i

	occ := model.Occurrence{LessonID: lesson.ID, Instance: inst}
	idx.byOcc[occ] = append(idx.byOcc[occ], i)
	addTo(idx.teacherSlot, lesson.TeacherID, s.Index, i)
	addTo(idx.classSlot, lesson.ClassID, s.Index, i)
	addTo(idx.roomSlot, room.ID, s.Index, i)
}

func addTo(m map[string]map[int][]int, id string, slotIdx, v int) {
	inner, ok := m[id]
	if !ok {
		inner = make(map[int][]int)
		m[id] = inner
	}
	inner[slotIdx] = append(inner[slotIdx], v)
}

// CandidateRooms 满足课程教室要求的教室（保持输入顺序）
func CandidateRooms(cat *model.Catalog, lesson *model.Lesson) []*model.Room {
	var out []*model.Room
	for i := range cat.Input.Rooms {
		room := &cat.Input.Rooms[i]
		if cat.Room(room.ID) != room {
			continue
		}
		if ok, _ := RoomSuitable(cat, lesson, room); ok {
			out = append(out, room)
		}
	}
	return out
}

// RoomSuitable 判断教室是否满足课程的硬性要求，不满足时给出原因
func RoomSuitable(cat *model.Catalog, lesson *model.Lesson, room *model.Room) (bool, string) {
	req := lesson.RoomRequirement
	if req != nil {
		for _, id := range req.ExcludedRooms {
			if id == room.ID {
				return false, fmt.Sprintf("教室 %s 被排除", room.ID)
			}
		}
		if req.RoomType != "" && room.Type != req.RoomType {
			return false, fmt.Sprintf("需要 %s，实际 %s", req.RoomType, room.Type)
		}
		if !room.HasEquipment(req.RequiresEquipment) {
			return false, fmt.Sprintf("教室 %s 缺少设备", room.ID)
		}
	}
	if rt, ok := cat.RequiredRoomType(lesson.SubjectID); ok && room.Type != rt {
		return false, fmt.Sprintf("科目需要 %s，实际 %s", rt, room.Type)
	}
	if need := cat.MinCapacity(lesson); need > 0 && room.Capacity != nil && *room.Capacity < need {
		return false, fmt.Sprintf("容量 %d < %d", *room.Capacity, need)
	}
	return true, ""
}

// Len 变量数量
func (idx *Index) Len() int { return len(idx.vars) }

// Vars 全部变量（创建顺序）
func (idx *Index) Vars() []Var { return idx.vars }

// Lookup 按领域组合查找变量
func (idx *Index) Lookup(k Key) (*Var, bool) {
	i, ok := idx.byKey[k]
	if !ok {
		return nil, false
	}
	return &idx.vars[i], true
}

// ByLit 按决策文字反查变量
func (idx *Index) ByLit(l engine.Lit) (*Var, bool) {
	i, ok := idx.byLit[l]
	if !ok {
		return nil, false
	}
	return &idx.vars[i], true
}

// Occurrences 全部课程实例（输入顺序）
func (idx *Index) Occurrences() []model.Occurrence { return idx.occurrences }

// Pinned 实例的固定时段
func (idx *Index) Pinned(occ model.Occurrence) (slot.Slot, bool) {
	s, ok := idx.pinned[occ]
	return s, ok
}

// Rejection 实例的候选过滤统计
func (idx *Index) Rejection(occ model.Occurrence) *Rejection { return idx.rejections[occ] }

// Rooms 课程的候选教室
func (idx *Index) Rooms(lessonID string) []*model.Room { return idx.rooms[lessonID] }

// ForOccurrence 实例的全部变量
func (idx *Index) ForOccurrence(occ model.Occurrence) []*Var {
	return idx.collect(idx.byOcc[occ])
}

// OccurrenceLits 实例的全部决策文字
func (idx *Index) OccurrenceLits(occ model.Occurrence) []engine.Lit {
	return idx.lits(idx.byOcc[occ])
}

// OccurrenceDayLits 实例在某天的决策文字
func (idx *Index) OccurrenceDayLits(occ model.Occurrence, day int) []engine.Lit {
	var out []engine.Lit
	for _, i := range idx.byOcc[occ] {
		if idx.vars[i].Slot.Day == day {
			out = append(out, idx.vars[i].Lit)
		}
	}
	return out
}

// TeacherSlotLits 教师在时段上的决策文字
func (idx *Index) TeacherSlotLits(teacherID string, slotIdx int) []engine.Lit {
	return idx.lits(idx.teacherSlot[teacherID][slotIdx])
}

// ClassSlotLits 教学班在时段上的决策文字
func (idx *Index) ClassSlotLits(classID string, slotIdx int) []engine.Lit {
	return idx.lits(idx.classSlot[classID][slotIdx])
}

// RoomSlotLits 教室在时段上的决策文字
func (idx *Index) RoomSlotLits(roomID string, slotIdx int) []engine.Lit {
	return idx.lits(idx.roomSlot[roomID][slotIdx])
}

// TeacherLits 教师的全部决策文字
func (idx *Index) TeacherLits(teacherID string) []engine.Lit {
	return idx.lits(flatten(idx.teacherSlot[teacherID]))
}

// ResourceSlots 资源被引用到的时段序号（升序）
func (idx *Index) ResourceSlots(kind slot.Kind, id string) []int {
	var m map[int][]int
	switch kind {
	case slot.KindTeacher:
		m = idx.teacherSlot[id]
	case slot.KindClass:
		m = idx.classSlot[id]
	case slot.KindRoom:
		m = idx.roomSlot[id]
	}
	out := make([]int, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

func (idx *Index) lits(is []int) []engine.Lit {
	out := make([]engine.Lit, len(is))
	for j, i := range is {
		out[j] = idx.vars[i].Lit
	}
	return out
}

func (idx *Index) collect(is []int) []*Var {
	out := make([]*Var, len(is))
	for j, i := range is {
		out[j] = &idx.vars[i]
	}
	return out
}

func flatten(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var out []int
	for _, k := range keys {
		out = append(out, m[k]...)
	}
	return out
}
