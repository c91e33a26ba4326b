// Package slot 由节次推导可排课时段，并预计算各实体的可用性掩码
package slot

import (
	"github.com/paiban/kebiao/pkg/model"
)

// Kind 实体类别
type Kind string

const (
	KindTeacher Kind = "teacher"
	KindClass   Kind = "class"
	KindRoom    Kind = "room"
)

// Slot 可排课时段 (day, period)
type Slot struct {
	Index  int // 全局序号，按 (day, start) 排序
	Pos    int // 当天内序号
	Day    int
	Period *model.Period
}

// Start 开始分钟
func (s Slot) Start() int { return s.Period.StartMinutes }

// End 结束分钟
func (s Slot) End() int { return s.Period.EndMinutes }

// Excluded 被排除的节次及原因
type Excluded struct {
	PeriodID string `json:"periodId" yaml:"periodId"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Index 时段索引，构建后只读
type Index struct {
	slots    []Slot
	byDay    map[int][]Slot
	days     []int
	byPeriod map[string]int
	excluded []Excluded
	masks    map[Kind]map[string][]bool
}

// New 从目录构建时段索引
func New(cat *model.Catalog) *Index {
	cfg := cat.Config
	idx := &Index{
		byDay:    make(map[int][]Slot),
		byPeriod: make(map[string]int),
		masks: map[Kind]map[string][]bool{
			KindTeacher: {},
			KindClass:   {},
			KindRoom:    {},
		},
	}

	for _, p := range cat.Input.SchedulablePeriods() {
		switch {
		case p.Day < 0 || p.Day >= cfg.NumDays:
			idx.excluded = append(idx.excluded, Excluded{PeriodID: p.ID, Reason: "超出教学日"})
			continue
		case p.StartMinutes < cfg.DayStartMinutes || p.EndMinutes > cfg.DayEndMinutes:
			idx.excluded = append(idx.excluded, Excluded{PeriodID: p.ID, Reason: "超出上课时间"})
			continue
		}
		if _, dup := idx.byPeriod[p.ID]; dup {
			continue
		}
		s := Slot{Index: len(idx.slots), Pos: len(idx.byDay[p.Day]), Day: p.Day, Period: p}
		if len(idx.byDay[p.Day]) == 0 {
			idx.days = append(idx.days, p.Day)
		}
		idx.slots = append(idx.slots, s)
		idx.byDay[p.Day] = append(idx.byDay[p.Day], s)
		idx.byPeriod[p.ID] = s.Index
	}
	for i := range cat.Input.Periods {
		if p := &cat.Input.Periods[i]; !p.Schedulable() {
			reason := "课间"
			if p.IsLunch {
				reason = "午休"
			}
			idx.excluded = append(idx.excluded, Excluded{PeriodID: p.ID, Reason: reason})
		}
	}

	for _, t := range cat.Input.Teachers {
		idx.masks[KindTeacher][t.ID] = idx.mask(cat.TeacherWindows(t.ID))
	}
	for _, c := range cat.Input.Classes {
		idx.masks[KindClass][c.ID] = idx.mask(cat.ClassWindows(c.ID))
	}
	for _, r := range cat.Input.Rooms {
		idx.masks[KindRoom][r.ID] = idx.mask(cat.RoomWindows(r.ID))
	}
	return idx
}

func (idx *Index) mask(windows []model.Availability) []bool {
	m := make([]bool, len(idx.slots))
	for i, s := range idx.slots {
		m[i] = !model.BlocksInterval(windows, s.Day, s.Start(), s.End())
	}
	return m
}

// Len 时段数量
func (idx *Index) Len() int { return len(idx.slots) }

// AllSlots 全部时段
func (idx *Index) AllSlots() []Slot { return idx.slots }

// Slot 按序号取时段
func (idx *Index) Slot(i int) Slot { return idx.slots[i] }

// Days 有时段的教学日（升序）
func (idx *Index) Days() []int { return idx.days }

// SlotsForDay 某天的时段（按开始时间排序）
func (idx *Index) SlotsForDay(day int) []Slot { return idx.byDay[day] }

// Covering 同一天覆盖 s 开始时刻的时段（含 s 自身）
// 对每个时段取覆盖集即得到区间图的全部极大团
func (idx *Index) Covering(s Slot) []Slot {
	var out []Slot
	for _, t := range idx.byDay[s.Day] {
		if t.Start() <= s.Start() && s.Start() < t.End() {
			out = append(out, t)
		}
	}
	return out
}

// SlotByPeriod 按节次ID查找时段
func (idx *Index) SlotByPeriod(periodID string) (Slot, bool) {
	i, ok := idx.byPeriod[periodID]
	if !ok {
		return Slot{}, false
	}
	return idx.slots[i], true
}

// Excluded 被排除的节次
func (idx *Index) Excluded() []Excluded { return idx.excluded }

// IsAvailable 实体在时段是否可用；未知实体视为不可用
func (idx *Index) IsAvailable(kind Kind, id string, s Slot) bool {
	m, ok := idx.masks[kind][id]
	if !ok || s.Index < 0 || s.Index >= len(m) {
		return false
	}
	return m[s.Index]
}

// AvailableCount 实体可用的时段数
func (idx *Index) AvailableCount(kind Kind, id string) int {
	n := 0
	for _, ok := range idx.masks[kind][id] {
		if ok {
			n++
		}
	}
	return n
}
