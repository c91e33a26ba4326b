// Package validator 对已解码的课表做独立的冲突检测
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/kebiao/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictTeacherOverlap ConflictType = "teacher_overlap" // 教师时间重叠
	ConflictClassOverlap   ConflictType = "class_overlap"   // 教学班时间重叠
	ConflictRoomOverlap    ConflictType = "room_overlap"    // 教室时间重叠
	ConflictRoomType       ConflictType = "room_type"       // 专用教室类型不符
	ConflictRoomCapacity   ConflictType = "room_capacity"   // 教室容量不足
	ConflictFixedSlot      ConflictType = "fixed_slot"      // 未落在固定节次
	ConflictAvailability   ConflictType = "availability"    // 不可用时间
	ConflictMaxPeriods     ConflictType = "max_periods"     // 超过课时上限
	ConflictOccurrence     ConflictType = "occurrence"      // 实例缺失或重复
)

// 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"`
	EntityID string       `json:"entityId"`
	Day      int          `json:"day"`
	Message  string       `json:"message"`
	// Occurrences 相关的课程实例
	Occurrences []string `json:"occurrences,omitempty"`
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckRooms        bool // 检查教室类型与容量
	CheckAvailability bool // 检查不可用时间
	CheckCapacity     bool // 检查教师课时上限
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckRooms:        true,
		CheckAvailability: true,
		CheckCapacity:     true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测课表中的全部冲突，结果顺序确定
func (d *ConflictDetector) DetectAll(cat *model.Catalog, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict

	conflicts = append(conflicts, d.detectOverlaps(ConflictTeacherOverlap, "教师", assignments, func(a *model.Assignment) string { return a.TeacherID })...)
	conflicts = append(conflicts, d.detectOverlaps(ConflictClassOverlap, "教学班", assignments, func(a *model.Assignment) string { return a.ClassID })...)
	conflicts = append(conflicts, d.detectOverlaps(ConflictRoomOverlap, "教室", assignments, func(a *model.Assignment) string { return a.RoomID })...)
	conflicts = append(conflicts, d.detectOccurrences(cat, assignments)...)
	conflicts = append(conflicts, d.detectFixedSlots(cat, assignments)...)
	if d.config.CheckRooms {
		conflicts = append(conflicts, d.detectRooms(cat, assignments)...)
	}
	if d.config.CheckAvailability {
		conflicts = append(conflicts, d.detectAvailability(cat, assignments)...)
	}
	if d.config.CheckCapacity {
		conflicts = append(conflicts, d.detectMaxPeriods(cat, assignments)...)
	}
	return conflicts
}

// DetectForAssignment 检测手工调整的一条排课与现有课表的冲突
func (d *ConflictDetector) DetectForAssignment(cat *model.Catalog, candidate model.Assignment, existing []model.Assignment) []Conflict {
	var conflicts []Conflict
	self := occurrenceID(&candidate)

	for i := range existing {
		other := &existing[i]
		if occurrenceID(other) == self || !candidate.Overlaps(other) {
			continue
		}
		pair := []string{self, occurrenceID(other)}
		if other.TeacherID == candidate.TeacherID {
			conflicts = append(conflicts, newConflict(ConflictTeacherOverlap, candidate.TeacherID, candidate.Day, pair,
				"教师 %s 在 %s 已有课程 %s", candidate.TeacherID, slotLabel(&candidate), other.LessonID))
		}
		if other.ClassID == candidate.ClassID {
			conflicts = append(conflicts, newConflict(ConflictClassOverlap, candidate.ClassID, candidate.Day, pair,
				"教学班 %s 在 %s 已有课程 %s", candidate.ClassID, slotLabel(&candidate), other.LessonID))
		}
		if other.RoomID == candidate.RoomID {
			conflicts = append(conflicts, newConflict(ConflictRoomOverlap, candidate.RoomID, candidate.Day, pair,
				"教室 %s 在 %s 已被课程 %s 占用", candidate.RoomID, slotLabel(&candidate), other.LessonID))
		}
	}

	single := []model.Assignment{candidate}
	if d.config.CheckRooms {
		conflicts = append(conflicts, d.detectRooms(cat, single)...)
	}
	if d.config.CheckAvailability {
		conflicts = append(conflicts, d.detectAvailability(cat, single)...)
	}
	return conflicts
}

// detectOverlaps 按资源分组后检测相邻排课的时间重叠
func (d *ConflictDetector) detectOverlaps(typ ConflictType, label string, assignments []model.Assignment, key func(*model.Assignment) string) []Conflict {
	var conflicts []Conflict

	groups := make(map[string][]*model.Assignment)
	for i := range assignments {
		a := &assignments[i]
		groups[key(a)] = append(groups[key(a)], a)
	}

	for _, id := range sortedKeys(groups) {
		sorted := groups[id]
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Day != sorted[j].Day {
				return sorted[i].Day < sorted[j].Day
			}
			return sorted[i].StartMinutes < sorted[j].StartMinutes
		})

		// 与当前最晚结束的排课比较，可发现被长课覆盖的重叠
		for i := 1; i < len(sorted); i++ {
			for j := i - 1; j >= 0 && sorted[j].Day == sorted[i].Day; j-- {
				if !sorted[i].Overlaps(sorted[j]) {
					continue
				}
				conflicts = append(conflicts, newConflict(typ, id, sorted[i].Day,
					[]string{occurrenceID(sorted[j]), occurrenceID(sorted[i])},
					"%s %s 在 %s 存在时间重叠的课程", label, id, slotLabel(sorted[i])))
			}
		}
	}
	return conflicts
}

// detectOccurrences 每个课程实例恰好出现一次
func (d *ConflictDetector) detectOccurrences(cat *model.Catalog, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict

	counts := make(map[model.Occurrence]int)
	for i := range assignments {
		a := &assignments[i]
		counts[model.Occurrence{LessonID: a.LessonID, Instance: a.Instance}]++
		if cat.Lesson(a.LessonID) == nil || a.Instance < 0 || a.Instance >= cat.Lesson(a.LessonID).LessonsPerWeek {
			conflicts = append(conflicts, newConflict(ConflictOccurrence, a.LessonID, a.Day, []string{occurrenceID(a)},
				"课程实例 %s 不存在", occurrenceID(a)))
		}
	}

	for i := range cat.Input.Lessons {
		l := &cat.Input.Lessons[i]
		if cat.Lesson(l.ID) != l {
			continue
		}
		for inst := 0; inst < l.LessonsPerWeek; inst++ {
			occ := model.Occurrence{LessonID: l.ID, Instance: inst}
			switch n := counts[occ]; {
			case n == 0:
				conflicts = append(conflicts, newConflict(ConflictOccurrence, l.ID, -1, []string{occ.String()},
					"课程实例 %s 未安排", occ))
			case n > 1:
				conflicts = append(conflicts, newConflict(ConflictOccurrence, l.ID, -1, []string{occ.String()},
					"课程实例 %s 安排了 %d 次", occ, n))
			}
		}
	}
	return conflicts
}

// detectFixedSlots 固定节次的实例须落在指定节次
func (d *ConflictDetector) detectFixedSlots(cat *model.Catalog, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict
	for i := range assignments {
		a := &assignments[i]
		l := cat.Lesson(a.LessonID)
		if l == nil || a.Instance >= len(l.FixedSlots) || a.Instance < 0 {
			continue
		}
		fs := l.FixedSlots[a.Instance]
		if fs.Day != a.Day || fs.PeriodID != a.PeriodID {
			conflicts = append(conflicts, newConflict(ConflictFixedSlot, l.ID, a.Day, []string{occurrenceID(a)},
				"课程实例 %s 应固定在 %s %s，实际在 %s", occurrenceID(a), model.DayName(fs.Day), fs.PeriodID, slotLabel(a)))
		}
	}
	return conflicts
}

// detectRooms 检查专用教室类型与容量
func (d *ConflictDetector) detectRooms(cat *model.Catalog, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict
	for i := range assignments {
		a := &assignments[i]
		room := cat.Room(a.RoomID)
		l := cat.Lesson(a.LessonID)
		if room == nil || l == nil {
			continue
		}
		if rt, ok := cat.RequiredRoomType(l.SubjectID); ok && room.Type != rt {
			conflicts = append(conflicts, newConflict(ConflictRoomType, room.ID, a.Day, []string{occurrenceID(a)},
				"课程 %s 需要 %s 类型教室，实际为 %s", l.ID, rt, room.Type))
		}
		if need := cat.MinCapacity(l); need > 0 && room.Capacity != nil && *room.Capacity < need {
			conflicts = append(conflicts, newConflict(ConflictRoomCapacity, room.ID, a.Day, []string{occurrenceID(a)},
				"教室 %s 容量 %d，少于课程 %s 所需 %d", room.ID, *room.Capacity, l.ID, need))
		}
	}
	return conflicts
}

// detectAvailability 检查教师、教学班与教室的不可用时间
func (d *ConflictDetector) detectAvailability(cat *model.Catalog, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict
	for i := range assignments {
		a := &assignments[i]
		checks := []struct {
			label   string
			id      string
			windows []model.Availability
		}{
			{"教师", a.TeacherID, cat.TeacherWindows(a.TeacherID)},
			{"教学班", a.ClassID, cat.ClassWindows(a.ClassID)},
			{"教室", a.RoomID, cat.RoomWindows(a.RoomID)},
		}
		for _, c := range checks {
			if model.BlocksInterval(c.windows, a.Day, a.StartMinutes, a.EndMinutes) {
				conflicts = append(conflicts, newConflict(ConflictAvailability, c.id, a.Day, []string{occurrenceID(a)},
					"%s %s 在 %s 不可用", c.label, c.id, slotLabel(a)))
			}
		}
	}
	return conflicts
}

// detectMaxPeriods 检查教师每日、每周课时硬上限
func (d *ConflictDetector) detectMaxPeriods(cat *model.Catalog, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict

	daily := make(map[string]map[int]int)
	weekly := make(map[string]int)
	for i := range assignments {
		a := &assignments[i]
		if daily[a.TeacherID] == nil {
			daily[a.TeacherID] = make(map[int]int)
		}
		daily[a.TeacherID][a.Day]++
		weekly[a.TeacherID]++
	}

	for _, id := range sortedKeys(weekly) {
		if limit := cat.HardDailyCap(id); limit > 0 {
			days := make([]int, 0, len(daily[id]))
			for day := range daily[id] {
				days = append(days, day)
			}
			sort.Ints(days)
			for _, day := range days {
				if n := daily[id][day]; n > limit {
					conflicts = append(conflicts, newConflict(ConflictMaxPeriods, id, day, nil,
						"教师 %s 在 %s 上课 %d 节，超过上限 %d 节", id, model.DayName(day), n, limit))
				}
			}
		}
		if limit := cat.HardWeeklyCap(id); limit > 0 && weekly[id] > limit {
			conflicts = append(conflicts, newConflict(ConflictMaxPeriods, id, -1, nil,
				"教师 %s 每周上课 %d 节，超过上限 %d 节", id, weekly[id], limit))
		}
	}
	return conflicts
}

func newConflict(typ ConflictType, entityID string, day int, occs []string, format string, args ...interface{}) Conflict {
	return Conflict{
		Type:        typ,
		Severity:    SeverityError,
		EntityID:    entityID,
		Day:         day,
		Message:     fmt.Sprintf(format, args...),
		Occurrences: occs,
	}
}

func occurrenceID(a *model.Assignment) string {
	return model.Occurrence{LessonID: a.LessonID, Instance: a.Instance}.String()
}

func slotLabel(a *model.Assignment) string {
	return fmt.Sprintf("%s %s-%s", model.DayName(a.Day), model.MinutesToTime(a.StartMinutes), model.MinutesToTime(a.EndMinutes))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasErrors 是否存在错误级别的冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}
