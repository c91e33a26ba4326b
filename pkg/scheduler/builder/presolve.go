package builder

import (
	"fmt"
	"strings"

	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
	"github.com/paiban/kebiao/pkg/scheduler/variable"
)

// 求解前不可行原因类别
const (
	ReasonTeacherOverload   = "teacher_overload"
	ReasonMissingRoomType   = "missing_room_type"
	ReasonNoRoom            = "no_suitable_room"
	ReasonInsufficientSlots = "insufficient_slots"
	ReasonUnplaceable       = "occurrence_unplaceable"
	ReasonTeacherSlots      = "teacher_slots"
	ReasonClassSlots        = "class_slots"
)

// Reason 求解前发现的不可行原因，指明相关实体
type Reason struct {
	Kind       string `json:"kind" yaml:"kind"`
	EntityType string `json:"entityType" yaml:"entityType"`
	EntityID   string `json:"entityId" yaml:"entityId"`
	Message    string `json:"message" yaml:"message"`
}

// PreSolveReport 求解前检查结果
type PreSolveReport struct {
	Reasons []Reason `json:"reasons"`
}

// Infeasible 是否已判定不可行
func (r *PreSolveReport) Infeasible() bool {
	return r != nil && len(r.Reasons) > 0
}

func (r *PreSolveReport) add(kind, entityType, entityID, format string, args ...interface{}) {
	r.Reasons = append(r.Reasons, Reason{
		Kind:       kind,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    fmt.Sprintf(format, args...),
	})
}

// Err 转换为应用错误
func (r *PreSolveReport) Err() error {
	if !r.Infeasible() {
		return nil
	}
	msgs := make([]string, len(r.Reasons))
	for i, reason := range r.Reasons {
		msgs[i] = reason.Message
	}
	return errors.New(errors.CodePreSolveInfeasible, "求解前检测到不可行").
		WithDetails(strings.Join(msgs, "; ")).
		WithField("reasons", r.Reasons)
}

// PreSolve 在调用求解引擎之前检查明显的不可行
func PreSolve(cat *model.Catalog, slots *slot.Index, vars *variable.Index) *PreSolveReport {
	r := &PreSolveReport{}

	for i := range cat.Input.Teachers {
		t := &cat.Input.Teachers[i]
		if cat.Teacher(t.ID) != t {
			continue
		}
		load := cat.TeacherLoad(t.ID)
		if limit := cat.HardWeeklyCap(t.ID); limit > 0 && load > limit {
			r.add(ReasonTeacherOverload, "teacher", t.ID,
				"教师 %s 每周需上 %d 节，超过上限 %d", t.ID, load, limit)
		}
		if limit := cat.HardDailyCap(t.ID); limit > 0 && load > limit*len(slots.Days()) {
			r.add(ReasonTeacherOverload, "teacher", t.ID,
				"教师 %s 每周需上 %d 节，超过每日上限 %d × %d 天", t.ID, load, limit, len(slots.Days()))
		}
		if avail := len(vars.ResourceSlots(slot.KindTeacher, t.ID)); load > avail {
			r.add(ReasonTeacherSlots, "teacher", t.ID,
				"教师 %s 每周需上 %d 节，可排时段仅 %d 个", t.ID, load, avail)
		}
	}

	for i := range cat.Input.Classes {
		c := &cat.Input.Classes[i]
		if cat.Class(c.ID) != c {
			continue
		}
		load := 0
		for _, l := range cat.ClassLessons(c.ID) {
			load += l.LessonsPerWeek
		}
		if avail := len(vars.ResourceSlots(slot.KindClass, c.ID)); load > avail {
			r.add(ReasonClassSlots, "class", c.ID,
				"教学班 %s 每周需上 %d 节，可排时段仅 %d 个", c.ID, load, avail)
		}
	}

	for i := range cat.Input.Lessons {
		l := &cat.Input.Lessons[i]
		if cat.Lesson(l.ID) != l || l.LessonsPerWeek <= 0 {
			continue
		}
		if rt, ok := requiredType(cat, l); ok && !hasRoomType(cat, rt) {
			r.add(ReasonMissingRoomType, "subject", l.SubjectID,
				"课程 %s 需要 %s 类型教室，但没有该类型的教室", l.ID, rt)
			continue
		}
		if len(vars.Rooms(l.ID)) == 0 {
			r.add(ReasonNoRoom, "lesson", l.ID, "课程 %s 没有满足要求的教室", l.ID)
			continue
		}

		distinct := make(map[int]bool)
		for inst := 0; inst < l.LessonsPerWeek; inst++ {
			occ := model.Occurrence{LessonID: l.ID, Instance: inst}
			vs := vars.ForOccurrence(occ)
			for _, v := range vs {
				distinct[v.Slot.Index] = true
			}
			if len(vs) == 0 {
				r.add(ReasonUnplaceable, "lesson", l.ID, "课程实例 %s 没有可用时段: %s", occ, describe(vars.Rejection(occ)))
			}
		}
		if len(distinct) < l.LessonsPerWeek {
			r.add(ReasonInsufficientSlots, "lesson", l.ID,
				"课程 %s 每周 %d 次，兼容时段仅 %d 个", l.ID, l.LessonsPerWeek, len(distinct))
		}
	}
	return r
}

func requiredType(cat *model.Catalog, l *model.Lesson) (model.RoomType, bool) {
	if rt, ok := cat.RequiredRoomType(l.SubjectID); ok {
		return rt, true
	}
	if l.RoomRequirement != nil && l.RoomRequirement.RoomType != "" {
		return l.RoomRequirement.RoomType, true
	}
	return "", false
}

func hasRoomType(cat *model.Catalog, rt model.RoomType) bool {
	for _, r := range cat.Input.Rooms {
		if r.Type == rt {
			return true
		}
	}
	return false
}

func describe(rej *variable.Rejection) string {
	if rej == nil {
		return "未知"
	}
	if rej.PinnedSlotMissing {
		return "固定节次不可排课"
	}
	return fmt.Sprintf("考察 %d 个时段，教师不可用 %d，教学班不可用 %d，无可用教室 %d",
		rej.SlotsConsidered, rej.TeacherBlocked, rej.ClassBlocked, rej.NoRoom)
}
