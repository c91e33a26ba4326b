package model

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/paiban/kebiao/pkg/errors"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidationReport 校验结果
type ValidationReport struct {
	Errors   *errors.ValidationErrors `json:"errors,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// OK 无错误
func (r *ValidationReport) OK() bool {
	return r.Errors == nil || !r.Errors.HasErrors()
}

// Err 有错误时返回 error
func (r *ValidationReport) Err() error {
	if r.OK() {
		return nil
	}
	return r.Errors
}

// Validate 依次执行结构、引用与逻辑校验
func Validate(in *TimetableInput) *ValidationReport {
	errs := &errors.ValidationErrors{}
	errs.Merge(ValidateStructure(in))
	errs.Merge(ValidateReferences(in))
	logic, warnings := ValidateLogic(in)
	errs.Merge(logic)
	return &ValidationReport{Errors: errs, Warnings: warnings}
}

// ValidateStructure 字段取值与时间范围校验
func ValidateStructure(in *TimetableInput) *errors.ValidationErrors {
	errs := &errors.ValidationErrors{}
	cfg := in.Config.WithDefaults()

	if cfg.NumDays < 1 || cfg.NumDays > MaxDays {
		errs.Addf("config.numDays", "必须在 1-%d 之间，实际 %d", MaxDays, cfg.NumDays)
	}
	if cfg.DefaultLessonDuration < 15 || cfg.DefaultLessonDuration > 240 {
		errs.Addf("config.defaultLessonDuration", "必须在 15-240 之间，实际 %d", cfg.DefaultLessonDuration)
	}
	if !validMinute(cfg.DayStartMinutes) || !validMinute(cfg.DayEndMinutes) || cfg.DayStartMinutes >= cfg.DayEndMinutes {
		errs.Addf("config.dayStartMinutes", "上课时间范围无效 [%d, %d)", cfg.DayStartMinutes, cfg.DayEndMinutes)
	}

	requireNonEmpty(errs, "teachers", len(in.Teachers))
	requireNonEmpty(errs, "classes", len(in.Classes))
	requireNonEmpty(errs, "subjects", len(in.Subjects))
	requireNonEmpty(errs, "rooms", len(in.Rooms))
	requireNonEmpty(errs, "lessons", len(in.Lessons))
	requireNonEmpty(errs, "periods", len(in.Periods))

	for i, t := range in.Teachers {
		f := fmt.Sprintf("teachers[%d]", i)
		requireID(errs, f, t.ID)
		if t.Name == "" {
			errs.Add(f+".name", "不能为空")
		}
		if t.Code != "" && len(t.Code) > 5 {
			errs.Add(f+".code", "长度不能超过 5")
		}
		if t.MaxPeriodsPerDay != nil && (*t.MaxPeriodsPerDay < 1 || *t.MaxPeriodsPerDay > 12) {
			errs.Addf(f+".maxPeriodsPerDay", "必须在 1-12 之间，实际 %d", *t.MaxPeriodsPerDay)
		}
		if t.MaxPeriodsPerWeek != nil && (*t.MaxPeriodsPerWeek < 1 || *t.MaxPeriodsPerWeek > 60) {
			errs.Addf(f+".maxPeriodsPerWeek", "必须在 1-60 之间，实际 %d", *t.MaxPeriodsPerWeek)
		}
		validateWindows(errs, f+".availability", t.Availability, cfg.NumDays)
	}
	for i, c := range in.Classes {
		f := fmt.Sprintf("classes[%d]", i)
		requireID(errs, f, c.ID)
		if c.YearGroup != nil && (*c.YearGroup < 1 || *c.YearGroup > 13) {
			errs.Addf(f+".yearGroup", "必须在 1-13 之间，实际 %d", *c.YearGroup)
		}
		if c.StudentCount != nil && *c.StudentCount < 1 {
			errs.Add(f+".studentCount", "必须大于 0")
		}
		validateWindows(errs, f+".availability", c.Availability, cfg.NumDays)
	}
	for i, s := range in.Subjects {
		f := fmt.Sprintf("subjects[%d]", i)
		requireID(errs, f, s.ID)
		if s.Color != "" && !colorPattern.MatchString(s.Color) {
			errs.Addf(f+".color", "颜色格式无效: %s", s.Color)
		}
		if s.RequiresSpecialistRoom && s.RequiredRoomType == "" {
			errs.Add(f+".requiredRoomType", "需要专用教室时必须指定教室类型")
		}
		if s.RequiredRoomType != "" && !s.RequiredRoomType.IsValid() {
			errs.Addf(f+".requiredRoomType", "未知教室类型: %s", s.RequiredRoomType)
		}
	}
	for i, r := range in.Rooms {
		f := fmt.Sprintf("rooms[%d]", i)
		requireID(errs, f, r.ID)
		if !r.Type.IsValid() {
			errs.Addf(f+".type", "未知教室类型: %s", r.Type)
		}
		if r.Capacity != nil && *r.Capacity < 1 {
			errs.Add(f+".capacity", "必须大于 0")
		}
		validateWindows(errs, f+".availability", r.Availability, cfg.NumDays)
	}
	for i, p := range in.Periods {
		f := fmt.Sprintf("periods[%d]", i)
		requireID(errs, f, p.ID)
		if p.Day < 0 || p.Day >= cfg.NumDays {
			errs.Addf(f+".day", "必须在 0-%d 之间，实际 %d", cfg.NumDays-1, p.Day)
		}
		if !validMinute(p.StartMinutes) || !validMinute(p.EndMinutes) {
			errs.Add(f, "时间必须在 0-1439 之间")
		} else if p.StartMinutes >= p.EndMinutes {
			errs.Addf(f, "开始时间 (%d) 必须早于结束时间 (%d)", p.StartMinutes, p.EndMinutes)
		}
	}
	for i, l := range in.Lessons {
		f := fmt.Sprintf("lessons[%d]", i)
		requireID(errs, f, l.ID)
		if l.DurationMinutes != 0 && (l.DurationMinutes < 15 || l.DurationMinutes > 240) {
			errs.Addf(f+".durationMinutes", "必须在 15-240 之间，实际 %d", l.DurationMinutes)
		}
		if l.LessonsPerWeek < 1 || l.LessonsPerWeek > 20 {
			errs.Addf(f+".lessonsPerWeek", "必须在 1-20 之间，实际 %d", l.LessonsPerWeek)
		}
		if len(l.FixedSlots) > l.LessonsPerWeek {
			errs.Addf(f+".fixedSlots", "固定时段数 (%d) 超过每周课时 (%d)", len(l.FixedSlots), l.LessonsPerWeek)
		}
		if rr := l.RoomRequirement; rr != nil {
			if rr.RoomType != "" && !rr.RoomType.IsValid() {
				errs.Addf(f+".roomRequirement.roomType", "未知教室类型: %s", rr.RoomType)
			}
			if rr.MinCapacity != nil && *rr.MinCapacity < 1 {
				errs.Add(f+".roomRequirement.minCapacity", "必须大于 0")
			}
		}
	}

	checkDuplicates(errs, "teacher", idsOf(len(in.Teachers), func(i int) string { return in.Teachers[i].ID }))
	checkDuplicates(errs, "class", idsOf(len(in.Classes), func(i int) string { return in.Classes[i].ID }))
	checkDuplicates(errs, "subject", idsOf(len(in.Subjects), func(i int) string { return in.Subjects[i].ID }))
	checkDuplicates(errs, "room", idsOf(len(in.Rooms), func(i int) string { return in.Rooms[i].ID }))
	checkDuplicates(errs, "lesson", idsOf(len(in.Lessons), func(i int) string { return in.Lessons[i].ID }))
	checkDuplicates(errs, "period", idsOf(len(in.Periods), func(i int) string { return in.Periods[i].ID }))

	return errs
}

// ValidateReferences 跨实体引用校验
func ValidateReferences(in *TimetableInput) *errors.ValidationErrors {
	errs := &errors.ValidationErrors{}
	c := NewCatalog(in)

	for _, l := range in.Lessons {
		f := "lesson." + l.ID
		if c.Teacher(l.TeacherID) == nil {
			errs.Addf(f+".teacherId", "未知教师 '%s'", l.TeacherID)
		}
		if c.Class(l.ClassID) == nil {
			errs.Addf(f+".classId", "未知教学班 '%s'", l.ClassID)
		}
		if c.Subject(l.SubjectID) == nil {
			errs.Addf(f+".subjectId", "未知科目 '%s'", l.SubjectID)
		}
		if rr := l.RoomRequirement; rr != nil {
			for _, id := range rr.PreferredRooms {
				if c.Room(id) == nil {
					errs.Addf(f+".roomRequirement.preferredRooms", "未知教室 '%s'", id)
				}
			}
			for _, id := range rr.ExcludedRooms {
				if c.Room(id) == nil {
					errs.Addf(f+".roomRequirement.excludedRooms", "未知教室 '%s'", id)
				}
			}
		}
		for _, fs := range l.FixedSlots {
			p := c.Period(fs.PeriodID)
			switch {
			case p == nil:
				errs.Addf(f+".fixedSlots", "未知节次 '%s'", fs.PeriodID)
			case !p.Schedulable():
				errs.Addf(f+".fixedSlots", "节次 '%s' 为课间或午休", fs.PeriodID)
			case p.Day != fs.Day:
				errs.Addf(f+".fixedSlots", "节次 '%s' 属于第 %d 天而非第 %d 天", fs.PeriodID, p.Day, fs.Day)
			}
		}
	}
	for _, t := range in.Teachers {
		for _, sid := range t.Subjects {
			if c.Subject(sid) == nil {
				errs.Addf("teacher."+t.ID+".subjects", "未知科目 '%s'", sid)
			}
		}
		for _, rid := range t.PreferredRooms {
			if c.Room(rid) == nil {
				errs.Addf("teacher."+t.ID+".preferredRooms", "未知教室 '%s'", rid)
			}
		}
	}
	for _, cl := range in.Classes {
		if cl.HomeRoom != "" && c.Room(cl.HomeRoom) == nil {
			errs.Addf("class."+cl.ID+".homeRoom", "未知教室 '%s'", cl.HomeRoom)
		}
	}

	cs := in.Constraints
	for i, r := range cs.TeacherMaxPeriods {
		if c.Teacher(r.TeacherID) == nil {
			errs.Addf(fmt.Sprintf("constraints.teacherMaxPeriods[%d]", i), "未知教师 '%s'", r.TeacherID)
		}
	}
	for i, r := range cs.RoomType {
		if c.Subject(r.SubjectID) == nil {
			errs.Addf(fmt.Sprintf("constraints.roomType[%d]", i), "未知科目 '%s'", r.SubjectID)
		}
	}
	for i, r := range cs.Availability {
		f := fmt.Sprintf("constraints.availability[%d]", i)
		var found bool
		switch r.EntityType {
		case "teacher":
			found = c.Teacher(r.EntityID) != nil
		case "class":
			found = c.Class(r.EntityID) != nil
		case "room":
			found = c.Room(r.EntityID) != nil
		default:
			errs.Addf(f+".entityType", "必须为 teacher/class/room，实际 %q", r.EntityType)
			continue
		}
		if !found {
			errs.Addf(f, "未知%s '%s'", r.EntityType, r.EntityID)
		}
	}
	for i, r := range cs.ConsecutiveLessons {
		if c.Lesson(r.LessonID) == nil {
			errs.Addf(fmt.Sprintf("constraints.consecutiveLessons[%d]", i), "未知课程 '%s'", r.LessonID)
		}
	}
	for i, r := range cs.LessonSpread {
		if c.Lesson(r.LessonID) == nil {
			errs.Addf(fmt.Sprintf("constraints.lessonSpread[%d]", i), "未知课程 '%s'", r.LessonID)
		}
	}
	for i, r := range cs.RoomCapacity {
		if c.Class(r.ClassID) == nil {
			errs.Addf(fmt.Sprintf("constraints.roomCapacity[%d]", i), "未知教学班 '%s'", r.ClassID)
		}
	}
	for i, r := range cs.TeacherPreference {
		f := fmt.Sprintf("constraints.teacherPreference[%d]", i)
		if c.Teacher(r.TeacherID) == nil {
			errs.Addf(f, "未知教师 '%s'", r.TeacherID)
		}
		for _, pid := range append(append([]string{}, r.PreferredPeriods...), r.AvoidedPeriods...) {
			if c.Period(pid) == nil {
				errs.Addf(f, "未知节次 '%s'", pid)
			}
		}
	}
	return errs
}

// ValidateLogic 逻辑一致性校验，返回错误与警告
func ValidateLogic(in *TimetableInput) (*errors.ValidationErrors, []string) {
	errs := &errors.ValidationErrors{}
	var warnings []string
	c := NewCatalog(in)

	for _, s := range in.Subjects {
		rt, ok := c.RequiredRoomType(s.ID)
		if !ok {
			continue
		}
		found := false
		for _, r := range in.Rooms {
			if r.Type == rt {
				found = true
				break
			}
		}
		if !found {
			errs.Addf("subject."+s.ID, "需要 %s 类型教室，但不存在该类型教室", rt)
		}
	}

	slots := len(in.SchedulablePeriods())
	for _, t := range in.Teachers {
		load := c.TeacherLoad(t.ID)
		if load > slots {
			errs.Addf("teacher."+t.ID, "共有 %d 节课，但只有 %d 个可排节次", load, slots)
		} else if t.MaxPeriodsPerWeek != nil && load > *t.MaxPeriodsPerWeek {
			warnings = append(warnings, fmt.Sprintf("教师 '%s' 共有 %d 节课，超过每周上限 %d", t.ID, load, *t.MaxPeriodsPerWeek))
		}
	}

	total := in.TotalOccurrences()
	if roomSlots := slots * len(in.Rooms); total > roomSlots {
		warnings = append(warnings, fmt.Sprintf("课程实例总数 (%d) 超过教室节次总数 (%d)", total, roomSlots))
	}
	return errs, warnings
}

func validMinute(m int) bool {
	return m >= 0 && m < MinutesPerDay
}

func requireNonEmpty(errs *errors.ValidationErrors, field string, n int) {
	if n == 0 {
		errs.Add(field, "至少需要一项")
	}
}

func requireID(errs *errors.ValidationErrors, field, id string) {
	if id == "" {
		errs.Add(field+".id", "不能为空")
	}
}

// validateWindows 检查窗口时间范围，并要求同一天窗口互不重叠
func validateWindows(errs *errors.ValidationErrors, field string, windows []Availability, numDays int) {
	byDay := make(map[int][]Availability)
	for i, w := range windows {
		if w.Day < 0 || w.Day >= numDays {
			errs.Addf(fmt.Sprintf("%s[%d].day", field, i), "必须在 0-%d 之间", numDays-1)
			continue
		}
		if !validMinute(w.StartMinutes) || !validMinute(w.EndMinutes) || w.StartMinutes >= w.EndMinutes {
			errs.Addf(fmt.Sprintf("%s[%d]", field, i), "时间范围无效 [%d, %d)", w.StartMinutes, w.EndMinutes)
			continue
		}
		byDay[w.Day] = append(byDay[w.Day], w)
	}
	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, d := range days {
		ws := byDay[d]
		sort.Slice(ws, func(a, b int) bool { return ws[a].StartMinutes < ws[b].StartMinutes })
		for i := 1; i < len(ws); i++ {
			if ws[i].StartMinutes < ws[i-1].EndMinutes {
				errs.Addf(field, "%s 的时间窗口重叠: %s-%s 与 %s-%s", DayName(d),
					MinutesToTime(ws[i-1].StartMinutes), MinutesToTime(ws[i-1].EndMinutes),
					MinutesToTime(ws[i].StartMinutes), MinutesToTime(ws[i].EndMinutes))
			}
		}
	}
}

func idsOf(n int, get func(int) string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = get(i)
	}
	return out
}

func checkDuplicates(errs *errors.ValidationErrors, entity string, ids []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if seen[id] {
			errs.Addf(entity, "重复的 %s ID: '%s'", entity, id)
		}
		seen[id] = true
	}
}
