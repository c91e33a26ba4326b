package model

// Catalog 输入实体的只读索引，合并实体字段与约束偏好记录
type Catalog struct {
	Input  *TimetableInput
	Config SchoolConfig

	teachers map[string]*Teacher
	classes  map[string]*Class
	subjects map[string]*Subject
	rooms    map[string]*Room
	lessons  map[string]*Lesson
	periods  map[string]*Period

	teacherLessons map[string][]*Lesson
	classLessons   map[string][]*Lesson

	extraWindows map[string][]Availability // key: entityType + ":" + id
}

// NewCatalog 构建实体索引；重复ID以首个为准
func NewCatalog(in *TimetableInput) *Catalog {
	c := &Catalog{
		Input:          in,
		Config:         in.Config.WithDefaults(),
		teachers:       make(map[string]*Teacher, len(in.Teachers)),
		classes:        make(map[string]*Class, len(in.Classes)),
		subjects:       make(map[string]*Subject, len(in.Subjects)),
		rooms:          make(map[string]*Room, len(in.Rooms)),
		lessons:        make(map[string]*Lesson, len(in.Lessons)),
		periods:        make(map[string]*Period, len(in.Periods)),
		teacherLessons: make(map[string][]*Lesson),
		classLessons:   make(map[string][]*Lesson),
		extraWindows:   make(map[string][]Availability),
	}
	for i := range in.Teachers {
		if _, ok := c.teachers[in.Teachers[i].ID]; !ok {
			c.teachers[in.Teachers[i].ID] = &in.Teachers[i]
		}
	}
	for i := range in.Classes {
		if _, ok := c.classes[in.Classes[i].ID]; !ok {
			c.classes[in.Classes[i].ID] = &in.Classes[i]
		}
	}
	for i := range in.Subjects {
		if _, ok := c.subjects[in.Subjects[i].ID]; !ok {
			c.subjects[in.Subjects[i].ID] = &in.Subjects[i]
		}
	}
	for i := range in.Rooms {
		if _, ok := c.rooms[in.Rooms[i].ID]; !ok {
			c.rooms[in.Rooms[i].ID] = &in.Rooms[i]
		}
	}
	for i := range in.Periods {
		if _, ok := c.periods[in.Periods[i].ID]; !ok {
			c.periods[in.Periods[i].ID] = &in.Periods[i]
		}
	}
	for i := range in.Lessons {
		l := &in.Lessons[i]
		if _, ok := c.lessons[l.ID]; ok {
			continue
		}
		c.lessons[l.ID] = l
		c.teacherLessons[l.TeacherID] = append(c.teacherLessons[l.TeacherID], l)
		c.classLessons[l.ClassID] = append(c.classLessons[l.ClassID], l)
	}
	for _, rule := range in.Constraints.Availability {
		if !rule.IsEnabled() {
			continue
		}
		key := rule.EntityType + ":" + rule.EntityID
		c.extraWindows[key] = append(c.extraWindows[key], rule.Availability...)
	}
	return c
}

// Teacher 按ID查找教师
func (c *Catalog) Teacher(id string) *Teacher { return c.teachers[id] }

// Class 按ID查找教学班
func (c *Catalog) Class(id string) *Class { return c.classes[id] }

// Subject 按ID查找科目
func (c *Catalog) Subject(id string) *Subject { return c.subjects[id] }

// Room 按ID查找教室
func (c *Catalog) Room(id string) *Room { return c.rooms[id] }

// Lesson 按ID查找课程
func (c *Catalog) Lesson(id string) *Lesson { return c.lessons[id] }

// Period 按ID查找节次
func (c *Catalog) Period(id string) *Period { return c.periods[id] }

// TeacherLessons 教师承担的课程（保持输入顺序）
func (c *Catalog) TeacherLessons(teacherID string) []*Lesson { return c.teacherLessons[teacherID] }

// ClassLessons 教学班的课程（保持输入顺序）
func (c *Catalog) ClassLessons(classID string) []*Lesson { return c.classLessons[classID] }

// TeacherLoad 教师每周课程实例数
func (c *Catalog) TeacherLoad(teacherID string) int {
	total := 0
	for _, l := range c.teacherLessons[teacherID] {
		total += l.LessonsPerWeek
	}
	return total
}

// TeacherWindows 教师的全部时间窗口（含附加可用性约束）
func (c *Catalog) TeacherWindows(id string) []Availability {
	var own []Availability
	if t := c.teachers[id]; t != nil {
		own = t.Availability
	}
	return joinWindows(own, c.extraWindows["teacher:"+id])
}

// ClassWindows 教学班的全部时间窗口
func (c *Catalog) ClassWindows(id string) []Availability {
	var own []Availability
	if cl := c.classes[id]; cl != nil {
		own = cl.Availability
	}
	return joinWindows(own, c.extraWindows["class:"+id])
}

// RoomWindows 教室的全部时间窗口
func (c *Catalog) RoomWindows(id string) []Availability {
	var own []Availability
	if r := c.rooms[id]; r != nil {
		own = r.Availability
	}
	return joinWindows(own, c.extraWindows["room:"+id])
}

func joinWindows(a, b []Availability) []Availability {
	if len(b) == 0 {
		return a
	}
	out := make([]Availability, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// RequiredRoomType 科目必须使用的教室类型
// 科目自身声明优先，其次为启用的硬性教室类型约束
func (c *Catalog) RequiredRoomType(subjectID string) (RoomType, bool) {
	if s := c.subjects[subjectID]; s != nil && s.RequiresSpecialistRoom && s.RequiredRoomType != "" {
		return s.RequiredRoomType, true
	}
	for _, rule := range c.Input.Constraints.RoomType {
		if rule.SubjectID == subjectID && rule.IsEnabled() && rule.IsHard() {
			return rule.RequiredRoomType, true
		}
	}
	return "", false
}

// PreferredRoomType 软性教室类型偏好
func (c *Catalog) PreferredRoomType(subjectID string) (RoomType, int, bool) {
	for _, rule := range c.Input.Constraints.RoomType {
		if rule.SubjectID == subjectID && rule.IsEnabled() && !rule.IsHard() {
			return rule.RequiredRoomType, rule.Weight, true
		}
	}
	return "", 0, false
}

// MinCapacity 课程所需最小教室容量，0 表示不限
func (c *Catalog) MinCapacity(l *Lesson) int {
	need := 0
	if l.RoomRequirement != nil && l.RoomRequirement.MinCapacity != nil {
		need = *l.RoomRequirement.MinCapacity
	}
	if cl := c.classes[l.ClassID]; cl != nil && cl.StudentCount != nil && *cl.StudentCount > need {
		need = *cl.StudentCount
	}
	for _, rule := range c.Input.Constraints.RoomCapacity {
		if rule.ClassID == l.ClassID && rule.IsEnabled() && rule.IsHard() && rule.MinCapacity > need {
			need = rule.MinCapacity
		}
	}
	return need
}

// HardWeeklyCap 教师每周节数硬上限，0 表示不限
func (c *Catalog) HardWeeklyCap(teacherID string) int {
	limit := 0
	if t := c.teachers[teacherID]; t != nil && t.MaxPeriodsPerWeek != nil {
		limit = *t.MaxPeriodsPerWeek
	}
	for _, rule := range c.Input.Constraints.TeacherMaxPeriods {
		if rule.TeacherID == teacherID && rule.IsEnabled() && rule.IsHard() && rule.MaxPerWeek != nil {
			limit = minPositive(limit, *rule.MaxPerWeek)
		}
	}
	return limit
}

// HardDailyCap 教师每日节数硬上限（仅来自硬性约束记录），0 表示不限
func (c *Catalog) HardDailyCap(teacherID string) int {
	limit := 0
	for _, rule := range c.Input.Constraints.TeacherMaxPeriods {
		if rule.TeacherID == teacherID && rule.IsEnabled() && rule.IsHard() && rule.MaxPerDay != nil {
			limit = minPositive(limit, *rule.MaxPerDay)
		}
	}
	return limit
}

// SoftDailyTarget 教师每日节数软目标，0 表示无
func (c *Catalog) SoftDailyTarget(teacherID string) int {
	limit := 0
	if t := c.teachers[teacherID]; t != nil && t.MaxPeriodsPerDay != nil {
		limit = *t.MaxPeriodsPerDay
	}
	for _, rule := range c.Input.Constraints.TeacherMaxPeriods {
		if rule.TeacherID == teacherID && rule.IsEnabled() && !rule.IsHard() && rule.MaxPerDay != nil {
			limit = minPositive(limit, *rule.MaxPerDay)
		}
	}
	return limit
}

// SoftWeeklyTarget 教师每周节数软目标，0 表示无
func (c *Catalog) SoftWeeklyTarget(teacherID string) int {
	limit := 0
	for _, rule := range c.Input.Constraints.TeacherMaxPeriods {
		if rule.TeacherID == teacherID && rule.IsEnabled() && !rule.IsHard() && rule.MaxPerWeek != nil {
			limit = minPositive(limit, *rule.MaxPerWeek)
		}
	}
	return limit
}

// MinDaysBetween 课程实例间的最小间隔天数，默认 1（不同天）
func (c *Catalog) MinDaysBetween(lessonID string) int {
	for _, rule := range c.Input.Constraints.LessonSpread {
		if rule.LessonID == lessonID && rule.IsEnabled() {
			return rule.MinDaysBetween
		}
	}
	return 1
}

// MaxConsecutive 课程同日连续节数上限，0 表示不限
func (c *Catalog) MaxConsecutive(lessonID string) (int, int) {
	for _, rule := range c.Input.Constraints.ConsecutiveLessons {
		if rule.LessonID == lessonID && rule.IsEnabled() && rule.MaxConsecutive > 0 {
			return rule.MaxConsecutive, rule.Weight
		}
	}
	return 0, 0
}

func minPositive(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 || a < b {
		return a
	}
	return b
}
