package model

import "fmt"

// Teacher 教师
type Teacher struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Code              string         `json:"code,omitempty" yaml:"code,omitempty"`
	Email             string         `json:"email,omitempty" yaml:"email,omitempty"`
	Subjects          []string       `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Availability      []Availability `json:"availability,omitempty" yaml:"availability,omitempty"`
	MaxPeriodsPerDay  *int           `json:"maxPeriodsPerDay,omitempty" yaml:"maxPeriodsPerDay,omitempty"`
	MaxPeriodsPerWeek *int           `json:"maxPeriodsPerWeek,omitempty" yaml:"maxPeriodsPerWeek,omitempty"`
	PreferredRooms    []string       `json:"preferredRooms,omitempty" yaml:"preferredRooms,omitempty"`
}

// Class 教学班
type Class struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	YearGroup    *int           `json:"yearGroup,omitempty" yaml:"yearGroup,omitempty"`
	StudentCount *int           `json:"studentCount,omitempty" yaml:"studentCount,omitempty"`
	HomeRoom     string         `json:"homeRoom,omitempty" yaml:"homeRoom,omitempty"`
	Availability []Availability `json:"availability,omitempty" yaml:"availability,omitempty"`
}

// Subject 科目
type Subject struct {
	ID                     string   `json:"id" yaml:"id"`
	Name                   string   `json:"name" yaml:"name"`
	Code                   string   `json:"code,omitempty" yaml:"code,omitempty"`
	Color                  string   `json:"color,omitempty" yaml:"color,omitempty"`
	Department             string   `json:"department,omitempty" yaml:"department,omitempty"`
	RequiresSpecialistRoom bool     `json:"requiresSpecialistRoom,omitempty" yaml:"requiresSpecialistRoom,omitempty"`
	RequiredRoomType       RoomType `json:"requiredRoomType,omitempty" yaml:"requiredRoomType,omitempty"`
}

// Room 教室
type Room struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Type         RoomType       `json:"type" yaml:"type"`
	Capacity     *int           `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Building     string         `json:"building,omitempty" yaml:"building,omitempty"`
	Floor        *int           `json:"floor,omitempty" yaml:"floor,omitempty"`
	Availability []Availability `json:"availability,omitempty" yaml:"availability,omitempty"`
	Equipment    []string       `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Accessible   *bool          `json:"accessible,omitempty" yaml:"accessible,omitempty"`
}

// HasEquipment 检查教室是否具备全部设备
func (r *Room) HasEquipment(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(r.Equipment))
	for _, e := range r.Equipment {
		have[e] = true
	}
	for _, e := range required {
		if !have[e] {
			return false
		}
	}
	return true
}

// Period 节次
type Period struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Day          int    `json:"day" yaml:"day"`
	StartMinutes int    `json:"startMinutes" yaml:"startMinutes"`
	EndMinutes   int    `json:"endMinutes" yaml:"endMinutes"`
	IsBreak      bool   `json:"isBreak,omitempty" yaml:"isBreak,omitempty"`
	IsLunch      bool   `json:"isLunch,omitempty" yaml:"isLunch,omitempty"`
}

// Schedulable 非课间、非午休节次才可排课
func (p *Period) Schedulable() bool {
	return !p.IsBreak && !p.IsLunch
}

// Duration 节次时长（分钟）
func (p *Period) Duration() int {
	return p.EndMinutes - p.StartMinutes
}

// String 返回节次描述
func (p *Period) String() string {
	return fmt.Sprintf("%s (%s %s-%s)", p.Name, DayName(p.Day), MinutesToTime(p.StartMinutes), MinutesToTime(p.EndMinutes))
}

// RoomRequirement 课程的教室要求
type RoomRequirement struct {
	RoomType          RoomType `json:"roomType,omitempty" yaml:"roomType,omitempty"`
	MinCapacity       *int     `json:"minCapacity,omitempty" yaml:"minCapacity,omitempty"`
	PreferredRooms    []string `json:"preferredRooms,omitempty" yaml:"preferredRooms,omitempty"`
	ExcludedRooms     []string `json:"excludedRooms,omitempty" yaml:"excludedRooms,omitempty"`
	RequiresEquipment []string `json:"requiresEquipment,omitempty" yaml:"requiresEquipment,omitempty"`
}

// FixedSlot 预先固定的时段
type FixedSlot struct {
	Day      int    `json:"day" yaml:"day"`
	PeriodID string `json:"periodId" yaml:"periodId"`
}

// Lesson 课程（每周重复 LessonsPerWeek 次）
type Lesson struct {
	ID                   string           `json:"id" yaml:"id"`
	TeacherID            string           `json:"teacherId" yaml:"teacherId"`
	ClassID              string           `json:"classId" yaml:"classId"`
	SubjectID            string           `json:"subjectId" yaml:"subjectId"`
	DurationMinutes      int              `json:"durationMinutes,omitempty" yaml:"durationMinutes,omitempty"`
	LessonsPerWeek       int              `json:"lessonsPerWeek" yaml:"lessonsPerWeek"`
	RoomRequirement      *RoomRequirement `json:"roomRequirement,omitempty" yaml:"roomRequirement,omitempty"`
	SplitAllowed         *bool            `json:"splitAllowed,omitempty" yaml:"splitAllowed,omitempty"`
	ConsecutivePreferred bool             `json:"consecutivePreferred,omitempty" yaml:"consecutivePreferred,omitempty"` // 仅为输入兼容保留，建模不读取
	FixedSlots           []FixedSlot      `json:"fixedSlots,omitempty" yaml:"fixedSlots,omitempty"`
}

// Duration 课程时长，未设置时取默认值
func (l *Lesson) Duration() int {
	if l.DurationMinutes <= 0 {
		return DefaultLessonDuration
	}
	return l.DurationMinutes
}

// Occurrence 课程的一次周内实例
type Occurrence struct {
	LessonID string
	Instance int
}

// String 返回实例标识
func (o Occurrence) String() string {
	return fmt.Sprintf("%s#%d", o.LessonID, o.Instance)
}

// Assignment 解码后的排课结果记录，仅以字符串ID引用实体
type Assignment struct {
	LessonID     string `json:"lessonId"`
	Instance     int    `json:"instance"`
	Day          int    `json:"day"`
	PeriodID     string `json:"periodId"`
	StartMinutes int    `json:"startMinutes"`
	EndMinutes   int    `json:"endMinutes"`
	RoomID       string `json:"roomId"`
	TeacherID    string `json:"teacherId"`
	ClassID      string `json:"classId"`
	SubjectID    string `json:"subjectId"`
}

// Overlaps 检查两条排课是否在同一天时间相交
func (a *Assignment) Overlaps(other *Assignment) bool {
	return a.Day == other.Day && a.StartMinutes < other.EndMinutes && other.StartMinutes < a.EndMinutes
}
