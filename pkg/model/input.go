package model

import "sort"

// SchoolConfig 学校级配置
type SchoolConfig struct {
	SchoolName            string `json:"schoolName,omitempty" yaml:"schoolName,omitempty"`
	AcademicYear          string `json:"academicYear,omitempty" yaml:"academicYear,omitempty"`
	NumDays               int    `json:"numDays,omitempty" yaml:"numDays,omitempty"`
	DefaultLessonDuration int    `json:"defaultLessonDuration,omitempty" yaml:"defaultLessonDuration,omitempty"`
	DayStartMinutes       int    `json:"dayStartMinutes,omitempty" yaml:"dayStartMinutes,omitempty"`
	DayEndMinutes         int    `json:"dayEndMinutes,omitempty" yaml:"dayEndMinutes,omitempty"`
}

// DefaultSchoolConfig 返回默认配置
func DefaultSchoolConfig() SchoolConfig {
	return SchoolConfig{
		NumDays:               DefaultDays,
		DefaultLessonDuration: DefaultLessonDuration,
		DayStartMinutes:       DefaultDayStart,
		DayEndMinutes:         DefaultDayEnd,
	}
}

// WithDefaults 补全未设置的字段
func (c SchoolConfig) WithDefaults() SchoolConfig {
	d := DefaultSchoolConfig()
	if c.NumDays == 0 {
		c.NumDays = d.NumDays
	}
	if c.DefaultLessonDuration == 0 {
		c.DefaultLessonDuration = d.DefaultLessonDuration
	}
	if c.DayStartMinutes == 0 && c.DayEndMinutes == 0 {
		c.DayStartMinutes = d.DayStartMinutes
		c.DayEndMinutes = d.DayEndMinutes
	}
	return c
}

// TimetableInput 排课输入文档
type TimetableInput struct {
	Config      SchoolConfig  `json:"config" yaml:"config"`
	Teachers    []Teacher     `json:"teachers" yaml:"teachers"`
	Classes     []Class       `json:"classes" yaml:"classes"`
	Subjects    []Subject     `json:"subjects" yaml:"subjects"`
	Rooms       []Room        `json:"rooms" yaml:"rooms"`
	Lessons     []Lesson      `json:"lessons" yaml:"lessons"`
	Periods     []Period      `json:"periods" yaml:"periods"`
	Constraints ConstraintSet `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// TotalOccurrences 每周需排的课程实例总数
func (in *TimetableInput) TotalOccurrences() int {
	total := 0
	for i := range in.Lessons {
		total += in.Lessons[i].LessonsPerWeek
	}
	return total
}

// SchedulablePeriods 返回可排课节次，按 (day, start) 排序
func (in *TimetableInput) SchedulablePeriods() []*Period {
	out := make([]*Period, 0, len(in.Periods))
	for i := range in.Periods {
		if in.Periods[i].Schedulable() {
			out = append(out, &in.Periods[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Day != out[b].Day {
			return out[a].Day < out[b].Day
		}
		return out[a].StartMinutes < out[b].StartMinutes
	})
	return out
}

// Summary 输入概要
type Summary struct {
	SchoolName          string `json:"schoolName,omitempty"`
	AcademicYear        string `json:"academicYear,omitempty"`
	Teachers            int    `json:"teachers"`
	Classes             int    `json:"classes"`
	Subjects            int    `json:"subjects"`
	Rooms               int    `json:"rooms"`
	Lessons             int    `json:"lessons"`
	Periods             int    `json:"periods"`
	SchedulablePeriods  int    `json:"schedulablePeriods"`
	TotalLessonsPerWeek int    `json:"totalLessonsPerWeek"`
	TotalRoomSlots      int    `json:"totalRoomSlots"`
}

// Summarize 统计输入规模
func (in *TimetableInput) Summarize() Summary {
	sched := len(in.SchedulablePeriods())
	return Summary{
		SchoolName:          in.Config.SchoolName,
		AcademicYear:        in.Config.AcademicYear,
		Teachers:            len(in.Teachers),
		Classes:             len(in.Classes),
		Subjects:            len(in.Subjects),
		Rooms:               len(in.Rooms),
		Lessons:             len(in.Lessons),
		Periods:             len(in.Periods),
		SchedulablePeriods:  sched,
		TotalLessonsPerWeek: in.TotalOccurrences(),
		TotalRoomSlots:      sched * len(in.Rooms),
	}
}
