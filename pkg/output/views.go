package output

import (
	"github.com/paiban/kebiao/pkg/model"
)

// Views 课表的分组视图，仅做索引不做计算
type Views struct {
	ByTeacher map[string]EntitySchedule `json:"byTeacher" yaml:"byTeacher"`
	ByClass   map[string]EntitySchedule `json:"byClass" yaml:"byClass"`
	ByRoom    map[string]EntitySchedule `json:"byRoom" yaml:"byRoom"`
	ByDay     []DaySchedule             `json:"byDay" yaml:"byDay"`
}

// EntitySchedule 单个教师、教学班或教室的课表
type EntitySchedule struct {
	ID      string        `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Lessons []LessonEntry `json:"lessons" yaml:"lessons"`
	ByDay   []DaySchedule `json:"byDay" yaml:"byDay"`
}

// DaySchedule 某天的课程
type DaySchedule struct {
	Day     int           `json:"day" yaml:"day"`
	DayName string        `json:"dayName" yaml:"dayName"`
	Lessons []LessonEntry `json:"lessons" yaml:"lessons"`
}

// BuildViews 按教师、教学班、教室与日期分组；输入中的每个实体都有视图
func BuildViews(in *model.TimetableInput, lessons []LessonEntry) Views {
	v := Views{
		ByTeacher: make(map[string]EntitySchedule, len(in.Teachers)),
		ByClass:   make(map[string]EntitySchedule, len(in.Classes)),
		ByRoom:    make(map[string]EntitySchedule, len(in.Rooms)),
	}
	for _, t := range in.Teachers {
		v.ByTeacher[t.ID] = entitySchedule(t.ID, t.Name, lessons, func(e *LessonEntry) string { return e.TeacherID })
	}
	for _, c := range in.Classes {
		v.ByClass[c.ID] = entitySchedule(c.ID, c.Name, lessons, func(e *LessonEntry) string { return e.ClassID })
	}
	for _, r := range in.Rooms {
		v.ByRoom[r.ID] = entitySchedule(r.ID, r.Name, lessons, func(e *LessonEntry) string { return e.RoomID })
	}
	v.ByDay = groupByDay(lessons)
	return v
}

func entitySchedule(id, name string, lessons []LessonEntry, key func(*LessonEntry) string) EntitySchedule {
	es := EntitySchedule{ID: id, Name: name, Lessons: make([]LessonEntry, 0)}
	for i := range lessons {
		if key(&lessons[i]) == id {
			es.Lessons = append(es.Lessons, lessons[i])
		}
	}
	sortEntries(es.Lessons)
	es.ByDay = groupByDay(es.Lessons)
	return es
}

// groupByDay 只包含有课的日期，按日期升序
func groupByDay(lessons []LessonEntry) []DaySchedule {
	byDay := make(map[int][]LessonEntry)
	maxDay := -1
	for _, e := range lessons {
		byDay[e.Day] = append(byDay[e.Day], e)
		if e.Day > maxDay {
			maxDay = e.Day
		}
	}
	out := make([]DaySchedule, 0, len(byDay))
	for d := 0; d <= maxDay; d++ {
		es, ok := byDay[d]
		if !ok {
			continue
		}
		sortEntries(es)
		out = append(out, DaySchedule{Day: d, DayName: model.DayName(d), Lessons: es})
	}
	return out
}
