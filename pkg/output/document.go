// Package output 定义排课结果文档及其视图、读写与终端展示
package output

import (
	"sort"
	"strings"
	"time"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/decoder"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// Document 排课结果文档
type Document struct {
	Status           string       `json:"status" yaml:"status"`
	SolveTimeSeconds float64      `json:"solveTimeSeconds" yaml:"solveTimeSeconds"`
	RunID            string       `json:"runId,omitempty" yaml:"runId,omitempty"`
	Quality          Quality      `json:"quality" yaml:"quality"`
	Timetable        Timetable    `json:"timetable" yaml:"timetable"`
	Views            Views        `json:"views" yaml:"views"`
	Diagnostics      *Diagnostics `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Metadata         Metadata     `json:"metadata" yaml:"metadata"`
}

// Quality 约束满足情况
type Quality struct {
	TotalPenalty             int64            `json:"totalPenalty" yaml:"totalPenalty"`
	HardConstraintsSatisfied bool             `json:"hardConstraintsSatisfied" yaml:"hardConstraintsSatisfied"`
	SoftConstraintScores     map[string]int64 `json:"softConstraintScores" yaml:"softConstraintScores"`
}

// Timetable 课表
type Timetable struct {
	Lessons []LessonEntry `json:"lessons" yaml:"lessons"`
}

// LessonEntry 一条排课记录及其展示名称
type LessonEntry struct {
	LessonID    string `json:"lessonId" yaml:"lessonId"`
	Instance    int    `json:"instance" yaml:"instance"`
	Day         int    `json:"day" yaml:"day"`
	DayName     string `json:"dayName" yaml:"dayName"`
	PeriodID    string `json:"periodId" yaml:"periodId"`
	StartTime   string `json:"startTime" yaml:"startTime"`
	EndTime     string `json:"endTime" yaml:"endTime"`
	RoomID      string `json:"roomId" yaml:"roomId"`
	TeacherID   string `json:"teacherId" yaml:"teacherId"`
	ClassID     string `json:"classId" yaml:"classId"`
	SubjectID   string `json:"subjectId" yaml:"subjectId"`
	TeacherName string `json:"teacherName,omitempty" yaml:"teacherName,omitempty"`
	ClassName   string `json:"className,omitempty" yaml:"className,omitempty"`
	SubjectName string `json:"subjectName,omitempty" yaml:"subjectName,omitempty"`
	RoomName    string `json:"roomName,omitempty" yaml:"roomName,omitempty"`
}

// Diagnostics 求解诊断信息
type Diagnostics struct {
	Reasons       []builder.Reason          `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Excluded      []slot.Excluded           `json:"excludedPeriods,omitempty" yaml:"excludedPeriods,omitempty"`
	Model         engine.Stats              `json:"model" yaml:"model"`
	Contributions []constraint.Contribution `json:"contributions,omitempty" yaml:"contributions,omitempty"`
	Improvements  int                       `json:"improvements" yaml:"improvements"`
	LowerBound    int64                     `json:"lowerBound" yaml:"lowerBound"`
}

// Metadata 输入概要
type Metadata struct {
	SchoolName   string `json:"schoolName,omitempty" yaml:"schoolName,omitempty"`
	AcademicYear string `json:"academicYear,omitempty" yaml:"academicYear,omitempty"`
	Teachers     int    `json:"teachers" yaml:"teachers"`
	Classes      int    `json:"classes" yaml:"classes"`
	Rooms        int    `json:"rooms" yaml:"rooms"`
	Subjects     int    `json:"subjects" yaml:"subjects"`
	Lessons      int    `json:"lessons" yaml:"lessons"`
	Occurrences  int    `json:"occurrences" yaml:"occurrences"`
	Periods      int    `json:"periods" yaml:"periods"`
	GeneratedAt  string `json:"generatedAt" yaml:"generatedAt"`
}

// Build 由求解结果与解码结果构建输出文档；dec 为空表示无解
func Build(in *model.TimetableInput, res *builder.SolveResult, dec *decoder.Decoded) *Document {
	doc := &Document{
		Status:  strings.ToLower(string(res.Status)),
		RunID:   res.RunID.String(),
		Quality: Quality{SoftConstraintScores: make(map[string]int64)},
		Timetable: Timetable{
			Lessons: make([]LessonEntry, 0),
		},
		Metadata: metadata(in),
	}
	doc.SolveTimeSeconds = roundSeconds(res.Elapsed)

	if res.Built != nil {
		doc.Diagnostics = &Diagnostics{
			Excluded:      res.Built.Slots.Excluded(),
			Model:         res.Built.Stats,
			Contributions: res.Built.Contributions,
			Improvements:  res.Improvements,
			LowerBound:    res.LowerBound,
		}
		if res.PreSolve != nil {
			doc.Diagnostics.Reasons = res.PreSolve.Reasons
		}
	}

	if dec != nil && dec.Evaluation != nil {
		cat := model.NewCatalog(in)
		for _, a := range dec.Assignments {
			doc.Timetable.Lessons = append(doc.Timetable.Lessons, NewLessonEntry(cat, a))
		}
		doc.Quality.TotalPenalty = dec.Evaluation.TotalPenalty
		doc.Quality.HardConstraintsSatisfied = dec.Evaluation.IsValid
		for k, v := range dec.Evaluation.Scores {
			doc.Quality.SoftConstraintScores[k] = v
		}
	}
	doc.Views = BuildViews(in, doc.Timetable.Lessons)
	return doc
}

// NewLessonEntry 将排课记录转换为带名称的展示记录
func NewLessonEntry(cat *model.Catalog, a model.Assignment) LessonEntry {
	e := LessonEntry{
		LessonID:  a.LessonID,
		Instance:  a.Instance,
		Day:       a.Day,
		DayName:   model.DayName(a.Day),
		PeriodID:  a.PeriodID,
		StartTime: model.MinutesToTime(a.StartMinutes),
		EndTime:   model.MinutesToTime(a.EndMinutes),
		RoomID:    a.RoomID,
		TeacherID: a.TeacherID,
		ClassID:   a.ClassID,
		SubjectID: a.SubjectID,
	}
	if t := cat.Teacher(a.TeacherID); t != nil {
		e.TeacherName = t.Name
	}
	if c := cat.Class(a.ClassID); c != nil {
		e.ClassName = c.Name
	}
	if s := cat.Subject(a.SubjectID); s != nil {
		e.SubjectName = s.Name
	}
	if r := cat.Room(a.RoomID); r != nil {
		e.RoomName = r.Name
	}
	return e
}

// Assignment 还原为排课记录
func (e LessonEntry) Assignment() (model.Assignment, error) {
	start, err := model.TimeToMinutes(e.StartTime)
	if err != nil {
		return model.Assignment{}, errors.Wrap(err, errors.CodeInvalidInput, "开始时间无效").WithField("lessonId", e.LessonID)
	}
	end, err := model.TimeToMinutes(e.EndTime)
	if err != nil {
		return model.Assignment{}, errors.Wrap(err, errors.CodeInvalidInput, "结束时间无效").WithField("lessonId", e.LessonID)
	}
	return model.Assignment{
		LessonID:     e.LessonID,
		Instance:     e.Instance,
		Day:          e.Day,
		PeriodID:     e.PeriodID,
		StartMinutes: start,
		EndMinutes:   end,
		RoomID:       e.RoomID,
		TeacherID:    e.TeacherID,
		ClassID:      e.ClassID,
		SubjectID:    e.SubjectID,
	}, nil
}

// Assignments 还原文档中的全部排课记录
func (d *Document) Assignments() ([]model.Assignment, error) {
	out := make([]model.Assignment, 0, len(d.Timetable.Lessons))
	for _, e := range d.Timetable.Lessons {
		a, err := e.Assignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// HasSolution 文档是否带有课表
func (d *Document) HasSolution() bool {
	return d.Status == "optimal" || d.Status == "feasible"
}

func metadata(in *model.TimetableInput) Metadata {
	return Metadata{
		SchoolName:   in.Config.SchoolName,
		AcademicYear: in.Config.AcademicYear,
		Teachers:     len(in.Teachers),
		Classes:      len(in.Classes),
		Rooms:        len(in.Rooms),
		Subjects:     len(in.Subjects),
		Lessons:      len(in.Lessons),
		Occurrences:  in.TotalOccurrences(),
		Periods:      len(in.Periods),
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}

// sortEntries 按天、开始时间、教学班排序
func sortEntries(es []LessonEntry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Day != es[j].Day {
			return es[i].Day < es[j].Day
		}
		if es[i].StartTime != es[j].StartTime {
			return es[i].StartTime < es[j].StartTime
		}
		return es[i].ClassID < es[j].ClassID
	})
}
