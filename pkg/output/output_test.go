package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/decoder"
	"github.com/paiban/kebiao/pkg/stats"
	"github.com/paiban/kebiao/pkg/validator"
)

func school() *model.TimetableInput {
	in := &model.TimetableInput{
		Config:   model.SchoolConfig{SchoolName: "实验中学", NumDays: 2},
		Teachers: []model.Teacher{{ID: "t1", Name: "王老师"}, {ID: "t2", Name: "刘老师"}, {ID: "t3", Name: "空闲老师"}},
		Classes:  []model.Class{{ID: "c1", Name: "一班"}},
		Subjects: []model.Subject{{ID: "math", Name: "数学"}, {ID: "eng", Name: "英语"}},
		Rooms:    []model.Room{{ID: "r1", Name: "101", Type: model.RoomClassroom}},
		Lessons: []model.Lesson{
			{ID: "m", TeacherID: "t1", ClassID: "c1", SubjectID: "math", LessonsPerWeek: 2},
			{ID: "e", TeacherID: "t2", ClassID: "c1", SubjectID: "eng", LessonsPerWeek: 1},
		},
	}
	for d := 0; d < 2; d++ {
		for p := 0; p < 2; p++ {
			in.Periods = append(in.Periods, model.Period{
				ID: fmt.Sprintf("d%dp%d", d, p), Name: fmt.Sprintf("第%d节", p+1), Day: d,
				StartMinutes: 540 + 60*p, EndMinutes: 600 + 60*p,
			})
		}
	}
	return in
}

func solvedDocument(t *testing.T, in *model.TimetableInput) *Document {
	t.Helper()
	cfg := builder.DefaultConfig()
	cfg.Workers = 1
	res, err := builder.Solve(context.Background(), in, cfg, 10*time.Second)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	dec, err := decoder.Decode(res)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return Build(in, res, dec)
}

func TestBuild_Solved(t *testing.T) {
	in := school()
	doc := solvedDocument(t, in)

	if doc.Status != "optimal" {
		t.Fatalf("Expected optimal, got %s", doc.Status)
	}
	if len(doc.Timetable.Lessons) != 3 {
		t.Fatalf("Expected 3 lessons, got %d", len(doc.Timetable.Lessons))
	}
	if !doc.Quality.HardConstraintsSatisfied {
		t.Error("Expected hard constraints satisfied")
	}
	for _, e := range doc.Timetable.Lessons {
		if e.TeacherName == "" || e.SubjectName == "" || e.RoomName == "" {
			t.Errorf("Expected display names, got %+v", e)
		}
		if len(e.StartTime) != 5 || e.StartTime[2] != ':' {
			t.Errorf("Expected HH:MM start, got %s", e.StartTime)
		}
	}
	if doc.Metadata.Occurrences != 3 || doc.Metadata.SchoolName != "实验中学" {
		t.Errorf("Unexpected metadata %+v", doc.Metadata)
	}
	if doc.Diagnostics == nil || doc.Diagnostics.Model.Variables == 0 {
		t.Error("Expected model diagnostics")
	}

	// 视图只做分组：各视图课时之和等于课表
	if n := len(doc.Views.ByClass["c1"].Lessons); n != 3 {
		t.Errorf("Expected 3 lessons for c1, got %d", n)
	}
	if n := len(doc.Views.ByTeacher["t1"].Lessons); n != 2 {
		t.Errorf("Expected 2 lessons for t1, got %d", n)
	}
	idle, ok := doc.Views.ByTeacher["t3"]
	if !ok || len(idle.Lessons) != 0 || len(idle.ByDay) != 0 {
		t.Errorf("Expected empty view for idle teacher, got %+v", idle)
	}
	total := 0
	for _, d := range doc.Views.ByDay {
		total += len(d.Lessons)
	}
	if total != 3 {
		t.Errorf("Expected 3 lessons across days, got %d", total)
	}

	as, err := doc.Assignments()
	if err != nil {
		t.Fatalf("Assignments failed: %v", err)
	}
	if conflicts := validator.NewConflictDetector(nil).DetectAll(model.NewCatalog(in), as); len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %+v", conflicts)
	}
}

func TestBuild_Infeasible(t *testing.T) {
	in := school()
	in.Lessons[0].LessonsPerWeek = 4

	cfg := builder.DefaultConfig()
	res, err := builder.Solve(context.Background(), in, cfg, 5*time.Second)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if res.Status != engine.StatusInfeasible {
		t.Fatalf("Expected INFEASIBLE, got %s", res.Status)
	}
	dec, err := decoder.Decode(res)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	doc := Build(in, res, dec)

	if doc.Status != "infeasible" || doc.HasSolution() {
		t.Errorf("Expected infeasible document, got %s", doc.Status)
	}
	if len(doc.Timetable.Lessons) != 0 {
		t.Errorf("Expected no lessons, got %d", len(doc.Timetable.Lessons))
	}
	if doc.Diagnostics == nil || len(doc.Diagnostics.Reasons) == 0 {
		t.Error("Expected pre-solve reasons in diagnostics")
	}
}

func TestSaveAndLoad(t *testing.T) {
	in := school()
	doc := solvedDocument(t, in)
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
	}{
		{"JSON", "result.json"},
		{"YAML", "result.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := Save(path, FormatFromPath(path), doc); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			loaded, err := LoadDocument(path)
			if err != nil {
				t.Fatalf("LoadDocument failed: %v", err)
			}
			if loaded.Status != doc.Status || len(loaded.Timetable.Lessons) != len(doc.Timetable.Lessons) {
				t.Errorf("Expected %s with %d lessons, got %s with %d", doc.Status, len(doc.Timetable.Lessons), loaded.Status, len(loaded.Timetable.Lessons))
			}
			if len(loaded.Views.ByTeacher) != 3 {
				t.Errorf("Expected 3 teacher views, got %d", len(loaded.Views.ByTeacher))
			}
		})
	}
}

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `
config:
  schoolName: 实验中学
teachers:
  - id: t1
    name: 王老师
    maxPeriodsPerWeek: 20
classes:
  - id: c1
    name: 一班
subjects:
  - id: sci
    name: 科学
    requiresSpecialistRoom: true
    requiredRoomType: science_lab
rooms:
  - id: lab
    name: 实验室
    type: science_lab
lessons:
  - id: s1
    teacherId: t1
    classId: c1
    subjectId: sci
    lessonsPerWeek: 2
periods:
  - id: p1
    day: 0
    startMinutes: 540
    endMinutes: 600
constraints:
  teacherMaxPeriods:
    - teacherId: t1
      weight: 0
      maxPerDay: 4
`
	path := filepath.Join(dir, "input.yml")
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}

	in, err := LoadInput(path)
	if err != nil {
		t.Fatalf("LoadInput failed: %v", err)
	}
	if in.Config.SchoolName != "实验中学" || *in.Teachers[0].MaxPeriodsPerWeek != 20 {
		t.Errorf("Unexpected input %+v", in.Config)
	}
	if in.Subjects[0].RequiredRoomType != model.RoomScienceLab {
		t.Errorf("Expected science_lab, got %s", in.Subjects[0].RequiredRoomType)
	}
	if len(in.Constraints.TeacherMaxPeriods) != 1 || *in.Constraints.TeacherMaxPeriods[0].MaxPerDay != 4 {
		t.Errorf("Expected inline constraint base to decode, got %+v", in.Constraints.TeacherMaxPeriods)
	}

	if _, err := ReadInput(strings.NewReader("{broken"), FormatJSON); !errors.Is(err, errors.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}
	if _, err := LoadInput(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q): expected %s (err=%v), got %s (%v)", tt.in, tt.want, tt.wantErr, got, err)
		}
	}
}

func TestRenderer(t *testing.T) {
	in := school()
	doc := solvedDocument(t, in)

	tests := []struct {
		name         string
		render       func(r *Renderer) error
		wantContains []string
		wantErr      bool
	}{
		{
			name:         "概要",
			render:       func(r *Renderer) error { r.Summary(doc); return nil },
			wantContains: []string{"OPTIMAL", "软约束惩罚"},
		},
		{
			name:         "教师视图",
			render:       func(r *Renderer) error { return r.Entity(doc, ViewTeacher, "t1") },
			wantContains: []string{"王老师 (t1)", "数学", "一班"},
		},
		{
			name:         "空闲教师",
			render:       func(r *Renderer) error { return r.Entity(doc, ViewTeacher, "t3") },
			wantContains: []string{"本周无课"},
		},
		{
			name:    "未知教室",
			render:  func(r *Renderer) error { return r.Entity(doc, ViewRoom, "nope") },
			wantErr: true,
		},
		{
			name: "质量报告",
			render: func(r *Renderer) error {
				r.Metrics(stats.NewCalculator(nil).Calculate(in, mustAssignments(t, doc), true, 0), stats.DefaultTargets())
				return nil
			},
			wantContains: []string{"综合评分", "教师负荷", "王老师"},
		},
		{
			name:         "无冲突",
			render:       func(r *Renderer) error { r.Conflicts(nil); return nil },
			wantContains: []string{"无冲突"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := tt.render(NewRenderer(&buf, false))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			out := buf.String()
			for _, want := range tt.wantContains {
				if !strings.Contains(out, want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func mustAssignments(t *testing.T, doc *Document) []model.Assignment {
	t.Helper()
	as, err := doc.Assignments()
	if err != nil {
		t.Fatal(err)
	}
	return as
}
