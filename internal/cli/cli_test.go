package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/output"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--no-color"))
	err := root.Execute()
	return out.String() + errOut.String(), err
}

func writeSchool(t *testing.T, dir string, mathPerWeek int) string {
	t.Helper()
	in := &model.TimetableInput{
		Config:   model.SchoolConfig{SchoolName: "实验中学", NumDays: 2},
		Teachers: []model.Teacher{{ID: "t1", Name: "王老师"}, {ID: "t2", Name: "刘老师"}},
		Classes:  []model.Class{{ID: "c1", Name: "一班"}},
		Subjects: []model.Subject{{ID: "math", Name: "数学"}, {ID: "eng", Name: "英语"}},
		Rooms:    []model.Room{{ID: "r1", Name: "101", Type: model.RoomClassroom}},
		Lessons: []model.Lesson{
			{ID: "m", TeacherID: "t1", ClassID: "c1", SubjectID: "math", LessonsPerWeek: mathPerWeek},
			{ID: "e", TeacherID: "t2", ClassID: "c1", SubjectID: "eng", LessonsPerWeek: 1},
		},
	}
	for d := 0; d < 2; d++ {
		for p := 0; p < 2; p++ {
			in.Periods = append(in.Periods, model.Period{
				ID: fmt.Sprintf("d%dp%d", d, p), Name: fmt.Sprintf("P%d", p+1), Day: d,
				StartMinutes: 540 + 60*p, EndMinutes: 600 + 60*p,
			})
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("school-%d.json", mathPerWeek))
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestSolveViewMetrics(t *testing.T) {
	dir := t.TempDir()
	input := writeSchool(t, dir, 2)
	result := filepath.Join(dir, "result.yaml")

	out, err := run(t, "solve", input, "-o", result, "--time-limit", "10s", "--workers", "1")
	if err != nil {
		t.Fatalf("solve failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, result) {
		t.Errorf("Expected output path in summary, got:\n%s", out)
	}

	doc, err := output.LoadDocument(result)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if doc.Status != "optimal" || len(doc.Timetable.Lessons) != 3 {
		t.Fatalf("Unexpected document: status=%s lessons=%d", doc.Status, len(doc.Timetable.Lessons))
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"教师视图", []string{"view", result, "--teacher", "t1"}, "王老师 (t1)"},
		{"班级视图", []string{"view", result, "--class", "c1"}, "一班 (c1)"},
		{"教室视图", []string{"view", result, "--room", "r1"}, "101 (r1)"},
		{"质量报告", []string{"metrics", result, "--input", input}, "综合评分"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("command failed: %v\n%s", err, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("Expected %q in output, got:\n%s", tt.want, out)
			}
		})
	}

	t.Run("未知教师", func(t *testing.T) {
		if _, err := run(t, "view", result, "--teacher", "ghost"); err == nil {
			t.Error("Expected error for unknown teacher")
		}
	})
	t.Run("视图参数互斥", func(t *testing.T) {
		if _, err := run(t, "view", result, "--teacher", "t1", "--class", "c1"); err == nil {
			t.Error("Expected error for mutually exclusive flags")
		}
	})
}

func TestSolve_Infeasible(t *testing.T) {
	dir := t.TempDir()
	input := writeSchool(t, dir, 4)
	result := filepath.Join(dir, "result.json")

	_, err := run(t, "solve", input, "-o", result)
	if err == nil {
		t.Fatal("Expected error for infeasible input")
	}
	doc, loadErr := output.LoadDocument(result)
	if loadErr != nil {
		t.Fatalf("Expected diagnostics document to be written: %v", loadErr)
	}
	if doc.Status != "infeasible" || doc.Diagnostics == nil || len(doc.Diagnostics.Reasons) == 0 {
		t.Errorf("Expected infeasible document with reasons, got %+v", doc.Diagnostics)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr bool
		want    string
	}{
		{"可行输入", writeSchool(t, dir, 2), false, "检查通过"},
		{"班级节次不足", writeSchool(t, dir, 4), true, "class_slots"},
		{"文件不存在", filepath.Join(dir, "missing.json"), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "validate", tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v\n%s", tt.wantErr, err, out)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("Expected %q in output, got:\n%s", tt.want, out)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.yaml")

	out, err := run(t, "generate", "--size", "small", "--seed", "7", "-o", path)
	if err != nil {
		t.Fatalf("generate failed: %v\n%s", err, out)
	}
	in, err := output.LoadInput(path)
	if err != nil {
		t.Fatalf("LoadInput failed: %v", err)
	}
	if len(in.Classes) != 1 {
		t.Errorf("Expected 1 class, got %d", len(in.Classes))
	}
	if !model.Validate(in).OK() {
		t.Error("Expected generated input to validate")
	}

	if _, err := run(t, "generate", "--size", "huge"); err == nil {
		t.Error("Expected error for unknown size")
	}
}

func TestMetrics_RequiresInput(t *testing.T) {
	if _, err := run(t, "metrics", "result.json"); err == nil {
		t.Error("Expected error when --input is missing")
	}
}
