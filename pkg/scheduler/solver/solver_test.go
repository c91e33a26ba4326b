package solver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
)

// timeoutSolver 始终超时且没有解的引擎
type timeoutSolver struct{}

func (timeoutSolver) Solve(ctx context.Context, m *engine.Model, opts engine.Options) (*engine.Result, error) {
	return &engine.Result{Status: engine.StatusTimeout, Elapsed: opts.TimeLimit}, nil
}

func (timeoutSolver) Name() string { return "timeout" }

func school() *model.TimetableInput {
	in := &model.TimetableInput{
		Config:   model.SchoolConfig{NumDays: 2},
		Teachers: []model.Teacher{{ID: "t1", Name: "王老师"}, {ID: "t2", Name: "刘老师"}},
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
				ID: fmt.Sprintf("d%dp%d", d, p), Name: fmt.Sprintf("P%d", p+1), Day: d,
				StartMinutes: 540 + 60*p, EndMinutes: 600 + 60*p,
			})
		}
	}
	return in
}

func testConfig() builder.Config {
	cfg := builder.DefaultConfig()
	cfg.TimeLimit = 10 * time.Second
	cfg.Workers = 1
	return cfg
}

func TestPipeline_Solve(t *testing.T) {
	in := school()
	p := New(testConfig())

	out, err := p.Solve(context.Background(), in)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if out.Result.Status != engine.StatusOptimal {
		t.Fatalf("Expected OPTIMAL, got %s", out.Result.Status)
	}
	if len(out.Document.Timetable.Lessons) != 3 {
		t.Errorf("Expected 3 lessons, got %d", len(out.Document.Timetable.Lessons))
	}
	if out.Metrics == nil || !out.Metrics.HardConstraintsSatisfied {
		t.Error("Expected metrics with hard constraints satisfied")
	}
	if len(out.Conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %+v", out.Conflicts)
	}
	if out.Document.RunID != out.Result.RunID.String() {
		t.Errorf("Expected run id %s, got %s", out.Result.RunID, out.Document.RunID)
	}

	// 对生成的文档重新评估应得到同样的结论
	report, conflicts, err := p.Evaluate(in, out.Document)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(conflicts) != 0 || report.TotalLessons != 3 {
		t.Errorf("Expected 3 lessons without conflicts, got %d lessons, %d conflicts", report.TotalLessons, len(conflicts))
	}
}

func TestPipeline_ValidationFailure(t *testing.T) {
	in := school()
	in.Lessons[0].TeacherID = "ghost"

	_, err := New(testConfig()).Solve(context.Background(), in)
	if !errors.Is(err, errors.CodeValidationFail) {
		t.Errorf("Expected VALIDATION_FAILED, got %v", err)
	}
}

func TestPipeline_NoSolution(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.TimetableInput)
		opts   []Option
		want   engine.Status
		code   errors.Code
	}{
		{
			name:   "求解前不可行",
			mutate: func(in *model.TimetableInput) { in.Lessons[0].LessonsPerWeek = 4 },
			want:   engine.StatusInfeasible,
			code:   errors.CodePreSolveInfeasible,
		},
		{
			name:   "引擎超时",
			mutate: func(in *model.TimetableInput) {},
			opts:   []Option{WithEngine(timeoutSolver{})},
			want:   engine.StatusTimeout,
			code:   errors.CodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := school()
			tt.mutate(in)
			out, err := New(testConfig(), tt.opts...).Solve(context.Background(), in)
			if err != nil {
				t.Fatalf("Solve failed: %v", err)
			}
			if out.Result.Status != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, out.Result.Status)
			}
			if out.Metrics != nil || len(out.Document.Timetable.Lessons) != 0 {
				t.Error("Expected no metrics and no lessons without a solution")
			}
			if out.Document.HasSolution() {
				t.Errorf("Expected document without solution, got %s", out.Document.Status)
			}
			if code := errors.GetCode(out.Err()); code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, code)
			}
		})
	}
}

func TestPipeline_Check(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(in *model.TimetableInput)
		wantValid    bool
		wantFeasible bool
	}{
		{"可行输入", func(in *model.TimetableInput) {}, true, true},
		{"课时超过班级节次", func(in *model.TimetableInput) { in.Lessons[0].LessonsPerWeek = 4 }, true, false},
		{"引用不存在的教师", func(in *model.TimetableInput) { in.Lessons[0].TeacherID = "ghost" }, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := school()
			tt.mutate(in)

			report := New(testConfig()).Check(in)
			if report.Valid != tt.wantValid {
				t.Fatalf("Expected valid=%v, got %v", tt.wantValid, report.Valid)
			}
			if report.Feasible() != tt.wantFeasible {
				t.Errorf("Expected feasible=%v, got %v (%+v)", tt.wantFeasible, report.Feasible(), report.PreSolve)
			}
			if report.Summary.Teachers != 2 {
				t.Errorf("Expected summary with 2 teachers, got %d", report.Summary.Teachers)
			}
			if tt.wantValid && (report.Model == nil || report.Model.Variables == 0) {
				t.Error("Expected model stats for valid input")
			}
		})
	}
}
