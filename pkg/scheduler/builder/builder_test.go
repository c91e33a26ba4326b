package builder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

func intPtr(v int) *int { return &v }

// 2 名教师、1 个教学班、1 个普通教室、每周 5 个时段
func smallSchool() *model.TimetableInput {
	in := &model.TimetableInput{
		Teachers: []model.Teacher{{ID: "t1", Name: "王老师"}, {ID: "t2", Name: "刘老师"}},
		Classes:  []model.Class{{ID: "c1", Name: "七年级一班", StudentCount: intPtr(30)}},
		Subjects: []model.Subject{{ID: "chn", Name: "语文"}},
		Rooms:    []model.Room{{ID: "r1", Name: "101", Type: model.RoomClassroom, Capacity: intPtr(40)}},
		Lessons: []model.Lesson{
			{ID: "chn-a", TeacherID: "t1", ClassID: "c1", SubjectID: "chn", LessonsPerWeek: 3},
			{ID: "chn-b", TeacherID: "t2", ClassID: "c1", SubjectID: "chn", LessonsPerWeek: 2},
		},
	}
	for d := 0; d < 5; d++ {
		in.Periods = append(in.Periods, model.Period{ID: fmt.Sprintf("d%dp1", d), Name: "第1节", Day: d, StartMinutes: 540, EndMinutes: 600})
	}
	return in
}

func solveInput(t *testing.T, in *model.TimetableInput) *SolveResult {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 2
	res, err := Solve(context.Background(), in, cfg, 20*time.Second)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	return res
}

func TestSolve_SmallSchoolOptimal(t *testing.T) {
	res := solveInput(t, smallSchool())

	if res.Status != engine.StatusOptimal {
		t.Fatalf("Expected OPTIMAL, got %s (reasons %+v)", res.Status, res.PreSolve)
	}
	// 每天一节：5 个单节日各计 10；chn-a 连排三天、chn-b 间隔 1 天偏离理想间隔各计 5
	if res.Objective != 60 {
		t.Errorf("Expected penalty 60, got %d", res.Objective)
	}
	placed := 0
	for _, v := range res.Built.Vars.Vars() {
		if v.Lit.Value(res.Values) {
			placed++
		}
	}
	if placed != 5 {
		t.Errorf("Expected 5 placements, got %d", placed)
	}
	if err := res.Built.Model.Check(res.Values); err != nil {
		t.Errorf("Expected all constraints satisfied, got %v", err)
	}
	if res.RunID.String() == "" {
		t.Error("Expected run id")
	}
}

func TestSolve_PreSolveInfeasibility(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *model.TimetableInput)
		wantKind string
		wantID   string
	}{
		{
			name: "缺少实验室",
			mutate: func(in *model.TimetableInput) {
				in.Subjects = append(in.Subjects, model.Subject{ID: "sci", Name: "科学", RequiresSpecialistRoom: true, RequiredRoomType: model.RoomScienceLab})
				in.Lessons = append(in.Lessons, model.Lesson{ID: "sci-1", TeacherID: "t2", ClassID: "c1", SubjectID: "sci", LessonsPerWeek: 1})
			},
			wantKind: ReasonMissingRoomType,
			wantID:   "sci",
		},
		{
			name: "教师周课时超过上限",
			mutate: func(in *model.TimetableInput) {
				in.Teachers[0].MaxPeriodsPerWeek = intPtr(10)
				in.Lessons[0].LessonsPerWeek = 12
				for d := 0; d < 5; d++ {
					for p := 2; p <= 4; p++ {
						in.Periods = append(in.Periods, model.Period{
							ID: fmt.Sprintf("d%dp%d", d, p), Day: d,
							StartMinutes: 540 + 60*(p-1), EndMinutes: 600 + 60*(p-1),
						})
					}
				}
			},
			wantKind: ReasonTeacherOverload,
			wantID:   "t1",
		},
		{
			name: "课程兼容时段不足",
			mutate: func(in *model.TimetableInput) {
				in.Teachers[1].Availability = []model.Availability{
					model.Unavailable(0, 540, 600, ""), model.Unavailable(1, 540, 600, ""),
					model.Unavailable(2, 540, 600, ""), model.Unavailable(3, 540, 600, ""),
				}
			},
			wantKind: ReasonInsufficientSlots,
			wantID:   "chn-b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := smallSchool()
			tt.mutate(in)
			res := solveInput(t, in)

			if res.Status != engine.StatusInfeasible {
				t.Fatalf("Expected INFEASIBLE, got %s", res.Status)
			}
			if !res.PreSolve.Infeasible() {
				t.Fatal("Expected pre-solve reasons")
			}
			found := false
			for _, r := range res.PreSolve.Reasons {
				if r.Kind == tt.wantKind && r.EntityID == tt.wantID {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected %s reason for %s, got %+v", tt.wantKind, tt.wantID, res.PreSolve.Reasons)
			}
			if res.Values != nil {
				t.Error("Expected no values")
			}
			if !errors.Is(res.PreSolve.Err(), errors.CodePreSolveInfeasible) {
				t.Errorf("Expected PRESOLVE_INFEASIBLE error, got %v", res.PreSolve.Err())
			}
		})
	}
}

func TestSolve_ModelInfeasible(t *testing.T) {
	// 两门课固定在同一节次，同一教学班无法同时上课
	in := smallSchool()
	in.Lessons[0].FixedSlots = []model.FixedSlot{{Day: 0, PeriodID: "d0p1"}}
	in.Lessons[1].FixedSlots = []model.FixedSlot{{Day: 0, PeriodID: "d0p1"}}

	res := solveInput(t, in)
	if res.Status != engine.StatusInfeasible {
		t.Fatalf("Expected INFEASIBLE, got %s", res.Status)
	}
	if res.PreSolve.Infeasible() {
		t.Errorf("Expected the engine to prove infeasibility, got pre-solve reasons %+v", res.PreSolve.Reasons)
	}
}

func TestSolve_InvalidReferences(t *testing.T) {
	in := smallSchool()
	in.Lessons[0].TeacherID = "ghost"

	_, err := Solve(context.Background(), in, DefaultConfig(), time.Second)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if errors.GetCode(err) != errors.CodeValidationFail {
		t.Errorf("Expected VALIDATION_FAILED, got %s", errors.GetCode(err))
	}
}

func TestSolve_RejectsExtraFixedSlots(t *testing.T) {
	// 每周 2 节却固定了 3 个时段，多出的固定时段不能被静默丢弃
	in := smallSchool()
	in.Lessons[1].FixedSlots = []model.FixedSlot{
		{Day: 0, PeriodID: "d0p1"}, {Day: 1, PeriodID: "d1p1"}, {Day: 2, PeriodID: "d2p1"},
	}

	_, err := Solve(context.Background(), in, DefaultConfig(), time.Second)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if errors.GetCode(err) != errors.CodeValidationFail {
		t.Errorf("Expected VALIDATION_FAILED, got %s", errors.GetCode(err))
	}
}

func TestSolve_TimeLimitCoversWholeSolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	limit := 2 * time.Second
	start := time.Now()
	res, err := Solve(context.Background(), smallSchool(), cfg, limit)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > limit+time.Second {
		t.Errorf("Expected solve within %v, got %v", limit, elapsed)
	}
	if !res.HasSolution() {
		t.Errorf("Expected a solution, got %s", res.Status)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := New(DefaultConfig(), nil)
	a := b.Build(smallSchool())
	c := b.Build(smallSchool())

	if a.Stats.Variables != c.Stats.Variables || a.Stats.Constraints != c.Stats.Constraints || a.Stats.Penalties != c.Stats.Penalties {
		t.Fatalf("Expected identical stats, got %+v and %+v", a.Stats, c.Stats)
	}
	for i := 1; i <= a.Model.NumVars(); i++ {
		if a.Model.Name(engine.Lit(i)) != c.Model.Name(engine.Lit(i)) {
			t.Fatalf("Variable %d differs: %s vs %s", i, a.Model.Name(engine.Lit(i)), c.Model.Name(engine.Lit(i)))
		}
	}
	pa, pc := a.Model.Penalties(), c.Model.Penalties()
	for i := range pa {
		if pa[i] != pc[i] {
			t.Fatalf("Penalty %d differs", i)
		}
	}
	if len(a.Contributions) != len(a.Manager.Modules()) {
		t.Errorf("Expected one contribution per module, got %d", len(a.Contributions))
	}
}

func TestBuild_CompatibilityFieldsIgnored(t *testing.T) {
	b := New(DefaultConfig(), nil)
	plain := b.Build(smallSchool())

	in := smallSchool()
	yes := true
	in.Lessons[0].ConsecutivePreferred = true
	in.Constraints.ConsecutiveLessons = []model.ConsecutiveLessons{
		{ConstraintBase: model.ConstraintBase{Weight: 10}, LessonID: "chn-a", PreferConsecutive: &yes, MaxConsecutive: 2},
	}
	in.Constraints.TeacherPreference = []model.TeacherPreference{
		{ConstraintBase: model.ConstraintBase{Weight: 10}, TeacherID: "t1", PreferredPeriods: []string{"d0p1", "d1p1"}},
	}
	marked := b.Build(in)

	// 删除兼容字段后重建，模型必须完全一致
	in.Lessons[0].ConsecutivePreferred = false
	in.Constraints.ConsecutiveLessons[0].PreferConsecutive = nil
	in.Constraints.TeacherPreference[0].PreferredPeriods = nil
	stripped := b.Build(in)

	ms, ss := marked.Stats, stripped.Stats
	if ms.Variables != ss.Variables || ms.Constraints != ss.Constraints || ms.Penalties != ss.Penalties {
		t.Fatalf("Expected identical stats, got %+v and %+v", marked.Stats, stripped.Stats)
	}
	pm, ps := marked.Model.Penalties(), stripped.Model.Penalties()
	if len(pm) != len(ps) {
		t.Fatalf("Expected %d penalties, got %d", len(ps), len(pm))
	}
	for i := range pm {
		if pm[i] != ps[i] {
			t.Errorf("Penalty %d differs: %+v vs %+v", i, pm[i], ps[i])
		}
	}
	if plain.Stats.Penalties > marked.Stats.Penalties {
		t.Errorf("Expected at least %d penalties, got %d", plain.Stats.Penalties, marked.Stats.Penalties)
	}
}
