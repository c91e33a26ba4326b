package generator

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/decoder"
	"github.com/paiban/kebiao/pkg/validator"
)

func TestGenerate_Sizes(t *testing.T) {
	tests := []struct {
		size    Size
		classes int
	}{
		{SizeSmall, 1},
		{SizeMedium, 4},
		{SizeLarge, 8},
	}

	for _, tt := range tests {
		t.Run(string(tt.size), func(t *testing.T) {
			in := Generate(tt.size, 42)

			if len(in.Classes) != tt.classes {
				t.Errorf("Expected %d classes, got %d", tt.classes, len(in.Classes))
			}
			if report := model.Validate(in); !report.OK() {
				t.Fatalf("Expected valid input, got %v", report.Err())
			}

			cat := model.NewCatalog(in)
			for _, l := range in.Lessons {
				teacher := cat.Teacher(l.TeacherID)
				found := false
				for _, sid := range teacher.Subjects {
					if sid == l.SubjectID {
						found = true
					}
				}
				if !found {
					t.Errorf("Teacher %s does not teach %s", l.TeacherID, l.SubjectID)
				}
			}
			for _, teacher := range in.Teachers {
				if load := cat.TeacherLoad(teacher.ID); load > *teacher.MaxPeriodsPerWeek {
					t.Errorf("Teacher %s load %d exceeds weekly cap %d", teacher.ID, load, *teacher.MaxPeriodsPerWeek)
				}
			}

			built := builder.New(builder.DefaultConfig(), nil).Build(in)
			if report := builder.PreSolve(built.Catalog, built.Slots, built.Vars); report.Infeasible() {
				t.Errorf("Expected no pre-solve reasons, got %+v", report.Reasons)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(SizeMedium, 7)
	b := Generate(SizeMedium, 7)
	if !reflect.DeepEqual(a, b) {
		t.Error("Expected identical schools for the same seed")
	}

	c := Generate(SizeMedium, 8)
	if reflect.DeepEqual(a.Teachers, c.Teachers) {
		t.Error("Expected different teachers for a different seed")
	}
}

func TestGenerate_Periods(t *testing.T) {
	in := Generate(SizeSmall, 1)
	cfg := ConfigFor(SizeSmall, 1)

	if n := len(in.SchedulablePeriods()); n != cfg.NumDays*cfg.PeriodsPerDay {
		t.Errorf("Expected %d schedulable periods, got %d", cfg.NumDays*cfg.PeriodsPerDay, n)
	}
	if len(in.Periods) != cfg.NumDays*(cfg.PeriodsPerDay+2) {
		t.Errorf("Expected break and lunch per day, got %d periods", len(in.Periods))
	}

	// 第 3 节在课间之后
	cat := model.NewCatalog(in)
	p3 := cat.Period("d0p3")
	if p3 == nil || p3.StartMinutes != 540+2*60+20 {
		t.Errorf("Expected d0p3 to start at 680, got %+v", p3)
	}
	if in.Config.DayEndMinutes != 540+6*60+20+60 {
		t.Errorf("Expected day end 980, got %d", in.Config.DayEndMinutes)
	}
}

func TestParseSize(t *testing.T) {
	if s, err := ParseSize("Large"); err != nil || s != SizeLarge {
		t.Errorf("Expected large, got %s (%v)", s, err)
	}
	if _, err := ParseSize("huge"); err == nil {
		t.Error("Expected error for unknown size")
	}
}

// TestScenario_Sizes 各规模学校在默认配置下端到端求解
// 时间上限覆盖建模与编码，返回时必须带有可用课表
func TestScenario_Sizes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping solve in short mode")
	}
	tests := []struct {
		name  string
		size  Size
		limit time.Duration
	}{
		{"小规模学校", SizeSmall, 20 * time.Second},
		{"中等规模学校", SizeMedium, 30 * time.Second},
		{"大规模学校", SizeLarge, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Generate(tt.size, 3)

			start := time.Now()
			res, err := builder.Solve(context.Background(), in, builder.DefaultConfig(), tt.limit)
			if err != nil {
				t.Fatalf("Solve failed: %v", err)
			}
			if elapsed := time.Since(start); elapsed > tt.limit+5*time.Second {
				t.Errorf("Expected return within %v, got %v", tt.limit, elapsed)
			}
			if !res.HasSolution() {
				t.Fatalf("Expected a timetable, got %s", res.Status)
			}
			if res.Status != engine.StatusOptimal && res.Status != engine.StatusFeasible {
				t.Errorf("Expected OPTIMAL or FEASIBLE, got %s", res.Status)
			}
			if res.Objective < res.LowerBound {
				t.Errorf("Expected objective >= lower bound %d, got %d", res.LowerBound, res.Objective)
			}

			dec, err := decoder.Decode(res)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(dec.Assignments) != in.TotalOccurrences() {
				t.Errorf("Expected %d assignments, got %d", in.TotalOccurrences(), len(dec.Assignments))
			}
			conflicts := validator.NewConflictDetector(nil).DetectAll(model.NewCatalog(in), dec.Assignments)
			if validator.HasErrors(conflicts) {
				t.Errorf("Expected no hard conflicts, got %+v", conflicts)
			}
			t.Logf("%s: 状态=%s, 惩罚=%d, 下界=%d, 耗时=%v", tt.name, res.Status, res.Objective, res.LowerBound, res.Elapsed)
		})
	}
}
