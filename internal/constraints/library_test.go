package constraints

import (
	"testing"

	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
)

func TestGetLibrary(t *testing.T) {
	w := builtin.DefaultWeights()
	w.ClassGap = 0
	w.TeacherGap = 25

	lib := GetLibrary(w)
	if len(lib) != 19 {
		t.Fatalf("Expected 19 definitions, got %d", len(lib))
	}

	byName := make(map[constraint.Type]ConstraintDefinition)
	for _, d := range lib {
		if d.Description == "" || d.KeyPattern == "" {
			t.Errorf("Expected documentation for %s", d.Name)
		}
		byName[d.Name] = d
	}

	tests := []struct {
		name     string
		typ      constraint.Type
		enabled  bool
		weight   int
		category constraint.Category
	}{
		{"硬约束始终启用", constraint.TypeNoTeacherOverlap, true, 0, constraint.CategoryHard},
		{"自定义权重", constraint.TypeTeacherGap, true, 25, constraint.CategorySoft},
		{"权重为零关闭", constraint.TypeClassGap, false, 0, constraint.CategorySoft},
		{"默认权重", constraint.TypeLessonSpread, true, 20, constraint.CategorySoft},
		{"未设上限默认关闭", constraint.TypeClassOverload, false, 0, constraint.CategorySoft},
		{"按分钟计罚", constraint.TypeLateFinish, true, 1, constraint.CategorySoft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := byName[tt.typ]
			if !ok {
				t.Fatalf("Expected definition for %s", tt.typ)
			}
			if d.Enabled != tt.enabled || d.Weight != tt.weight || d.Category != tt.category {
				t.Errorf("Expected enabled=%v weight=%d category=%s, got %v/%d/%s",
					tt.enabled, tt.weight, tt.category, d.Enabled, d.Weight, d.Category)
			}
		})
	}

	if lib[0].Name != constraint.TypeExactlyOne {
		t.Errorf("Expected hard modules first, got %s", lib[0].Name)
	}
	spread := byName[constraint.TypeLessonSpread]
	if len(spread.Params) != 2 || spread.Params[0].Name != "weight" || spread.Params[0].Default != "20" {
		t.Errorf("Unexpected lesson spread params %+v", spread.Params)
	}

	// 设置上限后启用
	w.ClassDailyMax = 6
	for _, d := range GetLibrary(w) {
		if d.Name == constraint.TypeClassOverload && (!d.Enabled || d.Weight != 100) {
			t.Errorf("Expected class overload enabled with weight 100, got %v/%d", d.Enabled, d.Weight)
		}
	}
}
