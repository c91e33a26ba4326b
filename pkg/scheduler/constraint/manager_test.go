package constraint

import (
	"testing"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
	"github.com/paiban/kebiao/pkg/scheduler/variable"
)

func TestNewManager_Ordering(t *testing.T) {
	soft := &MockModule{name: "soft", typ: Type("soft"), category: CategorySoft, weight: 5}
	heavy := &MockModule{name: "heavy", typ: Type("heavy"), category: CategorySoft, weight: 50}
	hard := &MockModule{name: "hard", typ: Type("hard"), category: CategoryHard}
	dup := &MockModule{name: "dup", typ: Type("hard"), category: CategoryHard}

	m := NewManager(soft, nil, heavy, hard, dup)
	mods := m.Modules()
	if len(mods) != 3 {
		t.Fatalf("Expected 3 modules, got %d", len(mods))
	}
	want := []string{"hard", "heavy", "soft"}
	for i, mod := range mods {
		if mod.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], mod.Name())
		}
	}
	if len(m.ByCategory(CategorySoft)) != 2 {
		t.Errorf("Expected 2 soft modules, got %d", len(m.ByCategory(CategorySoft)))
	}
	if m.Get(Type("hard")) != hard {
		t.Error("Expected first module of a type to win")
	}
}

func TestManager_Contribute(t *testing.T) {
	in := &model.TimetableInput{
		Teachers: []model.Teacher{{ID: "t1"}},
		Classes:  []model.Class{{ID: "c1"}},
		Subjects: []model.Subject{{ID: "s1"}},
		Rooms:    []model.Room{{ID: "r1", Type: model.RoomClassroom}},
		Lessons:  []model.Lesson{{ID: "l1", TeacherID: "t1", ClassID: "c1", SubjectID: "s1", LessonsPerWeek: 1}},
		Periods:  []model.Period{{ID: "p1", StartMinutes: 540, EndMinutes: 600}},
	}
	cat := model.NewCatalog(in)
	slots := slot.New(cat)
	em := engine.NewModel()
	ctx := &Context{Catalog: cat, Slots: slots, Vars: variable.Build(cat, slots, em), Model: em}

	mod := &MockModule{name: "soft", typ: Type("soft"), category: CategorySoft, weight: 3}
	contributions := NewManager(mod).Contribute(ctx)
	if len(contributions) != 1 {
		t.Fatalf("Expected 1 contribution, got %d", len(contributions))
	}
	c := contributions[0]
	if c.Variables != 1 || c.Penalties != 1 || c.Constraints != 1 {
		t.Errorf("Expected 1 variable, 1 penalty and 1 constraint, got %+v", c)
	}
}

func TestManager_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		modules   []Module
		wantValid bool
		wantTotal int64
		wantKeys  int
	}{
		{
			name:      "无违反",
			modules:   []Module{&MockModule{name: "ok", typ: "ok", category: CategoryHard, pass: true}},
			wantValid: true,
		},
		{
			name:      "硬约束违反",
			modules:   []Module{&MockModule{name: "bad", typ: "bad", category: CategoryHard}},
			wantValid: false,
		},
		{
			name: "软约束按键累加",
			modules: []Module{
				&MockModule{name: "a", typ: "a", category: CategorySoft, weight: 10, penalty: 20, key: "k1"},
				&MockModule{name: "b", typ: "b", category: CategorySoft, weight: 5, penalty: 5, key: "k1"},
				&MockModule{name: "c", typ: "c", category: CategorySoft, weight: 1, penalty: 3, key: "k2"},
			},
			wantValid: true,
			wantTotal: 28,
			wantKeys:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewManager(tt.modules...).Evaluate(&EvalContext{})
			if res.IsValid != tt.wantValid {
				t.Errorf("Expected valid=%v, got %v", tt.wantValid, res.IsValid)
			}
			if res.TotalPenalty != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, res.TotalPenalty)
			}
			if len(res.Scores) != tt.wantKeys {
				t.Errorf("Expected %d score keys, got %v", tt.wantKeys, res.ScoreKeys())
			}
		})
	}
}

// MockModule 用于测试的模拟模块
type MockModule struct {
	name     string
	typ      Type
	category Category
	weight   int
	pass     bool
	penalty  int64
	key      string
}

func (m *MockModule) Name() string       { return m.name }
func (m *MockModule) Type() Type         { return m.typ }
func (m *MockModule) Category() Category { return m.category }
func (m *MockModule) Weight() int        { return m.weight }

func (m *MockModule) Contribute(ctx *Context) {
	x := ctx.Model.NewBool(m.name)
	ctx.Model.AddOrIff(x, ctx.Vars.TeacherLits("t1"))
	ctx.Model.AddPenalty(x, int64(m.weight), m.name)
}

func (m *MockModule) Evaluate(ectx *EvalContext) []Violation {
	if m.pass {
		return nil
	}
	return []Violation{{Key: m.key, Type: m.typ, Category: m.category, Penalty: m.penalty, Units: 1, Message: "违反约束"}}
}
