package constraint

import (
	"sort"

	"github.com/paiban/kebiao/pkg/logger"
)

// Manager 有序约束模块列表，创建后不可变
type Manager struct {
	modules []Module
	logger  *logger.SolverLogger
}

// NewManager 创建约束管理器
// 硬约束在前，同类别内按权重降序，权重相同保持传入顺序
func NewManager(modules ...Module) *Manager {
	ordered := make([]Module, 0, len(modules))
	seen := make(map[Type]bool)
	for _, m := range modules {
		if m == nil {
			continue
		}
		// 同类型只保留首个
		if seen[m.Type()] {
			continue
		}
		seen[m.Type()] = true
		ordered = append(ordered, m)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := ordered[i], ordered[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Weight() > cj.Weight()
	})
	return &Manager{modules: ordered}
}

// WithLogger 返回带日志器的副本
func (m *Manager) WithLogger(l *logger.SolverLogger) *Manager {
	return &Manager{modules: m.modules, logger: l}
}

// Modules 全部模块（副本）
func (m *Manager) Modules() []Module {
	out := make([]Module, len(m.modules))
	copy(out, m.modules)
	return out
}

// ByCategory 按类别筛选模块
func (m *Manager) ByCategory(cat Category) []Module {
	var out []Module
	for _, mod := range m.modules {
		if mod.Category() == cat {
			out = append(out, mod)
		}
	}
	return out
}

// Get 按类型查找模块
func (m *Manager) Get(t Type) Module {
	for _, mod := range m.modules {
		if mod.Type() == t {
			return mod
		}
	}
	return nil
}

// Contribute 依序调用全部模块，返回每个模块贡献的规模
func (m *Manager) Contribute(ctx *Context) []Contribution {
	out := make([]Contribution, 0, len(m.modules))
	for _, mod := range m.modules {
		vars := ctx.Model.NumVars()
		cons := ctx.Model.NumConstraints()
		pens := len(ctx.Model.Penalties())

		mod.Contribute(ctx)

		out = append(out, Contribution{
			Module:      mod.Name(),
			Type:        mod.Type(),
			Constraints: ctx.Model.NumConstraints() - cons,
			Penalties:   len(ctx.Model.Penalties()) - pens,
			Variables:   ctx.Model.NumVars() - vars,
		})
	}
	return out
}

// Evaluate 基于排课结果评估全部模块
func (m *Manager) Evaluate(ectx *EvalContext) *Result {
	result := &Result{
		IsValid:        true,
		HardViolations: make([]Violation, 0),
		SoftViolations: make([]Violation, 0),
		Scores:         make(map[string]int64),
	}

	for _, mod := range m.modules {
		for _, v := range mod.Evaluate(ectx) {
			if v.Category == CategoryHard {
				result.IsValid = false
				result.HardViolations = append(result.HardViolations, v)
				if m.logger != nil {
					m.logger.ConstraintViolation(mod.Name(), v.Key, v.Message)
				}
				continue
			}
			if v.Penalty <= 0 {
				continue
			}
			result.TotalPenalty += v.Penalty
			result.Scores[v.Key] += v.Penalty
			result.SoftViolations = append(result.SoftViolations, v)
		}
	}
	return result
}
