// Package builtin 提供内置硬约束与软约束模块
package builtin

import (
	"fmt"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// BaseModule 约束模块基类
type BaseModule struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   int
}

// NewBaseModule 创建基础模块
func NewBaseModule(name string, typ constraint.Type, cat constraint.Category, weight int) *BaseModule {
	return &BaseModule{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
	}
}

// Name 返回模块名称
func (b *BaseModule) Name() string { return b.name }

// Type 返回约束类型
func (b *BaseModule) Type() constraint.Type { return b.typ }

// Category 返回约束类别
func (b *BaseModule) Category() constraint.Category { return b.category }

// Weight 返回权重，硬约束为 0
func (b *BaseModule) Weight() int { return b.weight }

// Contribute 默认不贡献
func (b *BaseModule) Contribute(ctx *constraint.Context) {}

// Evaluate 默认无违反
func (b *BaseModule) Evaluate(ectx *constraint.EvalContext) []constraint.Violation { return nil }

// HardViolation 创建硬约束违反
func (b *BaseModule) HardViolation(key, entityID, format string, args ...interface{}) constraint.Violation {
	return constraint.Violation{
		Key:      key,
		Type:     b.typ,
		Category: constraint.CategoryHard,
		Units:    1,
		EntityID: entityID,
		Message:  fmt.Sprintf(format, args...),
	}
}

// SoftViolation 创建软约束违反，惩罚 = 单位数 × 权重
func (b *BaseModule) SoftViolation(key, entityID string, units int, weight int64, format string, args ...interface{}) constraint.Violation {
	return constraint.Violation{
		Key:      key,
		Type:     b.typ,
		Category: constraint.CategorySoft,
		Penalty:  int64(units) * weight,
		Units:    units,
		EntityID: entityID,
		Message:  fmt.Sprintf(format, args...),
	}
}

// penalize 为文字添加以模块权重计的目标项
func (b *BaseModule) penalize(m *engine.Model, l engine.Lit, key string) {
	m.AddPenalty(l, int64(b.weight), key)
}
