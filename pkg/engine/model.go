// Package engine 定义与具体求解器无关的布尔约束模型，以及基于 gini 的并行求解实现
package engine

import (
	"fmt"
	"sort"
)

// Lit 布尔文字：正数为变量本身，负数为其否定，0 无效
type Lit int

// Not 取反
func (l Lit) Not() Lit { return -l }

// Var 变量编号（从 1 开始）
func (l Lit) Var() int {
	if l < 0 {
		return int(-l)
	}
	return int(l)
}

// Value 在给定取值下计算文字的真值
func (l Lit) Value(values []bool) bool {
	v := values[l.Var()]
	if l < 0 {
		return !v
	}
	return v
}

// Op 线性约束比较符
type Op int

const (
	LE Op = iota // Σ ≤ k
	EQ           // Σ = k
	GE           // Σ ≥ k
)

// String 返回比较符
func (o Op) String() string {
	switch o {
	case LE:
		return "<="
	case EQ:
		return "="
	case GE:
		return ">="
	default:
		return "?"
	}
}

// Linear 基数约束 Σ lits op K
type Linear struct {
	Lits []Lit
	Op   Op
	K    int
	Tag  string
}

// AtLeastIff 具体化约束 Target ⇔ Σ lits ≥ K；K=1 即“至少一个”
type AtLeastIff struct {
	Target Lit
	Lits   []Lit
	K      int
}

// AndIff 具体化约束 Target ⇔ ∧ lits
type AndIff struct {
	Target Lit
	Lits   []Lit
}

// Penalty 目标函数项 Weight × Lit
type Penalty struct {
	Lit    Lit
	Weight int64
	Key    string
}

// Model 布尔约束模型，目标为最小化 Σ Weight × Lit
type Model struct {
	names     []string
	linears   []Linear
	atLeast   []AtLeastIff
	ands      []AndIff
	units     []Lit
	penalties []Penalty
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{names: []string{""}}
}

// NewBool 新建布尔变量
func (m *Model) NewBool(name string) Lit {
	m.names = append(m.names, name)
	return Lit(len(m.names) - 1)
}

// Name 变量名
func (m *Model) Name(l Lit) string {
	v := l.Var()
	if v <= 0 || v >= len(m.names) {
		return ""
	}
	return m.names[v]
}

// NumVars 变量数量
func (m *Model) NumVars() int { return len(m.names) - 1 }

// NumConstraints 约束数量（不含目标项）
func (m *Model) NumConstraints() int {
	return len(m.linears) + len(m.atLeast) + len(m.ands) + len(m.units)
}

// AddLinear 添加 Σ lits op k
func (m *Model) AddLinear(lits []Lit, op Op, k int, tag string) {
	m.linears = append(m.linears, Linear{Lits: cloneLits(lits), Op: op, K: k, Tag: tag})
}

// AddExactlyOne 恰好一个为真
func (m *Model) AddExactlyOne(lits []Lit, tag string) {
	m.AddLinear(lits, EQ, 1, tag)
}

// AddAtMostOne 至多一个为真
func (m *Model) AddAtMostOne(lits []Lit, tag string) {
	if len(lits) > 1 {
		m.AddLinear(lits, LE, 1, tag)
	}
}

// AddAtLeastIff target ⇔ Σ lits ≥ k
func (m *Model) AddAtLeastIff(target Lit, lits []Lit, k int) {
	m.atLeast = append(m.atLeast, AtLeastIff{Target: target, Lits: cloneLits(lits), K: k})
}

// AddOrIff target ⇔ ∨ lits
func (m *Model) AddOrIff(target Lit, lits []Lit) {
	m.AddAtLeastIff(target, lits, 1)
}

// AddAndIff target ⇔ ∧ lits
func (m *Model) AddAndIff(target Lit, lits []Lit) {
	m.ands = append(m.ands, AndIff{Target: target, Lits: cloneLits(lits)})
}

// Fix 强制文字为真
func (m *Model) Fix(l Lit) {
	m.units = append(m.units, l)
}

// AddPenalty 添加目标项，权重必须为正
func (m *Model) AddPenalty(l Lit, weight int64, key string) {
	if weight <= 0 {
		return
	}
	m.penalties = append(m.penalties, Penalty{Lit: l, Weight: weight, Key: key})
}

// Penalties 目标项列表
func (m *Model) Penalties() []Penalty { return m.penalties }

// Objective 计算取值下的目标值
func (m *Model) Objective(values []bool) int64 {
	var total int64
	for _, p := range m.penalties {
		if p.Lit.Value(values) {
			total += p.Weight
		}
	}
	return total
}

// ObjectiveByKey 按目标项键汇总
func (m *Model) ObjectiveByKey(values []bool) map[string]int64 {
	out := make(map[string]int64)
	for _, p := range m.penalties {
		if p.Lit.Value(values) {
			out[p.Key] += p.Weight
		}
	}
	return out
}

// Check 校验取值是否满足全部约束
func (m *Model) Check(values []bool) error {
	if len(values) != len(m.names) {
		return fmt.Errorf("取值长度 %d 与变量数 %d 不符", len(values)-1, m.NumVars())
	}
	for _, l := range m.units {
		if !l.Value(values) {
			return fmt.Errorf("固定文字 %s 为假", m.describe(l))
		}
	}
	for _, c := range m.linears {
		n := countTrue(c.Lits, values)
		ok := true
		switch c.Op {
		case LE:
			ok = n <= c.K
		case EQ:
			ok = n == c.K
		case GE:
			ok = n >= c.K
		}
		if !ok {
			return fmt.Errorf("约束 %s 不满足: %d %s %d", c.Tag, n, c.Op, c.K)
		}
	}
	for _, c := range m.atLeast {
		if c.Target.Value(values) != (countTrue(c.Lits, values) >= c.K) {
			return fmt.Errorf("具体化约束 %s 不一致", m.describe(c.Target))
		}
	}
	for _, c := range m.ands {
		all := true
		for _, l := range c.Lits {
			if !l.Value(values) {
				all = false
				break
			}
		}
		if c.Target.Value(values) != all {
			return fmt.Errorf("合取约束 %s 不一致", m.describe(c.Target))
		}
	}
	return nil
}

// Stats 模型规模统计
type Stats struct {
	Variables   int            `json:"variables" yaml:"variables"`
	Constraints int            `json:"constraints" yaml:"constraints"`
	Penalties   int            `json:"penalties" yaml:"penalties"`
	ByTag       map[string]int `json:"byTag,omitempty" yaml:"byTag,omitempty"`
}

// Stats 返回模型规模
func (m *Model) Stats() Stats {
	byTag := make(map[string]int)
	for _, c := range m.linears {
		byTag[tagKind(c.Tag)]++
	}
	return Stats{
		Variables:   m.NumVars(),
		Constraints: m.NumConstraints(),
		Penalties:   len(m.penalties),
		ByTag:       byTag,
	}
}

// Tags 线性约束标签（排序去重）
func (m *Model) Tags() []string {
	seen := make(map[string]bool)
	for _, c := range m.linears {
		seen[c.Tag] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (m *Model) describe(l Lit) string {
	if l < 0 {
		return "¬" + m.Name(l)
	}
	return m.Name(l)
}

func tagKind(tag string) string {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ':' {
			return tag[:i]
		}
	}
	return tag
}

func countTrue(lits []Lit, values []bool) int {
	n := 0
	for _, l := range lits {
		if l.Value(values) {
			n++
		}
	}
	return n
}

func cloneLits(lits []Lit) []Lit {
	out := make([]Lit, len(lits))
	copy(out, lits)
	return out
}
