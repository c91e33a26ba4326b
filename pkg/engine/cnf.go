package engine

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/go-air/gini/z"
)

const (
	// 至多一个约束在此规模以内用两两互斥，否则用阶梯编码
	pairwiseLimit = 6
	// 每编码这么多条约束检查一次上下文
	compileCheckEvery = 256
)

// cnf 以 0 结尾的子句流，变量按需分配
type cnf struct {
	nvars    int
	lits     []z.Lit
	nclauses int
	tru      z.Lit
}

func newCNF() *cnf {
	b := &cnf{}
	b.tru = b.fresh()
	b.add(b.tru)
	return b
}

func (b *cnf) fresh() z.Lit {
	b.nvars++
	return z.Var(b.nvars).Pos()
}

func (b *cnf) add(ms ...z.Lit) {
	b.lits = append(b.lits, ms...)
	b.lits = append(b.lits, 0)
	b.nclauses++
}

func (b *cnf) fls() z.Lit { return b.tru.Not() }

// atMostOne 两两互斥或阶梯编码：s_i ⇔ 前 i+1 个中已有真值
func (b *cnf) atMostOne(ms []z.Lit) {
	n := len(ms)
	if n <= 1 {
		return
	}
	if n <= pairwiseLimit {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				b.add(ms[i].Not(), ms[j].Not())
			}
		}
		return
	}
	prev := b.fresh()
	b.add(ms[0].Not(), prev)
	for i := 1; i < n-1; i++ {
		s := b.fresh()
		b.add(ms[i].Not(), s)
		b.add(prev.Not(), s)
		b.add(ms[i].Not(), prev.Not())
		prev = s
	}
	b.add(ms[n-1].Not(), prev.Not())
}

// or 返回 ⇔ ∨ms 的文字
func (b *cnf) or(ms []z.Lit) z.Lit {
	switch len(ms) {
	case 0:
		return b.fls()
	case 1:
		return ms[0]
	}
	t := b.fresh()
	cl := append([]z.Lit{t.Not()}, ms...)
	b.add(cl...)
	for _, m := range ms {
		b.add(t, m.Not())
	}
	return t
}

// and 返回 ⇔ ∧ms 的文字
func (b *cnf) and(ms []z.Lit) z.Lit {
	switch len(ms) {
	case 0:
		return b.tru
	case 1:
		return ms[0]
	}
	t := b.fresh()
	cl := []z.Lit{t}
	for _, m := range ms {
		cl = append(cl, m.Not())
		b.add(t.Not(), m)
	}
	b.add(cl...)
	return t
}

func (b *cnf) iff(t, g z.Lit) {
	b.add(t.Not(), g)
	b.add(t, g.Not())
}

// totalizer 输出 out[j-1] ⇔ Σ ≥ j，j 不超过 cap
func (b *cnf) totalizer(ms []z.Lit, limit int) []z.Lit {
	if len(ms) == 1 {
		return []z.Lit{ms[0]}
	}
	mid := len(ms) / 2
	return b.merge(b.totalizer(ms[:mid], limit), b.totalizer(ms[mid:], limit), limit)
}

func (b *cnf) merge(a, c []z.Lit, limit int) []z.Lit {
	p, q := len(a), len(c)
	r := p + q
	if r > limit {
		r = limit
	}
	out := make([]z.Lit, r)
	for i := range out {
		out[i] = b.fresh()
	}
	// Σ ≥ i+j ⇒ out
	for i := 0; i <= p; i++ {
		for j := 0; j <= q; j++ {
			if i+j == 0 {
				continue
			}
			s := i + j
			if s > r {
				s = r
			}
			cl := make([]z.Lit, 0, 3)
			if i > 0 {
				cl = append(cl, a[i-1].Not())
			}
			if j > 0 {
				cl = append(cl, c[j-1].Not())
			}
			b.add(append(cl, out[s-1])...)
		}
	}
	// Σ ≤ i+j ⇒ ¬out[i+j+1]
	for i := 0; i <= p; i++ {
		for j := 0; j <= q; j++ {
			s := i + j + 1
			if s > r {
				continue
			}
			cl := make([]z.Lit, 0, 3)
			if i < p {
				cl = append(cl, a[i])
			}
			if j < q {
				cl = append(cl, c[j])
			}
			b.add(append(cl, out[s-1].Not())...)
		}
	}
	return out
}

// fullAdder 返回 a+b+c 的和位与进位
func (b *cnf) fullAdder(x, y, w z.Lit) (sum, carry z.Lit) {
	sum, carry = b.fresh(), b.fresh()
	b.add(x.Not(), y.Not(), w.Not(), sum)
	b.add(x.Not(), y, w, sum)
	b.add(x, y.Not(), w, sum)
	b.add(x, y, w.Not(), sum)
	b.add(x, y, w, sum.Not())
	b.add(x, y.Not(), w.Not(), sum.Not())
	b.add(x.Not(), y, w.Not(), sum.Not())
	b.add(x.Not(), y.Not(), w, sum.Not())

	b.add(x.Not(), y.Not(), carry)
	b.add(x.Not(), w.Not(), carry)
	b.add(y.Not(), w.Not(), carry)
	b.add(x, y, carry.Not())
	b.add(x, w, carry.Not())
	b.add(y, w, carry.Not())
	return sum, carry
}

func (b *cnf) halfAdder(x, y z.Lit) (sum, carry z.Lit) {
	sum, carry = b.fresh(), b.fresh()
	b.add(x.Not(), y.Not(), sum.Not())
	b.add(x, y, sum.Not())
	b.add(x.Not(), y, sum)
	b.add(x, y.Not(), sum)

	b.add(x.Not(), y.Not(), carry)
	b.add(x, carry.Not())
	b.add(y, carry.Not())
	return sum, carry
}

// adder 加权文字之和的二进制表示，bits[j] 为第 j 位
func (b *cnf) adder(ms []z.Lit, weights []int64) []z.Lit {
	var buckets [][]z.Lit
	for i, m := range ms {
		for j, w := 0, weights[i]; w > 0; j, w = j+1, w>>1 {
			if w&1 == 0 {
				continue
			}
			for len(buckets) <= j {
				buckets = append(buckets, nil)
			}
			buckets[j] = append(buckets[j], m)
		}
	}

	var bits []z.Lit
	for j := 0; j < len(buckets); j++ {
		q := buckets[j]
		for len(q) >= 2 {
			var sum, carry z.Lit
			if len(q) >= 3 {
				sum, carry = b.fullAdder(q[0], q[1], q[2])
				q = append(q[3:], sum)
			} else {
				sum, carry = b.halfAdder(q[0], q[1])
				q = []z.Lit{sum}
			}
			if len(buckets) <= j+1 {
				buckets = append(buckets, nil)
			}
			buckets[j+1] = append(buckets[j+1], carry)
		}
		if len(q) == 1 {
			bits = append(bits, q[0])
		} else {
			bits = append(bits, b.fls())
		}
	}
	return bits
}

// compiled 模型的 CNF 形式
type compiled struct {
	clauses  []z.Lit
	nvars    int
	nclauses int
	inputs   []z.Lit // 模型变量 → CNF 变量
	tru      z.Lit
	bits     []z.Lit // 缩放后目标值的二进制位
	scaled   []int64 // 每个目标项除以 gcd 后的权重
	gcd      int64
}

// counterKey 文字集合的规范键
func counterKey(ls []Lit) string {
	sorted := cloneLits(ls)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sb strings.Builder
	for _, l := range sorted {
		sb.WriteString(strconv.Itoa(int(l)))
		sb.WriteByte(',')
	}
	return sb.String()
}

type counterNeed struct {
	lits  []Lit
	limit int
	out   []z.Lit
}

// compile 编码模型；同一文字集合上的全部基数阈值共用一个 totalizer
func compile(ctx context.Context, m *Model) (*compiled, error) {
	b := newCNF()
	cp := &compiled{inputs: make([]z.Lit, len(m.names)), gcd: 1}
	for v := 1; v < len(m.names); v++ {
		cp.inputs[v] = b.fresh()
	}
	lit := func(l Lit) z.Lit {
		x := cp.inputs[l.Var()]
		if l < 0 {
			return x.Not()
		}
		return x
	}
	lits := func(ls []Lit) []z.Lit {
		out := make([]z.Lit, len(ls))
		for i, l := range ls {
			out[i] = lit(l)
		}
		return out
	}

	// 先汇总每个文字集合需要的最大阈值
	needs := make(map[string]*counterNeed)
	need := func(ls []Lit, k int) {
		key := counterKey(ls)
		c, ok := needs[key]
		if !ok {
			c = &counterNeed{lits: ls}
			needs[key] = c
		}
		if k > c.limit {
			c.limit = k
		}
	}
	for _, lc := range m.linears {
		n := len(lc.Lits)
		if (lc.Op == LE || lc.Op == EQ) && lc.K >= 2 && lc.K < n {
			need(lc.Lits, lc.K+1)
		}
		if (lc.Op == GE || lc.Op == EQ) && lc.K >= 2 && lc.K < n {
			need(lc.Lits, lc.K)
		}
	}
	for _, r := range m.atLeast {
		if r.K >= 2 && r.K < len(r.Lits) {
			need(r.Lits, r.K)
		}
	}
	counter := func(ls []Lit, k int) z.Lit {
		c := needs[counterKey(ls)]
		if c.out == nil {
			c.out = b.totalizer(lits(c.lits), c.limit)
		}
		return c.out[k-1]
	}

	step := 0
	check := func() error {
		step++
		if step%compileCheckEvery == 0 {
			return ctx.Err()
		}
		return nil
	}

	for _, u := range m.units {
		b.add(lit(u))
	}
	for _, lc := range m.linears {
		if err := check(); err != nil {
			return nil, err
		}
		ms := lits(lc.Lits)
		n, k := len(ms), lc.K
		if lc.Op == LE || lc.Op == EQ {
			switch {
			case k >= n:
			case k < 0:
				b.add(b.fls())
			case k == 0:
				for _, x := range ms {
					b.add(x.Not())
				}
			case k == 1:
				b.atMostOne(ms)
			default:
				b.add(counter(lc.Lits, k+1).Not())
			}
		}
		if lc.Op == GE || lc.Op == EQ {
			switch {
			case k <= 0:
			case k > n:
				b.add(b.fls())
			case k == 1:
				b.add(ms...)
			case k == n:
				for _, x := range ms {
					b.add(x)
				}
			default:
				b.add(counter(lc.Lits, k))
			}
		}
	}
	for _, r := range m.atLeast {
		if err := check(); err != nil {
			return nil, err
		}
		t := lit(r.Target)
		n := len(r.Lits)
		var g z.Lit
		switch {
		case r.K <= 0:
			g = b.tru
		case r.K > n:
			g = b.fls()
		case r.K == 1:
			g = b.or(lits(r.Lits))
		case r.K == n:
			g = b.and(lits(r.Lits))
		default:
			g = counter(r.Lits, r.K)
		}
		b.iff(t, g)
	}
	for _, a := range m.ands {
		if err := check(); err != nil {
			return nil, err
		}
		b.iff(lit(a.Target), b.and(lits(a.Lits)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(m.penalties) > 0 {
		g := m.penalties[0].Weight
		for _, p := range m.penalties[1:] {
			g = gcd(g, p.Weight)
		}
		cp.gcd = g
		ms := make([]z.Lit, len(m.penalties))
		cp.scaled = make([]int64, len(m.penalties))
		for i, p := range m.penalties {
			ms[i] = lit(p.Lit)
			cp.scaled[i] = p.Weight / g
		}
		cp.bits = b.adder(ms, cp.scaled)
	}

	cp.clauses = b.lits
	cp.nvars = b.nvars
	cp.nclauses = b.nclauses
	cp.tru = b.tru
	return cp, nil
}

func (cp *compiled) scaledCost(m *Model, values []bool) int64 {
	var cost int64
	for i, p := range m.penalties {
		if p.Lit.Value(values) {
			cost += cp.scaled[i]
		}
	}
	return cost
}

// maxCost 目标二进制位可表示的最大值
func (cp *compiled) maxCost() int64 {
	if len(cp.bits) >= 62 {
		return 1<<62 - 1
	}
	return int64(1)<<uint(len(cp.bits)) - 1
}

// bound 生成 Σ ≤ k 的比较器子句，返回需假设为真的文字
// le_i ⇒ S[i..0] ≤ K[i..0]：K_i=1 时 le_i ⇒ ¬s_i ∨ le_{i-1}，K_i=0 时 le_i ⇒ ¬s_i ∧ le_{i-1}
func (cp *compiled) bound(k int64, fresh func() z.Lit, add func(...z.Lit)) z.Lit {
	prev := cp.tru
	for i, s := range cp.bits {
		le := fresh()
		if k>>uint(i)&1 == 1 {
			add(le.Not(), s.Not(), prev)
		} else {
			add(le.Not(), s.Not())
			add(le.Not(), prev)
		}
		prev = le
	}
	return prev
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
