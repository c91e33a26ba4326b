package engine

import (
	"testing"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

func load(b *cnf) *gini.Gini {
	g := gini.NewV(b.nvars)
	for _, m := range b.lits {
		g.Add(m)
	}
	return g
}

func TestCNF_AdderAndBound(t *testing.T) {
	weights := []int64{3, 5, 1, 6}
	b := newCNF()
	ms := make([]z.Lit, len(weights))
	for i := range ms {
		ms[i] = b.fresh()
	}
	cp := &compiled{tru: b.tru, bits: b.adder(ms, weights)}

	for mask := 0; mask < 1<<len(ms); mask++ {
		var sum int64
		g := load(b)
		for i, m := range ms {
			if mask>>i&1 == 1 {
				sum += weights[i]
				g.Assume(m)
			} else {
				g.Assume(m.Not())
			}
		}
		if g.Solve() != 1 {
			t.Fatalf("mask=%04b: Expected SAT", mask)
		}
		var got int64
		for j, bit := range cp.bits {
			if g.Value(bit) {
				got |= 1 << uint(j)
			}
		}
		if got != sum {
			t.Errorf("mask=%04b: Expected sum %d, got %d", mask, sum, got)
		}
	}

	// Σ ≤ k 可满足当且仅当存在和不超过 k 的赋值；固定输入时逐个检查
	nvars := b.nvars
	fresh := func() z.Lit {
		nvars++
		return z.Var(nvars).Pos()
	}
	for k := int64(0); k <= 15; k++ {
		g := load(b)
		add := func(xs ...z.Lit) {
			for _, x := range xs {
				g.Add(x)
			}
			g.Add(0)
		}
		le := cp.bound(k, fresh, add)
		for mask := 0; mask < 1<<len(ms); mask++ {
			var sum int64
			g.Assume(le)
			for i, m := range ms {
				if mask>>i&1 == 1 {
					sum += weights[i]
					g.Assume(m)
				} else {
					g.Assume(m.Not())
				}
			}
			want := 1
			if sum > k {
				want = -1
			}
			if got := g.Solve(); got != want {
				t.Errorf("k=%d mask=%04b: Expected %d, got %d", k, mask, want, got)
			}
		}
	}
}

func TestCNF_Totalizer(t *testing.T) {
	const n, limit = 7, 4
	b := newCNF()
	ms := make([]z.Lit, n)
	for i := range ms {
		ms[i] = b.fresh()
	}
	out := b.totalizer(ms, limit)
	if len(out) != limit {
		t.Fatalf("Expected %d outputs, got %d", limit, len(out))
	}

	for mask := 0; mask < 1<<n; mask++ {
		g := load(b)
		count := 0
		for i, m := range ms {
			if mask>>i&1 == 1 {
				count++
				g.Assume(m)
			} else {
				g.Assume(m.Not())
			}
		}
		if g.Solve() != 1 {
			t.Fatalf("mask=%07b: Expected SAT", mask)
		}
		for j, o := range out {
			if want := count >= j+1; g.Value(o) != want {
				t.Errorf("mask=%07b: Expected out[%d]=%v, got %v", mask, j, want, g.Value(o))
			}
		}
	}
}

func TestCounterKey_IgnoresOrder(t *testing.T) {
	if counterKey([]Lit{3, -1, 2}) != counterKey([]Lit{2, 3, -1}) {
		t.Error("Expected same key for permuted literals")
	}
	if counterKey([]Lit{1, 2}) == counterKey([]Lit{1, -2}) {
		t.Error("Expected different key for different polarity")
	}
}
