package engine

import (
	"context"
	"sync"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

const (
	pollInterval = 5 * time.Millisecond
	// 所有工作协程加载的子句文字总量上限，超出时减少协程数
	clauseBudget   = 16 << 20
	loadCheckEvery = 1 << 16
)

// GiniSolver 基于 gini 的求解器
// 基数约束共用 totalizer 编码，目标编码为二进制加法器，
// 上界比较器按需追加（SAT-UNSAT 下降）。
// 多个工作协程各持独立实例，共享当前最优解与已证明的下界
type GiniSolver struct{}

// NewGiniSolver 创建求解器
func NewGiniSolver() *GiniSolver {
	return &GiniSolver{}
}

// Name 返回求解器名称
func (s *GiniSolver) Name() string {
	return "gini"
}

// Solve 求解模型
func (s *GiniSolver) Solve(ctx context.Context, m *Model, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	cp, err := compile(ctx, m)
	if err != nil {
		// 编码阶段已耗尽时间
		return &Result{Status: StatusTimeout, Elapsed: time.Since(start)}, nil
	}
	opts.Workers = workerCap(opts.Workers, len(cp.clauses))

	srch := &search{
		m:          m,
		cp:         cp,
		opts:       opts,
		start:      start,
		bestScaled: -1,
		done:       make(chan struct{}),
		found:      make(chan struct{}),
	}

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer srch.finish()
			srch.work(ctx, id)
		}(i)
	}
	wg.Wait()

	res := srch.result(ctx)
	res.Elapsed = time.Since(start)
	res.Workers = opts.Workers
	return res, nil
}

// search 多工作协程共享的搜索状态
type search struct {
	m     *Model
	cp    *compiled
	opts  Options
	start time.Time

	mu           sync.Mutex
	best         []bool
	bestScaled   int64
	lower        int64
	infeasible   bool
	improvements int

	done     chan struct{}
	doneOnce sync.Once
	found    chan struct{}
	once     sync.Once
}

func (s *search) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// workerCap 子句流过大时限制协程数，每个协程持有一份完整副本
func workerCap(workers, lits int) int {
	if lits == 0 {
		return workers
	}
	n := clauseBudget / lits
	if n < 1 {
		n = 1
	}
	if workers > n {
		return n
	}
	return workers
}

// instance 单个工作协程的 gini 实例及其上界比较器
type instance struct {
	g      *gini.Gini
	nvars  int
	bounds map[int64]z.Lit
}

func (s *search) load(ctx context.Context) (*instance, bool) {
	g := gini.NewV(s.cp.nvars)
	for i, m := range s.cp.clauses {
		if i%loadCheckEvery == 0 && ctx.Err() != nil {
			return nil, false
		}
		g.Add(m)
	}
	return &instance{g: g, nvars: s.cp.nvars, bounds: make(map[int64]z.Lit)}, true
}

// assumeAtMost 假设缩放后目标 ≤ k
func (in *instance) assumeAtMost(cp *compiled, k int64) {
	if k >= cp.maxCost() {
		return
	}
	lit, ok := in.bounds[k]
	if !ok {
		fresh := func() z.Lit {
			in.nvars++
			return z.Var(in.nvars).Pos()
		}
		add := func(ms ...z.Lit) {
			for _, m := range ms {
				in.g.Add(m)
			}
			in.g.Add(0)
		}
		lit = cp.bound(k, fresh, add)
		in.bounds[k] = lit
	}
	in.g.Assume(lit)
}

func (s *search) work(ctx context.Context, id int) {
	in, ok := s.load(ctx)
	if !ok {
		return
	}
	g := in.g

	// 非首个协程等待首个可行解后再做二分探测
	if id > 0 {
		select {
		case <-s.found:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}

	for {
		k, bounded, ok := s.nextBound(ctx, id)
		if !ok {
			return
		}
		if bounded {
			in.assumeAtMost(s.cp, k)
		}
		switch solveInterruptible(ctx, g, s.done) {
		case 1:
			s.offer(id, g)
		case -1:
			if !bounded {
				s.markInfeasible()
				return
			}
			s.raiseLower(k + 1)
		default:
			return
		}
	}
}

// nextBound 返回本轮探测的目标上界 k（求 cost ≤ k）
// 0 号协程线性下降，其余协程在 [lower, best-1] 区间内按编号分段探测
func (s *search) nextBound(ctx context.Context, id int) (int64, bool, bool) {
	if ctx.Err() != nil {
		return 0, false, false
	}
	select {
	case <-s.done:
		return 0, false, false
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.infeasible {
		return 0, false, false
	}
	if s.bestScaled < 0 {
		return 0, false, true
	}
	hi := s.bestScaled - 1
	lo := s.lower
	if hi < lo {
		s.finish()
		return 0, false, false
	}
	k := hi - (hi-lo)*int64(id)/int64(s.opts.Workers)
	return k, true, true
}

func (s *search) offer(id int, g *gini.Gini) {
	values := make([]bool, len(s.m.names))
	for v := 1; v < len(values); v++ {
		values[v] = g.Value(s.cp.inputs[v])
	}
	scaled := s.cp.scaledCost(s.m, values)

	s.mu.Lock()
	improved := s.bestScaled < 0 || scaled < s.bestScaled
	var objective int64
	if improved {
		s.best = values
		s.bestScaled = scaled
		s.improvements++
		objective = s.m.Objective(values)
	}
	if s.bestScaled <= s.lower {
		s.finish()
	}
	s.mu.Unlock()

	if improved {
		s.once.Do(func() { close(s.found) })
		if s.opts.OnImprove != nil {
			s.opts.OnImprove(id, objective, time.Since(s.start))
		}
	}
}

func (s *search) raiseLower(k int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k > s.lower {
		s.lower = k
	}
	if s.bestScaled >= 0 && s.lower >= s.bestScaled {
		s.finish()
	}
}

func (s *search) markInfeasible() {
	s.mu.Lock()
	s.infeasible = true
	s.mu.Unlock()
	s.finish()
}

func (s *search) result(ctx context.Context) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{Improvements: s.improvements, LowerBound: s.lower * s.cp.gcd}
	switch {
	case s.infeasible:
		res.Status = StatusInfeasible
	case s.best == nil:
		if ctx.Err() != nil {
			res.Status = StatusTimeout
		} else {
			res.Status = StatusUnknown
		}
	default:
		res.Values = s.best
		res.Objective = s.m.Objective(s.best)
		if s.lower >= s.bestScaled {
			res.Status = StatusOptimal
			res.LowerBound = res.Objective
		} else {
			res.Status = StatusFeasible
		}
	}
	return res
}

// solveInterruptible 异步求解并轮询，超时或搜索结束时中止
func solveInterruptible(ctx context.Context, g *gini.Gini, done <-chan struct{}) int {
	sv := g.GoSolve()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if r, ok := sv.Test(); ok {
			return r
		}
		select {
		case <-ctx.Done():
			return sv.Stop()
		case <-done:
			return sv.Stop()
		case <-ticker.C:
		}
	}
}
