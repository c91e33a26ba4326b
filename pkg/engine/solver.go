package engine

import (
	"context"
	"time"
)

// Status 求解状态
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusFeasible   Status = "FEASIBLE"
	StatusInfeasible Status = "INFEASIBLE"
	StatusTimeout    Status = "TIMEOUT"
	StatusUnknown    Status = "UNKNOWN"
)

// HasSolution 状态是否携带可用解
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Options 求解参数
type Options struct {
	TimeLimit time.Duration
	Workers   int
	// OnImprove 每找到更优解时回调，可能被多个工作协程并发调用
	OnImprove func(worker int, objective int64, elapsed time.Duration)
}

// DefaultOptions 默认求解参数
func DefaultOptions() Options {
	return Options{TimeLimit: 30 * time.Second, Workers: 4}
}

// Result 求解结果
type Result struct {
	Status       Status        `json:"status"`
	Values       []bool        `json:"-"`
	Objective    int64         `json:"objective"`
	LowerBound   int64         `json:"lowerBound"`
	Elapsed      time.Duration `json:"elapsed"`
	Improvements int           `json:"improvements"`
	Workers      int           `json:"workers"`
}

// Solver 约束求解器接口
type Solver interface {
	// Solve 在时间限制内最小化目标；超时返回当前最优解
	Solve(ctx context.Context, m *Model, opts Options) (*Result, error)

	// Name 返回求解器名称
	Name() string
}
