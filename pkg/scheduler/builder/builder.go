// Package builder 串联时段索引、变量工厂与约束模块，构建统一模型并调用求解引擎
package builder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
	"github.com/paiban/kebiao/pkg/scheduler/variable"
)

// Config 求解配置
type Config struct {
	TimeLimit time.Duration
	Workers   int
	Weights   builtin.Weights
	// Modules 非空时替代默认模块列表
	Modules []constraint.Module
}

// DefaultConfig 返回默认求解配置
func DefaultConfig() Config {
	opts := engine.DefaultOptions()
	return Config{
		TimeLimit: opts.TimeLimit,
		Workers:   opts.Workers,
		Weights:   builtin.DefaultWeights(),
	}
}

// Built 构建完成的模型及其索引，构建后只读
type Built struct {
	Catalog       *model.Catalog
	Slots         *slot.Index
	Vars          *variable.Index
	Model         *engine.Model
	Manager       *constraint.Manager
	Contributions []constraint.Contribution
	Stats         engine.Stats
	BuildTime     time.Duration
}

// SolveResult 单次求解结果
type SolveResult struct {
	RunID        uuid.UUID
	Status       engine.Status
	Elapsed      time.Duration
	Values       []bool
	Objective    int64
	LowerBound   int64
	Improvements int
	PreSolve     *PreSolveReport
	Built        *Built
}

// HasSolution 是否带有可解码的取值
func (r *SolveResult) HasSolution() bool {
	return r.Status.HasSolution() && r.Values != nil
}

// Builder 模型构建器
type Builder struct {
	cfg    Config
	solver engine.Solver
}

// New 创建模型构建器；solver 为空时使用 gini 求解器
func New(cfg Config, solver engine.Solver) *Builder {
	if solver == nil {
		solver = engine.NewGiniSolver()
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = engine.DefaultOptions().TimeLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = engine.DefaultOptions().Workers
	}
	return &Builder{cfg: cfg, solver: solver}
}

// Build 依次构建时段索引、决策变量与全部约束模块
// 相同输入与配置总是得到相同的变量与约束序列
func (b *Builder) Build(in *model.TimetableInput) *Built {
	start := time.Now()
	cat := model.NewCatalog(in)
	slots := slot.New(cat)
	m := engine.NewModel()
	vars := variable.Build(cat, slots, m)

	modules := b.cfg.Modules
	if len(modules) == 0 {
		modules = builtin.DefaultModules(b.cfg.Weights)
	}
	mgr := constraint.NewManager(modules...)
	contributions := mgr.Contribute(&constraint.Context{Catalog: cat, Slots: slots, Vars: vars, Model: m})

	return &Built{
		Catalog:       cat,
		Slots:         slots,
		Vars:          vars,
		Model:         m,
		Manager:       mgr,
		Contributions: contributions,
		Stats:         m.Stats(),
		BuildTime:     time.Since(start),
	}
}

// Solve 构建模型并执行一次求解，不做任何重试
// 输入结构或引用错误返回错误；求解前不可行以 INFEASIBLE 状态返回并附带原因。
// 时间上限从进入 Solve 起算，覆盖建模、编码与搜索
func (b *Builder) Solve(ctx context.Context, in *model.TimetableInput) (*SolveResult, error) {
	deadline := time.Now().Add(b.cfg.TimeLimit)
	if errs := model.ValidateStructure(in); errs.HasErrors() {
		return nil, errs.ToAppError()
	}
	if errs := model.ValidateReferences(in); errs.HasErrors() {
		return nil, errs.ToAppError()
	}

	result := &SolveResult{RunID: uuid.New(), Status: engine.StatusUnknown}
	log := logger.NewSolverLogger(result.RunID.String())
	log.StartBuild(len(in.Teachers), len(in.Classes), len(in.Rooms), len(in.Lessons), in.TotalOccurrences())

	built := b.Build(in)
	built.Manager = built.Manager.WithLogger(log)
	result.Built = built
	log.ModelBuilt(built.Stats.Variables, built.Stats.Constraints, built.Stats.Penalties, built.BuildTime)

	result.PreSolve = PreSolve(built.Catalog, built.Slots, built.Vars)
	if result.PreSolve.Infeasible() {
		for _, r := range result.PreSolve.Reasons {
			log.PreSolveInfeasible(r.Kind, r.EntityType, r.EntityID, r.Message)
		}
		result.Status = engine.StatusInfeasible
		log.SolveComplete(string(result.Status), 0, 0)
		return result, nil
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		result.Status = engine.StatusTimeout
		log.SolveComplete(string(result.Status), 0, 0)
		return result, nil
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	res, err := b.solver.Solve(ctx, built.Model, engine.Options{
		TimeLimit: remaining,
		Workers:   b.cfg.Workers,
		OnImprove: log.Improved,
	})
	if err != nil {
		return nil, err
	}
	result.Status = res.Status
	result.Elapsed = res.Elapsed
	result.Values = res.Values
	result.Objective = res.Objective
	result.LowerBound = res.LowerBound
	result.Improvements = res.Improvements
	log.SolveComplete(string(res.Status), res.Elapsed, res.Objective)
	return result, nil
}

// Solve 以给定配置与时限求解一次
func Solve(ctx context.Context, in *model.TimetableInput, cfg Config, timeLimit time.Duration) (*SolveResult, error) {
	if timeLimit > 0 {
		cfg.TimeLimit = timeLimit
	}
	return New(cfg, nil).Solve(ctx, in)
}
