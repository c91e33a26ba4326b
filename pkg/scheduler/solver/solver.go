// Package solver 串联校验、建模求解、解码、冲突检测与质量评估，供命令行与 HTTP 接口共用
package solver

import (
	"context"
	"time"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/output"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/decoder"
	"github.com/paiban/kebiao/pkg/stats"
	"github.com/paiban/kebiao/pkg/validator"
)

// Solver 求解流程接口
type Solver interface {
	// Solve 求解一次排课输入
	Solve(ctx context.Context, in *model.TimetableInput) (*Outcome, error)

	// Name 返回求解器名称
	Name() string
}

// Outcome 一次求解的全部产物
type Outcome struct {
	Result    *builder.SolveResult
	Decoded   *decoder.Decoded
	Document  *output.Document
	Metrics   *stats.MetricsReport
	Conflicts []validator.Conflict
	Warnings  []string
	Duration  time.Duration
}

// Err 没有可用课表时返回对应错误码的错误，否则返回 nil
func (o *Outcome) Err() error {
	if o.Result.HasSolution() {
		return nil
	}
	switch o.Result.Status {
	case engine.StatusInfeasible:
		if o.Result.PreSolve.Infeasible() {
			return o.Result.PreSolve.Err()
		}
		return errors.New(errors.CodeModelInfeasible, "约束模型无可行解")
	case engine.StatusTimeout:
		return errors.New(errors.CodeTimeout, "时间上限内未找到可行课表")
	default:
		return errors.New(errors.CodeUnknown, "求解状态未知")
	}
}

// Pipeline 默认求解流程
type Pipeline struct {
	cfg      builder.Config
	engine   engine.Solver
	calc     *stats.Calculator
	detector *validator.ConflictDetector
}

// Option 流程选项
type Option func(*Pipeline)

// WithEngine 指定求解引擎
func WithEngine(s engine.Solver) Option {
	return func(p *Pipeline) { p.engine = s }
}

// WithTargets 指定质量评估目标
func WithTargets(t stats.Targets) Option {
	return func(p *Pipeline) { p.calc = stats.NewCalculator(&t) }
}

// New 创建求解流程
func New(cfg builder.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		calc:     stats.NewCalculator(nil),
		detector: validator.NewConflictDetector(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name 返回求解器名称
func (p *Pipeline) Name() string {
	return "CPSatPipeline"
}

// Config 返回求解配置
func (p *Pipeline) Config() builder.Config {
	return p.cfg
}

// Solve 校验输入后求解，有解时解码并生成质量报告
// 输入校验失败返回 VALIDATION_FAILED；解码一致性失败返回 INTERNAL_CONSISTENCY 且不生成文档
func (p *Pipeline) Solve(ctx context.Context, in *model.TimetableInput) (*Outcome, error) {
	start := time.Now()
	log := logger.WithComponent("pipeline")

	report := model.Validate(in)
	if !report.OK() {
		log.Warn().Int("errors", len(report.Errors.Errors)).Msg("输入校验失败")
		return nil, report.Errors.ToAppError()
	}
	for _, w := range report.Warnings {
		log.Warn().Str("warning", w).Msg("输入校验警告")
	}

	res, err := builder.New(p.cfg, p.engine).Solve(ctx, in)
	if err != nil {
		return nil, err
	}
	dec, err := decoder.Decode(res)
	if err != nil {
		log.Error().Err(err).Str("run_id", res.RunID.String()).Msg("解码一致性检查失败")
		return nil, err
	}

	out := &Outcome{
		Result:   res,
		Decoded:  dec,
		Document: output.Build(in, res, dec),
		Warnings: report.Warnings,
	}
	if dec.Evaluation != nil {
		out.Metrics = p.calc.Calculate(in, dec.Assignments, dec.Evaluation.IsValid, dec.Evaluation.TotalPenalty)
		out.Conflicts = p.detector.DetectAll(res.Built.Catalog, dec.Assignments)
	}
	out.Duration = time.Since(start)

	log.Info().
		Str("run_id", res.RunID.String()).
		Str("status", string(res.Status)).
		Int("lessons", len(out.Document.Timetable.Lessons)).
		Int("conflicts", len(out.Conflicts)).
		Dur("duration", out.Duration).
		Msg("求解流程完成")
	return out, nil
}

// Evaluate 对已有课表做冲突检测与质量评估，不调用求解引擎
func (p *Pipeline) Evaluate(in *model.TimetableInput, doc *output.Document) (*stats.MetricsReport, []validator.Conflict, error) {
	assignments, err := doc.Assignments()
	if err != nil {
		return nil, nil, err
	}
	conflicts := p.detector.DetectAll(model.NewCatalog(in), assignments)
	hardOK := !validator.HasErrors(conflicts)
	penalty := doc.Quality.TotalPenalty
	return p.calc.Calculate(in, assignments, hardOK, penalty), conflicts, nil
}

// CheckReport 求解前检查结果
type CheckReport struct {
	Valid      bool                    `json:"valid"`
	Validation *model.ValidationReport `json:"validation"`
	Summary    model.Summary           `json:"summary"`
	// PreSolve 与 Model 仅在输入校验通过后填充
	PreSolve *builder.PreSolveReport `json:"presolve,omitempty"`
	Model    *engine.Stats           `json:"model,omitempty"`
}

// Feasible 校验通过且求解前检查未发现不可行原因
func (r *CheckReport) Feasible() bool {
	return r.Valid && !r.PreSolve.Infeasible()
}

// Check 校验输入并构建模型做求解前检查，不调用求解引擎
func (p *Pipeline) Check(in *model.TimetableInput) *CheckReport {
	report := model.Validate(in)
	out := &CheckReport{
		Valid:      report.OK(),
		Validation: report,
		Summary:    in.Summarize(),
	}
	if !out.Valid {
		return out
	}
	built := builder.New(p.cfg, p.engine).Build(in)
	out.PreSolve = builder.PreSolve(built.Catalog, built.Slots, built.Vars)
	out.Model = &built.Stats
	return out
}
