package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/paiban/kebiao/internal/metrics"
	"github.com/paiban/kebiao/internal/repository"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/output"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
	"github.com/paiban/kebiao/pkg/stats"
	"github.com/paiban/kebiao/pkg/validator"
)

// Pipeline 处理器依赖的求解流程
type Pipeline interface {
	Solve(ctx context.Context, in *model.TimetableInput) (*solver.Outcome, error)
	Check(in *model.TimetableInput) *solver.CheckReport
	Evaluate(in *model.TimetableInput, doc *output.Document) (*stats.MetricsReport, []validator.Conflict, error)
}

// Options 处理器可选依赖；Store 为空时不保存求解记录
type Options struct {
	Store        repository.RunStore
	Metrics      *metrics.Metrics
	MaxBodyBytes int64
}

// TimetableHandler 排课处理器
type TimetableHandler struct {
	pipeline Pipeline
	store    repository.RunStore
	metrics  *metrics.Metrics
	maxBody  int64
}

// NewTimetableHandler 创建排课处理器
func NewTimetableHandler(p Pipeline, opts Options) *TimetableHandler {
	return &TimetableHandler{
		pipeline: p,
		store:    opts.Store,
		metrics:  opts.Metrics,
		maxBody:  opts.MaxBodyBytes,
	}
}

// Register 注册路由
func (h *TimetableHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/timetable/solve", h.Solve)
	mux.HandleFunc("POST /api/v1/timetable/validate", h.Validate)
	mux.HandleFunc("POST /api/v1/timetable/metrics", h.Evaluate)
	mux.HandleFunc("GET /api/v1/timetable/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/timetable/runs/{id}", h.GetRun)
	mux.HandleFunc("DELETE /api/v1/timetable/runs/{id}", h.DeleteRun)
}

// SolveResponse 求解响应
type SolveResponse struct {
	Document  *output.Document     `json:"document" yaml:"document"`
	Metrics   *stats.MetricsReport `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Conflicts []validator.Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Warnings  []string             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Persisted bool                 `json:"persisted" yaml:"persisted"`
}

// EvaluateRequest 课表评估请求
type EvaluateRequest struct {
	Input    model.TimetableInput `json:"input" yaml:"input"`
	Document output.Document      `json:"document" yaml:"document"`
}

// EvaluateResponse 课表评估响应
type EvaluateResponse struct {
	HardConstraintsSatisfied bool                 `json:"hardConstraintsSatisfied" yaml:"hardConstraintsSatisfied"`
	Metrics                  *stats.MetricsReport `json:"metrics" yaml:"metrics"`
	Conflicts                []validator.Conflict `json:"conflicts" yaml:"conflicts"`
}

// RunListResponse 求解记录列表响应
type RunListResponse struct {
	Runs  []*repository.TimetableRun `json:"runs"`
	Total int                        `json:"total"`
}

// Solve 求解排课输入；不可行与超时同样以 200 返回，状态见文档
func (h *TimetableHandler) Solve(w http.ResponseWriter, r *http.Request) {
	body, f, err := readBody(w, r, h.maxBody)
	if err != nil {
		respondError(w, r, err)
		return
	}
	in, err := output.ReadInput(bytes.NewReader(body), f)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out, err := h.pipeline.Solve(r.Context(), in)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordSolveError(err)
		}
		respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordSolve(out)
	}

	resp := SolveResponse{
		Document:  out.Document,
		Metrics:   out.Metrics,
		Conflicts: out.Conflicts,
		Warnings:  out.Warnings,
	}
	if h.store != nil {
		resp.Persisted = h.persist(r.Context(), in, body, f, out)
	}
	respond(w, r, http.StatusOK, resp)
}

// persist 保存求解记录，失败只记录日志
func (h *TimetableHandler) persist(ctx context.Context, in *model.TimetableInput, body []byte, f output.Format, out *solver.Outcome) bool {
	ctx = logger.ContextWithRunID(ctx, out.Result.RunID.String())
	log := logger.WithContext(ctx)

	input := json.RawMessage(body)
	if f != output.FormatJSON {
		data, err := json.Marshal(in)
		if err != nil {
			log.Warn().Err(err).Msg("编码求解输入失败")
			return false
		}
		input = data
	}
	doc, err := json.Marshal(out.Document)
	if err != nil {
		log.Warn().Err(err).Msg("编码求解结果失败")
		return false
	}

	run := &repository.TimetableRun{
		ID:           out.Result.RunID,
		Status:       out.Document.Status,
		TotalPenalty: out.Document.Quality.TotalPenalty,
		SolveSeconds: out.Document.SolveTimeSeconds,
		Input:        input,
		Output:       doc,
	}
	if err := h.store.Create(ctx, run); err != nil {
		log.Warn().Err(err).Msg("保存求解记录失败")
		return false
	}
	return true
}

// Validate 校验输入并做求解前检查
func (h *TimetableHandler) Validate(w http.ResponseWriter, r *http.Request) {
	body, f, err := readBody(w, r, h.maxBody)
	if err != nil {
		respondError(w, r, err)
		return
	}
	in, err := output.ReadInput(bytes.NewReader(body), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, h.pipeline.Check(in))
}

// Evaluate 对已有课表做冲突检测与质量评估，路由为 /metrics
func (h *TimetableHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	body, f, err := readBody(w, r, h.maxBody)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req EvaluateRequest
	if err := output.Decode(bytes.NewReader(body), f, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := model.ValidateReferences(&req.Input); err.HasErrors() {
		respondError(w, r, err.ToAppError())
		return
	}

	report, conflicts, err := h.pipeline.Evaluate(&req.Input, &req.Document)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}
	respond(w, r, http.StatusOK, EvaluateResponse{
		HardConstraintsSatisfied: !validator.HasErrors(conflicts),
		Metrics:                  report,
		Conflicts:                conflicts,
	})
}

// ListRuns 列出求解记录
func (h *TimetableHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, r, errStoreDisabled())
		return
	}
	q := r.URL.Query()
	filter := repository.DefaultListFilter().WithStatus(q.Get("status"))
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			respondError(w, r, errors.InvalidInput("limit", "必须为 1-100 的整数"))
			return
		}
		filter = filter.WithLimit(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, r, errors.InvalidInput("offset", "必须为非负整数"))
			return
		}
		filter = filter.WithOffset(n)
	}
	if v := q.Get("order_by"); v != "" {
		filter.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		filter.OrderDir = v
	}

	runs, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*repository.TimetableRun{}
	}
	respondJSON(w, http.StatusOK, RunListResponse{Runs: runs, Total: total})
}

// GetRun 获取求解记录
func (h *TimetableHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}
	run, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// DeleteRun 删除求解记录
func (h *TimetableHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TimetableHandler) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if h.store == nil {
		respondError(w, r, errStoreDisabled())
		return uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, errors.Wrap(err, errors.CodeInvalidInput, "无效的求解记录ID格式"))
		return uuid.Nil, false
	}
	return id, true
}

func errStoreDisabled() *errors.AppError {
	return errors.New(errors.CodeNotFound, "未启用求解记录存储")
}
