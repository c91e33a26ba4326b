package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/paiban/kebiao/internal/metrics"
	"github.com/paiban/kebiao/internal/repository"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/output"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
)

// memStore 内存求解记录存储
type memStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*repository.TimetableRun
	fail bool
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[uuid.UUID]*repository.TimetableRun)}
}

func (s *memStore) Create(ctx context.Context, run *repository.TimetableRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New(errors.CodeDatabaseError, "写入失败")
	}
	s.runs[run.ID] = run
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*repository.TimetableRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, errors.NotFound("timetable_run", id.String())
	}
	return run, nil
}

func (s *memStore) List(ctx context.Context, filter repository.ListFilter) ([]*repository.TimetableRun, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repository.TimetableRun
	for _, run := range s.runs {
		if filter.Status == "" || run.Status == filter.Status {
			out = append(out, run)
		}
	}
	return out, len(out), nil
}

func (s *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return errors.NotFound("timetable_run", id.String())
	}
	delete(s.runs, id)
	return nil
}

func school(mathPerWeek int) *model.TimetableInput {
	in := &model.TimetableInput{
		Config:   model.SchoolConfig{SchoolName: "实验中学", NumDays: 2},
		Teachers: []model.Teacher{{ID: "t1", Name: "王老师"}, {ID: "t2", Name: "刘老师"}},
		Classes:  []model.Class{{ID: "c1", Name: "一班"}},
		Subjects: []model.Subject{{ID: "math", Name: "数学"}, {ID: "eng", Name: "英语"}},
		Rooms:    []model.Room{{ID: "r1", Name: "101", Type: model.RoomClassroom}},
		Lessons: []model.Lesson{
			{ID: "m", TeacherID: "t1", ClassID: "c1", SubjectID: "math", LessonsPerWeek: mathPerWeek},
			{ID: "e", TeacherID: "t2", ClassID: "c1", SubjectID: "eng", LessonsPerWeek: 1},
		},
	}
	for d := 0; d < 2; d++ {
		for p := 0; p < 2; p++ {
			in.Periods = append(in.Periods, model.Period{
				ID: fmt.Sprintf("d%dp%d", d, p), Name: fmt.Sprintf("P%d", p+1), Day: d,
				StartMinutes: 540 + 60*p, EndMinutes: 600 + 60*p,
			})
		}
	}
	return in
}

func newServer(t *testing.T, store repository.RunStore) (*http.ServeMux, *metrics.Metrics) {
	t.Helper()
	cfg := builder.DefaultConfig()
	cfg.TimeLimit = 10 * time.Second
	cfg.Workers = 1

	m := metrics.New()
	h := NewTimetableHandler(solver.New(cfg), Options{Store: store, Metrics: m, MaxBodyBytes: 1 << 20})
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, m
}

func post(t *testing.T, mux http.Handler, path string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestTimetableHandler_Solve(t *testing.T) {
	store := newMemStore()
	mux, m := newServer(t, store)

	rec := post(t, mux, "/api/v1/timetable/solve", school(2))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Document.Status != "optimal" {
		t.Errorf("Expected optimal, got %s", resp.Document.Status)
	}
	if len(resp.Document.Timetable.Lessons) != 3 {
		t.Errorf("Expected 3 lessons, got %d", len(resp.Document.Timetable.Lessons))
	}
	if !resp.Persisted || len(store.runs) != 1 {
		t.Fatalf("Expected run to be persisted, got persisted=%v runs=%d", resp.Persisted, len(store.runs))
	}
	if n := testutil.CollectAndCount(m.Registry(), "kebiao_solves_total"); n != 1 {
		t.Errorf("Expected 1 solve series, got %d", n)
	}

	// 保存的记录可以按 run id 取回
	id := resp.Document.RunID
	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/timetable/runs/"+id, nil))
	if get.Code != http.StatusOK {
		t.Fatalf("Expected 200 for stored run, got %d", get.Code)
	}
	var run repository.TimetableRun
	if err := json.Unmarshal(get.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run failed: %v", err)
	}
	if run.ID.String() != id || run.Status != "optimal" {
		t.Errorf("Unexpected run %+v", run)
	}
}

func TestTimetableHandler_SolveOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		raw        string
		wantStatus int
		wantDoc    string
		wantCode   errors.Code
	}{
		{
			name:       "求解前不可行",
			body:       school(4),
			wantStatus: http.StatusOK,
			wantDoc:    "infeasible",
		},
		{
			name: "引用不存在的教师",
			body: func() *model.TimetableInput {
				in := school(2)
				in.Lessons[0].TeacherID = "ghost"
				return in
			}(),
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.CodeValidationFail,
		},
		{
			name:       "请求体不是JSON",
			raw:        "{not json",
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.CodeInvalidInput,
		},
		{
			name:       "请求体为空",
			raw:        " ",
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.CodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newServer(t, nil)

			var rec *httptest.ResponseRecorder
			if tt.raw != "" {
				rec = httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/timetable/solve", strings.NewReader(tt.raw)))
			} else {
				rec = post(t, mux, "/api/v1/timetable/solve", tt.body)
			}

			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				var resp ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode failed: %v", err)
				}
				if resp.Code != tt.wantCode {
					t.Errorf("Expected code %s, got %s", tt.wantCode, resp.Code)
				}
				return
			}
			var resp SolveResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if resp.Document.Status != tt.wantDoc {
				t.Errorf("Expected status %s, got %s", tt.wantDoc, resp.Document.Status)
			}
			if resp.Persisted {
				t.Error("Expected nothing persisted without a store")
			}
		})
	}
}

func TestTimetableHandler_SolveYAML(t *testing.T) {
	mux, _ := newServer(t, nil)
	yamlInput := `
config: {schoolName: 小学, numDays: 1}
teachers: [{id: t1, name: 张老师}]
classes: [{id: c1, name: 一班}]
subjects: [{id: math, name: 数学}]
rooms: [{id: r1, name: "101", type: classroom}]
lessons: [{id: m, teacherId: t1, classId: c1, subjectId: math, lessonsPerWeek: 1}]
periods:
  - {id: d0p0, name: P1, day: 0, startMinutes: 540, endMinutes: 585}
`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/solve?format=yaml", strings.NewReader(yamlInput))
	req.Header.Set("Content-Type", "application/yaml")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("Expected YAML response, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "09:00") {
		t.Errorf("Expected lesson at 09:00 in YAML body, got:\n%s", rec.Body.String())
	}
}

func TestTimetableHandler_SolveStoreFailure(t *testing.T) {
	store := newMemStore()
	store.fail = true
	mux, _ := newServer(t, store)

	rec := post(t, mux, "/api/v1/timetable/solve", school(2))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 even when persistence fails, got %d", rec.Code)
	}
	var resp SolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Persisted {
		t.Error("Expected persisted=false")
	}
}

func TestTimetableHandler_Validate(t *testing.T) {
	tests := []struct {
		name         string
		in           *model.TimetableInput
		wantValid    bool
		wantFeasible bool
	}{
		{"可行输入", school(2), true, true},
		{"班级节次不足", school(4), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newServer(t, nil)
			rec := post(t, mux, "/api/v1/timetable/validate", tt.in)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			var report solver.CheckReport
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if report.Valid != tt.wantValid || report.Feasible() != tt.wantFeasible {
				t.Errorf("Expected valid=%v feasible=%v, got %v/%v", tt.wantValid, tt.wantFeasible, report.Valid, report.Feasible())
			}
		})
	}
}

func TestTimetableHandler_Evaluate(t *testing.T) {
	mux, _ := newServer(t, nil)
	in := school(2)

	solved := post(t, mux, "/api/v1/timetable/solve", in)
	var sr SolveResponse
	if err := json.Unmarshal(solved.Body.Bytes(), &sr); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// 把两节数学放到同一节次，制造教师冲突
	doc := *sr.Document
	doc.Timetable.Lessons = append([]output.LessonEntry(nil), doc.Timetable.Lessons...)
	var first, second = -1, -1
	for i, e := range doc.Timetable.Lessons {
		if e.LessonID != "m" {
			continue
		}
		if first < 0 {
			first = i
		} else {
			second = i
		}
	}
	doc.Timetable.Lessons[second].PeriodID = doc.Timetable.Lessons[first].PeriodID
	doc.Timetable.Lessons[second].Day = doc.Timetable.Lessons[first].Day
	doc.Timetable.Lessons[second].StartTime = doc.Timetable.Lessons[first].StartTime
	doc.Timetable.Lessons[second].EndTime = doc.Timetable.Lessons[first].EndTime

	tests := []struct {
		name     string
		req      EvaluateRequest
		wantHard bool
	}{
		{"原始课表", EvaluateRequest{Input: *in, Document: *sr.Document}, true},
		{"教师冲突", EvaluateRequest{Input: *in, Document: doc}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, mux, "/api/v1/timetable/metrics", tt.req)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp EvaluateResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if resp.HardConstraintsSatisfied != tt.wantHard {
				t.Errorf("Expected hard=%v, got %v (%+v)", tt.wantHard, resp.HardConstraintsSatisfied, resp.Conflicts)
			}
			if resp.Metrics == nil {
				t.Error("Expected metrics report")
			}
		})
	}
}

func TestTimetableHandler_Runs(t *testing.T) {
	store := newMemStore()
	id := uuid.New()
	store.runs[id] = &repository.TimetableRun{ID: id, Status: "feasible"}

	tests := []struct {
		name     string
		store    repository.RunStore
		method   string
		path     string
		expected int
	}{
		{"列表", store, http.MethodGet, "/api/v1/timetable/runs?status=feasible&limit=5", http.StatusOK},
		{"非法limit", store, http.MethodGet, "/api/v1/timetable/runs?limit=500", http.StatusBadRequest},
		{"非法ID", store, http.MethodGet, "/api/v1/timetable/runs/not-a-uuid", http.StatusBadRequest},
		{"记录不存在", store, http.MethodGet, "/api/v1/timetable/runs/" + uuid.New().String(), http.StatusNotFound},
		{"未启用存储", nil, http.MethodGet, "/api/v1/timetable/runs", http.StatusNotFound},
		{"删除", store, http.MethodDelete, "/api/v1/timetable/runs/" + id.String(), http.StatusNoContent},
		{"方法不允许", store, http.MethodPut, "/api/v1/timetable/runs/" + id.String(), http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newServer(t, tt.store)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		expected int
		status   string
	}{
		{"无依赖", nil, http.StatusOK, "ok"},
		{"数据库正常", map[string]HealthCheck{"database": func(context.Context) error { return nil }}, http.StatusOK, "ok"},
		{
			"数据库异常",
			map[string]HealthCheck{"database": func(context.Context) error { return errors.New(errors.CodeDatabaseError, "连接失败") }},
			http.StatusServiceUnavailable, "degraded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Health("kebiao", "test", tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.expected {
				t.Fatalf("Expected %d, got %d", tt.expected, rec.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("Expected %s, got %s", tt.status, resp.Status)
			}
		})
	}
}
