package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/paiban/kebiao/pkg/engine"
	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
	"github.com/paiban/kebiao/pkg/stats"
)

func TestMetrics_RecordSolve(t *testing.T) {
	m := New()

	m.RecordSolve(&solver.Outcome{
		Result: &builder.SolveResult{
			RunID:  uuid.New(),
			Status: engine.StatusInfeasible,
			PreSolve: &builder.PreSolveReport{Reasons: []builder.Reason{
				{Kind: builder.ReasonTeacherOverload},
				{Kind: builder.ReasonTeacherOverload},
				{Kind: builder.ReasonMissingRoomType},
			}},
			Built: &builder.Built{Stats: engine.Stats{Variables: 120, Constraints: 45}},
		},
		Duration: 50 * time.Millisecond,
	})
	m.RecordSolve(&solver.Outcome{
		Result:   &builder.SolveResult{Status: engine.StatusOptimal},
		Metrics:  &stats.MetricsReport{OverallScore: 87.5},
		Duration: time.Second,
	})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"不可行次数", testutil.ToFloat64(m.solvesTotal.WithLabelValues("INFEASIBLE")), 1},
		{"最优次数", testutil.ToFloat64(m.solvesTotal.WithLabelValues("OPTIMAL")), 1},
		{"教师超载原因", testutil.ToFloat64(m.presolveReasons.WithLabelValues(builder.ReasonTeacherOverload)), 2},
		{"模型变量数", testutil.ToFloat64(m.modelVariables), 120},
		{"综合评分", testutil.ToFloat64(m.qualityScore), 87.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, tt.got)
			}
		})
	}
}

func TestMetrics_RecordSolveError(t *testing.T) {
	m := New()
	m.RecordSolveError(errors.New(errors.CodeValidationFail, "验证失败"))
	m.RecordSolveError(errors.New(errors.CodeValidationFail, "验证失败"))

	if got := testutil.ToFloat64(m.solveErrors.WithLabelValues(string(errors.CodeValidationFail))); got != 2 {
		t.Errorf("Expected 2 validation errors, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordRequest(http.MethodPost, "/api/v1/timetable/solve", http.StatusOK, 200*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"kebiao_http_requests_total", `path="/api/v1/timetable/solve"`, "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected exposition to contain %q", want)
		}
	}
}
