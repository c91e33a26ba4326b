package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paiban/kebiao/internal/constraints"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
)

func TestConstraintLibrary(t *testing.T) {
	w := builtin.DefaultWeights()
	w.EvenDistribution = 0

	rec := httptest.NewRecorder()
	ConstraintLibrary(w)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/constraints/library", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp constraints.LibraryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(resp.Library) != 19 {
		t.Fatalf("Expected 19 definitions, got %d", len(resp.Library))
	}
	for _, d := range resp.Library {
		if d.Name == constraint.TypeEvenDistribution && d.Enabled {
			t.Errorf("Expected %s to be disabled", d.Name)
		}
	}
}

func TestVersion(t *testing.T) {
	rec := httptest.NewRecorder()
	Version(BuildInfo{Version: "1.2.0", GitCommit: "abc"})(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info BuildInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if info.Version != "1.2.0" || info.GitCommit != "abc" {
		t.Errorf("Expected version 1.2.0/abc, got %+v", info)
	}
}
